package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/okian/shapley/internal/domain/game"
	"github.com/okian/shapley/internal/domain/types"
	"github.com/okian/shapley/pkg/logger"
	"github.com/spf13/cobra"
)

const defaultPollInterval = 200 * time.Millisecond

type submitOptions struct {
	url      string
	file     string
	format   string
	wait     bool
	interval time.Duration
	timeout  time.Duration
}

func newSubmitCommand() *cobra.Command {
	var opts submitOptions

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a game file to a running service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkFormat(opts.format); err != nil {
				return err
			}
			return runSubmit(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.url, "url", "http://localhost:9080", "service base URL")
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "game definition (.yaml, .yml or .json)")
	cmd.Flags().StringVarP(&opts.format, "output", "o", formatTable, "output format when waiting: table or json")
	cmd.Flags().BoolVar(&opts.wait, "wait", false, "poll until the report is ready")
	cmd.Flags().DurationVar(&opts.interval, "interval", defaultPollInterval, "poll interval with --wait")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", time.Minute, "overall timeout")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

type submitResponse struct {
	JobID     string `json:"job_id"`
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func runSubmit(ctx context.Context, out io.Writer, opts submitOptions) error {
	log := logger.Named("submit")
	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	def, err := game.LoadFile(ctx, opts.file)
	if err != nil {
		return err
	}
	body, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("encode game: %w", err)
	}

	base := strings.TrimRight(opts.url, "/")
	client := &http.Client{}

	var ack submitResponse
	if err := doJSON(ctx, client, http.MethodPost, base+"/games", body, &ack); err != nil {
		return err
	}
	log.Debug(ctx, "game submitted", logger.String("job_id", ack.JobID), logger.Bool("duplicate", ack.Duplicate))

	if !opts.wait {
		_, err := fmt.Fprintf(out, "%s %s\n", ack.JobID, ack.Status)
		return err
	}

	reportURL := base + "/games/" + url.PathEscape(ack.JobID)
	ticker := time.NewTicker(opts.interval)
	defer ticker.Stop()
	for {
		var rep types.Report
		if err := doJSON(ctx, client, http.MethodGet, reportURL, nil, &rep); err != nil {
			return err
		}
		if rep.Status != types.StatusPending {
			if err := printReport(out, rep, opts.format); err != nil {
				return err
			}
			if rep.Status == types.StatusFailed {
				return fmt.Errorf("%w: %s", ErrJobFailed, rep.ErrorCode)
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for job %s: %w", ack.JobID, ctx.Err())
		case <-ticker.C:
		}
	}
}

func doJSON(ctx context.Context, client *http.Client, method, target string, body []byte, into any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRequest, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRequest, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read body: %w", ErrRequest, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		var e errorResponse
		if json.Unmarshal(data, &e) == nil && e.Code != "" {
			return fmt.Errorf("%w: %s %s: %d %s: %s", ErrRequest, method, target, resp.StatusCode, e.Code, e.Message)
		}
		return fmt.Errorf("%w: %s %s: %d", ErrRequest, method, target, resp.StatusCode)
	}
	if err := json.Unmarshal(data, into); err != nil {
		return fmt.Errorf("%w: decode response: %w", ErrRequest, err)
	}
	return nil
}
