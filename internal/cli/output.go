package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/okian/shapley/internal/domain/types"
)

// Output formats.
const (
	formatJSON  = "json"
	formatTable = "table"
)

func checkFormat(format string) error {
	switch format {
	case formatJSON, formatTable:
		return nil
	default:
		return fmt.Errorf("%w: %q (want json or table)", ErrUnknownFormat, format)
	}
}

func printReport(w io.Writer, rep types.Report, format string) error {
	if format == formatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}

	if rep.Status == types.StatusFailed {
		_, err := fmt.Fprintf(w, "job %s failed (%s): %s\n", rep.JobID, rep.ErrorCode, rep.Error)
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tPLAYER\tVALUE\tSHARE")
	for _, e := range rep.Entries {
		fmt.Fprintf(tw, "%d\t%s\t%.6f\t%.2f%%\n", e.Rank, e.Player, e.Value, e.Share*100)
	}
	fmt.Fprintf(tw, "\tTOTAL\t%.6f\t\n", rep.Total)
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d permutations, %d evaluations\n", rep.Permutations, rep.Evaluations)
	return err
}
