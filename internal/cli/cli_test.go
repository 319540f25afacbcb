package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/shapley/internal/adapters/http/api"
	"github.com/okian/shapley/internal/app"
	"github.com/okian/shapley/internal/domain/types"
	"github.com/okian/shapley/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

const gloveGame = `
id: gloves
players: [L, R1, R2]
coalitions:
  "{}": 0
  L: 0
  R1: 0
  R2: 0
  L,R1: 1
  L,R2: 1
  R1,R2: 0
  L,R1,R2: 1
`

const failingGame = `
players: [A, B]
coalitions:
  A: 1
  A,B: 2
`

func writeGame(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write game: %v", err)
	}
	return path
}

func run(ctx context.Context, args ...string) (string, string, error) {
	var out, errOut bytes.Buffer
	root := NewRootCommand(&out, &errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	return out.String(), errOut.String(), err
}

func TestComputeCommand(t *testing.T) {
	Convey("Given a glove game file", t, func() {
		ctx := context.Background()
		path := writeGame(t, "gloves.yaml", gloveGame)

		Convey("When computing with JSON output", func() {
			out, _, err := run(ctx, "compute", "--file", path, "--output", "json")
			So(err, ShouldBeNil)

			var rep types.Report
			So(json.Unmarshal([]byte(out), &rep), ShouldBeNil)

			Convey("Then the left glove should receive two thirds", func() {
				So(rep.Status, ShouldEqual, types.StatusCompleted)
				So(rep.JobID, ShouldEqual, "gloves")
				So(rep.Entries, ShouldHaveLength, 3)
				So(rep.Entries[0].Player, ShouldEqual, "L")
				So(rep.Entries[0].Value, ShouldAlmostEqual, 2.0/3, 1e-9)
				So(rep.Total, ShouldAlmostEqual, 1, 1e-9)
				So(rep.Permutations, ShouldEqual, 6)
			})
		})

		Convey("When computing with table output", func() {
			out, _, err := run(ctx, "compute", "-f", path)
			So(err, ShouldBeNil)

			Convey("Then a ranked table should be printed", func() {
				So(out, ShouldContainSubstring, "RANK")
				So(out, ShouldContainSubstring, "TOTAL")
				So(out, ShouldContainSubstring, "66.67%")
				So(out, ShouldContainSubstring, "6 permutations")
			})
		})

		Convey("When the player cap is below the game size", func() {
			_, _, err := run(ctx, "compute", "-f", path, "--max-players", "2")

			Convey("Then the game should be refused", func() {
				So(err, ShouldNotBeNil)
				So(app.ErrorCode(err), ShouldEqual, app.CodeTooManyPlayers)
			})
		})

		Convey("When an unknown output format is requested", func() {
			_, _, err := run(ctx, "compute", "-f", path, "-o", "xml")

			Convey("Then an error should be returned", func() {
				So(errors.Is(err, ErrUnknownFormat), ShouldBeTrue)
			})
		})

		Convey("When the file flag is missing", func() {
			_, _, err := run(ctx, "compute")

			Convey("Then cobra should reject the call", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})

	Convey("Given a game with a missing coalition", t, func() {
		path := writeGame(t, "broken.yaml", failingGame)

		Convey("When computing it", func() {
			out, _, err := run(context.Background(), "compute", "-f", path)

			Convey("Then the failure should be reported", func() {
				So(err, ShouldNotBeNil)
				So(app.ErrorCode(err), ShouldEqual, app.CodeFunctionFailure)
				So(out, ShouldContainSubstring, "failed")
			})
		})
	})
}

func startServer(t *testing.T) *httptest.Server {
	t.Helper()
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		t.Fatalf("init logger: %v", err)
	}
	ctx := context.Background()
	svc := app.New(app.WithWorkerCount(2), app.WithQueueSize(8))
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("start service: %v", err)
	}
	mux := http.NewServeMux()
	api.NewServer(svc, svc).Register(ctx, mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		srv.Close()
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = svc.Stop(stopCtx)
	})
	return srv
}

func TestSubmitCommand(t *testing.T) {
	Convey("Given a running service", t, func() {
		srv := startServer(t)
		ctx := context.Background()

		Convey("When submitting without waiting", func() {
			path := writeGame(t, "gloves.yaml", gloveGame)
			out, _, err := run(ctx, "submit", "--url", srv.URL, "-f", path)

			Convey("Then the job id should be printed", func() {
				So(err, ShouldBeNil)
				So(out, ShouldEqual, "gloves accepted\n")
			})
		})

		Convey("When submitting and waiting for the report", func() {
			path := writeGame(t, "gloves.json", `{"id":"gloves-json","players":["L","R1","R2"],
				"coalitions":{"{}":0,"L":0,"R1":0,"R2":0,"L,R1":1,"L,R2":1,"R1,R2":0,"L,R1,R2":1}}`)
			out, _, err := run(ctx, "submit", "--url", srv.URL+"/", "-f", path,
				"--wait", "--interval", "10ms", "-o", "json")
			So(err, ShouldBeNil)

			var rep types.Report
			So(json.Unmarshal([]byte(out), &rep), ShouldBeNil)

			Convey("Then the completed report should be printed", func() {
				So(rep.JobID, ShouldEqual, "gloves-json")
				So(rep.Status, ShouldEqual, types.StatusCompleted)
				So(rep.Total, ShouldAlmostEqual, 1, 1e-9)
			})
		})

		Convey("When the submitted game fails", func() {
			path := writeGame(t, "broken.yaml", failingGame)
			out, _, err := run(ctx, "submit", "--url", srv.URL, "-f", path,
				"--wait", "--interval", "10ms")

			Convey("Then the job failure should be returned", func() {
				So(errors.Is(err, ErrJobFailed), ShouldBeTrue)
				So(out, ShouldContainSubstring, "characteristic_function_failure")
			})
		})

		Convey("When the service rejects the game", func() {
			path := writeGame(t, "empty.yaml", "players: []\n")
			_, _, err := run(ctx, "submit", "--url", srv.URL, "-f", path)

			Convey("Then the error code should be surfaced", func() {
				So(errors.Is(err, ErrRequest), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "empty_input")
			})
		})
	})
}
