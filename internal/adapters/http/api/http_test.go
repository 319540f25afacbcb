package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/shapley/internal/adapters/http/api"
	"github.com/okian/shapley/internal/app"
	"github.com/okian/shapley/internal/domain/game"
	"github.com/okian/shapley/internal/domain/types"
	"github.com/okian/shapley/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
}

const referenceBody = `{
  "id": "ref",
  "players": ["A", "B", "C"],
  "coalitions": {"": 0, "A": 10, "B": 20, "C": 30, "A,B": 40, "A,C": 50, "B,C": 60, "A,B,C": 100}
}`

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func do(mux http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decode[T any](w *httptest.ResponseRecorder) T {
	var v T
	_ = json.Unmarshal(w.Body.Bytes(), &v)
	return v
}

func newMux(deps api.Dependencies, stats api.StatsProvider) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, stats).Register(context.Background(), mux)
	return mux
}

func TestServer_Routes(t *testing.T) {
	Convey("Given an API server backed by a running service", t, func() {
		svc := app.New(app.WithWorkerCount(1), app.WithQueueSize(8), app.WithMaxPlayers(4))
		So(svc.Start(context.Background()), ShouldBeNil)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = svc.Stop(ctx)
		}()
		mux := newMux(svc, svc)

		Convey("When submitting a game", func() {
			w := do(mux, http.MethodPost, "/games", referenceBody)

			Convey("Then it should be accepted and later reported", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				ack := decode[map[string]any](w)
				So(ack["job_id"], ShouldEqual, "ref")
				So(ack["duplicate"], ShouldEqual, false)

				var rep types.Report
				deadline := time.Now().Add(5 * time.Second)
				for time.Now().Before(deadline) {
					g := do(mux, http.MethodGet, "/games/ref", "")
					So(g.Code, ShouldEqual, http.StatusOK)
					rep = decode[types.Report](g)
					if rep.Status != types.StatusPending {
						break
					}
					time.Sleep(5 * time.Millisecond)
				}
				So(rep.Status, ShouldEqual, types.StatusCompleted)
				So(rep.Entries[0].Player, ShouldEqual, "C")
				So(rep.Entries[0].Value, ShouldAlmostEqual, 260.0/6, 1e-9)
			})

			Convey("Then submitting it again should report a duplicate", func() {
				again := do(mux, http.MethodPost, "/games", referenceBody)
				So(again.Code, ShouldEqual, http.StatusOK)
				So(decode[map[string]any](again)["duplicate"], ShouldEqual, true)
			})
		})

		Convey("When computing synchronously", func() {
			w := do(mux, http.MethodPost, "/shapley", referenceBody)

			Convey("Then the report should be returned directly", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				rep := decode[types.Report](w)
				So(rep.Status, ShouldEqual, types.StatusCompleted)
				So(rep.Total, ShouldAlmostEqual, 100, 1e-9)
				So(rep.Evaluations, ShouldEqual, 36)
			})
		})

		Convey("When the input is rejected", func() {
			cases := []struct {
				path, body string
				status     int
				code       string
			}{
				{"/shapley", `{"players": []}`, http.StatusBadRequest, app.CodeEmptyInput},
				{"/shapley", `{"players": ["A", "A"], "default": 0}`, http.StatusBadRequest, app.CodeDuplicatePlayers},
				{"/shapley", `{"players": ["A", "B"], "coalitions": {"A": 1}}`, http.StatusUnprocessableEntity, app.CodeFunctionFailure},
				{"/shapley", `{"kind": "auction", "players": ["A"]}`, http.StatusBadRequest, app.CodeInvalidGame},
				{"/games", `{"kind": "additive", "players": ["A", "B", "C", "D", "E"]}`, http.StatusBadRequest, app.CodeTooManyPlayers},
				{"/games", `{"players": `, http.StatusBadRequest, "bad_request"},
				{"/games", `{"players": ["A"], "colour": "red"}`, http.StatusBadRequest, "bad_request"},
				{"/shapley", `{"players": ["A"]} {}`, http.StatusBadRequest, "bad_request"},
			}
			for _, tc := range cases {
				w := do(mux, http.MethodPost, tc.path, tc.body)
				So(w.Code, ShouldEqual, tc.status)
				So(decode[errorBody](w).Code, ShouldEqual, tc.code)
			}
		})

		Convey("When reading an unknown job", func() {
			w := do(mux, http.MethodGet, "/games/unknown", "")

			Convey("Then it should be not found", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(decode[errorBody](w).Code, ShouldEqual, app.CodeNotFound)
			})
		})

		Convey("When reading stats", func() {
			w := do(mux, http.MethodGet, "/stats", "")

			Convey("Then the service statistics should be returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				stats := decode[map[string]any](w)
				So(stats["started"], ShouldEqual, true)
				So(stats["maxPlayers"], ShouldEqual, 4.0)
			})
		})

		Convey("When scraping health", func() {
			do(mux, http.MethodGet, "/stats", "")
			w := do(mux, http.MethodGet, "/healthz", "")

			Convey("Then Prometheus metrics should be exposed", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, "shapley_service_http_requests_total")
			})
		})

		Convey("When using the wrong method", func() {
			w := do(mux, http.MethodGet, "/shapley", "")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

type failingDeps struct {
	err error
}

func (f failingDeps) Submit(context.Context, *game.Definition) (string, bool, error) {
	return "", false, f.err
}

func (f failingDeps) Report(context.Context, string) (api.Report, error) {
	return api.Report{}, f.err
}

func (f failingDeps) Compute(context.Context, *game.Definition) (api.Report, error) {
	return api.Report{}, f.err
}

type staticStats map[string]interface{}

func (s staticStats) GetStats() map[string]interface{} { return s }

func TestServer_ServiceErrors(t *testing.T) {
	Convey("Given a service that fails", t, func() {
		cases := []struct {
			err    error
			status int
			code   string
		}{
			{app.ErrBackpressure, http.StatusTooManyRequests, app.CodeBackpressure},
			{app.ErrNotStarted, http.StatusServiceUnavailable, app.CodeUnavailable},
			{errors.New("boom"), http.StatusInternalServerError, app.CodeInternal},
		}
		for _, tc := range cases {
			mux := newMux(failingDeps{err: tc.err}, staticStats{})
			w := do(mux, http.MethodPost, "/games", `{"players": ["A"]}`)

			So(w.Code, ShouldEqual, tc.status)
			body := decode[errorBody](w)
			So(body.Code, ShouldEqual, tc.code)
			So(body.Message, ShouldContainSubstring, "api.submit_game")
		}
	})
}

func TestOpError(t *testing.T) {
	Convey("Given wrapped API errors", t, func() {
		cause := errors.New("eof")
		err := api.WrapKind("api.op", api.ErrBadRequest, cause)

		So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
		So(errors.Is(err, cause), ShouldBeTrue)
		So(err.Error(), ShouldEqual, "api.op: bad request: eof")
		So(api.NewKind("api.op", api.ErrNotFound).Error(), ShouldEqual, "api.op: not found")
	})
}
