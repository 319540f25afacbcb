// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/okian/shapley/internal/app"
	"github.com/okian/shapley/internal/domain/game"
	"github.com/okian/shapley/internal/domain/types"
)

// maxBodyBytes bounds request bodies carrying a game.
const maxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	GameDependencies
	ComputeDependencies
}

// Report mirrors the read shape returned for jobs.
type Report = types.Report

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	gamesHandler   *GamesHandler
	computeHandler *ComputeHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(statsProvider),
		gamesHandler:   NewGamesHandler(deps),
		computeHandler: NewComputeHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("POST /games", MetricsMiddleware(s.gamesHandler.HandleSubmit, "games"))
	mux.HandleFunc("GET /games/{id}", MetricsMiddleware(s.gamesHandler.HandleGetReport, "games_report"))
	mux.HandleFunc("POST /shapley", MetricsMiddleware(s.computeHandler.HandleCompute, "shapley"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError picks the status for an error returned by the service.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	code := app.ErrorCode(err)
	writeError(w, statusFor(code), code, WrapKind(op, kindFor(code), err))
}

func statusFor(code string) int {
	switch code {
	case app.CodeEmptyInput, app.CodeDuplicatePlayers, app.CodeInvalidGame, app.CodeTooManyPlayers:
		return http.StatusBadRequest
	case app.CodeFunctionFailure:
		return http.StatusUnprocessableEntity
	case app.CodeBackpressure:
		return http.StatusTooManyRequests
	case app.CodeNotFound:
		return http.StatusNotFound
	case app.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func kindFor(code string) error {
	switch statusFor(code) {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusNotFound:
		return ErrNotFound
	default:
		return errors.New(code)
	}
}

// decodeGame reads a game definition from the request body.
func decodeGame(w http.ResponseWriter, r *http.Request) (*game.Definition, error) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	var def game.Definition
	if err := dec.Decode(&def); err != nil {
		return nil, fmt.Errorf("decode game: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("decode game: trailing data after JSON object")
	}
	return &def, nil
}
