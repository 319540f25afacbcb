package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/okian/shapley/internal/domain/game"
)

// GameDependencies defines the asynchronous job operations.
type GameDependencies interface {
	// Submit queues a game and returns its job id; duplicate reports that the
	// id was already known.
	Submit(ctx context.Context, def *game.Definition) (jobID string, duplicate bool, err error)
	Report(ctx context.Context, jobID string) (Report, error)
}

// GamesHandler handles job submission and report lookups.
type GamesHandler struct {
	deps GameDependencies
}

// NewGamesHandler creates a new games handler.
func NewGamesHandler(deps GameDependencies) *GamesHandler {
	return &GamesHandler{deps: deps}
}

type submitResponse struct {
	JobID     string `json:"job_id"`
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// HandleSubmit handles POST /games requests.
func (h *GamesHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_game"
	def, err := decodeGame(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	jobID, duplicate, err := h.deps.Submit(r.Context(), def)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	if duplicate {
		writeJSON(w, http.StatusOK, submitResponse{JobID: jobID, Status: "duplicate", Duplicate: true})
		return
	}
	writeJSON(w, http.StatusAccepted, submitResponse{JobID: jobID, Status: "accepted"})
}

// HandleGetReport handles GET /games/{id} requests.
func (h *GamesHandler) HandleGetReport(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_report"
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	report, err := h.deps.Report(r.Context(), id)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
