package api

import (
	"context"
	"net/http"

	"github.com/okian/shapley/internal/domain/game"
)

// ComputeDependencies defines the synchronous computation.
type ComputeDependencies interface {
	Compute(ctx context.Context, def *game.Definition) (Report, error)
}

// ComputeHandler computes a game within the request.
type ComputeHandler struct {
	deps ComputeDependencies
}

// NewComputeHandler creates a new compute handler.
func NewComputeHandler(deps ComputeDependencies) *ComputeHandler {
	return &ComputeHandler{deps: deps}
}

// HandleCompute handles POST /shapley requests. Cancelling the request
// stops the computation at its next coalition evaluation.
func (h *ComputeHandler) HandleCompute(w http.ResponseWriter, r *http.Request) {
	const op = "api.compute"
	def, err := decodeGame(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	report, err := h.deps.Compute(r.Context(), def)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
