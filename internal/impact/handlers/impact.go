package handlers

import (
	"log/slog"
	"net/http"

	"github.com/PatchLore/midnight-typer/internal/impact"
	"github.com/PatchLore/midnight-typer/internal/shared/errors"
	"github.com/PatchLore/midnight-typer/internal/shared/response"
)

type ImpactHandler struct {
	service *impact.Service
}

func NewImpactHandler(service *impact.Service) *ImpactHandler {
	return &ImpactHandler{service: service}
}

type impactResponse struct {
	TotalStarsClaimed int64 `json:"total_stars_claimed"`
	TotalTreesPlanted int64 `json:"total_trees_planted"`
}

// Get returns the global impact counters, zeroed before the first claim.
func (h *ImpactHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "get_impact")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	counter, err := h.service.Get(ctx)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, impactResponse{
		TotalStarsClaimed: counter.TotalStarsClaimed,
		TotalTreesPlanted: counter.TotalTreesPlanted,
	})
}
