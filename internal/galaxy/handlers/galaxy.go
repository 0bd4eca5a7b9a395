package handlers

import (
	"log/slog"
	"net/http"

	"github.com/PatchLore/midnight-typer/internal/galaxy"
	"github.com/PatchLore/midnight-typer/internal/shared/errors"
	"github.com/PatchLore/midnight-typer/internal/shared/response"
)

type GalaxyHandler struct {
	service *galaxy.Service
}

func NewGalaxyHandler(service *galaxy.Service) *GalaxyHandler {
	return &GalaxyHandler{service: service}
}

type galaxyResponse struct {
	Galaxy *galaxy.UserGalaxy `json:"galaxy"`
	Slots  *galaxy.SlotStatus `json:"slots"`
}

// Get returns the user's slot ledger and claim availability.
func (h *GalaxyHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "get_user_galaxy")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	userID := r.PathValue("id")
	if userID == "" {
		response.Error(w, r, logger, errors.Validation("user ID is required"))
		return
	}

	userGalaxy, err := h.service.GetGalaxy(ctx, userID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	slots, err := h.service.GetSlotStatus(ctx, userID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, galaxyResponse{
		Galaxy: userGalaxy,
		Slots:  slots,
	})
}
