package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/PatchLore/midnight-typer/internal/galaxy"
	"github.com/PatchLore/midnight-typer/internal/shared/errors"
	"github.com/PatchLore/midnight-typer/internal/shared/response"
	"github.com/PatchLore/midnight-typer/internal/star"
)

type StarsHandler struct {
	stars  *star.Service
	galaxy *galaxy.Service
}

func NewStarsHandler(stars *star.Service, galaxyService *galaxy.Service) *StarsHandler {
	return &StarsHandler{stars: stars, galaxy: galaxyService}
}

type createSessionRequest struct {
	UserID  string       `json:"userId"`
	Session star.Session `json:"session"`
}

type createSessionResponse struct {
	Star   *star.Record       `json:"star"`
	Galaxy *galaxy.UserGalaxy `json:"galaxy"`
}

// CreateSession turns a finished typing session into an unclaimed star and
// credits the typed words toward the user's claim slots.
func (h *StarsHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "create_session")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, logger, errors.WrapValidation("invalid request body", err))
		return
	}

	record, err := h.stars.CreateFromSession(ctx, req.UserID, req.Session)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	userGalaxy, err := h.galaxy.RecordWordsTyped(ctx, req.UserID, req.Session.WordCount)
	if err != nil {
		// The star exists either way; report the credit failure.
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusCreated, createSessionResponse{
		Star:   record,
		Galaxy: userGalaxy,
	})
}

// ListByUser returns the user's stars, newest first.
func (h *StarsHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "list_user_stars")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	userID := r.PathValue("id")
	if userID == "" {
		response.Error(w, r, logger, errors.Validation("user ID is required"))
		return
	}

	records, err := h.stars.ListByUser(ctx, userID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	if records == nil {
		records = []star.Record{}
	}

	response.Success(w, http.StatusOK, records)
}
