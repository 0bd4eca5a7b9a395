package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/PatchLore/midnight-typer/internal/claim"
	"github.com/PatchLore/midnight-typer/internal/shared/errors"
	"github.com/PatchLore/midnight-typer/internal/shared/response"
)

type ClaimHandler struct {
	workflow *claim.Workflow
}

func NewClaimHandler(workflow *claim.Workflow) *ClaimHandler {
	return &ClaimHandler{workflow: workflow}
}

type claimRequest struct {
	StarID string `json:"starId"`
	UserID string `json:"userId"`
}

type claimResponse struct {
	CheckoutURL string `json:"checkoutUrl"`
	SessionID   string `json:"sessionId"`
}

func (h *ClaimHandler) Initiate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "claim_initiate")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	var req claimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, logger, errors.WrapValidation("invalid request body", err))
		return
	}

	session, err := h.workflow.InitiateClaim(ctx, req.StarID, req.UserID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, claimResponse{
		CheckoutURL: session.URL,
		SessionID:   session.ID,
	})
}

func (h *ClaimHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "claim_cancel")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	var req claimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, logger, errors.WrapValidation("invalid request body", err))
		return
	}

	if err := h.workflow.CancelClaim(ctx, req.StarID, req.UserID); err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, map[string]bool{"canceled": true})
}
