package handlers

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/PatchLore/midnight-typer/internal/claim"
	"github.com/PatchLore/midnight-typer/internal/payment"
	"github.com/PatchLore/midnight-typer/internal/shared/errors"
	"github.com/PatchLore/midnight-typer/internal/shared/response"
)

// maxWebhookBodyBytes caps payment event payloads.
const maxWebhookBodyBytes = 1 << 20

// EventParser decodes raw webhook payloads into completed claim payments.
type EventParser interface {
	ParseEvent(payload []byte, signature string) (*payment.CompletedPayment, error)
}

// WebhookHandler receives payment gateway events. Delivery is
// at-least-once, so processing must be idempotent, and the gateway expects
// a 200 acknowledgement whenever the event was received and understood.
type WebhookHandler struct {
	parser   EventParser
	workflow *claim.Workflow
}

func NewWebhookHandler(parser EventParser, workflow *claim.Workflow) *WebhookHandler {
	return &WebhookHandler{parser: parser, workflow: workflow}
}

type webhookResponse struct {
	Received bool           `json:"received"`
	Impact   *webhookImpact `json:"impact,omitempty"`
}

type webhookImpact struct {
	StarsClaimed        int64  `json:"starsClaimed"`
	TreesPlanted        int64  `json:"treesPlanted"`
	TreePlantedThisTime bool   `json:"treePlantedThisTime"`
	TreeID              string `json:"treeId,omitempty"`
}

func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "payment_webhook")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodyBytes))
	if err != nil {
		response.Error(w, r, logger, errors.WrapValidation("failed to read webhook body", err))
		return
	}

	completed, err := h.parser.ParseEvent(body, r.Header.Get("Stripe-Signature"))
	if err != nil {
		response.Error(w, r, logger, errors.WrapValidation("invalid webhook event", err))
		return
	}

	if completed == nil {
		// Not a claim checkout; acknowledge and move on.
		response.Success(w, http.StatusOK, webhookResponse{Received: true})
		return
	}

	result, err := h.workflow.ConfirmClaim(ctx, *completed)
	if err != nil {
		// The event was understood; a failed claim is logged and
		// acknowledged so the gateway redelivers rather than giving up.
		logger.Error("Failed to confirm claim from webhook",
			"error", err,
			"star_id", completed.StarID,
			"user_id", completed.UserID,
			"session_id", completed.SessionID,
		)
		response.Success(w, http.StatusOK, webhookResponse{Received: true})
		return
	}

	resp := webhookResponse{Received: true}
	if !result.AlreadyClaimed {
		resp.Impact = &webhookImpact{
			StarsClaimed:        result.StarsClaimed,
			TreesPlanted:        result.TreesPlanted,
			TreePlantedThisTime: result.TreePlantedThisTime,
			TreeID:              result.TreeID,
		}
	}

	response.Success(w, http.StatusOK, resp)
}
