package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/PatchLore/midnight-typer/internal/certificate"
	"github.com/PatchLore/midnight-typer/internal/shared/errors"
	"github.com/PatchLore/midnight-typer/internal/shared/response"
)

type CertificateHandler struct {
	service *certificate.Service
}

func NewCertificateHandler(service *certificate.Service) *CertificateHandler {
	return &CertificateHandler{service: service}
}

type generateRequest struct {
	UserEmail string `json:"userEmail"`
}

type generateResponse struct {
	URL string `json:"url"`
}

// Generate (re)issues the certificate for a claimed star. Used when the
// original asynchronous issuance failed and the URL is still empty.
func (h *CertificateHandler) Generate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "generate_certificate")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	starID := r.PathValue("id")
	if starID == "" {
		response.Error(w, r, logger, errors.Validation("star ID is required"))
		return
	}

	var req generateRequest
	if r.Body != nil {
		// The email is optional; an empty body just skips the notification.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	url, err := h.service.Issue(ctx, starID, req.UserEmail)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, generateResponse{URL: url})
}
