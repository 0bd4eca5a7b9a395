package certificate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/PatchLore/midnight-typer/internal/impact"
	"github.com/PatchLore/midnight-typer/internal/mail"
	"github.com/PatchLore/midnight-typer/internal/shared/errors"
	"github.com/PatchLore/midnight-typer/internal/star"
)

// Service renders, stores and delivers ownership certificates. Issuance is
// retryable: a star without a certificate URL can be issued again later.
type Service struct {
	stars  star.Store
	impact *impact.Service
	store  Store
	mail   mail.Sender
	logger *slog.Logger
}

func NewService(stars star.Store, impactService *impact.Service, store Store, sender mail.Sender, logger *slog.Logger) *Service {
	logger.Debug("Initializing certificate service")

	return &Service{
		stars:  stars,
		impact: impactService,
		store:  store,
		mail:   sender,
		logger: logger,
	}
}

// Issue generates the certificate for a claimed star, stamps its URL on the
// record, and emails the download link when a recipient is known. The
// recipient may be empty, in which case only the URL is stamped.
func (s *Service) Issue(ctx context.Context, starID, recipientEmail string) (string, error) {
	logger := s.logger.With(
		"component", "certificate_service",
		"operation", "issue",
		"star_id", starID,
	)
	logger.Info("Issuing certificate")

	record, err := s.stars.GetStar(ctx, starID)
	if err != nil {
		return "", errors.WrapInternal("failed to fetch star", err)
	}
	if record == nil {
		return "", errors.NotFoundf("star %s not found", starID)
	}

	if record.Status != star.StatusClaimed && record.Status != star.StatusGifted {
		return "", errors.Conflictf("star %s is not claimed, no certificate to issue", starID)
	}

	counter, err := s.impact.Get(ctx)
	if err != nil {
		return "", err
	}

	date := time.Now().Format("January 2, 2006")
	pdf, err := RenderPDF(record.Star, counter.TotalTreesPlanted, date)
	if err != nil {
		logger.Error("Failed to render certificate", "error", err)
		return "", errors.WrapExternal("failed to render certificate", err)
	}

	url, err := s.store.Put(ctx, fmt.Sprintf("certificate-%s.pdf", record.ID), pdf)
	if err != nil {
		logger.Error("Failed to store certificate", "error", err)
		return "", errors.WrapExternal("failed to store certificate", err)
	}

	if err := s.stars.SetCertificateURL(ctx, record.ID, url); err != nil {
		logger.Error("Failed to stamp certificate URL", "error", err)
		return "", errors.WrapInternal("failed to stamp certificate URL", err)
	}

	if recipientEmail != "" {
		subject := fmt.Sprintf("Your star %s is officially registered", record.Star.DisplayName())
		body := registrationEmailHTML(record.Star, url, counter.TotalTreesPlanted)
		if err := s.mail.Send(ctx, recipientEmail, subject, body); err != nil {
			// Email delivery is best effort; the certificate itself is done.
			logger.Warn("Certificate email failed", "error", err, "to", recipientEmail)
		}
	}

	logger.Info("Certificate issued", "url", url)
	return url, nil
}

func registrationEmailHTML(descriptor star.Descriptor, certificateURL string, treeCount int64) string {
	return fmt.Sprintf(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #ffd700; text-align: center;">Certificate of Stellar Recovery</h2>
  <p>Dear Star Guardian,</p>
  <p>Congratulations! Your star has been officially registered in the Cosmic Cartography Registry.</p>
  <div style="background: #1a1a1a; padding: 20px; border-radius: 8px; margin: 20px 0;">
    <h3 style="color: #ffd700; margin-top: 0;">Star Details:</h3>
    <p><strong>Name:</strong> %s</p>
    <p><strong>Coordinates:</strong> RA %s, Dec %s</p>
    <p><strong>Spectral Class:</strong> %s</p>
    <p><strong>Magnitude:</strong> %.2f</p>
  </div>
  <p>You can download your official certificate below:</p>
  <div style="text-align: center; margin: 30px 0;">
    <a href="%s" style="background: #ffd700; color: #000; padding: 15px 30px; text-decoration: none; border-radius: 5px; font-weight: bold;">Download Certificate</a>
  </div>
  <p style="font-size: 14px; color: #888;">
    This star is part of a constellation that has planted %d trees on Earth.
    Thank you for supporting our mission to connect the cosmos with our planet.
  </p>
</div>`,
		descriptor.DisplayName(),
		descriptor.RA,
		descriptor.Dec,
		descriptor.SpectralClass,
		descriptor.Magnitude,
		certificateURL,
		treeCount,
	)
}
