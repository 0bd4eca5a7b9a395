package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/PatchLore/midnight-typer/internal/shared/config"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/webhook"
)

// StripeGateway starts Checkout sessions and decodes webhook events.
type StripeGateway struct {
	cfg    config.PaymentConfig
	logger *slog.Logger
}

func NewStripeGateway(cfg config.PaymentConfig, logger *slog.Logger) *StripeGateway {
	logger.Debug("Initializing Stripe gateway", "price_id", cfg.PriceID)

	stripe.Key = cfg.SecretKey

	return &StripeGateway{
		cfg:    cfg,
		logger: logger,
	}
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*Session, error) {
	logger := g.logger.With(
		"component", "stripe_gateway",
		"operation", "create_checkout_session",
		"star_id", req.StarID,
		"user_id", req.UserID,
	)
	logger.Info("Creating checkout session")

	params := &stripe.CheckoutSessionParams{
		Params: stripe.Params{Context: ctx},
		Mode:   stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(g.cfg.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:        stripe.String(g.cfg.SuccessURL),
		CancelURL:         stripe.String(g.cfg.CancelURL),
		ClientReferenceID: stripe.String(req.UserID),
	}
	params.AddMetadata("star_claim", "true")
	params.AddMetadata("star_id", req.StarID)
	params.AddMetadata("user_id", req.UserID)
	params.AddMetadata("star_name", req.StarName)

	s, err := session.New(params)
	if err != nil {
		logger.Error("Failed to create checkout session", "error", err)
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	logger.Info("Checkout session created", "session_id", s.ID)
	return &Session{ID: s.ID, URL: s.URL}, nil
}

// ParseEvent decodes a webhook payload into a completed claim payment.
// It returns (nil, nil) for events that are not completed claim checkouts.
// The signature is verified whenever a webhook secret is configured.
func (g *StripeGateway) ParseEvent(payload []byte, signature string) (*CompletedPayment, error) {
	logger := g.logger.With("component", "stripe_gateway", "operation", "parse_event")

	var event stripe.Event
	if g.cfg.WebhookSecret != "" {
		verified, err := webhook.ConstructEvent(payload, signature, g.cfg.WebhookSecret)
		if err != nil {
			logger.Warn("Webhook signature verification failed", "error", err)
			return nil, fmt.Errorf("webhook signature verification failed: %w", err)
		}
		event = verified
	} else {
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, fmt.Errorf("failed to parse webhook payload: %w", err)
		}
	}

	if event.Type != stripe.EventTypeCheckoutSessionCompleted {
		logger.Debug("Ignoring webhook event", "event_type", event.Type)
		return nil, nil
	}

	var cs stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
		return nil, fmt.Errorf("failed to parse checkout session: %w", err)
	}

	if cs.Metadata["star_claim"] != "true" {
		logger.Debug("Ignoring non-claim checkout session", "session_id", cs.ID)
		return nil, nil
	}

	completed := &CompletedPayment{
		SessionID: cs.ID,
		StarID:    cs.Metadata["star_id"],
		UserID:    cs.Metadata["user_id"],
		StarName:  cs.Metadata["star_name"],
	}
	if cs.CustomerDetails != nil {
		completed.PayerEmail = cs.CustomerDetails.Email
		completed.PayerName = cs.CustomerDetails.Name
	}

	logger.Info("Claim payment completed",
		"session_id", completed.SessionID,
		"star_id", completed.StarID,
		"user_id", completed.UserID,
	)
	return completed, nil
}

var _ Gateway = (*StripeGateway)(nil)
