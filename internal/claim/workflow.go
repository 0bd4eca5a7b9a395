// Package claim orchestrates the star claim lifecycle: slot checks,
// payment initiation, payment confirmation, impact counting, and the
// milestone side effects that follow a successful claim.
package claim

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/PatchLore/midnight-typer/internal/forest"
	"github.com/PatchLore/midnight-typer/internal/impact"
	"github.com/PatchLore/midnight-typer/internal/payment"
	"github.com/PatchLore/midnight-typer/internal/ratelimit"
	"github.com/PatchLore/midnight-typer/internal/shared/errors"
	"github.com/PatchLore/midnight-typer/internal/star"
)

// StarStore is the slice of star persistence the workflow needs.
type StarStore interface {
	GetStar(ctx context.Context, id string) (*star.Record, error)
	MarkClaimed(ctx context.Context, id, paymentReference string) (*star.Record, bool, error)
}

// SlotLedger consumes and refunds claim slots.
type SlotLedger interface {
	ConsumeSlot(ctx context.Context, userID string) error
	RefundSlot(ctx context.Context, userID string) error
}

// ImpactCounter advances the global claim and tree counters.
type ImpactCounter interface {
	IncrementStarsClaimed(ctx context.Context) (*impact.Counter, error)
	IncrementTreesPlanted(ctx context.Context) (*impact.Counter, error)
}

// TreePlanter performs the real-world milestone side effect.
type TreePlanter interface {
	PlantTree(ctx context.Context) (*forest.PlantResult, error)
}

// EmailSender delivers the milestone celebration email.
type EmailSender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// CertificateIssuer generates the ownership certificate after a claim.
type CertificateIssuer interface {
	Issue(ctx context.Context, starID, recipientEmail string) (string, error)
}

// Config carries the workflow policies.
type Config struct {
	// SideEffectTimeout bounds every external collaborator call so a slow
	// partner can never hang a claim.
	SideEffectTimeout time.Duration
	// RefundSlotOnCancel controls whether a canceled claim returns its
	// consumed slot. The original behavior never refunds.
	RefundSlotOnCancel bool
}

type Workflow struct {
	stars    StarStore
	ledger   SlotLedger
	impact   ImpactCounter
	limiter  ratelimit.Limiter
	payments payment.Gateway
	trees    TreePlanter
	mail     EmailSender
	certs    CertificateIssuer
	cfg      Config
	logger   *slog.Logger
}

func NewWorkflow(
	stars StarStore,
	ledger SlotLedger,
	impactCounter ImpactCounter,
	limiter ratelimit.Limiter,
	payments payment.Gateway,
	trees TreePlanter,
	sender EmailSender,
	certs CertificateIssuer,
	cfg Config,
	logger *slog.Logger,
) *Workflow {
	logger.Debug("Initializing claim workflow",
		"side_effect_timeout", cfg.SideEffectTimeout,
		"refund_slot_on_cancel", cfg.RefundSlotOnCancel,
	)

	return &Workflow{
		stars:    stars,
		ledger:   ledger,
		impact:   impactCounter,
		limiter:  limiter,
		payments: payments,
		trees:    trees,
		mail:     sender,
		certs:    certs,
		cfg:      cfg,
		logger:   logger,
	}
}

// ConfirmResult reports what a payment confirmation did, including the
// milestone side effects that ran alongside it.
type ConfirmResult struct {
	Star                 *star.Record
	AlreadyClaimed       bool
	StarsClaimed         int64
	TreesPlanted         int64
	TreePlantedThisTime  bool
	TreeID               string
	CelebrationEmailSent bool
}

// InitiateClaim validates a claim request, consumes a slot, and starts a
// payment session. The star stays unclaimed until the payment confirms, so
// abandoned checkouts need no cleanup. The slot is consumed eagerly as the
// anti-double-claim guard.
func (w *Workflow) InitiateClaim(ctx context.Context, starID, userID string) (*payment.Session, error) {
	logger := w.logger.With(
		"component", "claim_workflow",
		"operation", "initiate_claim",
		"star_id", starID,
		"user_id", userID,
	)
	logger.Info("Initiating star claim")

	if starID == "" || userID == "" {
		return nil, errors.Validation("star id and user id are required")
	}

	allowed, err := w.limiter.Allow(ctx, userID)
	if err != nil {
		// The limiter is abuse mitigation, not correctness: admit on error.
		logger.Warn("Claim limiter unavailable, admitting request", "error", err)
		allowed = true
	}
	if !allowed {
		return nil, errors.RateLimited("too many claim attempts, please try again later")
	}

	record, err := w.stars.GetStar(ctx, starID)
	if err != nil {
		return nil, errors.WrapInternal("failed to fetch star", err)
	}
	if record == nil {
		return nil, errors.NotFoundf("star %s not found", starID)
	}

	if record.Status != star.StatusUnclaimed {
		return nil, errors.Conflictf("star %s has already been claimed", starID)
	}

	if record.UserID != userID {
		return nil, errors.Forbidden("you do not own this star")
	}

	if err := w.ledger.ConsumeSlot(ctx, userID); err != nil {
		return nil, err
	}

	session, err := w.payments.CreateCheckoutSession(ctx, payment.CheckoutRequest{
		StarID:   record.ID,
		UserID:   userID,
		StarName: record.Star.DisplayName(),
	})
	if err != nil {
		logger.Error("Failed to create payment session", "error", err)
		return nil, errors.WrapInternal("failed to create payment session", err)
	}

	logger.Info("Claim initiated", "session_id", session.ID)
	return session, nil
}

// ConfirmClaim finalizes a claim after the payment gateway reports success.
// It is idempotent under at-least-once event delivery: a duplicate
// confirmation for an already claimed star returns the existing state and
// touches no counters. The core transition and the claim counter always
// complete before any side effect runs, and side-effect failures are
// logged, never surfaced as claim failures.
func (w *Workflow) ConfirmClaim(ctx context.Context, p payment.CompletedPayment) (*ConfirmResult, error) {
	logger := w.logger.With(
		"component", "claim_workflow",
		"operation", "confirm_claim",
		"star_id", p.StarID,
		"user_id", p.UserID,
		"session_id", p.SessionID,
	)
	logger.Info("Confirming star claim")

	if p.StarID == "" {
		return nil, errors.Validation("payment event is missing the star id")
	}

	record, transitioned, err := w.stars.MarkClaimed(ctx, p.StarID, p.SessionID)
	if err != nil {
		return nil, errors.WrapInternal("failed to transition star", err)
	}
	if record == nil {
		return nil, errors.NotFoundf("star %s not found", p.StarID)
	}

	if !transitioned {
		logger.Info("Duplicate payment confirmation, claim already finalized")
		return &ConfirmResult{Star: record, AlreadyClaimed: true}, nil
	}

	counter, err := w.impact.IncrementStarsClaimed(ctx)
	if err != nil {
		// The claim itself is committed; losing the counter increment is an
		// operational incident, not a reason to report failure to Stripe.
		logger.Error("Failed to increment stars claimed", "error", err)
		return &ConfirmResult{Star: record}, nil
	}

	result := &ConfirmResult{
		Star:         record,
		StarsClaimed: counter.TotalStarsClaimed,
		TreesPlanted: counter.TotalTreesPlanted,
	}

	if counter.IsTreeMilestone() {
		w.runMilestone(ctx, p, record, result)
	}

	w.dispatchCertificate(record.ID, p.PayerEmail)

	logger.Info("Star claim processed",
		"stars_claimed", result.StarsClaimed,
		"trees_planted", result.TreesPlanted,
		"tree_planted_this_time", result.TreePlantedThisTime,
		"celebration_email_sent", result.CelebrationEmailSent,
	)
	return result, nil
}

// runMilestone plants a tree and, on success, bumps the tree counter and
// sends the celebration email. Every step is best effort.
func (w *Workflow) runMilestone(ctx context.Context, p payment.CompletedPayment, record *star.Record, result *ConfirmResult) {
	logger := w.logger.With(
		"component", "claim_workflow",
		"operation", "tree_milestone",
		"star_id", record.ID,
		"stars_claimed", result.StarsClaimed,
	)
	logger.Info("Tree milestone reached")

	plantCtx, cancel := context.WithTimeout(ctx, w.cfg.SideEffectTimeout)
	defer cancel()

	planted, err := w.trees.PlantTree(plantCtx)
	if err != nil {
		logger.Error("Tree planting failed", "error", err)
		return
	}
	if !planted.Success {
		logger.Error("Tree planting rejected", "message", planted.Message)
		return
	}

	result.TreePlantedThisTime = true
	result.TreeID = planted.TreeID

	counter, err := w.impact.IncrementTreesPlanted(ctx)
	if err != nil {
		logger.Error("Failed to increment trees planted", "error", err, "tree_id", planted.TreeID)
		return
	}
	result.TreesPlanted = counter.TotalTreesPlanted

	if p.PayerEmail == "" {
		logger.Debug("No payer email on payment event, skipping celebration email")
		return
	}

	mailCtx, cancelMail := context.WithTimeout(ctx, w.cfg.SideEffectTimeout)
	defer cancelMail()

	subject := "A tree was planted for your constellation"
	body := celebrationEmailHTML(p.PayerName, record.Star.DisplayName(), counter.TotalTreesPlanted)
	if err := w.mail.Send(mailCtx, p.PayerEmail, subject, body); err != nil {
		logger.Warn("Celebration email failed", "error", err, "to", p.PayerEmail)
		return
	}
	result.CelebrationEmailSent = true
}

// dispatchCertificate kicks off certificate generation without blocking the
// confirmation. The certificate URL lands on the record whenever the work
// finishes; a failed attempt leaves it empty for a later retry.
func (w *Workflow) dispatchCertificate(starID, recipientEmail string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), w.cfg.SideEffectTimeout)
		defer cancel()

		if _, err := w.certs.Issue(ctx, starID, recipientEmail); err != nil {
			w.logger.Error("Certificate generation failed",
				"component", "claim_workflow",
				"star_id", starID,
				"error", err,
			)
		}
	}()
}

// CancelClaim aborts a claim whose payment never confirmed. The star was
// never transitioned, so only the slot policy applies.
func (w *Workflow) CancelClaim(ctx context.Context, starID, userID string) error {
	logger := w.logger.With(
		"component", "claim_workflow",
		"operation", "cancel_claim",
		"star_id", starID,
		"user_id", userID,
	)
	logger.Info("Canceling star claim")

	if starID == "" || userID == "" {
		return errors.Validation("star id and user id are required")
	}

	record, err := w.stars.GetStar(ctx, starID)
	if err != nil {
		return errors.WrapInternal("failed to fetch star", err)
	}
	if record == nil {
		return errors.NotFoundf("star %s not found", starID)
	}

	if record.UserID != userID {
		return errors.Forbidden("you do not own this star")
	}

	if record.Status != star.StatusUnclaimed {
		return errors.Conflictf("star %s is already claimed, cancellation is not possible", starID)
	}

	if w.cfg.RefundSlotOnCancel {
		if err := w.ledger.RefundSlot(ctx, userID); err != nil {
			return err
		}
		logger.Info("Consumed slot refunded")
	}

	return nil
}

func celebrationEmailHTML(payerName, starName string, treesPlanted int64) string {
	name := payerName
	if name == "" {
		name = "Star Guardian"
	}

	return fmt.Sprintf(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #2e7d32; text-align: center;">A tree was planted!</h2>
  <p>Dear %s,</p>
  <p>Your claim of <strong>%s</strong> completed a milestone: a real tree has
  been planted on Earth in honor of this constellation.</p>
  <p style="text-align: center; font-size: 18px;"><strong>%d</strong> trees planted so far.</p>
  <p style="font-size: 14px; color: #888;">Keep typing to grow the forest.</p>
</div>`, name, starName, treesPlanted)
}
