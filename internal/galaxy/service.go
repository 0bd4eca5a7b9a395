package galaxy

import (
	"context"
	"log/slog"

	"github.com/PatchLore/midnight-typer/internal/shared/errors"
)

// Store is the persistence surface the service needs. Implemented by
// Repository; tests substitute fakes.
type Store interface {
	GetByUser(ctx context.Context, userID string) (*UserGalaxy, error)
	CreditWords(ctx context.Context, userID string, words int) (*UserGalaxy, error)
	ConsumeSlot(ctx context.Context, userID string) (*UserGalaxy, error)
	RefundSlot(ctx context.Context, userID string) (*UserGalaxy, error)
}

type Service struct {
	repo   Store
	logger *slog.Logger
}

func NewService(repo Store, logger *slog.Logger) *Service {
	logger.Debug("Initializing galaxy service")

	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// RecordWordsTyped credits typed words to a user's ledger. The total only
// grows; negative deltas are rejected.
func (s *Service) RecordWordsTyped(ctx context.Context, userID string, words int) (*UserGalaxy, error) {
	if userID == "" {
		return nil, errors.Validation("user id is required")
	}
	if words < 0 {
		return nil, errors.Validation("words delta must not be negative")
	}

	galaxy, err := s.repo.CreditWords(ctx, userID, words)
	if err != nil {
		return nil, errors.WrapInternal("failed to credit typed words", err)
	}
	return galaxy, nil
}

// GetSlotStatus reports how many claim slots a user has free and, when
// none are free, how many more words unlock the next one.
func (s *Service) GetSlotStatus(ctx context.Context, userID string) (*SlotStatus, error) {
	if userID == "" {
		return nil, errors.Validation("user id is required")
	}

	galaxy, err := s.repo.GetByUser(ctx, userID)
	if err != nil {
		return nil, errors.WrapInternal("failed to fetch user galaxy", err)
	}

	if galaxy == nil {
		return &SlotStatus{Available: 0, Needed: WordsPerSlot}, nil
	}

	available := galaxy.SlotsUnlocked - galaxy.SlotsUsed
	if available < 0 {
		available = 0
	}

	needed := 0
	if available == 0 {
		needed = WordsPerSlot - int(galaxy.TotalWordsTyped%WordsPerSlot)
	}

	return &SlotStatus{Available: available, Needed: needed}, nil
}

// GetGalaxy returns the raw ledger for a user, nil-safe for new users.
func (s *Service) GetGalaxy(ctx context.Context, userID string) (*UserGalaxy, error) {
	if userID == "" {
		return nil, errors.Validation("user id is required")
	}

	galaxy, err := s.repo.GetByUser(ctx, userID)
	if err != nil {
		return nil, errors.WrapInternal("failed to fetch user galaxy", err)
	}
	if galaxy == nil {
		return &UserGalaxy{UserID: userID}, nil
	}
	return galaxy, nil
}

// ConsumeSlot atomically takes one free slot. The check and increment run
// as a single conditional update so two concurrent claims can never spend
// the same slot.
func (s *Service) ConsumeSlot(ctx context.Context, userID string) error {
	logger := s.logger.With("component", "galaxy_service", "operation", "consume_slot", "user_id", userID)

	if userID == "" {
		return errors.Validation("user id is required")
	}

	galaxy, err := s.repo.ConsumeSlot(ctx, userID)
	if err != nil {
		return errors.WrapInternal("failed to consume slot", err)
	}

	if galaxy == nil {
		status, err := s.GetSlotStatus(ctx, userID)
		if err != nil {
			return err
		}
		logger.Info("Slot consumption rejected, none available", "needed", status.Needed)
		return errors.RateLimitedf("no available slots, type %d more words to unlock one", status.Needed)
	}

	return nil
}

// RefundSlot gives a consumed slot back after a canceled claim.
func (s *Service) RefundSlot(ctx context.Context, userID string) error {
	if userID == "" {
		return errors.Validation("user id is required")
	}

	if _, err := s.repo.RefundSlot(ctx, userID); err != nil {
		return errors.WrapInternal("failed to refund slot", err)
	}
	return nil
}
