package star

import (
	"context"
	"log/slog"

	"github.com/PatchLore/midnight-typer/internal/shared/errors"
)

// Store is the persistence surface the service needs. Implemented by
// Repository; tests substitute fakes.
type Store interface {
	CreateStar(ctx context.Context, userID string, descriptor Descriptor) (*Record, error)
	GetStar(ctx context.Context, id string) (*Record, error)
	ListByUser(ctx context.Context, userID string) ([]Record, error)
	MarkClaimed(ctx context.Context, id, paymentReference string) (*Record, bool, error)
	SetCertificateURL(ctx context.Context, id, url string) error
}

type Service struct {
	repo   Store
	logger *slog.Logger
}

func NewService(repo Store, logger *slog.Logger) *Service {
	logger.Debug("Initializing star service")

	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// CreateFromSession generates a star for a finished typing session and
// persists it as unclaimed.
func (s *Service) CreateFromSession(ctx context.Context, userID string, session Session) (*Record, error) {
	logger := s.logger.With("component", "star_service", "operation", "create_from_session", "user_id", userID, "session_id", session.ID)

	if userID == "" {
		return nil, errors.Validation("user id is required")
	}

	descriptor, err := Generate(session)
	if err != nil {
		return nil, err
	}

	record, err := s.repo.CreateStar(ctx, userID, *descriptor)
	if err != nil {
		logger.Error("Failed to persist generated star", "error", err)
		return nil, errors.WrapInternal("failed to save star", err)
	}

	logger.Info("Star generated from session",
		"record_id", record.ID,
		"spectral_class", descriptor.SpectralClass,
		"magnitude", descriptor.Magnitude,
	)
	return record, nil
}

func (s *Service) GetStar(ctx context.Context, id string) (*Record, error) {
	if id == "" {
		return nil, errors.Validation("star id is required")
	}

	record, err := s.repo.GetStar(ctx, id)
	if err != nil {
		return nil, errors.WrapInternal("failed to fetch star", err)
	}
	if record == nil {
		return nil, errors.NotFoundf("star %s not found", id)
	}
	return record, nil
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]Record, error) {
	if userID == "" {
		return nil, errors.Validation("user id is required")
	}

	records, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, errors.WrapInternal("failed to list stars", err)
	}
	return records, nil
}
