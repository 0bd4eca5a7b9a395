package impact

import (
	"context"
	"log/slog"

	"github.com/PatchLore/midnight-typer/internal/shared/errors"
)

// Store is the persistence surface the service needs. Implemented by
// Repository; tests substitute fakes.
type Store interface {
	Get(ctx context.Context) (*Counter, error)
	IncrementStarsClaimed(ctx context.Context) (*Counter, error)
	IncrementTreesPlanted(ctx context.Context) (*Counter, error)
}

type Service struct {
	repo   Store
	logger *slog.Logger
}

func NewService(repo Store, logger *slog.Logger) *Service {
	logger.Debug("Initializing impact service")

	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// Get returns the current counters, zeroed when no claim happened yet.
func (s *Service) Get(ctx context.Context) (*Counter, error) {
	counter, err := s.repo.Get(ctx)
	if err != nil {
		return nil, errors.WrapInternal("failed to fetch impact counter", err)
	}
	if counter == nil {
		return &Counter{}, nil
	}
	return counter, nil
}

// IncrementStarsClaimed records one more claimed star and returns the
// post-increment state the milestone predicate runs on.
func (s *Service) IncrementStarsClaimed(ctx context.Context) (*Counter, error) {
	counter, err := s.repo.IncrementStarsClaimed(ctx)
	if err != nil {
		return nil, errors.WrapInternal("failed to increment stars claimed", err)
	}
	return counter, nil
}

// IncrementTreesPlanted records one successfully planted tree.
func (s *Service) IncrementTreesPlanted(ctx context.Context) (*Counter, error) {
	counter, err := s.repo.IncrementTreesPlanted(ctx)
	if err != nil {
		return nil, errors.WrapInternal("failed to increment trees planted", err)
	}
	return counter, nil
}
