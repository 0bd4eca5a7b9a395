package impact

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// maxIncrementRetries bounds the optimistic-concurrency retry loop.
const maxIncrementRetries = 5

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	logger := slog.With("component", "impact_repository", "operation", "init")
	logger.Debug("Initializing impact repository")
	return &Repository{db: db}
}

const counterColumns = `id, total_stars_claimed, total_trees_planted, last_tree_planted_at, version, updated_at`

func (r *Repository) Get(ctx context.Context) (*Counter, error) {
	logger := slog.With("component", "impact_repository", "operation", "get")
	logger.Debug("Getting impact counter")

	query := `SELECT ` + counterColumns + ` FROM impact_counter ORDER BY id DESC LIMIT 1`

	counter, err := scanCounter(r.db.QueryRowContext(ctx, query))
	if err != nil {
		if err == sql.ErrNoRows {
			logger.Debug("Impact counter not initialized yet")
			return nil, nil
		}
		logger.Error("Database error getting impact counter", "error", err)
		return nil, fmt.Errorf("database error: %w", err)
	}

	return counter, nil
}

// IncrementStarsClaimed adds one claimed star to the global counter. The
// read-modify-write is guarded by a version check and retried on conflict,
// so concurrent claims never lose an update. The row is created lazily on
// the first claim.
func (r *Repository) IncrementStarsClaimed(ctx context.Context) (*Counter, error) {
	return r.increment(ctx, "increment_stars_claimed", `
		UPDATE impact_counter
		SET total_stars_claimed = total_stars_claimed + 1,
			version = version + 1,
			updated_at = NOW()
		WHERE id = $1 AND version = $2
		RETURNING `+counterColumns)
}

// IncrementTreesPlanted adds one planted tree and stamps the planting time.
// Only called after the external planting call reported success.
func (r *Repository) IncrementTreesPlanted(ctx context.Context) (*Counter, error) {
	return r.increment(ctx, "increment_trees_planted", `
		UPDATE impact_counter
		SET total_trees_planted = total_trees_planted + 1,
			last_tree_planted_at = NOW(),
			version = version + 1,
			updated_at = NOW()
		WHERE id = $1 AND version = $2
		RETURNING `+counterColumns)
}

func (r *Repository) increment(ctx context.Context, operation, query string) (*Counter, error) {
	logger := slog.With("component", "impact_repository", "operation", operation)

	for attempt := 0; attempt < maxIncrementRetries; attempt++ {
		current, err := r.Get(ctx)
		if err != nil {
			return nil, err
		}

		if current == nil {
			counter, err := r.createInitial(ctx)
			if err != nil {
				logger.Warn("Failed to create initial counter, retrying", "error", err, "attempt", attempt)
				continue
			}
			if counter != nil {
				current = counter
			} else {
				// Another writer created the row first; reload and update it.
				continue
			}
		}

		counter, err := scanCounter(r.db.QueryRowContext(ctx, query, current.ID, current.Version))
		if err == sql.ErrNoRows {
			logger.Debug("Version conflict on impact counter, retrying", "attempt", attempt)
			continue
		}
		if err != nil {
			logger.Error("Database error incrementing impact counter", "error", err)
			return nil, fmt.Errorf("database error: %w", err)
		}

		logger.Info("Impact counter incremented",
			"total_stars_claimed", counter.TotalStarsClaimed,
			"total_trees_planted", counter.TotalTreesPlanted,
		)
		return counter, nil
	}

	logger.Error("Gave up incrementing impact counter after retries", "retries", maxIncrementRetries)
	return nil, fmt.Errorf("impact counter contention: gave up after %d retries", maxIncrementRetries)
}

// createInitial inserts the zeroed counter row. ON CONFLICT DO NOTHING
// makes the lazy initialization race-safe: exactly one writer wins, the
// rest reload and go through the versioned update path.
func (r *Repository) createInitial(ctx context.Context) (*Counter, error) {
	logger := slog.With("component", "impact_repository", "operation", "create_initial")
	logger.Info("Creating initial impact counter row")

	query := `
		INSERT INTO impact_counter (id, total_stars_claimed, total_trees_planted, last_tree_planted_at)
		VALUES (1, 0, 0, NULL)
		ON CONFLICT (id) DO NOTHING
		RETURNING ` + counterColumns

	counter, err := scanCounter(r.db.QueryRowContext(ctx, query))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	return counter, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCounter(row rowScanner) (*Counter, error) {
	var counter Counter
	err := row.Scan(
		&counter.ID,
		&counter.TotalStarsClaimed,
		&counter.TotalTreesPlanted,
		&counter.LastTreePlantedAt,
		&counter.Version,
		&counter.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &counter, nil
}
