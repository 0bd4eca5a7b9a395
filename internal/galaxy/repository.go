package galaxy

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	logger := slog.With("component", "galaxy_repository", "operation", "init")
	logger.Debug("Initializing galaxy repository")
	return &Repository{db: db}
}

const galaxyColumns = `user_id, total_words_typed, slots_unlocked, slots_used, updated_at`

func (r *Repository) GetByUser(ctx context.Context, userID string) (*UserGalaxy, error) {
	logger := slog.With("component", "galaxy_repository", "operation", "get_by_user", "user_id", userID)
	logger.Debug("Getting user galaxy")

	query := `SELECT ` + galaxyColumns + ` FROM user_galaxy WHERE user_id = $1`

	var galaxy UserGalaxy
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&galaxy.UserID,
		&galaxy.TotalWordsTyped,
		&galaxy.SlotsUnlocked,
		&galaxy.SlotsUsed,
		&galaxy.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			logger.Debug("User galaxy not found")
			return nil, nil
		}
		logger.Error("Database error getting user galaxy", "error", err)
		return nil, fmt.Errorf("database error: %w", err)
	}

	return &galaxy, nil
}

// CreditWords adds typed words to the ledger and recomputes unlocked slots
// in the same statement, so concurrent sessions never lose a credit.
func (r *Repository) CreditWords(ctx context.Context, userID string, words int) (*UserGalaxy, error) {
	logger := slog.With(
		"component", "galaxy_repository",
		"operation", "credit_words",
		"user_id", userID,
		"words", words,
	)
	logger.Debug("Crediting typed words")

	query := `
		INSERT INTO user_galaxy (user_id, total_words_typed, slots_unlocked, slots_used)
		VALUES ($1, $2, $2 / ` + fmt.Sprint(WordsPerSlot) + `, 0)
		ON CONFLICT (user_id) DO UPDATE SET
			total_words_typed = user_galaxy.total_words_typed + EXCLUDED.total_words_typed,
			slots_unlocked = (user_galaxy.total_words_typed + EXCLUDED.total_words_typed) / ` + fmt.Sprint(WordsPerSlot) + `,
			updated_at = NOW()
		RETURNING ` + galaxyColumns

	var galaxy UserGalaxy
	err := r.db.QueryRowContext(ctx, query, userID, words).Scan(
		&galaxy.UserID,
		&galaxy.TotalWordsTyped,
		&galaxy.SlotsUnlocked,
		&galaxy.SlotsUsed,
		&galaxy.UpdatedAt,
	)
	if err != nil {
		logger.Error("Database error crediting words", "error", err)
		return nil, fmt.Errorf("database error: %w", err)
	}

	logger.Info("Words credited",
		"total_words_typed", galaxy.TotalWordsTyped,
		"slots_unlocked", galaxy.SlotsUnlocked,
	)
	return &galaxy, nil
}

// ConsumeSlot increments slots_used only while a slot is free. The guard in
// the WHERE clause is the whole point: two concurrent claims racing for the
// last slot resolve inside the database, and the loser gets zero rows back.
func (r *Repository) ConsumeSlot(ctx context.Context, userID string) (*UserGalaxy, error) {
	logger := slog.With("component", "galaxy_repository", "operation", "consume_slot", "user_id", userID)
	logger.Debug("Consuming claim slot")

	query := `
		UPDATE user_galaxy
		SET slots_used = slots_used + 1, updated_at = NOW()
		WHERE user_id = $1 AND slots_used < slots_unlocked
		RETURNING ` + galaxyColumns

	var galaxy UserGalaxy
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&galaxy.UserID,
		&galaxy.TotalWordsTyped,
		&galaxy.SlotsUnlocked,
		&galaxy.SlotsUsed,
		&galaxy.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			logger.Debug("No available slot to consume")
			return nil, nil
		}
		logger.Error("Database error consuming slot", "error", err)
		return nil, fmt.Errorf("database error: %w", err)
	}

	logger.Info("Slot consumed", "slots_used", galaxy.SlotsUsed, "slots_unlocked", galaxy.SlotsUnlocked)
	return &galaxy, nil
}

// RefundSlot returns a previously consumed slot, used when a canceled
// claim should give the permit back (policy-dependent).
func (r *Repository) RefundSlot(ctx context.Context, userID string) (*UserGalaxy, error) {
	logger := slog.With("component", "galaxy_repository", "operation", "refund_slot", "user_id", userID)
	logger.Debug("Refunding claim slot")

	query := `
		UPDATE user_galaxy
		SET slots_used = slots_used - 1, updated_at = NOW()
		WHERE user_id = $1 AND slots_used > 0
		RETURNING ` + galaxyColumns

	var galaxy UserGalaxy
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&galaxy.UserID,
		&galaxy.TotalWordsTyped,
		&galaxy.SlotsUnlocked,
		&galaxy.SlotsUsed,
		&galaxy.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			logger.Debug("No consumed slot to refund")
			return nil, nil
		}
		logger.Error("Database error refunding slot", "error", err)
		return nil, fmt.Errorf("database error: %w", err)
	}

	logger.Info("Slot refunded", "slots_used", galaxy.SlotsUsed)
	return &galaxy, nil
}
