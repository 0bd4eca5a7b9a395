package star

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	logger := slog.With("component", "star_repository", "operation", "init")
	logger.Debug("Initializing star repository")
	return &Repository{db: db}
}

const starColumns = `id, user_id, star_data, status, created_at, claimed_at, payment_reference, certificate_url`

func (r *Repository) CreateStar(ctx context.Context, userID string, descriptor Descriptor) (*Record, error) {
	logger := slog.With(
		"component", "star_repository",
		"operation", "create_star",
		"user_id", userID,
		"star_id", descriptor.ID,
	)
	logger.Info("Creating star record")

	starData, err := json.Marshal(descriptor)
	if err != nil {
		logger.Error("Failed to marshal star data", "error", err)
		return nil, fmt.Errorf("failed to marshal star data: %w", err)
	}

	query := `
		INSERT INTO stars (id, user_id, star_data, status)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + starColumns

	row := r.db.QueryRowContext(ctx, query, uuid.NewString(), userID, starData, StatusUnclaimed)
	record, err := scanRecord(row)
	if err != nil {
		logger.Error("Failed to create star record", "error", err)
		return nil, fmt.Errorf("failed to create star record: %w", err)
	}

	logger.Info("Star record created", "record_id", record.ID)
	return record, nil
}

func (r *Repository) GetStar(ctx context.Context, id string) (*Record, error) {
	logger := slog.With("component", "star_repository", "operation", "get_star", "record_id", id)
	logger.Debug("Getting star record")

	query := `SELECT ` + starColumns + ` FROM stars WHERE id = $1`

	record, err := scanRecord(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			logger.Debug("Star record not found")
			return nil, nil
		}
		logger.Error("Database error getting star", "error", err)
		return nil, fmt.Errorf("database error: %w", err)
	}

	return record, nil
}

func (r *Repository) ListByUser(ctx context.Context, userID string) ([]Record, error) {
	logger := slog.With("component", "star_repository", "operation", "list_by_user", "user_id", userID)
	logger.Debug("Listing stars for user")

	query := `SELECT ` + starColumns + ` FROM stars WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		logger.Error("Database error listing stars", "error", err)
		return nil, fmt.Errorf("database error: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			logger.Error("Failed to scan star record", "error", err)
			return nil, fmt.Errorf("failed to scan star record: %w", err)
		}
		records = append(records, *record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}

	logger.Debug("Stars listed", "count", len(records))
	return records, nil
}

// MarkClaimed transitions an unclaimed star to claimed and stamps the
// payment reference. The status guard in the WHERE clause makes duplicate
// payment confirmations a no-op: when the star was already claimed the
// existing record is returned with transitioned=false and no fields change.
func (r *Repository) MarkClaimed(ctx context.Context, id, paymentReference string) (*Record, bool, error) {
	logger := slog.With(
		"component", "star_repository",
		"operation", "mark_claimed",
		"record_id", id,
		"payment_reference", paymentReference,
	)
	logger.Info("Marking star as claimed")

	query := `
		UPDATE stars
		SET status = $2, claimed_at = NOW(), payment_reference = $3
		WHERE id = $1 AND status = $4
		RETURNING ` + starColumns

	record, err := scanRecord(r.db.QueryRowContext(ctx, query, id, StatusClaimed, paymentReference, StatusUnclaimed))
	if err == nil {
		logger.Info("Star claimed")
		return record, true, nil
	}

	if err != sql.ErrNoRows {
		logger.Error("Database error claiming star", "error", err)
		return nil, false, fmt.Errorf("database error: %w", err)
	}

	// No transition happened: either the star does not exist or it was
	// already claimed. Return whatever is there so the caller can decide.
	existing, err := r.GetStar(ctx, id)
	if err != nil {
		return nil, false, err
	}

	if existing != nil {
		logger.Info("Star was already claimed, returning existing record", "status", existing.Status)
	}
	return existing, false, nil
}

// SetCertificateURL stamps the certificate location. The status guard keeps
// the invariant that only claimed or gifted stars carry a certificate.
func (r *Repository) SetCertificateURL(ctx context.Context, id, url string) error {
	logger := slog.With("component", "star_repository", "operation", "set_certificate_url", "record_id", id)
	logger.Debug("Setting certificate URL")

	query := `
		UPDATE stars
		SET certificate_url = $2
		WHERE id = $1 AND status IN ($3, $4)
	`

	result, err := r.db.ExecContext(ctx, query, id, url, StatusClaimed, StatusGifted)
	if err != nil {
		logger.Error("Database error setting certificate URL", "error", err)
		return fmt.Errorf("database error: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("database error: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("star %s is not claimed, refusing to attach certificate", id)
	}

	logger.Info("Certificate URL set")
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var record Record
	var starData []byte

	err := row.Scan(
		&record.ID,
		&record.UserID,
		&starData,
		&record.Status,
		&record.CreatedAt,
		&record.ClaimedAt,
		&record.PaymentReference,
		&record.CertificateURL,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(starData, &record.Star); err != nil {
		return nil, fmt.Errorf("failed to unmarshal star data: %w", err)
	}

	return &record, nil
}
