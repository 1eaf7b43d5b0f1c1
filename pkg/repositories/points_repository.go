package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/draftforge/draftforge-engine/pkg/apperrors"
	"github.com/draftforge/draftforge-engine/pkg/database"
)

// PointsRepository provides data access for the user points ledger.
type PointsRepository interface {
	GetBalance(ctx context.Context, userID uuid.UUID) (int, error)
	// DeductWithRecord atomically deducts amount from the user's balance and
	// writes a ledger record. Returns apperrors.ErrInsufficientPoints when
	// the balance does not cover the amount; nothing is written in that case.
	DeductWithRecord(ctx context.Context, userID uuid.UUID, amount int, description string, relatedID uuid.UUID) error
}

type pointsRepository struct {
	db *database.DB
}

// NewPointsRepository creates a new PointsRepository.
func NewPointsRepository(db *database.DB) PointsRepository {
	return &pointsRepository{db: db}
}

var _ PointsRepository = (*pointsRepository)(nil)

func (r *pointsRepository) GetBalance(ctx context.Context, userID uuid.UUID) (int, error) {
	var balance int
	err := r.db.QueryRow(ctx, `SELECT balance FROM user_points WHERE user_id = $1`, userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("points account %s: %w", userID, apperrors.ErrNotFound)
		}
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance, nil
}

func (r *pointsRepository) DeductWithRecord(ctx context.Context, userID uuid.UUID, amount int, description string, relatedID uuid.UUID) error {
	if amount <= 0 {
		return fmt.Errorf("deduction amount must be positive, got %d", amount)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE user_points SET balance = balance - $2, updated_at = now()
		WHERE user_id = $1 AND balance >= $2`, userID, amount)
	if err != nil {
		return fmt.Errorf("failed to deduct points: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %s needs %d points: %w", userID, amount, apperrors.ErrInsufficientPoints)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO points_records (id, user_id, amount, description, related_id)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.New(), userID, -amount, description, relatedID)
	if err != nil {
		return fmt.Errorf("failed to write points record: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit deduction: %w", err)
	}
	return nil
}
