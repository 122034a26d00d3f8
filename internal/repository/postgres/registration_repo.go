package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"techcafe/internal/domain"
)

const registrationColumns = `id, user_id, gathering_id, discount_id, payment_id, token, is_paid, check_in, created_at, updated_at`

type registrationRepository struct {
	DB *sql.DB
}

func NewRegistrationRepository(db *sql.DB) domain.RegistrationRepository {
	return &registrationRepository{DB: db}
}

func scanRegistration(row rowScanner) (*domain.Registration, error) {
	reg := &domain.Registration{}
	var discountID, paymentID sql.NullString
	err := row.Scan(&reg.ID, &reg.UserID, &reg.GatheringID, &discountID, &paymentID, &reg.Token,
		&reg.IsPaid, &reg.CheckIn, &reg.CreatedAt, &reg.UpdatedAt)
	if err != nil {
		return nil, err
	}
	reg.DiscountID = stringPtr(discountID)
	reg.PaymentID = stringPtr(paymentID)
	return reg, nil
}

// CreateWithinCapacity serializes concurrent bookings on the gathering row lock so the
// seat count read here cannot go stale before the insert commits.
func (r *registrationRepository) CreateWithinCapacity(ctx context.Context, reg *domain.Registration) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	var price int64
	var maxSeats int
	var held, occupied bool
	err = tx.QueryRowContext(ctx, `
		SELECT price, max_seats, is_held, is_occupied
		FROM gatherings
		WHERE id = $1
		FOR UPDATE
	`, reg.GatheringID).Scan(&price, &maxSeats, &held, &occupied)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || invalidTextRepresentation(err) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("failed to lock gathering: %w", err)
	}
	if held {
		return domain.ErrGatheringHeld
	}
	if occupied {
		return domain.ErrFullCapacity
	}

	var filled int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM registrations
		WHERE gathering_id = $1 AND ($2::bigint = 0 OR is_paid)
	`, reg.GatheringID, price).Scan(&filled)
	if err != nil {
		return fmt.Errorf("failed to count registrations: %w", err)
	}
	if filled >= maxSeats {
		return domain.ErrFullCapacity
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO registrations (user_id, gathering_id, discount_id, token, is_paid, check_in, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, reg.UserID, reg.GatheringID, nullStringPtr(reg.DiscountID), reg.Token, reg.IsPaid, reg.CheckIn, reg.CreatedAt, reg.UpdatedAt).Scan(&reg.ID)
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok && constraint == "registrations_user_gathering" {
			return domain.ErrAlreadyRegistered
		}
		return fmt.Errorf("failed to create registration: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *registrationRepository) getOne(ctx context.Context, where string, arg any) (*domain.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE ` + where
	reg, err := scanRegistration(r.DB.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || invalidTextRepresentation(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return reg, nil
}

func (r *registrationRepository) GetByID(ctx context.Context, id string) (*domain.Registration, error) {
	return r.getOne(ctx, `id = $1`, id)
}

func (r *registrationRepository) GetByToken(ctx context.Context, token string) (*domain.Registration, error) {
	return r.getOne(ctx, `token = $1`, token)
}

func (r *registrationRepository) GetByPaymentID(ctx context.Context, paymentID string) (*domain.Registration, error) {
	return r.getOne(ctx, `payment_id = $1`, paymentID)
}

func (r *registrationRepository) GetByUserAndGathering(ctx context.Context, userID, gatheringID string) (*domain.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE user_id = $1 AND gathering_id = $2`
	reg, err := scanRegistration(r.DB.QueryRowContext(ctx, query, userID, gatheringID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || invalidTextRepresentation(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return reg, nil
}

func (r *registrationRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.Registration, error) {
	query := `
		SELECT ` + registrationColumns + `
		FROM registrations
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var regs []*domain.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		regs = append(regs, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if regs == nil {
		regs = []*domain.Registration{}
	}
	return regs, nil
}

func (r *registrationRepository) Delete(ctx context.Context, id string) error {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM registrations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *registrationRepository) MarkPaid(ctx context.Context, id string) (bool, error) {
	result, err := r.DB.ExecContext(ctx, `UPDATE registrations SET is_paid = TRUE, updated_at = NOW() WHERE id = $1 AND is_paid = FALSE`, id)
	if err != nil {
		return false, err
	}
	rows, _ := result.RowsAffected()
	return rows == 1, nil
}

func (r *registrationRepository) CheckIn(ctx context.Context, id string) (bool, error) {
	result, err := r.DB.ExecContext(ctx, `UPDATE registrations SET check_in = TRUE, updated_at = NOW() WHERE id = $1 AND check_in = FALSE`, id)
	if err != nil {
		return false, err
	}
	rows, _ := result.RowsAffected()
	return rows == 1, nil
}

func (r *registrationRepository) AttachPayment(ctx context.Context, id, paymentID string) error {
	result, err := r.DB.ExecContext(ctx, `UPDATE registrations SET payment_id = $1, updated_at = NOW() WHERE id = $2`, paymentID, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}
