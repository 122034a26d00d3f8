package postgres

import (
	"context"
	"database/sql"
	"errors"

	"techcafe/internal/domain"
)

type paymentRepository struct {
	DB *sql.DB
}

func NewPaymentRepository(db *sql.DB) domain.PaymentRepository {
	return &paymentRepository{DB: db}
}

func (r *paymentRepository) Create(ctx context.Context, p *domain.PaymentRecord) error {
	query := `
		INSERT INTO payments (registration_id, tracking_code, amount, status, provider, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query,
		p.RegistrationID, p.TrackingCode, p.Amount, string(p.Status), p.Provider, p.CreatedAt, p.UpdatedAt,
	).Scan(&p.ID)
}

const paymentColumns = `id, registration_id, tracking_code, amount, status, provider, created_at, updated_at`

func (r *paymentRepository) GetByID(ctx context.Context, id string) (*domain.PaymentRecord, error) {
	return r.getOne(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id)
}

func (r *paymentRepository) GetByTrackingCode(ctx context.Context, trackingCode string) (*domain.PaymentRecord, error) {
	return r.getOne(ctx, `SELECT `+paymentColumns+` FROM payments WHERE tracking_code = $1`, trackingCode)
}

func (r *paymentRepository) getOne(ctx context.Context, query string, arg string) (*domain.PaymentRecord, error) {
	p := &domain.PaymentRecord{}
	var status string
	err := r.DB.QueryRowContext(ctx, query, arg).Scan(
		&p.ID, &p.RegistrationID, &p.TrackingCode, &p.Amount, &status, &p.Provider, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	p.Status = domain.PaymentStatus(status)
	return p, nil
}

func (r *paymentRepository) UpdateStatus(ctx context.Context, id string, status domain.PaymentStatus) error {
	result, err := r.DB.ExecContext(ctx, `UPDATE payments SET status = $1, updated_at = NOW() WHERE id = $2`, string(status), id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}
