package postgres

import (
	"context"
	"database/sql"
	"errors"

	"techcafe/internal/domain"
)

const discountColumns = `id, code, gathering_id, discount_percentage, status, created_at, updated_at`

type discountRepository struct {
	DB *sql.DB
}

func NewDiscountRepository(db *sql.DB) domain.DiscountRepository {
	return &discountRepository{DB: db}
}

func scanDiscount(row rowScanner) (*domain.Discount, error) {
	d := &domain.Discount{}
	if err := row.Scan(&d.ID, &d.Code, &d.GatheringID, &d.Percentage, &d.Active, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	return d, nil
}

func (r *discountRepository) Create(ctx context.Context, d *domain.Discount) error {
	query := `
		INSERT INTO discounts (code, gathering_id, discount_percentage, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err := r.DB.QueryRowContext(ctx, query, d.Code, d.GatheringID, d.Percentage, d.Active, d.CreatedAt, d.UpdatedAt).Scan(&d.ID)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return domain.ErrDuplicateCode
		}
		if foreignKeyViolation(err) {
			return domain.ErrNotFound
		}
		return err
	}
	return nil
}

func (r *discountRepository) GetByID(ctx context.Context, id string) (*domain.Discount, error) {
	d, err := scanDiscount(r.DB.QueryRowContext(ctx, `SELECT `+discountColumns+` FROM discounts WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || invalidTextRepresentation(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return d, nil
}

func (r *discountRepository) GetByCode(ctx context.Context, code string) (*domain.Discount, error) {
	d, err := scanDiscount(r.DB.QueryRowContext(ctx, `SELECT `+discountColumns+` FROM discounts WHERE code = $1`, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return d, nil
}

func (r *discountRepository) ListByGatheringID(ctx context.Context, gatheringID string) ([]*domain.Discount, error) {
	query := `SELECT ` + discountColumns + ` FROM discounts WHERE gathering_id = $1 ORDER BY created_at DESC`
	rows, err := r.DB.QueryContext(ctx, query, gatheringID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	discounts := make([]*domain.Discount, 0)
	for rows.Next() {
		d, err := scanDiscount(rows)
		if err != nil {
			return nil, err
		}
		discounts = append(discounts, d)
	}
	return discounts, rows.Err()
}

func (r *discountRepository) SetActive(ctx context.Context, id string, active bool) (*domain.Discount, error) {
	query := `UPDATE discounts SET status = $1, updated_at = NOW() WHERE id = $2 RETURNING ` + discountColumns
	d, err := scanDiscount(r.DB.QueryRowContext(ctx, query, active, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || invalidTextRepresentation(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return d, nil
}
