package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"techcafe/internal/domain"
)

const gatheringSelect = `
	SELECT g.id, g.title, g.description, g.poster_url, g.address, g.price, g.link, g.date,
		g.max_seats, g.is_online, g.is_held, g.is_occupied, g.created_at, g.updated_at,
		(SELECT COUNT(*) FROM registrations r WHERE r.gathering_id = g.id AND (g.price = 0 OR r.is_paid)) AS filled_seats,
		ARRAY(SELECT p.user_id::text FROM gathering_presenters p WHERE p.gathering_id = g.id ORDER BY p.user_id) AS presenters
	FROM gatherings g
`

type gatheringRepository struct {
	DB *sql.DB
}

func NewGatheringRepository(db *sql.DB) domain.GatheringRepository {
	return &gatheringRepository{DB: db}
}

func scanGathering(row rowScanner) (*domain.Gathering, error) {
	g := &domain.Gathering{}
	var poster, address, link sql.NullString
	var presenters pq.StringArray
	err := row.Scan(&g.ID, &g.Title, &g.Description, &poster, &address, &g.Price, &link, &g.Date,
		&g.MaxSeats, &g.IsOnline, &g.IsHeld, &g.IsOccupied, &g.CreatedAt, &g.UpdatedAt,
		&g.FilledSeats, &presenters)
	if err != nil {
		return nil, err
	}
	g.PosterURL = poster.String
	g.Address = address.String
	g.Link = link.String
	g.Presenters = []string(presenters)
	if g.Presenters == nil {
		g.Presenters = []string{}
	}
	return g, nil
}

func (r *gatheringRepository) Create(ctx context.Context, g *domain.Gathering) error {
	query := `
		INSERT INTO gatherings (title, description, poster_url, address, price, link, date, max_seats, is_online, is_held, is_occupied, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query,
		g.Title, g.Description, nullString(g.PosterURL), nullString(g.Address), g.Price, nullString(g.Link),
		g.Date, g.MaxSeats, g.IsOnline, g.IsHeld, g.IsOccupied, g.CreatedAt, g.UpdatedAt,
	).Scan(&g.ID)
}

func (r *gatheringRepository) GetByID(ctx context.Context, id string) (*domain.Gathering, error) {
	g, err := scanGathering(r.DB.QueryRowContext(ctx, gatheringSelect+` WHERE g.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || invalidTextRepresentation(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return g, nil
}

func (r *gatheringRepository) List(ctx context.Context, params domain.GatheringListParams) ([]*domain.Gathering, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM gatherings g WHERE ($1::text = '' OR g.title ILIKE '%' || $1 || '%')`
	if err := r.DB.QueryRowContext(ctx, countQuery, params.Search).Scan(&total); err != nil {
		return nil, 0, err
	}

	order, ok := domain.GatheringOrderings[params.Ordering]
	if !ok {
		order = "g.date DESC"
	}
	query := fmt.Sprintf(`%s
		WHERE ($1::text = '' OR g.title ILIKE '%%' || $1 || '%%')
		ORDER BY %s, g.created_at DESC
		LIMIT $2 OFFSET $3
	`, gatheringSelect, order)
	rows, err := r.DB.QueryContext(ctx, query, params.Search, params.PageSize, params.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	list := make([]*domain.Gathering, 0)
	for rows.Next() {
		g, err := scanGathering(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, g)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// Save updates every column of g. Marking a gathering held prunes unpaid registrations
// (priced gatherings only) and deactivates its discounts in the same transaction.
func (r *gatheringRepository) Save(ctx context.Context, g *domain.Gathering) (*domain.GatheringUpdateResult, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE gatherings
		SET title = $1, description = $2, poster_url = $3, address = $4, price = $5, link = $6,
			date = $7, max_seats = $8, is_online = $9, is_held = $10, is_occupied = $11, updated_at = $12
		WHERE id = $13
	`
	result, err := tx.ExecContext(ctx, query,
		g.Title, g.Description, nullString(g.PosterURL), nullString(g.Address), g.Price, nullString(g.Link),
		g.Date, g.MaxSeats, g.IsOnline, g.IsHeld, g.IsOccupied, g.UpdatedAt, g.ID)
	if err != nil {
		return nil, err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, domain.ErrNotFound
	}

	res := &domain.GatheringUpdateResult{}
	if g.IsHeld {
		if !g.IsFree() {
			pruned, err := tx.ExecContext(ctx, `DELETE FROM registrations WHERE gathering_id = $1 AND is_paid = FALSE`, g.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to prune unpaid registrations: %w", err)
			}
			res.PrunedRegistrations, _ = pruned.RowsAffected()
		}
		deactivated, err := tx.ExecContext(ctx, `UPDATE discounts SET status = FALSE, updated_at = NOW() WHERE gathering_id = $1 AND status = TRUE`, g.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to deactivate discounts: %w", err)
		}
		res.DeactivatedDiscounts, _ = deactivated.RowsAffected()
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	saved, err := r.GetByID(ctx, g.ID)
	if err != nil {
		return nil, err
	}
	res.Gathering = saved
	return res, nil
}

func (r *gatheringRepository) Delete(ctx context.Context, id string) error {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM gatherings WHERE id = $1`, id)
	if err != nil {
		if invalidTextRepresentation(err) {
			return domain.ErrNotFound
		}
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SetPresenters replaces the presenter list of a gathering.
func (r *gatheringRepository) SetPresenters(ctx context.Context, id string, userIDs []string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM gathering_presenters WHERE gathering_id = $1`, id); err != nil {
		return err
	}
	if len(userIDs) > 0 {
		query := `
			INSERT INTO gathering_presenters (gathering_id, user_id)
			SELECT $1, unnest($2::uuid[])
			ON CONFLICT DO NOTHING
		`
		if _, err := tx.ExecContext(ctx, query, id, pq.Array(userIDs)); err != nil {
			if foreignKeyViolation(err) {
				return domain.ErrUserNotFound
			}
			return err
		}
	}
	return tx.Commit()
}
