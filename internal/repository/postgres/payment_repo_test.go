package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"techcafe/internal/domain"
)

func TestPaymentRepository_CreateAndLookup(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO payments`).
		WithArgs("r1", "cs_test_1", 500, "pending", "stripe", now, now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("p1"))
	mock.ExpectQuery(`SELECT .+ FROM payments WHERE tracking_code = \$1`).
		WithArgs("cs_test_1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "registration_id", "tracking_code", "amount", "status", "provider", "created_at", "updated_at"}).
			AddRow("p1", "r1", "cs_test_1", 500, "pending", "stripe", now, now))
	mock.ExpectQuery(`SELECT .+ FROM payments`).
		WithArgs("bogus").
		WillReturnError(sql.ErrNoRows)

	repo := NewPaymentRepository(db)
	rec := &domain.PaymentRecord{
		RegistrationID: "r1",
		TrackingCode:   "cs_test_1",
		Amount:         500,
		Status:         domain.PaymentPending,
		Provider:       "stripe",
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	require.NoError(t, repo.Create(ctx, rec))
	require.Equal(t, "p1", rec.ID)

	got, err := repo.GetByTrackingCode(ctx, "cs_test_1")
	require.NoError(t, err)
	require.Equal(t, domain.PaymentPending, got.Status)
	require.Equal(t, int64(500), got.Amount)

	_, err = repo.GetByTrackingCode(ctx, "bogus")
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT .+ FROM payments WHERE id = \$1`).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "registration_id", "tracking_code", "amount", "status", "provider", "created_at", "updated_at"}).
			AddRow("p1", "r1", "cs_test_1", 500, "failed", "stripe", now, now))
	mock.ExpectQuery(`SELECT .+ FROM payments WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	repo := NewPaymentRepository(db)
	got, err := repo.GetByID(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, "cs_test_1", got.TrackingCode)
	require.Equal(t, domain.PaymentFailed, got.Status)

	_, err = repo.GetByID(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepository_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE payments SET status = \$1`).
		WithArgs("succeeded", "p1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE payments SET status = \$1`).
		WithArgs("failed", "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewPaymentRepository(db)
	require.NoError(t, repo.UpdateStatus(ctx, "p1", domain.PaymentSucceeded))
	require.ErrorIs(t, repo.UpdateStatus(ctx, "missing", domain.PaymentFailed), domain.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
