package postgres

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"time"

	"techcafe/internal/domain"
)

type otpRepository struct {
	DB *sql.DB
}

// NewOTPRepository returns a domain.OTPStore implemented with Postgres. Codes are stored hashed.
func NewOTPRepository(db *sql.DB) domain.OTPStore {
	return &otpRepository{DB: db}
}

func hashOTP(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// Issue inserts the code, or replaces an expired one. A live code leaves the row untouched.
func (r *otpRepository) Issue(ctx context.Context, key, code string, ttl time.Duration) (bool, error) {
	query := `
		INSERT INTO otp_codes (key, code_hash, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE
			SET code_hash = EXCLUDED.code_hash, attempts = 0, expires_at = EXCLUDED.expires_at, created_at = NOW()
			WHERE otp_codes.expires_at <= NOW()
		RETURNING key
	`
	var stored string
	err := r.DB.QueryRowContext(ctx, query, key, hashOTP(code), time.Now().Add(ttl)).Scan(&stored)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Consume deletes a matching live code. A mismatch bumps attempts; a row at the limit
// matches nothing but stays until it expires, so Issue keeps refusing the key.
func (r *otpRepository) Consume(ctx context.Context, key, code string) (bool, error) {
	query := `
		WITH target AS (
			SELECT key, code_hash = $2 AS matched
			FROM otp_codes
			WHERE key = $1 AND expires_at > NOW() AND attempts < $3
			FOR UPDATE
		), used AS (
			DELETE FROM otp_codes o USING target t
			WHERE o.key = t.key AND t.matched
			RETURNING o.key
		), missed AS (
			UPDATE otp_codes o SET attempts = o.attempts + 1
			FROM target t
			WHERE o.key = t.key AND NOT t.matched
			RETURNING o.key
		)
		SELECT EXISTS (SELECT 1 FROM used)
	`
	var ok bool
	if err := r.DB.QueryRowContext(ctx, query, key, hashOTP(code), domain.MaxOTPAttempts).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

func (r *otpRepository) Delete(ctx context.Context, key string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM otp_codes WHERE key = $1`, key)
	return err
}
