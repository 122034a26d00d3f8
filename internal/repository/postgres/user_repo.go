package postgres

import (
	"context"
	"database/sql"
	"errors"

	"techcafe/internal/domain"
)

const userColumns = `id, phone, email, first_name, last_name, job_field, password_hash, salt, is_active, is_staff, is_ban, created_at, updated_at`

type userRepository struct {
	DB *sql.DB
}

func NewUserRepository(db *sql.DB) domain.UserRepository {
	return &userRepository{DB: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	u := &domain.User{}
	var email, jobField sql.NullString
	err := row.Scan(&u.ID, &u.Phone, &email, &u.FirstName, &u.LastName, &jobField,
		&u.PasswordHash, &u.Salt, &u.IsActive, &u.IsStaff, &u.IsBan, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.Email = email.String
	u.JobField = jobField.String
	return u, nil
}

func mapUserWriteErr(err error) error {
	if constraint, ok := uniqueViolation(err); ok {
		if constraint == "users_email_key" {
			return domain.ErrDuplicateEmail
		}
		return domain.ErrDuplicatePhone
	}
	return err
}

func (r *userRepository) Create(ctx context.Context, u *domain.User) error {
	query := `
		INSERT INTO users (phone, email, first_name, last_name, job_field, password_hash, salt, is_active, is_staff, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`
	err := r.DB.QueryRowContext(ctx, query,
		u.Phone, nullString(u.Email), u.FirstName, u.LastName, nullString(u.JobField),
		u.PasswordHash, u.Salt, u.IsActive, u.IsStaff, u.CreatedAt, u.UpdatedAt,
	).Scan(&u.ID)
	return mapUserWriteErr(err)
}

func (r *userRepository) GetByPhone(ctx context.Context, phone string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE phone = $1`
	u, err := scanUser(r.DB.QueryRowContext(ctx, query, phone))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || invalidTextRepresentation(err) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

// Update writes the profile columns of u. Password, staff and ban flags have their own paths.
func (r *userRepository) Update(ctx context.Context, u *domain.User) error {
	query := `
		UPDATE users
		SET phone = $1, email = $2, first_name = $3, last_name = $4, job_field = $5, updated_at = $6
		WHERE id = $7
	`
	result, err := r.DB.ExecContext(ctx, query,
		u.Phone, nullString(u.Email), u.FirstName, u.LastName, nullString(u.JobField), u.UpdatedAt, u.ID)
	if err != nil {
		return mapUserWriteErr(err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *userRepository) UpdatePassword(ctx context.Context, id, passwordHash, salt string) error {
	query := `UPDATE users SET password_hash = $1, salt = $2, updated_at = NOW() WHERE id = $3`
	result, err := r.DB.ExecContext(ctx, query, passwordHash, salt, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *userRepository) SetBan(ctx context.Context, id string, banned bool) (*domain.User, error) {
	query := `UPDATE users SET is_ban = $1, updated_at = NOW() WHERE id = $2 RETURNING ` + userColumns
	u, err := scanUser(r.DB.QueryRowContext(ctx, query, banned, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || invalidTextRepresentation(err) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}
