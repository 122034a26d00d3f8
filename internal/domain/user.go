package domain

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for user operations.
var (
	ErrUserNotFound   = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already in use")
	ErrDuplicatePhone = errors.New("phone already in use")
)

// Role codes carried in issued tokens.
const (
	RoleAttendee = "attendee"
	RoleStaff    = "staff"
)

// User represents a registered account. Phone is the login identifier.
// swagger:model User
type User struct {
	ID           string    `json:"id"`
	Phone        string    `json:"phone"`
	Email        string    `json:"email,omitempty"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	JobField     string    `json:"job_field,omitempty"`
	PasswordHash string    `json:"-"`
	Salt         string    `json:"-"`
	IsActive     bool      `json:"is_active"`
	IsStaff      bool      `json:"is_staff"`
	IsBan        bool      `json:"is_ban"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewUser returns a new active User with the given fields. ID is typically set by the repository on create.
func NewUser(phone, firstName, lastName string, createdAt, updatedAt time.Time) *User {
	return &User{
		Phone:     phone,
		FirstName: firstName,
		LastName:  lastName,
		IsActive:  true,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}
}

// FullName joins first and last name.
func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// Roles returns the role codes for the user's token.
func (u *User) Roles() []string {
	if u.IsStaff {
		return []string{RoleAttendee, RoleStaff}
	}
	return []string{RoleAttendee}
}

// PasswordHasher handles salt generation, hashing, and verification.
// Implementations may use bcrypt, argon2, etc.
type PasswordHasher interface {
	GenerateSalt() (string, error)
	Hash(salt, password string) (hash string, err error)
	Compare(hash, salt, password string) error
}

// TokenIssuer issues tokens (e.g. JWT) for an authenticated user.
type TokenIssuer interface {
	Issue(userID, phone string, roles []string, expiry time.Duration) (string, error)
}

// TokenVerifier verifies a token and returns the authenticated user ID and roles.
type TokenVerifier interface {
	Verify(token string) (userID string, roles []string, err error)
}

// ProfileUpdate carries optional profile changes. Nil fields are left untouched.
type ProfileUpdate struct {
	Phone     *string
	OTPCode   *string
	Email     *string
	FirstName *string
	LastName  *string
	JobField  *string
}

// UserRepository defines the interface for user storage
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByPhone(ctx context.Context, phone string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	Update(ctx context.Context, user *User) error
	UpdatePassword(ctx context.Context, id, passwordHash, salt string) error
	SetBan(ctx context.Context, id string, banned bool) (*User, error)
}

// UserService defines the business logic for accounts, OTP flows and profiles.
type UserService interface {
	RequestOTP(ctx context.Context, phone string, purpose OTPPurpose) error
	Register(ctx context.Context, req RegisterUserRequest) (*User, error)
	Login(ctx context.Context, phone, password string) (token string, user *User, err error)
	GetByID(ctx context.Context, id string) (*User, error)
	UpdateProfile(ctx context.Context, id string, upd ProfileUpdate) (*User, error)
	ChangePassword(ctx context.Context, id, oldPassword, newPassword, newPassword1 string) error
	ResetPassword(ctx context.Context, phone, code, newPassword, newPassword1 string) error
	SetBan(ctx context.Context, id string, banned bool) (*User, error)
}

// RegisterUserRequest is the input for UserService.Register.
type RegisterUserRequest struct {
	Phone     string
	OTPCode   string
	FirstName string
	LastName  string
	Password  string
	Password1 string
}
