package domain

import (
	"context"
	"time"
)

// OTPPurpose selects which flow a one-time code belongs to.
type OTPPurpose string

const (
	OTPPurposeRegister      OTPPurpose = "register_otp"
	OTPPurposeResetPassword OTPPurpose = "reset_password_otp"
)

// Valid reports whether p is a known purpose.
func (p OTPPurpose) Valid() bool {
	return p == OTPPurposeRegister || p == OTPPurposeResetPassword
}

// Key returns the store key for phone, e.g. "register:09123456789".
func (p OTPPurpose) Key(phone string) string {
	switch p {
	case OTPPurposeResetPassword:
		return "reset_password:" + phone
	default:
		return "register:" + phone
	}
}

// MaxOTPAttempts is how many wrong guesses a code survives. After that the code is locked
// until it expires: it matches nothing and still blocks a new code for the same key.
const MaxOTPAttempts = 5

// OTPStore keeps short-lived codes keyed by purpose and phone.
type OTPStore interface {
	// Issue stores code under key unless a live code already exists, in which case issued is false.
	Issue(ctx context.Context, key, code string, ttl time.Duration) (issued bool, err error)
	// Consume removes the code when it matches and has not expired. A mismatch counts
	// toward MaxOTPAttempts.
	Consume(ctx context.Context, key, code string) (bool, error)
	Delete(ctx context.Context, key string) error
}
