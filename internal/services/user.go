package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"regexp"
	"strings"
	"time"

	"techcafe/internal/domain"
)

const (
	otpMin = 1000
	otpMax = 9999
)

var phoneRegexp = regexp.MustCompile(`^09\d{9}$`)

type userService struct {
	userRepo       domain.UserRepository
	otpStore       domain.OTPStore
	notifier       domain.Notifier
	hasher         domain.PasswordHasher
	tokenIssuer    domain.TokenIssuer
	tokenExpiry    time.Duration
	otpTTL         time.Duration
	logger         *slog.Logger
	contextTimeout time.Duration
}

// UserDeps groups the collaborators of the account service.
type UserDeps struct {
	Users       domain.UserRepository
	OTPs        domain.OTPStore
	Notifier    domain.Notifier
	Hasher      domain.PasswordHasher
	TokenIssuer domain.TokenIssuer
	TokenExpiry time.Duration
	OTPTTL      time.Duration
	Logger      *slog.Logger
}

// NewUserService creates a UserService with the given repositories and auth ports.
func NewUserService(deps UserDeps, timeout time.Duration) domain.UserService {
	return &userService{
		userRepo:       deps.Users,
		otpStore:       deps.OTPs,
		notifier:       deps.Notifier,
		hasher:         deps.Hasher,
		tokenIssuer:    deps.TokenIssuer,
		tokenExpiry:    deps.TokenExpiry,
		otpTTL:         deps.OTPTTL,
		logger:         deps.Logger,
		contextTimeout: timeout,
	}
}

func (s *userService) RequestOTP(ctx context.Context, phone string, purpose domain.OTPPurpose) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	phone = strings.TrimSpace(phone)
	if !phoneRegexp.MatchString(phone) {
		return fmt.Errorf("%w: invalid phone number", domain.ErrInvalidInput)
	}
	if !purpose.Valid() {
		return fmt.Errorf("%w: unknown otp purpose %q", domain.ErrInvalidInput, purpose)
	}

	_, err := s.userRepo.GetByPhone(ctx, phone)
	exists := err == nil
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return fmt.Errorf("failed to get user: %w", err)
	}
	switch purpose {
	case domain.OTPPurposeRegister:
		if exists {
			return domain.ErrPhoneAlreadyRegistered
		}
	case domain.OTPPurposeResetPassword:
		if !exists {
			return domain.ErrUserNotFound
		}
	}

	code, err := generateOTP()
	if err != nil {
		return fmt.Errorf("failed to generate code: %w", err)
	}
	key := purpose.Key(phone)
	issued, err := s.otpStore.Issue(ctx, key, code, s.otpTTL)
	if err != nil {
		return fmt.Errorf("failed to store otp: %w", err)
	}
	if !issued {
		return domain.ErrOTPSpam
	}
	if err := s.notifier.SendOTP(ctx, phone, code); err != nil {
		s.logger.ErrorContext(ctx, "otp sms enqueue failed", "purpose", purpose, "err", err)
		if derr := s.otpStore.Delete(ctx, key); derr != nil {
			s.logger.ErrorContext(ctx, "failed to remove unsent otp", "err", derr)
		}
		return domain.ErrSMSPanel
	}
	return nil
}

func (s *userService) Register(ctx context.Context, req domain.RegisterUserRequest) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	phone := strings.TrimSpace(req.Phone)
	if req.Password != req.Password1 {
		return nil, domain.ErrPasswordMismatch
	}
	ok, err := s.otpStore.Consume(ctx, domain.OTPPurposeRegister.Key(phone), strings.TrimSpace(req.OTPCode))
	if err != nil {
		return nil, fmt.Errorf("failed to verify otp: %w", err)
	}
	if !ok {
		return nil, domain.ErrInvalidOTP
	}

	salt, err := s.hasher.GenerateSalt()
	if err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	hash, err := s.hasher.Hash(salt, req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := domain.NewUser(phone, strings.TrimSpace(req.FirstName), strings.TrimSpace(req.LastName), now, now)
	user.PasswordHash = hash
	user.Salt = salt
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrDuplicatePhone) {
			return nil, domain.ErrPhoneAlreadyRegistered
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if err := s.notifier.SendWelcome(ctx, user.Phone, user.FirstName); err != nil {
		s.logger.WarnContext(ctx, "welcome sms enqueue failed", "user_id", user.ID, "err", err)
	}
	return user, nil
}

// Login checks the password and issues a token. Banned users still log in.
func (s *userService) Login(ctx context.Context, phone, password string) (string, *domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	user, err := s.userRepo.GetByPhone(ctx, strings.TrimSpace(phone))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return "", nil, domain.ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("failed to get user: %w", err)
	}
	if err := s.hasher.Compare(user.PasswordHash, user.Salt, password); err != nil {
		return "", nil, domain.ErrInvalidCredentials
	}
	if !user.IsActive {
		return "", nil, domain.ErrInvalidCredentials
	}
	token, err := s.tokenIssuer.Issue(user.ID, user.Phone, user.Roles(), s.tokenExpiry)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return token, user, nil
}

func (s *userService) GetByID(ctx context.Context, id string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// UpdateProfile applies upd. Moving to a new phone number requires a register OTP sent to it.
func (s *userService) UpdateProfile(ctx context.Context, id string, upd domain.ProfileUpdate) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if upd.Phone != nil {
		phone := strings.TrimSpace(*upd.Phone)
		if phone != user.Phone {
			if err := s.verifyNewPhone(ctx, phone, upd.OTPCode); err != nil {
				return nil, err
			}
			user.Phone = phone
		}
	}
	if upd.Email != nil {
		user.Email = strings.ToLower(strings.TrimSpace(*upd.Email))
	}
	if upd.FirstName != nil {
		user.FirstName = strings.TrimSpace(*upd.FirstName)
	}
	if upd.LastName != nil {
		user.LastName = strings.TrimSpace(*upd.LastName)
	}
	if upd.JobField != nil {
		user.JobField = strings.TrimSpace(*upd.JobField)
	}
	user.UpdatedAt = time.Now()

	if err := s.userRepo.Update(ctx, user); err != nil {
		switch {
		case errors.Is(err, domain.ErrDuplicateEmail), errors.Is(err, domain.ErrUserNotFound):
			return nil, err
		case errors.Is(err, domain.ErrDuplicatePhone):
			return nil, domain.ErrPhoneAlreadyRegistered
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

func (s *userService) verifyNewPhone(ctx context.Context, phone string, code *string) error {
	if !phoneRegexp.MatchString(phone) {
		return fmt.Errorf("%w: invalid phone number", domain.ErrInvalidInput)
	}
	if code == nil || strings.TrimSpace(*code) == "" {
		return domain.ErrOTPBlank
	}
	if _, err := s.userRepo.GetByPhone(ctx, phone); err == nil {
		return domain.ErrPhoneAlreadyRegistered
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return fmt.Errorf("failed to get user: %w", err)
	}
	ok, err := s.otpStore.Consume(ctx, domain.OTPPurposeRegister.Key(phone), strings.TrimSpace(*code))
	if err != nil {
		return fmt.Errorf("failed to verify otp: %w", err)
	}
	if !ok {
		return domain.ErrInvalidOTP
	}
	return nil
}

func (s *userService) ChangePassword(ctx context.Context, id, oldPassword, newPassword, newPassword1 string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if newPassword != newPassword1 {
		return domain.ErrPasswordMismatch
	}
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrUserNotFound
		}
		return fmt.Errorf("failed to get user: %w", err)
	}
	if err := s.hasher.Compare(user.PasswordHash, user.Salt, oldPassword); err != nil {
		return domain.ErrInvalidCredentials
	}
	return s.setPassword(ctx, user.ID, newPassword)
}

func (s *userService) ResetPassword(ctx context.Context, phone, code, newPassword, newPassword1 string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	phone = strings.TrimSpace(phone)
	if newPassword != newPassword1 {
		return domain.ErrPasswordMismatch
	}
	ok, err := s.otpStore.Consume(ctx, domain.OTPPurposeResetPassword.Key(phone), strings.TrimSpace(code))
	if err != nil {
		return fmt.Errorf("failed to verify otp: %w", err)
	}
	if !ok {
		return domain.ErrInvalidOTP
	}
	user, err := s.userRepo.GetByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrUserNotFound
		}
		return fmt.Errorf("failed to get user: %w", err)
	}
	return s.setPassword(ctx, user.ID, newPassword)
}

func (s *userService) setPassword(ctx context.Context, userID, password string) error {
	salt, err := s.hasher.GenerateSalt()
	if err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}
	hash, err := s.hasher.Hash(salt, password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.userRepo.UpdatePassword(ctx, userID, hash, salt); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrUserNotFound
		}
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

func (s *userService) SetBan(ctx context.Context, id string, banned bool) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	user, err := s.userRepo.SetBan(ctx, id, banned)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to set ban: %w", err)
	}
	return user, nil
}

// generateOTP returns a uniformly random four digit code.
func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpMax-otpMin+1))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", n.Int64()+otpMin), nil
}
