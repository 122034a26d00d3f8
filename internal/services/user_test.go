package services

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"techcafe/internal/domain"
)

type userFixture struct {
	svc    domain.UserService
	users  *fakeUserRepo
	otps   *fakeOTPStore
	queue  *fakeQueue
	tokens *fakeTokenIssuer
}

func newUserFixture(t *testing.T) *userFixture {
	t.Helper()
	f := &userFixture{
		users:  newFakeUserRepo(),
		otps:   newFakeOTPStore(),
		queue:  &fakeQueue{},
		tokens: &fakeTokenIssuer{},
	}
	f.svc = NewUserService(UserDeps{
		Users:       f.users,
		OTPs:        f.otps,
		Notifier:    NewNotifier(f.queue),
		Hasher:      fakeHasher{},
		TokenIssuer: f.tokens,
		TokenExpiry: time.Hour,
		OTPTTL:      2 * time.Minute,
		Logger:      discardLogger(),
	}, 5*time.Second)
	return f
}

func (f *userFixture) existing(phone, password string) *domain.User {
	u := domain.NewUser(phone, "Sara", "Ahmadi", testNow, testNow)
	u.Salt = "salt"
	u.PasswordHash = "salt:" + password
	return f.users.add(u)
}

func TestUserService_RequestOTP(t *testing.T) {
	tests := []struct {
		name     string
		purpose  domain.OTPPurpose
		phone    string
		existing bool
		wantErr  error
		wantKey  string
	}{
		{name: "register new phone", purpose: domain.OTPPurposeRegister, phone: "09121112233", wantKey: "register:09121112233"},
		{name: "register taken phone", purpose: domain.OTPPurposeRegister, phone: "09121112233", existing: true, wantErr: domain.ErrPhoneAlreadyRegistered},
		{name: "reset existing phone", purpose: domain.OTPPurposeResetPassword, phone: "09121112233", existing: true, wantKey: "reset_password:09121112233"},
		{name: "reset unknown phone", purpose: domain.OTPPurposeResetPassword, phone: "09121112233", wantErr: domain.ErrUserNotFound},
		{name: "bad phone", purpose: domain.OTPPurposeRegister, phone: "9121112233", wantErr: domain.ErrInvalidInput},
		{name: "bad purpose", purpose: "login_otp", phone: "09121112233", wantErr: domain.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newUserFixture(t)
			if tt.existing {
				f.existing(tt.phone, "secret123")
			}
			err := f.svc.RequestOTP(context.Background(), tt.phone, tt.purpose)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, f.queue.jobs)
				return
			}
			require.NoError(t, err)
			code, ok := f.otps.codes[tt.wantKey]
			require.True(t, ok)
			assert.Regexp(t, regexp.MustCompile(`^[1-9][0-9]{3}$`), code)
			require.Len(t, f.queue.jobs, 1)
			assert.Equal(t, domain.SMSJob{Phone: tt.phone, TemplateID: domain.SMSTemplateOTP, Args: []string{code}}, f.queue.jobs[0])
		})
	}
}

func TestUserService_RequestOTP_Spam(t *testing.T) {
	f := newUserFixture(t)
	require.NoError(t, f.svc.RequestOTP(context.Background(), "09121112233", domain.OTPPurposeRegister))
	err := f.svc.RequestOTP(context.Background(), "09121112233", domain.OTPPurposeRegister)
	assert.ErrorIs(t, err, domain.ErrOTPSpam)
	assert.Len(t, f.queue.jobs, 1)
}

func TestUserService_RequestOTP_QueueFailureReleasesCode(t *testing.T) {
	f := newUserFixture(t)
	f.queue.err = errors.New("broker down")

	err := f.svc.RequestOTP(context.Background(), "09121112233", domain.OTPPurposeRegister)
	assert.ErrorIs(t, err, domain.ErrSMSPanel)
	assert.Empty(t, f.otps.codes, "the user can ask again right away")
}

func TestUserService_Register(t *testing.T) {
	const phone = "09121112233"
	tests := []struct {
		name    string
		prepare func(f *userFixture) string
		pw1     string
		wantErr error
	}{
		{
			name: "correct code",
			prepare: func(f *userFixture) string {
				f.otps.codes["register:"+phone] = "4321"
				return "4321"
			},
		},
		{
			name: "wrong code",
			prepare: func(f *userFixture) string {
				f.otps.codes["register:"+phone] = "4321"
				return "1111"
			},
			wantErr: domain.ErrInvalidOTP,
		},
		{
			name: "expired code",
			prepare: func(f *userFixture) string {
				f.otps.codes["register:"+phone] = "4321"
				f.otps.expire("register:" + phone)
				return "4321"
			},
			wantErr: domain.ErrInvalidOTP,
		},
		{
			name: "reset code does not register",
			prepare: func(f *userFixture) string {
				f.otps.codes["reset_password:"+phone] = "4321"
				return "4321"
			},
			wantErr: domain.ErrInvalidOTP,
		},
		{
			name: "password mismatch",
			prepare: func(f *userFixture) string {
				f.otps.codes["register:"+phone] = "4321"
				return "4321"
			},
			pw1:     "different1",
			wantErr: domain.ErrPasswordMismatch,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newUserFixture(t)
			code := tt.prepare(f)
			pw1 := tt.pw1
			if pw1 == "" {
				pw1 = "secret123"
			}
			user, err := f.svc.Register(context.Background(), domain.RegisterUserRequest{
				Phone:     phone,
				OTPCode:   code,
				FirstName: " Sara ",
				LastName:  "Ahmadi",
				Password:  "secret123",
				Password1: pw1,
			})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, f.users.byID)
				return
			}
			require.NoError(t, err)
			assert.True(t, user.IsActive)
			assert.Equal(t, "Sara", user.FirstName)
			assert.Equal(t, "salt:secret123", user.PasswordHash)
			assert.NotContains(t, f.otps.codes, "register:"+phone, "code is consumed")
			require.Len(t, f.queue.jobs, 1)
			assert.Equal(t, domain.SMSTemplateWelcome, f.queue.jobs[0].TemplateID)
			assert.Equal(t, []string{"Sara"}, f.queue.jobs[0].Args)
		})
	}
}

func TestUserService_Register_WelcomeFailureIgnored(t *testing.T) {
	f := newUserFixture(t)
	f.otps.codes["register:09121112233"] = "4321"
	f.queue.err = errors.New("broker down")

	_, err := f.svc.Register(context.Background(), domain.RegisterUserRequest{
		Phone: "09121112233", OTPCode: "4321", FirstName: "Sara", Password: "secret123", Password1: "secret123",
	})
	assert.NoError(t, err)
}

func TestUserService_Login(t *testing.T) {
	f := newUserFixture(t)
	u := f.existing("09121112233", "secret123")

	token, got, err := f.svc.Login(context.Background(), "09121112233", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "token-"+u.ID, token)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, []string{domain.RoleAttendee}, f.tokens.roles)

	_, _, err = f.svc.Login(context.Background(), "09121112233", "wrong")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, _, err = f.svc.Login(context.Background(), "09129999999", "secret123")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	u.IsStaff = true
	u.IsBan = true
	_, _, err = f.svc.Login(context.Background(), "09121112233", "secret123")
	require.NoError(t, err, "banned users may still log in")
	assert.Equal(t, []string{domain.RoleAttendee, domain.RoleStaff}, f.tokens.roles)

	u.IsActive = false
	_, _, err = f.svc.Login(context.Background(), "09121112233", "secret123")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestUserService_UpdateProfile(t *testing.T) {
	f := newUserFixture(t)
	u := f.existing("09121112233", "secret123")
	f.existing("09124445566", "secret123")

	email := " Sara@Example.com "
	job := "backend"
	got, err := f.svc.UpdateProfile(context.Background(), u.ID, domain.ProfileUpdate{Email: &email, JobField: &job})
	require.NoError(t, err)
	assert.Equal(t, "sara@example.com", got.Email)
	assert.Equal(t, "backend", got.JobField)

	same := "09121112233"
	_, err = f.svc.UpdateProfile(context.Background(), u.ID, domain.ProfileUpdate{Phone: &same})
	require.NoError(t, err, "unchanged phone needs no code")

	newPhone := "09127778899"
	_, err = f.svc.UpdateProfile(context.Background(), u.ID, domain.ProfileUpdate{Phone: &newPhone})
	assert.ErrorIs(t, err, domain.ErrOTPBlank)

	wrong := "0000"
	f.otps.codes["register:"+newPhone] = "2468"
	_, err = f.svc.UpdateProfile(context.Background(), u.ID, domain.ProfileUpdate{Phone: &newPhone, OTPCode: &wrong})
	assert.ErrorIs(t, err, domain.ErrInvalidOTP)

	taken := "09124445566"
	code := "2468"
	_, err = f.svc.UpdateProfile(context.Background(), u.ID, domain.ProfileUpdate{Phone: &taken, OTPCode: &code})
	assert.ErrorIs(t, err, domain.ErrPhoneAlreadyRegistered)

	got, err = f.svc.UpdateProfile(context.Background(), u.ID, domain.ProfileUpdate{Phone: &newPhone, OTPCode: &code})
	require.NoError(t, err)
	assert.Equal(t, newPhone, got.Phone)
	assert.Equal(t, newPhone, f.users.byID[u.ID].Phone)
}

func TestUserService_ChangePassword(t *testing.T) {
	f := newUserFixture(t)
	u := f.existing("09121112233", "secret123")

	err := f.svc.ChangePassword(context.Background(), u.ID, "secret123", "newpass99", "newpass98")
	assert.ErrorIs(t, err, domain.ErrPasswordMismatch)

	err = f.svc.ChangePassword(context.Background(), u.ID, "wrong", "newpass99", "newpass99")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	require.NoError(t, f.svc.ChangePassword(context.Background(), u.ID, "secret123", "newpass99", "newpass99"))
	_, _, err = f.svc.Login(context.Background(), "09121112233", "newpass99")
	assert.NoError(t, err)
}

func TestUserService_ResetPassword(t *testing.T) {
	f := newUserFixture(t)
	f.existing("09121112233", "secret123")

	err := f.svc.ResetPassword(context.Background(), "09121112233", "1357", "newpass99", "newpass99")
	assert.ErrorIs(t, err, domain.ErrInvalidOTP)

	require.NoError(t, f.svc.RequestOTP(context.Background(), "09121112233", domain.OTPPurposeResetPassword))
	code := f.otps.codes["reset_password:09121112233"]

	require.NoError(t, f.svc.ResetPassword(context.Background(), "09121112233", code, "newpass99", "newpass99"))
	_, _, err = f.svc.Login(context.Background(), "09121112233", "newpass99")
	assert.NoError(t, err)

	err = f.svc.ResetPassword(context.Background(), "09121112233", code, "again999", "again999")
	assert.ErrorIs(t, err, domain.ErrInvalidOTP, "reset code is single use")
}

func TestUserService_SetBan(t *testing.T) {
	f := newUserFixture(t)
	u := f.existing("09121112233", "secret123")

	got, err := f.svc.SetBan(context.Background(), u.ID, true)
	require.NoError(t, err)
	assert.True(t, got.IsBan)

	_, err = f.svc.SetBan(context.Background(), "missing", true)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}
