package controllers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"techcafe/internal/delivery/http/helpers"
	"techcafe/internal/delivery/http/middleware"
	"techcafe/internal/domain"
)

// testLogger is a no-op logger for controller tests so we don't assert on log output.
var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

const (
	testUserID      = "0b0f3c4e-5d43-4c1b-9f55-1c2d3e4f5a6b"
	testGatheringID = "6f1d2c3b-4a59-4e8f-8d7c-6b5a49382716"
	testRegID       = "9a8b7c6d-5e4f-4a3b-8c2d-1e0f9a8b7c6d"
	testDiscountID  = "1a2b3c4d-5e6f-4a1b-8c2d-3e4f5a6b7c8d"
)

func withUser(req *http.Request, userID string) *http.Request {
	return req.WithContext(middleware.SetUserID(req.Context(), userID))
}

// decodeEnvelope decodes the response envelope and, when dest is non-nil, its data.
func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder, dest any) helpers.APIResponse {
	t.Helper()
	var envelope helpers.APIResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&envelope))
	if dest != nil {
		raw, err := json.Marshal(envelope.Data)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, dest))
	}
	return envelope
}

// fakeUserService implements domain.UserService for handler tests.
type fakeUserService struct {
	err          error
	user         *domain.User
	token        string
	lastPhone    string
	lastPurpose  domain.OTPPurpose
	lastRegister domain.RegisterUserRequest
	lastUpdate   domain.ProfileUpdate
	lastBan      *bool
}

func (f *fakeUserService) RequestOTP(ctx context.Context, phone string, purpose domain.OTPPurpose) error {
	f.lastPhone, f.lastPurpose = phone, purpose
	return f.err
}

func (f *fakeUserService) Register(ctx context.Context, req domain.RegisterUserRequest) (*domain.User, error) {
	f.lastRegister = req
	if f.err != nil {
		return nil, f.err
	}
	return f.user, nil
}

func (f *fakeUserService) Login(ctx context.Context, phone, password string) (string, *domain.User, error) {
	f.lastPhone = phone
	if f.err != nil {
		return "", nil, f.err
	}
	return f.token, f.user, nil
}

func (f *fakeUserService) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.user, nil
}

func (f *fakeUserService) UpdateProfile(ctx context.Context, id string, upd domain.ProfileUpdate) (*domain.User, error) {
	f.lastUpdate = upd
	if f.err != nil {
		return nil, f.err
	}
	return f.user, nil
}

func (f *fakeUserService) ChangePassword(ctx context.Context, id, oldPassword, newPassword, newPassword1 string) error {
	return f.err
}

func (f *fakeUserService) ResetPassword(ctx context.Context, phone, code, newPassword, newPassword1 string) error {
	f.lastPhone = phone
	return f.err
}

func (f *fakeUserService) SetBan(ctx context.Context, id string, banned bool) (*domain.User, error) {
	f.lastBan = &banned
	if f.err != nil {
		return nil, f.err
	}
	return f.user, nil
}

// fakeGatheringService implements domain.GatheringService for handler tests.
type fakeGatheringService struct {
	err        error
	gathering  *domain.Gathering
	list       []*domain.Gathering
	total      int
	update     *domain.GatheringUpdateResult
	lastParams domain.GatheringListParams
	lastCreate *domain.Gathering
	lastPatch  domain.GatheringPatch
	lastIDs    []string
	deletedID  string
}

func (f *fakeGatheringService) CreateGathering(ctx context.Context, g *domain.Gathering) (*domain.Gathering, error) {
	f.lastCreate = g
	if f.err != nil {
		return nil, f.err
	}
	g.ID = testGatheringID
	return g, nil
}

func (f *fakeGatheringService) GetGathering(ctx context.Context, id string) (*domain.Gathering, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.gathering, nil
}

func (f *fakeGatheringService) ListGatherings(ctx context.Context, params domain.GatheringListParams) ([]*domain.Gathering, int, error) {
	f.lastParams = params
	if f.err != nil {
		return nil, 0, f.err
	}
	return f.list, f.total, nil
}

func (f *fakeGatheringService) UpdateGathering(ctx context.Context, id string, patch domain.GatheringPatch) (*domain.GatheringUpdateResult, error) {
	f.lastPatch = patch
	if f.err != nil {
		return nil, f.err
	}
	return f.update, nil
}

func (f *fakeGatheringService) DeleteGathering(ctx context.Context, id string) error {
	f.deletedID = id
	return f.err
}

func (f *fakeGatheringService) SetPresenters(ctx context.Context, id string, userIDs []string) (*domain.Gathering, error) {
	f.lastIDs = userIDs
	if f.err != nil {
		return nil, f.err
	}
	return f.gathering, nil
}

// fakeDiscountService implements domain.DiscountService for handler tests.
type fakeDiscountService struct {
	err            error
	discount       *domain.Discount
	list           []*domain.Discount
	lookup         *domain.DiscountLookup
	lastCode       string
	lastPercentage int
	lastActive     *bool
}

func (f *fakeDiscountService) CreateDiscount(ctx context.Context, gatheringID, code string, percentage int) (*domain.Discount, error) {
	f.lastCode, f.lastPercentage = code, percentage
	if f.err != nil {
		return nil, f.err
	}
	return f.discount, nil
}

func (f *fakeDiscountService) SetDiscountStatus(ctx context.Context, id string, active bool) (*domain.Discount, error) {
	f.lastActive = &active
	if f.err != nil {
		return nil, f.err
	}
	return f.discount, nil
}

func (f *fakeDiscountService) ListDiscounts(ctx context.Context, gatheringID string) ([]*domain.Discount, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.list, nil
}

func (f *fakeDiscountService) LookupActive(ctx context.Context, code string) (*domain.DiscountLookup, error) {
	f.lastCode = code
	if f.err != nil {
		return nil, f.err
	}
	return f.lookup, nil
}

// fakeRegistrationService implements domain.RegistrationService for handler tests.
type fakeRegistrationService struct {
	err              error
	reg              *domain.Registration
	withGathering    *domain.RegistrationWithGathering
	list             []*domain.RegistrationWithGathering
	payment          *domain.PaymentResult
	lastDiscountCode string
	lastCallbackURL  string
	lastTrackingCode string
	lastToken        string
	cancelledID      string
}

func (f *fakeRegistrationService) CreateRegistration(ctx context.Context, userID, gatheringID, discountCode string) (*domain.Registration, error) {
	f.lastDiscountCode = discountCode
	if f.err != nil {
		return nil, f.err
	}
	return f.reg, nil
}

func (f *fakeRegistrationService) CancelRegistration(ctx context.Context, userID, registrationID string) error {
	f.cancelledID = registrationID
	return f.err
}

func (f *fakeRegistrationService) CheckIn(ctx context.Context, token string) (*domain.Registration, error) {
	f.lastToken = token
	if f.err != nil {
		return nil, f.err
	}
	return f.reg, nil
}

func (f *fakeRegistrationService) InitiatePayment(ctx context.Context, userID, registrationID, callbackURL string) (*domain.PaymentResult, error) {
	f.lastCallbackURL = callbackURL
	if f.err != nil {
		return nil, f.err
	}
	return f.payment, nil
}

func (f *fakeRegistrationService) HandlePaymentCallback(ctx context.Context, trackingCode string) (*domain.Registration, error) {
	f.lastTrackingCode = trackingCode
	if f.err != nil {
		return nil, f.err
	}
	return f.reg, nil
}

func (f *fakeRegistrationService) ListMyRegistrations(ctx context.Context, userID string) ([]*domain.RegistrationWithGathering, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.list, nil
}

func (f *fakeRegistrationService) GetMyRegistration(ctx context.Context, userID, registrationID string) (*domain.RegistrationWithGathering, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.withGathering, nil
}
