package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"techcafe/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeGatheringRepo is an in-memory GatheringRepository. When regs is set, reads
// compute FilledSeats from it the way the SQL query does.
type fakeGatheringRepo struct {
	byID   map[string]*domain.Gathering
	regs   *fakeRegistrationRepo
	discs  *fakeDiscountRepo
	nextID int
	err    error // if set, Save returns this error
}

func newFakeGatheringRepo() *fakeGatheringRepo {
	return &fakeGatheringRepo{byID: make(map[string]*domain.Gathering), nextID: 1}
}

func (f *fakeGatheringRepo) add(g *domain.Gathering) *domain.Gathering {
	if g.ID == "" {
		g.ID = fmt.Sprintf("g-%d", f.nextID)
		f.nextID++
	}
	f.byID[g.ID] = g
	return g
}

func (f *fakeGatheringRepo) Create(ctx context.Context, g *domain.Gathering) error {
	f.add(g)
	return nil
}

func (f *fakeGatheringRepo) GetByID(ctx context.Context, id string) (*domain.Gathering, error) {
	g, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *g
	if f.regs != nil {
		cp.FilledSeats = f.regs.filled(g)
	}
	return &cp, nil
}

func (f *fakeGatheringRepo) List(ctx context.Context, params domain.GatheringListParams) ([]*domain.Gathering, int, error) {
	var out []*domain.Gathering
	for _, g := range f.byID {
		if params.Search != "" && !strings.Contains(strings.ToLower(g.Title), strings.ToLower(params.Search)) {
			continue
		}
		out = append(out, g)
	}
	return out, len(out), nil
}

func (f *fakeGatheringRepo) Save(ctx context.Context, g *domain.Gathering) (*domain.GatheringUpdateResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	if _, ok := f.byID[g.ID]; !ok {
		return nil, domain.ErrNotFound
	}
	cp := *g
	f.byID[g.ID] = &cp
	res := &domain.GatheringUpdateResult{Gathering: &cp}
	if g.IsHeld {
		if f.regs != nil && g.Price != 0 {
			res.PrunedRegistrations = f.regs.pruneUnpaid(g.ID)
		}
		if f.discs != nil {
			res.DeactivatedDiscounts = f.discs.deactivate(g.ID)
		}
	}
	return res, nil
}

func (f *fakeGatheringRepo) Delete(ctx context.Context, id string) error {
	if _, ok := f.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeGatheringRepo) SetPresenters(ctx context.Context, id string, userIDs []string) error {
	g, ok := f.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	g.Presenters = append([]string(nil), userIDs...)
	return nil
}

// fakeRegistrationRepo is an in-memory RegistrationRepository enforcing capacity like the SQL transaction.
type fakeRegistrationRepo struct {
	byID       map[string]*domain.Registration
	gatherings *fakeGatheringRepo
	nextID     int
	createErr  error
}

func newFakeRegistrationRepo(gatherings *fakeGatheringRepo) *fakeRegistrationRepo {
	r := &fakeRegistrationRepo{byID: make(map[string]*domain.Registration), gatherings: gatherings, nextID: 1}
	gatherings.regs = r
	return r
}

func (f *fakeRegistrationRepo) filled(g *domain.Gathering) int {
	n := 0
	for _, r := range f.byID {
		if r.GatheringID == g.ID && (g.IsFree() || r.IsPaid) {
			n++
		}
	}
	return n
}

func (f *fakeRegistrationRepo) pruneUnpaid(gatheringID string) int64 {
	var n int64
	for id, r := range f.byID {
		if r.GatheringID == gatheringID && !r.IsPaid {
			delete(f.byID, id)
			n++
		}
	}
	return n
}

func (f *fakeRegistrationRepo) CreateWithinCapacity(ctx context.Context, reg *domain.Registration) error {
	if f.createErr != nil {
		return f.createErr
	}
	g, ok := f.gatherings.byID[reg.GatheringID]
	if !ok {
		return domain.ErrNotFound
	}
	if g.IsHeld {
		return domain.ErrGatheringHeld
	}
	if g.IsOccupied || f.filled(g) >= g.MaxSeats {
		return domain.ErrFullCapacity
	}
	for _, r := range f.byID {
		if r.UserID == reg.UserID && r.GatheringID == reg.GatheringID {
			return domain.ErrAlreadyRegistered
		}
	}
	reg.ID = fmt.Sprintf("reg-%d", f.nextID)
	f.nextID++
	f.byID[reg.ID] = reg
	return nil
}

func (f *fakeRegistrationRepo) GetByID(ctx context.Context, id string) (*domain.Registration, error) {
	if r, ok := f.byID[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeRegistrationRepo) GetByToken(ctx context.Context, token string) (*domain.Registration, error) {
	for _, r := range f.byID {
		if r.Token == token {
			cp := *r
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeRegistrationRepo) GetByUserAndGathering(ctx context.Context, userID, gatheringID string) (*domain.Registration, error) {
	for _, r := range f.byID {
		if r.UserID == userID && r.GatheringID == gatheringID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeRegistrationRepo) GetByPaymentID(ctx context.Context, paymentID string) (*domain.Registration, error) {
	for _, r := range f.byID {
		if r.PaymentID != nil && *r.PaymentID == paymentID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeRegistrationRepo) ListByUserID(ctx context.Context, userID string) ([]*domain.Registration, error) {
	var out []*domain.Registration
	for _, r := range f.byID {
		if r.UserID == userID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeRegistrationRepo) Delete(ctx context.Context, id string) error {
	if _, ok := f.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeRegistrationRepo) MarkPaid(ctx context.Context, id string) (bool, error) {
	r, ok := f.byID[id]
	if !ok || r.IsPaid {
		return false, nil
	}
	r.IsPaid = true
	return true, nil
}

func (f *fakeRegistrationRepo) CheckIn(ctx context.Context, id string) (bool, error) {
	r, ok := f.byID[id]
	if !ok || r.CheckIn {
		return false, nil
	}
	r.CheckIn = true
	return true, nil
}

func (f *fakeRegistrationRepo) AttachPayment(ctx context.Context, id, paymentID string) error {
	r, ok := f.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	r.PaymentID = &paymentID
	return nil
}

// fakeUserRepo is an in-memory UserRepository for tests.
type fakeUserRepo struct {
	byID   map[string]*domain.User
	nextID int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byID: make(map[string]*domain.User), nextID: 1}
}

func (f *fakeUserRepo) add(u *domain.User) *domain.User {
	if u.ID == "" {
		u.ID = fmt.Sprintf("u-%d", f.nextID)
		f.nextID++
	}
	f.byID[u.ID] = u
	return u
}

func (f *fakeUserRepo) Create(ctx context.Context, u *domain.User) error {
	for _, existing := range f.byID {
		if existing.Phone == u.Phone {
			return domain.ErrDuplicatePhone
		}
	}
	f.add(u)
	return nil
}

func (f *fakeUserRepo) GetByPhone(ctx context.Context, phone string) (*domain.User, error) {
	for _, u := range f.byID {
		if u.Phone == phone {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if u, ok := f.byID[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, domain.ErrUserNotFound
}

func (f *fakeUserRepo) Update(ctx context.Context, u *domain.User) error {
	if _, ok := f.byID[u.ID]; !ok {
		return domain.ErrUserNotFound
	}
	for _, existing := range f.byID {
		if existing.ID == u.ID {
			continue
		}
		if existing.Phone == u.Phone {
			return domain.ErrDuplicatePhone
		}
		if u.Email != "" && existing.Email == u.Email {
			return domain.ErrDuplicateEmail
		}
	}
	cp := *u
	f.byID[u.ID] = &cp
	return nil
}

func (f *fakeUserRepo) UpdatePassword(ctx context.Context, id, passwordHash, salt string) error {
	u, ok := f.byID[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	u.Salt = salt
	return nil
}

func (f *fakeUserRepo) SetBan(ctx context.Context, id string, banned bool) (*domain.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	u.IsBan = banned
	cp := *u
	return &cp, nil
}

// fakeDiscountRepo is an in-memory DiscountRepository for tests.
type fakeDiscountRepo struct {
	byID   map[string]*domain.Discount
	nextID int
}

func newFakeDiscountRepo() *fakeDiscountRepo {
	return &fakeDiscountRepo{byID: make(map[string]*domain.Discount), nextID: 1}
}

func (f *fakeDiscountRepo) deactivate(gatheringID string) int64 {
	var n int64
	for _, d := range f.byID {
		if d.GatheringID == gatheringID && d.Active {
			d.Active = false
			n++
		}
	}
	return n
}

func (f *fakeDiscountRepo) Create(ctx context.Context, d *domain.Discount) error {
	for _, existing := range f.byID {
		if existing.Code == d.Code {
			return domain.ErrDuplicateCode
		}
	}
	d.ID = fmt.Sprintf("d-%d", f.nextID)
	f.nextID++
	f.byID[d.ID] = d
	return nil
}

func (f *fakeDiscountRepo) GetByID(ctx context.Context, id string) (*domain.Discount, error) {
	if d, ok := f.byID[id]; ok {
		cp := *d
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeDiscountRepo) GetByCode(ctx context.Context, code string) (*domain.Discount, error) {
	for _, d := range f.byID {
		if d.Code == code {
			cp := *d
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeDiscountRepo) ListByGatheringID(ctx context.Context, gatheringID string) ([]*domain.Discount, error) {
	var out []*domain.Discount
	for _, d := range f.byID {
		if d.GatheringID == gatheringID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeDiscountRepo) SetActive(ctx context.Context, id string, active bool) (*domain.Discount, error) {
	d, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	d.Active = active
	cp := *d
	return &cp, nil
}

// fakePaymentRepo is an in-memory PaymentRepository for tests.
type fakePaymentRepo struct {
	byID   map[string]*domain.PaymentRecord
	nextID int
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{byID: make(map[string]*domain.PaymentRecord), nextID: 1}
}

func (f *fakePaymentRepo) Create(ctx context.Context, p *domain.PaymentRecord) error {
	p.ID = fmt.Sprintf("pay-%d", f.nextID)
	f.nextID++
	f.byID[p.ID] = p
	return nil
}

func (f *fakePaymentRepo) GetByID(ctx context.Context, id string) (*domain.PaymentRecord, error) {
	p, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakePaymentRepo) GetByTrackingCode(ctx context.Context, trackingCode string) (*domain.PaymentRecord, error) {
	for _, p := range f.byID {
		if p.TrackingCode == trackingCode {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakePaymentRepo) UpdateStatus(ctx context.Context, id string, status domain.PaymentStatus) error {
	p, ok := f.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Status = status
	return nil
}

// fakeGateway records Begin and Cancel calls and answers Verify with a fixed result.
type fakeGateway struct {
	begun     []domain.PaymentRequest
	beginErr  error
	verified  bool
	verifyErr error
	cancelled []string
	cancelErr error
}

func (f *fakeGateway) Name() string { return "fake" }

func (f *fakeGateway) Begin(ctx context.Context, req domain.PaymentRequest) (*domain.PaymentSession, error) {
	if f.beginErr != nil {
		return nil, f.beginErr
	}
	f.begun = append(f.begun, req)
	code := fmt.Sprintf("tc-%d", len(f.begun))
	return &domain.PaymentSession{TrackingCode: code, RedirectURL: "https://pay.example.com/" + code}, nil
}

func (f *fakeGateway) Verify(ctx context.Context, trackingCode string) (bool, error) {
	return f.verified, f.verifyErr
}

func (f *fakeGateway) Cancel(ctx context.Context, trackingCode string) error {
	if f.cancelErr != nil {
		return f.cancelErr
	}
	f.cancelled = append(f.cancelled, trackingCode)
	return nil
}

type fakeEmailService struct {
	sent []*domain.TicketEmailData
}

func (f *fakeEmailService) SendTicket(ctx context.Context, data *domain.TicketEmailData) error {
	f.sent = append(f.sent, data)
	return nil
}

// fakeOTPStore keeps codes without expiry; tests call expire to simulate the TTL passing.
type fakeOTPStore struct {
	codes    map[string]string
	issueErr error
}

func newFakeOTPStore() *fakeOTPStore {
	return &fakeOTPStore{codes: make(map[string]string)}
}

func (f *fakeOTPStore) expire(key string) { delete(f.codes, key) }

func (f *fakeOTPStore) Issue(ctx context.Context, key, code string, ttl time.Duration) (bool, error) {
	if f.issueErr != nil {
		return false, f.issueErr
	}
	if _, ok := f.codes[key]; ok {
		return false, nil
	}
	f.codes[key] = code
	return true, nil
}

func (f *fakeOTPStore) Consume(ctx context.Context, key, code string) (bool, error) {
	if stored, ok := f.codes[key]; ok && stored == code {
		delete(f.codes, key)
		return true, nil
	}
	return false, nil
}

func (f *fakeOTPStore) Delete(ctx context.Context, key string) error {
	delete(f.codes, key)
	return nil
}

// fakeQueue records enqueued jobs.
type fakeQueue struct {
	jobs []domain.SMSJob
	err  error
}

func (f *fakeQueue) Enqueue(ctx context.Context, job domain.SMSJob) error {
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, job)
	return nil
}

// fakeHasher stores "salt:password" in the clear.
type fakeHasher struct{}

func (fakeHasher) GenerateSalt() (string, error) { return "salt", nil }

func (fakeHasher) Hash(salt, password string) (string, error) { return salt + ":" + password, nil }

func (fakeHasher) Compare(hash, salt, password string) error {
	if hash != salt+":"+password {
		return domain.ErrInvalidCredentials
	}
	return nil
}

type fakeTokenIssuer struct {
	roles []string
}

func (f *fakeTokenIssuer) Issue(userID, phone string, roles []string, expiry time.Duration) (string, error) {
	f.roles = roles
	return "token-" + userID, nil
}
