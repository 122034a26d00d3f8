package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"techcafe/internal/domain"
)

type registrationService struct {
	registrationRepo domain.RegistrationRepository
	gatheringRepo    domain.GatheringRepository
	userRepo         domain.UserRepository
	discountRepo     domain.DiscountRepository
	paymentRepo      domain.PaymentRepository
	gateway          domain.PaymentGateway
	emailService     domain.EmailService
	publicBaseURL    string
	logger           *slog.Logger
	contextTimeout   time.Duration
	now              func() time.Time
}

// RegistrationDeps groups the collaborators of the registration engine.
type RegistrationDeps struct {
	Registrations domain.RegistrationRepository
	Gatherings    domain.GatheringRepository
	Users         domain.UserRepository
	Discounts     domain.DiscountRepository
	Payments      domain.PaymentRepository
	Gateway       domain.PaymentGateway
	Email         domain.EmailService
	PublicBaseURL string
	Logger        *slog.Logger
}

func NewRegistrationService(deps RegistrationDeps, timeout time.Duration) domain.RegistrationService {
	return &registrationService{
		registrationRepo: deps.Registrations,
		gatheringRepo:    deps.Gatherings,
		userRepo:         deps.Users,
		discountRepo:     deps.Discounts,
		paymentRepo:      deps.Payments,
		gateway:          deps.Gateway,
		emailService:     deps.Email,
		publicBaseURL:    strings.TrimRight(deps.PublicBaseURL, "/"),
		logger:           deps.Logger,
		contextTimeout:   timeout,
		now:              time.Now,
	}
}

func (s *registrationService) CreateRegistration(ctx context.Context, userID, gatheringID, discountCode string) (*domain.Registration, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if _, err := s.registrationRepo.GetByUserAndGathering(ctx, userID, gatheringID); err == nil {
		return nil, domain.ErrAlreadyRegistered
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("get registration: %w", err)
	}

	gathering, err := s.gatheringRepo.GetByID(ctx, gatheringID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get gathering: %w", err)
	}
	if gathering.IsHeld {
		return nil, domain.ErrGatheringHeld
	}
	if gathering.IsFull() {
		return nil, domain.ErrFullCapacity
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user.IsBan {
		return nil, domain.ErrUserBanned
	}

	var discountID *string
	if code := strings.TrimSpace(discountCode); code != "" {
		discount, err := s.discountRepo.GetByCode(ctx, code)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, domain.ErrInvalidDiscountCode
			}
			return nil, fmt.Errorf("get discount: %w", err)
		}
		if !discount.AppliesTo(gathering.ID) {
			return nil, domain.ErrInvalidDiscountCode
		}
		discountID = &discount.ID
	}

	reg := domain.NewRegistration(userID, gathering.ID, uuid.NewString(), discountID, s.now())
	if err := s.registrationRepo.CreateWithinCapacity(ctx, reg); err != nil {
		switch {
		case errors.Is(err, domain.ErrAlreadyRegistered),
			errors.Is(err, domain.ErrGatheringHeld),
			errors.Is(err, domain.ErrFullCapacity),
			errors.Is(err, domain.ErrNotFound):
			return nil, err
		}
		return nil, fmt.Errorf("create registration: %w", err)
	}
	return reg, nil
}

func (s *registrationService) CancelRegistration(ctx context.Context, userID, registrationID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	reg, gathering, err := s.ownedRegistration(ctx, userID, registrationID)
	if err != nil {
		return err
	}
	if gathering.IsHeld {
		return domain.ErrGatheringHeld
	}
	if gathering.Date.Sub(s.now()) <= domain.CancellationWindow {
		return domain.ErrTimeCancellation
	}
	if err := s.registrationRepo.Delete(ctx, reg.ID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("delete registration: %w", err)
	}
	return nil
}

func (s *registrationService) CheckIn(ctx context.Context, token string) (*domain.Registration, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if _, err := uuid.Parse(token); err != nil {
		return nil, domain.ErrInvalidUUID
	}
	reg, err := s.registrationRepo.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidUUID
		}
		return nil, fmt.Errorf("get registration by token: %w", err)
	}
	gathering, err := s.gatheringRepo.GetByID(ctx, reg.GatheringID)
	if err != nil {
		return nil, fmt.Errorf("get gathering: %w", err)
	}
	if gathering.IsHeld {
		return nil, domain.ErrGatheringHeld
	}
	if reg.CheckIn {
		return nil, domain.ErrAlreadyEntered
	}
	changed, err := s.registrationRepo.CheckIn(ctx, reg.ID)
	if err != nil {
		return nil, fmt.Errorf("check in: %w", err)
	}
	if !changed {
		return nil, domain.ErrAlreadyEntered
	}
	reg.CheckIn = true
	return reg, nil
}

func (s *registrationService) InitiatePayment(ctx context.Context, userID, registrationID, callbackURL string) (*domain.PaymentResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	reg, gathering, err := s.ownedRegistration(ctx, userID, registrationID)
	if err != nil {
		return nil, err
	}
	if gathering.IsFree() {
		return nil, domain.ErrEventIsFree
	}
	if gathering.IsFull() {
		return nil, domain.ErrFullCapacity
	}
	if gathering.IsHeld {
		return nil, domain.ErrGatheringHeld
	}
	if reg.IsPaid {
		return nil, domain.ErrAlreadyPaid
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user.IsBan {
		return nil, domain.ErrUserBanned
	}
	if reg.PaymentID != nil {
		record, paid, err := s.settlePendingPayment(ctx, reg, user, gathering)
		if err != nil {
			return nil, err
		}
		if paid {
			return &domain.PaymentResult{Paid: true, Amount: record.Amount, TrackingCode: record.TrackingCode}, nil
		}
	}

	amount := gathering.Price
	if reg.DiscountID != nil {
		discount, err := s.discountRepo.GetByID(ctx, *reg.DiscountID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("get discount: %w", err)
		}
		if discount != nil {
			amount = domain.FinalPrice(gathering.Price, discount.Percentage)
		}
	}

	if amount <= 0 {
		paid, err := s.registrationRepo.MarkPaid(ctx, reg.ID)
		if err != nil {
			return nil, fmt.Errorf("mark paid: %w", err)
		}
		if !paid {
			return nil, domain.ErrAlreadyPaid
		}
		reg.IsPaid = true
		s.sendTicket(ctx, user, reg, gathering)
		return &domain.PaymentResult{Paid: true, Amount: 0}, nil
	}

	session, err := s.gateway.Begin(ctx, domain.PaymentRequest{
		Amount:         amount,
		RegistrationID: reg.ID,
		Description:    gathering.Title,
		CallbackURL:    callbackURL,
		PayerMobile:    user.Phone,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "payment gateway begin failed", "registration_id", reg.ID, "err", err)
		return nil, domain.ErrBadGateway
	}

	now := s.now()
	record := &domain.PaymentRecord{
		RegistrationID: reg.ID,
		TrackingCode:   session.TrackingCode,
		Amount:         amount,
		Status:         domain.PaymentPending,
		Provider:       s.gateway.Name(),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.paymentRepo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("create payment record: %w", err)
	}
	if err := s.registrationRepo.AttachPayment(ctx, reg.ID, record.ID); err != nil {
		return nil, fmt.Errorf("attach payment: %w", err)
	}
	return &domain.PaymentResult{
		Amount:       amount,
		TrackingCode: session.TrackingCode,
		RedirectURL:  session.RedirectURL,
	}, nil
}

// settlePendingPayment closes the registration's open gateway session before another one
// is opened. A session that was paid in the meantime completes the registration instead.
func (s *registrationService) settlePendingPayment(ctx context.Context, reg *domain.Registration, user *domain.User, g *domain.Gathering) (*domain.PaymentRecord, bool, error) {
	record, err := s.paymentRepo.GetByID(ctx, *reg.PaymentID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get payment record: %w", err)
	}
	if record.Status != domain.PaymentPending {
		return record, false, nil
	}

	paid, err := s.gateway.Verify(ctx, record.TrackingCode)
	if err != nil {
		s.logger.ErrorContext(ctx, "payment verify failed", "registration_id", reg.ID, "err", err)
		return nil, false, domain.ErrBadGateway
	}
	if paid {
		if err := s.paymentRepo.UpdateStatus(ctx, record.ID, domain.PaymentSucceeded); err != nil {
			return nil, false, fmt.Errorf("update payment status: %w", err)
		}
		fresh, err := s.registrationRepo.MarkPaid(ctx, reg.ID)
		if err != nil {
			return nil, false, fmt.Errorf("mark paid: %w", err)
		}
		reg.IsPaid = true
		if fresh {
			s.sendTicket(ctx, user, reg, g)
		}
		return record, true, nil
	}

	if err := s.gateway.Cancel(ctx, record.TrackingCode); err != nil {
		s.logger.ErrorContext(ctx, "payment cancel failed", "registration_id", reg.ID, "err", err)
		return nil, false, domain.ErrBadGateway
	}
	if err := s.paymentRepo.UpdateStatus(ctx, record.ID, domain.PaymentFailed); err != nil {
		return nil, false, fmt.Errorf("update payment status: %w", err)
	}
	return record, false, nil
}

func (s *registrationService) HandlePaymentCallback(ctx context.Context, trackingCode string) (*domain.Registration, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	trackingCode = strings.TrimSpace(trackingCode)
	if trackingCode == "" {
		return nil, domain.ErrInvalidLink
	}
	record, err := s.paymentRepo.GetByTrackingCode(ctx, trackingCode)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidLink
		}
		return nil, fmt.Errorf("get payment record: %w", err)
	}

	succeeded, err := s.gateway.Verify(ctx, trackingCode)
	if err != nil {
		s.logger.ErrorContext(ctx, "payment verify failed", "tracking_code", trackingCode, "err", err)
		return nil, domain.ErrBadGateway
	}
	if !succeeded {
		if err := s.paymentRepo.UpdateStatus(ctx, record.ID, domain.PaymentFailed); err != nil {
			return nil, fmt.Errorf("update payment status: %w", err)
		}
		return nil, domain.ErrPaymentFailed
	}
	if err := s.paymentRepo.UpdateStatus(ctx, record.ID, domain.PaymentSucceeded); err != nil {
		return nil, fmt.Errorf("update payment status: %w", err)
	}

	reg, err := s.registrationRepo.GetByID(ctx, record.RegistrationID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get registration: %w", err)
	}
	fresh, err := s.registrationRepo.MarkPaid(ctx, reg.ID)
	if err != nil {
		return nil, fmt.Errorf("mark paid: %w", err)
	}
	reg.IsPaid = true
	if fresh {
		s.notifyPaid(ctx, reg)
	}
	return reg, nil
}

func (s *registrationService) ListMyRegistrations(ctx context.Context, userID string) ([]*domain.RegistrationWithGathering, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	regs, err := s.registrationRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	out := make([]*domain.RegistrationWithGathering, 0, len(regs))
	for _, reg := range regs {
		g, err := s.gatheringRepo.GetByID(ctx, reg.GatheringID)
		if err != nil {
			return nil, fmt.Errorf("get gathering %s: %w", reg.GatheringID, err)
		}
		out = append(out, &domain.RegistrationWithGathering{Registration: reg, Gathering: g})
	}
	return out, nil
}

func (s *registrationService) GetMyRegistration(ctx context.Context, userID, registrationID string) (*domain.RegistrationWithGathering, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	reg, g, err := s.ownedRegistration(ctx, userID, registrationID)
	if err != nil {
		return nil, err
	}
	return &domain.RegistrationWithGathering{Registration: reg, Gathering: g}, nil
}

// ownedRegistration loads a registration of userID with its gathering.
// Another user's registration is reported as not found.
func (s *registrationService) ownedRegistration(ctx context.Context, userID, registrationID string) (*domain.Registration, *domain.Gathering, error) {
	reg, err := s.registrationRepo.GetByID(ctx, registrationID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, domain.ErrNotFound
		}
		return nil, nil, fmt.Errorf("get registration: %w", err)
	}
	if reg.UserID != userID {
		return nil, nil, domain.ErrNotFound
	}
	gathering, err := s.gatheringRepo.GetByID(ctx, reg.GatheringID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, domain.ErrNotFound
		}
		return nil, nil, fmt.Errorf("get gathering: %w", err)
	}
	return reg, gathering, nil
}

func (s *registrationService) notifyPaid(ctx context.Context, reg *domain.Registration) {
	user, err := s.userRepo.GetByID(ctx, reg.UserID)
	if err != nil {
		s.logger.WarnContext(ctx, "ticket email skipped", "registration_id", reg.ID, "err", err)
		return
	}
	gathering, err := s.gatheringRepo.GetByID(ctx, reg.GatheringID)
	if err != nil {
		s.logger.WarnContext(ctx, "ticket email skipped", "registration_id", reg.ID, "err", err)
		return
	}
	s.sendTicket(ctx, user, reg, gathering)
}

// sendTicket mails the ticket when the user has an email. Failures are only logged.
func (s *registrationService) sendTicket(ctx context.Context, user *domain.User, reg *domain.Registration, g *domain.Gathering) {
	if s.emailService == nil || user.Email == "" {
		return
	}
	data := &domain.TicketEmailData{
		Email:          user.Email,
		FirstName:      user.FirstName,
		GatheringTitle: g.Title,
		GatheringDate:  g.Date,
		Address:        g.Address,
		Link:           g.Link,
		Token:          reg.Token,
		CheckInURL:     domain.CheckInURL(s.publicBaseURL, reg.Token),
	}
	if err := s.emailService.SendTicket(ctx, data); err != nil {
		s.logger.WarnContext(ctx, "ticket email failed", "registration_id", reg.ID, "err", err)
	}
}
