package controllers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"

	"techcafe/internal/delivery/http/helpers"
	"techcafe/internal/delivery/http/middleware"
	"techcafe/internal/domain"
)

// paymentGatewayActivate tells clients the pending registration can be paid.
const paymentGatewayActivate = "activate"

// RegistrationGathering is the gathering summary embedded in registration views.
type RegistrationGathering struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Price       int64     `json:"price"`
	Date        time.Time `json:"date"`
	IsOnline    bool      `json:"is_online"`
	IsHeld      bool      `json:"is_held"`
	FilledSeats int       `json:"filled_seats"`
	EmptySeats  int       `json:"empty_seats"`
}

// PaidRegistrationView is returned for free gatherings and paid registrations.
// It carries what the holder needs to get in.
type PaidRegistrationView struct {
	ID         string                `json:"id"`
	Gathering  RegistrationGathering `json:"gathering"`
	Link       string                `json:"link,omitempty"`
	IsPaid     bool                  `json:"is_paid"`
	CheckIn    bool                  `json:"check_in"`
	Token      string                `json:"token"`
	CheckInURL string                `json:"check_in_url"`
	CreatedAt  time.Time             `json:"created_at"`
}

// PendingRegistrationView is returned while a priced registration is unpaid. It has no token.
type PendingRegistrationView struct {
	ID             string                `json:"id"`
	Gathering      RegistrationGathering `json:"gathering"`
	IsPaid         bool                  `json:"is_paid"`
	PaymentGateway string                `json:"payment_gateway"`
	CreatedAt      time.Time             `json:"created_at"`
}

// CreateRegistrationRequest is the request body for POST /registrations.
type CreateRegistrationRequest struct {
	GatheringID  string `json:"gathering_id"`
	DiscountCode string `json:"discount_code"`
}

// Validate implements Validator.
func (c CreateRegistrationRequest) Validate() []string {
	return helpers.ValidationMessages(validation.ValidateStruct(&c,
		validation.Field(&c.GatheringID, validation.Required, validation.Match(uuidRegex).Error("must be a UUID")),
		validation.Field(&c.DiscountCode, validation.Length(0, 50)),
	))
}

// CheckInResponse is the response body for GET /check-in/{token}.
type CheckInResponse struct {
	RegistrationID string `json:"registration_id"`
	GatheringID    string `json:"gathering_id"`
	UserID         string `json:"user_id"`
	CheckIn        bool   `json:"check_in"`
}

// PaymentCallbackResponse is the response body for GET /payments/callback.
type PaymentCallbackResponse struct {
	RegistrationID string `json:"registration_id"`
	IsPaid         bool   `json:"is_paid"`
}

// RegistrationSuccessResponse documents the envelope for a single registration view.
// data is a PaidRegistrationView, or a PendingRegistrationView while payment is due.
type RegistrationSuccessResponse struct {
	Data  PaidRegistrationView `json:"data"`
	Error *helpers.APIError    `json:"error"`
}

// ListRegistrationsSuccessResponse documents the envelope for GET /registrations (200).
type ListRegistrationsSuccessResponse struct {
	Data  []PaidRegistrationView `json:"data"`
	Error *helpers.APIError      `json:"error"`
}

// PaymentSuccessResponse is the success response envelope for POST /registrations/{registrationID}/payment (200).
type PaymentSuccessResponse struct {
	Data  *domain.PaymentResult `json:"data"`
	Error *helpers.APIError     `json:"error"`
}

// PaymentCallbackSuccessResponse is the success response envelope for GET /payments/callback (200).
type PaymentCallbackSuccessResponse struct {
	Data  PaymentCallbackResponse `json:"data"`
	Error *helpers.APIError       `json:"error"`
}

// CheckInSuccessResponse is the success response envelope for GET /check-in/{token} (200).
type CheckInSuccessResponse struct {
	Data  CheckInResponse   `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// RegistrationController serves attendee registrations, payments and staff check-in.
type RegistrationController struct {
	Logger        *slog.Logger
	Service       domain.RegistrationService
	PublicBaseURL string
}

func NewRegistrationController(logger *slog.Logger, svc domain.RegistrationService, publicBaseURL string) *RegistrationController {
	return &RegistrationController{
		Logger:        logger,
		Service:       svc,
		PublicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

func (c *RegistrationController) view(rg *domain.RegistrationWithGathering) any {
	reg, g := rg.Registration, rg.Gathering
	summary := RegistrationGathering{
		ID:          g.ID,
		Title:       g.Title,
		Price:       g.Price,
		Date:        g.Date,
		IsOnline:    g.IsOnline,
		IsHeld:      g.IsHeld,
		FilledSeats: g.FilledSeats,
		EmptySeats:  g.EmptySeats(),
	}
	if !reg.HasTicket(g) {
		return PendingRegistrationView{
			ID:             reg.ID,
			Gathering:      summary,
			IsPaid:         reg.IsPaid,
			PaymentGateway: paymentGatewayActivate,
			CreatedAt:      reg.CreatedAt,
		}
	}
	return PaidRegistrationView{
		ID:         reg.ID,
		Gathering:  summary,
		Link:       g.Link,
		IsPaid:     reg.IsPaid,
		CheckIn:    reg.CheckIn,
		Token:      reg.Token,
		CheckInURL: domain.CheckInURL(c.PublicBaseURL, reg.Token),
		CreatedAt:  reg.CreatedAt,
	}
}

// ListMyRegistrations godoc
// @Summary List my registrations
// @Description Paid or free registrations include the check-in token and URL; unpaid ones show payment_gateway "activate" instead.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.ListRegistrationsSuccessResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Router /registrations [get]
func (c *RegistrationController) ListMyRegistrations(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	list, err := c.Service.ListMyRegistrations(r.Context(), userID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	views := make([]any, 0, len(list))
	for _, rg := range list {
		views = append(views, c.view(rg))
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, views)
}

// CreateRegistration godoc
// @Summary Register for a gathering
// @Description Reserves a seat. Rejected when already registered, the gathering is held or full, the user is banned, or the discount code does not apply.
// @Tags registrations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CreateRegistrationRequest true "Gathering and optional discount code"
// @Success 201 {object} controllers.RegistrationSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (banned)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (already registered)"
// @Router /registrations [post]
func (c *RegistrationController) CreateRegistration(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	var req CreateRegistrationRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	reg, err := c.Service.CreateRegistration(r.Context(), userID, req.GatheringID, strings.TrimSpace(req.DiscountCode))
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	rg, err := c.Service.GetMyRegistration(r.Context(), userID, reg.ID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, c.view(rg))
}

// GetMyRegistration godoc
// @Summary Get one of my registrations
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param registrationID path string true "Registration ID (UUID)"
// @Success 200 {object} controllers.RegistrationSuccessResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /registrations/{registrationID} [get]
func (c *RegistrationController) GetMyRegistration(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	id := r.PathValue("registrationID")
	if !uuidRegex.MatchString(id) {
		helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "registration not found")
		return
	}
	rg, err := c.Service.GetMyRegistration(r.Context(), userID, id)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, c.view(rg))
}

// CancelRegistration godoc
// @Summary Cancel a registration
// @Description Only allowed more than 48 hours before the gathering and while it is not held.
// @Tags registrations
// @Security BearerAuth
// @Param registrationID path string true "Registration ID (UUID)"
// @Success 204 "No Content"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /registrations/{registrationID} [delete]
func (c *RegistrationController) CancelRegistration(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	id := r.PathValue("registrationID")
	if !uuidRegex.MatchString(id) {
		helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "registration not found")
		return
	}
	if err := c.Service.CancelRegistration(r.Context(), userID, id); err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// InitiatePayment godoc
// @Summary Pay for a registration
// @Description Opens a gateway checkout and returns the redirect URL. When the discounted amount is zero the registration is marked paid without contacting the gateway.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param registrationID path string true "Registration ID (UUID)"
// @Success 200 {object} controllers.PaymentSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (banned)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (already paid)"
// @Failure 502 {object} helpers.APIResponse "error.code: bad_gateway"
// @Router /registrations/{registrationID}/payment [post]
func (c *RegistrationController) InitiatePayment(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	id := r.PathValue("registrationID")
	if !uuidRegex.MatchString(id) {
		helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "registration not found")
		return
	}
	res, err := c.Service.InitiatePayment(r.Context(), userID, id, c.PublicBaseURL+"/payments/callback")
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, res)
}

// PaymentCallback godoc
// @Summary Payment gateway return URL
// @Description Verifies the payment behind the tracking code and marks the registration paid. Safe to call more than once.
// @Tags registrations
// @Produce json
// @Param tc query string true "Tracking code"
// @Success 200 {object} controllers.PaymentCallbackSuccessResponse
// @Failure 404 {object} helpers.APIResponse "error.code: not_found (invalid link)"
// @Failure 502 {object} helpers.APIResponse "error.code: bad_gateway (payment failed)"
// @Router /payments/callback [get]
func (c *RegistrationController) PaymentCallback(w http.ResponseWriter, r *http.Request) {
	reg, err := c.Service.HandlePaymentCallback(r.Context(), strings.TrimSpace(r.URL.Query().Get("tc")))
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, PaymentCallbackResponse{RegistrationID: reg.ID, IsPaid: reg.IsPaid})
}

// CheckIn godoc
// @Summary Admit a ticket holder
// @Description Staff only. Flips check_in once; a second scan of the same token is rejected.
// @Tags manage
// @Produce json
// @Security BearerAuth
// @Param token path string true "Check-in token (UUID)"
// @Success 200 {object} controllers.CheckInSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request (gathering held)"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 406 {object} helpers.APIResponse "error.code: not_acceptable (invalid token)"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (already entered)"
// @Router /check-in/{token} [get]
func (c *RegistrationController) CheckIn(w http.ResponseWriter, r *http.Request) {
	reg, err := c.Service.CheckIn(r.Context(), r.PathValue("token"))
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, CheckInResponse{
		RegistrationID: reg.ID,
		GatheringID:    reg.GatheringID,
		UserID:         reg.UserID,
		CheckIn:        reg.CheckIn,
	})
}
