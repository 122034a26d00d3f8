package controllers

import (
	"log/slog"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"

	"techcafe/internal/delivery/http/helpers"
	"techcafe/internal/domain"
)

// RequestOTPRequest is the request body for POST /auth/otp.
type RequestOTPRequest struct {
	Phone   string `json:"phone"`
	Purpose string `json:"purpose" example:"register_otp"`
}

// Validate implements Validator.
func (o RequestOTPRequest) Validate() []string {
	return helpers.ValidationMessages(validation.ValidateStruct(&o,
		validation.Field(&o.Phone, validation.Required, helpers.Phone),
		validation.Field(&o.Purpose, validation.Required,
			validation.In(string(domain.OTPPurposeRegister), string(domain.OTPPurposeResetPassword)).
				Error("must be register_otp or reset_password_otp")),
	))
}

// RegisterRequest is the request body for POST /auth/register.
type RegisterRequest struct {
	Phone     string `json:"phone"`
	OTP       string `json:"otp"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Password  string `json:"password"`
	Password1 string `json:"password1"`
}

// Validate implements Validator.
func (reg RegisterRequest) Validate() []string {
	return helpers.ValidationMessages(validation.ValidateStruct(&reg,
		validation.Field(&reg.Phone, validation.Required, helpers.Phone),
		validation.Field(&reg.OTP, validation.Required, helpers.OTP),
		validation.Field(&reg.FirstName, validation.Required, validation.Length(1, 150), helpers.NoMarkup),
		validation.Field(&reg.LastName, validation.Required, validation.Length(1, 150), helpers.NoMarkup),
		validation.Field(&reg.Password, validation.Required, helpers.Password),
		validation.Field(&reg.Password1, validation.Required),
	))
}

// LoginRequest is the request body for POST /auth/login.
type LoginRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// Validate implements Validator.
func (l LoginRequest) Validate() []string {
	return helpers.ValidationMessages(validation.ValidateStruct(&l,
		validation.Field(&l.Phone, validation.Required, helpers.Phone),
		validation.Field(&l.Password, validation.Required),
	))
}

// ResetPasswordRequest is the request body for POST /auth/reset-password.
type ResetPasswordRequest struct {
	Phone     string `json:"phone"`
	OTP       string `json:"otp"`
	Password  string `json:"password"`
	Password1 string `json:"password1"`
}

// Validate implements Validator.
func (p ResetPasswordRequest) Validate() []string {
	return helpers.ValidationMessages(validation.ValidateStruct(&p,
		validation.Field(&p.Phone, validation.Required, helpers.Phone),
		validation.Field(&p.OTP, validation.Required, helpers.OTP),
		validation.Field(&p.Password, validation.Required, helpers.Password),
		validation.Field(&p.Password1, validation.Required),
	))
}

// LoginResponse is the response body for POST /auth/login
type LoginResponse struct {
	Token     string       `json:"token"`
	TokenType string       `json:"token_type"`
	User      *domain.User `json:"user"`
}

// MessageResponse carries a human readable confirmation.
type MessageResponse struct {
	Message string `json:"message"`
}

// RegisterSuccessResponse is the success response envelope for POST /auth/register (201).
type RegisterSuccessResponse struct {
	Data  *domain.User      `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// LoginSuccessResponse is the success response envelope for POST /auth/login (200).
type LoginSuccessResponse struct {
	Data  LoginResponse     `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// MessageSuccessResponse is the success envelope for endpoints that only confirm an action.
type MessageSuccessResponse struct {
	Data  MessageResponse   `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// AuthController handles the phone + OTP account flows.
type AuthController struct {
	Logger  *slog.Logger
	Service domain.UserService
}

func NewAuthController(logger *slog.Logger, svc domain.UserService) *AuthController {
	return &AuthController{
		Logger:  logger,
		Service: svc,
	}
}

// RequestOTP godoc
// @Summary Send a one-time code
// @Description Sends a 4 digit code by SMS. register_otp needs an unused phone, reset_password_otp an existing account. A second request while a code is live is rejected.
// @Tags auth
// @Accept json
// @Produce json
// @Param body body RequestOTPRequest true "Phone and purpose"
// @Success 200 {object} controllers.MessageSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 406 {object} helpers.APIResponse "error.code: not_acceptable (code already sent)"
// @Failure 502 {object} helpers.APIResponse "error.code: bad_gateway (sms panel)"
// @Router /auth/otp [post]
func (c *AuthController) RequestOTP(w http.ResponseWriter, r *http.Request) {
	var req RequestOTPRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	if err := c.Service.RequestOTP(r.Context(), req.Phone, domain.OTPPurpose(req.Purpose)); err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, MessageResponse{Message: "code sent"})
}

// Register godoc
// @Summary Create an account
// @Description Creates an account after checking the register_otp code. The code is consumed on success.
// @Tags auth
// @Accept json
// @Produce json
// @Param body body RegisterRequest true "Account data"
// @Success 201 {object} controllers.RegisterSuccessResponse "data contains the created user"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 406 {object} helpers.APIResponse "error.code: not_acceptable (invalid otp)"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /auth/register [post]
func (c *AuthController) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	user, err := c.Service.Register(r.Context(), domain.RegisterUserRequest{
		Phone:     req.Phone,
		OTPCode:   req.OTP,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
		Password1: req.Password1,
	})
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, user)
}

// Login godoc
// @Summary Log in
// @Description Authenticate with phone and password. Returns a JWT whose roles include staff for staff accounts.
// @Tags auth
// @Accept json
// @Produce json
// @Param body body LoginRequest true "Login credentials"
// @Success 200 {object} controllers.LoginSuccessResponse "data contains token, token_type, and user"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /auth/login [post]
func (c *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	token, user, err := c.Service.Login(r.Context(), req.Phone, req.Password)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, LoginResponse{Token: token, TokenType: "Bearer", User: user})
}

// ResetPassword godoc
// @Summary Reset a forgotten password
// @Description Sets a new password after checking the reset_password_otp code.
// @Tags auth
// @Accept json
// @Produce json
// @Param body body ResetPasswordRequest true "Phone, code and new password"
// @Success 200 {object} controllers.MessageSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 406 {object} helpers.APIResponse "error.code: not_acceptable (invalid otp)"
// @Router /auth/reset-password [post]
func (c *AuthController) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	if err := c.Service.ResetPassword(r.Context(), req.Phone, req.OTP, req.Password, req.Password1); err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, MessageResponse{Message: "password changed"})
}
