package controllers

import (
	"log/slog"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"techcafe/internal/delivery/http/helpers"
	"techcafe/internal/delivery/http/middleware"
	"techcafe/internal/domain"
)

// UpdateProfileRequest is the request body for PATCH /users/me. All fields are optional.
// Changing phone requires otp, a register_otp code sent to the new number.
type UpdateProfileRequest struct {
	Phone     *string `json:"phone"`
	OTP       *string `json:"otp"`
	Email     *string `json:"email"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	JobField  *string `json:"job_field"`
}

// Validate implements Validator.
func (u UpdateProfileRequest) Validate() []string {
	return helpers.ValidationMessages(validation.ValidateStruct(&u,
		validation.Field(&u.Phone, helpers.Phone),
		validation.Field(&u.OTP, helpers.OTP),
		validation.Field(&u.Email, is.Email),
		validation.Field(&u.FirstName, validation.Length(1, 150), helpers.NoMarkup),
		validation.Field(&u.LastName, validation.Length(1, 150), helpers.NoMarkup),
		validation.Field(&u.JobField, validation.Length(0, 150), helpers.NoMarkup),
	))
}

// ChangePasswordRequest is the request body for PUT /users/me/password.
type ChangePasswordRequest struct {
	OldPassword  string `json:"old_password"`
	NewPassword  string `json:"new_password"`
	NewPassword1 string `json:"new_password1"`
}

// Validate implements Validator.
func (p ChangePasswordRequest) Validate() []string {
	return helpers.ValidationMessages(validation.ValidateStruct(&p,
		validation.Field(&p.OldPassword, validation.Required),
		validation.Field(&p.NewPassword, validation.Required, helpers.Password),
		validation.Field(&p.NewPassword1, validation.Required),
	))
}

// SetBanRequest is the request body for PATCH /manage/users/{userID}/ban.
type SetBanRequest struct {
	IsBan *bool `json:"is_ban"`
}

// Validate implements Validator.
func (b SetBanRequest) Validate() []string {
	if b.IsBan == nil {
		return []string{"is_ban: cannot be blank"}
	}
	return nil
}

// UserSuccessResponse is the success response envelope for endpoints returning a user (200).
type UserSuccessResponse struct {
	Data  *domain.User      `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// UserController handles profile endpoints and staff user moderation.
type UserController struct {
	Logger  *slog.Logger
	Service domain.UserService
}

// NewUserController creates a UserController with the given logger and service.
func NewUserController(logger *slog.Logger, svc domain.UserService) *UserController {
	return &UserController{
		Logger:  logger,
		Service: svc,
	}
}

// GetMe godoc
// @Summary Get current user
// @Description Returns the authenticated user's profile. Requires Bearer token.
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.UserSuccessResponse "data contains the user"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /users/me [get]
func (c *UserController) GetMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	user, err := c.Service.GetByID(r.Context(), userID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, user)
}

// UpdateMe godoc
// @Summary Update current user
// @Description Updates name, email, job field, or phone. A new phone needs a register_otp code sent to that number.
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body UpdateProfileRequest true "Fields to update (all optional)"
// @Success 200 {object} controllers.UserSuccessResponse "data contains the updated user"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 406 {object} helpers.APIResponse "error.code: not_acceptable (invalid otp)"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Router /users/me [patch]
func (c *UserController) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	var req UpdateProfileRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	user, err := c.Service.UpdateProfile(r.Context(), userID, domain.ProfileUpdate{
		Phone:     req.Phone,
		OTPCode:   req.OTP,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		JobField:  req.JobField,
	})
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, user)
}

// ChangePassword godoc
// @Summary Change password
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body ChangePasswordRequest true "Old and new password"
// @Success 200 {object} controllers.MessageSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Router /users/me/password [put]
func (c *UserController) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	var req ChangePasswordRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	if err := c.Service.ChangePassword(r.Context(), userID, req.OldPassword, req.NewPassword, req.NewPassword1); err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, MessageResponse{Message: "password changed"})
}

// SetBan godoc
// @Summary Ban or unban a user
// @Description Banned users can still log in but cannot register for gatherings. Staff only.
// @Tags manage
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param userID path string true "User ID (UUID)"
// @Param body body SetBanRequest true "Ban flag"
// @Success 200 {object} controllers.UserSuccessResponse "data contains the updated user"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /manage/users/{userID}/ban [patch]
func (c *UserController) SetBan(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")
	if !uuidRegex.MatchString(userID) {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "invalid userID")
		return
	}
	var req SetBanRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	user, err := c.Service.SetBan(r.Context(), userID, *req.IsBan)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, user)
}
