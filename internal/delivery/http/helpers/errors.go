package helpers

import (
	"errors"
	"log/slog"
	"net/http"

	"techcafe/internal/domain"
)

type errorMapping struct {
	target error
	status int
	code   string
}

// domainErrors is checked in order; the first match decides the response.
var domainErrors = []errorMapping{
	{domain.ErrInvalidInput, http.StatusBadRequest, ErrCodeBadRequest},
	{domain.ErrAlreadyRegistered, http.StatusConflict, ErrCodeConflict},
	{domain.ErrAlreadyPaid, http.StatusConflict, ErrCodeConflict},
	{domain.ErrAlreadyEntered, http.StatusConflict, ErrCodeConflict},
	{domain.ErrDuplicateCode, http.StatusConflict, ErrCodeConflict},
	{domain.ErrDuplicateEmail, http.StatusConflict, ErrCodeConflict},
	{domain.ErrDuplicatePhone, http.StatusConflict, ErrCodeConflict},
	{domain.ErrInvalidDiscountCode, http.StatusBadRequest, ErrCodeBadRequest},
	{domain.ErrPasswordMismatch, http.StatusBadRequest, ErrCodeBadRequest},
	{domain.ErrTimeCancellation, http.StatusBadRequest, ErrCodeBadRequest},
	{domain.ErrGatheringHeld, http.StatusBadRequest, ErrCodeBadRequest},
	{domain.ErrFullCapacity, http.StatusBadRequest, ErrCodeBadRequest},
	{domain.ErrEventIsFree, http.StatusBadRequest, ErrCodeBadRequest},
	{domain.ErrOTPBlank, http.StatusBadRequest, ErrCodeBadRequest},
	{domain.ErrPhoneAlreadyRegistered, http.StatusBadRequest, ErrCodeBadRequest},
	{domain.ErrInvalidOTP, http.StatusNotAcceptable, ErrCodeNotAcceptable},
	{domain.ErrOTPSpam, http.StatusNotAcceptable, ErrCodeNotAcceptable},
	{domain.ErrInvalidUUID, http.StatusNotAcceptable, ErrCodeNotAcceptable},
	{domain.ErrInvalidCredentials, http.StatusUnauthorized, ErrCodeUnauthorized},
	{domain.ErrUserBanned, http.StatusForbidden, ErrCodeForbidden},
	{domain.ErrForbidden, http.StatusForbidden, ErrCodeForbidden},
	{domain.ErrNotFound, http.StatusNotFound, ErrCodeNotFound},
	{domain.ErrUserNotFound, http.StatusNotFound, ErrCodeNotFound},
	{domain.ErrInvalidLink, http.StatusNotFound, ErrCodeNotFound},
	{domain.ErrBadGateway, http.StatusBadGateway, ErrCodeBadGateway},
	{domain.ErrSMSPanel, http.StatusBadGateway, ErrCodeBadGateway},
	{domain.ErrPaymentFailed, http.StatusBadGateway, ErrCodeBadGateway},
}

// StatusForError returns the HTTP status and error code for a service error.
// Unknown errors map to 500.
func StatusForError(err error) (int, string) {
	for _, m := range domainErrors {
		if errors.Is(err, m.target) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, ErrCodeInternalError
}

// WriteServiceError writes the envelope for a service error. Unexpected errors are
// logged and reported without their internal detail.
func WriteServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status, code := StatusForError(err)
	if status == http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed",
			"request_id", w.Header().Get("X-Request-ID"),
			"path", r.URL.Path,
			"method", r.Method,
			"err", err,
		)
		WriteJSONError(w, status, code, "internal server error")
		return
	}
	WriteJSONError(w, status, code, err.Error())
}
