package helpers

import (
	"errors"
	"regexp"
	"sort"

	"github.com/dlclark/regexp2"
	validation "github.com/go-ozzo/ozzo-validation"
)

var (
	phonePattern    = regexp.MustCompile(`^09\d{9}$`)
	otpPattern      = regexp.MustCompile(`^[0-9]{4}$`)
	markupPattern   = regexp.MustCompile(`(?i)<(script|img|a|div|iframe|style)[^>]*>`)
	passwordPattern = regexp2.MustCompile(`^(?=.*[A-Za-z])(?=.*\d).{8,}$`, regexp2.None)
)

// Field rules shared by request DTOs.
var (
	Phone    = validation.Match(phonePattern).Error("must be a mobile number like 09123456789")
	OTP      = validation.Match(otpPattern).Error("must be a 4 digit code")
	Password = validation.NewStringRule(strongPassword, "must be at least 8 characters with a letter and a digit")
	NoMarkup = validation.NewStringRule(noMarkup, "must not contain html tags")
)

func strongPassword(s string) bool {
	ok, err := passwordPattern.MatchString(s)
	return err == nil && ok
}

func noMarkup(s string) bool {
	return !markupPattern.MatchString(s)
}

// ValidationMessages flattens an ozzo-validation error into "field: message" strings sorted by field.
func ValidationMessages(err error) []string {
	if err == nil {
		return nil
	}
	var fieldErrs validation.Errors
	if !errors.As(err, &fieldErrs) {
		return []string{err.Error()}
	}
	keys := make([]string, 0, len(fieldErrs))
	for k := range fieldErrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, k+": "+fieldErrs[k].Error())
	}
	return msgs
}
