package domain

import "errors"

// Generic sentinel errors shared by repositories and services.
var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = errors.New("invalid input")
)

// Registration engine errors. Messages are returned to API callers verbatim.
var (
	ErrAlreadyRegistered   = errors.New("the user has already registered for this event")
	ErrGatheringHeld       = errors.New("gathering has been held")
	ErrFullCapacity        = errors.New("all seats are occupied")
	ErrUserBanned          = errors.New("user account is limited to register for the event, please contact support")
	ErrInvalidDiscountCode = errors.New("invalid discount code")
	ErrTimeCancellation    = errors.New("you cannot cancel your ticket (to cancel the ticket, it must be more than 2 days before the event). If you need to cancel immediately, contact support")
	ErrAlreadyEntered      = errors.New("already entered")
	ErrInvalidUUID         = errors.New("invalid UUID")
	ErrAlreadyPaid         = errors.New("payment has already been made successfully for this registration")
	ErrEventIsFree         = errors.New("this event is free and you cannot pay a fee")
)

// Payment collaborator errors.
var (
	ErrInvalidLink   = errors.New("invalid link")
	ErrBadGateway    = errors.New("payment gateway error")
	ErrPaymentFailed = errors.New("payment failed. If money was deducted, it will be returned to your account within 48 hours")
)

// Account and OTP errors.
var (
	ErrInvalidOTP             = errors.New("invalid otp code")
	ErrOTPBlank               = errors.New("otp can't be blank")
	ErrOTPSpam                = errors.New("please wait for a while to resend and try again")
	ErrSMSPanel               = errors.New("there was an error sending a message from the SMS panel")
	ErrPasswordMismatch       = errors.New("password mismatched")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrPhoneAlreadyRegistered = errors.New("the user already registered")
)
