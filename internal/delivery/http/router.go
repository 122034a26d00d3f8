package http

import (
	"log/slog"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"techcafe/internal/delivery/http/controllers"
	"techcafe/internal/delivery/http/middleware"
	"techcafe/internal/domain"
)

// Controllers groups the handlers mounted by NewRouter.
type Controllers struct {
	Auth         *controllers.AuthController
	User         *controllers.UserController
	Gathering    *controllers.GatheringController
	Discount     *controllers.DiscountController
	Registration *controllers.RegistrationController
}

// NewRouter initializes the HTTP router with all application routes
func NewRouter(c Controllers, verifier domain.TokenVerifier, logger *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	auth := middleware.RequireAuth(verifier, logger)
	staff := middleware.RequireStaff(verifier, logger)

	// Accounts
	mux.HandleFunc("POST /auth/otp", c.Auth.RequestOTP)
	mux.HandleFunc("POST /auth/register", c.Auth.Register)
	mux.HandleFunc("POST /auth/login", c.Auth.Login)
	mux.HandleFunc("POST /auth/reset-password", c.Auth.ResetPassword)
	mux.HandleFunc("GET /users/me", auth(c.User.GetMe))
	mux.HandleFunc("PATCH /users/me", auth(c.User.UpdateMe))
	mux.HandleFunc("PUT /users/me/password", auth(c.User.ChangePassword))

	// Catalog
	mux.HandleFunc("GET /gatherings", c.Gathering.ListGatherings)
	mux.HandleFunc("GET /gatherings/{gatheringID}", c.Gathering.GetGathering)
	mux.HandleFunc("GET /discounts/{code}", c.Discount.LookupDiscount)

	// Registrations and payments
	mux.HandleFunc("GET /registrations", auth(c.Registration.ListMyRegistrations))
	mux.HandleFunc("POST /registrations", auth(c.Registration.CreateRegistration))
	mux.HandleFunc("GET /registrations/{registrationID}", auth(c.Registration.GetMyRegistration))
	mux.HandleFunc("DELETE /registrations/{registrationID}", auth(c.Registration.CancelRegistration))
	mux.HandleFunc("POST /registrations/{registrationID}/payment", auth(c.Registration.InitiatePayment))
	mux.HandleFunc("GET /payments/callback", c.Registration.PaymentCallback)

	// Staff
	mux.HandleFunc("GET /check-in/{token}", staff(c.Registration.CheckIn))
	mux.HandleFunc("POST /manage/gatherings", staff(c.Gathering.CreateGathering))
	mux.HandleFunc("PATCH /manage/gatherings/{gatheringID}", staff(c.Gathering.UpdateGathering))
	mux.HandleFunc("DELETE /manage/gatherings/{gatheringID}", staff(c.Gathering.DeleteGathering))
	mux.HandleFunc("PUT /manage/gatherings/{gatheringID}/presenters", staff(c.Gathering.SetPresenters))
	mux.HandleFunc("GET /manage/gatherings/{gatheringID}/discounts", staff(c.Discount.ListDiscounts))
	mux.HandleFunc("POST /manage/gatherings/{gatheringID}/discounts", staff(c.Discount.CreateDiscount))
	mux.HandleFunc("PATCH /manage/discounts/{discountID}", staff(c.Discount.SetDiscountStatus))
	mux.HandleFunc("PATCH /manage/users/{userID}/ban", staff(c.User.SetBan))

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}
