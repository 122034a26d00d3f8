// @title TechCafe API
// @version 1.0
// @description Registration, ticketing and check-in for community gatherings.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the JWT.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"techcafe/config"
	_ "techcafe/docs"
	"techcafe/internal/adapters/auth"
	"techcafe/internal/adapters/email"
	"techcafe/internal/adapters/otpstore"
	"techcafe/internal/adapters/payment"
	"techcafe/internal/adapters/queue"
	"techcafe/internal/adapters/sms"
	httpdelivery "techcafe/internal/delivery/http"
	"techcafe/internal/delivery/http/controllers"
	"techcafe/internal/delivery/http/middleware"
	"techcafe/internal/domain"
	"techcafe/internal/repository/postgres"
	"techcafe/internal/services"
)

func main() {
	migrateDown := flag.Bool("migrate-down", false, "roll back every migration and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	logger := config.NewLogger(cfg, os.Stdout)
	slog.SetDefault(logger)

	if err := run(cfg, logger, *migrateDown); err != nil {
		logger.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger, migrateDown bool) error {

	db, err := sql.Open("postgres", cfg.DBUrl)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStart()
	if err := db.PingContext(startCtx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	logger.Info("database connected")

	if migrateDown {
		if err := postgres.MigrateDown(startCtx, db); err != nil {
			return fmt.Errorf("failed to roll back migrations: %w", err)
		}
		logger.Info("migrations rolled back")
		return nil
	}
	applied, err := postgres.MigrateUp(startCtx, db)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("migrations applied", "count", len(applied), "names", applied)

	// Repositories
	userRepo := postgres.NewUserRepository(db)
	gatheringRepo := postgres.NewGatheringRepository(db)
	registrationRepo := postgres.NewRegistrationRepository(db)
	discountRepo := postgres.NewDiscountRepository(db)
	paymentRepo := postgres.NewPaymentRepository(db)

	var otps domain.OTPStore
	switch cfg.OTPStore {
	case "redis":
		client, err := otpstore.NewRedisClient(startCtx, otpstore.RedisConfig{
			Addr:     cfg.RedisURL,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return err
		}
		defer client.Close()
		otps = otpstore.NewRedisStore(client, "techcafe:otp:")
	default:
		otps = postgres.NewOTPRepository(db)
	}
	logger.Info("otp store ready", "backend", cfg.OTPStore)

	// SMS delivery runs behind a task queue so handlers never wait on the panel.
	sender := sms.NewSender(sms.Config{
		Provider: cfg.SMSProvider,
		Endpoint: cfg.MelipayamakEndpoint,
		Username: cfg.MelipayamakUsername,
		Password: cfg.MelipayamakPassword,
	}, logger)
	worker := queue.NewSMSWorker(sender, logger)

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	var tasks domain.TaskQueue
	var inline *queue.Inline
	switch cfg.TaskQueue {
	case "rabbitmq":
		rmq, err := queue.NewRabbitMQ(cfg.RabbitMQURL, cfg.RabbitMQExchange, cfg.RabbitMQQueue, logger)
		if err != nil {
			return err
		}
		defer rmq.Close()
		go func() {
			if err := rmq.Consume(workerCtx, worker.Handle); err != nil {
				logger.Error("sms consumer stopped", "err", err)
			}
		}()
		tasks = rmq
	default:
		inline = queue.NewInline(worker.Handle, 0, logger)
		tasks = inline
	}

	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.EmailProvider,
		FromAddress: cfg.EmailFromAddress,
		FromName:    cfg.EmailFromName,
		SES: email.SESConfig{
			Region:             cfg.AWSRegion,
			AccessKeyID:        cfg.AWSAccessKeyID,
			SecretAccessKey:    cfg.AWSSecretAccessKey,
			InsecureSkipVerify: cfg.AWSInsecureSkipVerify,
		},
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create mailer: %w", err)
	}
	renderer, err := email.NewTemplateRenderer()
	if err != nil {
		return err
	}

	gateway, err := payment.NewGateway(payment.Config{
		Provider:        cfg.PaymentProvider,
		StripeSecretKey: cfg.StripeSecretKey,
		StripeCurrency:  cfg.StripeCurrency,
	}, logger)
	if err != nil {
		return err
	}

	tokens := auth.NewJWT(cfg.JWTSecret, cfg.JWTIssuer)

	// Services
	userService := services.NewUserService(services.UserDeps{
		Users:       userRepo,
		OTPs:        otps,
		Notifier:    services.NewNotifier(tasks),
		Hasher:      auth.NewBcryptHasher(0),
		TokenIssuer: tokens,
		TokenExpiry: cfg.JWTExpiry,
		OTPTTL:      cfg.OTPTTL,
		Logger:      logger,
	}, cfg.ContextTimeout)
	gatheringService := services.NewGatheringService(gatheringRepo, logger, cfg.ContextTimeout)
	discountService := services.NewDiscountService(discountRepo, gatheringRepo, cfg.ContextTimeout)
	registrationService := services.NewRegistrationService(services.RegistrationDeps{
		Registrations: registrationRepo,
		Gatherings:    gatheringRepo,
		Users:         userRepo,
		Discounts:     discountRepo,
		Payments:      paymentRepo,
		Gateway:       gateway,
		Email:         services.NewEmailService(mailer, renderer, logger),
		PublicBaseURL: cfg.PublicBaseURL,
		Logger:        logger,
	}, cfg.ContextTimeout)

	mux := httpdelivery.NewRouter(httpdelivery.Controllers{
		Auth:         controllers.NewAuthController(logger, userService),
		User:         controllers.NewUserController(logger, userService),
		Gathering:    controllers.NewGatheringController(logger, gatheringService),
		Discount:     controllers.NewDiscountController(logger, discountService),
		Registration: controllers.NewRegistrationController(logger, registrationService, cfg.PublicBaseURL),
	}, tokens, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           middleware.CORS(cfg.CORSAllowedOrigins, middleware.LoggingMiddleware(logger, mux)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Port, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-signals:
		logger.Info("shutting down", "signal", sig.String())
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "err", err)
	}
	cancelWorkers()
	if inline != nil {
		inline.Wait()
	}
	logger.Info("shutdown complete")
	return nil
}
