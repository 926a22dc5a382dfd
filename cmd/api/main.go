package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Jothum123/Zimcrowd-Web-sub000/internal/config"
	"github.com/Jothum123/Zimcrowd-Web-sub000/internal/domain/coverage"
	"github.com/Jothum123/Zimcrowd-Web-sub000/internal/domain/directloan"
	"github.com/Jothum123/Zimcrowd-Web-sub000/internal/domain/fees"
	"github.com/Jothum123/Zimcrowd-Web-sub000/internal/domain/holding"
	"github.com/Jothum123/Zimcrowd-Web-sub000/internal/domain/ledger"
	"github.com/Jothum123/Zimcrowd-Web-sub000/internal/domain/marketplace"
	"github.com/Jothum123/Zimcrowd-Web-sub000/internal/domain/notification"
	"github.com/Jothum123/Zimcrowd-Web-sub000/internal/domain/repayment"
	"github.com/Jothum123/Zimcrowd-Web-sub000/internal/domain/secondary"
	"github.com/Jothum123/Zimcrowd-Web-sub000/internal/domain/user"
	"github.com/Jothum123/Zimcrowd-Web-sub000/internal/middleware"
	"github.com/Jothum123/Zimcrowd-Web-sub000/internal/pkg/database"
	"github.com/Jothum123/Zimcrowd-Web-sub000/internal/pkg/jwt"
	pkgresponse "github.com/Jothum123/Zimcrowd-Web-sub000/internal/pkg/response"
)

func main() {
	cfg := config.Load()
	setupLogger(cfg)

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Msg("Starting ZimCrowd API")

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	redis, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(redis)

	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL)
	calc := fees.NewCalculator(fees.DefaultSchedule())

	// ---------- Repositories ----------
	userRepo := user.NewRepository(db)
	ledgerRepo := ledger.NewRepository(db)
	holdingRepo := holding.NewRepository(db)
	marketRepo := marketplace.NewRepository(db)
	secondaryRepo := secondary.NewRepository(db)
	repayRepo := repayment.NewRepository(db)
	coverageRepo := coverage.NewRepository(db)
	directLoanRepo := directloan.NewRepository(db)
	notificationRepo := notification.NewRepository(db)
	prefsRepo := notification.NewPreferencesRepository(db)

	// ---------- WebSocket hub ----------
	hub := notification.NewHub(redis)
	go hub.Run()
	defer hub.Shutdown()

	// ---------- Services ----------
	ledgerService := ledger.NewService(ledgerRepo)
	marketService := marketplace.NewService(marketRepo, userRepo, holdingRepo, ledgerService, calc)
	repayService := repayment.NewService(repayRepo, marketRepo, holdingRepo, userRepo, ledgerService, calc)
	secondaryService := secondary.NewService(secondaryRepo, holdingRepo, ledgerService, calc)
	coverageService := coverage.NewService(coverageRepo, repayRepo, marketRepo, holdingRepo, ledgerService, calc)
	directLoanService := directloan.NewService(directLoanRepo, userRepo, ledgerService, calc)

	notificationService := notification.NewService(notificationRepo, prefsRepo)
	notificationService.SetRealtimePublisher(notification.NewWSPublisher(hub))
	dispatcher := notification.NewDispatcher(notificationService)

	// Cross-engine wiring: funding generates the schedule, covered
	// installments settle to the platform, engines notify through the
	// dispatcher.
	marketService.SetScheduleGenerator(repayService)
	marketService.SetNotificationService(dispatcher)
	repayService.SetReceivableSettler(coverageService)
	repayService.SetNotificationService(dispatcher)
	coverageService.SetNotificationService(dispatcher)

	// ---------- Handlers ----------
	ledgerHandler := ledger.NewHandler(ledgerService)
	marketHandler := marketplace.NewHandler(marketService)
	holdingHandler := holding.NewHandler(holdingRepo)
	secondaryHandler := secondary.NewHandler(secondaryService)
	repayHandler := repayment.NewHandler(repayService)
	coverageHandler := coverage.NewHandler(coverageService)
	directLoanHandler := directloan.NewHandler(directLoanService)
	notificationHandler := notification.NewHandler(notificationService, hub, cfg.AllowedOrigins)

	authMiddleware := middleware.Auth(jwtService)
	idempotencyMiddleware := middleware.Idempotency(redis, cfg.IdempotencyTTL)

	// Idempotency keys on the authenticated user, so it runs inside auth.
	authed := func(next http.Handler) http.Handler {
		return authMiddleware(idempotencyMiddleware(next))
	}

	// ---------- Router ----------
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))

	// WebSocket endpoint (before Compress)
	r.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token != "" {
			r.Header.Set("Authorization", "Bearer "+token)
		}
		authMiddleware(http.HandlerFunc(notificationHandler.WebSocket)).ServeHTTP(w, r)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		pkgresponse.OK(w, map[string]string{
			"status":  "ok",
			"version": "1.0.0",
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(chimw.Compress(5))

		r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
			pkgresponse.OK(w, map[string]string{"message": "pong"})
		})

		r.Mount("/listings", marketHandler.ListingRoutes(authed))
		r.Mount("/offers", marketHandler.OfferRoutes(authed))

		r.Route("/holdings", func(r chi.Router) {
			r.Use(authed)
			r.Get("/my", holdingHandler.MyHoldings)
			r.Get("/{id}", holdingHandler.GetHolding)
			r.Get("/{id}/transfers", holdingHandler.Transfers)
			// Resale belongs to the secondary-market engine.
			r.Post("/{id}/sell", secondaryHandler.SellHolding)
		})

		r.Mount("/secondary", secondaryHandler.Routes(authed))
		r.Mount("/loans", repayHandler.Routes(authed))

		r.Route("/installments", func(r chi.Router) {
			r.Use(authed)
			r.Get("/my", repayHandler.MyInstallments)
		})

		r.Mount("/coverage", coverageHandler.Routes(authed))
		r.Mount("/direct-loans", directLoanHandler.Routes(authed))
		r.Mount("/wallet", ledgerHandler.Routes(authed))
		r.Mount("/notifications", notificationHandler.Routes(authed))
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}

func setupLogger(cfg *config.Config) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.IsDevelopment() {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "15:04:05",
		})
	}
}
