package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

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
	"github.com/Jothum123/Zimcrowd-Web-sub000/internal/pkg/database"
)

// notificationRetention is how long in-app notifications are kept.
const notificationRetention = 90 * 24 * time.Hour

// sweep is one named deadline pass. Count is reported as int64 across
// the board to keep the loop uniform.
type sweep struct {
	name string
	run  func(ctx context.Context) (int64, error)
}

func main() {
	cfg := config.Load()
	setupLogger(cfg)

	log.Info().Dur("interval", cfg.SweepInterval).Msg("Starting sweeper")

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	calc := fees.NewCalculator(fees.DefaultSchedule())

	userRepo := user.NewRepository(db)
	holdingRepo := holding.NewRepository(db)
	marketRepo := marketplace.NewRepository(db)
	repayRepo := repayment.NewRepository(db)

	ledgerService := ledger.NewService(ledger.NewRepository(db))
	marketService := marketplace.NewService(marketRepo, userRepo, holdingRepo, ledgerService, calc)
	repayService := repayment.NewService(repayRepo, marketRepo, holdingRepo, userRepo, ledgerService, calc)
	secondaryService := secondary.NewService(secondary.NewRepository(db), holdingRepo, ledgerService, calc)
	coverageService := coverage.NewService(coverage.NewRepository(db), repayRepo, marketRepo, holdingRepo, ledgerService, calc)
	directLoanService := directloan.NewService(directloan.NewRepository(db), userRepo, ledgerService, calc)
	notificationService := notification.NewService(notification.NewRepository(db), notification.NewPreferencesRepository(db))

	dispatcher := notification.NewDispatcher(notificationService)
	marketService.SetNotificationService(dispatcher)
	repayService.SetNotificationService(dispatcher)
	coverageService.SetNotificationService(dispatcher)

	sweeps := []sweep{
		{"marketplace_offers_expired", marketService.ExpireOffers},
		{"marketplace_listings_expired", asInt64(marketService.ExpireListings)},
		{"secondary_offers_expired", secondaryService.ExpireOffers},
		{"secondary_listings_expired", asInt64(secondaryService.ExpireListings)},
		{"installments_marked_late", asInt64(repayService.MarkLate)},
		{"coverage_offers_created", asInt64(coverageService.CreateOffers)},
		{"coverage_offers_expired", coverageService.ExpireOldOffers},
		{"direct_loan_offers_expired", directLoanService.ExpireOffers},
		{"direct_loans_marked_late", directLoanService.MarkLate},
		{"direct_loans_defaulted", directLoanService.MarkDefaulted},
		{"notifications_pruned", func(ctx context.Context) (int64, error) {
			return notificationService.Cleanup(ctx, notificationRetention)
		}},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-sigChan
		log.Info().Msg("Shutdown signal received")
		cancel()
	}()

	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	// One immediate pass on startup, then on the interval.
	runSweeps(ctx, sweeps)
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("sweeper stopped")
			return
		case <-ticker.C:
			runSweeps(ctx, sweeps)
		}
	}
}

func runSweeps(ctx context.Context, sweeps []sweep) {
	for _, s := range sweeps {
		if ctx.Err() != nil {
			return
		}

		start := time.Now()
		n, err := s.run(ctx)
		if err != nil {
			log.Error().Err(err).Str("sweep", s.name).Msg("Sweep failed")
			continue
		}
		if n > 0 {
			log.Info().
				Str("sweep", s.name).
				Int64("count", n).
				Dur("took", time.Since(start)).
				Msg("Sweep done")
		}
	}
}

func asInt64(fn func(ctx context.Context) (int, error)) func(ctx context.Context) (int64, error) {
	return func(ctx context.Context) (int64, error) {
		n, err := fn(ctx)
		return int64(n), err
	}
}

func setupLogger(cfg *config.Config) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.IsDevelopment() {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "15:04:05",
		})
	}
}
