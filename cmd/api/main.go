// Package main is the entry point for the booking API server.
// Its sole responsibility is wiring dependencies together and starting the
// server. No business logic belongs here.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/paraje-tours/reservas/backend/internal/config"
	"github.com/paraje-tours/reservas/backend/internal/handler"
	"github.com/paraje-tours/reservas/backend/internal/middleware"
	"github.com/paraje-tours/reservas/backend/internal/notify"
	"github.com/paraje-tours/reservas/backend/internal/repo"
	"github.com/paraje-tours/reservas/backend/internal/service"
	"github.com/paraje-tours/reservas/backend/migrations"
)

// maxBodyBytes caps request bodies. The largest legitimate payload is a
// checkout with a full companion list, which stays well under this.
const maxBodyBytes = 1 << 20 // 1 MiB

func main() {
	// --- Config -----------------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// --- Logger -----------------------------------------------------------
	// JSON handler writes machine-readable output suitable for log aggregators.
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// --- Database ---------------------------------------------------------
	// pgxpool manages a pool of Postgres connections.
	// New() does not open connections immediately — the first query does.
	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Verify the DB is reachable before accepting traffic.
	if err := pool.Ping(context.Background()); err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	slog.Info("database connection established")

	if cfg.AutoMigrate {
		if err := runMigrations(pool); err != nil {
			slog.Error("migrations failed", "error", err)
			os.Exit(1)
		}
		slog.Info("migrations applied")
	}

	// --- Repositories and services ---------------------------------------
	slots := repo.NewSlotRepo(pool)
	activities := repo.NewActivityRepo(pool)
	reservations := repo.NewReservationRepo(pool)
	visits := repo.NewVisitRepo(pool)

	bookings := service.NewBookingService(slots, reservations, visits, buildNotifier(cfg, logger), logger)
	catalog := service.NewCatalogService(activities, slots)
	visitSvc := service.NewVisitService(visits)

	srvHandlers := handler.NewServer(bookings, catalog, visitSvc)

	// --- Router -----------------------------------------------------------
	// Middleware order: RequestID → RealIP → SlogLogger → Recoverer → CORS →
	// body cap. RequestID generates a unique trace ID per request; RealIP sets
	// r.RemoteAddr from X-Forwarded-For (safe behind a proxy); Recoverer
	// catches panics and returns HTTP 500 instead of crashing.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewMaxBodySizeHandler(maxBodyBytes))

	r.Mount("/", srvHandlers.Routes(middleware.NewAdminAuth(cfg.AdminToken)))

	// --- HTTP Server ------------------------------------------------------
	// Explicit timeouts prevent slowloris and resource exhaustion attacks.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown: wait for OS signal, then give in-flight requests
	// up to 15 seconds to complete before forcefully closing.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-stop
	slog.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// buildNotifier assembles the payment-confirmation fan-out from what the
// config enables: SMTP mail, an AMQP event, both, or a log line when nothing
// is configured.
func buildNotifier(cfg config.Config, logger *slog.Logger) service.Notifier {
	var targets notify.Multi

	if cfg.SMTPHost != "" {
		targets = append(targets, notify.NewMailer(notify.MailerConfig{
			Host: cfg.SMTPHost,
			Port: cfg.SMTPPort,
			User: cfg.SMTPUser,
			Pass: cfg.SMTPPass,
			From: cfg.MailFrom,
		}))
	}
	if cfg.AMQPURL != "" {
		targets = append(targets, notify.NewPublisher(cfg.AMQPURL))
	}
	if len(targets) == 0 {
		return notify.Log{Logger: logger}
	}
	return targets
}

// runMigrations applies pending schema migrations using a database/sql handle
// borrowed from the pgx pool config.
func runMigrations(pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		return err
	}
	_, err = provider.Up(context.Background())
	return err
}
