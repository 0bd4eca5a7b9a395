package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/PatchLore/midnight-typer/internal/certificate"
	"github.com/PatchLore/midnight-typer/internal/claim"
	"github.com/PatchLore/midnight-typer/internal/forest"
	"github.com/PatchLore/midnight-typer/internal/galaxy"
	"github.com/PatchLore/midnight-typer/internal/impact"
	"github.com/PatchLore/midnight-typer/internal/mail"
	"github.com/PatchLore/midnight-typer/internal/middleware"
	"github.com/PatchLore/midnight-typer/internal/payment"
	"github.com/PatchLore/midnight-typer/internal/ratelimit"
	"github.com/PatchLore/midnight-typer/internal/server"
	"github.com/PatchLore/midnight-typer/internal/shared/config"
	"github.com/PatchLore/midnight-typer/internal/shared/database"
	"github.com/PatchLore/midnight-typer/internal/shared/logger"
	sharedRedis "github.com/PatchLore/midnight-typer/internal/shared/redis"
	"github.com/PatchLore/midnight-typer/internal/star"
)

func main() {
	if err := config.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init()
	cfg := config.GlobalConfig

	log := slog.With("component", "main")
	log.Info("Starting server",
		"environment", cfg.Server.Environment,
		"port", cfg.Server.Port,
	)

	db, err := database.Connect()
	if err != nil {
		log.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		log.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	redisClient, err := sharedRedis.Connect()
	if err != nil {
		log.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// Repositories and domain services
	starRepo := star.NewRepository(db.DB)
	galaxyRepo := galaxy.NewRepository(db.DB)
	impactRepo := impact.NewRepository(db.DB)

	starService := star.NewService(starRepo, slog.With("component", "star_service"))
	galaxyService := galaxy.NewService(galaxyRepo, slog.With("component", "galaxy_service"))
	impactService := impact.NewService(impactRepo, slog.With("component", "impact_service"))

	// Claim initiation limiter: Redis when available, in-memory otherwise
	limiterConfig := ratelimit.Config{
		Window:      cfg.Claims.WindowDuration,
		MaxAttempts: cfg.Claims.MaxPerWindow,
	}
	var claimLimiter ratelimit.Limiter
	if redisClient != nil {
		claimLimiter = ratelimit.NewRedisLimiter(redisClient.Client, limiterConfig, slog.With("component", "claim_limiter"))
	} else {
		claimLimiter = ratelimit.NewMemoryLimiter(limiterConfig)
	}

	// External collaborators
	gateway := payment.NewStripeGateway(cfg.Payment, slog.With("component", "payment"))
	planter := forest.NewPlanter(cfg.TreePlanting, slog.With("component", "forest"))
	sender := mail.NewResendSender(cfg.Email, slog.With("component", "mail"))

	certificateStore, err := certificate.NewDiskStore(
		cfg.Certificate.StorageDir,
		cfg.Certificate.PublicBaseURL,
		slog.With("component", "certificate_store"),
	)
	if err != nil {
		log.Error("Failed to initialize certificate storage", "error", err)
		os.Exit(1)
	}

	certificateService := certificate.NewService(
		starRepo,
		impactService,
		certificateStore,
		sender,
		slog.With("component", "certificate_service"),
	)

	workflow := claim.NewWorkflow(
		starRepo,
		galaxyService,
		impactService,
		claimLimiter,
		gateway,
		planter,
		sender,
		certificateService,
		claim.Config{
			SideEffectTimeout:  cfg.Claims.SideEffectTimeout,
			RefundSlotOnCancel: cfg.Claims.RefundSlotOnCancel,
		},
		slog.With("component", "claim_workflow"),
	)

	routes := server.NewRoutes(
		db,
		starService,
		galaxyService,
		impactService,
		certificateService,
		workflow,
		gateway,
		slog.With("component", "routes"),
	)
	mux := routes.Setup()

	// Middleware chain: rate limiting inside, CORS outside
	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		BurstSize:         cfg.RateLimit.BurstSize,
		Enabled:           cfg.RateLimit.Enabled,
		TrustProxy:        cfg.RateLimit.TrustProxy,
	})
	corsMiddleware := middleware.NewCORS()

	handler := corsMiddleware.Middleware(rateLimiter.Middleware(mux))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("Server stopped")
}
