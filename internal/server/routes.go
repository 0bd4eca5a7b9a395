package server

import (
	"log/slog"
	"net/http"

	"github.com/PatchLore/midnight-typer/internal/certificate"
	certificateHandlers "github.com/PatchLore/midnight-typer/internal/certificate/handlers"
	"github.com/PatchLore/midnight-typer/internal/claim"
	claimHandlers "github.com/PatchLore/midnight-typer/internal/claim/handlers"
	"github.com/PatchLore/midnight-typer/internal/galaxy"
	galaxyHandlers "github.com/PatchLore/midnight-typer/internal/galaxy/handlers"
	"github.com/PatchLore/midnight-typer/internal/impact"
	impactHandlers "github.com/PatchLore/midnight-typer/internal/impact/handlers"
	serverHandlers "github.com/PatchLore/midnight-typer/internal/server/handlers"
	"github.com/PatchLore/midnight-typer/internal/shared/config"
	"github.com/PatchLore/midnight-typer/internal/shared/database"
	"github.com/PatchLore/midnight-typer/internal/star"
	starHandlers "github.com/PatchLore/midnight-typer/internal/star/handlers"
)

type Routes struct {
	db                 *database.DB
	starService        *star.Service
	galaxyService      *galaxy.Service
	impactService      *impact.Service
	certificateService *certificate.Service
	workflow           *claim.Workflow
	eventParser        claimHandlers.EventParser
	logger             *slog.Logger
}

func NewRoutes(
	db *database.DB,
	starService *star.Service,
	galaxyService *galaxy.Service,
	impactService *impact.Service,
	certificateService *certificate.Service,
	workflow *claim.Workflow,
	eventParser claimHandlers.EventParser,
	logger *slog.Logger,
) *Routes {
	return &Routes{
		db:                 db,
		starService:        starService,
		galaxyService:      galaxyService,
		impactService:      impactService,
		certificateService: certificateService,
		workflow:           workflow,
		eventParser:        eventParser,
		logger:             logger,
	}
}

func (r *Routes) Setup() *http.ServeMux {
	logger := slog.With("component", "routes", "operation", "setup")
	logger.Debug("Setting up application routes")

	mux := http.NewServeMux()

	healthHandler := serverHandlers.NewHealthHandler(r.db)
	starsHandler := starHandlers.NewStarsHandler(r.starService, r.galaxyService)
	galaxyHandler := galaxyHandlers.NewGalaxyHandler(r.galaxyService)
	impactHandler := impactHandlers.NewImpactHandler(r.impactService)
	certificateHandler := certificateHandlers.NewCertificateHandler(r.certificateService)
	claimHandler := claimHandlers.NewClaimHandler(r.workflow)
	webhookHandler := claimHandlers.NewWebhookHandler(r.eventParser, r.workflow)

	// Public endpoints
	mux.Handle("/api/server/health", healthHandler)
	mux.HandleFunc("/api/sessions", starsHandler.CreateSession)
	mux.HandleFunc("/api/users/{id}/stars", starsHandler.ListByUser)
	mux.HandleFunc("/api/users/{id}/galaxy", galaxyHandler.Get)
	mux.HandleFunc("/api/impact", impactHandler.Get)

	// Claim endpoints
	mux.HandleFunc("/api/stars/claim", claimHandler.Initiate)
	mux.HandleFunc("/api/stars/claim/cancel", claimHandler.Cancel)
	mux.HandleFunc("/api/stars/{id}/certificate", certificateHandler.Generate)

	// Payment gateway callbacks
	mux.HandleFunc("/api/webhooks/payment", webhookHandler.Handle)

	// Issued certificates are served straight from disk
	certificateDir := config.GlobalConfig.Certificate.StorageDir
	mux.Handle("/certificates/", http.StripPrefix("/certificates/", http.FileServer(http.Dir(certificateDir))))

	logger.Info("Routes configured successfully",
		"public_endpoints", []string{"/api/server/health", "/api/sessions", "/api/users/{id}/stars", "/api/users/{id}/galaxy", "/api/impact"},
		"claim_endpoints", []string{"/api/stars/claim", "/api/stars/claim/cancel", "/api/stars/{id}/certificate"},
		"webhook_endpoints", []string{"/api/webhooks/payment"},
	)

	return mux
}
