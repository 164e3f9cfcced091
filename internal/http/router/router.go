package router

import (
	"encoding/json"
	"net/http"

	"github.com/civicworks/civic-api/internal/auth"
	"github.com/civicworks/civic-api/internal/config"
	"github.com/civicworks/civic-api/internal/database"
	"github.com/civicworks/civic-api/internal/domain"
	"github.com/civicworks/civic-api/internal/http/handler"
	"github.com/civicworks/civic-api/internal/http/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	_ "github.com/civicworks/civic-api/docs" // registers the swagger spec
)

// Handlers groups the HTTP handlers mounted by the router
type Handlers struct {
	Auth       *handler.AuthHandler
	Profile    *handler.ProfileHandler
	Area       *handler.AreaHandler
	Issue      *handler.IssueHandler
	Tender     *handler.TenderHandler
	Assignment *handler.AssignmentHandler
	Progress   *handler.ProgressHandler
	Media      *handler.MediaHandler
}

type Router struct {
	cfg            *config.Config
	logger         *zap.Logger
	db             *gorm.DB
	authMiddleware *auth.Middleware
	rateLimiter    *middleware.RateLimiter
	handlers       Handlers
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	db *gorm.DB,
	authMiddleware *auth.Middleware,
	rateLimiter *middleware.RateLimiter,
	handlers Handlers,
) *Router {
	return &Router{
		cfg:            cfg,
		logger:         logger,
		db:             db,
		authMiddleware: authMiddleware,
		rateLimiter:    rateLimiter,
		handlers:       handlers,
	}
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.Logging(rt.logger))
	r.Use(middleware.SecurityHeaders(&rt.cfg.Security))
	r.Use(middleware.CORS(&rt.cfg.CORS, rt.cfg.App.Environment, rt.logger))
	r.Use(rt.rateLimiter.LimitByIP)

	// Liveness
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Get("/health/db", rt.databaseHealth)
	r.Get("/health/ready", rt.readiness)

	if rt.cfg.Server.EnableSwagger {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	// Uploaded media is public so stored image URLs work in any client
	if rt.handlers.Media != nil {
		r.Get("/media/*", rt.handlers.Media.Get)
	}

	r.Route("/api/v1", func(r chi.Router) {
		if timeout := rt.cfg.Server.RequestTimeoutDuration(); timeout > 0 {
			r.Use(chimw.Timeout(timeout))
		}

		// Identity provider webhook
		r.With(rt.authMiddleware.RequireWebhookKey).Post("/identities", rt.handlers.Auth.IdentityCreated)

		r.Group(func(r chi.Router) {
			r.Use(rt.authMiddleware.Authenticate)
			r.Use(rt.rateLimiter.LimitByUser)

			r.Get("/auth/me", rt.handlers.Auth.Me)

			r.Route("/profiles", func(r chi.Router) {
				r.Get("/", rt.handlers.Profile.List)
				r.Get("/{id}", rt.handlers.Profile.GetByID)
				r.Put("/{id}", rt.handlers.Profile.Update)
				r.With(rt.authMiddleware.RequireUserType(domain.UserTypeAdmin)).
					Put("/{id}/role", rt.handlers.Profile.UpdateRole)
			})

			r.Route("/areas", func(r chi.Router) {
				r.Get("/", rt.handlers.Area.ListAreas)
				r.Post("/", rt.handlers.Area.CreateArea)
				r.Get("/{id}", rt.handlers.Area.GetArea)
				r.Put("/{id}", rt.handlers.Area.UpdateArea)
				r.Delete("/{id}", rt.handlers.Area.DeleteArea)
			})

			r.Route("/departments", func(r chi.Router) {
				r.Get("/", rt.handlers.Area.ListDepartments)
				r.Post("/", rt.handlers.Area.CreateDepartment)
				r.Get("/{id}", rt.handlers.Area.GetDepartment)
				r.Put("/{id}", rt.handlers.Area.UpdateDepartment)
				r.Delete("/{id}", rt.handlers.Area.DeleteDepartment)
			})

			r.Route("/issues", func(r chi.Router) {
				r.Get("/", rt.handlers.Issue.List)
				r.Post("/", rt.handlers.Issue.Create)
				r.Get("/{id}", rt.handlers.Issue.GetByID)
				r.Post("/{id}/assign-area", rt.handlers.Issue.AssignArea)
				r.Post("/{id}/assign-department", rt.handlers.Issue.AssignDepartment)
				r.Post("/{id}/stage", rt.handlers.Issue.SetStage)
				r.Post("/{id}/resolve", rt.handlers.Issue.Resolve)
				r.Get("/{id}/assignments", rt.handlers.Issue.Assignments)
				r.Get("/{id}/progress", rt.handlers.Issue.Progress)
				r.Put("/{id}/vote", rt.handlers.Issue.Vote)
				r.Delete("/{id}/vote", rt.handlers.Issue.Unvote)
			})

			r.Route("/tenders", func(r chi.Router) {
				r.Get("/", rt.handlers.Tender.List)
				r.Post("/", rt.handlers.Tender.Create)
				r.Get("/{id}", rt.handlers.Tender.GetByID)
				r.Put("/{id}/status", rt.handlers.Tender.UpdateStatus)
				r.Post("/{id}/award", rt.handlers.Tender.Award)
				r.Get("/{id}/bids", rt.handlers.Tender.ListBids)
				r.Post("/{id}/bids", rt.handlers.Tender.CreateBid)
				r.Get("/{id}/evaluations", rt.handlers.Tender.ListEvaluations)
				r.Post("/{id}/evaluations", rt.handlers.Tender.CreateEvaluation)
			})
			r.Get("/bids/{bidId}", rt.handlers.Tender.GetBid)

			r.Route("/evaluations", func(r chi.Router) {
				r.Get("/{id}", rt.handlers.Tender.GetEvaluation)
				r.Put("/{id}", rt.handlers.Tender.UpdateEvaluation)
			})

			r.Route("/assignments", func(r chi.Router) {
				r.Get("/", rt.handlers.Assignment.List)
				r.Post("/", rt.handlers.Assignment.Create)
				r.Get("/{id}", rt.handlers.Assignment.GetByID)
				r.Post("/{id}/close", rt.handlers.Assignment.Close)
			})

			r.Route("/progress", func(r chi.Router) {
				r.Get("/", rt.handlers.Progress.List)
				r.Post("/", rt.handlers.Progress.Submit)
				r.Get("/{id}", rt.handlers.Progress.GetByID)
				r.Put("/{id}/review", rt.handlers.Progress.Review)
			})
		})
	})

	return r
}

func (rt *Router) databaseHealth(w http.ResponseWriter, r *http.Request) {
	stats := database.HealthCheckWithStats(r.Context(), rt.db)
	status := http.StatusOK
	if stats.Status != "healthy" {
		rt.logger.Error("database health check failed", zap.String("error", stats.Error))
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]interface{}{
		"service": "database",
		"status":  stats.Status,
		"stats":   stats,
	})
}

// readiness reports every dependency the API cannot serve without
func (rt *Router) readiness(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]interface{})
	allHealthy := true

	if err := database.HealthCheck(r.Context(), rt.db); err != nil {
		rt.logger.Error("database health check failed", zap.Error(err))
		checks["database"] = map[string]interface{}{"status": "unhealthy", "error": err.Error()}
		allHealthy = false
	} else {
		checks["database"] = map[string]interface{}{"status": "healthy"}
	}

	status, label := http.StatusOK, "healthy"
	if !allHealthy {
		status, label = http.StatusServiceUnavailable, "unhealthy"
	}
	writeJSON(w, status, map[string]interface{}{
		"status": label,
		"checks": checks,
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
