// Package httpapi wires the HTTP transport (Gin) to the inquiry workflow,
// middleware and route handlers. It owns the dependency graph of a request:
// tracing, correlation ids, logging, recovery, metrics, CORS, security
// headers and compression globally, then identity, idempotency and rate
// limiting on the inquiry routes.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-inquiry-backend/docs"
	"github.com/tbourn/go-inquiry-backend/internal/auth"
	"github.com/tbourn/go-inquiry-backend/internal/config"
	"github.com/tbourn/go-inquiry-backend/internal/domain"
	"github.com/tbourn/go-inquiry-backend/internal/http/handlers"
	"github.com/tbourn/go-inquiry-backend/internal/http/middleware"
	"github.com/tbourn/go-inquiry-backend/internal/repo"
	"github.com/tbourn/go-inquiry-backend/internal/services"
)

// maxBodyBytes caps request bodies; questions and responses are a few KB.
const maxBodyBytes = 1 << 20

// inquiryRepoShim adapts the repository free functions to
// services.InquiryRepo.
type inquiryRepoShim struct{}

func (inquiryRepoShim) ListInquiries(ctx context.Context, db *gorm.DB, userID string) ([]domain.Inquiry, error) {
	return repo.ListInquiries(ctx, db, userID)
}

func (inquiryRepoShim) GetInquiry(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Inquiry, error) {
	return repo.GetInquiry(ctx, db, id, userID)
}

func (inquiryRepoShim) InquiryExists(ctx context.Context, db *gorm.DB, id, userID string) (bool, error) {
	return repo.InquiryExists(ctx, db, id, userID)
}

func (inquiryRepoShim) CreateInquiry(ctx context.Context, db *gorm.DB, inq *domain.Inquiry) error {
	return repo.CreateInquiry(ctx, db, inq)
}

func (inquiryRepoShim) UpdateInquiry(ctx context.Context, db *gorm.DB, inq *domain.Inquiry, expectedVersion int) error {
	return repo.UpdateInquiry(ctx, db, inq, expectedVersion)
}

func (inquiryRepoShim) DeleteInquiry(ctx context.Context, db *gorm.DB, id, userID string) error {
	return repo.DeleteInquiry(ctx, db, id, userID)
}

// RegisterRoutes attaches all middleware and endpoints to r. mirror receives
// every inquiry change (crm.InquiryMirror in production).
//
// Global middleware order:
//  1. OpenTelemetry
//  2. RequestID
//  3. access logging (redacting unless LOG_REDACT=false)
//  4. Recovery
//  5. body size limit
//  6. Metrics
//  7. CORS, security headers, gzip
//
// The inquiry group then adds Identity. Every inquiry route is rate limited;
// POST /inquiries first runs the Idempotency-Key validator (which needs the
// user) so the limiter can let replays through.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, mirror services.Mirror, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	if cfg.Log.Redact {
		r.Use(middleware.RedactingLogger(middleware.RedactOptions{}))
	} else {
		r.Use(middleware.Logger())
	}
	r.Use(middleware.Recovery())
	r.Use(limitBody(maxBodyBytes))
	r.Use(middleware.Metrics())
	r.Use(cors.New(corsConfig(cfg.CORS)))
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      true,
		EnablePolicy: true,
	}))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.BasePath = cfg.APIBasePath
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	svc := services.NewInquiryService(db, inquiryRepoShim{}, mirror)
	if cfg.Limits.QuestionMaxLen > 0 {
		svc.QuestionMaxLen = cfg.Limits.QuestionMaxLen
	}
	if cfg.Limits.ResponseMaxLen > 0 {
		svc.ResponseMaxLen = cfg.Limits.ResponseMaxLen
	}
	h := handlers.New(svc, db, cfg.IdempotencyTTL)

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	limit := rl.Handler()
	idem := middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{Scope: handlers.IdempotencyScopeCreate},
		idempotencyLookup(db),
	)

	api := groupWithPrefix(r, cfg.APIBasePath)
	api.Use(middleware.Identity(identityOptions(db, cfg.Auth)))
	{
		api.GET("/inquiries", limit, h.ListInquiries)
		api.POST("/inquiries", idem, limit, h.CreateInquiry)
		api.GET("/inquiries/:id", limit, h.GetInquiry)
		api.PUT("/inquiries/:id", limit, h.UpdateInquiry)
		api.DELETE("/inquiries/:id", limit, h.DeleteInquiry)

		// HTML form flavour: GET renders, POST submits and redirects.
		api.GET("/inquiries/:id/edit", limit, h.EditForm)
		api.POST("/inquiries/:id/edit", limit, h.UpdateInquiry)
		api.GET("/inquiries/:id/delete", limit, h.DeleteConfirm)
		api.POST("/inquiries/:id/delete", limit, h.DeleteInquiry)
	}
}

func corsConfig(c config.CORSConfig) cors.Config {
	cc := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Accept", "Authorization",
			middleware.HeaderUserID, middleware.HeaderIdempotencyKey,
		},
		ExposeHeaders: []string{"X-Request-ID", "Location", "Retry-After", "Idempotency-Replayed"},
		MaxAge:        12 * time.Hour,
	}
	if len(c.AllowedOrigins) == 0 {
		cc.AllowAllOrigins = true
	} else {
		cc.AllowOrigins = c.AllowedOrigins
	}
	return cc
}

func identityOptions(db *gorm.DB, a config.AuthConfig) middleware.IdentityOptions {
	opts := middleware.IdentityOptions{
		AllowUserHeader: a.AllowUserHeader,
		Upsert: func(ctx context.Context, u *domain.ApplicationUser) error {
			return repo.UpsertUser(ctx, db, u)
		},
	}
	if a.JWTSecret != "" {
		opts.Tokens = &auth.JWTer{Secret: []byte(a.JWTSecret), Issuer: a.JWTIssuer}
	}
	return opts
}

// idempotencyLookup reports stored, unexpired keys. A miss is not an error.
func idempotencyLookup(db *gorm.DB) middleware.IdempotencyLookup {
	return func(ctx context.Context, userID, scope, key string, now time.Time) (bool, error) {
		rec, err := repo.GetIdempotency(ctx, db, userID, scope, key, now)
		switch {
		case errors.Is(err, repo.ErrNotFound):
			return false, nil
		case err != nil:
			return false, err
		}
		return rec != nil, nil
	}
}

// limitBody caps the request body at maxBytes; reads past it fail.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
