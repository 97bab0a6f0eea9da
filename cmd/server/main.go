// Command server runs the inquiries HTTP API.
//
// @title                      Inquiries API
// @version                    1.0
// @description                Inquiry workflow with a mirrored CRM record per inquiry.
// @BasePath                   /api/v1
// @securityDefinitions.apikey BearerAuth
// @in                         header
// @name                       Authorization
// @description                Type "Bearer" followed by a space and the JWT.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	_ "go.uber.org/automaxprocs"
	"gorm.io/gorm"

	"github.com/tbourn/go-inquiry-backend/internal/config"
	"github.com/tbourn/go-inquiry-backend/internal/crm"
	httpapi "github.com/tbourn/go-inquiry-backend/internal/http"
	"github.com/tbourn/go-inquiry-backend/internal/observability"
	"github.com/tbourn/go-inquiry-backend/internal/repo"
	"github.com/tbourn/go-inquiry-backend/internal/sysutil"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = ""

const purgeInterval = 15 * time.Minute

func main() {
	_ = godotenv.Load()
	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.Log.Level)
	logger, closeLog := sysutil.NewLogger(os.Stdout, cfg.Log, cfg.OTEL.ServiceName)
	defer closeLog.Close()
	log.Logger = logger
	zerolog.DefaultContextLogger = &log.Logger

	ver := sysutil.FirstNonEmpty(version, os.Getenv("APP_VERSION"), "dev")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, ver)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}

	db, err := repo.Open(repo.Options{
		Driver:          cfg.DB.Driver,
		DSN:             cfg.DB.DSN,
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
		LogLevel:        cfg.DB.LogLevel,
		Tracing:         cfg.OTEL.Enabled,
	})
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DB.Driver).Msg("database open failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("automigrate failed")
	}

	dir, err := openDirectory(cfg.CRM)
	if err != nil {
		log.Fatal().Err(err).Msg("crm client setup failed")
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, db, crm.NewInquiryMirror(dir), cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go purgeIdempotency(ctx, db, purgeInterval)

	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("version", ver).
			Str("api", cfg.APIBasePath).
			Bool("crm_remote", cfg.CRM.URL != "").
			Msg("inquiries api starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("listen failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if err := shutdownOTel(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("otel shutdown")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info().Msg("inquiries api stopped")
}

// openDirectory returns the Web API client for CRM_URL, or the in-process
// directory when no URL is configured.
func openDirectory(c config.CRMConfig) (crm.Service, error) {
	if c.URL == "" {
		log.Warn().Msg("CRM_URL not set; mirroring inquiries to an in-memory directory")
		return crm.NewMemory(), nil
	}
	cl, err := crm.NewClient(crm.ClientOptions{
		BaseURL:    c.URL,
		Token:      c.Token,
		APIVersion: c.APIVersion,
		Timeout:    c.Timeout,
	})
	if err != nil {
		return nil, err
	}
	return cl, nil
}

// purgeIdempotency deletes expired Idempotency-Key records every interval
// until ctx is done.
func purgeIdempotency(ctx context.Context, db *gorm.DB, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n, err := repo.PurgeExpiredIdempotency(ctx, db, now.UTC())
			if err != nil {
				log.Warn().Err(err).Msg("idempotency purge failed")
				continue
			}
			if n > 0 {
				log.Debug().Int64("deleted", n).Msg("idempotency purge")
			}
		}
	}
}
