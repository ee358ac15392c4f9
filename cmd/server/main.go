// Command server runs the content generation HTTP API.
//
// Startup order: env + config, logging, database, content type catalog,
// model client, tracing, router, then a graceful-shutdown HTTP server.
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

	"github.com/contentforge/contentforge/internal/catalog"
	"github.com/contentforge/contentforge/internal/config"
	httpapi "github.com/contentforge/contentforge/internal/http"
	"github.com/contentforge/contentforge/internal/llm"
	"github.com/contentforge/contentforge/internal/observability"
	"github.com/contentforge/contentforge/internal/repo"
	"github.com/contentforge/contentforge/internal/sysutil"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		noColor := sysutil.IsTruthy(os.Getenv("NO_COLOR"))
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339, NoColor: noColor})
	}
	log.Info().Str("version", version).Str("port", cfg.Port).Msg("starting contentforge")

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	cat, err := catalog.Load(cfg.CatalogDir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", cfg.CatalogDir).Msg("load content type catalog")
	}
	log.Info().Strs("content_types", cat.Types()).Msg("catalog loaded")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.WatchCatalog {
		go func() {
			if err := cat.Watch(rootCtx, log.Logger); err != nil {
				log.Warn().Err(err).Msg("catalog watcher stopped")
			}
		}()
	}

	// Without an API key the server runs against a scripted mock client so
	// the whole API remains exercisable offline.
	var client llm.Client
	if cfg.Model.APIKey != "" {
		oc, err := llm.NewOpenAIClient(llm.OpenAISettings{APIKey: cfg.Model.APIKey})
		if err != nil {
			log.Fatal().Err(err).Msg("configure model client")
		}
		client = oc
	} else {
		log.Warn().Msg("OPENAI_API_KEY not set; using offline mock model client")
		client = llm.NewMock()
	}

	if cfg.OTEL.Enabled {
		shutdown, err := observability.SetupOTel(rootCtx, cfg.OTEL, version)
		if err != nil {
			log.Fatal().Err(err).Msg("setup tracing")
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(ctx); err != nil {
				log.Warn().Err(err).Msg("tracing shutdown")
			}
		}()
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, db, cat, client, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		log.Fatal().Err(err).Msg("http server")
	case <-rootCtx.Done():
		log.Info().Msg("shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown")
	}
	log.Info().Msg("server stopped")
}
