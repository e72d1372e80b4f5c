package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/martinramirez09/aiblog/internal/auth"
	"github.com/martinramirez09/aiblog/internal/config"
	"github.com/martinramirez09/aiblog/internal/generator"
	httpapp "github.com/martinramirez09/aiblog/internal/http"
	"github.com/martinramirez09/aiblog/internal/logging"
	"github.com/martinramirez09/aiblog/internal/rate"
	"github.com/martinramirez09/aiblog/internal/store"
	"github.com/martinramirez09/aiblog/internal/store/postgres"
	"github.com/martinramirez09/aiblog/internal/store/sqlite"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"server"},
	Short:   "Start the API server (default)",
	Long: `Start the API server. Configuration is read from the environment, after
loading a .env file from the working directory when one exists.

Required:
  DATABASE_URL       postgres://... or sqlite://path
  SECRET_KEY         token signing secret
  GEMINI_API_KEY     Gemini API key

Optional:
  AIBLOG_ADDR / PORT            listen address (default :8000)
  ALGORITHM                     HS256, HS384 or HS512 (default HS256)
  ACCESS_TOKEN_EXPIRE_MINUTES   token lifetime (default 60)
  GEMINI_MODEL_NAME             model (default gemini-2.5-flash)
  GENERATION_TIMEOUT            upstream timeout (default 60s)
  CONTENT_LANGUAGE              es or en (default es)
  RENDER_MARKDOWN               render generated Markdown to HTML (default false)
  CORS_ORIGINS                  comma separated allowed origins
  REDIS_URL                     share rate limits through Redis
  RL_GENERATE_PER_MIN           generations per author per minute (default 10)
  RL_LOGIN_PER_MIN              logins per client IP per minute (default 20)
  LOG_LEVEL / LOG_FORMAT        logging (default info / json)`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to open database")
	}
	defer st.Close()

	limiter, closeLimiter := newLimiter(ctx, cfg, log)
	defer closeLimiter()

	tokens, err := auth.NewTokenManager(cfg.SecretKey, cfg.Algorithm, cfg.TokenTTL)
	if err != nil {
		log.WithError(err).Fatal("invalid token settings")
	}
	authSvc := auth.NewService(st, tokens, log)

	gemini, err := generator.NewGeminiClient(generator.GeminiOptions{
		APIKey:  cfg.Gemini.APIKey,
		Model:   cfg.Gemini.Model,
		BaseURL: cfg.Gemini.BaseURL,
	}, log)
	if err != nil {
		log.WithError(err).Fatal("failed to configure generator")
	}
	norm := generator.NewNormalizer(gemini, generator.Options{
		Language:       cfg.ContentLanguage,
		RenderMarkdown: cfg.RenderMarkdown,
		Timeout:        cfg.GenerationTimeout,
	}, log)

	server := httpapp.NewServer(st, authSvc, norm, limiter, cfg, log)
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{
			"addr":       cfg.Addr,
			"model":      cfg.Gemini.Model,
			"gemini_key": logging.Redact(cfg.Gemini.APIKey),
			"language":   cfg.ContentLanguage,
		}).Info("aiblog listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.WithError(err).Error("server error")
			return err
		}
	case <-ctx.Done():
	}

	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	driver, source, err := store.ParseDSN(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if driver == store.DriverPostgres {
		pg, err := postgres.Open(ctx, source, postgres.Options{
			MaxConns:        int32(cfg.DBMaxConns),
			MaxConnLifetime: 30 * time.Minute,
		})
		if err != nil {
			return nil, err
		}
		return pg, nil
	}
	lite, err := sqlite.Open(source)
	if err != nil {
		return nil, err
	}
	return lite, nil
}

func newLimiter(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (rate.Limiter, func()) {
	if cfg.RedisURL == "" {
		return rate.NewMemory(), func() {}
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rl, err := rate.NewRedisFromURL(pingCtx, cfg.RedisURL, log)
	if err != nil {
		log.WithError(err).Warn("redis unavailable, using in-memory rate limits")
		return rate.NewMemory(), func() {}
	}
	return rl, func() { _ = rl.Close() }
}
