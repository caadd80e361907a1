package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/raine/listing-digest/config"
	"github.com/raine/listing-digest/internal/fetch"
	"github.com/raine/listing-digest/internal/llm"
	"github.com/raine/listing-digest/internal/pipeline"
	"github.com/raine/listing-digest/internal/server"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	// Try to load existing .env / config.env files
	config.LoadEnvFile()

	if missing := config.CheckRequiredConfig(); len(missing) > 0 {
		log.Fatal().Msgf("missing required config: %s", strings.Join(missing, ", "))
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	closeLog, err := setupLogging(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up logging")
	}
	defer closeLog()

	// Create context that cancels on SIGINT or SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	generator, err := llm.NewGeminiGenerator(ctx, llm.GeminiOptions{
		APIKey: cfg.GeminiAPIKey,
		Model:  cfg.GeminiModel,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize gemini generator")
	}
	log.Info().Str("model", generator.Model()).Msg("gemini generator initialized")

	fetcher := fetch.NewClient(cfg.Fetch)
	svc := pipeline.NewService(generator, fetcher, cfg.Pipeline)

	log.Info().
		Int("minHTMLLength", cfg.Pipeline.Limits.MinHTMLLength).
		Int("maxImages", cfg.Pipeline.Limits.MaxImages).
		Int("htmlEmbedLimit", cfg.Pipeline.Prompt.HTMLEmbedLimit).
		Str("bulletFormat", cfg.Pipeline.Prompt.Bullets.String()).
		Bool("requireProductName", cfg.Pipeline.RequireProductName).
		Str("fetchDomain", cfg.Fetch.AllowedDomain).
		Msg("pipeline configured")

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           server.New(svc, cfg.MaxUploadBytes).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("shutdown with error")
	} else {
		log.Info().Msg("shutdown complete")
	}
}

// setupLogging configures the global logger. Logs go to stderr and, when
// LOG_FILE is set, to that file as well.
func setupLogging(cfg *config.Config) (func(), error) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	zerolog.SetGlobalLevel(level)

	closeFn := func() {}
	var out io.Writer = zerolog.ConsoleWriter{Out: os.Stderr}

	// JOURNAL_STREAM is set by systemd when running as a service.
	if _, underSystemd := os.LookupEnv("JOURNAL_STREAM"); !underSystemd && cfg.LogFile != "" {
		logFile, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		closeFn = func() { logFile.Close() }

		fileWriter := zerolog.ConsoleWriter{Out: logFile, NoColor: true}
		out = io.MultiWriter(out, fileWriter)
	}

	log.Logger = log.Output(out)
	zerolog.DefaultContextLogger = &log.Logger

	if cfg.LogFile != "" {
		log.Info().Str("logFile", cfg.LogFile).Msg("logging to file")
	}
	return closeFn, nil
}
