package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/steveyiyo/formcoach-backend/internal/config"
	"github.com/steveyiyo/formcoach-backend/internal/core/gemini"
	"github.com/steveyiyo/formcoach-backend/internal/core/session"
	"github.com/steveyiyo/formcoach-backend/internal/core/tts"
	h "github.com/steveyiyo/formcoach-backend/internal/http"
	"github.com/steveyiyo/formcoach-backend/internal/logging"
	"github.com/steveyiyo/formcoach-backend/internal/repo/memory"
	"github.com/steveyiyo/formcoach-backend/internal/telemetry"
	"github.com/steveyiyo/formcoach-backend/pkg/ws"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

func main() {
	_ = godotenv.Load()
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, logFile, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer logFile.Close()
	slog.SetDefault(logger)

	shutdownTracing, err := telemetry.Init(context.Background(), cfg.Trace)
	if err != nil {
		return err
	}
	defer shutdownTracing(context.Background())

	synth, err := newSynthesizer(cfg.TTS)
	if err != nil {
		return err
	}
	logger.Info("speech provider", "provider", cfg.TTS.Provider)

	svc := session.NewService(memory.NewSessionRepo(), ws.NewHub(), synth, session.Options{
		Coach:      cfg.Coach,
		Thresholds: cfg.Pose,
		Playback:   cfg.Playback,
		Logger:     logger,
	})
	defer svc.Close()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h.NewRouter(cfg, svc, synth, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", "addr", srv.Addr, "host", cfg.Host())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// newSynthesizer returns nil for ProviderNone; sessions then speak through
// the client's on-device voice only.
func newSynthesizer(c config.TTSConfig) (tts.Synthesizer, error) {
	switch c.Provider {
	case config.ProviderHTTP:
		return tts.NewHTTPClient(c.BaseURL, c.Timeout), nil
	case config.ProviderClone:
		return tts.NewCloneVoice(tts.NewHTTPClient(c.BaseURL, c.Timeout), tts.CloneReference{
			AudioURL:   c.CloneRefURL,
			Transcript: c.CloneRefText,
			Steps:      c.CloneSteps,
		}, c.CloneTimeout), nil
	case config.ProviderGemini:
		g, err := gemini.New(c.GeminiAPIKey, c.GeminiModel, "", c.Timeout)
		if err != nil {
			return nil, fmt.Errorf("gemini: %w", err)
		}
		return g, nil
	}
	return nil, nil
}
