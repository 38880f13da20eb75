package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"echobook/internal/domain/ports/adapter"
	"echobook/internal/infra/adapters/audio"
	"echobook/internal/infra/api"
	red "echobook/internal/infra/redis"
	"echobook/internal/infra/worker"
	"echobook/internal/usecase"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the conversion workers",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d, err := loadDeps(ctx)
	if err != nil {
		return err
	}
	cfg, log := d.cfg, d.log

	defaultVoice, err := usecase.ResolveDefaultVoice(ctx, cfg.Provider, d.voices)
	if err != nil {
		return err
	}
	log.Info().Str("voice_uuid", defaultVoice).Msg("default voice resolved")

	// ---- Workers ----
	// Jobs get their own context so shutdown drains them instead of cancelling.
	pool := worker.NewPool(cfg.Worker.Size, cfg.Worker.QueueSize, log)
	pool.Start(context.Background())
	defer pool.Stop()

	// ---- Use cases ----
	jobUC := usecase.NewJobUseCase(d.registry, d.conversion, d.store, pool, cfg.Storage.JobsDir, defaultVoice, log)
	voiceUC := usecase.NewVoiceUseCase(d.voices, audio.NewNormalizer(cfg.Audio.FFmpegPath), usecase.VoiceOptions{
		AllowedExtensions: cfg.Voice.AllowedExtensions,
		UploadTakes:       cfg.Voice.UploadTakes,
		Target: adapter.SampleFormat{
			SampleRate: cfg.Voice.SampleRate,
			Channels:   cfg.Voice.Channels,
			BitDepth:   cfg.Voice.BitDepth,
		},
	}, log)

	// ---- Rate limiting ----
	var limiter api.Middleware
	if cfg.Server.RateLimit > 0 {
		if cfg.Redis.URL != "" {
			rc, err := red.NewClient(ctx, &cfg.Redis)
			if err != nil {
				return fmt.Errorf("redis: %w", err)
			}
			defer rc.Close()
			limiter = api.RateLimit(red.NewRateLimiter(rc), cfg.Server.RateLimit, cfg.Server.RateWindow, red.RouteKey, log)
		} else {
			limiter = api.LocalRateLimit(cfg.Server.RateLimit, cfg.Server.RateWindow)
		}
	}

	// ---- HTTP ----
	srv := api.NewServer(jobUC, voiceUC, api.Options{
		MaxUploadBytes: cfg.Server.MaxUploadMB << 20,
		RequestTimeout: cfg.Server.RequestTimeout,
		CORSOrigins:    cfg.Server.CORSOrigins,
		Limiter:        limiter,
	}, log)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	// ---- Graceful shutdown ----
	select {
	case err := <-errc:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}
	log.Info().Msg("shutdown requested")

	shCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shCtx); err != nil {
		log.Warn().Err(err).Msg("http shutdown")
	}
	pool.Stop()
	log.Info().Int("jobs_tracked", d.registry.Count(shCtx)).Msg("workers drained")
	return nil
}
