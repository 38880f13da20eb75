package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"echobook/internal/config"
	"echobook/internal/domain/ports/adapter"
	"echobook/internal/infra/adapters/audio"
	"echobook/internal/infra/adapters/document"
	"echobook/internal/infra/adapters/resemble"
	"echobook/internal/infra/adapters/speech"
	"echobook/internal/infra/jobstore"
	"echobook/internal/infra/logging"
	"echobook/internal/infra/metrics"
	"echobook/internal/infra/storage"
	"echobook/internal/usecase"
)

// deps are the collaborators shared by every subcommand.
type deps struct {
	cfg        *config.Config
	log        *zerolog.Logger
	synth      adapter.Synthesizer
	voices     adapter.VoiceProvider
	store      adapter.ArtifactStore
	registry   *jobstore.MemoryRegistry
	conversion usecase.ConversionUseCase
}

func loadDeps(ctx context.Context) (*deps, error) {
	cfg, err := config.LoadConfig(cfgPath, devMode)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	log := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.SetBuildInfo(version, commit, cfg.Provider.Name)

	synth, voices, err := newProvider(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	synth = speech.NewGuarded(synth, speech.GuardOptions{
		MaxConcurrent: cfg.Provider.MaxConcurrent,
		RatePerSecond: cfg.Provider.RatePerSecond,
		MaxRetries:    cfg.Provider.MaxRetries,
	}, log)

	assembler, err := audio.NewAssembler(cfg.Audio.OutputFormat, cfg.Audio.FFmpegPath)
	if err != nil {
		return nil, err
	}
	store, err := newStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	registry := jobstore.NewMemoryRegistry()
	conversion := usecase.NewConversionUseCase(
		document.NewPDFExtractor(),
		synth,
		assembler,
		store,
		registry,
		usecase.ConversionOptions{Concurrency: cfg.Pipeline.Concurrency},
		log,
	)

	log.Info().
		Str("provider", cfg.Provider.Name).
		Str("format", assembler.Format()).
		Str("storage", cfg.Storage.Backend).
		Msg("dependencies ready")

	return &deps{
		cfg:        cfg,
		log:        log,
		synth:      synth,
		voices:     voices,
		store:      store,
		registry:   registry,
		conversion: conversion,
	}, nil
}

func newProvider(ctx context.Context, cfg *config.Config, log *zerolog.Logger) (adapter.Synthesizer, adapter.VoiceProvider, error) {
	p := cfg.Provider
	switch p.Name {
	case "resemble":
		c, err := resemble.NewClient(p.Resemble.APIKey,
			resemble.WithBaseURL(p.Resemble.BaseURL),
			resemble.WithTimeout(p.RequestTimeout),
			resemble.WithProject(p.Resemble.ProjectUUID),
			resemble.WithClipFormat(p.Resemble.SampleRate, p.Resemble.Precision),
			resemble.WithLogger(log),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("resemble: %w", err)
		}
		return c, c, nil
	case "openai":
		s, err := speech.NewOpenAISynthesizer(p.OpenAI.APIKey, p.OpenAI.BaseURL, p.OpenAI.Model, p.RequestTimeout)
		if err != nil {
			return nil, nil, fmt.Errorf("openai: %w", err)
		}
		return s, speech.NewStaticVoices(s.Name(), speech.OpenAIVoices), nil
	case "gemini":
		s, err := speech.NewGeminiSynthesizer(ctx, p.Gemini.APIKey, p.Gemini.BaseURL, p.Gemini.Model, p.RequestTimeout)
		if err != nil {
			return nil, nil, fmt.Errorf("gemini: %w", err)
		}
		return s, speech.NewStaticVoices(s.Name(), speech.GeminiVoices), nil
	default:
		return nil, nil, fmt.Errorf("unknown provider %q", p.Name)
	}
}

func newStore(ctx context.Context, cfg *config.Config) (adapter.ArtifactStore, error) {
	if cfg.Storage.Backend == "s3" {
		s, err := storage.NewS3Store(ctx, cfg.S3)
		if err != nil {
			return nil, fmt.Errorf("s3: %w", err)
		}
		return s, nil
	}
	s, err := storage.NewLocalStore(cfg.Storage.JobsDir)
	if err != nil {
		return nil, fmt.Errorf("local storage: %w", err)
	}
	return s, nil
}
