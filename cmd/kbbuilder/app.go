package main

import (
	"context"
	"fmt"
	"log/slog"

	"kbbuilder/internal/config"
	"kbbuilder/internal/database"
	"kbbuilder/internal/discovery"
	"kbbuilder/internal/extract"
	"kbbuilder/internal/fetch"
	"kbbuilder/internal/pipeline"
	"kbbuilder/internal/ratelimiter"
	"kbbuilder/internal/reducer"
	"kbbuilder/internal/sink"
	"kbbuilder/internal/summarizer"
)

// app owns everything one process needs to run builds. The rate-limited
// service is created once here and shared by summarizing and reducing.
type app struct {
	orchestrator *pipeline.Orchestrator
	service      *ratelimiter.Service
	journal      *database.Database
	log          *slog.Logger
}

func newApp(ctx context.Context, cfg config.Config, d deps, log *slog.Logger) (*app, error) {
	transformer, err := d.newTransformer(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create transformer: %w", err)
	}

	service := ratelimiter.New(transformer, ratelimiter.Options{
		MaxConcurrency: cfg.MaxConcurrency,
		MaxRetries:     cfg.MaxRetries,
		BackoffBase:    cfg.BackoffBase,
		BackoffUnit:    cfg.BackoffUnit,
	}, log)

	fetcher := fetch.New(cfg.HTTPTimeout, log)

	sinks := sink.Fanout{sink.NewFileSink(log)}
	if cfg.TelegramToken != "" {
		telegram, telegramErr := sink.NewTelegramSink(cfg.TelegramToken, cfg.TelegramChatID, log)
		if telegramErr != nil {
			return nil, fmt.Errorf("create Telegram sink: %w", telegramErr)
		}
		sinks = append(sinks, telegram)
	}

	a := &app{service: service, log: log}

	opts := pipeline.Options{SummaryParallelism: cfg.SummaryParallelism}
	if cfg.JournalPath != "" {
		a.journal, err = database.New(ctx, cfg.JournalPath, log)
		if err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
		opts.Journal = a.journal
	}

	a.orchestrator = pipeline.New(
		extract.New(fetcher, log),
		discovery.New(fetcher, discovery.Options{
			GitHubAPIURL: cfg.GitHubAPIURL,
			GitHubToken:  cfg.GitHubAPIKey,
		}, log),
		summarizer.New(service, log),
		reducer.New(service, cfg.GroupSize, log),
		sinks,
		opts,
		log,
	)

	log.InfoContext(ctx, "Builder is initialized",
		"provider", cfg.Provider,
		"maxConcurrency", cfg.MaxConcurrency,
		"maxAttempts", service.MaxAttempts(),
		"groupSize", cfg.GroupSize,
		"summaryParallelism", cfg.SummaryParallelism,
		"journal", cfg.JournalPath != "",
		"telegram", cfg.TelegramToken != "")

	return a, nil
}

func (a *app) Close() error {
	if a.journal == nil {
		return nil
	}

	return a.journal.Close()
}

// closeApp logs instead of returning so it can be deferred.
func closeApp(ctx context.Context, a *app) {
	if err := a.Close(); err != nil {
		a.log.ErrorContext(ctx, "Failed to close journal",
			"error", err)
	}
}
