// Package app builds the service graph from config for both binaries.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mohammed-shakir/occurrence-explorer/internal/cache/redisstore"
	"github.com/mohammed-shakir/occurrence-explorer/internal/core/config"
	"github.com/mohammed-shakir/occurrence-explorer/internal/core/executor"
	"github.com/mohammed-shakir/occurrence-explorer/internal/core/httpclient"
	"github.com/mohammed-shakir/occurrence-explorer/internal/events"
	"github.com/mohammed-shakir/occurrence-explorer/internal/occurrence"
	"github.com/mohammed-shakir/occurrence-explorer/internal/pipeline"
	"github.com/mohammed-shakir/occurrence-explorer/internal/session"
	"github.com/mohammed-shakir/occurrence-explorer/internal/species"
)

// NewPipeline wires the outbound client, resolver and fetcher.
func NewPipeline(cfg config.Config, logger *slog.Logger) *pipeline.Pipeline {
	up := cfg.Upstream
	client := httpclient.NewOutbound(httpclient.Options{
		UserAgent: up.UserAgent,
		RPS:       up.RPS,
		Burst:     up.Burst,
	})
	exec := executor.New(logger, client)

	r := species.New(exec, up.SpeciesURL,
		species.WithTimeout(up.SpeciesTimeout),
		species.WithLogger(logger))
	f := occurrence.New(exec, up.OccurrenceURL,
		occurrence.WithTimeout(up.OccurrenceTimeout),
		occurrence.WithPageDelay(up.PageDelay),
		occurrence.WithLogger(logger))
	return pipeline.New(logger, r, f)
}

// NewSessionStore returns the configured driver and a close func.
func NewSessionStore(ctx context.Context, cfg config.SessionCfg) (session.Store, func() error, error) {
	if cfg.Driver != "redis" {
		return session.NewMemoryStore(cfg.Capacity, cfg.TTL), func() error { return nil }, nil
	}
	rc, err := redisstore.New(ctx, cfg.RedisAddr)
	if err != nil {
		return nil, nil, fmt.Errorf("session store: %w", err)
	}
	return session.NewRedisStore(rc, cfg.TTL, cfg.CacheOpTimeout), rc.Close, nil
}

// NewEventSink returns a Kafka publisher, or events.Nop when disabled.
func NewEventSink(cfg config.EventsCfg, logger *slog.Logger) (events.Sink, error) {
	if !cfg.Enabled {
		return events.Nop{}, nil
	}
	p, err := events.NewPublisher(logger, cfg.Brokers, cfg.Topic, cfg.Queue)
	if err != nil {
		return nil, err
	}
	return p, nil
}
