package ingest

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vjranagit/pricefeed/pkg/feed"
	"github.com/vjranagit/pricefeed/pkg/types"
)

// Writer is the slice of the store the pipeline writes through.
type Writer interface {
	Put(ctx context.Context, rec types.Record) error
}

// Config holds pipeline configuration.
type Config struct {
	// TopInstruments is how many instruments each cycle asks the
	// provider for.
	TopInstruments int
	// Pacing is the fixed delay between per-instrument writes, bounding
	// the request rate against the provider.
	Pacing time.Duration
}

// Pipeline runs one data-collection cycle: fetch the current top
// instruments from the provider and write one record per instrument.
type Pipeline struct {
	feed   feed.Client
	store  Writer
	cfg    Config
	logger *zap.Logger
	now    func() time.Time
}

// New creates a pipeline writing provider observations into the store.
func New(client feed.Client, store Writer, cfg Config, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		feed:   client,
		store:  store,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Run executes one collection cycle. A failure on one instrument is logged
// and skipped; it never aborts the rest of the batch. An empty feed is a
// successful no-op. Only a feed-level failure is returned as an error.
func (p *Pipeline) Run(ctx context.Context) error {
	observations, err := p.feed.FetchObservations(ctx, p.cfg.TopInstruments)
	if err != nil {
		return fmt.Errorf("fetch observations: %w", err)
	}

	if len(observations) == 0 {
		p.logger.Info("feed returned no instruments")
		return nil
	}

	stored := 0
	for i, obs := range observations {
		if i > 0 && p.cfg.Pacing > 0 {
			select {
			case <-time.After(p.cfg.Pacing):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		rec := types.Record{
			Pair:         obs.Pair,
			Timestamp:    p.now().UnixMilli(),
			AveragePrice: obs.Price,
			Exchanges:    obs.Exchanges,
		}

		if err := p.store.Put(ctx, rec); err != nil {
			p.logger.Warn("skipping instrument",
				zap.String("pair", obs.Pair), zap.Error(err))
			continue
		}
		stored++
	}

	p.logger.Info("collection cycle finished",
		zap.Int("fetched", len(observations)), zap.Int("stored", stored))
	return nil
}
