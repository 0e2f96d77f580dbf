package ingestion

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"solana-token-indexer/internal/observability"
	"solana-token-indexer/internal/solana"
	"solana-token-indexer/internal/storage"
)

// Runner subscribes to venue program logs and feeds every confirmed
// signature through the Processor. It also prunes expired volume buckets
// in the background.
type Runner struct {
	ws            solana.WSClient
	processor     *Processor
	volumes       storage.VolumeStore
	programs      []string
	pruneInterval time.Duration
	retention     time.Duration
	logger        *zap.Logger
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	WS            solana.WSClient
	Processor     *Processor
	Volumes       storage.VolumeStore
	Programs      []string      // venue program IDs to watch
	PruneInterval time.Duration // default: 10m
	Retention     time.Duration // default: 25h, just past the widest window
	Logger        *zap.Logger
}

// NewRunner creates a new ingestion runner.
func NewRunner(opts RunnerOptions) *Runner {
	pruneInterval := opts.PruneInterval
	if pruneInterval == 0 {
		pruneInterval = 10 * time.Minute
	}
	retention := opts.Retention
	if retention == 0 {
		retention = 25 * time.Hour
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		ws:            opts.WS,
		processor:     opts.Processor,
		volumes:       opts.Volumes,
		programs:      opts.Programs,
		pruneInterval: pruneInterval,
		retention:     retention,
		logger:        logger,
	}
}

// Run subscribes to every configured program and blocks until the context
// is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	if len(r.programs) == 0 {
		return fmt.Errorf("no venue programs configured")
	}

	var wg sync.WaitGroup
	for _, program := range r.programs {
		ch, err := r.ws.SubscribeLogs(ctx, solana.LogsFilter{Mentions: []string{program}})
		if err != nil {
			return fmt.Errorf("subscribe to %s: %w", program, err)
		}
		r.logger.Info("subscribed to venue program logs", zap.String("program", program))

		wg.Add(1)
		go func(program string, ch <-chan solana.LogNotification) {
			defer wg.Done()
			r.consume(ctx, program, ch)
		}(program, ch)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		r.pruneLoop(ctx)
	}()

	<-ctx.Done()
	wg.Wait()
	return ctx.Err()
}

// consume drains one subscription channel until it closes or the context
// ends.
func (r *Runner) consume(ctx context.Context, program string, ch <-chan solana.LogNotification) {
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-ch:
			if !ok {
				r.logger.Warn("subscription channel closed", zap.String("program", program))
				return
			}
			// Failed transactions still emit log notifications.
			if n.Err != nil {
				observability.RecordTransactionSkipped("failed_transaction")
				continue
			}
			if err := r.processor.ProcessSignature(ctx, n.Signature, program); err != nil {
				r.logger.Error("transaction processing failed",
					zap.String("signature", n.Signature),
					zap.String("program", program),
					zap.Error(err))
			}
		}
	}
}

// pruneLoop periodically drops volume buckets older than the retention
// window.
func (r *Runner) pruneLoop(ctx context.Context) {
	ticker := time.NewTicker(r.pruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			dropped, err := r.volumes.PruneBefore(ctx, time.Now().Add(-r.retention))
			if err != nil {
				r.logger.Warn("volume prune failed", zap.Error(err))
				continue
			}
			if dropped > 0 {
				observability.DefaultMetrics.VolumeBucketsPruned.Add(float64(dropped))
				r.logger.Debug("pruned volume buckets", zap.Int64("dropped", dropped))
			}
		}
	}
}
