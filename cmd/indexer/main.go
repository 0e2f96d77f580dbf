package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"solana-token-indexer/internal/config"
	"solana-token-indexer/internal/engine"
	"solana-token-indexer/internal/enrichment"
	"solana-token-indexer/internal/ingestion"
	"solana-token-indexer/internal/observability"
	"solana-token-indexer/internal/solana"
	"solana-token-indexer/internal/storage"
	chstore "solana-token-indexer/internal/storage/clickhouse"
	"solana-token-indexer/internal/storage/memory"
	"solana-token-indexer/internal/storage/migrations"
	pgstore "solana-token-indexer/internal/storage/postgres"
	"solana-token-indexer/internal/venue"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil && err != context.Canceled {
		logger.Fatal("indexer exited", zap.Error(err))
	}
	logger.Info("indexer stopped")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown on SIGINT/SIGTERM; a second signal forces exit.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("shutting down", zap.String("signal", sig.String()))
		cancel()
		select {
		case <-sigCh:
			logger.Warn("second signal, forcing exit")
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Warn("graceful shutdown timed out, forcing exit")
			os.Exit(1)
		case <-ctx.Done():
		}
	}()

	if cfg.Metrics.Addr != "" {
		go serveMetrics(cfg.Metrics.Addr, logger)
	}

	stores, closeStores, err := buildStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStores()

	chain := solana.NewHTTPClient(cfg.Chain.RPCEndpoint)

	var pools venue.PoolSource = noPools{}
	if cfg.Chain.AMMProgram != "" {
		pools = venue.NewAMMClient(chain, cfg.Chain.AMMProgram, logger)
	}
	var curves venue.CurveSource = noCurves{}
	if cfg.Chain.CurveProgram != "" {
		curves = venue.NewCurveClient(chain, cfg.Chain.CurveProgram, logger)
	}

	eng := engine.New(engine.Config{
		ReferenceMint:       cfg.Engine.ReferenceMint,
		VenuePrograms:       cfg.Chain.Programs(),
		SanityBandFactor:    cfg.Engine.SanityBandFactor,
		DerivedPriceCeiling: cfg.Engine.DerivedPriceCeiling,
		PoolScanLimit:       cfg.Engine.PoolScanLimit,
		MaxPoolsRetained:    cfg.Engine.MaxPoolsRetained,
	}, chain, pools, curves, logger)

	enricher := enrichment.NewEnricher(chain, stores.Meta, logger)

	processor := ingestion.NewProcessor(eng, chain, ingestion.Stores{
		Tokens:  stores.Tokens,
		Trades:  stores.Trades,
		Holders: stores.Holders,
		Volumes: stores.Volumes,
		Candles: stores.Candles,
	}, enricher, cfg.Engine.ReferenceMint, logger)

	ws, err := solana.NewWSClient(ctx, cfg.Chain.WSEndpoint, nil)
	if err != nil {
		return fmt.Errorf("connect websocket: %w", err)
	}
	defer ws.Close()

	runner := ingestion.NewRunner(ingestion.RunnerOptions{
		WS:            ws,
		Processor:     processor,
		Volumes:       stores.Volumes,
		Programs:      cfg.Chain.Programs(),
		PruneInterval: cfg.Ingestion.PruneInterval,
		Retention:     cfg.Ingestion.Retention,
		Logger:        logger,
	})

	logger.Info("indexer started",
		zap.Strings("programs", cfg.Chain.Programs()),
		zap.String("reference_mint", cfg.Engine.ReferenceMint),
		zap.String("storage", cfg.Storage.Backend))
	return runner.Run(ctx)
}

// storeSet bundles one complete set of stores regardless of backend.
type storeSet struct {
	Tokens  storage.TokenStore
	Trades  storage.TradeStore
	Holders storage.HolderStore
	Meta    storage.MetadataStore
	Volumes storage.VolumeStore
	Candles storage.CandleStore
}

// buildStores wires either the in-memory backend or Postgres+ClickHouse
// with migrations applied. The returned closer releases connections.
func buildStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*storeSet, func(), error) {
	if cfg.Storage.Backend == "memory" {
		logger.Info("using in-memory storage")
		return &storeSet{
			Tokens:  memory.NewTokenStore(),
			Trades:  memory.NewTradeStore(),
			Holders: memory.NewHolderStore(),
			Meta:    memory.NewMetadataStore(),
			Volumes: memory.NewVolumeStore(),
			Candles: memory.NewCandleStore(),
		}, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrate postgres: %w", err)
	}

	conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrate clickhouse: %w", err)
	}

	closer := func() {
		pool.Close()
		if err := conn.Close(); err != nil {
			logger.Warn("close clickhouse", zap.Error(err))
		}
	}
	logger.Info("using database storage")
	return &storeSet{
		Tokens:  pgstore.NewTokenStore(pool),
		Trades:  pgstore.NewTradeStore(pool),
		Holders: pgstore.NewHolderStore(pool),
		Meta:    pgstore.NewMetadataStore(pool),
		Volumes: chstore.NewVolumeStore(conn),
		Candles: chstore.NewCandleStore(conn),
	}, closer, nil
}

// noPools stands in when no AMM program is configured.
type noPools struct{}

func (noPools) PoolsForPair(context.Context, string, string) ([]venue.PoolState, error) {
	return nil, nil
}

// noCurves stands in when no curve program is configured.
type noCurves struct{}

func (noCurves) CurveForBaseMint(context.Context, string) (*venue.CurveState, error) {
	return nil, nil
}

func (noCurves) SwapQuote(context.Context, *venue.CurveState, uint64, int64) (uint64, error) {
	return 0, nil
}

func serveMetrics(addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	logger.Info("metrics server listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		logger.Error("metrics server failed", zap.Error(err))
	}
}
