package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/uhyunpark/mintedexchange/params"
	"github.com/uhyunpark/mintedexchange/pkg/api"
	"github.com/uhyunpark/mintedexchange/pkg/app/core/order"
	"github.com/uhyunpark/mintedexchange/pkg/app/node"
	"github.com/uhyunpark/mintedexchange/pkg/metrics"
	"github.com/uhyunpark/mintedexchange/pkg/p2p"
	"github.com/uhyunpark/mintedexchange/pkg/storage"
	"github.com/uhyunpark/mintedexchange/pkg/util"
)

func main() {
	// Load config from .env file and environment variables
	cfg, err := params.LoadFromEnv("")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := newLogger(cfg.Node)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, sugar); err != nil && !errors.Is(err, context.Canceled) {
		sugar.Fatalw("node_failed", "err", err)
	}
}

func newLogger(cfg params.Node) (*zap.Logger, error) {
	if cfg.LogFile == "" {
		return util.NewLogger(cfg.LogLevel)
	}
	return util.NewLoggerWithFile(cfg.LogFile, cfg.LogLevel)
}

func run(ctx context.Context, cfg params.Config, sugar *zap.SugaredLogger) error {
	// ---- Storage ----
	var (
		store *storage.Store
		wal   storage.WAL
		err   error
	)
	if cfg.Node.DataDir == "" {
		sugar.Warn("DATA_DIR unset, state will not survive a restart")
		store, err = storage.OpenInMemory()
	} else {
		store, err = storage.Open(filepath.Join(cfg.Node.DataDir, "db"))
		if err == nil {
			var fw *storage.FileWAL
			if fw, err = storage.NewFileWAL(filepath.Join(cfg.Node.DataDir, "txs.wal")); err == nil {
				defer fw.Close()
				wal = fw
			}
		}
	}
	if err != nil {
		return err
	}
	defer store.Close()

	// ---- Exchange ----
	var gen *params.Genesis
	if cfg.Node.GenesisPath != "" {
		if gen, err = params.LoadGenesis(cfg.Node.GenesisPath); err != nil {
			return err
		}
	} else {
		sugar.Warn("GENESIS_FILE unset, starting with no strategies or collections")
	}

	collector := metrics.NewCollector()
	clock := util.RealClock{}
	stack, err := node.Bootstrap(cfg, gen, node.Deps{
		Store:   store,
		WAL:     wal,
		Metrics: collector,
		Clock:   clock,
		Log:     sugar,
	})
	if err != nil {
		return err
	}

	// ---- API Server ----
	server := api.NewServer(api.Config{
		AllowedOrigins: cfg.Node.AllowedOrigins,
		RateLimit:      cfg.Node.RateLimit,
		RateBurst:      cfg.Node.RateBurst,
	}, stack.App, stack.Book, collector, clock, sugar.Named("api"))

	// ---- Order gossip (optional) ----
	if cfg.P2P.Enabled {
		gossip, err := p2p.NewOrderGossip(ctx, p2p.Config{
			ListenAddr: cfg.P2P.ListenAddr,
			Bootstrap:  cfg.P2P.Bootstrap,
			Logger:     sugar.Named("p2p"),
		}, stack.Exchange.Verifier())
		if err != nil {
			return err
		}
		defer gossip.Close()

		gossip.SetHandler(func(o *order.MakerOrder) error {
			_, _, err := stack.Book.Put(o)
			return err
		})
		server.SetPublisher(gossip)
		sugar.Infow("p2p_started", "addrs", gossip.Addrs())
	}

	errc := make(chan error, 2)
	go func() { errc <- server.Start(ctx, cfg.Node.APIAddr) }()
	go func() { errc <- stack.App.Run(ctx, clock, cfg.Node.BlockInterval) }()

	sugar.Infow("node_started",
		"api", cfg.Node.APIAddr,
		"block_interval_ms", cfg.Node.BlockInterval.Milliseconds(),
		"height", stack.App.Height(),
		"resumed", stack.Resumed)

	// Progress logging loop
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case err := <-errc:
			return err
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			sugar.Infow("node_progress",
				"height", stack.App.Height(),
				"mempool", stack.App.MempoolSize(),
				"book", stack.Book.Len())
		}
	}
}
