package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"

	"github.com/dkim-labs/tickhook/params"
	"github.com/dkim-labs/tickhook/pkg/amm"
	"github.com/dkim-labs/tickhook/pkg/api"
	"github.com/dkim-labs/tickhook/pkg/custody"
	"github.com/dkim-labs/tickhook/pkg/hook"
	"github.com/dkim-labs/tickhook/pkg/storage"
	"github.com/dkim-labs/tickhook/pkg/util"
)

func main() {
	// Load config from .env file and environment variables.
	cfg := params.LoadFromEnv("")

	logger, err := util.NewLoggerWithFile(cfg.Node.LogFile)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", cfg.Node.LogFile)

	// ---- Persistence ----
	store, err := storage.NewStore(cfg.Node.DBPath)
	if err != nil {
		sugar.Fatalw("store_open_failed", "path", cfg.Node.DBPath, "err", err)
	}
	defer store.Close()

	snap, err := store.LoadSnapshot()
	if err != nil {
		sugar.Fatalw("snapshot_load_failed", "err", err)
	}

	// ---- Hook + pool dispatcher ----
	vault := custody.NewVault()
	h, err := hook.New(hook.Config{
		FeeBps:       cfg.Hook.FeeBps,
		FeeCollector: common.HexToAddress(cfg.Hook.FeeCollector),
		TickCapacity: cfg.Hook.TickCapacity,
	}, nil, vault, store, util.RealClock{}, sugar, snap)
	if err != nil {
		sugar.Fatalw("hook_init_failed", "err", err)
	}

	pools := amm.NewManager(h, sugar)
	h.BindPool(pools)

	// ---- Devnet pool ----
	binding := amm.PoolBinding{
		AssetA:      common.HexToAddress(cfg.Devnet.AssetA),
		AssetB:      common.HexToAddress(cfg.Devnet.AssetB),
		FeeTierBps:  cfg.Devnet.FeeTierBps,
		TickSpacing: cfg.Devnet.TickSpacing,
	}
	pool := amm.NewPool(binding)
	if err := pools.RegisterPool(pool); err != nil {
		sugar.Fatalw("pool_register_failed", "err", err)
	}
	initialPrice, err := amm.TickToSqrtPriceX96(cfg.Devnet.InitialTick)
	if err != nil {
		sugar.Fatalw("initial_price_failed", "tick", cfg.Devnet.InitialTick, "err", err)
	}
	if err := pools.InitializePool(pool.ID, initialPrice); err != nil {
		sugar.Fatalw("pool_init_failed", "err", err)
	}
	sugar.Infow("devnet_pool_ready", "pool", pool.ID.Hex(), "tick", cfg.Devnet.InitialTick)

	// ---- API ----
	server := api.NewServer(h, pools, vault, sugar)
	go func() {
		if err := server.Start(cfg.Node.APIAddr); err != nil {
			sugar.Fatalw("api_server_failed", "err", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	sugar.Info("shutting down")
}
