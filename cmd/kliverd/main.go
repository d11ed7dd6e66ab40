package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"kliver/config"
	"kliver/core/events"
	"kliver/core/state"
	"kliver/gateway"
	gatewaymw "kliver/gateway/middleware"
	nativecommon "kliver/native/common"
	"kliver/native/tokens"
	"kliver/native/vesting"
	"kliver/observability/logging"
	"kliver/rpc"
	"kliver/storage"
)

const envVar = "KLIVER_ENV"

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	env := cfg.Env
	if fromEnv := os.Getenv(envVar); fromEnv != "" {
		env = fromEnv
	}
	logger := logging.Setup("kliverd", env)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		logger.Error("failed to prepare data directory", slog.Any("error", err))
		os.Exit(1)
	}
	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "ledger"))
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	manager := state.NewManager(db)
	if err := grantConfiguredRoles(manager, cfg); err != nil {
		logger.Error("failed to grant roles", slog.Any("error", err))
		os.Exit(1)
	}

	eventLog := events.NewLog(events.DefaultLogCapacity)
	emitter := events.Multi{eventLog}
	pauses := nativecommon.NewSwitchboard(cfg.PausedModules...)

	ledger := tokens.NewLedger(manager)
	ledger.SetEmitter(emitter)
	if err := ledger.SeedBaseURI(cfg.TokenMetadataBase); err != nil {
		logger.Error("failed to seed token metadata base URI", slog.Any("error", err))
		os.Exit(1)
	}

	registry := vesting.NewRegistry(manager)
	registry.SetEmitter(emitter)
	registry.SetPauses(pauses)

	engine := vesting.NewEngine(manager, ledger)
	engine.SetEmitter(emitter)
	engine.SetPauses(pauses)

	authToken := cfg.RPCAuthToken()
	if authToken == "" {
		logger.Warn("RPC auth token not set; mutating methods are disabled", "env_var", cfg.RPCAuthTokenEnv)
	}
	rpcServer := rpc.NewServer(registry, engine, ledger, eventLog, authToken)

	gw := gateway.New(registry, engine, ledger, eventLog)
	limiter := gatewaymw.NewRateLimiter(gatewaymw.RateLimit{RequestsPerMinute: 600, Burst: 20}, logger)

	errCh := make(chan error, 2)
	go func() {
		errCh <- rpcServer.Start(cfg.RPCAddress)
	}()
	go func() {
		errCh <- gw.Start(cfg.GatewayAddress, limiter)
	}()

	logger.Info("node started",
		"rpc", cfg.RPCAddress,
		"gateway", cfg.GatewayAddress,
		"data_dir", cfg.DataDir,
		"paused", cfg.PausedModules,
	)

	if err := <-errCh; err != nil {
		logger.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func grantConfiguredRoles(manager *state.Manager, cfg *config.Config) error {
	for _, raw := range cfg.OwnerAddresses {
		addr, err := config.DecodeAddress(raw)
		if err != nil {
			return err
		}
		if err := manager.GrantRole(state.RoleVestingOwner, addr[:]); err != nil {
			return err
		}
	}
	for _, raw := range cfg.RegistrarAddresses {
		addr, err := config.DecodeAddress(raw)
		if err != nil {
			return err
		}
		if err := manager.GrantRole(state.RoleCampaignRegistrar, addr[:]); err != nil {
			return err
		}
	}
	return nil
}
