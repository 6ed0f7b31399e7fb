package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gin-gonic/gin"

	"airdrop-distributor/pkg/api"
	"airdrop-distributor/pkg/config"
	"airdrop-distributor/pkg/distributor"
	"airdrop-distributor/pkg/notifications"
	"airdrop-distributor/pkg/service"
	sol "airdrop-distributor/pkg/solana"
	"airdrop-distributor/pkg/store"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "YAML config file (environment variables override it)")
	flag.Parse()

	// Create logger
	logger := log.New(os.Stdout, "[DISTRIBUTOR] ", log.LstdFlags)
	logger.Println("Starting Airdrop Distributor...")

	// Load configuration
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}
	mint, _ := cfg.Mint()
	programID := sol.DefaultProgramID
	if id, _ := cfg.Program(); id != nil {
		programID = *id
	}
	logger.Printf("Distributing mint %s under program %s", mint, programID)

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	st, err := store.NewBoltStore(cfg.DatabasePath())
	if err != nil {
		logger.Fatalf("Failed to initialize storage: %v", err)
	}
	defer st.Close()

	var vault distributor.Vault
	var vaultAddress string
	switch cfg.VaultMode {
	case config.VaultModeLedger:
		vault = sol.NewLedgerVault(mint, cfg.LedgerBalance)
		vaultAddress = "ledger"
	default:
		authority, _ := cfg.VaultKey()
		splVault, err := sol.NewSPLVault(
			rpc.New(cfg.SolanaRpcURL),
			authority,
			mint,
			sol.VaultConfig{
				ComputeUnitLimit: cfg.ComputeUnitLimit,
				ComputeUnitPrice: cfg.ComputeUnitPrice,
				ConfirmTimeout:   cfg.ConfirmTimeout,
				PollInterval:     sol.DefaultVaultConfig.PollInterval,
				SkipPreflight:    cfg.SkipPreflight,
				Debug:            cfg.Debug,
			},
			log.New(os.Stdout, "[VAULT] ", log.LstdFlags),
		)
		if err != nil {
			logger.Fatalf("Failed to initialize vault: %v", err)
		}
		vault = splVault
		vaultAddress = splVault.Source().String()
	}
	logger.Printf("Paying out of vault %s", vaultAddress)

	var sinks []distributor.EventSink
	recorder, err := notifications.NewClaimRecorder(cfg.EventsDir())
	if err != nil {
		logger.Printf("WARNING: Failed to initialize claim recorder: %v", err)
	} else {
		sinks = append(sinks, recorder)
	}

	// Create Telegram notification client
	telegramClient := notifications.NewTelegramClient(
		cfg.TelegramBotToken,
		cfg.TelegramChatID,
		cfg.EnableTelegram,
	)
	telegramClient.Decimals = cfg.TokenDecimals
	if cfg.EnableTelegram {
		sinks = append(sinks, telegramClient)
	}

	svc := service.NewDistributionService(st, vault, mint, programID, logger, sinks...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	distributors, err := svc.List()
	if err != nil {
		logger.Fatalf("Failed to list distributors: %v", err)
	}
	logger.Printf("Loaded %d distributor(s)", len(distributors))
	if err := telegramClient.SendStartupMessage(ctx, vaultAddress, len(distributors)); err != nil {
		logger.Printf("WARNING: Failed to send startup message: %v", err)
	}

	var notifier service.StatusNotifier
	if cfg.EnableTelegram {
		notifier = telegramClient
	}
	monitor := service.NewStatusMonitor(svc, notifier, cfg.StatusInterval, logger)
	monitor.Start(ctx)

	handler := api.NewHandler(svc, cfg.SignatureMaxAge, logger)
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: api.NewRouter(handler),
	}

	go func() {
		logger.Printf("Server listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	// Set up graceful shutdown
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)

	// Wait for shutdown signal
	<-signalCh
	logger.Println("Shutdown signal received")

	// in-flight claims may be waiting on confirmation
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ConfirmTimeout+5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("Forced shutdown: %v", err)
	}

	monitor.Stop()
	cancel()
	logger.Println("Distributor stopped, goodbye!")
}
