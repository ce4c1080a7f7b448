package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pay-chain/paychain"
	"github.com/pay-chain/paychain/api"
	"github.com/pay-chain/paychain/bank"
	"github.com/pay-chain/paychain/config"
	"github.com/pay-chain/paychain/events"
	"github.com/pay-chain/paychain/logger"
	"github.com/pay-chain/paychain/metrics"
	"github.com/pay-chain/paychain/store"
	"github.com/pay-chain/paychain/types"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the settlement engine HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			return serve(cfg)
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("paychaind %s (protocol %d)\n", paychain.Version, paychain.ProtocolVersion)
		},
	}
}

func serve(cfg *config.Config) error {
	var log logger.Logger
	if cfg.LogFile != "" {
		log = logger.NewZapFileLogger(cfg.LogLevel, cfg.LogFile)
	} else {
		log = logger.NewZapLogger(cfg.LogLevel)
	}

	var db store.Store
	if cfg.Store.Backend == "badger" {
		var err error
		db, err = store.OpenBadger(cfg.Store.Dir)
		if err != nil {
			return fmt.Errorf("opening store: %w", err)
		}
	} else {
		db = store.NewMemory()
	}

	tokenBank := bank.NewMemory()
	for addr, amount := range cfg.Genesis.Balances {
		account, err := types.AddressFromBase58(addr)
		if err != nil {
			return fmt.Errorf("genesis balance: %w", err)
		}
		tokenBank.Mint(account, amount)
	}

	var recorder metrics.Recorder = metrics.NoopRecorder{}
	if cfg.EnableMetrics {
		recorder = metrics.NewPrometheusRecorder()
	}

	pc := paychain.New(
		paychain.WithStore(db),
		paychain.WithBank(tokenBank),
		paychain.WithLogger(log),
		paychain.WithMetrics(recorder),
		paychain.WithEvents(events.NewBus()),
	)
	defer pc.Close()

	if err := initializeFromGenesis(pc, cfg, log); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.Routes(api.NewHandlers(pc), log, cfg.EnableMetrics),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", map[string]any{"addr": cfg.ListenAddr})
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-stop:
		log.Info("shutting down", nil)
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return err
		}
	}
	return nil
}

// initializeFromGenesis creates the deployment config at startup when
// the config file provides one and the store is still empty.
func initializeFromGenesis(pc *paychain.PayChain, cfg *config.Config, log logger.Logger) error {
	g := cfg.Genesis
	if g.ChainID == "" {
		return nil
	}

	authority, err := types.AddressFromBase58(g.Authority)
	if err != nil {
		return fmt.Errorf("genesis authority: %w", err)
	}
	feeRecipient, err := types.AddressFromBase58(g.FeeRecipient)
	if err != nil {
		return fmt.Errorf("genesis fee recipient: %w", err)
	}
	router, err := types.AddressFromBase58(g.Router)
	if err != nil {
		return fmt.Errorf("genesis router: %w", err)
	}

	err = pc.Initialize(context.Background(), types.InitializeParams{
		Authority:    authority,
		FeeRecipient: feeRecipient,
		Router:       router,
		ChainID:      g.ChainID,
	})
	if types.IsCode(err, types.ErrAlreadyInitialized) {
		log.Info("config already initialized", map[string]any{"chain_id": g.ChainID})
		return nil
	}
	return err
}
