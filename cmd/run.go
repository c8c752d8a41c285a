// Package cmd wires the host together: chain client, bridge, event bus, spin
// history, and the HTTP server.
package cmd

import (
	"context"
	"fmt"

	"slotbridge/application"
	"slotbridge/config"
	"slotbridge/database"
	"slotbridge/domain/interfaces"
	"slotbridge/domain/services"
	"slotbridge/infrastructure"
	"slotbridge/repository"
	"slotbridge/server"

	log "github.com/sirupsen/logrus"
)

// Run starts the host and blocks until the context is cancelled
func Run(ctx context.Context) error {
	cfg := config.Get()

	signer, err := infrastructure.NewEd25519Signer(cfg.WalletKey)
	if err != nil {
		return fmt.Errorf("failed to load session wallet: %w", err)
	}
	log.WithFields(log.Fields{
		"address":  signer.Address(),
		"contract": cfg.ContractID,
	}).Info("Session wallet loaded")

	chain := infrastructure.NewChainClient(cfg.ChainRPCURL, cfg.ContractID, signer)
	bus := infrastructure.NewEventBus()

	var history interfaces.SpinHistoryRepository
	if cfg.DatabaseURL != "" {
		databaseURL := database.ConstructDatabaseURL(cfg.DatabaseURL, cfg.DatabaseName)
		db, err := database.NewConnection(ctx, databaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()
		history = repository.NewSpinHistoryRepository(db)
	} else {
		log.Warn("DATABASE_URL not set, spin history disabled")
	}

	bridge := application.NewBridge(chain, services.NewPaytableService(), bus, history)
	if err := bridge.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize bridge: %w", err)
	}
	defer bridge.Close()

	srv := server.NewServer(cfg.Port, bridge, bus, history)
	return srv.Start(ctx)
}
