package main

import (
	"time"

	"github.com/dareroom/gameserver/catalog"
	"github.com/dareroom/gameserver/config"
	"github.com/dareroom/gameserver/logger"
	"github.com/dareroom/gameserver/monitor"
	"github.com/dareroom/gameserver/persistence"
	"github.com/dareroom/gameserver/scheduler"
	"github.com/dareroom/gameserver/server"
)

func main() {
	// Initialize logger
	logger.Init()

	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize Database
	store, err := openStore(cfg)
	if err != nil {
		logger.Log.Fatalf("Failed to connect to database: %v", err)
	}
	logger.Log.Info("Database connection successful.")

	// Initial catalog sync
	syncer := catalog.NewSyncer(store, cfg.Catalog.PacksDir)
	if err := syncer.Sync(); err != nil {
		logger.Log.Fatalf("Failed to sync card catalog: %v", err)
	}

	// Metrics
	mon := monitor.NewMonitor("dareroom")
	mon.StartServer(cfg.Server.MetricsAddress)

	// Background jobs: pack resync and room gauge refresh
	sched := scheduler.New()
	defer sched.Stop()
	sched.Every(time.Duration(cfg.Catalog.SyncInterval)*time.Second, func() {
		if err := syncer.Sync(); err != nil {
			logger.Log.Errorf("Periodic pack sync failed: %v", err)
		}
		if count, err := store.CountRooms(); err == nil {
			mon.SetActiveRooms(count)
		}
	})

	// Initialize Game Server
	gameServer := server.NewGameServer(cfg.Server, store, syncer, mon)

	// Start Server
	logger.Log.Infof("Starting game server on %s", cfg.Server.HTTPAddress)
	if err := gameServer.Start(); err != nil {
		logger.Log.Fatalf("Failed to start server: %v", err)
	}
}

func openStore(cfg *config.Config) (persistence.Store, error) {
	pg := cfg.Database.Postgres
	if cfg.Database.Driver == "sql" {
		return persistence.NewPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
	}
	return persistence.NewGormPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
}
