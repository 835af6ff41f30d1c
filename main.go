package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/wfunc/impostor/broadcast"
	"github.com/wfunc/impostor/config"
	"github.com/wfunc/impostor/game"
	"github.com/wfunc/impostor/logger"
	"github.com/wfunc/impostor/monitor"
	"github.com/wfunc/impostor/persistence"
	"github.com/wfunc/impostor/room"
	"github.com/wfunc/impostor/rpc"
	"github.com/wfunc/impostor/server"
	"github.com/wfunc/impostor/services"
	"github.com/wfunc/impostor/session"
	"github.com/wfunc/impostor/timer"
)

func openStore(ctx context.Context, cfg *config.Config) (persistence.RoomStore, timer.Purger, error) {
	switch cfg.Storage.Backend {
	case config.StorageRedis:
		store, err := persistence.NewRedisStore(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Storage.RoomTTL)
		// redis 自带过期，不需要清理任务
		return store, nil, err
	case config.StoragePostgres:
		pg := cfg.Database.Postgres
		store, err := persistence.NewPostgresStore(ctx, pg.Host, pg.Port, pg.User, pg.Password, pg.DBName, cfg.Storage.RoomTTL)
		return store, store, err
	default:
		store := persistence.NewMemoryStore(cfg.Storage.RoomTTL)
		return store, store, nil
	}
}

func main() {
	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Init(false)
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Init(cfg.Server.Debug)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, purger, err := openStore(ctx, cfg)
	if err != nil {
		logger.Log.Fatalf("Failed to open %s room store: %v", cfg.Storage.Backend, err)
	}
	defer store.Close()
	logger.Log.Infof("Room store: %s (ttl %s)", cfg.Storage.Backend, cfg.Storage.RoomTTL)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	mon := monitor.NewMonitor("impostor", registry)

	roomManager := room.NewRoomManager()
	sessionManager := session.NewManager()
	opts := []services.Option{
		services.WithTracker(roomManager),
		services.WithRecorder(mon),
		services.WithNotifier(broadcast.NewRoomBroadcaster(roomManager, sessionManager)),
	}

	// Initialize Database
	if cfg.Database.HistoryEnabled {
		pg := cfg.Database.Postgres
		db, err := persistence.NewGormPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
		if err != nil {
			logger.Log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		logger.Log.Info("Database connection successful.")
		opts = append(opts, services.WithHistory(services.NewHistoryService(db)))
	}

	rooms := services.NewRoomService(store, game.New(), opts...)

	timers := timer.NewTimerManager()
	defer timers.Stop()
	timers.ScheduleHeartbeatSweep(rooms, cfg.Game.HeartbeatTimeout, cfg.Game.SweepInterval)
	if purger != nil {
		timers.SchedulePurge(purger, time.Hour)
	}
	timers.AddTimer(0, 15*time.Second, func() {
		mon.SetActiveRooms(roomManager.Count())
	})

	rpcServer, err := rpc.NewServer(cfg.Server.RPCAddress)
	if err != nil {
		logger.Log.Fatalf("Failed to create RPC server: %v", err)
	}
	if err := rpcServer.Register(rpc.NewGameService(rooms, roomManager)); err != nil {
		logger.Log.Fatalf("Failed to register RPC service: %v", err)
	}
	go rpcServer.Start()
	defer rpcServer.Stop()

	// Initialize Game Server
	gameServer := server.NewGameServer(cfg.Server.HTTPAddress, rooms, roomManager, sessionManager, mon, cfg.Game.HeartbeatTimeout)
	errCh := make(chan error, 1)
	go func() { errCh <- gameServer.Start() }()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Log.Errorf("Game server stopped: %v", err)
		}
	case <-ctx.Done():
		logger.Log.Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := gameServer.Shutdown(shutdownCtx); err != nil {
		logger.Log.Warnf("Graceful shutdown: %v", err)
	}
}
