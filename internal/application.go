package application

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/config"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/metrics"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/repository"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/repository/storage"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/usecase"
	"github.com/rocketscienceinc/tictactoe-rooms/transport/rest"
	"github.com/rocketscienceinc/tictactoe-rooms/transport/websocket"
)

// RunApp - runs the application until a signal arrives or a server fails.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var restOpts []rest.Option

	results, redisStorage, err := initResults(ctx, log, conf)
	if err != nil {
		return err
	}
	if redisStorage != nil {
		defer func() {
			if err := redisStorage.Close(); err != nil {
				log.Error("could not close redis storage", "error", err)
			}
		}()

		restOpts = append(restOpts, rest.WithStorage(redisStorage))
	}

	appMetrics := metrics.New()

	coordinator := usecase.NewCoordinator(logger, repository.NewRoomStore(), conf.Rooms.Expiry)
	appMetrics.ObserveRooms(coordinator.RoomCount)

	wsServer := websocket.New(logger, coordinator, results, appMetrics, websocket.Options{
		AllowedOrigins: conf.AllowedOrigins,
	})
	restServer := rest.New(logger, coordinator, results, appMetrics.Handler(), restOpts...)

	reaper := usecase.NewReaper(logger, coordinator, conf.Rooms.SweepInterval, wsServer.CloseRoom)
	go reaper.Run(ctx)

	// run HTTP server
	httpErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		if httpErr := restServer.Start(ctx, conf.HTTPPort); httpErr != nil {
			log.Error("HTTP server error", "error", httpErr)
			httpErrCh <- httpErr
		}
	}()

	// run Websocket server
	wsErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting WebSocket server", "port", conf.SocketPort)
		if wsErr := wsServer.Start(ctx, conf.SocketPort, restServer.HealthHandler()); wsErr != nil {
			log.Error("WebSocket server error", "error", wsErr)
			wsErrCh <- wsErr
		}
	}()

	select {
	case err = <-httpErrCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case err = <-wsErrCh:
		return fmt.Errorf("WebSocket server error: %w", err)
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
		wsServer.WaitResults()
		return nil
	}
}

// initResults - redis backed results when enabled, in-memory otherwise. The storage
// is nil when redis is disabled.
func initResults(
	ctx context.Context, log *slog.Logger, conf *config.Config,
) (repository.ResultRepository, *storage.RedisStorage, error) {
	if !conf.Redis.Enabled {
		log.Info("redis disabled, keeping match results in memory")
		return repository.NewMemoryResultRepository(), nil, nil
	}

	redisStorage, err := storage.NewRedisStorage(ctx, storage.RedisOptions{
		Addr:     conf.Redis.GetRedisAddr(),
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("could not connect to redis storage: %w", err)
	}

	return repository.NewResultRepository(redisStorage.Connection, conf.Redis.ResultsTTL), redisStorage, nil
}
