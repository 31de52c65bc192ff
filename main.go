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

	"github.com/go-co-op/gocron/v2"
	"github.com/joho/godotenv"

	"pongarena/server/internal/config"
	"pongarena/server/internal/events"
	httpapi "pongarena/server/internal/http"
	"pongarena/server/internal/leaderboard"
	"pongarena/server/internal/logging"
	"pongarena/server/internal/matchmaking"
	"pongarena/server/internal/registry"
	"pongarena/server/internal/replay"
	"pongarena/server/internal/results"
	"pongarena/server/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger setup error: %v\n", err)
		os.Exit(1)
	}
	logging.ReplaceGlobals(logger)
	defer logger.Sync()

	st, err := store.Open(cfg.PostgresDSN)
	if err != nil {
		logger.Fatal("database connection failed", logging.Error(err))
	}

	evaluatorOpts := []results.Option{results.WithLogger(logger)}
	if cfg.RedisAddr != "" {
		mirror := leaderboard.New(cfg.RedisAddr, leaderboard.WithLogger(logger))
		defer mirror.Close()
		evaluatorOpts = append(evaluatorOpts, results.WithLeaderboard(mirror))
		logger.Info("leaderboard mirror enabled", logging.String("addr", cfg.RedisAddr))
	}

	var publisher *events.Publisher
	if cfg.NATSURL != "" {
		publisher, err = events.Connect(cfg.NATSURL, events.WithLogger(logger))
		if err != nil {
			logger.Fatal("event bus connection failed", logging.Error(err))
		}
		defer publisher.Close()
		evaluatorOpts = append(evaluatorOpts, results.WithEvents(publisher))
		logger.Info("lifecycle events enabled", logging.String("url", cfg.NATSURL))
	}

	evaluator := results.NewEvaluator(st, evaluatorOpts...)
	reg := registry.New(
		registry.WithMaxConnections(cfg.MaxClients),
		registry.WithLogger(logger),
	)

	var authn websocketAuthenticator
	if cfg.AuthSecret != "" {
		authn, err = newHMACWebsocketAuthenticator(cfg.AuthSecret)
		if err != nil {
			logger.Fatal("authenticator setup failed", logging.Error(err))
		}
	} else {
		logger.Warn("no auth secret configured, trusting identity query parameters")
		authn = queryAuthenticator{}
	}
	gateway := newGateway(cfg, reg, authn, logger)

	coordOpts := []matchmaking.Option{matchmaking.WithLogger(logger)}
	if publisher != nil {
		coordOpts = append(coordOpts, matchmaking.WithEvents(publisher))
	}

	var cleaner *replay.Cleaner
	if cfg.ReplayDir != "" {
		coordOpts = append(coordOpts, matchmaking.WithRecorderFactory(replay.Factory(cfg.ReplayDir, logger)))
		cleaner = replay.NewCleaner(cfg.ReplayDir, replay.RetentionPolicy{
			MaxAge: cfg.ReplayRetention,
		}, logger)
		scheduler, err := gocron.NewScheduler()
		if err != nil {
			logger.Fatal("scheduler setup failed", logging.Error(err))
		}
		if _, err := cleaner.Schedule(scheduler, cfg.ReplaySweepInterval); err != nil {
			logger.Fatal("retention job setup failed", logging.Error(err))
		}
		scheduler.Start()
		defer func() { _ = scheduler.Shutdown() }()
		logger.Info("replay recording enabled", logging.String("dir", cfg.ReplayDir))
	}

	coordinator := matchmaking.New(st, reg, gateway, evaluator, coordOpts...)
	gateway.SetCoordinator(coordinator)
	if publisher != nil {
		if _, err := publisher.SubscribeUserUpdates(coordinator.UpdateUserInfo); err != nil {
			logger.Warn("profile update subscription failed", logging.Error(err))
		}
	}

	handlers := httpapi.NewHandlerSet(httpapi.Options{
		Logger: logger,
		Stats: func() httpapi.Stats {
			return httpapi.Stats{
				Connections:  gateway.stats(),
				LiveMatches:  coordinator.MatchCount(),
				ClassicQueue: coordinator.QueueDepth(matchmaking.ModeClassic),
				PowerUpQueue: coordinator.QueueDepth(matchmaking.ModePowerUps),
			}
		},
		ReplayStats: func() replay.StorageStats {
			if cleaner == nil {
				return replay.StorageStats{}
			}
			return cleaner.Stats()
		},
		RateLimiter: httpapi.NewSlidingWindowLimiter(time.Minute, 60, nil),
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", gateway.serveWS)
	handlers.Register(mux)

	server := &http.Server{
		Addr:         cfg.Address,
		Handler:      mux,
		ReadTimeout:  0, // websocket connections are long-lived
		WriteTimeout: 0,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("listening", logging.String("addr", cfg.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", logging.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown incomplete", logging.Error(err))
	}
}
