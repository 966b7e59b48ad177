package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Seann-Moser/waconnect"
	"github.com/Seann-Moser/waconnect/assistant"
	"github.com/Seann-Moser/waconnect/config"
	redis "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	if err := run(); err != nil {
		slog.Error("waconnect stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := cfg.Logging.NewLogger(os.Stdout)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Disconnect(context.Background())
	}()
	if err := client.Ping(connectCtx, nil); err != nil {
		return err
	}

	deps := waconnect.Deps{
		Store:  assistant.NewMongoStore(client.Database(cfg.Mongo.Database)),
		Logger: log,
	}
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() {
			_ = rdb.Close()
		}()
		if err := rdb.Ping(connectCtx).Err(); err != nil {
			log.Warn("redis unreachable, replay checks will be skipped until it recovers", "error", err)
		}
		deps.Redis = rdb
	}

	svc, err := waconnect.New(cfg, deps)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           svc.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.HTTP.Addr, "callback_url", cfg.CallbackURL())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	log.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}
