package main

import (
	"Gin_postgres_redis_asset_lending/app"
	"Gin_postgres_redis_asset_lending/config"
	"Gin_postgres_redis_asset_lending/routes"
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	config.LoadEnv()
	cfg := config.Load()

	application := app.MustNew(cfg)
	defer application.Close()

	routes.RegisterRoutes(application.Router, application)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application.Sweeper.Start(ctx)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           application.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		application.Log.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			application.Log.Error("http server", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	application.Log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		application.Log.Error("http shutdown", "err", err)
	}
	// 等待正在处理的过期预约提交或回滚
	if err := application.Sweeper.Stop(shutdownCtx); err != nil {
		application.Log.Error("sweeper stop", "err", err)
	}
}
