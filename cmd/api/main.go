package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/qwertttyyy/TaskManagement/internal/cache"
	"github.com/qwertttyyy/TaskManagement/internal/config"
	"github.com/qwertttyyy/TaskManagement/internal/handler"
	"github.com/qwertttyyy/TaskManagement/internal/notify"
	"github.com/qwertttyyy/TaskManagement/internal/repository"
	"github.com/qwertttyyy/TaskManagement/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, using environment variables")
	}

	cfg := config.Load()

	db, err := repository.NewDB(cfg.DatabaseDSN)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	listCache := newListCache(cfg)

	hub := notify.NewHub()
	hubCtx, stopHub := context.WithCancel(context.Background())
	go hub.Run(hubCtx)

	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)

	authService := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTExpiry)
	taskService := service.NewTaskService(taskRepo, listCache, hub)

	authHandler := handler.NewAuthHandler(authService)
	taskHandler := handler.NewTaskHandler(taskService)
	notificationHandler := handler.NewNotificationHandler(hub)

	r := handler.NewRouter(authHandler, taskHandler, notificationHandler, cfg.JWTSecret)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		slog.Info("server starting", "port", cfg.Port, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced shutdown", "error", err)
		os.Exit(1)
	}

	stopHub()
	hub.Wait()

	slog.Info("server stopped")
}

// newListCache picks the cache backend: Redis when REDIS_ADDR is set,
// otherwise in-process memory.
func newListCache(cfg config.Config) cache.ListCache {
	if cfg.RedisAddr == "" {
		return cache.NewMemoryCache(cfg.CacheTTL)
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		slog.Warn("redis ping failed, falling back to in-process cache", "addr", cfg.RedisAddr, "error", err)
		return cache.NewMemoryCache(cfg.CacheTTL)
	}

	slog.Info("using redis list cache", "addr", cfg.RedisAddr)
	return cache.NewRedisCache(client, cfg.CacheTTL)
}
