package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/Satwikmbadiger/EmoTutor/internal/auth"
	"github.com/Satwikmbadiger/EmoTutor/internal/config"
	"github.com/Satwikmbadiger/EmoTutor/internal/handler"
	panelservice "github.com/Satwikmbadiger/EmoTutor/internal/service/panel"
	"github.com/Satwikmbadiger/EmoTutor/internal/service/session"
	"github.com/Satwikmbadiger/EmoTutor/internal/service/tutor"
	"github.com/Satwikmbadiger/EmoTutor/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	authCtx := auth.NewContext()

	// Account and chat record storage: Redis when configured and reachable,
	// in-memory otherwise.
	var provider auth.Provider
	var records store.Store
	if cfg.Redis.Enabled() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Printf("warning: failed to reach redis at %s: %v", cfg.Redis.Addr, err)
			log.Println("falling back to in-memory storage - 聊天记录在进程退出后会丢失")
			provider = auth.NewMemoryProvider()
			records = store.NewMemoryStore()
		} else {
			provider = auth.NewRedisProvider(rdb)
			records = store.NewRedisStore(rdb)
			log.Printf("redis storage initialized at %s", cfg.Redis.Addr)
		}
	} else {
		log.Println("Redis 地址未配置，使用内存存储")
		provider = auth.NewMemoryProvider()
		records = store.NewMemoryStore()
	}

	tutorClient := tutor.New(cfg.Tutor.BaseURL, cfg.Tutor.Timeout)
	log.Printf("tutor backend at %s", cfg.Tutor.BaseURL)

	controller := session.NewController(authCtx, tutorClient, records)
	controller.Start()
	defer controller.Stop()

	panelCfg := panelservice.Config{
		SampleInterval:   cfg.Panel.SampleInterval,
		MobileBreakpoint: cfg.Panel.MobileBreakpoint,
	}

	router := handler.NewRouter(authCtx, provider, controller, tutorClient, panelCfg)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("EmoTutor gateway listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
