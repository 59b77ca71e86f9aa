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

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/athulya-anil/laneq/pkg/api"
	"github.com/athulya-anil/laneq/pkg/config"
	"github.com/athulya-anil/laneq/pkg/deps"
	"github.com/athulya-anil/laneq/pkg/queue"
	"github.com/athulya-anil/laneq/pkg/registry"
	"github.com/athulya-anil/laneq/pkg/store/redisstore"
)

func main() {
	cfg, err := config.Load(os.Getenv("LANEQ_CONFIG"))
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	log.Printf("🚀 laneq API server starting on %s (redis: %s)", cfg.ListenAddr, cfg.RedisAddr)

	st := redisstore.New(cfg.RedisAddr)
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := st.Ping(ctx); err != nil {
		log.Fatalf("store unreachable: %v", err)
	}

	tracker := deps.NewTracker(st)
	disp := queue.NewDispatcher(st, tracker, cfg)
	reg := registry.New(st, cfg.HeartbeatTTL)

	router := gin.Default()
	api.New(disp, reg).SetupRoutes(router)

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: router}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("server: %v", err)
	}
	log.Println("👋 server stopped")
}
