package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/athulya-anil/laneq/pkg/config"
	"github.com/athulya-anil/laneq/pkg/deps"
	"github.com/athulya-anil/laneq/pkg/queue"
	"github.com/athulya-anil/laneq/pkg/store/redisstore"
	"github.com/athulya-anil/laneq/pkg/worker"
)

func main() {
	cfg, err := config.Load(os.Getenv("LANEQ_CONFIG"))
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	workerID := os.Getenv("WORKER_ID")
	if workerID == "" {
		hostname, _ := os.Hostname()
		if hostname == "" {
			hostname = uuid.NewString()[:8]
		}
		workerID = "worker-" + hostname
	}

	lane := os.Getenv("WORKER_LANE")
	if lane == "" {
		lane = cfg.NormalLane
	}

	log.Printf("🚀 laneq worker %s starting (lane: %s, redis: %s)", workerID, lane, cfg.RedisAddr)

	st := redisstore.New(cfg.RedisAddr)
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := st.Ping(ctx); err != nil {
		log.Fatalf("store unreachable: %v", err)
	}

	tracker := deps.NewTracker(st)
	disp := queue.NewDispatcher(st, tracker, cfg)
	w := worker.New(workerID, lane, disp, tracker, cfg)
	hb := worker.NewHeartbeatSender(st, workerID, lane, cfg.HeartbeatInterval, cfg.HeartbeatTTL)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return w.Run(gctx) })
	g.Go(func() error { return hb.Run(gctx) })

	if err := g.Wait(); err != nil {
		log.Fatalf("worker: %v", err)
	}
	log.Printf("👋 worker %s stopped", workerID)
}
