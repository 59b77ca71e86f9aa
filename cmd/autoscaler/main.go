package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/athulya-anil/laneq/pkg/autoscaler"
	"github.com/athulya-anil/laneq/pkg/config"
	"github.com/athulya-anil/laneq/pkg/deps"
	"github.com/athulya-anil/laneq/pkg/fleet"
	"github.com/athulya-anil/laneq/pkg/queue"
	"github.com/athulya-anil/laneq/pkg/store/redisstore"
)

func main() {
	cfg, err := config.Load(os.Getenv("LANEQ_CONFIG"))
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	nodeID, _ := os.Hostname()
	if nodeID == "" {
		nodeID = "autoscaler"
	}

	log.Printf("🚀 laneq autoscaler starting on node %s (namespace: %s)", nodeID, cfg.Namespace)

	st := redisstore.New(cfg.RedisAddr)
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := st.Ping(ctx); err != nil {
		log.Fatalf("store unreachable: %v", err)
	}

	client, err := kubeClient(cfg)
	if err != nil {
		log.Fatalf("kubernetes client: %v", err)
	}

	disp := queue.NewDispatcher(st, deps.NewTracker(st), cfg)
	scaler := autoscaler.New(disp, fleet.NewPodFleet(client, cfg), cfg)

	if err := autoscaler.RunElected(ctx, cfg.EtcdEndpoints, nodeID, scaler.Run); err != nil {
		log.Fatalf("autoscaler: %v", err)
	}
	log.Println("👋 autoscaler stopped")
}

// kubeClient prefers in-cluster credentials and falls back to the
// kubeconfig named by the configured env var for local runs.
func kubeClient(cfg config.Config) (kubernetes.Interface, error) {
	restCfg, err := rest.InClusterConfig()
	if err != nil {
		restCfg, err = clientcmd.BuildConfigFromFlags("", os.Getenv(cfg.KubeconfigEnv))
		if err != nil {
			return nil, err
		}
	}
	return kubernetes.NewForConfig(restCfg)
}
