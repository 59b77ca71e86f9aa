package autoscaler

import (
	"context"
	"fmt"
	"log"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/client/v3/concurrency"
)

const electionPrefix = "/laneq-autoscaler-election"

// RunElected gates run behind an etcd leader election, so that when
// several autoscaler replicas run for availability, exactly one drives
// scaling at a time. With no endpoints configured, run executes
// directly.
func RunElected(ctx context.Context, endpoints []string, nodeID string, run func(ctx context.Context) error) error {
	if len(endpoints) == 0 {
		return run(ctx)
	}

	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return fmt.Errorf("autoscaler: connect to etcd: %w", err)
	}
	defer cli.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		session, err := concurrency.NewSession(cli, concurrency.WithTTL(10))
		if err != nil {
			return fmt.Errorf("autoscaler: create session: %w", err)
		}

		election := concurrency.NewElection(session, electionPrefix)
		if err := election.Campaign(ctx, nodeID); err != nil {
			session.Close()
			if ctx.Err() != nil {
				return nil
			}
			log.Printf("[WARN] election campaign failed: %v", err)
			time.Sleep(2 * time.Second)
			continue
		}

		log.Printf("[SCALE] node %s is the active autoscaler", nodeID)

		// Run until the session expires or the process stops.
		leadCtx, cancel := context.WithCancel(ctx)
		done := make(chan error, 1)
		go func() { done <- run(leadCtx) }()

		select {
		case <-session.Done():
			log.Printf("[WARN] node %s lost autoscaler leadership", nodeID)
			cancel()
			<-done
		case err := <-done:
			cancel()
			election.Resign(context.Background())
			session.Close()
			return err
		}
		session.Close()
	}
}
