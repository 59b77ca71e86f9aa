package fleet

import (
	"context"
	"strings"
	"testing"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/athulya-anil/laneq/pkg/config"
)

func testPod(cfg config.Config, name string, phase corev1.PodPhase, labeled bool) *corev1.Pod {
	pod := &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: cfg.Namespace,
		},
		Status: corev1.PodStatus{Phase: phase},
	}
	if labeled {
		pod.Labels = map[string]string{cfg.RoleLabel: cfg.RoleValue}
	}
	return pod
}

func TestLaunchCreatesLabeledPods(t *testing.T) {
	cfg := config.Default()
	client := fake.NewSimpleClientset()
	fleet := NewPodFleet(client, cfg)
	ctx := context.Background()

	ids, err := fleet.Launch(ctx, 3)
	if err != nil {
		t.Fatalf("launch: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("got %d ids, want 3", len(ids))
	}

	pods, err := client.CoreV1().Pods(cfg.Namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(pods.Items) != 3 {
		t.Fatalf("got %d pods, want 3", len(pods.Items))
	}

	lanes := map[string]int{}
	for i := range pods.Items {
		pod := &pods.Items[i]
		if !strings.HasPrefix(pod.Name, cfg.WorkerPrefix) {
			t.Errorf("pod name %q lacks prefix %q", pod.Name, cfg.WorkerPrefix)
		}
		if pod.Labels[cfg.RoleLabel] != cfg.RoleValue {
			t.Errorf("pod %s missing role label", pod.Name)
		}
		if got := pod.Spec.Containers[0].Image; got != cfg.WorkerImage {
			t.Errorf("pod %s image: got %s, want %s", pod.Name, got, cfg.WorkerImage)
		}
		for _, env := range pod.Spec.Containers[0].Env {
			if env.Name == "WORKER_LANE" {
				lanes[env.Value]++
			}
		}
	}

	// Round-robin across lanes, high first: 3 pods → 2 high, 1 normal.
	if lanes[cfg.HighLane] != 2 || lanes[cfg.NormalLane] != 1 {
		t.Errorf("lane split: got %v, want 2 high / 1 normal", lanes)
	}
}

func TestListWorkersFiltersPhaseAndLabel(t *testing.T) {
	cfg := config.Default()
	client := fake.NewSimpleClientset(
		testPod(cfg, "running-1", corev1.PodRunning, true),
		testPod(cfg, "pending-1", corev1.PodPending, true),
		testPod(cfg, "done-1", corev1.PodSucceeded, true),
		testPod(cfg, "failed-1", corev1.PodFailed, true),
		testPod(cfg, "unlabeled-1", corev1.PodRunning, false),
	)
	fleet := NewPodFleet(client, cfg)

	instances, err := fleet.ListWorkers(context.Background())
	if err != nil {
		t.Fatalf("list workers: %v", err)
	}

	got := map[string]string{}
	for _, inst := range instances {
		got[inst.ID] = inst.State
	}
	if len(got) != 2 {
		t.Fatalf("got %d instances %v, want 2", len(got), got)
	}
	if got["running-1"] != string(corev1.PodRunning) {
		t.Errorf("running-1: %v", got)
	}
	if got["pending-1"] != string(corev1.PodPending) {
		t.Errorf("pending-1: %v", got)
	}
}

func TestListWorkersSkipsTerminating(t *testing.T) {
	cfg := config.Default()
	deleting := testPod(cfg, "going-away", corev1.PodRunning, true)
	now := metav1.Now()
	deleting.DeletionTimestamp = &now

	client := fake.NewSimpleClientset(deleting)
	fleet := NewPodFleet(client, cfg)

	instances, err := fleet.ListWorkers(context.Background())
	if err != nil {
		t.Fatalf("list workers: %v", err)
	}
	if len(instances) != 0 {
		t.Errorf("terminating pod listed as worker: %v", instances)
	}
}

func TestTerminateDeletesPods(t *testing.T) {
	cfg := config.Default()
	client := fake.NewSimpleClientset(
		testPod(cfg, "victim-1", corev1.PodRunning, true),
		testPod(cfg, "victim-2", corev1.PodRunning, true),
		testPod(cfg, "survivor", corev1.PodRunning, true),
	)
	fleet := NewPodFleet(client, cfg)
	ctx := context.Background()

	if err := fleet.Terminate(ctx, []string{"victim-1", "victim-2"}); err != nil {
		t.Fatalf("terminate: %v", err)
	}

	pods, _ := client.CoreV1().Pods(cfg.Namespace).List(ctx, metav1.ListOptions{})
	if len(pods.Items) != 1 || pods.Items[0].Name != "survivor" {
		t.Errorf("unexpected pods after terminate: %v", pods.Items)
	}
}

func TestTerminateContinuesPastMissingPod(t *testing.T) {
	cfg := config.Default()
	client := fake.NewSimpleClientset(testPod(cfg, "victim-1", corev1.PodRunning, true))
	fleet := NewPodFleet(client, cfg)
	ctx := context.Background()

	err := fleet.Terminate(ctx, []string{"ghost", "victim-1"})
	if err == nil {
		t.Fatal("expected error for missing pod")
	}

	// The real victim was still deleted despite the earlier failure.
	pods, _ := client.CoreV1().Pods(cfg.Namespace).List(ctx, metav1.ListOptions{})
	if len(pods.Items) != 0 {
		t.Errorf("victim-1 not deleted: %v", pods.Items)
	}
}
