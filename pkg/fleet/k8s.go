package fleet

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"

	"github.com/athulya-anil/laneq/pkg/config"
	"github.com/athulya-anil/laneq/pkg/models"
)

var _ Fleet = (*PodFleet)(nil)

// PodFleet implements Fleet on Kubernetes: each worker instance is a
// Pod carrying the role label, launched from the configured container
// image and terminated by deletion.
type PodFleet struct {
	client    kubernetes.Interface
	namespace string
	cfg       config.Config
}

// NewPodFleet creates a PodFleet.
func NewPodFleet(client kubernetes.Interface, cfg config.Config) *PodFleet {
	return &PodFleet{client: client, namespace: cfg.Namespace, cfg: cfg}
}

// ListWorkers returns role-labeled pods in Running or Pending phase.
func (f *PodFleet) ListWorkers(ctx context.Context) ([]Instance, error) {
	pods, err := f.client.CoreV1().Pods(f.namespace).List(ctx, metav1.ListOptions{
		LabelSelector: f.cfg.RoleLabel + "=" + f.cfg.RoleValue,
	})
	if err != nil {
		return nil, fmt.Errorf("fleet: list pods: %w", err)
	}

	instances := make([]Instance, 0, len(pods.Items))
	for i := range pods.Items {
		pod := &pods.Items[i]
		if pod.Status.Phase != corev1.PodRunning && pod.Status.Phase != corev1.PodPending {
			continue
		}
		if pod.DeletionTimestamp != nil {
			continue
		}
		instances = append(instances, Instance{ID: pod.Name, State: string(pod.Status.Phase)})
	}
	return instances, nil
}

// Launch creates n worker pods from the configured template. Pods are
// split across lanes round-robin, high lane first, so added capacity
// also drains the priority lane.
func (f *PodFleet) Launch(ctx context.Context, n int) ([]string, error) {
	lanes := f.cfg.Lanes()
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		lane := lanes[i%len(lanes)]
		pod := f.workerPod(lane)
		created, err := f.client.CoreV1().Pods(f.namespace).Create(ctx, pod, metav1.CreateOptions{})
		if err != nil {
			return ids, fmt.Errorf("fleet: create pod: %w", err)
		}
		ids = append(ids, created.Name)
	}
	return ids, nil
}

// Terminate deletes the given pods. Errors after the first deletion are
// logged and the remaining deletions still run, so one stuck pod does
// not block the batch.
func (f *PodFleet) Terminate(ctx context.Context, ids []string) error {
	var firstErr error
	for _, id := range ids {
		err := f.client.CoreV1().Pods(f.namespace).Delete(ctx, id, metav1.DeleteOptions{})
		if err != nil {
			log.Printf("[WARN] fleet: delete pod %s: %v", id, err)
			if firstErr == nil {
				firstErr = fmt.Errorf("fleet: delete pod %s: %w", id, err)
			}
		}
	}
	return firstErr
}

// workerPod builds the pod template for one worker instance.
func (f *PodFleet) workerPod(lane string) *corev1.Pod {
	priority := string(models.PriorityNormal)
	if lane == f.cfg.HighLane {
		priority = string(models.PriorityHigh)
	}
	return &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name:      f.cfg.WorkerPrefix + uuid.NewString()[:8],
			Namespace: f.namespace,
			Labels: map[string]string{
				f.cfg.RoleLabel: f.cfg.RoleValue,
			},
		},
		Spec: corev1.PodSpec{
			RestartPolicy: corev1.RestartPolicyOnFailure,
			Containers: []corev1.Container{
				{
					Name:  strings.TrimSuffix(f.cfg.WorkerPrefix, "-"),
					Image: f.cfg.WorkerImage,
					Env: []corev1.EnvVar{
						{Name: "LANEQ_REDIS_ADDR", Value: f.cfg.RedisAddr},
						{Name: "WORKER_LANE", Value: lane},
						{Name: "WORKER_PRIORITY", Value: priority},
					},
				},
			},
		},
	}
}
