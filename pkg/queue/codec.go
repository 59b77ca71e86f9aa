package queue

import (
	"strconv"
	"time"

	"github.com/athulya-anil/laneq/pkg/models"
)

// jobToMap flattens a job into store hash fields.
func jobToMap(j *models.Job) map[string]string {
	m := map[string]string{
		"id":         j.ID,
		"type":       j.Type,
		"payload":    j.Payload,
		"priority":   string(j.Priority),
		"status":     string(j.Status),
		"retries":    strconv.Itoa(j.Retries),
		"progress":   strconv.Itoa(j.Progress),
		"created_at": j.CreatedAt.Format(time.RFC3339Nano),
	}
	if j.Result != "" {
		m["result"] = j.Result
	}
	return m
}

// mapToJob rebuilds a job from hash fields. Numeric and time fields are
// parsed best-effort; the store is the only writer of these values.
func mapToJob(m map[string]string) *models.Job {
	retries, _ := strconv.Atoi(m["retries"])
	progress, _ := strconv.Atoi(m["progress"])
	createdAt, _ := time.Parse(time.RFC3339Nano, m["created_at"])

	return &models.Job{
		ID:        m["id"],
		Type:      m["type"],
		Payload:   m["payload"],
		Priority:  models.Priority(m["priority"]),
		Status:    models.Status(m["status"]),
		Retries:   retries,
		Progress:  progress,
		CreatedAt: createdAt,
		Result:    m["result"],
	}
}

func itoa(n int) string { return strconv.Itoa(n) }
