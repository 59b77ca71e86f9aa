// Package config holds every externally settable knob: lane names,
// retry and heartbeat policy, autoscaler thresholds, and endpoints.
// Components receive their Config at construction and never read
// process-wide state.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/athulya-anil/laneq/pkg/models"
)

// Config is the full configuration for every laneq process.
type Config struct {
	ListenAddr string
	RedisAddr  string

	// Lanes.
	HighLane    string
	NormalLane  string
	JobIDPrefix string

	// Worker policy.
	MaxRetries     int
	ProgressSteps  int
	StepPause      time.Duration
	DequeueTimeout time.Duration
	RequeueRate    float64 // dependency-wait requeues per second
	RequeueBurst   int

	// Heartbeats.
	HeartbeatInterval time.Duration
	HeartbeatTTL      time.Duration

	// Autoscaler.
	ScaleInterval  time.Duration
	UpperThreshold int
	LowerThreshold int
	MinWorkers     int
	MaxWorkers     int

	// Leader election (optional; empty disables the election gate).
	EtcdEndpoints []string

	// Fleet.
	Namespace     string
	WorkerImage   string
	WorkerPrefix  string
	RoleLabel     string
	RoleValue     string
	KubeconfigEnv string
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		ListenAddr:        ":8080",
		RedisAddr:         "localhost:6379",
		HighLane:          "high",
		NormalLane:        "normal",
		JobIDPrefix:       "job",
		MaxRetries:        3,
		ProgressSteps:     5,
		StepPause:         200 * time.Millisecond,
		DequeueTimeout:    2 * time.Second,
		RequeueRate:       20,
		RequeueBurst:      5,
		HeartbeatInterval: 5 * time.Second,
		HeartbeatTTL:      10 * time.Second,
		ScaleInterval:     10 * time.Second,
		UpperThreshold:    50,
		LowerThreshold:    10,
		MinWorkers:        1,
		MaxWorkers:        10,
		Namespace:         "default",
		WorkerImage:       "laneq-worker:latest",
		WorkerPrefix:      "laneq-worker-",
		RoleLabel:         "laneq.io/role",
		RoleValue:         "worker",
		KubeconfigEnv:     "KUBECONFIG",
	}
}

// LaneFor maps a priority class to its lane name.
func (c Config) LaneFor(p models.Priority) string {
	if p == models.PriorityHigh {
		return c.HighLane
	}
	return c.NormalLane
}

// Lanes returns both lane names, high priority first.
func (c Config) Lanes() []string {
	return []string{c.HighLane, c.NormalLane}
}

// fileConfig mirrors Config for YAML with durations as strings ("5s").
type fileConfig struct {
	ListenAddr        string   `yaml:"listen_addr"`
	RedisAddr         string   `yaml:"redis_addr"`
	HighLane          string   `yaml:"high_lane"`
	NormalLane        string   `yaml:"normal_lane"`
	JobIDPrefix       string   `yaml:"job_id_prefix"`
	MaxRetries        *int     `yaml:"max_retries"`
	ProgressSteps     *int     `yaml:"progress_steps"`
	StepPause         string   `yaml:"step_pause"`
	DequeueTimeout    string   `yaml:"dequeue_timeout"`
	RequeueRate       *float64 `yaml:"requeue_rate"`
	RequeueBurst      *int     `yaml:"requeue_burst"`
	HeartbeatInterval string   `yaml:"heartbeat_interval"`
	HeartbeatTTL      string   `yaml:"heartbeat_ttl"`
	ScaleInterval     string   `yaml:"scale_interval"`
	UpperThreshold    *int     `yaml:"upper_threshold"`
	LowerThreshold    *int     `yaml:"lower_threshold"`
	MinWorkers        *int     `yaml:"min_workers"`
	MaxWorkers        *int     `yaml:"max_workers"`
	EtcdEndpoints     []string `yaml:"etcd_endpoints"`
	Namespace         string   `yaml:"namespace"`
	WorkerImage       string   `yaml:"worker_image"`
	WorkerPrefix      string   `yaml:"worker_prefix"`
	RoleLabel         string   `yaml:"role_label"`
	RoleValue         string   `yaml:"role_value"`
}

// Load builds a Config from defaults, an optional YAML file, and LANEQ_*
// environment overrides, in that order of precedence.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
		var fc fileConfig
		if err := yaml.Unmarshal(raw, &fc); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
		if err := cfg.applyFile(fc); err != nil {
			return cfg, err
		}
	}

	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyFile(fc fileConfig) error {
	setStr(&c.ListenAddr, fc.ListenAddr)
	setStr(&c.RedisAddr, fc.RedisAddr)
	setStr(&c.HighLane, fc.HighLane)
	setStr(&c.NormalLane, fc.NormalLane)
	setStr(&c.JobIDPrefix, fc.JobIDPrefix)
	setInt(&c.MaxRetries, fc.MaxRetries)
	setInt(&c.ProgressSteps, fc.ProgressSteps)
	if fc.RequeueRate != nil {
		c.RequeueRate = *fc.RequeueRate
	}
	setInt(&c.RequeueBurst, fc.RequeueBurst)
	setInt(&c.UpperThreshold, fc.UpperThreshold)
	setInt(&c.LowerThreshold, fc.LowerThreshold)
	setInt(&c.MinWorkers, fc.MinWorkers)
	setInt(&c.MaxWorkers, fc.MaxWorkers)
	if len(fc.EtcdEndpoints) > 0 {
		c.EtcdEndpoints = fc.EtcdEndpoints
	}
	setStr(&c.Namespace, fc.Namespace)
	setStr(&c.WorkerImage, fc.WorkerImage)
	setStr(&c.WorkerPrefix, fc.WorkerPrefix)
	setStr(&c.RoleLabel, fc.RoleLabel)
	setStr(&c.RoleValue, fc.RoleValue)

	for _, d := range []struct {
		raw string
		dst *time.Duration
	}{
		{fc.StepPause, &c.StepPause},
		{fc.DequeueTimeout, &c.DequeueTimeout},
		{fc.HeartbeatInterval, &c.HeartbeatInterval},
		{fc.HeartbeatTTL, &c.HeartbeatTTL},
		{fc.ScaleInterval, &c.ScaleInterval},
	} {
		if d.raw == "" {
			continue
		}
		dur, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("config: bad duration %q: %w", d.raw, err)
		}
		*d.dst = dur
	}
	return nil
}

func (c *Config) applyEnv() {
	setStr(&c.ListenAddr, os.Getenv("LANEQ_LISTEN_ADDR"))
	setStr(&c.RedisAddr, os.Getenv("LANEQ_REDIS_ADDR"))
	setStr(&c.HighLane, os.Getenv("LANEQ_HIGH_LANE"))
	setStr(&c.NormalLane, os.Getenv("LANEQ_NORMAL_LANE"))
	setStr(&c.Namespace, os.Getenv("LANEQ_NAMESPACE"))
	setStr(&c.WorkerImage, os.Getenv("LANEQ_WORKER_IMAGE"))
	envInt(&c.MaxRetries, "LANEQ_MAX_RETRIES")
	envInt(&c.UpperThreshold, "LANEQ_UPPER_THRESHOLD")
	envInt(&c.LowerThreshold, "LANEQ_LOWER_THRESHOLD")
	envInt(&c.MinWorkers, "LANEQ_MIN_WORKERS")
	envInt(&c.MaxWorkers, "LANEQ_MAX_WORKERS")
	envDuration(&c.HeartbeatInterval, "LANEQ_HEARTBEAT_INTERVAL")
	envDuration(&c.HeartbeatTTL, "LANEQ_HEARTBEAT_TTL")
	envDuration(&c.ScaleInterval, "LANEQ_SCALE_INTERVAL")
	if v := os.Getenv("LANEQ_ETCD_ENDPOINTS"); v != "" {
		c.EtcdEndpoints = strings.Split(v, ",")
	}
}

func (c Config) validate() error {
	if c.MinWorkers < 0 || c.MaxWorkers < c.MinWorkers {
		return fmt.Errorf("config: worker bounds [%d, %d] invalid", c.MinWorkers, c.MaxWorkers)
	}
	if c.LowerThreshold >= c.UpperThreshold {
		return fmt.Errorf("config: thresholds lower=%d upper=%d invalid", c.LowerThreshold, c.UpperThreshold)
	}
	if c.HighLane == c.NormalLane {
		return fmt.Errorf("config: lanes must be distinct, got %q twice", c.HighLane)
	}
	if c.ProgressSteps <= 0 {
		return fmt.Errorf("config: progress_steps must be positive, got %d", c.ProgressSteps)
	}
	return nil
}

func setStr(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func envInt(dst *int, name string) {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envDuration(dst *time.Duration, name string) {
	if v := os.Getenv(name); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
