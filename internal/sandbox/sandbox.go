package sandbox

import (
	"context"
	"errors"
	"time"
)

// Status represents the lifecycle state of a sandbox run.
type Status string

const (
	StatusCreating  Status = "creating"
	StatusRunning   Status = "running"
	StatusDestroyed Status = "destroyed"
)

// Sandbox is one throwaway container that executes a single submission.
type Sandbox struct {
	ID          string    `json:"id"`
	ContainerID string    `json:"container_id"`
	Label       string    `json:"label"`
	Image       string    `json:"image" env:"IMAGE"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// ExecResult holds the output from a sandbox execution.
type ExecResult struct {
	ExitCode int           `json:"exit_code"`
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	Duration time.Duration `json:"duration"`
}

// Config holds sandbox creation parameters.
type Config struct {
	Image         string  `yaml:"image" json:"image" env:"IMAGE"`
	MemoryMB      int     `yaml:"memory_mb" json:"memory_mb" env:"MEMORY_MB"`
	CPULimit      float64 `yaml:"cpu_limit" json:"cpu_limit" env:"CPU_LIMIT"`
	PidsLimit     int64   `yaml:"pids_limit" json:"pids_limit" env:"PIDS_LIMIT"`
	NetworkOff    bool    `yaml:"network_off" json:"network_off" env:"NETWORK_OFF"`
	MaxConcurrent int     `yaml:"max_concurrent" json:"max_concurrent" env:"MAX_CONCURRENT"`
}

// DefaultConfig returns sensible defaults for a Go sandbox.
func DefaultConfig() Config {
	return Config{
		Image:         "golang:1.25-alpine",
		MemoryMB:      256,
		CPULimit:      0.5,
		PidsLimit:     128,
		NetworkOff:    true,
		MaxConcurrent: 4,
	}
}

// Backend runs containers. DockerBackend is the production implementation.
type Backend interface {
	CreateContainer(ctx context.Context, cfg Config, label string) (string, error)
	CopyFiles(ctx context.Context, containerID string, files map[string]string) error
	Exec(ctx context.Context, containerID string, cmd []string, timeout time.Duration) (*ExecResult, error)
	DestroyContainer(ctx context.Context, containerID string) error
	Close() error
}

var (
	ErrMaxSandboxes = errors.New("maximum concurrent sandboxes reached")
	ErrClosed       = errors.New("sandbox manager is closed")
)
