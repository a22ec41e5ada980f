package sandbox

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// cleanupTimeout bounds container teardown, which runs even when the
// caller's context is already cancelled.
const cleanupTimeout = 15 * time.Second

// Manager runs submissions in throwaway containers: create, copy, execute,
// destroy. It caps the number of containers alive at once.
type Manager struct {
	backend Backend
	cfg     Config
	logger  *slog.Logger

	mu     sync.Mutex
	active map[string]*Sandbox
	closed bool
}

// NewManager creates a sandbox manager. Zero config fields fall back to
// DefaultConfig.
func NewManager(backend Backend, cfg Config, logger *slog.Logger) *Manager {
	def := DefaultConfig()
	if cfg.Image == "" {
		cfg.Image = def.Image
	}
	if cfg.MemoryMB <= 0 {
		cfg.MemoryMB = def.MemoryMB
	}
	if cfg.CPULimit <= 0 {
		cfg.CPULimit = def.CPULimit
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = def.MaxConcurrent
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		backend: backend,
		cfg:     cfg,
		logger:  logger,
		active:  make(map[string]*Sandbox),
	}
}

// Config returns the effective sandbox configuration
func (m *Manager) Config() Config {
	return m.cfg
}

// Run copies files into a fresh container, executes cmd and destroys the
// container. label tags the container for operators.
func (m *Manager) Run(ctx context.Context, label string, files map[string]string, cmd []string, timeout time.Duration) (*ExecResult, error) {
	sb, err := m.reserve(label)
	if err != nil {
		return nil, err
	}
	defer m.release(sb)

	containerID, err := m.backend.CreateContainer(ctx, m.cfg, label)
	if err != nil {
		return nil, fmt.Errorf("create sandbox: %w", err)
	}
	m.setContainer(sb, containerID)

	m.logger.Debug("sandbox created",
		"sandbox_id", sb.ID,
		"container_id", shortID(containerID),
		"label", label)

	if err := m.backend.CopyFiles(ctx, containerID, files); err != nil {
		return nil, fmt.Errorf("copy files: %w", err)
	}
	return m.backend.Exec(ctx, containerID, cmd, timeout)
}

func (m *Manager) reserve(label string) (*Sandbox, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}
	if len(m.active) >= m.cfg.MaxConcurrent {
		return nil, ErrMaxSandboxes
	}

	sb := &Sandbox{
		ID:        uuid.New().String(),
		Label:     label,
		Image:     m.cfg.Image,
		Status:    StatusCreating,
		CreatedAt: time.Now(),
	}
	m.active[sb.ID] = sb
	return sb, nil
}

func (m *Manager) setContainer(sb *Sandbox, containerID string) {
	m.mu.Lock()
	sb.ContainerID = containerID
	sb.Status = StatusRunning
	m.mu.Unlock()
}

// release destroys the sandbox's container, if any, and frees its slot
func (m *Manager) release(sb *Sandbox) {
	m.mu.Lock()
	containerID := sb.ContainerID
	sb.Status = StatusDestroyed
	delete(m.active, sb.ID)
	m.mu.Unlock()

	if containerID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()
	if err := m.backend.DestroyContainer(ctx, containerID); err != nil {
		m.logger.Warn("failed to destroy container",
			"sandbox_id", sb.ID,
			"container_id", shortID(containerID),
			"error", err)
	}
}

// Active returns snapshots of the sandboxes currently running
func (m *Manager) Active() []Sandbox {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Sandbox, 0, len(m.active))
	for _, sb := range m.active {
		out = append(out, *sb)
	}
	return out
}

// Close refuses new runs, destroys any container still alive and closes the
// backend.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	var leftovers []string
	for _, sb := range m.active {
		if sb.ContainerID != "" {
			leftovers = append(leftovers, sb.ContainerID)
		}
	}
	m.mu.Unlock()

	for _, id := range leftovers {
		if err := m.backend.DestroyContainer(ctx, id); err != nil {
			m.logger.Warn("failed to destroy container during shutdown", "container_id", shortID(id), "error", err)
		}
	}
	return m.backend.Close()
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
