package daemon

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/felixgeelhaar/waypoint/internal/config"
	"github.com/felixgeelhaar/waypoint/internal/domain"
	"github.com/felixgeelhaar/waypoint/internal/evaluation"
	"github.com/felixgeelhaar/waypoint/internal/progress"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOpenServices_Backends(t *testing.T) {
	tests := []struct {
		name        string
		backend     string
		wantHistory bool
	}{
		{"memory", config.BackendMemory, false},
		{"local", config.BackendLocal, false},
		{"sqlite", config.BackendSQLite, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			cfg := config.DefaultLocalConfig()
			cfg.Storage.Backend = tt.backend

			svc, err := OpenServices(context.Background(), cfg, dir, quietLogger())
			if err != nil {
				t.Fatalf("OpenServices() error = %v", err)
			}
			defer svc.Close(context.Background())

			if svc.Evaluator.Strategy().Name() != evaluation.StrategyHeuristic {
				t.Errorf("strategy = %s", svc.Evaluator.Strategy().Name())
			}
			if svc.Jobs != nil {
				t.Error("Jobs should be nil with events disabled")
			}
			_, isMemory := svc.History.(*evaluation.MemoryHistory)
			if isMemory == tt.wantHistory {
				t.Errorf("History = %T", svc.History)
			}

			err = svc.Manager.Do(context.Background(), "alice", func(tr *progress.Tracker) error {
				_, err := tr.CompleteExercise(context.Background(), 1, "e1", 90, 5)
				return err
			})
			if err != nil {
				t.Fatalf("CompleteExercise() error = %v", err)
			}

			if _, err := svc.History.Recent(context.Background(), "alice", 5); err != nil {
				t.Errorf("Recent() error = %v", err)
			}
		})
	}
}

func TestOpenServices_PersistsAcrossRestarts(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultLocalConfig()
	cfg.Storage.Backend = config.BackendSQLite

	svc, err := OpenServices(context.Background(), cfg, dir, quietLogger())
	if err != nil {
		t.Fatalf("OpenServices() error = %v", err)
	}
	err = svc.Manager.Do(context.Background(), "bob", func(tr *progress.Tracker) error {
		_, err := tr.CompleteExercise(context.Background(), 1, "e1", 100, 3)
		return err
	})
	if err != nil {
		t.Fatalf("CompleteExercise() error = %v", err)
	}
	if err := svc.Close(context.Background()); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	svc, err = OpenServices(context.Background(), cfg, dir, quietLogger())
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer svc.Close(context.Background())

	var stats domain.Stats
	_ = svc.Manager.Do(context.Background(), "bob", func(tr *progress.Tracker) error {
		stats = tr.GetStats()
		return nil
	})
	if stats.ExercisesCompleted != 1 {
		t.Errorf("ExercisesCompleted = %d after reopen, want 1", stats.ExercisesCompleted)
	}
}

func TestOpenServices_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *config.LocalConfig)
	}{
		{"unknown backend", func(c *config.LocalConfig) { c.Storage.Backend = "floppy" }},
		{"missing curriculum", func(c *config.LocalConfig) { c.Curriculum.Path = filepath.Join(t.TempDir(), "none.yaml") }},
		{"missing catalog", func(c *config.LocalConfig) { c.Curriculum.CatalogPath = filepath.Join(t.TempDir(), "none.yaml") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultLocalConfig()
			cfg.Storage.Backend = config.BackendMemory
			tt.mutate(cfg)

			if _, err := OpenServices(context.Background(), cfg, t.TempDir(), quietLogger()); err == nil {
				t.Error("OpenServices() error = nil, want error")
			}
		})
	}
}

func TestCloseAll_ReverseOrderAndJoin(t *testing.T) {
	var order []int
	errA := errors.New("a failed")
	closers := []func(context.Context) error{
		func(context.Context) error { order = append(order, 1); return errA },
		func(context.Context) error { order = append(order, 2); return nil },
	}

	err := closeAll(context.Background(), closers, quietLogger())
	if !errors.Is(err, errA) {
		t.Errorf("closeAll() error = %v, want %v", err, errA)
	}
	if len(order) != 2 || order[0] != 2 || order[1] != 1 {
		t.Errorf("close order = %v, want [2 1]", order)
	}
}
