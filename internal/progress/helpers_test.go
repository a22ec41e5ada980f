package progress

import (
	"io"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/waypoint/internal/curriculum"
	"github.com/felixgeelhaar/waypoint/internal/domain"
)

// fakeClock is a manually advanced time source
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestEngine(clock *fakeClock) *Engine {
	return NewEngine(curriculum.Default(), WithClock(clock.Now))
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ids(achievements []domain.Achievement) []string {
	out := make([]string, len(achievements))
	for i, a := range achievements {
		out[i] = a.ID
	}
	return out
}
