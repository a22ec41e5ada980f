package curriculum

import (
	"strconv"

	"github.com/felixgeelhaar/waypoint/internal/domain"
)

// Exercise is a read-only curriculum exercise definition
type Exercise struct {
	ID    string              `json:"id"`
	Title string              `json:"title"`
	Type  domain.ExerciseType `json:"type"`
	Topic string              `json:"topic"`
}

// Week is a read-only curriculum week definition
type Week struct {
	Number      int        `json:"number"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Exercises   []Exercise `json:"exercises"`
}

type exerciseRef struct {
	week int
	pos  int
}

// Model is the static curriculum graph: an ordered list of weeks where week
// n+1 requires week n to be complete. It is immutable after Parse and safe
// for concurrent use.
type Model struct {
	name  string
	weeks []Week
	index map[string]exerciseRef
}

// Name returns the curriculum name
func (m *Model) Name() string {
	return m.name
}

// WeekCount returns the number of weeks
func (m *Model) WeekCount() int {
	return len(m.weeks)
}

// Weeks returns a copy of all weeks in order
func (m *Model) Weeks() []Week {
	out := make([]Week, len(m.weeks))
	for i, w := range m.weeks {
		out[i] = w
		out[i].Exercises = append([]Exercise(nil), w.Exercises...)
	}
	return out
}

// Week returns the week with the given number
func (m *Model) Week(number int) (Week, error) {
	if number < 1 || number > len(m.weeks) {
		return Week{}, domain.NewNotFound("week", strconv.Itoa(number))
	}
	w := m.weeks[number-1]
	w.Exercises = append([]Exercise(nil), w.Exercises...)
	return w, nil
}

// FindExercise returns an exercise and the number of the week that owns it
func (m *Model) FindExercise(id string) (Exercise, int, error) {
	ref, ok := m.index[id]
	if !ok {
		return Exercise{}, 0, domain.NewNotFound("exercise", id)
	}
	return m.weeks[ref.week].Exercises[ref.pos], ref.week + 1, nil
}

// ExerciseCount returns the total number of exercises
func (m *Model) ExerciseCount() int {
	return len(m.index)
}

// WeekTopic returns the most common topic of a week, preferring the earliest
// on ties. Empty if the week does not exist.
func (m *Model) WeekTopic(number int) string {
	if number < 1 || number > len(m.weeks) {
		return ""
	}
	counts := make(map[string]int)
	best := ""
	for _, ex := range m.weeks[number-1].Exercises {
		counts[ex.Topic]++
		if best == "" || counts[ex.Topic] > counts[best] {
			best = ex.Topic
		}
	}
	return best
}
