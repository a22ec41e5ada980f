package curriculum

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/felixgeelhaar/waypoint/internal/domain"
)

func TestDefault(t *testing.T) {
	m := Default()

	if m.WeekCount() != 6 {
		t.Fatalf("WeekCount() = %d, want 6", m.WeekCount())
	}
	if m.ExerciseCount() != 30 {
		t.Errorf("ExerciseCount() = %d, want 30", m.ExerciseCount())
	}

	w1, err := m.Week(1)
	if err != nil {
		t.Fatalf("Week(1) error = %v", err)
	}
	wantIDs := []string{"e1", "e2", "e3", "e4", "e5"}
	for i, id := range wantIDs {
		if w1.Exercises[i].ID != id {
			t.Errorf("week 1 exercise %d = %q, want %q", i, w1.Exercises[i].ID, id)
		}
	}

	ex, week, err := m.FindExercise("e23")
	if err != nil {
		t.Fatalf("FindExercise() error = %v", err)
	}
	if week != 5 || ex.Type != domain.ExercisePractice {
		t.Errorf("FindExercise(e23) = %+v in week %d", ex, week)
	}
}

func TestModel_NotFound(t *testing.T) {
	m := Default()

	for _, n := range []int{0, 7, -1} {
		if _, err := m.Week(n); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("Week(%d) error = %v, want ErrNotFound", n, err)
		}
	}
	if _, _, err := m.FindExercise("nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("FindExercise() error = %v, want ErrNotFound", err)
	}
}

func TestModel_WeeksReturnsCopy(t *testing.T) {
	m := Default()
	weeks := m.Weeks()
	weeks[0].Exercises[0].ID = "changed"

	w, _ := m.Week(1)
	if w.Exercises[0].ID != "e1" {
		t.Error("modifying Weeks() result changed the model")
	}
}

func TestModel_WeekTopic(t *testing.T) {
	m := Default()
	tests := map[int]string{1: "basics", 4: "interfaces", 5: "concurrency", 9: ""}
	for n, want := range tests {
		if got := m.WeekTopic(n); got != want {
			t.Errorf("WeekTopic(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"no weeks", "name: empty\nweeks: []\n"},
		{"out of order", `weeks:
  - number: 2
    exercises: [{id: a, type: concept}]
`},
		{"empty week", `weeks:
  - number: 1
    exercises: []
`},
		{"bad type", `weeks:
  - number: 1
    exercises: [{id: a, type: quiz}]
`},
		{"duplicate id across weeks", `weeks:
  - number: 1
    exercises: [{id: a, type: concept}]
  - number: 2
    exercises: [{id: a, type: practice}]
`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if !errors.Is(err, domain.ErrInvalidInput) {
				t.Errorf("Parse() error = %v, want ErrInvalidInput", err)
			}
		})
	}

	if _, err := Parse([]byte("weeks: [")); err == nil {
		t.Error("Parse() should fail on malformed YAML")
	}
}

func TestLoad(t *testing.T) {
	m, err := Load("")
	if err != nil || m.WeekCount() != 6 {
		t.Fatalf("Load(\"\") = %v, %v", m, err)
	}

	path := filepath.Join(t.TempDir(), "curriculum.yaml")
	data := `name: mini
weeks:
  - number: 1
    title: One
    exercises:
      - {id: a1, title: A, type: concept, topic: basics}
      - {id: a2, title: B, type: project, topic: basics}
  - number: 2
    title: Two
    exercises:
      - {id: b1, title: C, type: practice, topic: errors}
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("failed to write curriculum: %v", err)
	}

	m, err = Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if m.Name() != "mini" || m.WeekCount() != 2 || m.ExerciseCount() != 3 {
		t.Errorf("Load() = %s weeks=%d exercises=%d", m.Name(), m.WeekCount(), m.ExerciseCount())
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() should fail for a missing file")
	}
}

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()

	if c.Len() == 0 {
		t.Fatal("DefaultCatalog() is empty")
	}

	m := Default()
	for n := 1; n <= m.WeekCount(); n++ {
		w, _ := m.Week(n)
		for _, ex := range w.Exercises {
			if !c.HasTopic(ex.Topic) {
				t.Errorf("curriculum topic %q has no templates", ex.Topic)
			}
		}
	}

	for _, topic := range c.Topics() {
		for _, tier := range []domain.Tier{domain.TierEasy, domain.TierMedium, domain.TierHard} {
			if len(c.Templates(topic, tier)) == 0 {
				t.Errorf("topic %q has no %s template", topic, tier)
			}
		}
	}

	spec, err := c.Get("basics-greeting")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if spec.Language != "go" || len(spec.Rubric.Criteria) == 0 || len(spec.Tests) != 2 {
		t.Errorf("Get(basics-greeting) = %+v", spec)
	}
	if _, ok := spec.TestCode["main_test.go"]; !ok {
		t.Error("basics-greeting should carry test code")
	}

	if _, err := c.Get("unknown"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestParseCatalog_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad tier", "templates:\n  - {id: a, topic: t, tier: extreme}\n"},
		{"missing topic", "templates:\n  - {id: a, tier: easy}\n"},
		{"duplicate", "templates:\n  - {id: a, topic: t, tier: easy}\n  - {id: a, topic: t, tier: hard}\n"},
		{"bad signal", "templates:\n  - id: a\n    topic: t\n    tier: easy\n    rubric:\n      - {id: r, signals: ['(unclosed']}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseCatalog([]byte(tt.yaml)); !errors.Is(err, domain.ErrInvalidInput) {
				t.Errorf("ParseCatalog() error = %v, want ErrInvalidInput", err)
			}
		})
	}
}
