package adaptive

import (
	"slices"

	"github.com/felixgeelhaar/waypoint/internal/curriculum"
	"github.com/felixgeelhaar/waypoint/internal/domain"
)

// fallbackTiers lists the tiers tried, in order, when a topic has no
// template at the requested tier.
var fallbackTiers = map[domain.Tier][]domain.Tier{
	domain.TierEasy:   {domain.TierEasy, domain.TierMedium, domain.TierHard},
	domain.TierMedium: {domain.TierMedium, domain.TierEasy, domain.TierHard},
	domain.TierHard:   {domain.TierHard, domain.TierMedium, domain.TierEasy},
}

// Generator picks exercises from a template catalog
type Generator struct {
	catalog *curriculum.Catalog
}

// NewGenerator creates a generator over catalog
func NewGenerator(catalog *curriculum.Catalog) *Generator {
	return &Generator{catalog: catalog}
}

// GenerateExercise returns the next exercise for a topic. The tier follows
// the learner level. Templates the learner has seen (history holds template
// ids) are skipped; once every template of the tier is in history the
// choice cycles by history length. The result is deterministic for a fixed
// catalog and the same arguments.
func (g *Generator) GenerateExercise(topic string, week, level int, history []string) (domain.ExerciseSpec, error) {
	if !g.catalog.HasTopic(topic) {
		return domain.ExerciseSpec{}, domain.NewNotFound("topic", topic)
	}

	tier := domain.TierForLevel(level)
	var templates []domain.ExerciseSpec
	for _, t := range fallbackTiers[tier] {
		if templates = g.catalog.Templates(topic, t); len(templates) > 0 {
			break
		}
	}
	if len(templates) == 0 {
		// Templates without a known tier
		templates = g.catalog.ByTopic(topic)
	}

	chosen := templates[len(history)%len(templates)]
	for _, t := range templates {
		if !slices.Contains(history, t.ID) {
			chosen = t
			break
		}
	}

	return withWeek(chosen, week), nil
}

// withWeek copies spec so callers never share catalog maps or slices
func withWeek(spec domain.ExerciseSpec, week int) domain.ExerciseSpec {
	out := spec
	out.Week = week
	out.StarterCode = cloneFiles(spec.StarterCode)
	out.TestCode = cloneFiles(spec.TestCode)
	out.Rubric.Criteria = slices.Clone(spec.Rubric.Criteria)
	out.Tests = slices.Clone(spec.Tests)
	out.Hints = slices.Clone(spec.Hints)
	return out
}

func cloneFiles(files map[string]string) map[string]string {
	if files == nil {
		return nil
	}
	out := make(map[string]string, len(files))
	for k, v := range files {
		out[k] = v
	}
	return out
}
