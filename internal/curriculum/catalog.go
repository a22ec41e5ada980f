package curriculum

import (
	"fmt"
	"sort"

	"github.com/felixgeelhaar/waypoint/internal/domain"
)

// Catalog provides access to exercise templates by id, topic and tier.
// Template order within a topic follows the source file.
type Catalog struct {
	specs   []domain.ExerciseSpec
	byID    map[string]int
	byTopic map[string][]int
}

// NewCatalog builds a catalog from specs
func NewCatalog(specs []domain.ExerciseSpec) (*Catalog, error) {
	c := &Catalog{
		specs:   specs,
		byID:    make(map[string]int, len(specs)),
		byTopic: make(map[string][]int),
	}
	for i, s := range specs {
		if _, dup := c.byID[s.ID]; dup {
			return nil, domain.NewValidation("templates", fmt.Sprintf("duplicate template id %q", s.ID))
		}
		c.byID[s.ID] = i
		c.byTopic[s.Topic] = append(c.byTopic[s.Topic], i)
	}
	return c, nil
}

// Get returns a template by ID
func (c *Catalog) Get(id string) (domain.ExerciseSpec, error) {
	i, ok := c.byID[id]
	if !ok {
		return domain.ExerciseSpec{}, domain.NewNotFound("exercise", id)
	}
	return c.specs[i], nil
}

// HasTopic reports whether any template covers topic
func (c *Catalog) HasTopic(topic string) bool {
	return len(c.byTopic[topic]) > 0
}

// Topics returns all topics in sorted order
func (c *Catalog) Topics() []string {
	topics := make([]string, 0, len(c.byTopic))
	for t := range c.byTopic {
		topics = append(topics, t)
	}
	sort.Strings(topics)
	return topics
}

// Templates returns the templates for a topic and tier, in catalog order
func (c *Catalog) Templates(topic string, tier domain.Tier) []domain.ExerciseSpec {
	var out []domain.ExerciseSpec
	for _, i := range c.byTopic[topic] {
		if c.specs[i].Tier == tier {
			out = append(out, c.specs[i])
		}
	}
	return out
}

// ByTopic returns every template for a topic, in catalog order
func (c *Catalog) ByTopic(topic string) []domain.ExerciseSpec {
	out := make([]domain.ExerciseSpec, 0, len(c.byTopic[topic]))
	for _, i := range c.byTopic[topic] {
		out = append(out, c.specs[i])
	}
	return out
}

// Len returns the number of templates
func (c *Catalog) Len() int {
	return len(c.specs)
}
