package curriculum

import (
	"embed"
	"fmt"
	"os"
	"regexp"

	"github.com/felixgeelhaar/waypoint/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed data/*.yaml
var dataFS embed.FS

// CurriculumFile represents the YAML structure for a curriculum
type CurriculumFile struct {
	Name  string     `yaml:"name"`
	Weeks []WeekFile `yaml:"weeks"`
}

// WeekFile represents one week in the curriculum YAML
type WeekFile struct {
	Number      int            `yaml:"number"`
	Title       string         `yaml:"title"`
	Description string         `yaml:"description"`
	Exercises   []ExerciseFile `yaml:"exercises"`
}

// ExerciseFile represents one exercise entry in the curriculum YAML
type ExerciseFile struct {
	ID    string `yaml:"id"`
	Title string `yaml:"title"`
	Type  string `yaml:"type"`
	Topic string `yaml:"topic"`
}

// CatalogFile represents the YAML structure for exercise templates
type CatalogFile struct {
	Templates []TemplateFile `yaml:"templates"`
}

// TemplateFile represents a single exercise template
type TemplateFile struct {
	ID          string            `yaml:"id"`
	Topic       string            `yaml:"topic"`
	Tier        string            `yaml:"tier"`
	Title       string            `yaml:"title"`
	Description string            `yaml:"description"`
	Language    string            `yaml:"language"`
	Starter     map[string]string `yaml:"starter"`
	Tests       map[string]string `yaml:"tests"`
	TestCases   []struct {
		Name        string `yaml:"name"`
		Description string `yaml:"description"`
	} `yaml:"test_cases"`
	Rubric []struct {
		ID          string   `yaml:"id"`
		Name        string   `yaml:"name"`
		Description string   `yaml:"description"`
		Weight      float64  `yaml:"weight"`
		Signals     []string `yaml:"signals"`
	} `yaml:"rubric"`
	Hints   []string `yaml:"hints"`
	Timeout int      `yaml:"timeout"`
}

// Default returns the embedded curriculum. It panics if the embedded data is
// invalid, which is a build-time defect.
func Default() *Model {
	data, err := dataFS.ReadFile("data/curriculum.yaml")
	if err != nil {
		panic(fmt.Sprintf("read embedded curriculum: %v", err))
	}
	m, err := Parse(data)
	if err != nil {
		panic(fmt.Sprintf("parse embedded curriculum: %v", err))
	}
	return m
}

// Load reads a curriculum from path, or returns the embedded default when
// path is empty.
func Load(path string) (*Model, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read curriculum file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates curriculum YAML
func Parse(data []byte) (*Model, error) {
	var file CurriculumFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse curriculum file: %w", err)
	}
	if len(file.Weeks) == 0 {
		return nil, domain.NewValidation("weeks", "curriculum has no weeks")
	}

	m := &Model{name: file.Name, index: make(map[string]exerciseRef)}
	for i, wf := range file.Weeks {
		if wf.Number != i+1 {
			return nil, domain.NewValidation("weeks", fmt.Sprintf("week %d out of order, want %d", wf.Number, i+1))
		}
		if len(wf.Exercises) == 0 {
			return nil, domain.NewValidation("weeks", fmt.Sprintf("week %d has no exercises", wf.Number))
		}

		week := Week{
			Number:      wf.Number,
			Title:       wf.Title,
			Description: wf.Description,
			Exercises:   make([]Exercise, len(wf.Exercises)),
		}
		for j, ef := range wf.Exercises {
			t := domain.ExerciseType(ef.Type)
			if !t.Valid() {
				return nil, domain.NewValidation("exercises", fmt.Sprintf("%s has unknown type %q", ef.ID, ef.Type))
			}
			if ef.ID == "" {
				return nil, domain.NewValidation("exercises", fmt.Sprintf("week %d exercise %d has no id", wf.Number, j+1))
			}
			if _, dup := m.index[ef.ID]; dup {
				return nil, domain.NewValidation("exercises", fmt.Sprintf("duplicate exercise id %q", ef.ID))
			}
			week.Exercises[j] = Exercise{ID: ef.ID, Title: ef.Title, Type: t, Topic: ef.Topic}
			m.index[ef.ID] = exerciseRef{week: i, pos: j}
		}
		m.weeks = append(m.weeks, week)
	}
	return m, nil
}

// DefaultCatalog returns the embedded exercise template catalog
func DefaultCatalog() *Catalog {
	data, err := dataFS.ReadFile("data/exercises.yaml")
	if err != nil {
		panic(fmt.Sprintf("read embedded catalog: %v", err))
	}
	c, err := ParseCatalog(data)
	if err != nil {
		panic(fmt.Sprintf("parse embedded catalog: %v", err))
	}
	return c
}

// LoadCatalog reads templates from path, or returns the embedded default
// when path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates exercise template YAML
func ParseCatalog(data []byte) (*Catalog, error) {
	var file CatalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog file: %w", err)
	}

	specs := make([]domain.ExerciseSpec, 0, len(file.Templates))
	for _, tf := range file.Templates {
		tier := domain.Tier(tf.Tier)
		if !tier.Valid() {
			return nil, domain.NewValidation("templates", fmt.Sprintf("%s has unknown tier %q", tf.ID, tf.Tier))
		}
		if tf.ID == "" || tf.Topic == "" {
			return nil, domain.NewValidation("templates", "template requires id and topic")
		}

		spec := domain.ExerciseSpec{
			ID:             tf.ID,
			Title:          tf.Title,
			Description:    tf.Description,
			Topic:          tf.Topic,
			Tier:           tier,
			Language:       tf.Language,
			StarterCode:    tf.Starter,
			TestCode:       tf.Tests,
			Hints:          tf.Hints,
			TimeoutSeconds: tf.Timeout,
		}
		if spec.Language == "" {
			spec.Language = "go"
		}
		for _, tc := range tf.TestCases {
			spec.Tests = append(spec.Tests, domain.TestCase{Name: tc.Name, Description: tc.Description})
		}
		for _, c := range tf.Rubric {
			for _, sig := range c.Signals {
				if _, err := regexp.Compile(sig); err != nil {
					return nil, domain.NewValidation("templates", fmt.Sprintf("%s/%s: bad signal %q: %v", tf.ID, c.ID, sig, err))
				}
			}
			spec.Rubric.Criteria = append(spec.Rubric.Criteria, domain.RubricCriterion{
				ID:          c.ID,
				Name:        c.Name,
				Description: c.Description,
				Weight:      c.Weight,
				Signals:     c.Signals,
			})
		}
		specs = append(specs, spec)
	}
	return NewCatalog(specs)
}
