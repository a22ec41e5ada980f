package daemon

import (
	"net/http"

	"github.com/felixgeelhaar/waypoint/internal/domain"
)

// exerciseSummary lists a template without its code
type exerciseSummary struct {
	ID       string      `json:"id"`
	Title    string      `json:"title"`
	Topic    string      `json:"topic"`
	Tier     domain.Tier `json:"tier"`
	Language string      `json:"language"`
}

func (s *Server) handleCurriculum(w http.ResponseWriter, r *http.Request) {
	m := s.svc.Curriculum
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"name":      m.Name(),
		"weeks":     m.Weeks(),
		"exercises": m.ExerciseCount(),
	})
}

// handleListExercises lists catalog templates, optionally filtered by the
// topic and tier query parameters.
func (s *Server) handleListExercises(w http.ResponseWriter, r *http.Request) {
	topic := r.URL.Query().Get("topic")
	tier := domain.Tier(r.URL.Query().Get("tier"))
	if tier != "" && !tier.Valid() {
		s.writeError(w, r, domain.NewValidation("tier", "must be easy, medium or hard"))
		return
	}

	topics := s.svc.Catalog.Topics()
	if topic != "" {
		if !s.svc.Catalog.HasTopic(topic) {
			s.writeError(w, r, domain.NewNotFound("topic", topic))
			return
		}
		topics = []string{topic}
	}

	out := make([]exerciseSummary, 0, s.svc.Catalog.Len())
	for _, t := range topics {
		for _, spec := range s.svc.Catalog.ByTopic(t) {
			if tier != "" && spec.Tier != tier {
				continue
			}
			out = append(out, exerciseSummary{
				ID:       spec.ID,
				Title:    spec.Title,
				Topic:    spec.Topic,
				Tier:     spec.Tier,
				Language: spec.Language,
			})
		}
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"topics":    topics,
		"exercises": out,
	})
}

func (s *Server) handleGetExercise(w http.ResponseWriter, r *http.Request) {
	spec, err := s.svc.Catalog.Get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, spec)
}
