package daemon

import (
	"net/http"
	"strconv"

	"github.com/felixgeelhaar/waypoint/internal/adaptive"
	"github.com/felixgeelhaar/waypoint/internal/domain"
	"github.com/felixgeelhaar/waypoint/internal/progress"
)

const (
	defaultHistorySize = 20
	maxHistorySize     = 100
)

// evaluateRequest scores code against a catalog exercise or an inline spec
type evaluateRequest struct {
	ExerciseID string               `json:"exerciseId"`
	Spec       *domain.ExerciseSpec `json:"spec,omitempty"`
	Code       string               `json:"code"`
	Language   string               `json:"language,omitempty"`
	Async      bool                 `json:"async,omitempty"`
}

type recommendRequest struct {
	RecentScores   []float64 `json:"recentScores"`
	AvgTimeMinutes float64   `json:"avgTimeMinutes"`
	CommonErrors   []string  `json:"commonErrors"`
	CurrentWeek    int       `json:"currentWeek"`
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if err := progress.CheckUserID(userID); err != nil {
		s.writeError(w, r, err)
		return
	}

	var req evaluateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	var spec domain.ExerciseSpec
	switch {
	case req.Spec != nil:
		spec = *req.Spec
	case req.ExerciseID != "":
		var err error
		if spec, err = s.svc.Catalog.Get(req.ExerciseID); err != nil {
			s.writeError(w, r, err)
			return
		}
	default:
		s.writeError(w, r, domain.NewValidation("exerciseId", "exerciseId or spec is required"))
		return
	}

	sub := domain.Submission{
		UserID:     userID,
		ExerciseID: spec.ID,
		Language:   req.Language,
		Code:       req.Code,
	}

	if req.Async {
		if s.svc.Jobs == nil {
			s.jsonError(w, http.StatusServiceUnavailable, "asynchronous evaluation is not enabled", nil)
			return
		}
		status, err := s.svc.Jobs.Enqueue(r.Context(), sub, spec)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		w.Header().Set("Location", "/v1/jobs/"+status.ID)
		s.jsonResponse(w, http.StatusAccepted, status)
		return
	}

	result := s.svc.Evaluator.Evaluate(r.Context(), sub, spec)
	s.jsonResponse(w, http.StatusOK, result)
}

func (s *Server) handleListEvaluations(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if err := progress.CheckUserID(userID); err != nil {
		s.writeError(w, r, err)
		return
	}

	limit := defaultHistorySize
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, r, domain.NewValidation("limit", "must be a positive number"))
			return
		}
		limit = min(n, maxHistorySize)
	}

	records, err := s.svc.History.Recent(r.Context(), userID, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if records == nil {
		records = []domain.EvaluationRecord{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"evaluations": records})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	if s.svc.Jobs == nil {
		s.jsonError(w, http.StatusServiceUnavailable, "asynchronous evaluation is not enabled", nil)
		return
	}
	id := r.PathValue("id")
	status, ok := s.svc.Jobs.Status(id)
	if !ok {
		s.writeError(w, r, domain.NewNotFound("job", id))
		return
	}
	s.jsonResponse(w, http.StatusOK, status)
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	spec, err := s.svc.GenerateExercise(r.Context(), r.PathValue("id"), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, spec)
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var req recommendRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK,
		adaptive.Recommend(req.RecentScores, req.AvgTimeMinutes, req.CommonErrors, req.CurrentWeek))
}

func (s *Server) handleLearnerDifficulty(w http.ResponseWriter, r *http.Request) {
	rec, err := s.svc.RecommendDifficulty(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, rec)
}
