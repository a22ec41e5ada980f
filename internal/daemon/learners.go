package daemon

import (
	"io"
	"net/http"
	"strconv"

	"github.com/felixgeelhaar/waypoint/internal/domain"
	"github.com/felixgeelhaar/waypoint/internal/progress"
)

// completeRequest records one exercise submission
type completeRequest struct {
	Week             int    `json:"week"`
	ExerciseID       string `json:"exerciseId"`
	Score            int    `json:"score"`
	TimeSpentMinutes int    `json:"timeSpentMinutes"`
}

type completeResponse struct {
	UnlockedAchievements []domain.Achievement `json:"unlockedAchievements"`
	Stats                domain.Stats         `json:"stats"`
}

// withTracker runs fn on the learner named by the {id} path segment
func (s *Server) withTracker(w http.ResponseWriter, r *http.Request, fn func(t *progress.Tracker) error) bool {
	if err := s.svc.Manager.Do(r.Context(), r.PathValue("id"), fn); err != nil {
		s.writeError(w, r, err)
		return false
	}
	return true
}

func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	var p *domain.LearnerProfile
	if s.withTracker(w, r, func(t *progress.Tracker) error {
		p = t.GetProgress()
		return nil
	}) {
		s.jsonResponse(w, http.StatusOK, p)
	}
}

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	var stats domain.Stats
	if s.withTracker(w, r, func(t *progress.Tracker) error {
		stats = t.GetStats()
		return nil
	}) {
		s.jsonResponse(w, http.StatusOK, stats)
	}
}

func (s *Server) handleGetWeek(w http.ResponseWriter, r *http.Request) {
	number, err := strconv.Atoi(r.PathValue("number"))
	if err != nil {
		s.writeError(w, r, domain.NewValidation("week", "must be a number"))
		return
	}

	var week domain.WeekProgress
	if s.withTracker(w, r, func(t *progress.Tracker) error {
		week, err = t.GetWeek(number)
		return err
	}) {
		s.jsonResponse(w, http.StatusOK, week)
	}
}

func (s *Server) handleGetAchievements(w http.ResponseWriter, r *http.Request) {
	var achievements []domain.Achievement
	if s.withTracker(w, r, func(t *progress.Tracker) error {
		achievements = t.GetAchievements()
		return nil
	}) {
		s.jsonResponse(w, http.StatusOK, map[string]any{"achievements": achievements})
	}
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	var req completeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	var resp completeResponse
	if s.withTracker(w, r, func(t *progress.Tracker) error {
		unlocked, err := t.CompleteExercise(r.Context(), req.Week, req.ExerciseID, req.Score, req.TimeSpentMinutes)
		if err != nil {
			return err
		}
		resp = completeResponse{UnlockedAchievements: unlocked, Stats: t.GetStats()}
		return nil
	}) {
		s.jsonResponse(w, http.StatusOK, resp)
	}
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var p *domain.LearnerProfile
	if s.withTracker(w, r, func(t *progress.Tracker) error {
		t.ResetProgress(r.Context())
		p = t.GetProgress()
		return nil
	}) {
		s.jsonResponse(w, http.StatusOK, p)
	}
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var data []byte
	if !s.withTracker(w, r, func(t *progress.Tracker) error {
		var err error
		data, err = t.ExportProgress()
		return err
	}) {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="waypoint-progress.json"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.logger.Warn("failed to write export", "error", err)
	}
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, r, domain.NewValidation("body", err.Error()))
		return
	}

	var p *domain.LearnerProfile
	if s.withTracker(w, r, func(t *progress.Tracker) error {
		if err := t.ImportProgress(r.Context(), data); err != nil {
			return err
		}
		p = t.GetProgress()
		return nil
	}) {
		s.jsonResponse(w, http.StatusOK, p)
	}
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var patch domain.SettingsPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		s.writeError(w, r, err)
		return
	}

	var settings domain.Settings
	if s.withTracker(w, r, func(t *progress.Tracker) error {
		var err error
		settings, err = t.UpdateSettings(r.Context(), patch)
		return err
	}) {
		s.jsonResponse(w, http.StatusOK, settings)
	}
}
