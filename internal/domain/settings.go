package domain

// Settings holds learner preferences
type Settings struct {
	Theme                string `json:"theme"`
	Notifications        bool   `json:"notifications"`
	DailyGoalMinutes     int    `json:"dailyGoalMinutes"`
	PreferredLanguage    string `json:"preferredLanguage"`
	DifficultyPreference string `json:"difficultyPreference"`
}

// DefaultSettings returns the settings a new learner starts with
func DefaultSettings() Settings {
	return Settings{
		Theme:                "system",
		Notifications:        true,
		DailyGoalMinutes:     30,
		PreferredLanguage:    "go",
		DifficultyPreference: "auto",
	}
}

// SettingsPatch is a partial settings update. Nil fields are left unchanged.
type SettingsPatch struct {
	Theme                *string `json:"theme,omitempty"`
	Notifications        *bool   `json:"notifications,omitempty"`
	DailyGoalMinutes     *int    `json:"dailyGoalMinutes,omitempty"`
	PreferredLanguage    *string `json:"preferredLanguage,omitempty"`
	DifficultyPreference *string `json:"difficultyPreference,omitempty"`
}

// Merge applies the patch to s. Nothing is changed when the patch is invalid.
func (s *Settings) Merge(p SettingsPatch) error {
	if p.DailyGoalMinutes != nil && *p.DailyGoalMinutes < 0 {
		return NewValidation("dailyGoalMinutes", "must not be negative")
	}
	if p.DifficultyPreference != nil {
		switch *p.DifficultyPreference {
		case "auto", string(TierEasy), string(TierMedium), string(TierHard):
		default:
			return NewValidation("difficultyPreference", "must be one of auto, easy, medium, hard")
		}
	}

	if p.Theme != nil {
		s.Theme = *p.Theme
	}
	if p.Notifications != nil {
		s.Notifications = *p.Notifications
	}
	if p.DailyGoalMinutes != nil {
		s.DailyGoalMinutes = *p.DailyGoalMinutes
	}
	if p.PreferredLanguage != nil {
		s.PreferredLanguage = *p.PreferredLanguage
	}
	if p.DifficultyPreference != nil {
		s.DifficultyPreference = *p.DifficultyPreference
	}
	return nil
}
