package service

import (
	"time"

	"github.com/courseloop/courseloop-backend/internal/model"
)

// Engine defaults applied when neither the assessment nor an override
// specifies a value.
const (
	DefaultAllowedAttempts = 1
	DefaultResumeLimit     = 0
)

// EffectiveSettings is the per-learner timing and attempt configuration after
// merging assessment defaults with an optional override. Derived, never
// persisted.
type EffectiveSettings struct {
	AllowedAttempts  int
	ResumeLimit      int
	StartAt          *time.Time
	EndAt            *time.Time
	DurationMinutes  *int // nil = unlimited
	AllowedLanguages []string
}

// ResolveSettings merges an assessment's defaults with an optional override.
// Precedence is field by field: override value if present, else assessment
// value if present, else engine default. Duration always comes from the
// assessment; overrides cannot change attempt length.
func ResolveSettings(a *model.Assessment, o *model.AssessmentOverride) EffectiveSettings {
	s := EffectiveSettings{
		AllowedAttempts:  DefaultAllowedAttempts,
		ResumeLimit:      DefaultResumeLimit,
		StartAt:          a.StartAt,
		EndAt:            a.EndAt,
		DurationMinutes:  a.DurationMinutes,
		AllowedLanguages: a.AllowedLanguages,
	}
	if a.AllowedAttempts != nil {
		s.AllowedAttempts = *a.AllowedAttempts
	}
	if a.ResumeLimit != nil {
		s.ResumeLimit = *a.ResumeLimit
	}

	if o == nil {
		return s
	}
	if o.MaxAttempts != nil {
		s.AllowedAttempts = *o.MaxAttempts
	}
	if o.ResumeLimit != nil {
		s.ResumeLimit = *o.ResumeLimit
	}
	if o.StartAt != nil {
		s.StartAt = o.StartAt
	}
	if o.EndAt != nil {
		s.EndAt = o.EndAt
	}
	if len(o.AllowedLanguages) > 0 {
		s.AllowedLanguages = o.AllowedLanguages
	}
	return s
}

// WindowOpen reports whether now falls inside [StartAt, EndAt]. A missing
// bound is unbounded on that side.
func (s EffectiveSettings) WindowOpen(now time.Time) bool {
	if s.StartAt != nil && now.Before(*s.StartAt) {
		return false
	}
	if s.EndAt != nil && now.After(*s.EndAt) {
		return false
	}
	return true
}

// LanguageAllowed reports whether lang may be executed for this assessment.
// An empty list means no language restriction was configured.
func (s EffectiveSettings) LanguageAllowed(lang string) bool {
	if len(s.AllowedLanguages) == 0 {
		return true
	}
	for _, l := range s.AllowedLanguages {
		if l == lang {
			return true
		}
	}
	return false
}
