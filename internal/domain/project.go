package domain

// ProjectSettings holds the per-project workflow flags.
// Owned by the project; the state machine and dispatcher only read it.
type ProjectSettings struct {
	ID                string `json:"-"`   // Stored as map key
	Dir               string `json:"dir"` // Project root directory
	Mode              Mode   `json:"mode"`
	WorktreeEnabled   bool   `json:"worktreeEnabled"`
	ManualTestingMode bool   `json:"manualTestingMode"`
	ManualReviewMode  bool   `json:"manualReviewMode"`
}

// NewDefaultProjectSettings returns settings for a freshly initialized project:
// development mode with worktrees, automated testing and review.
func NewDefaultProjectSettings(id, dir string) *ProjectSettings {
	return &ProjectSettings{
		ID:              id,
		Dir:             dir,
		Mode:            ModeDevelopment,
		WorktreeEnabled: true,
	}
}

// ProjectSettingsUpdate carries optional changes to a project's flags.
// Nil fields are left untouched.
type ProjectSettingsUpdate struct {
	Mode              *Mode
	WorktreeEnabled   *bool
	ManualTestingMode *bool
	ManualReviewMode  *bool
}

// IsEmpty returns true when no field is set.
func (u ProjectSettingsUpdate) IsEmpty() bool {
	return u.Mode == nil && u.WorktreeEnabled == nil && u.ManualTestingMode == nil && u.ManualReviewMode == nil
}

// Apply writes the set fields onto p.
func (u ProjectSettingsUpdate) Apply(p *ProjectSettings) {
	if u.Mode != nil {
		p.Mode = *u.Mode
	}
	if u.WorktreeEnabled != nil {
		p.WorktreeEnabled = *u.WorktreeEnabled
	}
	if u.ManualTestingMode != nil {
		p.ManualTestingMode = *u.ManualTestingMode
	}
	if u.ManualReviewMode != nil {
		p.ManualReviewMode = *u.ManualReviewMode
	}
}
