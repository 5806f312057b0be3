package usecase

import (
	"context"
	"testing"

	"github.com/runoshun/taskflow/internal/domain"
	"github.com/runoshun/taskflow/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetProjectSettings_Execute(t *testing.T) {
	projects := testutil.NewMockProjectRepository(domain.NewDefaultProjectSettings("app", "/repo"))
	uc := NewGetProjectSettings(projects)

	out, err := uc.Execute(context.Background(), GetProjectSettingsInput{ProjectID: "app"})
	require.NoError(t, err)
	assert.Equal(t, domain.ModeDevelopment, out.Project.Mode)
	assert.True(t, out.Project.WorktreeEnabled)

	_, err = uc.Execute(context.Background(), GetProjectSettingsInput{ProjectID: "web"})
	assert.ErrorIs(t, err, domain.ErrProjectNotFound)
}

func TestUpdateProjectSettings_Execute(t *testing.T) {
	on := true
	simple := domain.ModeSimple
	bogus := domain.Mode("kanban")

	tests := []struct {
		name        string
		update      domain.ProjectSettingsUpdate
		wantErr     error
		wantChanged bool
		check       func(t *testing.T, p *domain.ProjectSettings)
	}{
		{
			name:        "manual review",
			update:      domain.ProjectSettingsUpdate{ManualReviewMode: &on},
			wantChanged: true,
			check: func(t *testing.T, p *domain.ProjectSettings) {
				assert.True(t, p.ManualReviewMode)
				assert.False(t, p.ManualTestingMode)
			},
		},
		{
			name:        "mode",
			update:      domain.ProjectSettingsUpdate{Mode: &simple},
			wantChanged: true,
			check: func(t *testing.T, p *domain.ProjectSettings) {
				assert.Equal(t, domain.ModeSimple, p.Mode)
			},
		},
		{
			name:   "same value",
			update: domain.ProjectSettingsUpdate{WorktreeEnabled: &on},
		},
		{
			name: "empty",
		},
		{
			name:    "invalid mode",
			update:  domain.ProjectSettingsUpdate{Mode: &bogus},
			wantErr: domain.ErrInvalidMode,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			projects := testutil.NewMockProjectRepository(domain.NewDefaultProjectSettings("app", "/repo"))
			uc := NewUpdateProjectSettings(projects, &testutil.MockLogger{})

			out, err := uc.Execute(context.Background(), UpdateProjectSettingsInput{ProjectID: "app", Update: tt.update})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantChanged, out.Changed)
			if tt.check != nil {
				tt.check(t, projects.Projects["app"])
			}
		})
	}
}

func TestUpdateProjectSettings_KeepsTaskMode(t *testing.T) {
	projects := testutil.NewMockProjectRepository(domain.NewDefaultProjectSettings("app", "/repo"))
	tasks := testutil.NewMockTaskRepository()
	created, err := NewNewTask(tasks, projects, &testutil.MockClock{NowTime: testNow}, &testutil.MockLogger{}).
		Execute(context.Background(), NewTaskInput{ProjectID: "app", Title: "x"})
	require.NoError(t, err)

	simple := domain.ModeSimple
	_, err = NewUpdateProjectSettings(projects, &testutil.MockLogger{}).
		Execute(context.Background(), UpdateProjectSettingsInput{ProjectID: "app", Update: domain.ProjectSettingsUpdate{Mode: &simple}})
	require.NoError(t, err)

	assert.Equal(t, domain.ModeDevelopment, tasks.Tasks[created.Task.ID].Mode)
}
