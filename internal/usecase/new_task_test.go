package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/runoshun/taskflow/internal/domain"
	"github.com/runoshun/taskflow/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newNewTaskUseCase(projects ...*domain.ProjectSettings) (*NewTask, *testutil.MockTaskRepository) {
	repo := testutil.NewMockTaskRepository()
	uc := NewNewTask(repo, testutil.NewMockProjectRepository(projects...), &testutil.MockClock{NowTime: testNow}, &testutil.MockLogger{})
	return uc, repo
}

func TestNewTask_Execute_Development(t *testing.T) {
	uc, repo := newNewTaskUseCase(domain.NewDefaultProjectSettings("app", "/repo"))

	out, err := uc.Execute(context.Background(), NewTaskInput{ProjectID: "app", Title: "  Add login  ", Description: "OAuth"})
	require.NoError(t, err)

	task := repo.Tasks[out.Task.ID]
	require.NotNil(t, task)
	assert.Equal(t, 1, task.ID)
	assert.Equal(t, "Add login", task.Title)
	assert.Equal(t, "OAuth", task.Description)
	assert.Equal(t, domain.StatusBacklog, task.Status)
	assert.Equal(t, domain.ModeDevelopment, task.Mode)
	assert.True(t, task.WorktreeEnabled)
	assert.Equal(t, testNow, task.Created)
	assert.Nil(t, task.Workspace)
}

func TestNewTask_Execute_SimpleModeNeverUsesWorktree(t *testing.T) {
	project := domain.NewDefaultProjectSettings("notes", "/notes")
	project.Mode = domain.ModeSimple
	uc, repo := newNewTaskUseCase(project)

	out, err := uc.Execute(context.Background(), NewTaskInput{ProjectID: "notes", Title: "Write"})
	require.NoError(t, err)
	assert.Equal(t, domain.ModeSimple, repo.Tasks[out.Task.ID].Mode)
	assert.False(t, repo.Tasks[out.Task.ID].WorktreeEnabled)
}

func TestNewTask_Execute_SnapshotsProject(t *testing.T) {
	projects := testutil.NewMockProjectRepository(domain.NewDefaultProjectSettings("app", "/repo"))
	repo := testutil.NewMockTaskRepository()
	uc := NewNewTask(repo, projects, &testutil.MockClock{NowTime: testNow}, &testutil.MockLogger{})

	out, err := uc.Execute(context.Background(), NewTaskInput{ProjectID: "app", Title: "First"})
	require.NoError(t, err)

	projects.Projects["app"].Mode = domain.ModeSimple
	assert.Equal(t, domain.ModeDevelopment, repo.Tasks[out.Task.ID].Mode)
}

func TestNewTask_Execute_Errors(t *testing.T) {
	t.Run("empty title", func(t *testing.T) {
		uc, _ := newNewTaskUseCase(domain.NewDefaultProjectSettings("app", "/repo"))
		_, err := uc.Execute(context.Background(), NewTaskInput{ProjectID: "app", Title: "   "})
		assert.ErrorIs(t, err, domain.ErrEmptyTitle)
	})

	t.Run("unknown project", func(t *testing.T) {
		uc, repo := newNewTaskUseCase()
		_, err := uc.Execute(context.Background(), NewTaskInput{ProjectID: "app", Title: "x"})
		assert.ErrorIs(t, err, domain.ErrProjectNotFound)
		assert.Empty(t, repo.Tasks)
	})

	t.Run("save error", func(t *testing.T) {
		uc, repo := newNewTaskUseCase(domain.NewDefaultProjectSettings("app", "/repo"))
		repo.SaveErr = errors.New("disk full")
		_, err := uc.Execute(context.Background(), NewTaskInput{ProjectID: "app", Title: "x"})
		assert.ErrorContains(t, err, "save task")
	})
}
