package usecase

import (
	"context"
	"testing"

	"github.com/runoshun/taskflow/internal/domain"
	"github.com/runoshun/taskflow/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listFixture() (*testutil.MockTaskRepository, *testutil.MockSessionManager) {
	tasks := testutil.NewMockTaskRepository()
	tasks.Tasks[1] = devTask(1, domain.StatusBacklog)
	tasks.Tasks[2] = devTask(2, domain.StatusDone)
	other := devTask(3, domain.StatusInProgress)
	other.ProjectID = "web"
	tasks.Tasks[3] = other
	manager := testutil.NewMockSessionManager()
	manager.Running["flow-3"] = true
	return tasks, manager
}

func taskIDs(tasks []*domain.Task) []int {
	var ids []int
	for _, t := range tasks {
		ids = append(ids, t.ID)
	}
	return ids
}

func TestListTasks_Execute(t *testing.T) {
	tests := []struct {
		name string
		in   ListTasksInput
		want []int
	}{
		{name: "active only", in: ListTasksInput{}, want: []int{1, 3}},
		{name: "include terminal", in: ListTasksInput{IncludeTerminal: true}, want: []int{1, 2, 3}},
		{name: "by project", in: ListTasksInput{ProjectID: "web"}, want: []int{3}},
		{name: "explicit done status", in: ListTasksInput{Status: domain.StatusDone}, want: []int{2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tasks, manager := listFixture()
			out, err := NewListTasks(tasks, manager).Execute(context.Background(), tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, taskIDs(out.Tasks))
		})
	}
}

func TestListTasks_Execute_WithSessions(t *testing.T) {
	tasks, manager := listFixture()
	out, err := NewListTasks(tasks, manager).Execute(context.Background(), ListTasksInput{IncludeSessions: true})
	require.NoError(t, err)
	assert.Nil(t, out.Tasks)
	require.Len(t, out.TasksWithInfo, 2)
	assert.Equal(t, "flow-1", out.TasksWithInfo[0].SessionName)
	assert.False(t, out.TasksWithInfo[0].IsRunning)
	assert.True(t, out.TasksWithInfo[1].IsRunning)
}
