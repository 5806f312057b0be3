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

func newAdvanceFixture(satisfied ...string) (*transitionFixture, *testutil.MockPreconditionChecker, *AdvanceTask) {
	f := newTransitionFixture()
	checker := testutil.NewMockPreconditionChecker(satisfied...)
	uc := NewAdvanceTask(f.tasks, checker, f.uc, domain.DefaultTransitions(), f.logger)
	return f, checker, uc
}

func TestAdvanceTask_TakesSatisfiedAutoEdge(t *testing.T) {
	f, _, uc := newAdvanceFixture("analysis->in_progress")
	f.tasks.Tasks[1] = devTask(1, domain.StatusAnalysis)

	out, err := uc.Execute(context.Background(), AdvanceTaskInput{TaskID: 1})
	require.NoError(t, err)
	require.NotNil(t, out.Edge)
	assert.Equal(t, domain.StatusInProgress, out.Edge.To)
	assert.Equal(t, domain.StatusInProgress, f.tasks.Tasks[1].Status)
	assert.Equal(t, "automation", f.tasks.Tasks[1].Stages[0].Actor)
	require.Len(t, f.observer.Calls, 1)
	assert.Equal(t, domain.ActorAutomation, f.observer.Calls[0].Actor.Kind)
}

func TestAdvanceTask_OneStepPerCall(t *testing.T) {
	f, _, uc := newAdvanceFixture("in_progress->testing", "testing->code_review")
	f.tasks.Tasks[1] = devTask(1, domain.StatusInProgress)

	out, err := uc.Execute(context.Background(), AdvanceTaskInput{TaskID: 1})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusTesting, out.Task.Status)

	out, err = uc.Execute(context.Background(), AdvanceTaskInput{TaskID: 1})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCodeReview, out.Task.Status)
}

func TestAdvanceTask_NothingReady(t *testing.T) {
	f, _, uc := newAdvanceFixture()
	f.tasks.Tasks[1] = devTask(1, domain.StatusAnalysis)

	out, err := uc.Execute(context.Background(), AdvanceTaskInput{TaskID: 1})
	require.NoError(t, err)
	assert.Nil(t, out.Edge)
	assert.Equal(t, domain.StatusAnalysis, f.tasks.Tasks[1].Status)
}

func TestAdvanceTask_NeverAutoCompletes(t *testing.T) {
	// Even a checker that approves everything cannot move a task into done
	f, _, uc := newAdvanceFixture("code_review->done", "in_progress->done")
	f.tasks.Tasks[1] = devTask(1, domain.StatusCodeReview)
	f.tasks.Tasks[2] = &domain.Task{ID: 2, Status: domain.StatusInProgress, Mode: domain.ModeSimple}

	for _, id := range []int{1, 2} {
		out, err := uc.Execute(context.Background(), AdvanceTaskInput{TaskID: id})
		require.NoError(t, err)
		assert.Nil(t, out.Edge)
		assert.NotEqual(t, domain.StatusDone, f.tasks.Tasks[id].Status)
	}
}

func TestAdvanceTask_Errors(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		_, _, uc := newAdvanceFixture()
		_, err := uc.Execute(context.Background(), AdvanceTaskInput{TaskID: 9})
		assert.ErrorIs(t, err, domain.ErrTaskNotFound)
	})

	t.Run("checker error", func(t *testing.T) {
		f, checker, uc := newAdvanceFixture()
		f.tasks.Tasks[1] = devTask(1, domain.StatusAnalysis)
		checker.Err = errors.New("glob failed")
		_, err := uc.Execute(context.Background(), AdvanceTaskInput{TaskID: 1})
		assert.ErrorContains(t, err, "analysis->in_progress")
	})

	t.Run("conflict", func(t *testing.T) {
		f, _, uc := newAdvanceFixture("analysis->in_progress")
		f.tasks.Tasks[1] = devTask(1, domain.StatusAnalysis)
		f.locker.Locked[1] = true
		_, err := uc.Execute(context.Background(), AdvanceTaskInput{TaskID: 1})
		assert.ErrorIs(t, err, domain.ErrConflictingTransition)
	})
}
