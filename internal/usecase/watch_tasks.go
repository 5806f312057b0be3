package usecase

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/runoshun/taskflow/internal/domain"
)

// DefaultWatchInterval bounds how long WatchTasks sleeps without filesystem events.
const DefaultWatchInterval = 30 * time.Second

// WatchTasksInput contains the parameters for watching tasks.
type WatchTasksInput struct {
	ProjectID string        // Empty watches every project
	Interval  time.Duration // 0 uses DefaultWatchInterval
	Once      bool          // Evaluate once and return
}

// WatchTasksOutput contains the result of a watch.
type WatchTasksOutput struct {
	Rounds   int
	Advanced int
}

// WatchTasks repeatedly advances open tasks, sleeping until artifacts change.
type WatchTasks struct {
	tasks    domain.TaskRepository
	advance  *AdvanceTask
	checker  domain.PreconditionChecker
	watcher  domain.ArtifactWatcher
	notifier domain.Notifier
	logger   domain.Logger
}

// NewWatchTasks creates a new WatchTasks use case.
func NewWatchTasks(
	tasks domain.TaskRepository,
	advance *AdvanceTask,
	checker domain.PreconditionChecker,
	watcher domain.ArtifactWatcher,
	notifier domain.Notifier,
	logger domain.Logger,
) *WatchTasks {
	return &WatchTasks{
		tasks:    tasks,
		advance:  advance,
		checker:  checker,
		watcher:  watcher,
		notifier: notifier,
		logger:   logger,
	}
}

// Execute runs until ctx is canceled, or for one round with Once.
// Cancellation ends the watch without error.
func (uc *WatchTasks) Execute(ctx context.Context, in WatchTasksInput) (*WatchTasksOutput, error) {
	interval := in.Interval
	if interval <= 0 {
		interval = DefaultWatchInterval
	}

	out := &WatchTasksOutput{}
	for {
		open, err := uc.round(ctx, in.ProjectID, out)
		if err != nil {
			return out, err
		}
		out.Rounds++
		if in.Once {
			return out, nil
		}

		dirs := uc.watchDirs(ctx, open)
		if err := uc.watcher.Wait(ctx, dirs, interval); err != nil {
			if ctx.Err() != nil {
				return out, nil
			}
			return out, fmt.Errorf("wait for artifacts: %w", err)
		}
	}
}

// round advances every open task once and returns the tasks still open.
func (uc *WatchTasks) round(ctx context.Context, projectID string, out *WatchTasksOutput) ([]*domain.Task, error) {
	tasks, err := uc.tasks.List(domain.TaskFilter{ProjectID: projectID})
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	var open []*domain.Task
	for _, task := range tasks {
		if task.Status.IsTerminal() {
			continue
		}
		res, err := uc.advance.Execute(ctx, AdvanceTaskInput{TaskID: task.ID})
		switch {
		case errors.Is(err, domain.ErrConflictingTransition):
			uc.logger.Debug(task.ID, "watch", "transition in progress, retrying later")
			open = append(open, task)
			continue
		case err != nil:
			uc.logger.Warn(task.ID, "watch", fmt.Sprintf("advance failed: %v", err))
			uc.notifier.Notify(domain.Notice{
				Level:   domain.NoticeWarn,
				Title:   "advance failed",
				Message: err.Error(),
				TaskID:  task.ID,
			})
			open = append(open, task)
			continue
		}
		if res.Edge != nil {
			out.Advanced++
			uc.notifier.Notify(domain.Notice{
				Level:   domain.NoticeInfo,
				Title:   "advanced to " + string(res.Edge.To),
				Message: res.Edge.Key(),
				TaskID:  task.ID,
			})
		}
		if !res.Task.Status.IsTerminal() {
			open = append(open, res.Task)
		}
	}
	return open, nil
}

func (uc *WatchTasks) watchDirs(ctx context.Context, tasks []*domain.Task) []string {
	var dirs []string
	for _, task := range tasks {
		d, err := uc.checker.WatchDirs(ctx, task)
		if err != nil {
			uc.logger.Warn(task.ID, "watch", fmt.Sprintf("resolve watch dirs: %v", err))
			continue
		}
		dirs = append(dirs, d...)
	}
	slices.Sort(dirs)
	return slices.Compact(dirs)
}
