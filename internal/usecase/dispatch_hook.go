package usecase

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/runoshun/taskflow/internal/domain"
)

// DispatchHookInput contains an event to run automations for.
type DispatchHookInput struct {
	Payload   *domain.HookPayload
	Event     domain.HookEvent
	ProjectID string // Falls back to the payload's project_id
	HookName  string // Limits the dispatch to one hook; empty runs every entry
}

// DispatchHookOutput contains one outcome per matched entry, in settings order.
// A payload carrying the skip marker yields one skip per entry of the event instead.
type DispatchHookOutput struct {
	Outcomes []domain.ExecutionOutcome
}

// Failed returns the number of failed outcomes.
func (o *DispatchHookOutput) Failed() int {
	n := 0
	for _, oc := range o.Outcomes {
		if oc.Kind == domain.OutcomeFailed {
			n++
		}
	}
	return n
}

// DispatchHook is the trigger engine: it matches an event against the compiled settings
// and runs each matching action in order. A failing action never stops the ones after it.
// Fields are ordered to minimize memory padding.
type DispatchHook struct {
	compile      *CompileSettings
	runner       domain.ActionRunner
	guard        domain.RecursionGuard
	pending      domain.PendingStore
	procs        domain.ProcessTracker
	configLoader domain.ConfigLoader
	clock        domain.Clock
	logger       domain.Logger
}

// NewDispatchHook creates a new DispatchHook use case.
func NewDispatchHook(
	compile *CompileSettings,
	runner domain.ActionRunner,
	guard domain.RecursionGuard,
	pending domain.PendingStore,
	procs domain.ProcessTracker,
	configLoader domain.ConfigLoader,
	clock domain.Clock,
	logger domain.Logger,
) *DispatchHook {
	return &DispatchHook{
		compile:      compile,
		runner:       runner,
		guard:        guard,
		pending:      pending,
		procs:        procs,
		configLoader: configLoader,
		clock:        clock,
		logger:       logger,
	}
}

// Execute dispatches the event.
// Action failures are reported in the outcomes; the error covers only failures to dispatch at all.
func (uc *DispatchHook) Execute(ctx context.Context, in DispatchHookInput) (*DispatchHookOutput, error) {
	if !in.Event.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidHookEvent, in.Event)
	}
	payload := in.Payload
	if payload == nil {
		payload = &domain.HookPayload{}
	}
	projectID := in.ProjectID
	if projectID == "" {
		projectID = payload.ProjectID
	}
	if projectID == "" {
		return nil, fmt.Errorf("%w: no project given", domain.ErrProjectNotFound)
	}

	cfg, err := uc.configLoader.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	compiled, err := uc.compile.Execute(ctx, CompileSettingsInput{ProjectID: projectID})
	if err != nil {
		return nil, fmt.Errorf("compile settings: %w", err)
	}
	doc, err := payload.Document()
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	d := dispatch{
		uc:         uc,
		payload:    payload,
		doc:        doc,
		event:      in.Event,
		projectID:  projectID,
		dir:        compiled.ProjectDir,
		timeout:    cfg.Hooks.ActionTimeout,
		skipMarker: cfg.Hooks.SkipMarker,
	}
	if payload.CWD != "" {
		d.dir = payload.CWD
	}

	out := &DispatchHookOutput{}
	skip := payload.ContainsMarker(d.skipMarker)
	subject := payload.Subject(in.Event)
	for _, entry := range compiled.Settings.For(in.Event) {
		if in.HookName != "" && entry.HookName != in.HookName {
			continue
		}
		var oc domain.ExecutionOutcome
		switch {
		case skip:
			oc = domain.ExecutionOutcome{HookName: entry.HookName, Kind: domain.OutcomeSkippedByMarker}
		case !entry.Matches(subject):
			continue
		default:
			oc = d.run(ctx, entry)
		}
		uc.record(d, entry, oc)
		out.Outcomes = append(out.Outcomes, oc)
	}
	return out, nil
}

// dispatch carries the per-event state shared by every entry.
type dispatch struct {
	uc         *DispatchHook
	payload    *domain.HookPayload
	event      domain.HookEvent
	projectID  string
	dir        string
	skipMarker string
	doc        []byte
	timeout    time.Duration
}

func (d dispatch) run(ctx context.Context, entry domain.AutomationEntry) domain.ExecutionOutcome {
	oc := domain.ExecutionOutcome{HookName: entry.HookName}
	if entry.Action.Reentrant {
		key := domain.RecursionKey(d.projectID, entry.HookName)
		acquired, err := d.uc.guard.TryAcquire(key)
		if err != nil {
			return failed(oc, fmt.Errorf("%w: acquire %s: %w", domain.ErrActionExecution, key, err))
		}
		if !acquired {
			oc.Kind = domain.OutcomeSkippedRecursion
			return oc
		}
		// Background actions keep the marker until it goes stale; their end is not observed.
		if !entry.Action.Background {
			defer func() {
				if err := d.uc.guard.Release(key); err != nil {
					d.uc.logger.Warn(d.payload.TaskID, "hook", fmt.Sprintf("release %s: %v", key, err))
				}
			}()
		}
	}

	run := domain.ActionRun{
		Command: entry.Command,
		Dir:     d.dir,
		Env:     d.env(entry.HookName),
		Stdin:   d.doc,
		Timeout: d.timeout,
	}
	if entry.Action.Timeout > 0 {
		run.Timeout = entry.Action.Timeout
	}

	if entry.Action.Background {
		return d.start(ctx, run, oc)
	}

	started := d.uc.clock.Now()
	res, err := d.uc.runner.Run(ctx, run)
	oc.Duration = d.uc.clock.Now().Sub(started)
	if res != nil {
		oc.Output = res.Output
		oc.ExitCode = res.ExitCode
	}
	switch {
	case err != nil:
		return failed(oc, fmt.Errorf("%w: %w", domain.ErrActionExecution, err))
	case oc.ExitCode != 0:
		return failed(oc, fmt.Errorf("%w: exit code %d", domain.ErrActionExecution, oc.ExitCode))
	}
	oc.Kind = domain.OutcomeExecuted
	return oc
}

func (d dispatch) start(ctx context.Context, run domain.ActionRun, oc domain.ExecutionOutcome) domain.ExecutionOutcome {
	run.Timeout = 0
	pid, err := d.uc.runner.Start(ctx, run)
	if err != nil {
		return failed(oc, fmt.Errorf("%w: %w", domain.ErrActionExecution, err))
	}
	oc.Kind = domain.OutcomeStarted
	oc.PID = pid
	if d.payload.TaskID > 0 {
		proc := domain.TrackedProcess{Started: d.uc.clock.Now(), Name: oc.HookName, PID: pid}
		if err := d.uc.procs.Track(d.payload.TaskID, proc); err != nil {
			d.uc.logger.Warn(d.payload.TaskID, "hook", fmt.Sprintf("track %s (pid %d): %v", oc.HookName, pid, err))
		}
	}
	return oc
}

func (d dispatch) env(hookName string) []string {
	env := []string{
		"TASKFLOW_HOOK=" + hookName,
		"TASKFLOW_EVENT=" + string(d.event),
		"TASKFLOW_PROJECT=" + d.projectID,
	}
	if d.payload.TaskID > 0 {
		env = append(env, "TASKFLOW_TASK="+strconv.Itoa(d.payload.TaskID))
	}
	return env
}

func failed(oc domain.ExecutionOutcome, err error) domain.ExecutionOutcome {
	oc.Kind = domain.OutcomeFailed
	oc.Err = err
	oc.Error = err.Error()
	return oc
}

// record logs an outcome and leaves a pending marker for failed actions that ask for one.
func (uc *DispatchHook) record(d dispatch, entry domain.AutomationEntry, oc domain.ExecutionOutcome) {
	taskID := d.payload.TaskID
	msg := fmt.Sprintf("%s %s: %s", d.event, oc.HookName, oc.Kind)
	switch {
	case oc.Kind == domain.OutcomeFailed:
		uc.logger.Error(taskID, "hook", msg+": "+oc.Error)
	case oc.Kind.IsSkipped():
		uc.logger.Debug(taskID, "hook", msg)
	default:
		uc.logger.Info(taskID, "hook", msg)
	}

	if oc.Kind != domain.OutcomeFailed || !entry.Action.PendingOnFailure {
		return
	}
	err := uc.pending.Put(domain.PendingHook{
		Created:   uc.clock.Now(),
		ProjectID: d.projectID,
		HookName:  oc.HookName,
		Event:     d.event,
		Kind:      oc.Kind,
		Output:    oc.Output,
		Error:     oc.Error,
		ExitCode:  oc.ExitCode,
		TaskID:    taskID,
	})
	if err != nil {
		uc.logger.Warn(taskID, "hook", fmt.Sprintf("write pending marker for %s: %v", oc.HookName, err))
	}
}
