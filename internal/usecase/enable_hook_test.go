package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/runoshun/taskflow/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findAll(string) (string, error) { return "/usr/bin/x", nil }

func TestEnableHook(t *testing.T) {
	f := newHookFixture("/repo", lintHook())
	uc := NewEnableHook(f.projects, f.hooks, f.registry, f.compile, f.logger)
	uc.SetLookPath(findAll)

	out, err := uc.Execute(context.Background(), EnableHookInput{ProjectID: "app", HookName: "lint"})
	require.NoError(t, err)
	assert.True(t, out.Created)
	assert.Equal(t, 1, out.Binding.Seq)
	require.NotNil(t, out.Compiled)
	assert.Equal(t, 1, out.Compiled.Settings.Len())

	again, err := uc.Execute(context.Background(), EnableHookInput{ProjectID: "app", HookName: "lint"})
	require.NoError(t, err)
	assert.False(t, again.Created)
	require.NotNil(t, again.Compiled, "re-enabling still recompiles")
	assert.Equal(t, 1, again.Compiled.Settings.Len())
	assert.Len(t, f.hooks.Bindings["app"], 1, "each hook is enabled at most once")
}

func TestEnableHook_RetryAfterCompileFailure(t *testing.T) {
	f := newHookFixture("/repo", lintHook())
	uc := NewEnableHook(f.projects, f.hooks, f.registry, f.compile, f.logger)
	uc.SetLookPath(findAll)

	f.config.LoadErr = errors.New("broken config")
	_, err := uc.Execute(context.Background(), EnableHookInput{ProjectID: "app", HookName: "lint"})
	require.Error(t, err)
	require.Len(t, f.hooks.Bindings["app"], 1, "the binding was stored before compiling")

	f.config.LoadErr = nil
	out, err := uc.Execute(context.Background(), EnableHookInput{ProjectID: "app", HookName: "lint"})
	require.NoError(t, err)
	assert.False(t, out.Created)
	require.NotNil(t, out.Compiled)
	assert.Equal(t, 1, out.Compiled.Settings.Len())
}

func TestEnableHook_MissingDependencies(t *testing.T) {
	f := newHookFixture("/repo", pushHook())
	uc := NewEnableHook(f.projects, f.hooks, f.registry, f.compile, f.logger)
	uc.SetLookPath(func(string) (string, error) { return "", errors.New("not found") })

	out, err := uc.Execute(context.Background(), EnableHookInput{ProjectID: "app", HookName: "push"})
	require.NoError(t, err)
	assert.True(t, out.Created)
	assert.Equal(t, []string{"gh"}, out.MissingDependencies)
}

func TestEnableHook_Errors(t *testing.T) {
	f := newHookFixture("/repo", lintHook())
	uc := NewEnableHook(f.projects, f.hooks, f.registry, f.compile, f.logger)

	_, err := uc.Execute(context.Background(), EnableHookInput{ProjectID: "app", HookName: "missing"})
	assert.ErrorIs(t, err, domain.ErrHookNotFound)

	_, err = uc.Execute(context.Background(), EnableHookInput{ProjectID: "nope", HookName: "lint"})
	assert.ErrorIs(t, err, domain.ErrProjectNotFound)
	assert.Empty(t, f.hooks.Bindings)
}

func TestDisableHook(t *testing.T) {
	f := newHookFixture("/repo", lintHook(), pushHook())
	enable := NewEnableHook(f.projects, f.hooks, f.registry, f.compile, f.logger)
	enable.SetLookPath(findAll)
	disable := NewDisableHook(f.projects, f.hooks, f.compile, f.logger)

	for _, name := range []string{"lint", "push"} {
		_, err := enable.Execute(context.Background(), EnableHookInput{ProjectID: "app", HookName: name})
		require.NoError(t, err)
	}

	out, err := disable.Execute(context.Background(), DisableHookInput{ProjectID: "app", HookName: "lint"})
	require.NoError(t, err)
	assert.True(t, out.Removed)
	require.NotNil(t, out.Compiled)
	entries := out.Compiled.Settings.For(domain.HookPostTool)
	require.Len(t, entries, 1)
	assert.Equal(t, "push", entries[0].HookName)

	def, err := f.registry.Get("lint")
	require.NoError(t, err)
	assert.NotNil(t, def, "the definition survives")

	out, err = disable.Execute(context.Background(), DisableHookInput{ProjectID: "app", HookName: "lint"})
	require.NoError(t, err)
	assert.False(t, out.Removed)
	require.NotNil(t, out.Compiled, "disabling a disabled hook still recompiles")
	assert.Len(t, out.Compiled.Settings.For(domain.HookPostTool), 1)
}

func TestDisableHook_RetryAfterCompileFailure(t *testing.T) {
	f := newHookFixture("/repo", lintHook())
	enable := NewEnableHook(f.projects, f.hooks, f.registry, f.compile, f.logger)
	enable.SetLookPath(findAll)
	disable := NewDisableHook(f.projects, f.hooks, f.compile, f.logger)

	_, err := enable.Execute(context.Background(), EnableHookInput{ProjectID: "app", HookName: "lint"})
	require.NoError(t, err)

	f.config.LoadErr = errors.New("broken config")
	_, err = disable.Execute(context.Background(), DisableHookInput{ProjectID: "app", HookName: "lint"})
	require.Error(t, err)

	f.config.LoadErr = nil
	out, err := disable.Execute(context.Background(), DisableHookInput{ProjectID: "app", HookName: "lint"})
	require.NoError(t, err)
	assert.False(t, out.Removed)
	require.NotNil(t, out.Compiled)
	assert.Zero(t, out.Compiled.Settings.Len())
}
