package usecase

import (
	"context"
	"testing"

	"github.com/runoshun/taskflow/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAddHook(f *hookFixture) *AddHook {
	return NewAddHook(f.projects, f.hooks, f.registry, f.compile, f.logger)
}

func TestAddHook_Execute(t *testing.T) {
	f := newHookFixture(t.TempDir(), advanceHook())
	def := lintHook()
	def.Origin = ""

	out, err := newAddHook(f).Execute(context.Background(), AddHookInput{Definitions: []*domain.HookDefinition{def, pushHook()}})
	require.NoError(t, err)
	assert.Equal(t, []string{"lint", "push"}, out.Added)
	assert.Empty(t, out.Replaced)
	require.Contains(t, f.hooks.Hooks, "lint")
	assert.Equal(t, domain.OriginCustom, f.hooks.Hooks["lint"].Origin)
}

func TestAddHook_Execute_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		seed    bool
		defs    []*domain.HookDefinition
		wantErr error
	}{
		{name: "framework name", defs: []*domain.HookDefinition{{
			Name: "taskflow-advance", Event: domain.HookSessionStop, Action: domain.HookAction{Command: "true"},
		}}, wantErr: domain.ErrFrameworkHook},
		{name: "existing without replace", seed: true, defs: []*domain.HookDefinition{lintHook()}, wantErr: domain.ErrHookExists},
		{name: "invalid", defs: []*domain.HookDefinition{{Name: "Bad Name", Event: domain.HookPreTool}}, wantErr: domain.ErrInvalidHook},
		{name: "duplicate", defs: []*domain.HookDefinition{lintHook(), lintHook()}, wantErr: domain.ErrInvalidHook},
		{name: "empty", wantErr: domain.ErrInvalidHook},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newHookFixture(t.TempDir(), advanceHook())
			if tt.seed {
				f.hooks.Hooks["lint"] = lintHook()
			}
			before := len(f.hooks.Hooks)

			_, err := newAddHook(f).Execute(context.Background(), AddHookInput{Definitions: tt.defs})
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Len(t, f.hooks.Hooks, before, "nothing is saved on error")
		})
	}
}

func TestAddHook_Execute_ReplaceRecompiles(t *testing.T) {
	f := newHookFixture(t.TempDir(), advanceHook())
	f.hooks.Hooks["lint"] = lintHook()
	_, _, err := f.hooks.AddBinding("app", "lint")
	require.NoError(t, err)

	updated := lintHook()
	updated.Action.Command = "make vet"
	out, err := newAddHook(f).Execute(context.Background(), AddHookInput{Definitions: []*domain.HookDefinition{updated}, Replace: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"lint"}, out.Replaced)
	assert.Equal(t, []string{"app"}, out.Recompiled)
	assert.Equal(t, "make vet", f.hooks.Hooks["lint"].Action.Command)
}

func TestRemoveHook_Execute(t *testing.T) {
	f := newHookFixture(t.TempDir(), advanceHook(), lintHook())
	f.hooks.Hooks["lint"] = lintHook()
	_, _, err := f.hooks.AddBinding("app", "lint")
	require.NoError(t, err)
	uc := NewRemoveHook(f.projects, f.hooks, f.registry, f.compile, f.logger)

	out, err := uc.Execute(context.Background(), RemoveHookInput{Name: "lint"})
	require.NoError(t, err)
	assert.Equal(t, []string{"app"}, out.Unbound)
	assert.NotContains(t, f.hooks.Hooks, "lint")
	assert.Empty(t, f.hooks.Bindings["app"])

	_, err = uc.Execute(context.Background(), RemoveHookInput{Name: "lint"})
	assert.ErrorIs(t, err, domain.ErrHookNotFound)

	_, err = uc.Execute(context.Background(), RemoveHookInput{Name: "taskflow-advance"})
	assert.ErrorIs(t, err, domain.ErrFrameworkHook)
}

func TestListHooks_Execute(t *testing.T) {
	f := newHookFixture(t.TempDir(), advanceHook(), lintHook(), pushHook())
	_, _, err := f.hooks.AddBinding("app", "push")
	require.NoError(t, err)
	uc := NewListHooks(f.projects, f.hooks, f.registry)

	out, err := uc.Execute(context.Background(), ListHooksInput{ProjectID: "app"})
	require.NoError(t, err)
	require.Len(t, out.Hooks, 3)
	assert.Equal(t, "lint", out.Hooks[0].Definition.Name)
	assert.Nil(t, out.Hooks[0].Binding)
	assert.Equal(t, "push", out.Hooks[1].Definition.Name)
	require.NotNil(t, out.Hooks[1].Binding)
	assert.Equal(t, 1, out.Hooks[1].Binding.Seq)
	assert.Equal(t, "taskflow-advance", out.Hooks[2].Definition.Name)

	out, err = uc.Execute(context.Background(), ListHooksInput{})
	require.NoError(t, err)
	for _, h := range out.Hooks {
		assert.Nil(t, h.Binding)
	}

	_, err = uc.Execute(context.Background(), ListHooksInput{ProjectID: "web"})
	assert.ErrorIs(t, err, domain.ErrProjectNotFound)
}
