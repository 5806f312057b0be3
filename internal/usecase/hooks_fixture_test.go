package usecase

import (
	"time"

	"github.com/runoshun/taskflow/internal/domain"
	"github.com/runoshun/taskflow/internal/testutil"
)

type hookFixture struct {
	projects *testutil.MockProjectRepository
	hooks    *testutil.MockHookRepository
	registry *testutil.MockHookRegistry
	config   *testutil.MockConfigLoader
	logger   *testutil.MockLogger
	compile  *CompileSettings
}

func newHookFixture(projectDir string, defs ...*domain.HookDefinition) *hookFixture {
	f := &hookFixture{
		projects: testutil.NewMockProjectRepository(domain.NewDefaultProjectSettings("app", projectDir)),
		hooks:    testutil.NewMockHookRepository(),
		registry: testutil.NewMockHookRegistry(defs...),
		config:   testutil.NewMockConfigLoader(),
		logger:   &testutil.MockLogger{},
	}
	f.compile = NewCompileSettings(f.projects, f.hooks, f.registry, f.config, f.logger, "/usr/local/bin/taskflow")
	return f
}

func lintHook() *domain.HookDefinition {
	return &domain.HookDefinition{
		Name:    "lint",
		Event:   domain.HookPostTool,
		Matcher: "Edit|Write",
		Origin:  domain.OriginCustom,
		Action:  domain.HookAction{Command: "make -C {{.ProjectDir}} lint", Timeout: time.Minute},
	}
}

func advanceHook() *domain.HookDefinition {
	return &domain.HookDefinition{
		Name:   "taskflow-advance",
		Event:  domain.HookSessionStop,
		Origin: domain.OriginFramework,
		Action: domain.HookAction{Command: "{{.Bin}} advance", Reentrant: true},
	}
}

func pushHook() *domain.HookDefinition {
	return &domain.HookDefinition{
		Name:         "push",
		Event:        domain.HookPostTool,
		Matcher:      "Bash",
		Origin:       domain.OriginCustom,
		Dependencies: []string{"gh"},
		Action:       domain.HookAction{Script: "scripts/push.sh", Reentrant: true},
	}
}
