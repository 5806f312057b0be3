package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/runoshun/taskflow/internal/domain"
)

// InitRepoInput contains the input parameters for InitRepo.
type InitRepoInput struct {
	DataDir   string   // Path to .git/taskflow
	RepoRoot  string   // Path to repository root
	ProjectID string   // Default project ID (usually the repository directory name)
	Hooks     []string // Hooks enabled for a newly created project
}

// InitRepoOutput contains the output from InitRepo.
type InitRepoOutput struct {
	Project        *domain.ProjectSettings
	DataDir        string
	EnabledHooks   []string
	ProjectCreated bool
	ConfigCreated  bool
}

// InitRepo prepares a repository for taskflow.
// Running it again repairs missing directories and never overwrites existing settings.
type InitRepo struct {
	storeInit     domain.StoreInitializer
	projects      domain.ProjectRepository
	configManager domain.ConfigManager
	enable        *EnableHook
	logger        domain.Logger
}

// NewInitRepo creates a new InitRepo use case.
// enable may be nil, in which case no hooks are enabled.
func NewInitRepo(
	storeInit domain.StoreInitializer,
	projects domain.ProjectRepository,
	configManager domain.ConfigManager,
	enable *EnableHook,
	logger domain.Logger,
) *InitRepo {
	return &InitRepo{
		storeInit:     storeInit,
		projects:      projects,
		configManager: configManager,
		enable:        enable,
		logger:        logger,
	}
}

// dataSubdirs are created under the data directory on init.
var dataSubdirs = []string{"logs", "locks", "pending", "procs", "transcripts", "worktrees"}

// Execute initializes the data directory, the store, the repository config and the default project.
func (uc *InitRepo) Execute(ctx context.Context, in InitRepoInput) (*InitRepoOutput, error) {
	if in.ProjectID == "" {
		return nil, fmt.Errorf("%w: project ID is required", domain.ErrProjectNotFound)
	}

	for _, dir := range append([]string{in.DataDir}, dataSubdirs...) {
		path := dir
		if dir != in.DataDir {
			path = filepath.Join(in.DataDir, dir)
		}
		if err := os.MkdirAll(path, 0o750); err != nil {
			return nil, fmt.Errorf("create %s: %w", path, err)
		}
	}

	if err := uc.storeInit.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize store: %w", err)
	}

	out := &InitRepoOutput{DataDir: in.DataDir}

	if !uc.configManager.GetRepoConfigInfo().Exists {
		if err := uc.configManager.InitRepoConfig(domain.NewDefaultConfig()); err != nil {
			return nil, fmt.Errorf("write config: %w", err)
		}
		out.ConfigCreated = true
	}

	project, err := uc.projects.GetProject(in.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	if project == nil {
		project = domain.NewDefaultProjectSettings(in.ProjectID, in.RepoRoot)
		if err := uc.projects.SaveProject(project); err != nil {
			return nil, fmt.Errorf("save project: %w", err)
		}
		out.ProjectCreated = true
		uc.logger.Info(0, "init", fmt.Sprintf("created project %q at %s", project.ID, project.Dir))

		if uc.enable != nil {
			for _, name := range in.Hooks {
				res, err := uc.enable.Execute(ctx, EnableHookInput{ProjectID: project.ID, HookName: name})
				if err != nil {
					return nil, fmt.Errorf("enable %s: %w", name, err)
				}
				if res.Created {
					out.EnabledHooks = append(out.EnabledHooks, name)
				}
			}
		}
	}
	out.Project = project
	return out, nil
}
