// Package artifacts evaluates and watches the files auto transitions wait for.
package artifacts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/runoshun/taskflow/internal/domain"
)

// Ensure Checker implements domain.PreconditionChecker interface.
var _ domain.PreconditionChecker = (*Checker)(nil)

// taskPlaceholder is replaced with the task ID in artifact patterns.
const taskPlaceholder = "{task}"

// Checker resolves "from->to" artifact globs against the task's working directory.
// An auto edge without configured artifacts never fires on its own.
type Checker struct {
	projects domain.ProjectRepository
	table    *domain.TransitionTable
	rules    map[string][]string
}

// NewChecker creates a checker for the [preconditions] rules.
func NewChecker(rules map[string][]string, projects domain.ProjectRepository, table *domain.TransitionTable) *Checker {
	return &Checker{projects: projects, table: table, rules: rules}
}

// Satisfied reports whether every pattern of the edge matches at least one file.
func (c *Checker) Satisfied(_ context.Context, task *domain.Task, edge domain.Edge) (bool, error) {
	patterns := c.rules[edge.Key()]
	if len(patterns) == 0 {
		return false, nil
	}
	base, err := c.baseDir(task)
	if err != nil {
		return false, err
	}
	for _, pattern := range patterns {
		matches, err := filepath.Glob(expand(base, pattern, task.ID))
		if err != nil {
			return false, fmt.Errorf("precondition %s pattern %q: %w", edge.Key(), pattern, err)
		}
		if len(matches) == 0 {
			return false, nil
		}
	}
	return true, nil
}

// WatchDirs returns the deepest existing directories of the patterns guarding
// the auto edges leaving the task's current status.
func (c *Checker) WatchDirs(_ context.Context, task *domain.Task) ([]string, error) {
	base, err := c.baseDir(task)
	if err != nil {
		return nil, err
	}

	var dirs []string
	for _, edge := range c.table.From(task.Mode, task.Status) {
		if edge.Kind != domain.EdgeAuto {
			continue
		}
		for _, pattern := range c.rules[edge.Key()] {
			dir := existingAncestor(staticDir(expand(base, pattern, task.ID)), base)
			if dir != "" && !slices.Contains(dirs, dir) {
				dirs = append(dirs, dir)
			}
		}
	}
	slices.Sort(dirs)
	return dirs, nil
}

func (c *Checker) baseDir(task *domain.Task) (string, error) {
	project, err := c.projects.GetProject(task.ProjectID)
	if err != nil {
		return "", fmt.Errorf("get project: %w", err)
	}
	if project == nil {
		return "", domain.ErrProjectNotFound
	}
	return task.WorkDir(project.Dir), nil
}

func expand(base, pattern string, taskID int) string {
	p := strings.ReplaceAll(pattern, taskPlaceholder, strconv.Itoa(taskID))
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// staticDir returns the directory part of pattern before its first glob element.
func staticDir(pattern string) string {
	dir := filepath.Dir(pattern)
	for strings.ContainsAny(dir, `*?[\`) {
		dir = filepath.Dir(dir)
	}
	return dir
}

// existingAncestor walks up from dir until it finds an existing directory, stopping at root.
func existingAncestor(dir, root string) string {
	for {
		info, err := os.Stat(dir)
		if err == nil && info.IsDir() {
			return dir
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return ""
		}
		if dir == root || dir == filepath.Dir(dir) {
			return ""
		}
		dir = filepath.Dir(dir)
	}
}
