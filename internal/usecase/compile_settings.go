package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/runoshun/taskflow/internal/domain"
)

// CompileSettingsInput contains the parameters for compiling a project's automation settings.
type CompileSettingsInput struct {
	ProjectID string
	Write     bool // Write the document even if [hooks] write_settings is off
}

// CompileSettingsOutput contains the compiled settings.
// Fields are ordered to minimize memory padding.
type CompileSettingsOutput struct {
	Settings   *domain.CompiledAutomationSettings
	Document   []byte   // Indented JSON, newline terminated
	Warnings   []string // Enabled hooks that could not be compiled
	Path       string   // Set when the document was written
	ProjectDir string
}

// CommandData is the data available to hook command templates.
type CommandData struct {
	ProjectDir string
	Project    string
	HookName   string
	Event      string
	Bin        string // Path of the taskflow executable
}

// CompileSettings derives a project's automation settings from its enabled bindings.
// The result depends only on the bindings and definitions, so equal inputs give equal bytes.
type CompileSettings struct {
	projects     domain.ProjectRepository
	hooks        domain.HookRepository
	registry     domain.HookRegistry
	configLoader domain.ConfigLoader
	logger       domain.Logger
	bin          string
}

// NewCompileSettings creates a new CompileSettings use case.
func NewCompileSettings(
	projects domain.ProjectRepository,
	hooks domain.HookRepository,
	registry domain.HookRegistry,
	configLoader domain.ConfigLoader,
	logger domain.Logger,
	bin string,
) *CompileSettings {
	return &CompileSettings{
		projects:     projects,
		hooks:        hooks,
		registry:     registry,
		configLoader: configLoader,
		logger:       logger,
		bin:          bin,
	}
}

// Execute compiles the settings and writes them when configured to.
func (uc *CompileSettings) Execute(_ context.Context, in CompileSettingsInput) (*CompileSettingsOutput, error) {
	project, err := uc.projects.GetProject(in.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	if project == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrProjectNotFound, in.ProjectID)
	}

	bindings, err := uc.hooks.ListBindings(project.ID)
	if err != nil {
		return nil, fmt.Errorf("list bindings: %w", err)
	}

	cfg, err := uc.configLoader.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	out := &CompileSettingsOutput{
		Settings:   domain.NewCompiledAutomationSettings(project.ID, uc.bin),
		ProjectDir: project.Dir,
	}
	out.Settings.ActionTimeout = cfg.Hooks.ActionTimeout
	for _, b := range bindings {
		def, err := uc.registry.Get(b.HookName)
		if err != nil {
			return nil, fmt.Errorf("get hook %s: %w", b.HookName, err)
		}
		if def == nil {
			out.Warnings = append(out.Warnings, fmt.Sprintf("hook %q is enabled but not defined", b.HookName))
			continue
		}
		command, err := uc.render(def, project)
		if err != nil {
			out.Warnings = append(out.Warnings, err.Error())
			continue
		}
		entry, err := domain.NewAutomationEntry(def.Name, def.Matcher, command, def.Action)
		if err != nil {
			out.Warnings = append(out.Warnings, fmt.Sprintf("hook %q: %v", def.Name, err))
			continue
		}
		out.Settings.Add(def.Event, entry)
	}
	for _, w := range out.Warnings {
		uc.logger.Warn(0, "compile", project.ID+": "+w)
	}

	raw, err := json.Marshal(out.Settings)
	if err != nil {
		return nil, fmt.Errorf("marshal settings: %w", err)
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return nil, fmt.Errorf("format settings: %w", err)
	}
	buf.WriteByte('\n')
	out.Document = buf.Bytes()

	if in.Write || cfg.Hooks.WriteSettings {
		path := cfg.Hooks.SettingsPath
		if !filepath.IsAbs(path) {
			path = filepath.Join(project.Dir, path)
		}
		if err := writeFileAtomic(path, out.Document); err != nil {
			return nil, fmt.Errorf("write settings: %w", err)
		}
		out.Path = path
		uc.logger.Info(0, "compile", fmt.Sprintf("%s: wrote %d entries to %s", project.ID, out.Settings.Len(), path))
	}
	return out, nil
}

// render produces the command line of a definition.
// Scripts are resolved against the project directory; inline commands are templates.
func (uc *CompileSettings) render(def *domain.HookDefinition, project *domain.ProjectSettings) (string, error) {
	if def.Action.Script != "" {
		script := def.Action.Script
		if !filepath.IsAbs(script) {
			script = filepath.Join(project.Dir, script)
		}
		return script, nil
	}

	tmpl, err := template.New(def.Name).Option("missingkey=error").Parse(def.Action.Command)
	if err != nil {
		return "", fmt.Errorf("hook %q: parse command: %w", def.Name, err)
	}
	var sb strings.Builder
	err = tmpl.Execute(&sb, CommandData{
		ProjectDir: project.Dir,
		Project:    project.ID,
		HookName:   def.Name,
		Event:      string(def.Event),
		Bin:        uc.bin,
	})
	if err != nil {
		return "", fmt.Errorf("hook %q: render command: %w", def.Name, err)
	}
	return sb.String(), nil
}

// writeFileAtomic replaces path with data via a temporary file in the same directory.
func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}
