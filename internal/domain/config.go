package domain

import (
	"bytes"
	_ "embed"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"text/template"
	"time"
)

//go:embed config_template.toml
var configTemplateContent string

// Config represents the application configuration.
// Fields are ordered to minimize memory padding.
type Config struct {
	Preconditions map[string][]string `toml:"preconditions"` // "from->to" = artifact globs
	Warnings      []string            `toml:"-"`
	Dispatch      DispatchConfig      `toml:"dispatch"`
	Session       SessionConfig       `toml:"session"`
	Hooks         HooksConfig         `toml:"hooks"`
	Workspace     WorkspaceConfig     `toml:"workspace"`
	Store         StoreConfig         `toml:"store"`
	Log           LogConfig           `toml:"log"`
}

// LogConfig holds logging settings from [log] section.
type LogConfig struct {
	Level string `toml:"level,omitempty"` // Log level: debug, info, warn, error
}

// StoreConfig holds persistence settings from [store] section.
type StoreConfig struct {
	Backend string `toml:"backend,omitempty"` // "json" (default) or "sqlite"
}

// Store backends.
const (
	StoreBackendJSON   = "json"
	StoreBackendSQLite = "sqlite"
)

// HooksConfig holds trigger engine settings from [hooks] section.
// Fields are ordered to minimize memory padding.
type HooksConfig struct {
	LockBackend   string        `toml:"lock_backend,omitempty"` // "file" (default) or "memory"
	SkipMarker    string        `toml:"skip_marker,omitempty"`
	SettingsPath  string        `toml:"settings_path,omitempty"` // Relative to the project directory
	LockTTL       time.Duration `toml:"-"`
	ActionTimeout time.Duration `toml:"-"`
	WriteSettings bool          `toml:"write_settings,omitempty"` // Write the compiled document on every change
}

// Recursion guard backends.
const (
	LockBackendFile   = "file"
	LockBackendMemory = "memory"
)

// SessionConfig holds session settings from [session] section.
// Fields are ordered to minimize memory padding.
type SessionConfig struct {
	Command       string        `toml:"command,omitempty"`        // Program started in new sessions
	CommandPrefix string        `toml:"command_prefix,omitempty"` // Prepended to dispatched command names
	WarmupTimeout time.Duration `toml:"-"`
	PollInterval  time.Duration `toml:"-"`
}

// DispatchConfig holds transition → command overrides from [dispatch] section.
type DispatchConfig struct {
	Commands map[string]string `toml:"commands"` // "from->to" = "command {task}"
}

// WorkspaceConfig holds workspace settings from [workspace] section.
type WorkspaceConfig struct {
	BaseBranch    string `toml:"base_branch,omitempty"` // Empty: repository default branch
	ReleaseOnDone bool   `toml:"release_on_done,omitempty"`
}

// Default configuration values.
const (
	DefaultLogLevel       = "info"
	DefaultSkipMarker     = "[skip hooks]"
	DefaultSettingsPath   = ".claude/settings.local.json"
	DefaultLockTTL        = 10 * time.Minute
	DefaultActionTimeout  = 5 * time.Minute
	DefaultSessionCommand = "claude"
	DefaultCommandPrefix  = "/"
	DefaultWarmupTimeout  = 30 * time.Second
	DefaultPollInterval   = 500 * time.Millisecond
)

// Directory and file names.
const (
	ConfigFileName = "config.toml"
	GlobalDirName  = "taskflow"
)

// RepoConfigPath returns the repository config path for a data directory.
func RepoConfigPath(dataDir string) string {
	return filepath.Join(dataDir, ConfigFileName)
}

// GlobalConfigDir returns the global config directory.
// configHome is typically XDG_CONFIG_HOME or ~/.config (resolved by caller).
func GlobalConfigDir(configHome string) string {
	return filepath.Join(configHome, GlobalDirName)
}

// GlobalConfigPath returns the global config path.
func GlobalConfigPath(configHome string) string {
	return filepath.Join(GlobalConfigDir(configHome), ConfigFileName)
}

// NewDefaultConfig returns a Config with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Log:   LogConfig{Level: DefaultLogLevel},
		Store: StoreConfig{Backend: StoreBackendJSON},
		Hooks: HooksConfig{
			LockBackend:   LockBackendFile,
			SkipMarker:    DefaultSkipMarker,
			SettingsPath:  DefaultSettingsPath,
			LockTTL:       DefaultLockTTL,
			ActionTimeout: DefaultActionTimeout,
		},
		Session: SessionConfig{
			Command:       DefaultSessionCommand,
			CommandPrefix: DefaultCommandPrefix,
			WarmupTimeout: DefaultWarmupTimeout,
			PollInterval:  DefaultPollInterval,
		},
		Dispatch: DispatchConfig{Commands: map[string]string{}},
		Preconditions: map[string][]string{
			EdgeKey(StatusAnalysis, StatusInProgress): {
				"docs/tasks/{task}/requirements.md",
				"docs/tasks/{task}/architecture.md",
			},
		},
	}
}

// CommandRules returns the built-in rules with [dispatch.commands] overrides applied.
func (c *Config) CommandRules(table *TransitionTable) []CommandRule {
	return ApplyCommandOverrides(DefaultCommandRules(), c.Dispatch.Commands, table)
}

// ConfigInfo holds information about a config file.
type ConfigInfo struct {
	Path    string
	Content string
	Exists  bool
}

type templateData struct {
	LogLevel      string
	SkipMarker    string
	SettingsPath  string
	LockTTL       string
	ActionTimeout string
	Command       string
	WarmupTimeout string
	PollInterval  string
	Preconditions []preconditionData
}

type preconditionData struct {
	Edge  string
	Globs string
}

// RenderConfigTemplate renders the commented config written by "taskflow init".
func RenderConfigTemplate(cfg *Config) string {
	data := templateData{
		LogLevel:      cfg.Log.Level,
		SkipMarker:    cfg.Hooks.SkipMarker,
		SettingsPath:  cfg.Hooks.SettingsPath,
		LockTTL:       cfg.Hooks.LockTTL.String(),
		ActionTimeout: cfg.Hooks.ActionTimeout.String(),
		Command:       cfg.Session.Command,
		WarmupTimeout: cfg.Session.WarmupTimeout.String(),
		PollInterval:  cfg.Session.PollInterval.String(),
	}
	for _, edge := range sortedMapKeys(cfg.Preconditions) {
		globs := make([]string, 0, len(cfg.Preconditions[edge]))
		for _, g := range cfg.Preconditions[edge] {
			globs = append(globs, fmt.Sprintf("%q", g))
		}
		data.Preconditions = append(data.Preconditions, preconditionData{
			Edge:  edge,
			Globs: strings.Join(globs, ", "),
		})
	}

	tmpl, err := template.New("config").Delims("<<", ">>").Parse(configTemplateContent)
	if err != nil {
		// Should never happen with embedded template
		panic(fmt.Sprintf("failed to parse config template: %v", err))
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		panic(fmt.Sprintf("failed to execute config template: %v", err))
	}
	return buf.String()
}

// sortedMapKeys returns the keys of a map sorted alphabetically.
func sortedMapKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
