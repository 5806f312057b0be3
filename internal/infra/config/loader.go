// Package config provides configuration loading functionality.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/runoshun/taskflow/internal/domain"
)

// Ensure Loader implements domain.ConfigLoader.
var _ domain.ConfigLoader = (*Loader)(nil)

// Loader loads configuration from TOML files.
type Loader struct {
	dataDir       string // Path to .git/taskflow directory
	globalConfDir string // Path to global config directory (e.g., ~/.config/taskflow)
}

// NewLoader creates a new Loader.
func NewLoader(dataDir string) *Loader {
	return &Loader{
		dataDir:       dataDir,
		globalConfDir: defaultGlobalConfigDir(),
	}
}

// NewLoaderWithGlobalDir creates a new Loader with a custom global config directory.
func NewLoaderWithGlobalDir(dataDir, globalConfDir string) *Loader {
	return &Loader{
		dataDir:       dataDir,
		globalConfDir: globalConfDir,
	}
}

// defaultGlobalConfigDir returns the default global config directory.
func defaultGlobalConfigDir() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return domain.GlobalConfigDir(configHome)
}

// Load returns the merged configuration: default <- global <- repo.
func (l *Loader) Load() (*domain.Config, error) {
	global, err := l.LoadGlobal()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	repo, err := l.loadFile(domain.RepoConfigPath(l.dataDir))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	base := domain.NewDefaultConfig()
	if global != nil {
		base = mergeConfigs(base, global)
	}
	if repo != nil {
		base = mergeConfigs(base, repo)
	}
	return base, nil
}

// LoadGlobal returns only the global configuration.
func (l *Loader) LoadGlobal() (*domain.Config, error) {
	if l.globalConfDir == "" {
		return nil, os.ErrNotExist
	}
	return l.loadFile(filepath.Join(l.globalConfDir, domain.ConfigFileName))
}

// loadFile loads a configuration from a file.
func (l *Loader) loadFile(path string) (*domain.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return convertRawToDomainConfig(raw), nil
}

// section walks the keys of a table, collecting unknown keys as warnings.
type section struct {
	warnings *[]string
	name     string
}

func (s section) unknown(key string) {
	*s.warnings = append(*s.warnings, fmt.Sprintf("unknown key in [%s]: %s", s.name, key))
}

func (s section) invalid(key string, v any) {
	*s.warnings = append(*s.warnings, fmt.Sprintf("invalid value in [%s]: %s = %v", s.name, key, v))
}

func (s section) str(key string, v any, dst *string) {
	if str, ok := v.(string); ok {
		*dst = str
		return
	}
	s.invalid(key, v)
}

func (s section) boolean(key string, v any, dst *bool) {
	if b, ok := v.(bool); ok {
		*dst = b
		return
	}
	s.invalid(key, v)
}

// duration accepts Go duration strings ("90s", "10m") or integer seconds.
func (s section) duration(key string, v any, dst *time.Duration) {
	switch val := v.(type) {
	case string:
		d, err := time.ParseDuration(val)
		if err != nil || d < 0 {
			s.invalid(key, v)
			return
		}
		*dst = d
	case int64:
		if val < 0 {
			s.invalid(key, v)
			return
		}
		*dst = time.Duration(val) * time.Second
	default:
		s.invalid(key, v)
	}
}

// convertRawToDomainConfig converts the raw map to domain config and collects warnings.
func convertRawToDomainConfig(raw map[string]any) *domain.Config {
	res := &domain.Config{}
	var warnings []string

	for name, value := range raw {
		m, ok := value.(map[string]any)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("unknown section: %s", name))
			continue
		}
		s := section{name: name, warnings: &warnings}
		switch name {
		case "log":
			for k, v := range m {
				switch k {
				case "level":
					s.str(k, v, &res.Log.Level)
				default:
					s.unknown(k)
				}
			}
		case "store":
			for k, v := range m {
				switch k {
				case "backend":
					s.str(k, v, &res.Store.Backend)
					if b := res.Store.Backend; b != "" && b != domain.StoreBackendJSON && b != domain.StoreBackendSQLite {
						s.invalid(k, v)
						res.Store.Backend = ""
					}
				default:
					s.unknown(k)
				}
			}
		case "hooks":
			for k, v := range m {
				switch k {
				case "lock_backend":
					s.str(k, v, &res.Hooks.LockBackend)
					if b := res.Hooks.LockBackend; b != "" && b != domain.LockBackendFile && b != domain.LockBackendMemory {
						s.invalid(k, v)
						res.Hooks.LockBackend = ""
					}
				case "lock_ttl":
					s.duration(k, v, &res.Hooks.LockTTL)
				case "action_timeout":
					s.duration(k, v, &res.Hooks.ActionTimeout)
				case "skip_marker":
					s.str(k, v, &res.Hooks.SkipMarker)
				case "settings_path":
					s.str(k, v, &res.Hooks.SettingsPath)
				case "write_settings":
					s.boolean(k, v, &res.Hooks.WriteSettings)
				default:
					s.unknown(k)
				}
			}
		case "session":
			for k, v := range m {
				switch k {
				case "command":
					s.str(k, v, &res.Session.Command)
				case "command_prefix":
					s.str(k, v, &res.Session.CommandPrefix)
				case "warmup_timeout":
					s.duration(k, v, &res.Session.WarmupTimeout)
				case "poll_interval":
					s.duration(k, v, &res.Session.PollInterval)
				default:
					s.unknown(k)
				}
			}
		case "dispatch":
			for k, v := range m {
				switch k {
				case "commands":
					res.Dispatch.Commands = parseCommands(v, &warnings)
				default:
					s.unknown(k)
				}
			}
		case "workspace":
			for k, v := range m {
				switch k {
				case "base_branch":
					s.str(k, v, &res.Workspace.BaseBranch)
				case "release_on_done":
					s.boolean(k, v, &res.Workspace.ReleaseOnDone)
				default:
					s.unknown(k)
				}
			}
		case "preconditions":
			res.Preconditions = parsePreconditions(m, &warnings)
		default:
			warnings = append(warnings, fmt.Sprintf("unknown section: %s", name))
		}
	}

	sort.Strings(warnings)
	res.Warnings = warnings
	return res
}

// parseCommands reads [dispatch.commands] "from->to" = "command".
func parseCommands(v any, warnings *[]string) map[string]string {
	m, ok := v.(map[string]any)
	if !ok {
		*warnings = append(*warnings, "invalid value in [dispatch]: commands must be a table")
		return nil
	}
	out := make(map[string]string, len(m))
	for edge, cmd := range m {
		if !validEdgeKey(edge) {
			*warnings = append(*warnings, fmt.Sprintf("unknown transition in [dispatch.commands]: %s", edge))
			continue
		}
		s, ok := cmd.(string)
		if !ok {
			*warnings = append(*warnings, fmt.Sprintf("invalid value in [dispatch.commands]: %s", edge))
			continue
		}
		out[edge] = s
	}
	return out
}

// parsePreconditions reads [preconditions] "from->to" = ["glob", ...].
func parsePreconditions(m map[string]any, warnings *[]string) map[string][]string {
	out := make(map[string][]string, len(m))
	for edge, v := range m {
		if !validEdgeKey(edge) {
			*warnings = append(*warnings, fmt.Sprintf("unknown transition in [preconditions]: %s", edge))
			continue
		}
		list, ok := v.([]any)
		if !ok {
			*warnings = append(*warnings, fmt.Sprintf("invalid value in [preconditions]: %s", edge))
			continue
		}
		globs := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				globs = append(globs, s)
			}
		}
		out[edge] = globs
	}
	return out
}

// validEdgeKey reports whether key names an edge of the built-in table.
func validEdgeKey(key string) bool {
	for _, e := range domain.DefaultTransitions().Edges() {
		if e.Key() == key {
			return true
		}
	}
	return false
}

// mergeConfigs merges two configs, with override taking precedence.
// Maps merge per key; an explicitly empty precondition list clears the rule.
func mergeConfigs(base, override *domain.Config) *domain.Config {
	result := *base
	result.Warnings = append(append([]string{}, base.Warnings...), override.Warnings...)

	if override.Log.Level != "" {
		result.Log.Level = override.Log.Level
	}
	if override.Store.Backend != "" {
		result.Store.Backend = override.Store.Backend
	}

	if override.Hooks.LockBackend != "" {
		result.Hooks.LockBackend = override.Hooks.LockBackend
	}
	if override.Hooks.LockTTL > 0 {
		result.Hooks.LockTTL = override.Hooks.LockTTL
	}
	if override.Hooks.ActionTimeout > 0 {
		result.Hooks.ActionTimeout = override.Hooks.ActionTimeout
	}
	if override.Hooks.SkipMarker != "" {
		result.Hooks.SkipMarker = override.Hooks.SkipMarker
	}
	if override.Hooks.SettingsPath != "" {
		result.Hooks.SettingsPath = override.Hooks.SettingsPath
	}
	if override.Hooks.WriteSettings {
		result.Hooks.WriteSettings = true
	}

	if override.Session.Command != "" {
		result.Session.Command = override.Session.Command
	}
	if override.Session.CommandPrefix != "" {
		result.Session.CommandPrefix = override.Session.CommandPrefix
	}
	if override.Session.WarmupTimeout > 0 {
		result.Session.WarmupTimeout = override.Session.WarmupTimeout
	}
	if override.Session.PollInterval > 0 {
		result.Session.PollInterval = override.Session.PollInterval
	}

	if override.Workspace.BaseBranch != "" {
		result.Workspace.BaseBranch = override.Workspace.BaseBranch
	}
	if override.Workspace.ReleaseOnDone {
		result.Workspace.ReleaseOnDone = true
	}

	result.Dispatch.Commands = make(map[string]string, len(base.Dispatch.Commands)+len(override.Dispatch.Commands))
	for k, v := range base.Dispatch.Commands {
		result.Dispatch.Commands[k] = v
	}
	for k, v := range override.Dispatch.Commands {
		result.Dispatch.Commands[k] = v
	}

	result.Preconditions = make(map[string][]string, len(base.Preconditions)+len(override.Preconditions))
	for k, v := range base.Preconditions {
		result.Preconditions[k] = v
	}
	for k, v := range override.Preconditions {
		if len(v) == 0 {
			delete(result.Preconditions, k)
			continue
		}
		result.Preconditions[k] = v
	}

	return &result
}
