// Package hookfile reads custom hook definitions from YAML files.
package hookfile

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/runoshun/taskflow/internal/domain"
	"gopkg.in/yaml.v3"
)

// File is the YAML shape of a hook file:
//
//	hooks:
//	  - name: lint
//	    event: post-tool
//	    matcher: Edit|Write
//	    command: make lint
//	    timeout: 2m
type File struct {
	Hooks []Entry `yaml:"hooks"`
}

// Entry is one hook definition as written in YAML.
// Fields are ordered to minimize memory padding.
type Entry struct {
	Name             string   `yaml:"name"`
	Description      string   `yaml:"description,omitempty"`
	Event            string   `yaml:"event"`
	Matcher          string   `yaml:"matcher,omitempty"`
	Command          string   `yaml:"command,omitempty"`
	Script           string   `yaml:"script,omitempty"`
	Timeout          string   `yaml:"timeout,omitempty"`
	Dependencies     []string `yaml:"dependencies,omitempty"`
	Reentrant        bool     `yaml:"reentrant,omitempty"`
	Background       bool     `yaml:"background,omitempty"`
	PendingOnFailure bool     `yaml:"pending_on_failure,omitempty"`
}

// Parse decodes and validates every definition in data.
// Definitions are returned in file order with custom origin.
func Parse(data []byte) ([]*domain.HookDefinition, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: hook file is empty", domain.ErrInvalidHook)
	}
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode hook file: %w", err)
	}
	if len(f.Hooks) == 0 {
		return nil, fmt.Errorf("%w: no hooks defined", domain.ErrInvalidHook)
	}

	seen := make(map[string]bool, len(f.Hooks))
	defs := make([]*domain.HookDefinition, 0, len(f.Hooks))
	for i, e := range f.Hooks {
		def, err := e.toDefinition()
		if err != nil {
			return nil, fmt.Errorf("hook #%d: %w", i+1, err)
		}
		if seen[def.Name] {
			return nil, fmt.Errorf("%w: %s defined twice", domain.ErrInvalidHook, def.Name)
		}
		seen[def.Name] = true
		defs = append(defs, def)
	}
	return defs, nil
}

// Load reads a hook file from r.
func Load(r io.Reader) ([]*domain.HookDefinition, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read hook file: %w", err)
	}
	return Parse(data)
}

// LoadFile reads a hook file from disk.
func LoadFile(path string) ([]*domain.HookDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	defs, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return defs, nil
}

func (e Entry) toDefinition() (*domain.HookDefinition, error) {
	event, err := domain.ParseHookEvent(strings.TrimSpace(e.Event))
	if err != nil {
		return nil, err
	}
	var timeout time.Duration
	if e.Timeout != "" {
		timeout, err = time.ParseDuration(e.Timeout)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: timeout: %w", domain.ErrInvalidHook, e.Name, err)
		}
	}
	def := &domain.HookDefinition{
		Name:         strings.TrimSpace(e.Name),
		Description:  e.Description,
		Event:        event,
		Matcher:      e.Matcher,
		Origin:       domain.OriginCustom,
		Dependencies: e.Dependencies,
		Action: domain.HookAction{
			Command:          e.Command,
			Script:           e.Script,
			Timeout:          timeout,
			Reentrant:        e.Reentrant,
			Background:       e.Background,
			PendingOnFailure: e.PendingOnFailure,
		},
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return def, nil
}
