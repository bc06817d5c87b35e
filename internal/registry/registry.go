// Package registry stores process definitions as YAML files under a project
// directory, with rotated backups and rollback.
package registry

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/stagegate/stagegate/internal/definition"
	"github.com/stagegate/stagegate/internal/engine"
)

const backupLimit = 3

// Registry manages the processes/ directory under a project root.
type Registry struct {
	root string
}

// New creates a registry rooted at the given project directory.
func New(root string) *Registry {
	return &Registry{root: root}
}

// Dir returns the directory holding the definition files.
func (r *Registry) Dir() string {
	return filepath.Join(r.root, "processes")
}

// Path returns the definition file for a process name.
func (r *Registry) Path(name string) string {
	return filepath.Join(r.Dir(), name+".yaml")
}

// Init creates the processes directory.
func (r *Registry) Init() error {
	if err := os.MkdirAll(r.Dir(), 0755); err != nil {
		return fmt.Errorf("create registry dir: %w", err)
	}
	return nil
}

// Save validates the definition, rotates backups of any existing file, and
// writes the new version atomically via a temp file rename.
func (r *Registry) Save(def *definition.ProcessDefinition) error {
	if def.Name == "" {
		return fmt.Errorf("definition requires a name")
	}
	if problems := def.Validate(); len(problems) > 0 {
		return fmt.Errorf("definition %q has %d problem(s), first: %s",
			def.Name, len(problems), problems[0])
	}

	data, err := yaml.Marshal(def)
	if err != nil {
		return fmt.Errorf("marshal definition %q: %w", def.Name, err)
	}

	if err := r.Init(); err != nil {
		return err
	}

	path := r.Path(def.Name)
	if _, err := os.Stat(path); err == nil {
		if err := rotateBackups(path); err != nil {
			return err
		}
	}

	tmp, err := os.CreateTemp(r.Dir(), def.Name+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write definition %q: %w", def.Name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write definition %q: %w", def.Name, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("save definition %q: %w", def.Name, err)
	}
	return nil
}

// rotateBackups shifts name.yaml.bak.N up by one, dropping the oldest, and
// copies the current file into .bak.1.
func rotateBackups(path string) error {
	oldest := backupPath(path, backupLimit)
	if err := os.Remove(oldest); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("rotate backups: %w", err)
	}
	for n := backupLimit - 1; n >= 1; n-- {
		from := backupPath(path, n)
		if _, err := os.Stat(from); err != nil {
			continue
		}
		if err := os.Rename(from, backupPath(path, n+1)); err != nil {
			return fmt.Errorf("rotate backups: %w", err)
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("rotate backups: %w", err)
	}
	if err := os.WriteFile(backupPath(path, 1), data, 0644); err != nil {
		return fmt.Errorf("rotate backups: %w", err)
	}
	return nil
}

func backupPath(path string, n int) string {
	return fmt.Sprintf("%s.bak.%d", path, n)
}

// Load reads a stored definition by process name.
func (r *Registry) Load(name string) (*definition.ProcessDefinition, error) {
	def, err := definition.Load(r.Path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("process %q is not registered", name)
		}
		return nil, err
	}
	return def, nil
}

// List returns the registered process names in sorted order.
func (r *Registry) List() ([]string, error) {
	entries, err := os.ReadDir(r.Dir())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read registry dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes a definition and its backups.
func (r *Registry) Delete(name string) error {
	path := r.Path(name)
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("process %q is not registered", name)
		}
		return fmt.Errorf("delete definition %q: %w", name, err)
	}
	for n := 1; n <= backupLimit; n++ {
		os.Remove(backupPath(path, n))
	}
	return nil
}

// Rollback restores the most recent backup over the current definition and
// shifts the remaining backups forward.
func (r *Registry) Rollback(name string) error {
	path := r.Path(name)
	backup := backupPath(path, 1)
	if _, err := os.Stat(backup); err != nil {
		return fmt.Errorf("process %q has no backup to roll back to", name)
	}
	if err := os.Rename(backup, path); err != nil {
		return fmt.Errorf("rollback %q: %w", name, err)
	}
	for n := 2; n <= backupLimit; n++ {
		from := backupPath(path, n)
		if _, err := os.Stat(from); err != nil {
			break
		}
		if err := os.Rename(from, backupPath(path, n-1)); err != nil {
			return fmt.Errorf("rollback %q: %w", name, err)
		}
	}
	return nil
}

// Edit loads a definition, applies the mutation, rebuilds a process to prove
// the result is still valid, and only then saves. Invalid edits never reach
// disk.
func (r *Registry) Edit(name string, fn func(*definition.ProcessDefinition) error) error {
	def, err := r.Load(name)
	if err != nil {
		return err
	}
	if err := fn(def); err != nil {
		return fmt.Errorf("edit %q: %w", name, err)
	}
	if _, err := def.Build(definition.BuildOptions{}); err != nil {
		return fmt.Errorf("edit %q produced an invalid definition: %w", name, err)
	}
	return r.Save(def)
}

// BuildProcess loads a definition and builds it with the given predicates.
func (r *Registry) BuildProcess(name string, predicates engine.Predicates) (*engine.Process, error) {
	def, err := r.Load(name)
	if err != nil {
		return nil, err
	}
	return def.Build(definition.BuildOptions{Predicates: predicates})
}
