package access

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"github.com/openlearnhq/atrium/pkg/observability"
)

// Table holds the active RuleSet behind an atomic pointer so readers on
// the request path never take a lock. Swaps are whole-set: a reload that
// fails to compile leaves the previous set in place.
type Table struct {
	current atomic.Pointer[RuleSet]
	path    string
	logger  *observability.Logger
}

// NewTable loads the rule file at path and returns a table serving it.
func NewTable(path string, logger *observability.Logger) (*Table, error) {
	rs, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	t := &Table{path: path, logger: logger}
	t.current.Store(rs)
	return t, nil
}

// NewStaticTable wraps an already compiled set, for tests and for
// deployments without a rule file on disk.
func NewStaticTable(rs *RuleSet) *Table {
	t := &Table{}
	t.current.Store(rs)
	return t
}

// Current returns the active rule set.
func (t *Table) Current() *RuleSet {
	return t.current.Load()
}

// Reload re-reads the rule file and atomically swaps the active set.
func (t *Table) Reload() error {
	if t.path == "" {
		return fmt.Errorf("rule table has no backing file")
	}
	rs, err := LoadFile(t.path)
	if err != nil {
		return err
	}
	t.current.Store(rs)
	return nil
}

// Watch re-loads the rule file whenever it changes on disk, until the
// context is cancelled. The parent directory is watched rather than the
// file itself so atomic rename-into-place updates are observed.
func (t *Table) Watch(ctx context.Context) error {
	if t.path == "" {
		return fmt.Errorf("rule table has no backing file")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating rule watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(t.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	target := filepath.Clean(t.path)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if err := t.Reload(); err != nil {
				if t.logger != nil {
					t.logger.WithError(err).Error("rule reload failed, keeping previous rule set")
				}
				continue
			}
			if t.logger != nil {
				t.logger.WithField("rules", t.Current().Len()).Info("rule set reloaded")
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if t.logger != nil {
				t.logger.WithError(err).Error("rule watcher error")
			}
		}
	}
}
