package jsonbackend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/FranksOps/auger/internal/storage"
)

// ensure jsonBackend implements storage.Backend
var _ storage.Backend = (*jsonBackend)(nil)

type jsonBackend struct {
	mu    sync.Mutex
	path  string
	order []string
	byURL map[string]*storage.Employee
	dirty bool
}

// New creates a JSON-array-backed storage.Backend. Records accumulate in
// memory and Flush rewrites the whole file, so the output is always a valid
// JSON document. An empty array is written up front so downstream tooling
// never sees a missing file, even for a run that finds nothing.
func New(path string) (storage.Backend, error) {
	b := &jsonBackend{
		path:  path,
		byURL: make(map[string]*storage.Employee),
	}
	if err := b.write(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *jsonBackend) Save(ctx context.Context, emp *storage.Employee) error {
	if emp.ProfileURL == "" {
		return errors.New("employee has no profile url")
	}

	c := *emp
	c.InferredEmails = slices.Clone(emp.InferredEmails)
	c.RoleHints = slices.Clone(emp.RoleHints)

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.byURL[c.ProfileURL]; !ok {
		b.order = append(b.order, c.ProfileURL)
	}
	b.byURL[c.ProfileURL] = &c
	b.dirty = true

	return nil
}

func (b *jsonBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.Employee, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Newest insertions first, mirroring the descending order the database
	// backends produce.
	var allFiltered []*storage.Employee
	for i := len(b.order) - 1; i >= 0; i-- {
		e := b.byURL[b.order[i]]

		// Apply filters
		if filter.ProfileURL != "" && e.ProfileURL != filter.ProfileURL {
			continue
		}
		if filter.HasEmail != nil && (len(e.InferredEmails) > 0) != *filter.HasEmail {
			continue
		}
		if filter.RoleHint != "" && !hasHint(e.RoleHints, filter.RoleHint) {
			continue
		}
		if filter.Since != nil && e.FoundAt.Before(*filter.Since) {
			continue
		}

		c := *e
		c.InferredEmails = slices.Clone(e.InferredEmails)
		c.RoleHints = slices.Clone(e.RoleHints)
		allFiltered = append(allFiltered, &c)
	}

	// Apply Offset
	if filter.Offset > 0 {
		if filter.Offset >= len(allFiltered) {
			return []*storage.Employee{}, nil
		}
		allFiltered = allFiltered[filter.Offset:]
	}

	// Apply Limit
	if filter.Limit > 0 && filter.Limit < len(allFiltered) {
		allFiltered = allFiltered[:filter.Limit]
	}

	return allFiltered, nil
}

func (b *jsonBackend) Flush(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.dirty {
		return nil
	}
	if err := b.write(); err != nil {
		return err
	}
	b.dirty = false
	return nil
}

func (b *jsonBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.dirty {
		return nil
	}
	if err := b.write(); err != nil {
		return err
	}
	b.dirty = false
	return nil
}

// write rewrites the output file through a temp file and rename, so a crash
// mid-write cannot leave a truncated document behind. Callers hold the lock.
func (b *jsonBackend) write() error {
	list := make([]*storage.Employee, 0, len(b.order))
	for _, u := range b.order {
		list = append(list, b.byURL[u])
	}

	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal employees: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(b.path), filepath.Base(b.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write employees: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), b.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace output file: %w", err)
	}

	return nil
}

func hasHint(hints []string, hint string) bool {
	for _, h := range hints {
		if strings.EqualFold(h, hint) {
			return true
		}
	}
	return false
}
