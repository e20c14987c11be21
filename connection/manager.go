package connection

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/roach88/spider/driver"
)

// DefaultName is used when the manager is given no default connection.
const DefaultName = "default"

// ErrConnectionNotFound is returned for names with no definition.
var ErrConnectionNotFound = errors.New("connection not found")

// Manager creates named connections from their definitions and caches
// them.
type Manager struct {
	mu          sync.Mutex
	defaultName string
	defs        map[string]driver.Config
	cache       map[string]*Connection
	opts        []Option
}

// NewManager creates a manager over defs. An empty defaultName selects
// DefaultName. opts apply to every connection the manager creates.
func NewManager(defaultName string, defs map[string]driver.Config, opts ...Option) *Manager {
	if defaultName == "" {
		defaultName = DefaultName
	}
	return &Manager{
		defaultName: defaultName,
		defs:        maps.Clone(defs),
		cache:       make(map[string]*Connection),
		opts:        opts,
	}
}

// DefaultName returns the name used when a call passes "".
func (m *Manager) DefaultName() string {
	return m.defaultName
}

// Names returns the defined connection names, sorted.
func (m *Manager) Names() []string {
	return slices.Sorted(maps.Keys(m.defs))
}

// Config returns the definition of name.
func (m *Manager) Config(name string) (driver.Config, error) {
	name = m.resolve(name)
	cfg, ok := m.defs[name]
	if !ok {
		return driver.Config{}, fmt.Errorf("%w: %q", ErrConnectionNotFound, name)
	}
	return cfg, nil
}

// Make creates and opens a new connection and caches it under name,
// closing any connection previously cached there.
func (m *Manager) Make(ctx context.Context, name string) (*Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.make(ctx, m.resolve(name))
}

// Fetch returns the cached connection for name, making it on first use.
func (m *Manager) Fetch(ctx context.Context, name string) (*Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	name = m.resolve(name)
	if c, ok := m.cache[name]; ok {
		return c, nil
	}
	return m.make(ctx, name)
}

func (m *Manager) make(ctx context.Context, name string) (*Connection, error) {
	cfg, ok := m.defs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrConnectionNotFound, name)
	}

	c, err := New(name, cfg, m.opts...)
	if err != nil {
		return nil, err
	}
	if err := c.Open(ctx); err != nil {
		return nil, err
	}

	if old, ok := m.cache[name]; ok {
		_ = old.Close(ctx)
	}
	m.cache[name] = c
	return c, nil
}

// Cached returns the names of cached connections, sorted.
func (m *Manager) Cached() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Sorted(maps.Keys(m.cache))
}

// ClearCache forgets the named connections, or all of them when no names
// are given. Forgotten connections are not closed; callers holding one
// still own it.
func (m *Manager) ClearCache(names ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(names) == 0 {
		clear(m.cache)
		return
	}
	for _, name := range names {
		delete(m.cache, m.resolve(name))
	}
}

// Close closes every cached connection and empties the cache.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for _, name := range slices.Sorted(maps.Keys(m.cache)) {
		if err := m.cache[name].Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	clear(m.cache)
	return errors.Join(errs...)
}

func (m *Manager) resolve(name string) string {
	if name == "" {
		return m.defaultName
	}
	return name
}
