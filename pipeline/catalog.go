package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrMissingInput is returned when a node input has no value to load.
var ErrMissingInput = errors.New("pipeline: missing input")

// Dataset loads and saves one named value.
type Dataset interface {
	Load(ctx context.Context) (any, error)
	Save(ctx context.Context, v any) error
}

// Catalog maps dataset names to datasets. Names without a registered dataset
// get a MemoryDataset on first save. Safe for concurrent use.
type Catalog struct {
	mu   sync.RWMutex
	sets map[string]Dataset
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{sets: map[string]Dataset{}}
}

// Register binds name to ds, replacing any previous binding.
func (c *Catalog) Register(name string, ds Dataset) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets[name] = ds
}

// Has reports whether name is bound.
func (c *Catalog) Has(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.sets[name]
	return ok
}

// Names lists the bound dataset names.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.sets))
	for name := range c.sets {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Load loads the value of name.
func (c *Catalog) Load(ctx context.Context, name string) (any, error) {
	c.mu.RLock()
	ds, ok := c.sets[name]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingInput, name)
	}
	v, err := ds.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	return v, nil
}

// Save stores v under name.
func (c *Catalog) Save(ctx context.Context, name string, v any) error {
	c.mu.Lock()
	ds, ok := c.sets[name]
	if !ok {
		ds = &MemoryDataset{}
		c.sets[name] = ds
	}
	c.mu.Unlock()
	if err := ds.Save(ctx, v); err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	return nil
}
