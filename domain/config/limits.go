// Package config holds the business limits the link service enforces.
// Infrastructure loads and hot-reloads them; the application only reads them.
package config

import (
	"fmt"
	"sync/atomic"
)

// Limits holds the runtime-changeable bounds applied by the link service
type Limits struct {
	MaxPageSize        int `yaml:"max_page_size"`
	DefaultSearchLimit int `yaml:"default_search_limit"`
	MaxSearchLimit     int `yaml:"max_search_limit"`
	DefaultGraphDepth  int `yaml:"default_graph_depth"`
	MaxGraphDepth      int `yaml:"max_graph_depth"`
	FlatRowsPerDepth   int `yaml:"flat_rows_per_depth"`
	DefaultFlatRows    int `yaml:"default_flat_rows"`
	MaxGraphNodes      int `yaml:"max_graph_nodes"`
	MaxGraphEdges      int `yaml:"max_graph_edges"`
}

// DefaultLimits returns the limits used when no file overrides them
func DefaultLimits() Limits {
	return Limits{
		MaxPageSize:        100,
		DefaultSearchLimit: 10,
		MaxSearchLimit:     100,
		DefaultGraphDepth:  2,
		MaxGraphDepth:      10,
		FlatRowsPerDepth:   10,
		DefaultFlatRows:    100,
		MaxGraphNodes:      500,
		MaxGraphEdges:      2000,
	}
}

// Validate rejects non-positive limits and inverted default/max pairs
func (l Limits) Validate() error {
	checks := []struct {
		name  string
		value int
	}{
		{"max_page_size", l.MaxPageSize},
		{"default_search_limit", l.DefaultSearchLimit},
		{"max_search_limit", l.MaxSearchLimit},
		{"default_graph_depth", l.DefaultGraphDepth},
		{"max_graph_depth", l.MaxGraphDepth},
		{"flat_rows_per_depth", l.FlatRowsPerDepth},
		{"default_flat_rows", l.DefaultFlatRows},
		{"max_graph_nodes", l.MaxGraphNodes},
		{"max_graph_edges", l.MaxGraphEdges},
	}
	for _, c := range checks {
		if c.value <= 0 {
			return fmt.Errorf("limit %s must be positive, got %d", c.name, c.value)
		}
	}
	if l.DefaultSearchLimit > l.MaxSearchLimit {
		return fmt.Errorf("default_search_limit %d exceeds max_search_limit %d", l.DefaultSearchLimit, l.MaxSearchLimit)
	}
	if l.DefaultGraphDepth > l.MaxGraphDepth {
		return fmt.Errorf("default_graph_depth %d exceeds max_graph_depth %d", l.DefaultGraphDepth, l.MaxGraphDepth)
	}
	return nil
}

// LiveLimits holds the current limits and can be swapped while requests run
type LiveLimits struct {
	v atomic.Pointer[Limits]
}

// NewLiveLimits creates a holder seeded with initial
func NewLiveLimits(initial Limits) *LiveLimits {
	l := &LiveLimits{}
	l.Store(initial)
	return l
}

// Load returns the current limits
func (l *LiveLimits) Load() Limits {
	return *l.v.Load()
}

// Store replaces the current limits
func (l *LiveLimits) Store(limits Limits) {
	l.v.Store(&limits)
}
