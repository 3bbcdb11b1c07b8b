// Package output provides formatters for rendering scan reports in
// multiple formats (pretty, plain, json, yaml, csv, and more).
//
// The package uses a registry pattern so formatters can be selected by
// name at runtime:
//
//	formatter, err := output.Get("pretty")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	var buf bytes.Buffer
//	if err := formatter.Format(&buf, report); err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Print(buf.String())
package output

import (
	"bytes"
	"fmt"
	"sort"
	"sync"

	"github.com/reclaimtool/reclaim/pkg/reclaim/types"
)

// Report contains the complete result data for formatting: what was
// scanned, what the rules suggest cleaning, and which files duplicate
// each other.
type Report struct {
	// Summary describes the session as a whole.
	Summary types.ScanSummary `json:"summary" yaml:"summary"`

	// Classifications are the cleanup suggestions, ordered by path.
	Classifications []types.Classification `json:"classifications" yaml:"classifications"`

	// Groups are the confirmed duplicate groups, largest first.
	Groups []types.DuplicateGroup `json:"duplicate_groups" yaml:"duplicate_groups"`
}

// Row is one actionable suggestion flattened for tabular formats. Each
// classification yields a row, and every redundant duplicate member
// yields a row pointing at its keeper.
type Row struct {
	// Category is the cleanup category, or "duplicate" for redundant
	// copies.
	Category string `json:"category" yaml:"category"`

	// Action is the suggested follow-up.
	Action string `json:"action" yaml:"action"`

	// Size is the bytes recoverable by acting on this row.
	Size int64 `json:"size" yaml:"size"`

	// Path is the file or directory the suggestion applies to.
	Path string `json:"path" yaml:"path"`

	// Detail explains the suggestion in one sentence.
	Detail string `json:"detail" yaml:"detail"`
}

// rowCategoryDuplicate marks rows derived from duplicate groups.
const rowCategoryDuplicate = "duplicate"

// Rows flattens the report into suggestion rows. Classifications come
// first in their report order, then duplicate members group by group
// with keepers omitted.
func (r *Report) Rows() []Row {
	rows := make([]Row, 0, len(r.Classifications))
	for _, cls := range r.Classifications {
		rows = append(rows, Row{
			Category: string(cls.Category),
			Action:   string(cls.Action),
			Size:     cls.Size,
			Path:     cls.Path,
			Detail:   cls.Rationale,
		})
	}
	for _, g := range r.Groups {
		for _, member := range g.Members {
			if member == g.Keeper {
				continue
			}
			rows = append(rows, Row{
				Category: rowCategoryDuplicate,
				Action:   string(types.ActionReview),
				Size:     g.Size,
				Path:     member,
				Detail:   "identical to " + g.Keeper,
			})
		}
	}
	return rows
}

// ReclaimableSize returns the total bytes the report suggests can be
// recovered.
func (r *Report) ReclaimableSize() int64 {
	return r.Summary.ReclaimableBytes
}

// Formatter is the interface that all output formatters must implement.
type Formatter interface {
	// Format writes the formatted report to the buffer.
	// It returns an error if formatting fails.
	Format(w *bytes.Buffer, r *Report) error
}

// FormatterFactory is a function that creates a new Formatter instance.
type FormatterFactory func() Formatter

// Registry manages formatter registration and lookup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]FormatterFactory
}

// NewRegistry creates a new formatter registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]FormatterFactory),
	}
}

// Register adds a formatter factory to the registry.
// It will replace any existing formatter with the same name.
func (r *Registry) Register(name string, factory FormatterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns a new formatter instance by name.
// It returns an error if the formatter is not found.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown formatter: %s", name)
	}
	return factory(), nil
}

// Available returns a sorted list of all registered formatter names.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Register adds a formatter factory to the default registry.
func Register(name string, factory FormatterFactory) {
	DefaultRegistry.Register(name, factory)
}

// Get returns a new formatter instance from the default registry.
func Get(name string) (Formatter, error) {
	return DefaultRegistry.Get(name)
}

// Available returns all formatter names from the default registry.
func Available() []string {
	return DefaultRegistry.Available()
}
