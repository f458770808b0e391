package detector

import (
	"context"
	"sync"

	"github.com/khanhnv2901/pagesentry/internal/domain/finding"
	"github.com/khanhnv2901/pagesentry/internal/page"
)

// Detector is the interface that all page checks must satisfy
type Detector interface {
	// Name identifies the detector in logs and configuration (e.g. "csp", "xss")
	Name() string

	// Scan inspects the snapshot and returns zero or more findings.
	// Implementations must not retain or modify the snapshot.
	Scan(ctx context.Context, snap *page.Snapshot) ([]finding.Finding, error)
}

// Func adapts a plain function into a Detector.
type Func struct {
	ID string
	Fn func(ctx context.Context, snap *page.Snapshot) ([]finding.Finding, error)
}

// Name returns the detector name.
func (f Func) Name() string { return f.ID }

// Scan calls the wrapped function.
func (f Func) Scan(ctx context.Context, snap *page.Snapshot) ([]finding.Finding, error) {
	return f.Fn(ctx, snap)
}

// Registry is an ordered, append-only list of detectors.
type Registry struct {
	mu        sync.RWMutex
	detectors []Detector
}

// NewRegistry creates a registry holding ds in order.
func NewRegistry(ds ...Detector) *Registry {
	r := &Registry{}
	for _, d := range ds {
		r.Register(d)
	}
	return r
}

// Register appends d. Duplicates are allowed and run once per registration.
func (r *Registry) Register(d Detector) {
	if d == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.detectors = append(r.detectors, d)
}

// All returns a snapshot of the registered detectors in registration order.
func (r *Registry) All() []Detector {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Detector, len(r.detectors))
	copy(out, r.detectors)
	return out
}

// Len returns the number of registered detectors.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.detectors)
}

// Names lists detector names in registration order.
func (r *Registry) Names() []string {
	all := r.All()
	names := make([]string, len(all))
	for i, d := range all {
		names[i] = d.Name()
	}
	return names
}
