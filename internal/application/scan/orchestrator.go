package scan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/khanhnv2901/pagesentry/internal/detector"
	"github.com/khanhnv2901/pagesentry/internal/domain/finding"
	"github.com/khanhnv2901/pagesentry/internal/page"
	sharedErrors "github.com/khanhnv2901/pagesentry/internal/shared/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultDetectorTimeout bounds a single detector run.
	DefaultDetectorTimeout = 5 * time.Second
	// DefaultMaxParallel caps concurrent detectors in parallel mode.
	DefaultMaxParallel = 4
)

// OrchestratorConfig tunes how detectors are run
type OrchestratorConfig struct {
	DetectorTimeout time.Duration
	Parallel        bool
	MaxParallel     int
}

// Failure records a detector that produced no findings because it failed
type Failure struct {
	Detector string
	Err      error
}

// Outcome is the merged result of one orchestration pass
type Outcome struct {
	Findings []finding.Finding
	Failures []Failure
}

// Orchestrator runs every registered detector against a snapshot
type Orchestrator struct {
	registry *detector.Registry
	cfg      OrchestratorConfig
	log      *zap.Logger
}

// NewOrchestrator creates a new scan orchestrator
func NewOrchestrator(registry *detector.Registry, cfg OrchestratorConfig, logger *zap.Logger) *Orchestrator {
	if cfg.DetectorTimeout <= 0 {
		cfg.DetectorTimeout = DefaultDetectorTimeout
	}
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = DefaultMaxParallel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		registry: registry,
		cfg:      cfg,
		log:      logger.Named("orchestrator"),
	}
}

// RunAll returns the findings of every detector that succeeded
func (o *Orchestrator) RunAll(ctx context.Context, snap *page.Snapshot) []finding.Finding {
	return o.Run(ctx, snap).Findings
}

// Run executes the registry's detectors and merges their findings in
// registration order. Failing detectors are logged and contribute nothing.
func (o *Orchestrator) Run(ctx context.Context, snap *page.Snapshot) Outcome {
	detectors := o.registry.All()
	slots := make([]slot, len(detectors))

	if o.cfg.Parallel && len(detectors) > 1 {
		var g errgroup.Group
		g.SetLimit(o.cfg.MaxParallel)
		for i, d := range detectors {
			g.Go(func() error {
				slots[i] = o.runDetector(ctx, d, snap)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i, d := range detectors {
			slots[i] = o.runDetector(ctx, d, snap)
		}
	}

	var out Outcome
	for i, s := range slots {
		if s.err != nil {
			name := detectors[i].Name()
			o.log.Warn("Detector failed",
				zap.String("detector", name),
				zap.String("url", snap.Href()),
				zap.Error(s.err))
			out.Failures = append(out.Failures, Failure{Detector: name, Err: s.err})
			continue
		}
		out.Findings = append(out.Findings, s.findings...)
	}

	o.log.Debug("Scan pass complete",
		zap.String("url", snap.Href()),
		zap.Int("detectors", len(detectors)),
		zap.Int("findings", len(out.Findings)),
		zap.Int("failures", len(out.Failures)))
	return out
}

type slot struct {
	findings []finding.Finding
	err      error
}

// runDetector runs d under its own timeout. A detector that ignores its
// context is abandoned once the timeout passes.
func (o *Orchestrator) runDetector(ctx context.Context, d detector.Detector, snap *page.Snapshot) slot {
	runCtx, cancel := context.WithTimeout(ctx, o.cfg.DetectorTimeout)
	defer cancel()

	done := make(chan slot, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- slot{err: fmt.Errorf("%w: %v", sharedErrors.ErrDetectorPanic, r)}
			}
		}()
		findings, err := d.Scan(runCtx, snap)
		done <- slot{findings: findings, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil && errors.Is(res.err, context.DeadlineExceeded) && ctx.Err() == nil {
			res.err = fmt.Errorf("%w after %s", sharedErrors.ErrDetectorTimeout, o.cfg.DetectorTimeout)
		}
		return res
	case <-runCtx.Done():
		if ctx.Err() != nil {
			return slot{err: ctx.Err()}
		}
		return slot{err: fmt.Errorf("%w after %s", sharedErrors.ErrDetectorTimeout, o.cfg.DetectorTimeout)}
	}
}
