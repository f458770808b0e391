package scan

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/khanhnv2901/pagesentry/internal/domain/ratelimit"
	"github.com/khanhnv2901/pagesentry/internal/domain/scan"
	"github.com/khanhnv2901/pagesentry/internal/page"
	"github.com/khanhnv2901/pagesentry/internal/risk"
	sharedErrors "github.com/khanhnv2901/pagesentry/internal/shared/errors"
	"go.uber.org/zap"
)

// Result is what a caller sees after submitting a page: either a stored scan
// or an admission denial with the session's rate status.
type Result struct {
	Scan     *scan.Scan
	Admitted bool
	Status   ratelimit.Status
	Failures []Failure
}

// Service runs the detection, aggregation and admission pipeline
type Service struct {
	orchestrator *Orchestrator
	repo         scan.Repository
	limiter      ratelimit.Limiter
	log          *zap.Logger
	now          func() time.Time

	// admission serializes status, save and record so a session never
	// persists more than ratelimit.Limit scans per window
	admission sync.Mutex
}

// ServiceOption configures a Service
type ServiceOption func(*Service)

// WithClock replaces the wall clock used to stamp scans
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a new scan service
func NewService(
	orchestrator *Orchestrator,
	repo scan.Repository,
	limiter ratelimit.Limiter,
	logger *zap.Logger,
	opts ...ServiceOption,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		orchestrator: orchestrator,
		repo:         repo,
		limiter:      limiter,
		log:          logger.Named("scan_service"),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit scans the page and stores the result if the session is admitted.
// A denial is a normal Result with Admitted false; only invalid input and
// store failures return an error.
func (s *Service) Submit(ctx context.Context, sessionID string, in page.Input) (*Result, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, sharedErrors.ErrEmptySessionID
	}

	status, err := s.limiter.Status(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to check rate limit: %w", err)
	}
	if !status.Allowed {
		s.log.Info("Scan denied by rate limit",
			zap.String("session_id", sessionID),
			zap.Time("reset_at", status.ResetAt))
		return &Result{Admitted: false, Status: status}, nil
	}

	snap, err := page.Parse(in)
	if err != nil {
		return nil, err
	}

	outcome := s.orchestrator.Run(ctx, snap)
	assessment := risk.Assess(outcome.Findings)

	s.admission.Lock()
	defer s.admission.Unlock()

	// another submission may have used the last slot while detectors ran
	status, err = s.limiter.Status(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to check rate limit: %w", err)
	}
	if !status.Allowed {
		return &Result{Admitted: false, Status: status, Failures: outcome.Failures}, nil
	}

	record, err := scan.New(sessionID, snap.Href(), outcome.Findings, assessment.Counts, assessment.Score, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to create scan: %w", err)
	}
	if err := s.repo.Save(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save scan: %w", err)
	}
	status, err = s.limiter.Record(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to record scan: %w", err)
	}

	s.log.Info("Scan stored",
		zap.String("session_id", sessionID),
		zap.String("scan_id", record.ID()),
		zap.String("url", record.URL()),
		zap.Int("risk_score", record.RiskScore()),
		zap.Int("findings", record.FindingCount()),
		zap.Int("failures", len(outcome.Failures)))

	return &Result{
		Scan:     record,
		Admitted: true,
		Status:   status,
		Failures: outcome.Failures,
	}, nil
}

// Current returns the session's live scan of url, or nil when there is none.
// url is matched in canonical form, as Submit stores it.
func (s *Service) Current(ctx context.Context, sessionID, url string) (*scan.Scan, error) {
	canonical, err := page.CanonicalURL(url)
	if err != nil {
		return nil, err
	}
	current, err := s.repo.GetCurrent(ctx, strings.TrimSpace(sessionID), canonical)
	if err != nil {
		return nil, fmt.Errorf("failed to get current scan: %w", err)
	}
	return current, nil
}

// Get retrieves a live scan by ID
func (s *Service) Get(ctx context.Context, sessionID, id string) (*scan.Scan, error) {
	found, err := s.repo.FindByID(ctx, strings.TrimSpace(sessionID), strings.TrimSpace(id))
	if err != nil {
		return nil, fmt.Errorf("failed to get scan: %w", err)
	}
	return found, nil
}

// List returns the session's live scans
func (s *Service) List(ctx context.Context, sessionID string) ([]*scan.Scan, error) {
	scans, err := s.repo.ListValid(ctx, strings.TrimSpace(sessionID))
	if err != nil {
		return nil, fmt.Errorf("failed to list scans: %w", err)
	}
	return scans, nil
}

// Stats summarizes the session's live scans
func (s *Service) Stats(ctx context.Context, sessionID string) (scan.Stats, error) {
	stats, err := s.repo.Stats(ctx, strings.TrimSpace(sessionID))
	if err != nil {
		return scan.Stats{}, fmt.Errorf("failed to get stats: %w", err)
	}
	return stats, nil
}

// RateStatus reports the session's admission status
func (s *Service) RateStatus(ctx context.Context, sessionID string) (ratelimit.Status, error) {
	status, err := s.limiter.Status(ctx, strings.TrimSpace(sessionID))
	if err != nil {
		return ratelimit.Status{}, fmt.Errorf("failed to check rate limit: %w", err)
	}
	return status, nil
}

// Clear drops the session's scans and, when resetWindow is set, its rate window
func (s *Service) Clear(ctx context.Context, sessionID string, resetWindow bool) error {
	sessionID = strings.TrimSpace(sessionID)
	s.admission.Lock()
	defer s.admission.Unlock()

	if err := s.repo.Clear(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to clear scans: %w", err)
	}
	if resetWindow {
		if err := s.limiter.Reset(ctx, sessionID); err != nil {
			return fmt.Errorf("failed to reset rate limit: %w", err)
		}
	}
	return nil
}

// Sweep removes every expired scan
func (s *Service) Sweep(ctx context.Context) (int, error) {
	removed, err := s.repo.SweepExpired(ctx)
	if err != nil {
		return removed, fmt.Errorf("failed to sweep expired scans: %w", err)
	}
	return removed, nil
}
