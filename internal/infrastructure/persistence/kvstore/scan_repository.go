package kvstore

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/khanhnv2901/pagesentry/internal/domain/finding"
	"github.com/khanhnv2901/pagesentry/internal/domain/scan"
	"github.com/khanhnv2901/pagesentry/internal/infrastructure/kv"
	"github.com/khanhnv2901/pagesentry/internal/page"
	sharedErrors "github.com/khanhnv2901/pagesentry/internal/shared/errors"
	"go.uber.org/zap"
)

const scanKeyPrefix = "scans:"

// DefaultSweepInterval is how often RunSweeper purges expired scans.
const DefaultSweepInterval = 10 * time.Minute

// scanDTO is the data transfer object for scan persistence
type scanDTO struct {
	ID        string            `json:"id"`
	SessionID string            `json:"sessionId"`
	URL       string            `json:"url"`
	ScannedAt int64             `json:"scannedAt"`
	ExpiresAt int64             `json:"expiresAt"`
	Findings  []finding.Finding `json:"findings"`
	Counts    countsDTO         `json:"counts"`
	RiskScore int               `json:"riskScore"`
}

type countsDTO struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
	Total    int `json:"total"`
}

var _ scan.Repository = (*ScanRepository)(nil)

// ScanRepository implements scan.Repository over a kv.Store
type ScanRepository struct {
	store kv.Store
	log   *zap.Logger
	now   func() time.Time
	mu    sync.Mutex
}

// NewScanRepository creates a repository persisting to store
func NewScanRepository(store kv.Store, logger *zap.Logger, opts ...Option) *ScanRepository {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScanRepository{
		store: store,
		log:   logger.Named("scan_repository"),
		now:   o.now,
	}
}

// Save persists a scan after evicting the session's expired scans and any
// earlier scan of the same page
func (r *ScanRepository) Save(ctx context.Context, s *scan.Scan) error {
	if s == nil {
		return sharedErrors.ErrInvalidInput
	}
	if s.SessionID() == "" {
		return sharedErrors.ErrEmptySessionID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, err := r.load(ctx, s.SessionID())
	if err != nil {
		return err
	}

	now := r.now()
	kept := make([]*scan.Scan, 0, len(existing)+1)
	for _, e := range existing {
		if e.IsExpired(now) || s.Supersedes(e) {
			continue
		}
		kept = append(kept, e)
	}
	kept = append(kept, s)

	return r.persist(ctx, s.SessionID(), kept)
}

// GetCurrent returns the latest live scan of url, or nil when there is none.
// Expired scans of the session are purged as a side effect.
func (r *ScanRepository) GetCurrent(ctx context.Context, sessionID, url string) (*scan.Scan, error) {
	if sessionID == "" {
		return nil, sharedErrors.ErrEmptySessionID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if canonical, err := page.CanonicalURL(url); err == nil {
		url = canonical
	}

	live, err := r.sweepSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	for i := len(live) - 1; i >= 0; i-- {
		if live[i].URL() == url {
			return live[i], nil
		}
	}
	return nil, nil
}

// FindByID retrieves a live scan of the session by ID
func (r *ScanRepository) FindByID(ctx context.Context, sessionID, id string) (*scan.Scan, error) {
	if sessionID == "" {
		return nil, sharedErrors.ErrEmptySessionID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	live, err := r.sweepSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	for _, s := range live {
		if s.ID() == id {
			return s, nil
		}
	}
	return nil, sharedErrors.ErrScanNotFound
}

// ListValid returns the session's live scans in save order
func (r *ScanRepository) ListValid(ctx context.Context, sessionID string) ([]*scan.Scan, error) {
	if sessionID == "" {
		return nil, sharedErrors.ErrEmptySessionID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.sweepSession(ctx, sessionID)
}

// SweepExpired removes expired scans from every session
func (r *ScanRepository) SweepExpired(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys, err := r.store.Keys(ctx, scanKeyPrefix)
	if err != nil {
		return 0, repoErr("list sessions", err)
	}

	now := r.now()
	removed := 0
	for _, key := range keys {
		sessionID := strings.TrimPrefix(key, scanKeyPrefix)
		scans, err := r.load(ctx, sessionID)
		if err != nil {
			return removed, err
		}
		live := liveScans(scans, now)
		if len(live) == len(scans) {
			continue
		}
		if err := r.persist(ctx, sessionID, live); err != nil {
			return removed, err
		}
		removed += len(scans) - len(live)
	}
	return removed, nil
}

// Clear removes every scan of the session
func (r *ScanRepository) Clear(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return sharedErrors.ErrEmptySessionID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.store.Delete(ctx, scanKey(sessionID)); err != nil {
		return repoErr("clear scans", err)
	}
	return nil
}

// Stats summarizes the session's live scans
func (r *ScanRepository) Stats(ctx context.Context, sessionID string) (scan.Stats, error) {
	live, err := r.ListValid(ctx, sessionID)
	if err != nil {
		return scan.Stats{}, err
	}
	return summarize(live), nil
}

// RunSweeper calls SweepExpired every interval until ctx is cancelled.
func (r *ScanRepository) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := r.SweepExpired(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				r.log.Error("Failed to sweep expired scans", zap.Error(err))
				continue
			}
			if removed > 0 {
				r.log.Info("Swept expired scans", zap.Int("removed", removed))
			}
		}
	}
}

// sweepSession loads the session's scans and drops the expired ones from storage.
func (r *ScanRepository) sweepSession(ctx context.Context, sessionID string) ([]*scan.Scan, error) {
	scans, err := r.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	live := liveScans(scans, r.now())
	if len(live) != len(scans) {
		if err := r.persist(ctx, sessionID, live); err != nil {
			return nil, err
		}
	}
	return live, nil
}

func (r *ScanRepository) load(ctx context.Context, sessionID string) ([]*scan.Scan, error) {
	data, err := r.store.Get(ctx, scanKey(sessionID))
	if err != nil {
		if errors.Is(err, sharedErrors.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, repoErr("load scans", err)
	}

	var dtos []scanDTO
	if err := decode(data, &dtos); err != nil {
		return nil, repoErr("decode scans", err)
	}

	scans := make([]*scan.Scan, 0, len(dtos))
	for _, dto := range dtos {
		scans = append(scans, fromDTO(dto))
	}
	return scans, nil
}

func (r *ScanRepository) persist(ctx context.Context, sessionID string, scans []*scan.Scan) error {
	if len(scans) == 0 {
		if err := r.store.Delete(ctx, scanKey(sessionID)); err != nil {
			return repoErr("delete scans", err)
		}
		return nil
	}

	dtos := make([]scanDTO, 0, len(scans))
	for _, s := range scans {
		dtos = append(dtos, toDTO(s))
	}
	data, err := encode(dtos)
	if err != nil {
		return repoErr("encode scans", err)
	}
	if err := r.store.Set(ctx, scanKey(sessionID), data); err != nil {
		return repoErr("save scans", err)
	}
	return nil
}

func scanKey(sessionID string) string { return scanKeyPrefix + sessionID }

func liveScans(scans []*scan.Scan, now time.Time) []*scan.Scan {
	live := make([]*scan.Scan, 0, len(scans))
	for _, s := range scans {
		if !s.IsExpired(now) {
			live = append(live, s)
		}
	}
	return live
}

func summarize(scans []*scan.Scan) scan.Stats {
	stats := scan.Stats{TotalScans: len(scans)}
	if len(scans) == 0 {
		return stats
	}
	scoreSum := 0
	for _, s := range scans {
		stats.TotalVulnerabilities += s.Counts().Total
		scoreSum += s.RiskScore()
	}
	stats.AverageRiskScore = int(math.Round(float64(scoreSum) / float64(len(scans))))
	return stats
}

func toDTO(s *scan.Scan) scanDTO {
	c := s.Counts()
	return scanDTO{
		ID:        s.ID(),
		SessionID: s.SessionID(),
		URL:       s.URL(),
		ScannedAt: toMillis(s.ScannedAt()),
		ExpiresAt: toMillis(s.ExpiresAt()),
		Findings:  s.Findings(),
		Counts: countsDTO{
			Critical: c.Critical,
			High:     c.High,
			Medium:   c.Medium,
			Low:      c.Low,
			Total:    c.Total,
		},
		RiskScore: s.RiskScore(),
	}
}

func fromDTO(dto scanDTO) *scan.Scan {
	return scan.Reconstruct(
		dto.ID,
		dto.SessionID,
		dto.URL,
		fromMillis(dto.ScannedAt),
		fromMillis(dto.ExpiresAt),
		dto.Findings,
		scan.SeverityCounts{
			Critical: dto.Counts.Critical,
			High:     dto.Counts.High,
			Medium:   dto.Counts.Medium,
			Low:      dto.Counts.Low,
			Total:    dto.Counts.Total,
		},
		dto.RiskScore,
	)
}
