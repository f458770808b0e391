package scan

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/khanhnv2901/pagesentry/internal/detector"
	"github.com/khanhnv2901/pagesentry/internal/domain/finding"
	"github.com/khanhnv2901/pagesentry/internal/domain/ratelimit"
	"github.com/khanhnv2901/pagesentry/internal/domain/scan"
	"github.com/khanhnv2901/pagesentry/internal/infrastructure/kv"
	"github.com/khanhnv2901/pagesentry/internal/infrastructure/persistence/kvstore"
	"github.com/khanhnv2901/pagesentry/internal/page"
	sharedErrors "github.com/khanhnv2901/pagesentry/internal/shared/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	svc     *Service
	repo    *kvstore.ScanRepository
	limiter *kvstore.RateLimiter
	clock   *testClock
}

func newFixture(t *testing.T, repoOverride scan.Repository, ds ...detector.Detector) fixture {
	t.Helper()
	clock := &testClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	store := kv.NewMemory()
	logger := zaptest.NewLogger(t)

	repo := kvstore.NewScanRepository(store, logger, kvstore.WithClock(clock.Now))
	limiter := kvstore.NewRateLimiter(store, kvstore.WithClock(clock.Now))
	var r scan.Repository = repo
	if repoOverride != nil {
		r = repoOverride
	}

	orchestrator := NewOrchestrator(detector.NewRegistry(ds...), OrchestratorConfig{}, logger)
	svc := NewService(orchestrator, r, limiter, logger, WithClock(clock.Now))
	return fixture{svc: svc, repo: repo, limiter: limiter, clock: clock}
}

func typed(name string, ids ...finding.TypeID) detector.Detector {
	return detector.Func{ID: name, Fn: func(context.Context, *page.Snapshot) ([]finding.Finding, error) {
		out := make([]finding.Finding, 0, len(ids))
		for _, id := range ids {
			out = append(out, finding.New(id, string(id), name))
		}
		return out, nil
	}}
}

func TestSubmitStoresScoredScan(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil,
		typed("keys", finding.TypeAPIKeyExposure, finding.TypeSQLInjection),
		failing("broken", errors.New("boom")),
		typed("xss", finding.TypeXSSIndicators),
	)

	res, err := f.svc.Submit(ctx, "guest_1", page.Input{URL: "https://example.com/"})
	require.NoError(t, err)
	require.True(t, res.Admitted)
	require.NotNil(t, res.Scan)

	assert.Equal(t, 65, res.Scan.RiskScore())
	assert.Equal(t, scan.SeverityCounts{Critical: 2, High: 1, Total: 3}, res.Scan.Counts())
	assert.True(t, res.Scan.ExpiresAt().Equal(f.clock.Now().Add(scan.Retention)))
	assert.Equal(t, 1, res.Status.ScanCount)
	assert.Equal(t, ratelimit.Limit-1, res.Status.Remaining)
	require.Len(t, res.Failures, 1)

	current, err := f.svc.Current(ctx, "guest_1", "https://example.com/")
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, res.Scan.ID(), current.ID())

	byID, err := f.svc.Get(ctx, "guest_1", res.Scan.ID())
	require.NoError(t, err)
	assert.Equal(t, res.Scan.URL(), byID.URL())
}

func TestCurrentMatchesNonCanonicalURL(t *testing.T) {
	tests := []struct {
		submitted string
		stored    string
	}{
		{submitted: "HTTPS://Example.com/", stored: "https://example.com/"},
		{submitted: "https://example.com/a b", stored: "https://example.com/a%20b"},
		{submitted: "  https://example.com/x ", stored: "https://example.com/x"},
		{submitted: "https://example.com", stored: "https://example.com/"},
	}
	for _, tt := range tests {
		t.Run(tt.submitted, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t, nil, typed("xss", finding.TypeXSSIndicators))

			res, err := f.svc.Submit(ctx, "s", page.Input{URL: tt.submitted})
			require.NoError(t, err)
			require.True(t, res.Admitted)
			assert.Equal(t, tt.stored, res.Scan.URL())

			for _, lookup := range []string{tt.submitted, tt.stored} {
				current, err := f.svc.Current(ctx, "s", lookup)
				require.NoError(t, err)
				require.NotNil(t, current, "lookup %q", lookup)
				assert.Equal(t, res.Scan.ID(), current.ID())
			}
		})
	}
}

func TestCurrentRejectsUnusableURL(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.svc.Current(context.Background(), "s", "/relative")
	assert.ErrorIs(t, err, sharedErrors.ErrInvalidSnapshot)
}

func TestSessionIDTrimmedEverywhere(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, typed("xss", finding.TypeXSSIndicators))

	res, err := f.svc.Submit(ctx, " s ", page.Input{URL: "https://example.com/"})
	require.NoError(t, err)
	require.True(t, res.Admitted)
	assert.Equal(t, "s", res.Scan.SessionID())

	status, err := f.svc.RateStatus(ctx, " s ")
	require.NoError(t, err)
	assert.Equal(t, 1, status.ScanCount)

	current, err := f.svc.Current(ctx, " s ", "https://example.com/")
	require.NoError(t, err)
	require.NotNil(t, current)

	byID, err := f.svc.Get(ctx, "s\t", res.Scan.ID())
	require.NoError(t, err)
	assert.Equal(t, res.Scan.ID(), byID.ID())

	scans, err := f.svc.List(ctx, " s")
	require.NoError(t, err)
	assert.Len(t, scans, 1)

	stats, err := f.svc.Stats(ctx, "s ")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalScans)

	require.NoError(t, f.svc.Clear(ctx, " s ", true))
	status, err = f.svc.RateStatus(ctx, "s")
	require.NoError(t, err)
	assert.Zero(t, status.ScanCount)
	current, err = f.svc.Current(ctx, "s", "https://example.com/")
	require.NoError(t, err)
	assert.Nil(t, current)

	_, err = f.svc.RateStatus(ctx, "   ")
	assert.ErrorIs(t, err, sharedErrors.ErrEmptySessionID)
}

func TestSubmitEmptyPageScoresZero(t *testing.T) {
	f := newFixture(t, nil, typed("none"))

	res, err := f.svc.Submit(context.Background(), "s", page.Input{URL: "https://example.com/"})
	require.NoError(t, err)
	assert.Zero(t, res.Scan.RiskScore())
	assert.Equal(t, scan.SeverityCounts{}, res.Scan.Counts())
}

func TestSubmitDeniedAfterLimit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, typed("xss", finding.TypeXSSIndicators))

	for i := 0; i < ratelimit.Limit; i++ {
		res, err := f.svc.Submit(ctx, "s", page.Input{URL: fmt.Sprintf("https://example.com/%d", i)})
		require.NoError(t, err)
		require.True(t, res.Admitted, "submission %d", i)
	}

	for i := 0; i < 5; i++ {
		res, err := f.svc.Submit(ctx, "s", page.Input{URL: "https://example.com/denied"})
		require.NoError(t, err)
		assert.False(t, res.Admitted)
		assert.Nil(t, res.Scan)
		assert.False(t, res.Status.Allowed)
		assert.Equal(t, ratelimit.Limit, res.Status.ScanCount, "denied submissions are not recorded")
	}

	denied, err := f.svc.Current(ctx, "s", "https://example.com/denied")
	require.NoError(t, err)
	assert.Nil(t, denied)

	f.clock.Advance(ratelimit.Window)
	res, err := f.svc.Submit(ctx, "s", page.Input{URL: "https://example.com/denied"})
	require.NoError(t, err)
	assert.True(t, res.Admitted)
	assert.Equal(t, 1, res.Status.ScanCount)
}

func TestSubmitValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	_, err := f.svc.Submit(ctx, "  ", page.Input{URL: "https://example.com/"})
	assert.ErrorIs(t, err, sharedErrors.ErrEmptySessionID)

	_, err = f.svc.Submit(ctx, "s", page.Input{URL: "not a url"})
	assert.ErrorIs(t, err, sharedErrors.ErrInvalidSnapshot)

	status, err := f.svc.RateStatus(ctx, "s")
	require.NoError(t, err)
	assert.Zero(t, status.ScanCount)
}

type failingSaveRepo struct {
	scan.Repository
}

var errSave = errors.New("write failed")

func (failingSaveRepo) Save(context.Context, *scan.Scan) error { return errSave }

func TestSubmitStoreFailureIsNotRecorded(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, failingSaveRepo{}, typed("xss", finding.TypeXSSIndicators))

	_, err := f.svc.Submit(ctx, "s", page.Input{URL: "https://example.com/"})
	assert.ErrorIs(t, err, errSave)

	status, err := f.limiter.Status(ctx, "s")
	require.NoError(t, err)
	assert.Zero(t, status.ScanCount)
}

func TestConcurrentSubmitsRespectLimit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, typed("xss", finding.TypeXSSIndicators))

	var admitted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 3*ratelimit.Limit; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := f.svc.Submit(ctx, "s", page.Input{URL: fmt.Sprintf("https://example.com/%d", i)})
			if err != nil {
				t.Error(err)
				return
			}
			if res.Admitted {
				admitted.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(ratelimit.Limit), admitted.Load())
	status, err := f.limiter.Status(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, ratelimit.Limit, status.ScanCount)

	scans, err := f.svc.List(ctx, "s")
	require.NoError(t, err)
	assert.Len(t, scans, ratelimit.Limit)
}

func TestClearAndStats(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, typed("xss", finding.TypeXSSIndicators))

	for _, u := range []string{"https://a.test/", "https://b.test/"} {
		_, err := f.svc.Submit(ctx, "s", page.Input{URL: u})
		require.NoError(t, err)
	}

	stats, err := f.svc.Stats(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, scan.Stats{TotalScans: 2, TotalVulnerabilities: 2, AverageRiskScore: 15}, stats)

	require.NoError(t, f.svc.Clear(ctx, "s", false))
	stats, err = f.svc.Stats(ctx, "s")
	require.NoError(t, err)
	assert.Zero(t, stats.TotalScans)
	status, err := f.svc.RateStatus(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, 2, status.ScanCount, "clearing scans keeps the window")

	require.NoError(t, f.svc.Clear(ctx, "s", true))
	status, err = f.svc.RateStatus(ctx, "s")
	require.NoError(t, err)
	assert.Zero(t, status.ScanCount)
}

func TestSweep(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	_, err := f.svc.Submit(ctx, "s", page.Input{URL: "https://a.test/"})
	require.NoError(t, err)
	f.clock.Advance(scan.Retention)

	removed, err := f.svc.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}
