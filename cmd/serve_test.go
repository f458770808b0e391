package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/khanhnv2901/pagesentry/internal/api"
	scanapp "github.com/khanhnv2901/pagesentry/internal/application/scan"
	"github.com/khanhnv2901/pagesentry/internal/domain/ratelimit"
	"github.com/khanhnv2901/pagesentry/internal/page"
	sharedErrors "github.com/khanhnv2901/pagesentry/internal/shared/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestAPI(t *testing.T, capturer *fakeCapturer) (*AppContext, http.Handler) {
	t.Helper()
	appCtx, _ := setupTestAppContext(t)
	useCapturer(t, capturer)

	ctx, cancel := context.WithCancel(context.Background())
	server, jobs := newAPIServer(ctx, appCtx, serveOptions{})
	t.Cleanup(func() {
		cancel()
		server.Close()
		jobs.Close()
	})
	return appCtx, server
}

func serveJSON(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func waitForJob(t *testing.T, h http.Handler, id string) api.Job {
	t.Helper()
	var job api.Job
	require.Eventually(t, func() bool {
		rec := serveJSON(t, h, http.MethodGet, "/api/v1/jobs/"+id, nil)
		if rec.Code != http.StatusOK {
			return false
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &job); err != nil {
			return false
		}
		return job.IsFinished()
	}, 5*time.Second, 10*time.Millisecond)
	return job
}

func TestServeHealthAndReady(t *testing.T) {
	_, h := newTestAPI(t, &fakeCapturer{})

	assert.Equal(t, http.StatusOK, serveJSON(t, h, http.MethodGet, "/api/v1/health", nil).Code)
	assert.Equal(t, http.StatusOK, serveJSON(t, h, http.MethodGet, "/api/ready", nil).Code)
}

func TestServeScanEndpointsUseSessionServices(t *testing.T) {
	appCtx, h := newTestAPI(t, &fakeCapturer{})

	rec := serveJSON(t, h, http.MethodPost, "/api/v1/scans", api.ScanRequest{
		SessionID: appCtx.SessionID,
		URL:       "http://example.com/login",
		HTML:      insecurePage,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var submitted api.ScanSubmitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &submitted))
	assert.Equal(t, 9, submitted.RateLimit.Remaining)

	stored, err := appCtx.Services.ScanService.Get(context.Background(), appCtx.SessionID, submitted.Scan.ID)
	require.NoError(t, err)
	assert.Equal(t, submitted.Scan.RiskScore, stored.RiskScore())
}

func TestServeScanJobCompletes(t *testing.T) {
	capturer := &fakeCapturer{input: page.Input{URL: "http://example.com/login", HTML: insecurePage}}
	appCtx, h := newTestAPI(t, capturer)

	rec := serveJSON(t, h, http.MethodPost, "/api/v1/jobs", api.JobRequest{
		SessionID: appCtx.SessionID,
		URL:       "http://example.com/login",
	})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var started api.Job
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &started))
	assert.Equal(t, "scan", started.Type)

	job := waitForJob(t, h, started.ID)
	require.Equal(t, api.JobDone, job.Status, job.Error)
	require.NotNil(t, job.RiskScore)
	assert.NotEmpty(t, job.ScanID)

	stored, err := appCtx.Services.ScanService.Get(context.Background(), appCtx.SessionID, job.ScanID)
	require.NoError(t, err)
	assert.Equal(t, *job.RiskScore, stored.RiskScore())
}

func TestServeScanJobCaptureFailure(t *testing.T) {
	appCtx, h := newTestAPI(t, &fakeCapturer{err: errors.New("navigation timed out")})

	rec := serveJSON(t, h, http.MethodPost, "/api/v1/jobs", api.JobRequest{
		SessionID: appCtx.SessionID,
		URL:       "https://example.com/",
	})
	require.Equal(t, http.StatusAccepted, rec.Code)

	var started api.Job
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &started))

	job := waitForJob(t, h, started.ID)
	assert.Equal(t, api.JobError, job.Status)
	assert.Contains(t, job.Error, "navigation timed out")
}

func TestJobServiceStartJobValidation(t *testing.T) {
	svc := &jobAPIService{
		ctx:      context.Background(),
		manager:  api.NewJobManager(),
		capturer: &fakeCapturer{},
		log:      zap.NewNop(),
	}
	t.Cleanup(svc.manager.Close)

	_, err := svc.StartJob(context.Background(), api.JobRequest{SessionID: "  ", URL: "https://example.com/"})
	assert.ErrorIs(t, err, sharedErrors.ErrEmptySessionID)

	_, err = svc.StartJob(context.Background(), api.JobRequest{SessionID: "s1", URL: "ftp://example.com/"})
	assert.ErrorIs(t, err, sharedErrors.ErrInvalidInput)

	_, err = svc.StartJob(context.Background(), api.JobRequest{SessionID: "s1", URL: "relative/path"})
	assert.ErrorIs(t, err, sharedErrors.ErrInvalidInput)

	assert.Empty(t, svc.manager.ListJobs(10))
}

type deniedScanner struct {
	resetAt time.Time
}

func (d deniedScanner) Submit(context.Context, string, page.Input) (*scanapp.Result, error) {
	return &scanapp.Result{Status: ratelimit.Status{ResetAt: d.resetAt}}, nil
}

func TestJobServiceRecordsDenial(t *testing.T) {
	resetAt := time.Now().Add(20 * time.Minute).UTC().Truncate(time.Second)
	svc := &jobAPIService{
		ctx:      context.Background(),
		manager:  api.NewJobManager(),
		capturer: &fakeCapturer{input: page.Input{URL: "https://example.com/"}},
		scans:    deniedScanner{resetAt: resetAt},
		log:      zap.NewNop(),
	}
	t.Cleanup(svc.manager.Close)

	job := svc.manager.CreateJob("scan", api.JobRequest{SessionID: "s1", URL: "https://example.com/"})
	svc.execute(job.ID, api.JobRequest{SessionID: "s1", URL: "https://example.com/"})

	got := svc.manager.GetJob(job.ID)
	require.NotNil(t, got)
	assert.Equal(t, api.JobDenied, got.Status)
	require.NotNil(t, got.ResetAt)
	assert.True(t, resetAt.Equal(*got.ResetAt))
	assert.Empty(t, got.ScanID)
}

func TestHealthAPIServiceWithoutStore(t *testing.T) {
	svc := &healthAPIService{}
	assert.Error(t, svc.Check(context.Background()))
	assert.Error(t, svc.Ready(context.Background()))
}
