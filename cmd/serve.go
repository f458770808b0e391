package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/khanhnv2901/pagesentry/internal/api"
	scanapp "github.com/khanhnv2901/pagesentry/internal/application/scan"
	"github.com/khanhnv2901/pagesentry/internal/capture"
	"github.com/khanhnv2901/pagesentry/internal/infrastructure/kv"
	"github.com/khanhnv2901/pagesentry/internal/page"
	consts "github.com/khanhnv2901/pagesentry/internal/shared/constants"
	sharedErrors "github.com/khanhnv2901/pagesentry/internal/shared/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type serveOptions struct {
	AuthToken   string
	CORSOrigins []string
	RateLimit   int
	RateBurst   int
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run pagesentry as a REST API service",
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		addr, _ := cmd.Flags().GetString("addr")
		authToken, _ := cmd.Flags().GetString("auth-token")
		shutdownTimeout, _ := cmd.Flags().GetDuration("shutdown-timeout")
		corsOrigins, _ := cmd.Flags().GetStringSlice("cors-origins")
		rateLimit, _ := cmd.Flags().GetInt("rate-limit")
		rateBurst, _ := cmd.Flags().GetInt("rate-burst")

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		server, jobManager := newAPIServer(ctx, appCtx, serveOptions{
			AuthToken:   authToken,
			CORSOrigins: corsOrigins,
			RateLimit:   rateLimit,
			RateBurst:   rateBurst,
		})
		defer server.Close()
		defer jobManager.Close()

		go appCtx.Services.ScanRepo.RunSweeper(ctx, appCtx.Config.Sweep.Interval)

		httpServer := &http.Server{
			Addr:         addr,
			Handler:      server,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 2 * time.Minute,
			IdleTimeout:  120 * time.Second,
		}

		// Channel to listen for errors from the server
		serverErrors := make(chan error, 1)

		go func() {
			fmt.Printf("%s API server listening on %s (session store: %s)\n", colorInfo("→"), addr, appCtx.Config.Store.Backend)
			fmt.Printf("%s Press Ctrl+C to gracefully shutdown\n", colorInfo("→"))
			serverErrors <- httpServer.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(shutdown)

		select {
		case err := <-serverErrors:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
		case sig := <-shutdown:
			fmt.Printf("\n%s Received signal %v, initiating graceful shutdown...\n", colorInfo("→"), sig)

			shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancelShutdown()

			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				// Force close if graceful shutdown fails
				if closeErr := httpServer.Close(); closeErr != nil {
					return fmt.Errorf("failed to gracefully shutdown server: %w (close error: %v)", err, closeErr)
				}
				return fmt.Errorf("failed to gracefully shutdown server: %w", err)
			}

			fmt.Printf("%s Server shutdown complete\n", colorInfo("✓"))
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().String("addr", "127.0.0.1:8080", "Address for the API server")
	serveCmd.Flags().String("auth-token", "", "Optional shared secret for API requests")
	serveCmd.Flags().Duration("shutdown-timeout", 30*time.Second, "Graceful shutdown timeout")
	serveCmd.Flags().StringSlice("cors-origins", []string{}, "Allowed CORS origins (empty = allow all)")
	serveCmd.Flags().Int("rate-limit", 10, "Rate limit per IP (requests/second, 0 = disabled)")
	serveCmd.Flags().Int("rate-burst", 20, "Rate limit burst size")
	rootCmd.AddCommand(serveCmd)
}

// newAPIServer wires the API over the command's services. Jobs started
// through the server stop when ctx is cancelled.
func newAPIServer(ctx context.Context, appCtx *AppContext, opts serveOptions) (*api.Server, *api.JobManager) {
	log := appCtx.Logger.Desugar().Named("api")
	jobManager := api.NewJobManager()

	server := api.NewServer(api.Config{
		Scans:  appCtx.Services.ScanService,
		Health: &healthAPIService{store: appCtx.Services.Store},
		Jobs: &jobAPIService{
			ctx:      ctx,
			manager:  jobManager,
			capturer: newCapturer(capture.DefaultOptions(), appCtx),
			scans:    appCtx.Services.ScanService,
			log:      log.Named("jobs"),
		},
		AuthToken:   opts.AuthToken,
		Logger:      log,
		CORSOrigins: opts.CORSOrigins,
		RateLimit:   opts.RateLimit,
		RateBurst:   opts.RateBurst,
	})
	return server, jobManager
}

type healthAPIService struct {
	store kv.Store
}

func (s *healthAPIService) Check(ctx context.Context) error {
	if s.store == nil {
		return fmt.Errorf("store not configured")
	}
	return nil
}

func (s *healthAPIService) Ready(ctx context.Context) error {
	if err := s.Check(ctx); err != nil {
		return err
	}
	return s.store.Ping(ctx)
}

// pageScanner is the part of the scan service a job needs
type pageScanner interface {
	Submit(ctx context.Context, sessionID string, in page.Input) (*scanapp.Result, error)
}

type jobAPIService struct {
	ctx      context.Context
	manager  *api.JobManager
	capturer capture.Capturer
	scans    pageScanner
	log      *zap.Logger
}

func (s *jobAPIService) StartJob(ctx context.Context, req api.JobRequest) (*api.Job, error) {
	req.SessionID = strings.TrimSpace(req.SessionID)
	if req.SessionID == "" {
		return nil, sharedErrors.ErrEmptySessionID
	}
	target, err := capture.ValidateURL(req.URL)
	if err != nil {
		return nil, err
	}
	req.URL = target

	job := s.manager.CreateJob("scan", req)
	go s.execute(job.ID, req)
	return job, nil
}

func (s *jobAPIService) execute(jobID string, req api.JobRequest) {
	now := time.Now()
	s.manager.UpdateJob(jobID, func(j *api.Job) {
		j.Status = api.JobRunning
		j.StartedAt = &now
	})

	ctx, cancel := context.WithTimeout(s.ctx, consts.CaptureJobTimeout)
	defer cancel()

	result, err := s.run(ctx, req)
	finished := time.Now()
	if err != nil {
		s.log.Warn("Scan job failed", zap.String("job_id", jobID), zap.String("url", req.URL), zap.Error(err))
		s.manager.UpdateJob(jobID, func(j *api.Job) {
			j.Status = api.JobError
			j.Error = err.Error()
			j.FinishedAt = &finished
		})
		return
	}

	s.manager.UpdateJob(jobID, func(j *api.Job) {
		j.FinishedAt = &finished
		if !result.Admitted {
			resetAt := result.Status.ResetAt
			j.Status = api.JobDenied
			j.ResetAt = &resetAt
			return
		}
		score := result.Scan.RiskScore()
		j.Status = api.JobDone
		j.ScanID = result.Scan.ID()
		j.RiskScore = &score
	})
}

func (s *jobAPIService) run(ctx context.Context, req api.JobRequest) (*scanapp.Result, error) {
	input, err := s.capturer.Capture(ctx, req.URL)
	if err != nil {
		return nil, err
	}
	return s.scans.Submit(ctx, req.SessionID, input)
}

func (s *jobAPIService) GetJob(ctx context.Context, id string) (*api.Job, error) {
	job := s.manager.GetJob(id)
	if job == nil {
		return nil, fmt.Errorf("job not found")
	}
	return job, nil
}

func (s *jobAPIService) ListJobs(ctx context.Context, limit int) ([]api.Job, error) {
	return s.manager.ListJobs(limit), nil
}

func (s *jobAPIService) Subscribe() (chan api.Job, func()) {
	return s.manager.Subscribe()
}
