package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/khanhnv2901/pagesentry/internal/api"
	"github.com/khanhnv2901/pagesentry/internal/capture"
	"github.com/khanhnv2901/pagesentry/internal/domain/ratelimit"
	"github.com/khanhnv2901/pagesentry/internal/page"
	"github.com/spf13/cobra"
)

type scanParams struct {
	URL            string
	File           string
	Capture        bool
	CaptureTimeout time.Duration
	Cookies        string
	Framed         bool
	ParentOrigin   string
	JSON           bool
}

// capturer is swapped in tests
var newCapturer = func(opts capture.Options, appCtx *AppContext) capture.Capturer {
	return capture.NewBrowser(opts, appCtx.Logger.Desugar())
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan a page and record the result for this session",
	Long: `Run every detector against a page and store the scored result.

The page is read from --file (use - for stdin) or captured live with
--capture, which drives a headless Chrome instance. Each session may
record 10 scans per hour.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		params, err := scanParamsFromFlags(cmd)
		if err != nil {
			return err
		}
		if err := validateScanParams(params); err != nil {
			return err
		}

		ctx := cmd.Context()
		input, err := loadPageInput(ctx, cmd, appCtx, params)
		if err != nil {
			return err
		}

		start := time.Now()
		result, err := appCtx.Services.ScanService.Submit(ctx, appCtx.SessionID, input)
		if err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}

		if appCtx.Config.Telemetry {
			rec := newTelemetryRecord("scan", appCtx.SessionID, input.URL, result, time.Since(start))
			if err := recordTelemetry(appCtx, rec); err != nil {
				appCtx.Logger.Warnw("failed to record telemetry", "error", err)
			}
		}

		for _, f := range result.Failures {
			appCtx.Logger.Warnw("detector failed", "detector", f.Detector, "error", f.Err)
		}

		now := time.Now()
		out := cmd.OutOrStdout()
		if !result.Admitted {
			if params.JSON {
				resp := api.NewRateLimitResponse(result.Status)
				resp.TimeRemaining = ratelimit.FormatTimeRemaining(result.Status.ResetAt, now)
				if err := writeJSONOutput(out, resp); err != nil {
					return err
				}
			} else {
				printDenied(out, result.Status, now)
			}
			return &RateLimitedError{ResetAt: result.Status.ResetAt, Now: now}
		}

		if params.JSON {
			return writeJSONOutput(out, api.NewScanResponse(result.Scan))
		}
		printScan(out, result.Scan, now)
		fmt.Fprintf(out, "\n%s %d of %d scans left this hour\n", colorMuted("·"), result.Status.Remaining, ratelimit.Limit)
		return nil
	},
}

func init() {
	scanCmd.Flags().String("url", "", "URL of the page (required)")
	scanCmd.Flags().String("file", "", "read page HTML from a file (- for stdin)")
	scanCmd.Flags().Bool("capture", false, "load the page in headless Chrome")
	scanCmd.Flags().Duration("capture-timeout", capture.DefaultTimeout, "timeout for --capture")
	scanCmd.Flags().String("cookies", "", "document.cookie string, e.g. \"a=1; b=2\"")
	scanCmd.Flags().Bool("framed", false, "the page was loaded inside a frame")
	scanCmd.Flags().String("parent-origin", "", "origin of the framing document")
	scanCmd.Flags().Bool("json", false, "print the result as JSON")
}

func scanParamsFromFlags(cmd *cobra.Command) (scanParams, error) {
	flags := cmd.Flags()
	var p scanParams
	var err error
	if p.URL, err = flags.GetString("url"); err != nil {
		return p, err
	}
	if p.File, err = flags.GetString("file"); err != nil {
		return p, err
	}
	if p.Capture, err = flags.GetBool("capture"); err != nil {
		return p, err
	}
	if p.CaptureTimeout, err = flags.GetDuration("capture-timeout"); err != nil {
		return p, err
	}
	if p.Cookies, err = flags.GetString("cookies"); err != nil {
		return p, err
	}
	if p.Framed, err = flags.GetBool("framed"); err != nil {
		return p, err
	}
	if p.ParentOrigin, err = flags.GetString("parent-origin"); err != nil {
		return p, err
	}
	if p.JSON, err = flags.GetBool("json"); err != nil {
		return p, err
	}
	p.URL = strings.TrimSpace(p.URL)
	return p, nil
}

func validateScanParams(p scanParams) error {
	if p.URL == "" {
		return &InputError{Flag: "url", Reason: "is required"}
	}
	if p.File != "" && p.Capture {
		return &InputError{Reason: "--file and --capture are mutually exclusive"}
	}
	if p.File == "" && !p.Capture {
		return &InputError{Reason: "one of --file or --capture is required"}
	}
	return nil
}

func loadPageInput(ctx context.Context, cmd *cobra.Command, appCtx *AppContext, p scanParams) (page.Input, error) {
	var input page.Input
	if p.Capture {
		opts := capture.DefaultOptions()
		opts.Timeout = p.CaptureTimeout
		captured, err := newCapturer(opts, appCtx).Capture(ctx, p.URL)
		if err != nil {
			return page.Input{}, fmt.Errorf("failed to capture page: %w", err)
		}
		input = captured
	} else {
		html, err := readPageFile(p.File, cmd.InOrStdin())
		if err != nil {
			return page.Input{}, err
		}
		input = page.Input{URL: p.URL, HTML: html}
	}

	if p.Cookies != "" {
		input.Cookies = p.Cookies
	}
	input.Framed = input.Framed || p.Framed
	if p.ParentOrigin != "" {
		input.ParentOrigin = p.ParentOrigin
	}
	return input, nil
}
