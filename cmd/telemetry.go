package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	scanapp "github.com/khanhnv2901/pagesentry/internal/application/scan"
	consts "github.com/khanhnv2901/pagesentry/internal/shared/constants"
)

type telemetryRecord struct {
	Timestamp       time.Time `json:"timestamp"`
	Command         string    `json:"command"`
	SessionID       string    `json:"session_id"`
	URL             string    `json:"url"`
	Admitted        bool      `json:"admitted"`
	FindingCount    int       `json:"finding_count"`
	FailureCount    int       `json:"failure_count"`
	RiskScore       int       `json:"risk_score"`
	DurationSeconds float64   `json:"duration_seconds"`
}

func newTelemetryRecord(command, sessionID, url string, result *scanapp.Result, duration time.Duration) telemetryRecord {
	record := telemetryRecord{
		Timestamp:       time.Now().UTC(),
		Command:         command,
		SessionID:       sessionID,
		URL:             url,
		DurationSeconds: duration.Seconds(),
	}
	if result == nil {
		return record
	}
	record.Admitted = result.Admitted
	record.FailureCount = len(result.Failures)
	if result.Scan != nil {
		record.FindingCount = result.Scan.FindingCount()
		record.RiskScore = result.Scan.RiskScore()
	}
	return record
}

func recordTelemetry(appCtx *AppContext, record telemetryRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal telemetry: %w", err)
	}

	path, err := telemetryPath(appCtx.DataDir)
	if err != nil {
		return fmt.Errorf("resolve telemetry file: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, consts.DefaultFilePerm) // #nosec G304 -- path resolved within the data directory.
	if err != nil {
		return fmt.Errorf("open telemetry file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write telemetry: %w", err)
	}

	return nil
}
