package constants

import (
	"io/fs"
	"time"
)

const (
	// DefaultDirPerm is the default permission used when creating directories.
	DefaultDirPerm fs.FileMode = 0o755
	// DefaultFilePerm is the default permission used when creating files.
	DefaultFilePerm fs.FileMode = 0o644
)

const (
	// AppName names the binary, the config file and the data directory.
	AppName = "pagesentry"
	// EnvPrefix prefixes environment overrides, e.g. PAGESENTRY_STORE_BACKEND.
	EnvPrefix = "PAGESENTRY"
	// DefaultDataDir holds the file store and telemetry when nothing is configured.
	DefaultDataDir = "~/.pagesentry"
	// TelemetryFileName is the JSONL file scan telemetry is appended to.
	TelemetryFileName = "telemetry.jsonl"
	// CaptureJobTimeout bounds one API capture-and-scan job.
	CaptureJobTimeout = 90 * time.Second
)
