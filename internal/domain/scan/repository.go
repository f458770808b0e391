package scan

import "context"

// Stats summarizes the retained scans of one session.
type Stats struct {
	TotalScans           int
	TotalVulnerabilities int
	AverageRiskScore     int
}

// Repository defines the interface for scan persistence.
// Expired scans are never returned.
type Repository interface {
	// Save evicts the session's expired and superseded scans, then stores s
	Save(ctx context.Context, s *Scan) error

	// GetCurrent returns the most recent live scan of url for the session
	GetCurrent(ctx context.Context, sessionID, url string) (*Scan, error)

	// FindByID retrieves a live scan by its ID
	FindByID(ctx context.Context, sessionID, id string) (*Scan, error)

	// ListValid returns the session's live scans, oldest first
	ListValid(ctx context.Context, sessionID string) ([]*Scan, error)

	// SweepExpired removes every expired scan and reports how many were dropped
	SweepExpired(ctx context.Context) (int, error)

	// Clear removes all scans of the session
	Clear(ctx context.Context, sessionID string) error

	// Stats summarizes the session's live scans
	Stats(ctx context.Context, sessionID string) (Stats, error)
}
