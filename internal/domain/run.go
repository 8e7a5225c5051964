package domain

import "time"

// RunRecord is the audit entry written for every external script invocation.
// It never carries message content.
type RunRecord struct {
	RunID         string
	Script        string
	ExitCode      int
	Outcome       OutcomeKind
	Duration      time.Duration
	StartedAt     time.Time
	CorrelationID string
}
