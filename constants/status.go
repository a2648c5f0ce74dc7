package constants

// ProcessingStatus is the canonical lifecycle state for rows in documents.
type ProcessingStatus string

// Stable values (store these exact strings in DB).
const (
	StatusPending    ProcessingStatus = "pending"    // created at upload, waiting for a run
	StatusProcessing ProcessingStatus = "processing" // pipeline run in progress
	StatusCompleted  ProcessingStatus = "completed"  // terminal: run finished (with or without a match)
	StatusFailed     ProcessingStatus = "failed"     // terminal: run aborted
)

// IsTerminal reports whether the status never reverts without a new upload.
func (s ProcessingStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}
