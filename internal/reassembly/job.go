package reassembly

import (
	"fmt"
	"time"
)

// Status tracks a reassembly job through its lifecycle.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusExhausted Status = "exhausted"
)

// Job is one finalized session directory awaiting reassembly into a single
// artifact. Attempts counts concat tool invocations; the artifact name is
// fixed at job creation so a retry can recognize output left behind by an
// earlier attempt.
type Job struct {
	SessionID    string
	Target       string
	SessionDir   string
	ArtifactName string
	Attempts     int
	Status       Status

	// OutputPath is set once the artifact has been moved to the output
	// directory.
	OutputPath string
}

// NewJob builds a pending job for a finalized session. created stamps the
// artifact name, so retries of the same job always look for the same file.
func NewJob(sessionID, target, sessionDir string, created time.Time, outputExt string) *Job {
	return &Job{
		SessionID:    sessionID,
		Target:       target,
		SessionDir:   sessionDir,
		ArtifactName: fmt.Sprintf("%s-%s%s", target, created.UTC().Format("20060102-150405"), outputExt),
		Status:       StatusPending,
	}
}
