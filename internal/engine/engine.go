package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// RunRequest describes one job execution handed to a backend.
type RunRequest struct {
	RepoName    string `json:"repo_name"`
	CommitSHA   string `json:"commit_sha"`
	Branch      string `json:"branch"`
	WorkflowID  string `json:"workflow_id"`
	JobName     string `json:"job_name"`
	Environment string `json:"environment,omitempty"`
}

// Artifact is a backend-produced artifact reference.
type Artifact struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Engine is the uniform contract between the orchestrator and any concrete
// CI backend. The orchestrator calls CreateRun at most once per job; backends
// own their own retry and queueing.
type Engine interface {
	CreateRun(ctx context.Context, req RunRequest) (externalID string, err error)
	// CancelRun is best-effort and reports whether the backend accepted the
	// cancellation, not whether execution already stopped.
	CancelRun(ctx context.Context, externalID string) (bool, error)
	// GetArtifacts may return an empty list when the backend has no artifact
	// listing support.
	GetArtifacts(ctx context.Context, externalID string) ([]Artifact, error)
	// GetLogs returns a possibly live log stream; callers read until close
	// and must not assume a bounded size.
	GetLogs(ctx context.Context, externalID, jobName string) (io.ReadCloser, error)
}

// TriggerError wraps a backend or network failure from CreateRun. The
// orchestrator treats it as a job-level failure, never a crash.
type TriggerError struct {
	Backend string
	Err     error
}

func (e *TriggerError) Error() string {
	return fmt.Sprintf("trigger run on %s: %v", e.Backend, e.Err)
}

func (e *TriggerError) Unwrap() error { return e.Err }

// IsTrigger reports whether err is (or wraps) a TriggerError.
func IsTrigger(err error) bool {
	var te *TriggerError
	return errors.As(err, &te)
}
