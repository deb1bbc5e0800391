package entity

import "time"

type RunStatus string

const (
	RunQueued     RunStatus = "queued"
	RunInProgress RunStatus = "in_progress"
	RunCompleted  RunStatus = "completed"
)

type RunConclusion string

const (
	RunSuccess   RunConclusion = "success"
	RunFailure   RunConclusion = "failure"
	RunCancelled RunConclusion = "cancelled"
)

// WorkflowRun is one execution of a workflow against a commit. Conclusion is
// only meaningful once Status is RunCompleted.
type WorkflowRun struct {
	ID         ID            `json:"id"`
	WorkflowID string        `json:"workflow_id"`
	RepoID     ID            `json:"repo_id"`
	CommitSHA  string        `json:"commit_sha"`
	Branch     string        `json:"branch"`
	Event      string        `json:"event"`
	Status     RunStatus     `json:"status"`
	Conclusion RunConclusion `json:"conclusion,omitempty"`
	Cancelled  bool          `json:"cancelled"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

type JobStatus string

const (
	JobQueued         JobStatus = "queued"
	JobActionRequired JobStatus = "action_required"
	JobInProgress     JobStatus = "in_progress"
	JobCompleted      JobStatus = "completed"
)

type JobConclusion string

const (
	JobSuccess   JobConclusion = "success"
	JobFailure   JobConclusion = "failure"
	JobSkipped   JobConclusion = "skipped"
	JobCancelled JobConclusion = "cancelled"
)

// WorkflowJob is one unit of execution within a run. A job bound to an
// environment starts in JobActionRequired and only reaches JobQueued through
// an approved deployment.
type WorkflowJob struct {
	ID            ID            `json:"id"`
	RunID         ID            `json:"run_id"`
	Name          string        `json:"name"`
	EnvironmentID ID            `json:"environment_id,omitempty"`
	ExternalID    string        `json:"external_id,omitempty"`
	Status        JobStatus     `json:"status"`
	Conclusion    JobConclusion `json:"conclusion,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Terminal reports whether the job has reached its final state.
func (j *WorkflowJob) Terminal() bool { return j.Status == JobCompleted }
