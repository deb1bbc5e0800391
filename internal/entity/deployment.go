package entity

import "time"

type DeploymentStatus string

const (
	DeploymentWaiting  DeploymentStatus = "waiting"
	DeploymentApproved DeploymentStatus = "approved"
	DeploymentRejected DeploymentStatus = "rejected"
)

// Deployment is one gated deployment attempt for a (run, environment) pair.
// Status moves waiting -> approved|rejected exactly once.
type Deployment struct {
	ID            ID               `json:"id"`
	RunID         ID               `json:"run_id"`
	EnvironmentID ID               `json:"environment_id"`
	Status        DeploymentStatus `json:"status"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

func (d *Deployment) Resolved() bool { return d.Status != DeploymentWaiting }

type ApprovalState string

const (
	ApprovalApproved ApprovalState = "approved"
	ApprovalRejected ApprovalState = "rejected"
)

// DeploymentApproval is a single reviewer's recorded decision.
type DeploymentApproval struct {
	ID           ID            `json:"id"`
	DeploymentID ID            `json:"deployment_id"`
	UserID       ID            `json:"user_id"`
	State        ApprovalState `json:"state"`
	Comment      string        `json:"comment,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}
