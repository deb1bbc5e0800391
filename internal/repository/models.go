package repository

import (
	"strings"
	"time"

	"github.com/yz4230/forgehost/internal/entity"
	"gorm.io/gorm"
)

type Repository struct {
	gorm.Model
	Name         string `gorm:"uniqueIndex"`
	Description  string
	DeployBranch string
	LatestSHA    string
}

func (r *Repository) ToEntity() *entity.Repository {
	return &entity.Repository{
		ID:           entity.NewID(r.ID),
		Name:         r.Name,
		Description:  r.Description,
		DeployBranch: r.DeployBranch,
		LatestSHA:    r.LatestSHA,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func (r *Repository) FromEntity(e *entity.Repository) {
	if !e.ID.IsZero() {
		r.ID = e.ID.Uint()
	}
	r.Name = e.Name
	r.Description = e.Description
	r.DeployBranch = e.DeployBranch
	r.LatestSHA = e.LatestSHA
}

type User struct {
	gorm.Model
	Name  string
	Email string `gorm:"uniqueIndex"`
}

func (u *User) ToEntity() *entity.User {
	return &entity.User{
		ID:        entity.NewID(u.ID),
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}

func (u *User) FromEntity(e *entity.User) {
	if !e.ID.IsZero() {
		u.ID = e.ID.Uint()
	}
	u.Name = e.Name
	u.Email = e.Email
}

type SigningKey struct {
	gorm.Model
	UserID      uint `gorm:"index"`
	Kind        string
	Fingerprint string
	PublicKey   string
}

func (k *SigningKey) ToEntity() *entity.SigningKey {
	return &entity.SigningKey{
		ID:          entity.NewID(k.ID),
		UserID:      entity.NewID(k.UserID),
		Kind:        entity.SigningKeyKind(k.Kind),
		Fingerprint: k.Fingerprint,
		PublicKey:   k.PublicKey,
		CreatedAt:   k.CreatedAt,
	}
}

func (k *SigningKey) FromEntity(e *entity.SigningKey) {
	if !e.ID.IsZero() {
		k.ID = e.ID.Uint()
	}
	k.UserID = e.UserID.Uint()
	k.Kind = string(e.Kind)
	k.Fingerprint = e.Fingerprint
	k.PublicKey = e.PublicKey
}

// Commit rows are append-only. The composite unique index backs the atomic
// upsert on re-ingestion.
type Commit struct {
	gorm.Model
	RepoID           uint   `gorm:"uniqueIndex:idx_commits_repo_sha"`
	SHA              string `gorm:"uniqueIndex:idx_commits_repo_sha"`
	TreeSHA          string
	Parents          string
	AuthorName       string
	AuthorEmail      string
	AuthorTime       time.Time
	CommitterName    string
	CommitterEmail   string
	CommitterTime    time.Time
	Message          string
	VerificationHash string
	AuthorUserID     *uint
	SignatureStatus  string
}

func (c *Commit) ToEntity() *entity.Commit {
	e := &entity.Commit{
		ID:               entity.NewID(c.ID),
		RepoID:           entity.NewID(c.RepoID),
		SHA:              c.SHA,
		TreeSHA:          c.TreeSHA,
		Author:           entity.Ident{Name: c.AuthorName, Email: c.AuthorEmail, Time: c.AuthorTime.UTC()},
		Committer:        entity.Ident{Name: c.CommitterName, Email: c.CommitterEmail, Time: c.CommitterTime.UTC()},
		Message:          c.Message,
		VerificationHash: c.VerificationHash,
		SignatureStatus:  entity.SignatureStatus(c.SignatureStatus),
		CreatedAt:        c.CreatedAt,
	}
	if c.Parents != "" {
		e.Parents = strings.Fields(c.Parents)
	}
	if c.AuthorUserID != nil {
		e.AuthorUserID = entity.NewID(*c.AuthorUserID)
	}
	return e
}

func (c *Commit) FromEntity(e *entity.Commit) {
	if !e.ID.IsZero() {
		c.ID = e.ID.Uint()
	}
	c.RepoID = e.RepoID.Uint()
	c.SHA = e.SHA
	c.TreeSHA = e.TreeSHA
	c.Parents = strings.Join(e.Parents, " ")
	c.AuthorName = e.Author.Name
	c.AuthorEmail = e.Author.Email
	c.AuthorTime = e.Author.Time.UTC()
	c.CommitterName = e.Committer.Name
	c.CommitterEmail = e.Committer.Email
	c.CommitterTime = e.Committer.Time.UTC()
	c.Message = e.Message
	c.VerificationHash = e.VerificationHash
	c.SignatureStatus = string(e.SignatureStatus)
	if !e.AuthorUserID.IsZero() {
		id := e.AuthorUserID.Uint()
		c.AuthorUserID = &id
	}
}

type CommitArtifact struct {
	gorm.Model
	CommitID    uint `gorm:"index"`
	Name        string
	Kind        string
	ContentHash string
	Size        int64
	BlobID      string `gorm:"uniqueIndex"`
}

func (a *CommitArtifact) ToEntity() *entity.CommitArtifact {
	return &entity.CommitArtifact{
		ID:          entity.NewID(a.ID),
		CommitID:    entity.NewID(a.CommitID),
		Name:        a.Name,
		Kind:        entity.ArtifactKind(a.Kind),
		ContentHash: a.ContentHash,
		Size:        a.Size,
		BlobID:      a.BlobID,
		CreatedAt:   a.CreatedAt,
	}
}

func (a *CommitArtifact) FromEntity(e *entity.CommitArtifact) {
	if !e.ID.IsZero() {
		a.ID = e.ID.Uint()
	}
	a.CommitID = e.CommitID.Uint()
	a.Name = e.Name
	a.Kind = string(e.Kind)
	a.ContentHash = e.ContentHash
	a.Size = e.Size
	a.BlobID = e.BlobID
}

type WorkflowRun struct {
	gorm.Model
	WorkflowID string
	RepoID     uint `gorm:"index"`
	CommitSHA  string
	Branch     string
	Event      string
	Status     string
	Conclusion string
	Cancelled  bool
}

func (r *WorkflowRun) ToEntity() *entity.WorkflowRun {
	return &entity.WorkflowRun{
		ID:         entity.NewID(r.ID),
		WorkflowID: r.WorkflowID,
		RepoID:     entity.NewID(r.RepoID),
		CommitSHA:  r.CommitSHA,
		Branch:     r.Branch,
		Event:      r.Event,
		Status:     entity.RunStatus(r.Status),
		Conclusion: entity.RunConclusion(r.Conclusion),
		Cancelled:  r.Cancelled,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

func (r *WorkflowRun) FromEntity(e *entity.WorkflowRun) {
	if !e.ID.IsZero() {
		r.ID = e.ID.Uint()
	}
	r.WorkflowID = e.WorkflowID
	r.RepoID = e.RepoID.Uint()
	r.CommitSHA = e.CommitSHA
	r.Branch = e.Branch
	r.Event = e.Event
	r.Status = string(e.Status)
	r.Conclusion = string(e.Conclusion)
	r.Cancelled = e.Cancelled
}

type WorkflowJob struct {
	gorm.Model
	RunID         uint `gorm:"index"`
	Name          string
	EnvironmentID *uint
	ExternalID    string
	Status        string
	Conclusion    string
}

func (j *WorkflowJob) ToEntity() *entity.WorkflowJob {
	e := &entity.WorkflowJob{
		ID:         entity.NewID(j.ID),
		RunID:      entity.NewID(j.RunID),
		Name:       j.Name,
		ExternalID: j.ExternalID,
		Status:     entity.JobStatus(j.Status),
		Conclusion: entity.JobConclusion(j.Conclusion),
		CreatedAt:  j.CreatedAt,
		UpdatedAt:  j.UpdatedAt,
	}
	if j.EnvironmentID != nil {
		e.EnvironmentID = entity.NewID(*j.EnvironmentID)
	}
	return e
}

func (j *WorkflowJob) FromEntity(e *entity.WorkflowJob) {
	if !e.ID.IsZero() {
		j.ID = e.ID.Uint()
	}
	j.RunID = e.RunID.Uint()
	j.Name = e.Name
	j.ExternalID = e.ExternalID
	j.Status = string(e.Status)
	j.Conclusion = string(e.Conclusion)
	if !e.EnvironmentID.IsZero() {
		id := e.EnvironmentID.Uint()
		j.EnvironmentID = &id
	}
}

type Environment struct {
	gorm.Model
	RepoID uint   `gorm:"uniqueIndex:idx_envs_repo_name"`
	Name   string `gorm:"uniqueIndex:idx_envs_repo_name"`
}

type EnvironmentReviewer struct {
	gorm.Model
	EnvironmentID uint `gorm:"uniqueIndex:idx_env_reviewer"`
	UserID        uint `gorm:"uniqueIndex:idx_env_reviewer"`
}

type Deployment struct {
	gorm.Model
	RunID         uint `gorm:"index"`
	EnvironmentID uint `gorm:"index"`
	Status        string
}

func (d *Deployment) ToEntity() *entity.Deployment {
	return &entity.Deployment{
		ID:            entity.NewID(d.ID),
		RunID:         entity.NewID(d.RunID),
		EnvironmentID: entity.NewID(d.EnvironmentID),
		Status:        entity.DeploymentStatus(d.Status),
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

func (d *Deployment) FromEntity(e *entity.Deployment) {
	if !e.ID.IsZero() {
		d.ID = e.ID.Uint()
	}
	d.RunID = e.RunID.Uint()
	d.EnvironmentID = e.EnvironmentID.Uint()
	d.Status = string(e.Status)
}

type DeploymentApproval struct {
	gorm.Model
	DeploymentID uint `gorm:"index"`
	UserID       uint
	State        string
	Comment      string
}

func (a *DeploymentApproval) ToEntity() *entity.DeploymentApproval {
	return &entity.DeploymentApproval{
		ID:           entity.NewID(a.ID),
		DeploymentID: entity.NewID(a.DeploymentID),
		UserID:       entity.NewID(a.UserID),
		State:        entity.ApprovalState(a.State),
		Comment:      a.Comment,
		CreatedAt:    a.CreatedAt,
	}
}

func (a *DeploymentApproval) FromEntity(e *entity.DeploymentApproval) {
	if !e.ID.IsZero() {
		a.ID = e.ID.Uint()
	}
	a.DeploymentID = e.DeploymentID.Uint()
	a.UserID = e.UserID.Uint()
	a.State = string(e.State)
	a.Comment = e.Comment
}
