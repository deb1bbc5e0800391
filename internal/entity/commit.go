package entity

import "time"

type SignatureStatus string

const (
	SignatureUnsigned SignatureStatus = "unsigned"
	SignatureVerified SignatureStatus = "verified"
	SignatureInvalid  SignatureStatus = "invalid"
)

// Ident is one of the two identity lines of a git commit object, with the
// recorded time already normalized to UTC.
type Ident struct {
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Time  time.Time `json:"time"`
}

// Commit is one ingested git commit. Rows are append-only: once created the
// git fields never change, only the verification hash may be recomputed.
type Commit struct {
	ID               ID              `json:"id"`
	RepoID           ID              `json:"repo_id"`
	SHA              string          `json:"sha"`
	TreeSHA          string          `json:"tree_sha"`
	Parents          []string        `json:"parents"`
	Author           Ident           `json:"author"`
	Committer        Ident           `json:"committer"`
	Message          string          `json:"message"`
	VerificationHash string          `json:"verification_hash"`
	AuthorUserID     ID              `json:"author_user_id,omitempty"`
	SignatureStatus  SignatureStatus `json:"signature_status"`
	CreatedAt        time.Time       `json:"created_at"`
}

type ArtifactKind string

const (
	ArtifactLog     ArtifactKind = "log"
	ArtifactArchive ArtifactKind = "archive"
	ArtifactBinary  ArtifactKind = "binary"
)

// CommitArtifact is a build output bound to exactly one commit. The content
// hash and the commit binding are immutable; corrections are new artifacts.
type CommitArtifact struct {
	ID          ID           `json:"id"`
	CommitID    ID           `json:"commit_id"`
	Name        string       `json:"name"`
	Kind        ArtifactKind `json:"kind"`
	ContentHash string       `json:"content_hash"`
	Size        int64        `json:"size"`
	BlobID      string       `json:"blob_id"`
	CreatedAt   time.Time    `json:"created_at"`
}
