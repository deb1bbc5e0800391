package entity

import "time"

type User struct {
	ID        ID        `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type SigningKeyKind string

const (
	SigningKeySSH SigningKeyKind = "ssh"
	SigningKeyPGP SigningKeyKind = "pgp"
)

// SigningKey is a public key a user registered for commit signing.
// Fingerprint is the canonical identifier fed into the verification hash.
type SigningKey struct {
	ID          ID             `json:"id"`
	UserID      ID             `json:"user_id"`
	Kind        SigningKeyKind `json:"kind"`
	Fingerprint string         `json:"fingerprint"`
	PublicKey   string         `json:"public_key"`
	CreatedAt   time.Time      `json:"created_at"`
}
