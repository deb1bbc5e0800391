package entity

import "time"

// Environment is a named deployment target of a repository, guarded by a set
// of authorized reviewers.
type Environment struct {
	ID        ID        `json:"id"`
	RepoID    ID        `json:"repo_id"`
	Name      string    `json:"name"`
	Reviewers []User    `json:"reviewers"`
	CreatedAt time.Time `json:"created_at"`
}

// HasReviewer reports whether userID belongs to the authorized reviewer set.
func (e *Environment) HasReviewer(userID ID) bool {
	for _, u := range e.Reviewers {
		if u.ID == userID {
			return true
		}
	}
	return false
}
