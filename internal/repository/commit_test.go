package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yz4230/forgehost/internal/entity"
)

func newTestRepositories(t *testing.T) *Repositories {
	t.Helper()
	db, err := NewSQLiteDB(":memory:")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	return NewRepositories(db)
}

func seedRepo(t *testing.T, r *Repositories, name string) *entity.Repository {
	t.Helper()
	repo := &entity.Repository{Name: name}
	repo.FillDefaults()
	created, err := r.Repos.Create(context.Background(), repo)
	if err != nil {
		t.Fatalf("create repository: %v", err)
	}
	return created
}

func TestCommitUpsertIdempotent(t *testing.T) {
	ctx := context.Background()
	r := newTestRepositories(t)
	repo := seedRepo(t, r, "demo")

	commit := &entity.Commit{
		RepoID:  repo.ID,
		SHA:     "abc123",
		TreeSHA: "t1",
		Parents: []string{"p1"},
		Author: entity.Ident{
			Name: "Alice", Email: "alice@example.com",
			Time: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		},
		Committer: entity.Ident{
			Name: "Alice", Email: "alice@example.com",
			Time: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		},
		Message:          "initial commit\n",
		VerificationHash: "hash-v1",
		SignatureStatus:  entity.SignatureUnsigned,
	}

	first, err := r.Commits.Upsert(ctx, commit)
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if first.VerificationHash != "hash-v1" {
		t.Errorf("hash = %q, want hash-v1", first.VerificationHash)
	}

	// Re-ingesting with a different hash must refresh only the hash and not
	// create a second row or disturb the git fields.
	commit.VerificationHash = "hash-v2"
	commit.Message = "tampered"
	second, err := r.Commits.Upsert(ctx, commit)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("upsert created a new row: %s != %s", second.ID, first.ID)
	}
	if second.VerificationHash != "hash-v2" {
		t.Errorf("hash = %q, want hash-v2", second.VerificationHash)
	}
	if second.Message != "initial commit\n" {
		t.Errorf("message was overwritten: %q", second.Message)
	}
	if second.TreeSHA != "t1" || len(second.Parents) != 1 || second.Parents[0] != "p1" {
		t.Errorf("git fields changed: tree=%q parents=%v", second.TreeSHA, second.Parents)
	}

	all, err := r.Commits.ListByRepo(ctx, repo.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 {
		t.Errorf("expected a single row, got %d", len(all))
	}
}

func TestCommitUpsertScopedByRepo(t *testing.T) {
	ctx := context.Background()
	r := newTestRepositories(t)
	repoA := seedRepo(t, r, "repo-a")
	repoB := seedRepo(t, r, "repo-b")

	base := entity.Commit{
		SHA:     "abc123",
		TreeSHA: "t1",
		Author:  entity.Ident{Name: "A", Email: "a@x.com", Time: time.Now().UTC()},
		Committer: entity.Ident{
			Name: "A", Email: "a@x.com", Time: time.Now().UTC(),
		},
		Message:          "m\n",
		VerificationHash: "h",
		SignatureStatus:  entity.SignatureUnsigned,
	}

	ca := base
	ca.RepoID = repoA.ID
	cb := base
	cb.RepoID = repoB.ID
	if _, err := r.Commits.Upsert(ctx, &ca); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Commits.Upsert(ctx, &cb); err != nil {
		t.Fatalf("same sha in another repository must be allowed: %v", err)
	}
}

func TestCommitGetByRepoAndSHANotFound(t *testing.T) {
	ctx := context.Background()
	r := newTestRepositories(t)
	repo := seedRepo(t, r, "demo")

	if _, err := r.Commits.GetByRepoAndSHA(ctx, repo.ID, "nope"); !errors.Is(err, entity.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}
