package usecase

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/yz4230/forgehost/internal/engine"
	"github.com/yz4230/forgehost/internal/entity"
	"github.com/yz4230/forgehost/internal/orchestrator"
	"github.com/yz4230/forgehost/internal/repository"
	"github.com/yz4230/forgehost/internal/storage"
)

// testEnv wires the usecases against an in-memory database, on-disk storage
// under a temp dir, and a stub engine.
type testEnv struct {
	r          *repository.Repositories
	txm        repository.TxManager
	gitStorage storage.GitStorage
	artifacts  storage.ArtifactStorage
	orch       *orchestrator.Orchestrator
	eng        *stubEngine
}

type stubEngine struct {
	created   []engine.RunRequest
	cancelled []string
	nextID    int
}

func (e *stubEngine) CreateRun(ctx context.Context, req engine.RunRequest) (string, error) {
	e.created = append(e.created, req)
	e.nextID++
	return fmt.Sprintf("stub-%d", e.nextID), nil
}

func (e *stubEngine) CancelRun(ctx context.Context, externalID string) (bool, error) {
	e.cancelled = append(e.cancelled, externalID)
	return true, nil
}

func (e *stubEngine) GetArtifacts(ctx context.Context, externalID string) ([]engine.Artifact, error) {
	return nil, nil
}

func (e *stubEngine) GetLogs(ctx context.Context, externalID, jobName string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("log line\n")), nil
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := repository.NewSQLiteDB(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	artifacts, err := storage.NewArtifactStorage(dir+"/artifacts", zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	eng := &stubEngine{}
	txm := repository.NewTxManager(db)
	return &testEnv{
		r:          repository.NewRepositories(db),
		txm:        txm,
		gitStorage: storage.NewGitStorage(dir+"/repositories", zerolog.Nop()),
		artifacts:  artifacts,
		orch:       orchestrator.New(txm, eng),
		eng:        eng,
	}
}

func (e *testEnv) seedRepo(t *testing.T, name string) *entity.Repository {
	t.Helper()
	repo := &entity.Repository{Name: name}
	repo.FillDefaults()
	created, err := e.r.Repos.Create(context.Background(), repo)
	if err != nil {
		t.Fatal(err)
	}
	return created
}

func (e *testEnv) seedCommit(t *testing.T, repoID entity.ID, sha string) *entity.Commit {
	t.Helper()
	commit, err := e.r.Commits.Upsert(context.Background(), &entity.Commit{
		RepoID:           repoID,
		SHA:              sha,
		TreeSHA:          "t1",
		Author:           entity.Ident{Name: "A", Email: "a@x.com"},
		Committer:        entity.Ident{Name: "A", Email: "a@x.com"},
		Message:          "m\n",
		VerificationHash: "h",
		SignatureStatus:  entity.SignatureUnsigned,
	})
	if err != nil {
		t.Fatal(err)
	}
	return commit
}

// gitCommit creates a commit in the repository directory managed by the git
// storage, initializing the repository on first use, and returns its sha.
func (e *testEnv) gitCommit(t *testing.T, reponame, message string) string {
	t.Helper()
	dir := e.gitStorage.RepoDir(reponame)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		runGit(t, "", "init", "-b", "main", dir)
	}
	env := []string{
		"GIT_AUTHOR_NAME=Alice", "GIT_AUTHOR_EMAIL=alice@example.com",
		"GIT_AUTHOR_DATE=2024-01-02T03:04:05Z",
		"GIT_COMMITTER_NAME=Alice", "GIT_COMMITTER_EMAIL=alice@example.com",
		"GIT_COMMITTER_DATE=2024-01-02T03:04:05Z",
	}
	runGitEnv(t, dir, env, "commit", "--allow-empty", "-m", message)
	return strings.TrimSpace(runGit(t, dir, "rev-parse", "HEAD"))
}

func runGit(t *testing.T, dir string, args ...string) string {
	t.Helper()
	return runGitEnv(t, dir, nil, args...)
}

func runGitEnv(t *testing.T, dir string, extraEnv []string, args ...string) string {
	t.Helper()
	if dir != "" {
		args = append([]string{"-C", dir}, args...)
	}
	cmd := exec.Command("git", args...)
	cmd.Env = append(os.Environ(), extraEnv...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %v: %v\n%s", args, err, out)
	}
	return string(out)
}
