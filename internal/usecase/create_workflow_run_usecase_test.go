package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/yz4230/forgehost/internal/entity"
)

func (e *testEnv) createRunUsecase() CreateWorkflowRunUsecase {
	return &createWorkflowRunUsecaseImpl{
		repositoryRepository:  e.r.Repos,
		commitRepository:      e.r.Commits,
		environmentRepository: e.r.Environments,
		orchestrator:          e.orch,
	}
}

func TestCreateWorkflowRunRequiresIngestedCommit(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.seedRepo(t, "demo")

	_, err := env.createRunUsecase().Execute(ctx, CreateWorkflowRunInput{
		RepoName: "demo", WorkflowID: "push", CommitSHA: "not-ingested",
		Branch: "main", Event: "push",
	})
	if !errors.Is(err, entity.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCreateWorkflowRunDefaultJobs(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	repo := env.seedRepo(t, "demo")
	env.seedCommit(t, repo.ID, "abc123")

	// Without a production environment, the implicit workflow is build only.
	run, err := env.createRunUsecase().Execute(ctx, CreateWorkflowRunInput{
		RepoName: "demo", WorkflowID: "push", CommitSHA: "abc123",
		Branch: "main", Event: "push",
	})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	jobs, err := env.r.Jobs.ListByRun(ctx, run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 1 || jobs[0].Name != "build" {
		t.Fatalf("jobs = %+v, want a single build job", jobs)
	}
}

func TestCreateWorkflowRunDefaultJobsWithProduction(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	repo := env.seedRepo(t, "demo")
	env.seedCommit(t, repo.ID, "abc123")
	prodEnv, err := env.r.Environments.Create(ctx, &entity.Environment{RepoID: repo.ID, Name: "production"})
	if err != nil {
		t.Fatal(err)
	}

	run, err := env.createRunUsecase().Execute(ctx, CreateWorkflowRunInput{
		RepoName: "demo", WorkflowID: "push", CommitSHA: "abc123",
		Branch: "main", Event: "push",
	})
	if err != nil {
		t.Fatal(err)
	}
	jobs, err := env.r.Jobs.ListByRun(ctx, run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 2 {
		t.Fatalf("jobs = %+v, want build and deploy", jobs)
	}
	var deploy *entity.WorkflowJob
	for _, j := range jobs {
		if j.Name == "deploy" {
			deploy = j
		}
	}
	if deploy == nil {
		t.Fatal("deploy job missing")
	}
	if deploy.EnvironmentID != prodEnv.ID || deploy.Status != entity.JobActionRequired {
		t.Errorf("deploy job = %+v, want gated on production", deploy)
	}
}

func TestCreateWorkflowRunUnknownEnvironment(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	repo := env.seedRepo(t, "demo")
	env.seedCommit(t, repo.ID, "abc123")

	_, err := env.createRunUsecase().Execute(ctx, CreateWorkflowRunInput{
		RepoName: "demo", WorkflowID: "push", CommitSHA: "abc123",
		Branch: "main", Event: "push",
		Jobs: []RunJobInput{{Name: "deploy", Environment: "mars"}},
	})
	if !errors.Is(err, entity.ErrInvalid) {
		t.Fatalf("expected invalid, got %v", err)
	}
}
