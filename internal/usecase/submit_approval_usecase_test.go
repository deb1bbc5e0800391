package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/yz4230/forgehost/internal/entity"
	"github.com/yz4230/forgehost/internal/orchestrator"
)

type gatedFixture struct {
	env     *testEnv
	usecase SubmitApprovalUsecase
	repo    *entity.Repository
	prodEnv *entity.Environment
	alice   *entity.User
	mallory *entity.User
	run     *entity.WorkflowRun
	dep     *entity.Deployment
}

func newGatedFixture(t *testing.T) *gatedFixture {
	t.Helper()
	ctx := context.Background()
	env := newTestEnv(t)
	repo := env.seedRepo(t, "demo")

	alice, err := env.r.Users.Create(ctx, &entity.User{Name: "alice", Email: "alice@example.com"})
	if err != nil {
		t.Fatal(err)
	}
	mallory, err := env.r.Users.Create(ctx, &entity.User{Name: "mallory", Email: "mallory@example.com"})
	if err != nil {
		t.Fatal(err)
	}
	prodEnv, err := env.r.Environments.Create(ctx, &entity.Environment{
		RepoID: repo.ID, Name: "production", Reviewers: []entity.User{*alice},
	})
	if err != nil {
		t.Fatal(err)
	}

	run, err := env.orch.CreateRun(ctx, orchestrator.CreateRunSpec{
		RepoID: repo.ID, RepoName: repo.Name, WorkflowID: "push",
		CommitSHA: "abc123", Branch: "main", Event: "push",
		Jobs: []orchestrator.JobSpec{
			{Name: "build"},
			{Name: "deploy", EnvironmentID: prodEnv.ID},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	deps, err := env.r.Deployments.ListRecentByEnvironment(ctx, prodEnv.ID, 1)
	if err != nil || len(deps) != 1 {
		t.Fatalf("expected one deployment: %v, %v", deps, err)
	}

	return &gatedFixture{
		env:     env,
		usecase: &submitApprovalUsecaseImpl{txManager: env.txm, orchestrator: env.orch},
		repo:    repo,
		prodEnv: prodEnv,
		alice:   alice,
		mallory: mallory,
		run:     run,
		dep:     deps[0],
	}
}

func (f *gatedFixture) gatedJob(t *testing.T) *entity.WorkflowJob {
	t.Helper()
	jobs, err := f.env.r.Jobs.ListByRun(context.Background(), f.run.ID)
	if err != nil {
		t.Fatal(err)
	}
	for _, j := range jobs {
		if j.Name == "deploy" {
			return j
		}
	}
	t.Fatal("deploy job not found")
	return nil
}

func TestSubmitApprovalNonReviewer(t *testing.T) {
	ctx := context.Background()
	f := newGatedFixture(t)

	_, err := f.usecase.Execute(ctx, SubmitApprovalInput{
		DeploymentID: f.dep.ID, UserID: f.mallory.ID, State: entity.ApprovalApproved,
	})
	if !errors.Is(err, entity.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	// Nothing moved.
	if got := f.gatedJob(t).Status; got != entity.JobActionRequired {
		t.Errorf("job status = %s, want action_required", got)
	}
	dep, err := f.env.r.Deployments.GetByID(ctx, f.dep.ID)
	if err != nil {
		t.Fatal(err)
	}
	if dep.Status != entity.DeploymentWaiting {
		t.Errorf("deployment status = %s, want waiting", dep.Status)
	}
	approvals, err := f.env.r.Deployments.ListApprovals(ctx, f.dep.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(approvals) != 0 {
		t.Errorf("forbidden decision must not be recorded, got %d", len(approvals))
	}
}

func TestSubmitApprovalApprove(t *testing.T) {
	ctx := context.Background()
	f := newGatedFixture(t)

	dep, err := f.usecase.Execute(ctx, SubmitApprovalInput{
		DeploymentID: f.dep.ID, UserID: f.alice.ID,
		State: entity.ApprovalApproved, Comment: "lgtm",
	})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if dep.Status != entity.DeploymentApproved {
		t.Errorf("status = %s, want approved", dep.Status)
	}
	if got := f.gatedJob(t).Status; got != entity.JobQueued {
		t.Errorf("job status = %s, want queued", got)
	}

	approvals, err := f.env.r.Deployments.ListApprovals(ctx, f.dep.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(approvals) != 1 || approvals[0].Comment != "lgtm" || approvals[0].UserID != f.alice.ID {
		t.Errorf("approvals = %+v", approvals)
	}

	// A later decision, even by a reviewer, conflicts with the resolved gate.
	if _, err := f.usecase.Execute(ctx, SubmitApprovalInput{
		DeploymentID: f.dep.ID, UserID: f.alice.ID, State: entity.ApprovalRejected,
	}); !errors.Is(err, entity.ErrConflict) {
		t.Errorf("expected conflict, got %v", err)
	}
	if got := f.gatedJob(t).Status; got != entity.JobQueued {
		t.Errorf("losing decision moved the job: %s", got)
	}
}

func TestSubmitApprovalReject(t *testing.T) {
	ctx := context.Background()
	f := newGatedFixture(t)

	dep, err := f.usecase.Execute(ctx, SubmitApprovalInput{
		DeploymentID: f.dep.ID, UserID: f.alice.ID,
		State: entity.ApprovalRejected, Comment: "not this one",
	})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if dep.Status != entity.DeploymentRejected {
		t.Errorf("status = %s, want rejected", dep.Status)
	}
	job := f.gatedJob(t)
	if job.Status != entity.JobCompleted || job.Conclusion != entity.JobSkipped {
		t.Errorf("job = %s/%s, want completed/skipped", job.Status, job.Conclusion)
	}

	// The ungated build job is unaffected.
	jobs, err := f.env.r.Jobs.ListByRun(ctx, f.run.ID)
	if err != nil {
		t.Fatal(err)
	}
	for _, j := range jobs {
		if j.Name == "build" && j.Status != entity.JobQueued {
			t.Errorf("build job = %s, want queued", j.Status)
		}
	}
}

func TestSubmitApprovalInvalidState(t *testing.T) {
	f := newGatedFixture(t)
	_, err := f.usecase.Execute(context.Background(), SubmitApprovalInput{
		DeploymentID: f.dep.ID, UserID: f.alice.ID, State: "maybe",
	})
	if !errors.Is(err, entity.ErrInvalid) {
		t.Errorf("expected invalid, got %v", err)
	}
}

func TestSubmitApprovalUnknownDeployment(t *testing.T) {
	f := newGatedFixture(t)
	_, err := f.usecase.Execute(context.Background(), SubmitApprovalInput{
		DeploymentID: "9999", UserID: f.alice.ID, State: entity.ApprovalApproved,
	})
	if !errors.Is(err, entity.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}
