package usecase

import (
	"context"
	"errors"

	"github.com/samber/do"
	"github.com/yz4230/forgehost/internal/entity"
	"github.com/yz4230/forgehost/internal/orchestrator"
	"github.com/yz4230/forgehost/internal/repository"
)

type RunJobInput struct {
	Name        string
	Environment string
}

type CreateWorkflowRunInput struct {
	RepoName   string
	WorkflowID string
	CommitSHA  string
	Branch     string
	Event      string
	Jobs       []RunJobInput
}

type CreateWorkflowRunUsecase interface {
	Execute(ctx context.Context, in CreateWorkflowRunInput) (*entity.WorkflowRun, error)
}

type createWorkflowRunUsecaseImpl struct {
	repositoryRepository  repository.RepositoryRepository
	commitRepository      repository.CommitRepository
	environmentRepository repository.EnvironmentRepository
	orchestrator          *orchestrator.Orchestrator
}

// Execute opens a run against an already ingested commit. Job environments
// are referenced by name; an unknown environment fails the request rather
// than silently creating an ungated job.
func (u *createWorkflowRunUsecaseImpl) Execute(ctx context.Context, in CreateWorkflowRunInput) (*entity.WorkflowRun, error) {
	repo, err := u.repositoryRepository.GetByName(ctx, in.RepoName)
	if err != nil {
		return nil, err
	}
	if _, err := u.commitRepository.GetByRepoAndSHA(ctx, repo.ID, in.CommitSHA); err != nil {
		return nil, err
	}

	envs, err := u.environmentRepository.ListByRepo(ctx, repo.ID)
	if err != nil {
		return nil, err
	}
	envByName := map[string]entity.ID{}
	for _, env := range envs {
		envByName[env.Name] = env.ID
	}

	jobs := in.Jobs
	if len(jobs) == 0 {
		jobs = defaultJobs(envByName)
	}

	spec := orchestrator.CreateRunSpec{
		RepoID:     repo.ID,
		RepoName:   repo.Name,
		WorkflowID: in.WorkflowID,
		CommitSHA:  in.CommitSHA,
		Branch:     in.Branch,
		Event:      in.Event,
	}
	for _, job := range jobs {
		js := orchestrator.JobSpec{Name: job.Name}
		if job.Environment != "" {
			envID, ok := envByName[job.Environment]
			if !ok {
				return nil, errors.Join(entity.ErrInvalid, errors.New("unknown environment "+job.Environment))
			}
			js.EnvironmentID = envID
		}
		spec.Jobs = append(spec.Jobs, js)
	}
	return u.orchestrator.CreateRun(ctx, spec)
}

// defaultJobs is the implicit push workflow: a build job, plus a gated
// deploy job when the repository has a production environment.
func defaultJobs(envByName map[string]entity.ID) []RunJobInput {
	jobs := []RunJobInput{{Name: "build"}}
	if _, ok := envByName["production"]; ok {
		jobs = append(jobs, RunJobInput{Name: "deploy", Environment: "production"})
	}
	return jobs
}

func NewCreateWorkflowRunUsecase(injector *do.Injector) (CreateWorkflowRunUsecase, error) {
	return &createWorkflowRunUsecaseImpl{
		repositoryRepository:  do.MustInvoke[repository.RepositoryRepository](injector),
		commitRepository:      do.MustInvoke[repository.CommitRepository](injector),
		environmentRepository: do.MustInvoke[repository.EnvironmentRepository](injector),
		orchestrator:          do.MustInvoke[*orchestrator.Orchestrator](injector),
	}, nil
}
