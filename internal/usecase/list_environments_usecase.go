package usecase

import (
	"context"

	"github.com/samber/do"
	"github.com/yz4230/forgehost/internal/entity"
	"github.com/yz4230/forgehost/internal/repository"
)

const recentDeployments = 5

type EnvironmentDetail struct {
	Environment *entity.Environment  `json:"environment"`
	Deployments []*entity.Deployment `json:"deployments"`
}

type ListEnvironmentsUsecase interface {
	Execute(ctx context.Context, repoName string) ([]*EnvironmentDetail, error)
}

type listEnvironmentsUsecaseImpl struct {
	repositoryRepository  repository.RepositoryRepository
	environmentRepository repository.EnvironmentRepository
	deploymentRepository  repository.DeploymentRepository
}

// Execute returns the repository's environments with their reviewers and the
// last few deployments of each.
func (u *listEnvironmentsUsecaseImpl) Execute(ctx context.Context, repoName string) ([]*EnvironmentDetail, error) {
	repo, err := u.repositoryRepository.GetByName(ctx, repoName)
	if err != nil {
		return nil, err
	}
	envs, err := u.environmentRepository.ListByRepo(ctx, repo.ID)
	if err != nil {
		return nil, err
	}
	details := make([]*EnvironmentDetail, len(envs))
	for i, env := range envs {
		deps, err := u.deploymentRepository.ListRecentByEnvironment(ctx, env.ID, recentDeployments)
		if err != nil {
			return nil, err
		}
		details[i] = &EnvironmentDetail{Environment: env, Deployments: deps}
	}
	return details, nil
}

func NewListEnvironmentsUsecase(injector *do.Injector) (ListEnvironmentsUsecase, error) {
	return &listEnvironmentsUsecaseImpl{
		repositoryRepository:  do.MustInvoke[repository.RepositoryRepository](injector),
		environmentRepository: do.MustInvoke[repository.EnvironmentRepository](injector),
		deploymentRepository:  do.MustInvoke[repository.DeploymentRepository](injector),
	}, nil
}
