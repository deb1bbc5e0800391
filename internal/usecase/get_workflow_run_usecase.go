package usecase

import (
	"context"

	"github.com/samber/do"
	"github.com/yz4230/forgehost/internal/entity"
	"github.com/yz4230/forgehost/internal/repository"
)

type WorkflowRunDetail struct {
	Run  *entity.WorkflowRun   `json:"run"`
	Jobs []*entity.WorkflowJob `json:"jobs"`
}

type GetWorkflowRunUsecase interface {
	Execute(ctx context.Context, runID entity.ID) (*WorkflowRunDetail, error)
}

type getWorkflowRunUsecaseImpl struct {
	runRepository repository.WorkflowRunRepository
	jobRepository repository.WorkflowJobRepository
}

// Execute implements GetWorkflowRunUsecase.
func (u *getWorkflowRunUsecaseImpl) Execute(ctx context.Context, runID entity.ID) (*WorkflowRunDetail, error) {
	run, err := u.runRepository.GetByID(ctx, runID)
	if err != nil {
		return nil, err
	}
	jobs, err := u.jobRepository.ListByRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	return &WorkflowRunDetail{Run: run, Jobs: jobs}, nil
}

func NewGetWorkflowRunUsecase(injector *do.Injector) (GetWorkflowRunUsecase, error) {
	return &getWorkflowRunUsecaseImpl{
		runRepository: do.MustInvoke[repository.WorkflowRunRepository](injector),
		jobRepository: do.MustInvoke[repository.WorkflowJobRepository](injector),
	}, nil
}
