package usecase

import (
	"context"
	"fmt"

	"github.com/samber/do"
	"github.com/yz4230/forgehost/internal/entity"
	"github.com/yz4230/forgehost/internal/orchestrator"
	"github.com/yz4230/forgehost/internal/repository"
)

type CompleteJobInput struct {
	RunID      entity.ID
	JobID      entity.ID
	Conclusion entity.JobConclusion
}

type CompleteJobUsecase interface {
	// Execute records the backend's outcome for the job and finalizes the
	// run once every job is done.
	Execute(ctx context.Context, in CompleteJobInput) (*entity.WorkflowJob, error)
}

type completeJobUsecaseImpl struct {
	jobRepository repository.WorkflowJobRepository
	orchestrator  *orchestrator.Orchestrator
}

// Execute implements CompleteJobUsecase.
func (u *completeJobUsecaseImpl) Execute(ctx context.Context, in CompleteJobInput) (*entity.WorkflowJob, error) {
	switch in.Conclusion {
	case entity.JobSuccess, entity.JobFailure, entity.JobCancelled:
	default:
		return nil, fmt.Errorf("conclusion %q: %w", in.Conclusion, entity.ErrInvalid)
	}
	job, err := u.jobRepository.GetByID(ctx, in.JobID)
	if err != nil {
		return nil, err
	}
	if job.RunID != in.RunID {
		return nil, entity.ErrNotFound
	}
	return u.orchestrator.CompleteJob(ctx, in.JobID, in.Conclusion)
}

func NewCompleteJobUsecase(injector *do.Injector) (CompleteJobUsecase, error) {
	return &completeJobUsecaseImpl{
		jobRepository: do.MustInvoke[repository.WorkflowJobRepository](injector),
		orchestrator:  do.MustInvoke[*orchestrator.Orchestrator](injector),
	}, nil
}
