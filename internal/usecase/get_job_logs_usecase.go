package usecase

import (
	"context"
	"fmt"
	"io"

	"github.com/samber/do"
	"github.com/yz4230/forgehost/internal/engine"
	"github.com/yz4230/forgehost/internal/entity"
	"github.com/yz4230/forgehost/internal/repository"
)

type GetJobLogsUsecase interface {
	// Execute returns the backend's live log stream for the job. The caller
	// owns the returned reader.
	Execute(ctx context.Context, runID, jobID entity.ID) (io.ReadCloser, error)
}

type getJobLogsUsecaseImpl struct {
	jobRepository repository.WorkflowJobRepository
	engine        engine.Engine
}

// Execute implements GetJobLogsUsecase.
func (u *getJobLogsUsecaseImpl) Execute(ctx context.Context, runID, jobID entity.ID) (io.ReadCloser, error) {
	job, err := u.jobRepository.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.RunID != runID {
		return nil, entity.ErrNotFound
	}
	if job.ExternalID == "" {
		return nil, fmt.Errorf("job %s has not been triggered: %w", jobID, entity.ErrNotFound)
	}
	return u.engine.GetLogs(ctx, job.ExternalID, job.Name)
}

func NewGetJobLogsUsecase(injector *do.Injector) (GetJobLogsUsecase, error) {
	return &getJobLogsUsecaseImpl{
		jobRepository: do.MustInvoke[repository.WorkflowJobRepository](injector),
		engine:        do.MustInvoke[engine.Engine](injector),
	}, nil
}
