package usecase

import (
	"context"

	"github.com/samber/do"
	"github.com/yz4230/forgehost/internal/entity"
	"github.com/yz4230/forgehost/internal/orchestrator"
)

type CancelWorkflowRunUsecase interface {
	Execute(ctx context.Context, runID entity.ID) (*entity.WorkflowRun, error)
}

type cancelWorkflowRunUsecaseImpl struct {
	orchestrator *orchestrator.Orchestrator
}

// Execute implements CancelWorkflowRunUsecase.
func (u *cancelWorkflowRunUsecaseImpl) Execute(ctx context.Context, runID entity.ID) (*entity.WorkflowRun, error) {
	return u.orchestrator.CancelRun(ctx, runID)
}

func NewCancelWorkflowRunUsecase(injector *do.Injector) (CancelWorkflowRunUsecase, error) {
	return &cancelWorkflowRunUsecaseImpl{
		orchestrator: do.MustInvoke[*orchestrator.Orchestrator](injector),
	}, nil
}
