package usecase

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/samber/do"
	"github.com/yz4230/forgehost/internal/entity"
	"github.com/yz4230/forgehost/internal/orchestrator"
	"github.com/yz4230/forgehost/internal/repository"
)

type SubmitApprovalInput struct {
	DeploymentID entity.ID
	UserID       entity.ID
	State        entity.ApprovalState
	Comment      string
}

type SubmitApprovalUsecase interface {
	Execute(ctx context.Context, in SubmitApprovalInput) (*entity.Deployment, error)
}

type submitApprovalUsecaseImpl struct {
	txManager    repository.TxManager
	orchestrator *orchestrator.Orchestrator
}

// Execute records one reviewer decision and resolves the deployment. The
// whole decision runs in one transaction, so of two racing submissions the
// second observes a terminal status and gets ErrConflict. The first approval
// unlocks the gated job; a rejection skips every gated job of the pair.
func (u *submitApprovalUsecaseImpl) Execute(ctx context.Context, in SubmitApprovalInput) (*entity.Deployment, error) {
	if in.State != entity.ApprovalApproved && in.State != entity.ApprovalRejected {
		return nil, entity.ErrInvalid
	}

	var resolved *entity.Deployment
	err := u.txManager.Do(ctx, func(r *repository.Repositories) error {
		dep, err := r.Deployments.GetByID(ctx, in.DeploymentID)
		if err != nil {
			return err
		}
		env, err := r.Environments.GetByID(ctx, dep.EnvironmentID)
		if err != nil {
			return err
		}
		if !env.HasReviewer(in.UserID) {
			return fmt.Errorf("user %s is not a reviewer of %s: %w", in.UserID, env.Name, entity.ErrForbidden)
		}
		if dep.Resolved() {
			return fmt.Errorf("deployment %s already %s: %w", dep.ID, dep.Status, entity.ErrConflict)
		}

		if _, err := r.Deployments.AddApproval(ctx, &entity.DeploymentApproval{
			DeploymentID: dep.ID,
			UserID:       in.UserID,
			State:        in.State,
			Comment:      in.Comment,
		}); err != nil {
			return err
		}

		switch in.State {
		case entity.ApprovalApproved:
			resolved, err = r.Deployments.UpdateStatus(ctx, dep.ID, entity.DeploymentApproved)
			if err != nil {
				return err
			}
			return u.orchestrator.ResumeGatedJob(ctx, r, dep.RunID, dep.EnvironmentID)
		default:
			resolved, err = r.Deployments.UpdateStatus(ctx, dep.ID, entity.DeploymentRejected)
			if err != nil {
				return err
			}
			return u.orchestrator.SkipGatedJobs(ctx, r, dep.RunID, dep.EnvironmentID)
		}
	})
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Info().
		Str("deployment_id", resolved.ID.String()).
		Str("status", string(resolved.Status)).
		Str("user_id", in.UserID.String()).
		Msg("deployment decision recorded")
	return resolved, nil
}

func NewSubmitApprovalUsecase(injector *do.Injector) (SubmitApprovalUsecase, error) {
	return &submitApprovalUsecaseImpl{
		txManager:    do.MustInvoke[repository.TxManager](injector),
		orchestrator: do.MustInvoke[*orchestrator.Orchestrator](injector),
	}, nil
}
