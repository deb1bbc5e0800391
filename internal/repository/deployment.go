package repository

import (
	"context"

	"github.com/yz4230/forgehost/internal/entity"
	"gorm.io/gorm"
)

type DeploymentRepository interface {
	Create(ctx context.Context, dep *entity.Deployment) (*entity.Deployment, error)
	GetByID(ctx context.Context, id entity.ID) (*entity.Deployment, error)
	// UpdateStatus resolves the deployment. It only succeeds while the row is
	// still waiting, so racing decisions cannot both win.
	UpdateStatus(ctx context.Context, id entity.ID, status entity.DeploymentStatus) (*entity.Deployment, error)
	ListRecentByEnvironment(ctx context.Context, environmentID entity.ID, limit int) ([]*entity.Deployment, error)
	AddApproval(ctx context.Context, approval *entity.DeploymentApproval) (*entity.DeploymentApproval, error)
	ListApprovals(ctx context.Context, deploymentID entity.ID) ([]*entity.DeploymentApproval, error)
}

type deploymentRepositoryImpl struct {
	db *gorm.DB
}

func NewDeploymentRepository(db *gorm.DB) DeploymentRepository {
	return &deploymentRepositoryImpl{db: db}
}

func (r *deploymentRepositoryImpl) Create(ctx context.Context, dep *entity.Deployment) (*entity.Deployment, error) {
	var model Deployment
	model.FromEntity(dep)
	if err := gorm.G[Deployment](r.db).Create(ctx, &model); err != nil {
		return nil, translate(err)
	}
	return model.ToEntity(), nil
}

func (r *deploymentRepositoryImpl) GetByID(ctx context.Context, id entity.ID) (*entity.Deployment, error) {
	found, err := gorm.G[Deployment](r.db).Where("id = ?", id.Uint()).First(ctx)
	if err != nil {
		return nil, translate(err)
	}
	return found.ToEntity(), nil
}

func (r *deploymentRepositoryImpl) UpdateStatus(ctx context.Context, id entity.ID, status entity.DeploymentStatus) (*entity.Deployment, error) {
	rows, err := gorm.G[Deployment](r.db).
		Where("id = ? AND status = ?", id.Uint(), string(entity.DeploymentWaiting)).
		Updates(ctx, Deployment{Status: string(status)})
	if err != nil {
		return nil, translate(err)
	}
	if rows == 0 {
		return nil, entity.ErrConflict
	}
	return r.GetByID(ctx, id)
}

func (r *deploymentRepositoryImpl) ListRecentByEnvironment(ctx context.Context, environmentID entity.ID, limit int) ([]*entity.Deployment, error) {
	founds, err := gorm.G[Deployment](r.db).
		Where("environment_id = ?", environmentID.Uint()).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(ctx)
	if err != nil {
		return nil, translate(err)
	}
	res := make([]*entity.Deployment, len(founds))
	for i, f := range founds {
		res[i] = f.ToEntity()
	}
	return res, nil
}

func (r *deploymentRepositoryImpl) AddApproval(ctx context.Context, approval *entity.DeploymentApproval) (*entity.DeploymentApproval, error) {
	var model DeploymentApproval
	model.FromEntity(approval)
	if err := gorm.G[DeploymentApproval](r.db).Create(ctx, &model); err != nil {
		return nil, translate(err)
	}
	return model.ToEntity(), nil
}

func (r *deploymentRepositoryImpl) ListApprovals(ctx context.Context, deploymentID entity.ID) ([]*entity.DeploymentApproval, error) {
	founds, err := gorm.G[DeploymentApproval](r.db).
		Where("deployment_id = ?", deploymentID.Uint()).
		Order("id ASC").
		Find(ctx)
	if err != nil {
		return nil, translate(err)
	}
	res := make([]*entity.DeploymentApproval, len(founds))
	for i, f := range founds {
		res[i] = f.ToEntity()
	}
	return res, nil
}
