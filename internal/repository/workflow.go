package repository

import (
	"context"

	"github.com/yz4230/forgehost/internal/entity"
	"gorm.io/gorm"
)

type WorkflowRunRepository interface {
	Create(ctx context.Context, run *entity.WorkflowRun) (*entity.WorkflowRun, error)
	GetByID(ctx context.Context, id entity.ID) (*entity.WorkflowRun, error)
	Update(ctx context.Context, run *entity.WorkflowRun) (*entity.WorkflowRun, error)
	ListByRepo(ctx context.Context, repoID entity.ID) ([]*entity.WorkflowRun, error)
}

type workflowRunRepositoryImpl struct {
	db *gorm.DB
}

func NewWorkflowRunRepository(db *gorm.DB) WorkflowRunRepository {
	return &workflowRunRepositoryImpl{db: db}
}

func (r *workflowRunRepositoryImpl) Create(ctx context.Context, run *entity.WorkflowRun) (*entity.WorkflowRun, error) {
	var model WorkflowRun
	model.FromEntity(run)
	if err := gorm.G[WorkflowRun](r.db).Create(ctx, &model); err != nil {
		return nil, translate(err)
	}
	return model.ToEntity(), nil
}

func (r *workflowRunRepositoryImpl) GetByID(ctx context.Context, id entity.ID) (*entity.WorkflowRun, error) {
	found, err := gorm.G[WorkflowRun](r.db).Where("id = ?", id.Uint()).First(ctx)
	if err != nil {
		return nil, translate(err)
	}
	return found.ToEntity(), nil
}

func (r *workflowRunRepositoryImpl) Update(ctx context.Context, run *entity.WorkflowRun) (*entity.WorkflowRun, error) {
	var model WorkflowRun
	model.FromEntity(run)
	// Select forces zero-valued columns (cleared conclusion, false flags)
	// through; Updates alone would skip them.
	err := r.db.WithContext(ctx).Model(&WorkflowRun{}).
		Where("id = ?", run.ID.Uint()).
		Select("workflow_id", "repo_id", "commit_sha", "branch", "event", "status", "conclusion", "cancelled").
		Updates(&model).Error
	if err != nil {
		return nil, translate(err)
	}
	return r.GetByID(ctx, run.ID)
}

func (r *workflowRunRepositoryImpl) ListByRepo(ctx context.Context, repoID entity.ID) ([]*entity.WorkflowRun, error) {
	founds, err := gorm.G[WorkflowRun](r.db).
		Where("repo_id = ?", repoID.Uint()).
		Order("created_at DESC").
		Find(ctx)
	if err != nil {
		return nil, translate(err)
	}
	res := make([]*entity.WorkflowRun, len(founds))
	for i, f := range founds {
		res[i] = f.ToEntity()
	}
	return res, nil
}

type WorkflowJobRepository interface {
	Create(ctx context.Context, job *entity.WorkflowJob) (*entity.WorkflowJob, error)
	GetByID(ctx context.Context, id entity.ID) (*entity.WorkflowJob, error)
	Update(ctx context.Context, job *entity.WorkflowJob) (*entity.WorkflowJob, error)
	ListByRun(ctx context.Context, runID entity.ID) ([]*entity.WorkflowJob, error)
	// ListGated returns the jobs of the run bound to the environment that are
	// still awaiting an approval decision.
	ListGated(ctx context.Context, runID, environmentID entity.ID) ([]*entity.WorkflowJob, error)
	ListByStatus(ctx context.Context, status entity.JobStatus, limit int) ([]*entity.WorkflowJob, error)
}

type workflowJobRepositoryImpl struct {
	db *gorm.DB
}

func NewWorkflowJobRepository(db *gorm.DB) WorkflowJobRepository {
	return &workflowJobRepositoryImpl{db: db}
}

func (r *workflowJobRepositoryImpl) Create(ctx context.Context, job *entity.WorkflowJob) (*entity.WorkflowJob, error) {
	var model WorkflowJob
	model.FromEntity(job)
	if err := gorm.G[WorkflowJob](r.db).Create(ctx, &model); err != nil {
		return nil, translate(err)
	}
	return model.ToEntity(), nil
}

func (r *workflowJobRepositoryImpl) GetByID(ctx context.Context, id entity.ID) (*entity.WorkflowJob, error) {
	found, err := gorm.G[WorkflowJob](r.db).Where("id = ?", id.Uint()).First(ctx)
	if err != nil {
		return nil, translate(err)
	}
	return found.ToEntity(), nil
}

func (r *workflowJobRepositoryImpl) Update(ctx context.Context, job *entity.WorkflowJob) (*entity.WorkflowJob, error) {
	var model WorkflowJob
	model.FromEntity(job)
	err := r.db.WithContext(ctx).Model(&WorkflowJob{}).
		Where("id = ?", job.ID.Uint()).
		Select("run_id", "name", "environment_id", "external_id", "status", "conclusion").
		Updates(&model).Error
	if err != nil {
		return nil, translate(err)
	}
	return r.GetByID(ctx, job.ID)
}

func (r *workflowJobRepositoryImpl) ListByRun(ctx context.Context, runID entity.ID) ([]*entity.WorkflowJob, error) {
	founds, err := gorm.G[WorkflowJob](r.db).
		Where("run_id = ?", runID.Uint()).
		Order("id ASC").
		Find(ctx)
	if err != nil {
		return nil, translate(err)
	}
	res := make([]*entity.WorkflowJob, len(founds))
	for i, f := range founds {
		res[i] = f.ToEntity()
	}
	return res, nil
}

func (r *workflowJobRepositoryImpl) ListGated(ctx context.Context, runID, environmentID entity.ID) ([]*entity.WorkflowJob, error) {
	founds, err := gorm.G[WorkflowJob](r.db).
		Where("run_id = ? AND environment_id = ? AND status = ?",
			runID.Uint(), environmentID.Uint(), string(entity.JobActionRequired)).
		Order("id ASC").
		Find(ctx)
	if err != nil {
		return nil, translate(err)
	}
	res := make([]*entity.WorkflowJob, len(founds))
	for i, f := range founds {
		res[i] = f.ToEntity()
	}
	return res, nil
}

func (r *workflowJobRepositoryImpl) ListByStatus(ctx context.Context, status entity.JobStatus, limit int) ([]*entity.WorkflowJob, error) {
	founds, err := gorm.G[WorkflowJob](r.db).
		Where("status = ?", string(status)).
		Order("id ASC").
		Limit(limit).
		Find(ctx)
	if err != nil {
		return nil, translate(err)
	}
	res := make([]*entity.WorkflowJob, len(founds))
	for i, f := range founds {
		res[i] = f.ToEntity()
	}
	return res, nil
}
