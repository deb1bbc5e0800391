package repository

import (
	"context"

	"github.com/yz4230/forgehost/internal/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CommitRepository interface {
	// Upsert inserts the commit, or, when (repo, sha) already exists,
	// refreshes only the verification hash. The immutable git fields of an
	// existing row are never touched. Returns the stored row.
	Upsert(ctx context.Context, commit *entity.Commit) (*entity.Commit, error)
	GetByRepoAndSHA(ctx context.Context, repoID entity.ID, sha string) (*entity.Commit, error)
	ListByRepo(ctx context.Context, repoID entity.ID) ([]*entity.Commit, error)
}

type commitRepositoryImpl struct {
	db *gorm.DB
}

func NewCommitRepository(db *gorm.DB) CommitRepository {
	return &commitRepositoryImpl{db: db}
}

func (r *commitRepositoryImpl) Upsert(ctx context.Context, commit *entity.Commit) (*entity.Commit, error) {
	var model Commit
	model.FromEntity(commit)
	// Conflict-then-update on the composite unique index keeps two racing
	// ingestions of the same commit from creating two rows.
	err := gorm.G[Commit](r.db, clause.OnConflict{
		Columns:   []clause.Column{{Name: "repo_id"}, {Name: "sha"}},
		DoUpdates: clause.AssignmentColumns([]string{"verification_hash", "updated_at"}),
	}).Create(ctx, &model)
	if err != nil {
		return nil, translate(err)
	}
	return r.GetByRepoAndSHA(ctx, commit.RepoID, commit.SHA)
}

func (r *commitRepositoryImpl) GetByRepoAndSHA(ctx context.Context, repoID entity.ID, sha string) (*entity.Commit, error) {
	found, err := gorm.G[Commit](r.db).
		Where("repo_id = ? AND sha = ?", repoID.Uint(), sha).
		First(ctx)
	if err != nil {
		return nil, translate(err)
	}
	return found.ToEntity(), nil
}

func (r *commitRepositoryImpl) ListByRepo(ctx context.Context, repoID entity.ID) ([]*entity.Commit, error) {
	founds, err := gorm.G[Commit](r.db).
		Where("repo_id = ?", repoID.Uint()).
		Order("created_at DESC").
		Find(ctx)
	if err != nil {
		return nil, translate(err)
	}
	res := make([]*entity.Commit, len(founds))
	for i, f := range founds {
		res[i] = f.ToEntity()
	}
	return res, nil
}
