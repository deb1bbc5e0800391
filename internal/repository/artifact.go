package repository

import (
	"context"

	"github.com/yz4230/forgehost/internal/entity"
	"gorm.io/gorm"
)

type ArtifactRepository interface {
	Create(ctx context.Context, artifact *entity.CommitArtifact) (*entity.CommitArtifact, error)
	GetByID(ctx context.Context, id entity.ID) (*entity.CommitArtifact, error)
	ListByCommit(ctx context.Context, commitID entity.ID) ([]*entity.CommitArtifact, error)
}

type artifactRepositoryImpl struct {
	db *gorm.DB
}

func NewArtifactRepository(db *gorm.DB) ArtifactRepository {
	return &artifactRepositoryImpl{db: db}
}

// Create persists the immutable artifact row. There is no Update: a wrong
// artifact is corrected by uploading a new one.
func (r *artifactRepositoryImpl) Create(ctx context.Context, artifact *entity.CommitArtifact) (*entity.CommitArtifact, error) {
	var model CommitArtifact
	model.FromEntity(artifact)
	if err := gorm.G[CommitArtifact](r.db).Create(ctx, &model); err != nil {
		return nil, translate(err)
	}
	return model.ToEntity(), nil
}

func (r *artifactRepositoryImpl) GetByID(ctx context.Context, id entity.ID) (*entity.CommitArtifact, error) {
	found, err := gorm.G[CommitArtifact](r.db).Where("id = ?", id.Uint()).First(ctx)
	if err != nil {
		return nil, translate(err)
	}
	return found.ToEntity(), nil
}

func (r *artifactRepositoryImpl) ListByCommit(ctx context.Context, commitID entity.ID) ([]*entity.CommitArtifact, error) {
	founds, err := gorm.G[CommitArtifact](r.db).
		Where("commit_id = ?", commitID.Uint()).
		Find(ctx)
	if err != nil {
		return nil, translate(err)
	}
	res := make([]*entity.CommitArtifact, len(founds))
	for i, f := range founds {
		res[i] = f.ToEntity()
	}
	return res, nil
}
