package repository

import (
	"context"

	"github.com/yz4230/forgehost/internal/entity"
	"gorm.io/gorm"
)

type RepositoryRepository interface {
	Create(ctx context.Context, repo *entity.Repository) (*entity.Repository, error)
	GetByID(ctx context.Context, id entity.ID) (*entity.Repository, error)
	GetByName(ctx context.Context, name string) (*entity.Repository, error)
	List(ctx context.Context) ([]*entity.Repository, error)
	Update(ctx context.Context, repo *entity.Repository) (*entity.Repository, error)
}

type repositoryRepositoryImpl struct {
	db *gorm.DB
}

func NewRepositoryRepository(db *gorm.DB) RepositoryRepository {
	return &repositoryRepositoryImpl{db: db}
}

func (r *repositoryRepositoryImpl) Create(ctx context.Context, repo *entity.Repository) (*entity.Repository, error) {
	var model Repository
	model.FromEntity(repo)
	if err := gorm.G[Repository](r.db).Create(ctx, &model); err != nil {
		return nil, translate(err)
	}
	return model.ToEntity(), nil
}

func (r *repositoryRepositoryImpl) GetByID(ctx context.Context, id entity.ID) (*entity.Repository, error) {
	found, err := gorm.G[Repository](r.db).Where("id = ?", id.Uint()).First(ctx)
	if err != nil {
		return nil, translate(err)
	}
	return found.ToEntity(), nil
}

func (r *repositoryRepositoryImpl) GetByName(ctx context.Context, name string) (*entity.Repository, error) {
	found, err := gorm.G[Repository](r.db).Where("name = ?", name).First(ctx)
	if err != nil {
		return nil, translate(err)
	}
	return found.ToEntity(), nil
}

func (r *repositoryRepositoryImpl) List(ctx context.Context) ([]*entity.Repository, error) {
	founds, err := gorm.G[Repository](r.db).Find(ctx)
	if err != nil {
		return nil, translate(err)
	}
	res := make([]*entity.Repository, len(founds))
	for i, f := range founds {
		res[i] = f.ToEntity()
	}
	return res, nil
}

func (r *repositoryRepositoryImpl) Update(ctx context.Context, repo *entity.Repository) (*entity.Repository, error) {
	var model Repository
	model.FromEntity(repo)
	if _, err := gorm.G[Repository](r.db).Where("id = ?", repo.ID.Uint()).Updates(ctx, model); err != nil {
		return nil, translate(err)
	}
	return r.GetByID(ctx, repo.ID)
}
