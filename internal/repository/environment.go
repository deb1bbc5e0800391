package repository

import (
	"context"

	"github.com/yz4230/forgehost/internal/entity"
	"gorm.io/gorm"
)

type EnvironmentRepository interface {
	Create(ctx context.Context, env *entity.Environment) (*entity.Environment, error)
	GetByID(ctx context.Context, id entity.ID) (*entity.Environment, error)
	ListByRepo(ctx context.Context, repoID entity.ID) ([]*entity.Environment, error)
	AddReviewer(ctx context.Context, environmentID, userID entity.ID) error
}

type environmentRepositoryImpl struct {
	db *gorm.DB
}

func NewEnvironmentRepository(db *gorm.DB) EnvironmentRepository {
	return &environmentRepositoryImpl{db: db}
}

func (r *environmentRepositoryImpl) Create(ctx context.Context, env *entity.Environment) (*entity.Environment, error) {
	model := Environment{RepoID: env.RepoID.Uint(), Name: env.Name}
	if err := gorm.G[Environment](r.db).Create(ctx, &model); err != nil {
		return nil, translate(err)
	}
	created := *env
	created.ID = entity.NewID(model.ID)
	created.CreatedAt = model.CreatedAt
	for _, u := range env.Reviewers {
		if err := r.AddReviewer(ctx, created.ID, u.ID); err != nil {
			return nil, err
		}
	}
	return &created, nil
}

func (r *environmentRepositoryImpl) GetByID(ctx context.Context, id entity.ID) (*entity.Environment, error) {
	found, err := gorm.G[Environment](r.db).Where("id = ?", id.Uint()).First(ctx)
	if err != nil {
		return nil, translate(err)
	}
	return r.hydrate(ctx, &found)
}

func (r *environmentRepositoryImpl) ListByRepo(ctx context.Context, repoID entity.ID) ([]*entity.Environment, error) {
	founds, err := gorm.G[Environment](r.db).
		Where("repo_id = ?", repoID.Uint()).
		Order("name ASC").
		Find(ctx)
	if err != nil {
		return nil, translate(err)
	}
	res := make([]*entity.Environment, len(founds))
	for i := range founds {
		env, err := r.hydrate(ctx, &founds[i])
		if err != nil {
			return nil, err
		}
		res[i] = env
	}
	return res, nil
}

func (r *environmentRepositoryImpl) AddReviewer(ctx context.Context, environmentID, userID entity.ID) error {
	model := EnvironmentReviewer{
		EnvironmentID: environmentID.Uint(),
		UserID:        userID.Uint(),
	}
	return translate(gorm.G[EnvironmentReviewer](r.db).Create(ctx, &model))
}

// hydrate attaches the reviewer user set to the environment.
func (r *environmentRepositoryImpl) hydrate(ctx context.Context, model *Environment) (*entity.Environment, error) {
	env := &entity.Environment{
		ID:        entity.NewID(model.ID),
		RepoID:    entity.NewID(model.RepoID),
		Name:      model.Name,
		CreatedAt: model.CreatedAt,
	}
	links, err := gorm.G[EnvironmentReviewer](r.db).
		Where("environment_id = ?", model.ID).
		Find(ctx)
	if err != nil {
		return nil, translate(err)
	}
	for _, link := range links {
		user, err := gorm.G[User](r.db).Where("id = ?", link.UserID).First(ctx)
		if err != nil {
			return nil, translate(err)
		}
		env.Reviewers = append(env.Reviewers, *user.ToEntity())
	}
	return env, nil
}
