package repository

import (
	"context"

	"github.com/yz4230/forgehost/internal/entity"
	"gorm.io/gorm"
)

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	AddSigningKey(ctx context.Context, key *entity.SigningKey) (*entity.SigningKey, error)
	// LatestSigningKey returns the most recently registered key of the user,
	// or entity.ErrNotFound if none was ever registered.
	LatestSigningKey(ctx context.Context, userID entity.ID) (*entity.SigningKey, error)
}

type userRepositoryImpl struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepositoryImpl{db: db}
}

func (r *userRepositoryImpl) Create(ctx context.Context, user *entity.User) (*entity.User, error) {
	var model User
	model.FromEntity(user)
	if err := gorm.G[User](r.db).Create(ctx, &model); err != nil {
		return nil, translate(err)
	}
	return model.ToEntity(), nil
}

func (r *userRepositoryImpl) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	found, err := gorm.G[User](r.db).Where("email = ?", email).First(ctx)
	if err != nil {
		return nil, translate(err)
	}
	return found.ToEntity(), nil
}

func (r *userRepositoryImpl) AddSigningKey(ctx context.Context, key *entity.SigningKey) (*entity.SigningKey, error) {
	var model SigningKey
	model.FromEntity(key)
	if err := gorm.G[SigningKey](r.db).Create(ctx, &model); err != nil {
		return nil, translate(err)
	}
	return model.ToEntity(), nil
}

func (r *userRepositoryImpl) LatestSigningKey(ctx context.Context, userID entity.ID) (*entity.SigningKey, error) {
	found, err := gorm.G[SigningKey](r.db).
		Where("user_id = ?", userID.Uint()).
		Order("created_at DESC, id DESC").
		First(ctx)
	if err != nil {
		return nil, translate(err)
	}
	return found.ToEntity(), nil
}
