package usecase

import (
	"context"
	"io"

	"github.com/rs/zerolog"
	"github.com/samber/do"
	"github.com/yz4230/forgehost/internal/entity"
	"github.com/yz4230/forgehost/internal/repository"
	"github.com/yz4230/forgehost/internal/storage"
)

type UploadArtifactInput struct {
	RepoName  string
	CommitSHA string
	Name      string
	Kind      entity.ArtifactKind
	Body      io.Reader
}

type UploadArtifactUsecase interface {
	Execute(ctx context.Context, in UploadArtifactInput) (*entity.CommitArtifact, error)
}

type uploadArtifactUsecaseImpl struct {
	repositoryRepository repository.RepositoryRepository
	commitRepository     repository.CommitRepository
	artifactRepository   repository.ArtifactRepository
	artifactStorage      storage.ArtifactStorage
}

// Execute streams the upload into blob storage while hashing it, then binds
// the artifact to its commit. An artifact can never exist for a commit the
// system has not ingested.
func (u *uploadArtifactUsecaseImpl) Execute(ctx context.Context, in UploadArtifactInput) (*entity.CommitArtifact, error) {
	if in.Name == "" || in.Body == nil {
		return nil, entity.ErrInvalid
	}
	if in.Kind == "" {
		in.Kind = entity.ArtifactArchive
	}

	repo, err := u.repositoryRepository.GetByName(ctx, in.RepoName)
	if err != nil {
		return nil, err
	}
	commit, err := u.commitRepository.GetByRepoAndSHA(ctx, repo.ID, in.CommitSHA)
	if err != nil {
		return nil, err
	}

	blobID, contentHash, size, err := u.artifactStorage.Save(ctx, in.Body)
	if err != nil {
		return nil, err
	}

	artifact, err := u.artifactRepository.Create(ctx, &entity.CommitArtifact{
		CommitID:    commit.ID,
		Name:        in.Name,
		Kind:        in.Kind,
		ContentHash: contentHash,
		Size:        size,
		BlobID:      blobID,
	})
	if err != nil {
		// The blob is unreferenced; drop it rather than leave it ambiguous.
		if rmErr := u.artifactStorage.Remove(blobID); rmErr != nil {
			zerolog.Ctx(ctx).Error().Err(rmErr).Str("blob", blobID).Msg("abandon unreferenced blob")
		}
		return nil, err
	}

	zerolog.Ctx(ctx).Info().
		Str("repo", in.RepoName).
		Str("sha", in.CommitSHA).
		Str("artifact", in.Name).
		Int64("size", size).
		Msg("artifact uploaded")
	return artifact, nil
}

func NewUploadArtifactUsecase(injector *do.Injector) (UploadArtifactUsecase, error) {
	return &uploadArtifactUsecaseImpl{
		repositoryRepository: do.MustInvoke[repository.RepositoryRepository](injector),
		commitRepository:     do.MustInvoke[repository.CommitRepository](injector),
		artifactRepository:   do.MustInvoke[repository.ArtifactRepository](injector),
		artifactStorage:      do.MustInvoke[storage.ArtifactStorage](injector),
	}, nil
}
