package usecase

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/samber/do"
	"github.com/yz4230/forgehost/internal/entity"
	"github.com/yz4230/forgehost/internal/gitobj"
	"github.com/yz4230/forgehost/internal/integrity"
	"github.com/yz4230/forgehost/internal/repository"
	"github.com/yz4230/forgehost/internal/storage"
)

type IngestCommitUsecase interface {
	Execute(ctx context.Context, repoName, sha string) (*entity.Commit, error)
}

type ingestCommitUsecaseImpl struct {
	gitStorage           storage.GitStorage
	repositoryRepository repository.RepositoryRepository
	userRepository       repository.UserRepository
	verifier             integrity.SignatureVerifier
	txManager            repository.TxManager
}

// Execute reads the raw commit from the object store, resolves the author's
// identity and signing key, computes the verification hash, and upserts the
// commit row. Signature problems degrade the signature status; they never
// fail ingestion.
func (u *ingestCommitUsecaseImpl) Execute(ctx context.Context, repoName, sha string) (*entity.Commit, error) {
	log := zerolog.Ctx(ctx)

	repo, err := u.repositoryRepository.GetByName(ctx, repoName)
	if err != nil {
		return nil, err
	}
	raw, err := gitobj.ReadCommit(ctx, u.gitStorage.RepoDir(repo.Name), sha)
	if err != nil {
		return nil, err
	}

	commit := &entity.Commit{
		RepoID:    repo.ID,
		SHA:       raw.SHA,
		TreeSHA:   raw.TreeSHA,
		Parents:   raw.Parents,
		Author:    raw.Author,
		Committer: raw.Committer,
		Message:   raw.Message,
	}

	// A commit by an email the platform has never seen is a normal case.
	var signingKey *entity.SigningKey
	author, err := u.userRepository.GetByEmail(ctx, raw.Author.Email)
	switch {
	case err == nil:
		commit.AuthorUserID = author.ID
		key, kerr := u.userRepository.LatestSigningKey(ctx, author.ID)
		if kerr == nil {
			signingKey = key
		} else if !errors.Is(kerr, entity.ErrNotFound) {
			return nil, kerr
		}
	case errors.Is(err, entity.ErrNotFound):
	default:
		return nil, err
	}

	commit.SignatureStatus = u.verifySignature(ctx, raw, signingKey)

	fingerprint := ""
	if raw.Signature != "" && signingKey != nil {
		fingerprint = signerFingerprint(signingKey)
	}
	// Hash over the full message, then truncate for storage.
	commit.VerificationHash = integrity.ComputeVerificationHash(commit, fingerprint)
	commit.Message = truncateMessage(commit.Message)

	var stored *entity.Commit
	err = u.txManager.Do(ctx, func(r *repository.Repositories) error {
		stored, err = r.Commits.Upsert(ctx, commit)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("repo", repo.Name).
		Str("sha", sha).
		Str("signature_status", string(stored.SignatureStatus)).
		Msg("commit ingested")
	return stored, nil
}

func (u *ingestCommitUsecaseImpl) verifySignature(ctx context.Context, raw *gitobj.RawCommit, key *entity.SigningKey) entity.SignatureStatus {
	if raw.Signature == "" {
		return entity.SignatureUnsigned
	}
	if key == nil {
		// Signed, but no key registered to check against.
		return entity.SignatureInvalid
	}
	var ok bool
	switch raw.SignatureKind() {
	case entity.SigningKeySSH:
		ok = u.verifier.VerifySSH(ctx, raw.SignedPayload(), raw.Signature, key.PublicKey, raw.Author.Email)
	default:
		ok = u.verifier.VerifyPGP(ctx, raw.SignedPayload(), raw.Signature, key.PublicKey)
	}
	if !ok {
		return entity.SignatureInvalid
	}
	return entity.SignatureVerified
}

// signerFingerprint derives the fingerprint from the key material itself.
// The stored fingerprint column is display metadata; a stale or tampered
// value must not leak into the verification hash.
func signerFingerprint(key *entity.SigningKey) string {
	if key.Kind == entity.SigningKeySSH {
		if fp, err := integrity.SSHFingerprint(key.PublicKey); err == nil {
			return fp
		}
	}
	return key.Fingerprint
}

const maxMessageLen = 1024

func truncateMessage(msg string) string {
	if len(msg) > maxMessageLen {
		return msg[:maxMessageLen]
	}
	return msg
}

func NewIngestCommitUsecase(injector *do.Injector) (IngestCommitUsecase, error) {
	return &ingestCommitUsecaseImpl{
		gitStorage:           do.MustInvoke[storage.GitStorage](injector),
		repositoryRepository: do.MustInvoke[repository.RepositoryRepository](injector),
		userRepository:       do.MustInvoke[repository.UserRepository](injector),
		verifier:             do.MustInvoke[integrity.SignatureVerifier](injector),
		txManager:            do.MustInvoke[repository.TxManager](injector),
	}, nil
}
