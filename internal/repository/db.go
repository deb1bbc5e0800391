package repository

import (
	"context"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewSQLiteDB opens (or creates) the database under dataDir and migrates the
// schema. Pass ":memory:" as dataDir for an ephemeral database in tests.
func NewSQLiteDB(dataDir string) (*gorm.DB, error) {
	dsn := ":memory:"
	if dataDir != ":memory:" {
		dsn = filepath.Join(dataDir, "forgehost.db")
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(
		&Repository{},
		&User{},
		&SigningKey{},
		&Commit{},
		&CommitArtifact{},
		&WorkflowRun{},
		&WorkflowJob{},
		&Environment{},
		&EnvironmentReviewer{},
		&Deployment{},
		&DeploymentApproval{},
	); err != nil {
		return nil, err
	}
	return db, nil
}

// Repositories bundles every aggregate repository bound to one *gorm.DB (or
// one transaction).
type Repositories struct {
	Repos        RepositoryRepository
	Users        UserRepository
	Commits      CommitRepository
	Artifacts    ArtifactRepository
	Runs         WorkflowRunRepository
	Jobs         WorkflowJobRepository
	Environments EnvironmentRepository
	Deployments  DeploymentRepository
}

func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Repos:        NewRepositoryRepository(db),
		Users:        NewUserRepository(db),
		Commits:      NewCommitRepository(db),
		Artifacts:    NewArtifactRepository(db),
		Runs:         NewWorkflowRunRepository(db),
		Jobs:         NewWorkflowJobRepository(db),
		Environments: NewEnvironmentRepository(db),
		Deployments:  NewDeploymentRepository(db),
	}
}

// TxManager runs a function with all repositories bound to one transaction,
// so multi-aggregate updates either all commit or all roll back. Concurrent
// callers touching the same rows are serialized by the storage layer.
type TxManager interface {
	Do(ctx context.Context, fn func(r *Repositories) error) error
}

type txManagerImpl struct {
	db *gorm.DB
}

func NewTxManager(db *gorm.DB) TxManager {
	return &txManagerImpl{db: db}
}

func (m *txManagerImpl) Do(ctx context.Context, fn func(r *Repositories) error) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}
