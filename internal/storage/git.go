package storage

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/yz4230/forgehost/internal/utils"
)

type GitStorage interface {
	RepoDir(reponame string) string
	IsRepoExist(reponame string) bool
	InitBareRepo(ctx context.Context, reponame string) error
	EnsureBareRepo(ctx context.Context, reponame string) error
}

type gitStorageImpl struct {
	rootDir string
	log     zerolog.Logger
}

func NewGitStorage(root string, log zerolog.Logger) GitStorage {
	return &gitStorageImpl{rootDir: root, log: log}
}

// RepoDir implements GitStorage.
func (g *gitStorageImpl) RepoDir(reponame string) string {
	return lo.Must(filepath.Abs(filepath.Join(g.rootDir, utils.EnsureSuffix(reponame, ".git"))))
}

// IsRepoExist implements GitStorage.
func (g *gitStorageImpl) IsRepoExist(reponame string) bool {
	_, err := os.Stat(g.RepoDir(reponame))
	return err == nil
}

// InitBareRepo implements GitStorage. Besides `git init --bare` it installs
// the post-receive hook that calls this binary back for ingestion.
func (g *gitStorageImpl) InitBareRepo(ctx context.Context, reponame string) error {
	repodir := g.RepoDir(reponame)
	if err := os.MkdirAll(repodir, os.ModePerm); err != nil {
		return fmt.Errorf("create repo dir: %w", err)
	}
	if err := exec.CommandContext(ctx, "git", "init", "--bare", repodir).Run(); err != nil {
		return fmt.Errorf("init bare repo: %w", err)
	}

	hooksDir := filepath.Join(repodir, "hooks")
	if err := os.MkdirAll(hooksDir, os.ModePerm); err != nil {
		return fmt.Errorf("create hooks dir: %w", err)
	}
	scriptPath := filepath.Join(hooksDir, "post-receive")
	scriptContent := shellScript(fmt.Sprintf("%s hook post-receive", os.Args[0]))
	if err := os.WriteFile(scriptPath, []byte(scriptContent), os.ModePerm); err != nil {
		return fmt.Errorf("write post-receive hook: %w", err)
	}

	g.log.Info().Str("dir", repodir).Msg("initialized bare git repository")
	return nil
}

// EnsureBareRepo implements GitStorage.
func (g *gitStorageImpl) EnsureBareRepo(ctx context.Context, reponame string) error {
	if g.IsRepoExist(reponame) {
		return nil
	}
	return g.InitBareRepo(ctx, reponame)
}

func shellScript(lines ...string) string {
	return "#!/bin/sh\n" + strings.Join(lines, "\n") + "\n"
}
