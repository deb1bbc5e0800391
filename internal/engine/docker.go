package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/docker/docker/api/types/build"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/jsonmessage"
	"github.com/moby/go-archive"
	"github.com/rs/zerolog"
	"github.com/yz4230/forgehost/internal/storage"
)

// DockerEngine executes jobs as local docker containers built from the
// commit's tree. It is the in-process backend for hosts without an external
// CI server; the container id doubles as the external run id.
type DockerEngine struct {
	gitStorage storage.GitStorage
	log        zerolog.Logger
}

func NewDockerEngine(gitStorage storage.GitStorage, log zerolog.Logger) *DockerEngine {
	return &DockerEngine{gitStorage: gitStorage, log: log}
}

// CreateRun implements Engine. Any docker or checkout failure surfaces as a
// TriggerError so the orchestrator fails the job instead of crashing.
func (e *DockerEngine) CreateRun(ctx context.Context, req RunRequest) (string, error) {
	id, err := e.createRun(ctx, req)
	if err != nil {
		return "", &TriggerError{Backend: "docker", Err: err}
	}
	return id, nil
}

func (e *DockerEngine) createRun(ctx context.Context, req RunRequest) (string, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return "", fmt.Errorf("create docker client: %w", err)
	}
	defer cli.Close()

	workDir, err := e.checkout(ctx, req)
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(workDir)

	if _, err := os.Stat(filepath.Join(workDir, "Dockerfile")); err != nil {
		return "", fmt.Errorf("no Dockerfile at %s@%s", req.RepoName, req.CommitSHA)
	}

	labels := map[string]string{
		"forgehost.enabled":  "true",
		"forgehost.repo":     req.RepoName,
		"forgehost.commit":   req.CommitSHA,
		"forgehost.workflow": req.WorkflowID,
		"forgehost.job":      req.JobName,
	}

	imageTag := fmt.Sprintf("%s:%s", req.RepoName, req.CommitSHA)
	if err := e.buildImage(ctx, cli, workDir, imageTag, labels); err != nil {
		return "", err
	}

	containerName := fmt.Sprintf("%s-%s-%s", req.RepoName, req.JobName, shortSHA(req.CommitSHA))
	resp, err := cli.ContainerCreate(ctx,
		&container.Config{Image: imageTag, Labels: labels},
		&container.HostConfig{}, nil, nil, containerName)
	if err != nil {
		return "", fmt.Errorf("create container: %w", err)
	}
	if err := cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return "", fmt.Errorf("start container: %w", err)
	}

	e.log.Info().Str("container", resp.ID).Str("repo", req.RepoName).Str("job", req.JobName).Msg("started job container")
	return resp.ID, nil
}

// CancelRun implements Engine. Stopping is best-effort; the container keeps
// whatever exit state it reaches.
func (e *DockerEngine) CancelRun(ctx context.Context, externalID string) (bool, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return false, err
	}
	defer cli.Close()
	if err := cli.ContainerStop(ctx, externalID, container.StopOptions{}); err != nil {
		return false, err
	}
	return true, nil
}

// GetArtifacts implements Engine. The docker backend has no artifact
// listing.
func (e *DockerEngine) GetArtifacts(ctx context.Context, externalID string) ([]Artifact, error) {
	return nil, nil
}

// GetLogs implements Engine: a live follow of the container's output.
func (e *DockerEngine) GetLogs(ctx context.Context, externalID, jobName string) (io.ReadCloser, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, err
	}
	rc, err := cli.ContainerLogs(ctx, externalID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     true,
	})
	if err != nil {
		cli.Close()
		return nil, err
	}
	return &clientClosingReader{ReadCloser: rc, cli: cli}, nil
}

// checkout clones the bare repository into a temp dir and checks out the
// requested commit.
func (e *DockerEngine) checkout(ctx context.Context, req RunRequest) (string, error) {
	tmpDir, err := os.MkdirTemp("", fmt.Sprintf("forgehost-run-%s-*", shortSHA(req.CommitSHA)))
	if err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	repoDir := e.gitStorage.RepoDir(req.RepoName)
	if out, err := exec.CommandContext(ctx, "git", "clone", repoDir, tmpDir).CombinedOutput(); err != nil {
		os.RemoveAll(tmpDir)
		return "", fmt.Errorf("git clone: %w: %s", err, strings.TrimSpace(string(out)))
	}
	if out, err := exec.CommandContext(ctx, "git", "-C", tmpDir, "checkout", "--detach", req.CommitSHA).CombinedOutput(); err != nil {
		os.RemoveAll(tmpDir)
		return "", fmt.Errorf("git checkout: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return tmpDir, nil
}

func (e *DockerEngine) buildImage(ctx context.Context, cli *client.Client, workDir, tag string, labels map[string]string) error {
	buildContext, err := archive.TarWithOptions(workDir, &archive.TarOptions{})
	if err != nil {
		return fmt.Errorf("create tar archive: %w", err)
	}
	resp, err := cli.ImageBuild(ctx, buildContext, build.ImageBuildOptions{
		Tags:       []string{tag},
		Labels:     labels,
		Dockerfile: "Dockerfile",
		Remove:     true,
	})
	if err != nil {
		return fmt.Errorf("build image: %w", err)
	}
	defer resp.Body.Close()

	dec := json.NewDecoder(resp.Body)
	for {
		var jm jsonmessage.JSONMessage
		if err := dec.Decode(&jm); err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("decode build output: %w", err)
		}
		if jm.Error != nil {
			return fmt.Errorf("build image: %s", jm.Error.Message)
		}
		if stream := strings.TrimSpace(jm.Stream); stream != "" {
			e.log.Debug().Msg(stream)
		}
	}
	return nil
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}

// clientClosingReader closes the docker client together with the log stream.
type clientClosingReader struct {
	io.ReadCloser
	cli *client.Client
}

func (r *clientClosingReader) Close() error {
	err := r.ReadCloser.Close()
	if cerr := r.cli.Close(); err == nil {
		err = cerr
	}
	return err
}
