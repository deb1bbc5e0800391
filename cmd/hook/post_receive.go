package hook

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/yz4230/forgehost/internal/config"
)

const zeroSHA = "0000000000000000000000000000000000000000"

var postReceiveCmd = &cobra.Command{
	Use:           "post-receive",
	Short:         "Handle post-receive git hook. Not intended to be run manually.",
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()

		gitDir, err := os.Getwd()
		if err != nil {
			log.Fatal().Err(err).Msg("getwd")
		}
		reponame := strings.TrimSuffix(filepath.Base(gitDir), ".git")

		s := bufio.NewScanner(os.Stdin)
		for s.Scan() {
			line := s.Text()
			parts := strings.Fields(line)
			if len(parts) != 3 {
				log.Error().Str("line", line).Msg("invalid input line")
				continue
			}
			oldsha, newsha, refName := parts[0], parts[1], parts[2]
			log.Info().Str("ref", refName).Str("old", oldsha).Str("new", newsha).Msg("received update")

			// Branch deletions carry nothing to ingest.
			if newsha == zeroSHA {
				continue
			}
			branch := strings.TrimPrefix(refName, "refs/heads/")
			if branch == refName {
				// Tags and other refs are not workflow triggers.
				continue
			}

			if err := ingestCommit(cfg, reponame, newsha); err != nil {
				log.Error().Err(err).Str("sha", newsha).Msg("ingest commit")
				continue
			}
			if err := createRun(cfg, reponame, newsha, branch); err != nil {
				log.Error().Err(err).Str("sha", newsha).Msg("create workflow run")
			}
		}
		if err := s.Err(); err != nil {
			log.Fatal().Err(err).Msg("read stdin")
		}
		return nil
	},
}

// ingestCommit calls the server back so the commit gets its verification
// hash before any workflow references it.
func ingestCommit(cfg *config.Config, reponame, sha string) error {
	url := fmt.Sprintf("%s/api/repos/%s/commits/%s/ingest", cfg.ServerURL, reponame, sha)
	return post(url, nil)
}

func createRun(cfg *config.Config, reponame, sha, branch string) error {
	url := fmt.Sprintf("%s/api/repositories/%s/runs", cfg.ServerURL, reponame)
	body := map[string]any{
		"workflow_id": "push",
		"commit_sha":  sha,
		"branch":      branch,
		"event":       "push",
	}
	return post(url, body)
}

func post(url string, body any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return err
		}
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}
	return nil
}
