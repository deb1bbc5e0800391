package cmd

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/yz4230/forgehost/internal/config"
	"github.com/yz4230/forgehost/internal/entity"
	"github.com/yz4230/forgehost/internal/orchestrator"
	"github.com/yz4230/forgehost/internal/repository"
	"github.com/yz4230/forgehost/internal/server"
	"github.com/yz4230/forgehost/internal/storage"
)

// The runner picker: scans for queued jobs on an interval and hands each one
// to the CI engine. It shares the database with the serve process.
var runnerCmd = &cobra.Command{
	Use:   "runner",
	Short: "Pick queued workflow jobs and trigger them on the CI engine",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()

		db, err := repository.NewSQLiteDB(cfg.DataRoot)
		if err != nil {
			return err
		}
		gitStorage := storage.NewGitStorage(filepath.Join(cfg.DataRoot, "repositories"), log.Logger)
		eng, err := server.NewEngine(cfg, gitStorage, log.Logger)
		if err != nil {
			return err
		}
		orch := orchestrator.New(repository.NewTxManager(db), eng)
		jobs := repository.NewWorkflowJobRepository(db)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		ctx = log.Logger.WithContext(ctx)

		log.Info().Dur("interval", cfg.RunnerInterval).Msg("runner started")
		ticker := time.NewTicker(cfg.RunnerInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("runner stopped")
				return nil
			case <-ticker.C:
				pickQueuedJobs(ctx, jobs, orch, cfg.RunnerBatch)
			}
		}
	},
}

func pickQueuedJobs(ctx context.Context, jobs repository.WorkflowJobRepository, orch *orchestrator.Orchestrator, batch int) {
	queued, err := jobs.ListByStatus(ctx, entity.JobQueued, batch)
	if err != nil {
		log.Error().Err(err).Msg("list queued jobs")
		return
	}
	for _, job := range queued {
		if _, err := orch.StartJob(ctx, job.ID); err != nil {
			log.Error().Err(err).Str("job_id", job.ID.String()).Msg("start job")
		}
	}
}
