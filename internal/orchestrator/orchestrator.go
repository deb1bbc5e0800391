package orchestrator

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/yz4230/forgehost/internal/engine"
	"github.com/yz4230/forgehost/internal/entity"
	"github.com/yz4230/forgehost/internal/repository"
)

// JobSpec describes one job of a run to create. A non-zero EnvironmentID
// makes the job deployment-gated.
type JobSpec struct {
	Name          string
	EnvironmentID entity.ID
}

// CreateRunSpec describes a workflow run to open.
type CreateRunSpec struct {
	RepoID     entity.ID
	RepoName   string
	WorkflowID string
	CommitSHA  string
	Branch     string
	Event      string
	Jobs       []JobSpec
}

// Orchestrator owns the WorkflowRun/WorkflowJob lifecycle:
//
//	(no environment)       queued -> in_progress -> completed{success|failure|cancelled}
//	(has environment) action_required -> queued -> in_progress -> completed{...}
//	                                  \-> completed{skipped}      (on rejection)
//
// It never polls; the approval gate and the runner picker invoke it.
type Orchestrator struct {
	txm    repository.TxManager
	engine engine.Engine
}

func New(txm repository.TxManager, eng engine.Engine) *Orchestrator {
	return &Orchestrator{txm: txm, engine: eng}
}

// CreateRun opens a run with its jobs. Gated jobs start action_required with
// one waiting Deployment per distinct environment; plain jobs start queued.
func (o *Orchestrator) CreateRun(ctx context.Context, spec CreateRunSpec) (*entity.WorkflowRun, error) {
	if spec.WorkflowID == "" || spec.CommitSHA == "" || len(spec.Jobs) == 0 {
		return nil, entity.ErrInvalid
	}
	var created *entity.WorkflowRun
	err := o.txm.Do(ctx, func(r *repository.Repositories) error {
		run, err := r.Runs.Create(ctx, &entity.WorkflowRun{
			WorkflowID: spec.WorkflowID,
			RepoID:     spec.RepoID,
			CommitSHA:  spec.CommitSHA,
			Branch:     spec.Branch,
			Event:      spec.Event,
			Status:     entity.RunQueued,
		})
		if err != nil {
			return err
		}

		gatedEnvs := map[entity.ID]bool{}
		for _, js := range spec.Jobs {
			job := &entity.WorkflowJob{
				RunID:         run.ID,
				Name:          js.Name,
				EnvironmentID: js.EnvironmentID,
				Status:        entity.JobQueued,
			}
			if !js.EnvironmentID.IsZero() {
				job.Status = entity.JobActionRequired
			}
			if _, err := r.Jobs.Create(ctx, job); err != nil {
				return err
			}
			if !js.EnvironmentID.IsZero() && !gatedEnvs[js.EnvironmentID] {
				gatedEnvs[js.EnvironmentID] = true
				if _, err := r.Deployments.Create(ctx, &entity.Deployment{
					RunID:         run.ID,
					EnvironmentID: js.EnvironmentID,
					Status:        entity.DeploymentWaiting,
				}); err != nil {
					return err
				}
			}
		}
		created = run
		return nil
	})
	if err != nil {
		return nil, err
	}
	zerolog.Ctx(ctx).Info().
		Str("run_id", created.ID.String()).
		Str("workflow", spec.WorkflowID).
		Str("sha", spec.CommitSHA).
		Msg("workflow run created")
	return created, nil
}

// StartJob moves a queued job to in_progress and triggers it on the engine
// exactly once. A trigger failure fails this job only; siblings keep going.
func (o *Orchestrator) StartJob(ctx context.Context, jobID entity.ID) (*entity.WorkflowJob, error) {
	log := zerolog.Ctx(ctx)

	var job *entity.WorkflowJob
	var req engine.RunRequest
	err := o.txm.Do(ctx, func(r *repository.Repositories) error {
		j, err := r.Jobs.GetByID(ctx, jobID)
		if err != nil {
			return err
		}
		if j.Status != entity.JobQueued {
			return fmt.Errorf("job %s is %s: %w", jobID, j.Status, entity.ErrConflict)
		}
		run, err := r.Runs.GetByID(ctx, j.RunID)
		if err != nil {
			return err
		}
		if run.Status == entity.RunQueued {
			run.Status = entity.RunInProgress
			if _, err := r.Runs.Update(ctx, run); err != nil {
				return err
			}
		}
		j.Status = entity.JobInProgress
		if job, err = r.Jobs.Update(ctx, j); err != nil {
			return err
		}
		repo, err := r.Repos.GetByID(ctx, run.RepoID)
		if err != nil {
			return err
		}
		req = engine.RunRequest{
			RepoName:   repo.Name,
			CommitSHA:  run.CommitSHA,
			Branch:     run.Branch,
			WorkflowID: run.WorkflowID,
			JobName:    j.Name,
		}
		if !j.EnvironmentID.IsZero() {
			env, err := r.Environments.GetByID(ctx, j.EnvironmentID)
			if err != nil {
				return err
			}
			req.Environment = env.Name
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// The backend call happens outside the transaction so a slow network hop
	// never holds database locks.
	externalID, err := o.engine.CreateRun(ctx, req)
	if err != nil {
		if engine.IsTrigger(err) {
			log.Warn().Err(err).Str("job_id", jobID.String()).Msg("backend trigger failed, failing job")
			return o.CompleteJob(ctx, jobID, entity.JobFailure)
		}
		return nil, err
	}

	// A cancel can land while the trigger is in flight. Re-read the job and
	// write the external id onto its current state: a terminal job keeps its
	// status and conclusion, it never moves back to in_progress.
	err = o.txm.Do(ctx, func(r *repository.Repositories) error {
		current, err := r.Jobs.GetByID(ctx, jobID)
		if err != nil {
			return err
		}
		current.ExternalID = externalID
		updated, err := r.Jobs.Update(ctx, current)
		if err != nil {
			return err
		}
		job = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	if job.Terminal() {
		// The backend run was triggered for a job that is already done.
		accepted, err := o.engine.CancelRun(ctx, externalID)
		if err != nil || !accepted {
			log.Warn().Err(err).Str("external_id", externalID).Msg("backend did not accept cancel")
		}
		return job, nil
	}
	log.Info().Str("job_id", jobID.String()).Str("external_id", externalID).Msg("job started")
	return job, nil
}

// CompleteJob records a terminal conclusion for the job and finalizes the
// run when every job is done.
func (o *Orchestrator) CompleteJob(ctx context.Context, jobID entity.ID, conclusion entity.JobConclusion) (*entity.WorkflowJob, error) {
	var job *entity.WorkflowJob
	err := o.txm.Do(ctx, func(r *repository.Repositories) error {
		j, err := r.Jobs.GetByID(ctx, jobID)
		if err != nil {
			return err
		}
		if j.Terminal() {
			return fmt.Errorf("job %s already completed: %w", jobID, entity.ErrConflict)
		}
		j.Status = entity.JobCompleted
		j.Conclusion = conclusion
		if job, err = r.Jobs.Update(ctx, j); err != nil {
			return err
		}
		return o.finalizeRun(ctx, r, j.RunID)
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

// CancelRun cancels every unfinished job. In-progress jobs get a best-effort
// backend cancel first; the run's conclusion is recorded optimistically on
// acknowledgment, independent of backend completion timing.
func (o *Orchestrator) CancelRun(ctx context.Context, runID entity.ID) (*entity.WorkflowRun, error) {
	log := zerolog.Ctx(ctx)

	var inProgress []*entity.WorkflowJob
	err := o.txm.Do(ctx, func(r *repository.Repositories) error {
		run, err := r.Runs.GetByID(ctx, runID)
		if err != nil {
			return err
		}
		if run.Status == entity.RunCompleted {
			return fmt.Errorf("run %s already completed: %w", runID, entity.ErrConflict)
		}
		run.Cancelled = true
		if _, err := r.Runs.Update(ctx, run); err != nil {
			return err
		}
		jobs, err := r.Jobs.ListByRun(ctx, runID)
		if err != nil {
			return err
		}
		for _, j := range jobs {
			if j.Status == entity.JobInProgress && j.ExternalID != "" {
				inProgress = append(inProgress, j)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, j := range inProgress {
		accepted, err := o.engine.CancelRun(ctx, j.ExternalID)
		if err != nil || !accepted {
			log.Warn().Err(err).Str("external_id", j.ExternalID).Msg("backend did not accept cancel")
		}
	}

	var run *entity.WorkflowRun
	err = o.txm.Do(ctx, func(r *repository.Repositories) error {
		jobs, err := r.Jobs.ListByRun(ctx, runID)
		if err != nil {
			return err
		}
		for _, j := range jobs {
			if j.Terminal() {
				continue
			}
			j.Status = entity.JobCompleted
			j.Conclusion = entity.JobCancelled
			if _, err := r.Jobs.Update(ctx, j); err != nil {
				return err
			}
		}
		if err := o.finalizeRun(ctx, r, runID); err != nil {
			return err
		}
		run, err = r.Runs.GetByID(ctx, runID)
		return err
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("run_id", runID.String()).Msg("run cancelled")
	return run, nil
}

// ResumeGatedJob moves the action_required job of (run, environment) to
// queued after an approval. Called by the gate inside its transaction.
func (o *Orchestrator) ResumeGatedJob(ctx context.Context, r *repository.Repositories, runID, environmentID entity.ID) error {
	gated, err := r.Jobs.ListGated(ctx, runID, environmentID)
	if err != nil {
		return err
	}
	if len(gated) == 0 {
		return fmt.Errorf("no gated job for run %s environment %s: %w", runID, environmentID, entity.ErrNotFound)
	}
	job := gated[0]
	job.Status = entity.JobQueued
	_, err = r.Jobs.Update(ctx, job)
	return err
}

// SkipGatedJobs completes every action_required job of (run, environment)
// with conclusion skipped after a rejection. Called by the gate inside its
// transaction.
func (o *Orchestrator) SkipGatedJobs(ctx context.Context, r *repository.Repositories, runID, environmentID entity.ID) error {
	gated, err := r.Jobs.ListGated(ctx, runID, environmentID)
	if err != nil {
		return err
	}
	for _, job := range gated {
		job.Status = entity.JobCompleted
		job.Conclusion = entity.JobSkipped
		if _, err := r.Jobs.Update(ctx, job); err != nil {
			return err
		}
	}
	return o.finalizeRun(ctx, r, runID)
}

// finalizeRun completes the run once every job is terminal. Conclusion is
// failure if any job failed, else cancelled if the run was explicitly
// cancelled, else success.
func (o *Orchestrator) finalizeRun(ctx context.Context, r *repository.Repositories, runID entity.ID) error {
	jobs, err := r.Jobs.ListByRun(ctx, runID)
	if err != nil {
		return err
	}
	anyFailure := false
	for _, j := range jobs {
		if !j.Terminal() {
			return nil
		}
		if j.Conclusion == entity.JobFailure {
			anyFailure = true
		}
	}

	run, err := r.Runs.GetByID(ctx, runID)
	if err != nil {
		return err
	}
	if run.Status == entity.RunCompleted {
		return nil
	}
	run.Status = entity.RunCompleted
	switch {
	case anyFailure:
		run.Conclusion = entity.RunFailure
	case run.Cancelled:
		run.Conclusion = entity.RunCancelled
	default:
		run.Conclusion = entity.RunSuccess
	}
	_, err = r.Runs.Update(ctx, run)
	return err
}
