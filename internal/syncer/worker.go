package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mathblast/mathblast/internal/profile"
	"github.com/mathblast/mathblast/internal/storage"
)

// JobType is the queue type for profile sync jobs.
const JobType = "profile_sync"

// JobStore abstracts the job queue operations.
type JobStore interface {
	ClaimNextJob(types []string) (*storage.Job, error)
	CompleteJob(id string) error
	FailJob(id string, errMsg string) error
}

// ProfileGetter loads a profile by name.
type ProfileGetter interface {
	Get(name string) (profile.Profile, error)
}

// Pusher delivers a snapshot to the remote endpoint.
type Pusher interface {
	Push(ctx context.Context, snap Snapshot) error
}

// Worker processes profile_sync jobs from the SQLite job queue.
type Worker struct {
	store    JobStore
	profiles ProfileGetter
	pusher   Pusher
	poll     time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

// NewWorker creates a Worker with the given dependencies.
// If pollInterval is <= 0, it defaults to 2s.
func NewWorker(store JobStore, profiles ProfileGetter, pusher Pusher, pollInterval time.Duration) *Worker {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	return &Worker{
		store:    store,
		profiles: profiles,
		pusher:   pusher,
		poll:     pollInterval,
		now:      time.Now,
		logger:   slog.Default(),
	}
}

// Run polls for jobs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		done, err := w.RunOnce(ctx)
		if err != nil {
			w.logger.Error("sync worker iteration failed", "error", err)
		}
		if done {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.poll):
		}
	}
}

// RunOnce claims and processes a single profile_sync job.
// Returns true if a job was processed (regardless of success/failure).
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	job, err := w.store.ClaimNextJob([]string{JobType})
	if err != nil {
		return false, fmt.Errorf("claiming job: %w", err)
	}
	if job == nil {
		return false, nil
	}

	if err := w.processJob(ctx, job); err != nil {
		w.logger.Warn("sync job failed", "job_id", job.ID, "attempt", job.Attempts+1, "error", err)
		if failErr := w.store.FailJob(job.ID, err.Error()); failErr != nil {
			w.logger.Error("failed to mark job as failed", "job_id", job.ID, "error", failErr)
		}
		return true, nil
	}

	if err := w.store.CompleteJob(job.ID); err != nil {
		return true, fmt.Errorf("completing job %s: %w", job.ID, err)
	}
	return true, nil
}

type syncPayload struct {
	Profile string `json:"profile"`
}

func (w *Worker) processJob(ctx context.Context, job *storage.Job) error {
	var payload syncPayload
	if err := json.Unmarshal([]byte(job.PayloadJSON), &payload); err != nil {
		return fmt.Errorf("parsing payload: %w", err)
	}
	if payload.Profile == "" {
		return errors.New("payload has no profile name")
	}

	p, err := w.profiles.Get(payload.Profile)
	if errors.Is(err, profile.ErrNotFound) {
		// Deleted since the job was queued.
		w.logger.Info("skipping sync for deleted profile", "profile", payload.Profile)
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading profile %s: %w", payload.Profile, err)
	}

	snap := Snapshot{Name: payload.Profile, Profile: p, SyncedAt: w.now().UTC()}
	if err := w.pusher.Push(ctx, snap); err != nil {
		return err
	}
	w.logger.Debug("profile synced", "profile", payload.Profile, "job_id", job.ID)
	return nil
}
