package syncer

import (
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"

	"github.com/mathblast/mathblast/internal/profile"
	"github.com/mathblast/mathblast/internal/storage"
)

// JobEnqueuer adds jobs to the queue.
type JobEnqueuer interface {
	EnqueueJob(job storage.Job) error
}

// Enqueuer returns a profile save hook that queues a sync job for every
// saved profile. Enqueue failures are logged; they never fail the save.
func Enqueuer(q JobEnqueuer) func(profile.Profile) {
	return func(p profile.Profile) {
		payload, err := json.Marshal(syncPayload{Profile: p.Name})
		if err != nil {
			slog.Error("encoding sync payload", "profile", p.Name, "error", err)
			return
		}
		job := storage.Job{
			ID:          uuid.New().String(),
			Type:        JobType,
			PayloadJSON: string(payload),
		}
		if err := q.EnqueueJob(job); err != nil {
			slog.Error("failed to enqueue profile sync", "profile", p.Name, "error", err)
		}
	}
}
