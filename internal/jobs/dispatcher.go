package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/studyforge/studyforge-backend/internal/logger"
	"github.com/studyforge/studyforge-backend/internal/repos"
	"github.com/studyforge/studyforge-backend/internal/types"
)

const (
	JobTypeDocumentProcess  = "document.process"
	JobTypeDocumentsCombine = "documents.combine"
)

// Dispatcher enqueues background work as job_run rows and, for callers that
// need the outcome, waits for a run to reach a terminal state by polling.
type Dispatcher struct {
	log  *logger.Logger
	repo repos.JobRunRepo
}

func NewDispatcher(baseLog *logger.Logger, repo repos.JobRunRepo) *Dispatcher {
	return &Dispatcher{
		log:  baseLog.With("component", "JobDispatcher"),
		repo: repo,
	}
}

// Enqueue creates a queued job run. Workers pick it up on their next tick.
func (d *Dispatcher) Enqueue(ctx context.Context, ownerUserID uuid.UUID, entityType string, entityID uuid.UUID, jobType string, payload map[string]any) (*types.JobRun, error) {
	if ownerUserID == uuid.Nil {
		return nil, fmt.Errorf("owner user id required")
	}
	if jobType == "" {
		return nil, fmt.Errorf("job type required")
	}

	var raw datatypes.JSON
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode job payload: %w", err)
		}
		raw = datatypes.JSON(b)
	}

	job := &types.JobRun{
		OwnerUserID: ownerUserID,
		EntityType:  entityType,
		EntityID:    entityID,
		JobType:     jobType,
		Status:      types.JobStatusQueued,
		Payload:     raw,
	}
	created, err := d.repo.Create(ctx, nil, []*types.JobRun{job})
	if err != nil {
		return nil, fmt.Errorf("enqueue %s: %w", jobType, err)
	}
	d.log.Info("Job enqueued", "job_id", created[0].ID, "job_type", jobType, "owner_user_id", ownerUserID)
	return created[0], nil
}

// Latest returns the most recent run of the given type for an entity, or
// nil when none has been enqueued.
func (d *Dispatcher) Latest(ctx context.Context, ownerUserID uuid.UUID, entityType string, entityID uuid.UUID, jobType string) (*types.JobRun, error) {
	return d.repo.GetLatestByEntity(ctx, nil, ownerUserID, entityType, entityID, jobType)
}

// Wait polls the run until it is terminal or the timeout elapses. The job is
// returned in its last observed state either way; a timeout also reports an
// error so the caller can distinguish "slow" from "done".
func (d *Dispatcher) Wait(ctx context.Context, jobID uuid.UUID, timeout time.Duration) (*types.JobRun, error) {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	var last *types.JobRun
	for {
		jobs, err := d.repo.GetByIDs(ctx, nil, []uuid.UUID{jobID})
		if err != nil {
			return last, err
		}
		if len(jobs) == 1 {
			last = jobs[0]
			if last.IsTerminal() {
				return last, nil
			}
		}
		if time.Now().After(deadline) {
			return last, fmt.Errorf("job %s still running after %s", jobID, timeout)
		}
		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-ticker.C:
		}
	}
}
