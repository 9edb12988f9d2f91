package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/studyforge/studyforge-backend/internal/logger"
	"github.com/studyforge/studyforge-backend/internal/repos"
	"github.com/studyforge/studyforge-backend/internal/types"
)

func testDispatcher(t *testing.T) (*Dispatcher, repos.JobRunRepo) {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// The Postgres uuid default is not available here, so the test schema
	// generates ids itself.
	ddl := `CREATE TABLE job_run (id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(4)) || '-' || hex(randomblob(2)) || '-4' || substr(hex(randomblob(2)),2) || '-a' || substr(hex(randomblob(2)),2) || '-' || hex(randomblob(6)))), owner_user_id TEXT, entity_type TEXT, entity_id TEXT, job_type TEXT, status TEXT DEFAULT 'queued', attempts INTEGER DEFAULT 0, stage TEXT, progress INTEGER DEFAULT 0, message TEXT, payload TEXT, result TEXT, last_error TEXT, last_error_at DATETIME, locked_at DATETIME, heartbeat_at DATETIME, created_at DATETIME, updated_at DATETIME)`
	if err := gdb.Exec(ddl).Error; err != nil {
		t.Fatalf("ddl: %v", err)
	}
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	repo := repos.NewJobRunRepo(gdb, log)
	return NewDispatcher(log, repo), repo
}

func TestEnqueueCreatesQueuedRun(t *testing.T) {
	d, _ := testDispatcher(t)
	ctx := context.Background()

	owner := uuid.New()
	docID := uuid.New()
	job, err := d.Enqueue(ctx, owner, "document", docID, JobTypeDocumentProcess, map[string]any{
		"document_id": docID.String(),
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if job.Status != types.JobStatusQueued {
		t.Fatalf("expected queued status, got %q", job.Status)
	}

	latest, err := d.Latest(ctx, owner, "document", docID, JobTypeDocumentProcess)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest == nil || latest.ID != job.ID {
		t.Fatalf("latest did not return the enqueued run: %+v", latest)
	}
}

func TestEnqueueValidation(t *testing.T) {
	d, _ := testDispatcher(t)
	ctx := context.Background()

	if _, err := d.Enqueue(ctx, uuid.Nil, "document", uuid.New(), JobTypeDocumentProcess, nil); err == nil {
		t.Fatalf("expected rejection without an owner")
	}
	if _, err := d.Enqueue(ctx, uuid.New(), "document", uuid.New(), "", nil); err == nil {
		t.Fatalf("expected rejection without a job type")
	}
}

func TestWaitReturnsTerminalRun(t *testing.T) {
	d, repo := testDispatcher(t)
	ctx := context.Background()

	job, err := d.Enqueue(ctx, uuid.New(), "document", uuid.New(), JobTypeDocumentsCombine, nil)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	go func() {
		time.Sleep(200 * time.Millisecond)
		_ = repo.UpdateFields(context.Background(), nil, job.ID, map[string]interface{}{
			"status":   types.JobStatusSucceeded,
			"progress": 100,
		})
	}()

	got, err := d.Wait(ctx, job.ID, 5*time.Second)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if got.Status != types.JobStatusSucceeded {
		t.Fatalf("expected succeeded run, got %q", got.Status)
	}
}

func TestWaitTimesOut(t *testing.T) {
	d, _ := testDispatcher(t)
	ctx := context.Background()

	job, err := d.Enqueue(ctx, uuid.New(), "document", uuid.New(), JobTypeDocumentsCombine, nil)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	got, err := d.Wait(ctx, job.ID, 100*time.Millisecond)
	if err == nil {
		t.Fatalf("expected timeout error")
	}
	if got == nil || got.Status != types.JobStatusQueued {
		t.Fatalf("expected last observed state, got %+v", got)
	}
}
