package services

import (
  "context"
  "strings"
  "testing"

  "github.com/google/uuid"
  "gorm.io/datatypes"

  "github.com/studyforge/studyforge-backend/internal/repos"
  "github.com/studyforge/studyforge-backend/internal/types"
)

func TestSessionLifecycle(t *testing.T) {
  gdb := openTestDB(t)
  log := testLogger(t)
  planRepo := repos.NewStudyPlanRepo(gdb, log)
  sessionRepo := repos.NewStudySessionRepo(gdb, log)
  docRepo := repos.NewDocumentRepo(gdb, log)
  planService := NewStudyPlanService(log, &fakeAI{}, planRepo, docRepo)
  svc := NewSessionService(log, sessionRepo, planRepo, planService)
  ctx := context.Background()

  userID := uuid.New()
  created, err := planRepo.Create(ctx, nil, []*types.StudyPlan{{
    UserID:  userID,
    Title:   "Spanish vocabulary",
    Content: datatypes.JSON(`{"daily_schedule":[{"day":1,"duration_minutes":45}]}`),
  }})
  if err != nil {
    t.Fatalf("create plan: %v", err)
  }
  plan := created[0]

  session, err := svc.Start(ctx, userID, plan.ID)
  if err != nil {
    t.Fatalf("start: %v", err)
  }
  if session.EndTime != nil {
    t.Fatalf("new session should be open")
  }

  // Starting again resumes the open session instead of opening a second one.
  resumed, err := svc.Start(ctx, userID, plan.ID)
  if err != nil {
    t.Fatalf("resume: %v", err)
  }
  if resumed.ID != session.ID {
    t.Fatalf("expected resumed session %s, got %s", session.ID, resumed.ID)
  }

  ended, err := svc.End(ctx, userID, session.ID)
  if err != nil {
    t.Fatalf("end: %v", err)
  }
  if ended.EndTime == nil {
    t.Fatalf("ended session should carry an end time")
  }
  if ended.DurationMinutes < 0 {
    t.Fatalf("negative duration: %d", ended.DurationMinutes)
  }

  _, err = svc.End(ctx, userID, session.ID)
  if err == nil || !strings.Contains(err.Error(), "already ended") {
    t.Fatalf("expected double-close rejection, got %v", err)
  }
}

func TestEndUnknownSession(t *testing.T) {
  gdb := openTestDB(t)
  log := testLogger(t)
  planRepo := repos.NewStudyPlanRepo(gdb, log)
  sessionRepo := repos.NewStudySessionRepo(gdb, log)
  svc := NewSessionService(log, sessionRepo, planRepo, NewStudyPlanService(log, &fakeAI{}, planRepo, nil))

  _, err := svc.End(context.Background(), uuid.New(), uuid.New())
  if err == nil || !strings.Contains(err.Error(), "not found") {
    t.Fatalf("expected session not found, got %v", err)
  }
}

func TestStartRejectsForeignPlan(t *testing.T) {
  gdb := openTestDB(t)
  log := testLogger(t)
  planRepo := repos.NewStudyPlanRepo(gdb, log)
  sessionRepo := repos.NewStudySessionRepo(gdb, log)
  svc := NewSessionService(log, sessionRepo, planRepo, NewStudyPlanService(log, &fakeAI{}, planRepo, nil))
  ctx := context.Background()

  created, err := planRepo.Create(ctx, nil, []*types.StudyPlan{{
    UserID: uuid.New(),
    Title:  "Someone else's plan",
  }})
  if err != nil {
    t.Fatalf("create plan: %v", err)
  }

  _, err = svc.Start(ctx, uuid.New(), created[0].ID)
  if err == nil || !strings.Contains(err.Error(), "not found") {
    t.Fatalf("expected plan not found, got %v", err)
  }
}
