package services

import (
  "context"
  "encoding/json"
  "testing"

  "github.com/google/uuid"
  "gorm.io/datatypes"

  "github.com/studyforge/studyforge-backend/internal/repos"
  "github.com/studyforge/studyforge-backend/internal/types"
)

func planContent(concepts, sections, questions int) map[string]any {
  keyConcepts := make([]any, concepts)
  for i := range keyConcepts {
    keyConcepts[i] = "concept"
  }
  sectionList := make([]any, sections)
  for i := range sectionList {
    sectionList[i] = map[string]any{"heading": "h", "content": "c", "key_points": []any{"p"}}
  }
  questionList := make([]any, questions)
  for i := range questionList {
    questionList[i] = map[string]any{"question": "q", "answer": "a"}
  }
  return map[string]any{
    "title":              "Linear Algebra",
    "summary":            "A summary",
    "difficulty":         "intermediate",
    "key_concepts":       keyConcepts,
    "sections":           sectionList,
    "daily_schedule":     []any{map[string]any{"day": 1, "focus": "f", "activities": []any{"a"}, "duration_minutes": 30}},
    "milestones":         []any{"m"},
    "practice_questions": questionList,
  }
}

func TestValidatePlanContent(t *testing.T) {
  missingSummary := planContent(3, 3, 5)
  delete(missingSummary, "summary")

  // Legacy content keyed "overview" must not satisfy the summary field.
  legacyOverview := planContent(3, 3, 5)
  delete(legacyOverview, "summary")
  legacyOverview["overview"] = "An overview"

  tests := []struct {
    name    string
    content map[string]any
    wantErr bool
  }{
    {"nil content", nil, true},
    {"minimum viable plan", planContent(3, 3, 5), false},
    {"rich plan", planContent(8, 6, 12), false},
    {"missing summary", missingSummary, true},
    {"overview instead of summary", legacyOverview, true},
    {"too few key concepts", planContent(2, 3, 5), true},
    {"too few sections", planContent(3, 2, 5), true},
    {"too few practice questions", planContent(3, 3, 4), true},
  }
  for _, tt := range tests {
    t.Run(tt.name, func(t *testing.T) {
      err := ValidatePlanContent(tt.content)
      if tt.wantErr && err == nil {
        t.Fatalf("expected error, got nil")
      }
      if !tt.wantErr && err != nil {
        t.Fatalf("unexpected error: %v", err)
      }
    })
  }
}

func TestRecordStudyTimeDerivesProgress(t *testing.T) {
  gdb := openTestDB(t)
  log := testLogger(t)
  planRepo := repos.NewStudyPlanRepo(gdb, log)
  docRepo := repos.NewDocumentRepo(gdb, log)
  svc := NewStudyPlanService(log, &fakeAI{}, planRepo, docRepo)
  ctx := context.Background()

  content := planContent(3, 3, 5)
  content["daily_schedule"] = []any{
    map[string]any{"day": 1, "focus": "f", "activities": []any{"a"}, "duration_minutes": 60},
    map[string]any{"day": 2, "focus": "f", "activities": []any{"a"}, "duration_minutes": 60},
  }
  raw, err := json.Marshal(content)
  if err != nil {
    t.Fatalf("marshal: %v", err)
  }

  plan := &types.StudyPlan{
    UserID:  uuid.New(),
    Title:   "Linear Algebra",
    Content: datatypes.JSON(raw),
  }
  created, err := planRepo.Create(ctx, nil, []*types.StudyPlan{plan})
  if err != nil {
    t.Fatalf("create plan: %v", err)
  }
  plan = created[0]

  if err := svc.RecordStudyTime(ctx, plan, 30); err != nil {
    t.Fatalf("record time: %v", err)
  }
  got, err := planRepo.GetByIDs(ctx, nil, []uuid.UUID{plan.ID})
  if err != nil || len(got) != 1 {
    t.Fatalf("reload plan: %v (%d)", err, len(got))
  }
  if got[0].TotalStudyMinutes != 30 {
    t.Fatalf("expected 30 total minutes, got %d", got[0].TotalStudyMinutes)
  }
  // 30 of 120 scheduled minutes.
  if got[0].Progress != 25 {
    t.Fatalf("expected 25%% progress, got %d", got[0].Progress)
  }

  if err := svc.RecordStudyTime(ctx, got[0], 500); err != nil {
    t.Fatalf("record time: %v", err)
  }
  got, err = planRepo.GetByIDs(ctx, nil, []uuid.UUID{plan.ID})
  if err != nil || len(got) != 1 {
    t.Fatalf("reload plan: %v (%d)", err, len(got))
  }
  if got[0].Progress != 100 {
    t.Fatalf("expected progress capped at 100, got %d", got[0].Progress)
  }
  if got[0].TotalStudyMinutes != 530 {
    t.Fatalf("expected 530 total minutes, got %d", got[0].TotalStudyMinutes)
  }
}

func TestAdjustWithoutStoredContent(t *testing.T) {
  log := testLogger(t)
  svc := NewStudyPlanService(log, &fakeAI{}, nil, nil)

  plan := &types.StudyPlan{ID: uuid.New(), Title: "Empty"}
  changed, err := svc.Adjust(context.Background(), plan, "go slower")
  if err != nil {
    t.Fatalf("unexpected error: %v", err)
  }
  if changed {
    t.Fatalf("expected no adjustment for a plan without content")
  }
}

func TestGenerateRejectsThinPlan(t *testing.T) {
  log := testLogger(t)
  ai := &fakeAI{
    generateJSON: func(_ context.Context, _, _, _ string, _ map[string]any) (map[string]any, error) {
      return planContent(1, 1, 1), nil
    },
  }
  svc := NewStudyPlanService(log, ai, nil, nil)

  _, err := svc.Generate(context.Background(), uuid.New(), GeneratePlanInput{Topic: "Linear Algebra"})
  if err == nil {
    t.Fatalf("expected validation error for a thin plan")
  }
}
