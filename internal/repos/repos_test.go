package repos

import (
  "context"
  "testing"
  "time"

  "github.com/glebarez/sqlite"
  "github.com/google/uuid"
  "gorm.io/datatypes"
  "gorm.io/gorm"
  gormlogger "gorm.io/gorm/logger"

  "github.com/studyforge/studyforge-backend/internal/logger"
  "github.com/studyforge/studyforge-backend/internal/types"
)

// uuidPK stands in for the production uuid default, which sqlite cannot
// evaluate.
const uuidPK = `id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(4)) || '-' || hex(randomblob(2)) || '-4' || substr(hex(randomblob(2)),2) || '-a' || substr(hex(randomblob(2)),2) || '-' || hex(randomblob(6))))`

// testDB opens an in-memory sqlite database with the schema laid out by
// hand, since the production schema's defaults are Postgres-specific.
func testDB(t *testing.T) (*gorm.DB, *logger.Logger) {
  t.Helper()
  gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
    Logger: gormlogger.Default.LogMode(gormlogger.Silent),
  })
  if err != nil {
    t.Fatalf("open sqlite: %v", err)
  }
  ddl := []string{
    `CREATE TABLE "user" (` + uuidPK + `, username TEXT, email TEXT, password TEXT, is_admin NUMERIC DEFAULT 0, subscription_status TEXT DEFAULT 'free', subscription_end_date DATETIME, stripe_customer_id TEXT, created_at DATETIME, updated_at DATETIME)`,
    `CREATE TABLE user_token (` + uuidPK + `, user_id TEXT, access_token TEXT, refresh_token TEXT, expires_at DATETIME, created_at DATETIME, updated_at DATETIME)`,
    `CREATE TABLE folder (` + uuidPK + `, user_id TEXT, name TEXT, parent_id TEXT, created_at DATETIME, updated_at DATETIME)`,
    `CREATE TABLE document (` + uuidPK + `, user_id TEXT, folder_id TEXT, filename TEXT, original_filename TEXT, file_type TEXT, content TEXT, structured_content TEXT, category TEXT, processed NUMERIC DEFAULT 0, created_at DATETIME, updated_at DATETIME, deleted_at DATETIME)`,
    `CREATE TABLE study_plan (` + uuidPK + `, user_id TEXT, folder_id TEXT, title TEXT, category TEXT, content TEXT, priority INTEGER DEFAULT 2, daily_time_minutes INTEGER DEFAULT 30, difficulty TEXT, goals TEXT, completion_target DATETIME, progress INTEGER DEFAULT 0, total_study_minutes INTEGER DEFAULT 0, created_at DATETIME, updated_at DATETIME, deleted_at DATETIME)`,
    `CREATE TABLE study_session (` + uuidPK + `, user_id TEXT, study_plan_id TEXT, start_time DATETIME, end_time DATETIME, duration_minutes INTEGER DEFAULT 0, created_at DATETIME, updated_at DATETIME)`,
    `CREATE TABLE chat_history (` + uuidPK + `, user_id TEXT, question TEXT, answer TEXT, tutor_mode NUMERIC DEFAULT 0, related_document_id TEXT, related_study_plan_id TEXT, created_at DATETIME)`,
    `CREATE TABLE interview_question (` + uuidPK + `, user_id TEXT, question TEXT, sample_answer TEXT, category TEXT, difficulty TEXT, created_at DATETIME, updated_at DATETIME, deleted_at DATETIME)`,
    `CREATE TABLE interview_practice (` + uuidPK + `, user_id TEXT, question_id TEXT, attempt_number INTEGER DEFAULT 1, answer_type TEXT DEFAULT 'text', answer_text TEXT, media_filename TEXT, score INTEGER DEFAULT 0, feedback TEXT, confidence_score REAL, created_at DATETIME)`,
    `CREATE TABLE subscription (` + uuidPK + `, user_id TEXT, stripe_subscription_id TEXT, stripe_price_id TEXT, status TEXT DEFAULT 'active', plan_type TEXT, amount INTEGER, currency TEXT, "interval" TEXT, start_date DATETIME, end_date DATETIME, cancelled_at DATETIME, created_at DATETIME, updated_at DATETIME)`,
    `CREATE TABLE job_run (` + uuidPK + `, owner_user_id TEXT, entity_type TEXT, entity_id TEXT, job_type TEXT, status TEXT DEFAULT 'queued', attempts INTEGER DEFAULT 0, stage TEXT, progress INTEGER DEFAULT 0, message TEXT, payload TEXT, result TEXT, last_error TEXT, last_error_at DATETIME, locked_at DATETIME, heartbeat_at DATETIME, created_at DATETIME, updated_at DATETIME)`,
  }
  for _, stmt := range ddl {
    if err := gdb.Exec(stmt).Error; err != nil {
      t.Fatalf("ddl: %v", err)
    }
  }
  log, err := logger.New("test")
  if err != nil {
    t.Fatalf("logger: %v", err)
  }
  return gdb, log
}

func TestDocumentStructuredContentRoundTrip(t *testing.T) {
  gdb, log := testDB(t)
  repo := NewDocumentRepo(gdb, log)
  ctx := context.Background()

  userID := uuid.New()
  doc := &types.Document{
    ID:               uuid.New(),
    UserID:           userID,
    Filename:         "stored_notes.pdf",
    OriginalFilename: "notes.pdf",
    FileType:         types.DocumentTypePDF,
  }
  if _, err := repo.Create(ctx, nil, []*types.Document{doc}); err != nil {
    t.Fatalf("create: %v", err)
  }

  structured := datatypes.JSON(`{"title":"Notes","summary":"A summary","key_concepts":["a","b","c"]}`)
  if err := repo.UpdateFields(ctx, nil, doc.ID, map[string]interface{}{
    "structured_content": structured,
    "processed":          true,
  }); err != nil {
    t.Fatalf("update: %v", err)
  }

  got, err := repo.GetByIDs(ctx, nil, []uuid.UUID{doc.ID})
  if err != nil {
    t.Fatalf("get: %v", err)
  }
  if len(got) != 1 {
    t.Fatalf("expected 1 document, got %d", len(got))
  }
  if !got[0].Processed {
    t.Fatalf("expected document to be processed")
  }
  content := got[0].GetStructuredContent()
  if content == nil {
    t.Fatalf("expected structured content")
  }
  if content["title"] != "Notes" {
    t.Fatalf("unexpected title: %v", content["title"])
  }

  processed, err := repo.GetProcessedByUserID(ctx, nil, userID)
  if err != nil {
    t.Fatalf("get processed: %v", err)
  }
  if len(processed) != 1 {
    t.Fatalf("expected 1 processed document, got %d", len(processed))
  }
}

func TestDocumentStructuredContentCorruptReadsAsNil(t *testing.T) {
  doc := &types.Document{StructuredContent: datatypes.JSON(`{"broken`)}
  if got := doc.GetStructuredContent(); got != nil {
    t.Fatalf("expected nil for corrupt content, got %v", got)
  }
  empty := &types.Document{}
  if got := empty.GetStructuredContent(); got != nil {
    t.Fatalf("expected nil for empty content, got %v", got)
  }
}

func TestNextAttemptNumberIncrements(t *testing.T) {
  gdb, log := testDB(t)
  qRepo := NewInterviewQuestionRepo(gdb, log)
  pRepo := NewInterviewPracticeRepo(gdb, log)
  ctx := context.Background()

  userID := uuid.New()
  question := &types.InterviewQuestion{ID: uuid.New(), UserID: userID, Question: "Tell me about yourself"}
  if _, err := qRepo.Create(ctx, nil, []*types.InterviewQuestion{question}); err != nil {
    t.Fatalf("create question: %v", err)
  }

  n, err := pRepo.NextAttemptNumber(ctx, nil, userID, question.ID)
  if err != nil {
    t.Fatalf("next attempt: %v", err)
  }
  if n != 1 {
    t.Fatalf("expected first attempt to be 1, got %d", n)
  }

  for i := 1; i <= 2; i++ {
    if _, err := pRepo.Create(ctx, nil, []*types.InterviewPractice{{
      ID:            uuid.New(),
      UserID:        userID,
      QuestionID:    question.ID,
      AttemptNumber: i,
      AnswerType:    types.AnswerTypeText,
      AnswerText:    "an answer",
    }}); err != nil {
      t.Fatalf("create practice: %v", err)
    }
  }

  n, err = pRepo.NextAttemptNumber(ctx, nil, userID, question.ID)
  if err != nil {
    t.Fatalf("next attempt: %v", err)
  }
  if n != 3 {
    t.Fatalf("expected third attempt to be 3, got %d", n)
  }
}

func TestDeleteQuestionsRemovesPractices(t *testing.T) {
  gdb, log := testDB(t)
  qRepo := NewInterviewQuestionRepo(gdb, log)
  pRepo := NewInterviewPracticeRepo(gdb, log)
  ctx := context.Background()

  userID := uuid.New()
  question := &types.InterviewQuestion{ID: uuid.New(), UserID: userID, Question: "Why this role?"}
  if _, err := qRepo.Create(ctx, nil, []*types.InterviewQuestion{question}); err != nil {
    t.Fatalf("create question: %v", err)
  }
  if _, err := pRepo.Create(ctx, nil, []*types.InterviewPractice{{
    ID:         uuid.New(),
    UserID:     userID,
    QuestionID: question.ID,
    AnswerType: types.AnswerTypeText,
    AnswerText: "because",
  }}); err != nil {
    t.Fatalf("create practice: %v", err)
  }

  if err := qRepo.DeleteByUserID(ctx, nil, userID); err != nil {
    t.Fatalf("delete: %v", err)
  }

  questions, err := qRepo.GetByUserID(ctx, nil, userID)
  if err != nil {
    t.Fatalf("get questions: %v", err)
  }
  if len(questions) != 0 {
    t.Fatalf("expected no questions, got %d", len(questions))
  }
  practices, err := pRepo.GetByUserID(ctx, nil, userID)
  if err != nil {
    t.Fatalf("get practices: %v", err)
  }
  if len(practices) != 0 {
    t.Fatalf("expected no practices, got %d", len(practices))
  }
}

func TestGetOpenByPlanID(t *testing.T) {
  gdb, log := testDB(t)
  repo := NewStudySessionRepo(gdb, log)
  ctx := context.Background()

  userID := uuid.New()
  planID := uuid.New()
  ended := time.Now().Add(-time.Hour)

  closed := &types.StudySession{
    ID:          uuid.New(),
    UserID:      userID,
    StudyPlanID: planID,
    StartTime:   time.Now().Add(-2 * time.Hour),
    EndTime:     &ended,
  }
  open := &types.StudySession{
    ID:          uuid.New(),
    UserID:      userID,
    StudyPlanID: planID,
    StartTime:   time.Now().Add(-30 * time.Minute),
  }
  if _, err := repo.Create(ctx, nil, []*types.StudySession{closed, open}); err != nil {
    t.Fatalf("create: %v", err)
  }

  got, err := repo.GetOpenByPlanID(ctx, nil, planID)
  if err != nil {
    t.Fatalf("get open: %v", err)
  }
  if got == nil || got.ID != open.ID {
    t.Fatalf("expected the open session, got %+v", got)
  }

  none, err := repo.GetOpenByPlanID(ctx, nil, uuid.New())
  if err != nil {
    t.Fatalf("get open: %v", err)
  }
  if none != nil {
    t.Fatalf("expected nil for unknown plan, got %+v", none)
  }
}
