package services

import (
  "context"
  "fmt"
  "io"
  "testing"

  "github.com/glebarez/sqlite"
  "gorm.io/gorm"
  gormlogger "gorm.io/gorm/logger"

  "github.com/studyforge/studyforge-backend/internal/logger"
)

// fakeAI satisfies OpenAIClient in tests; calls without a configured
// function fail the way an unexpected network call should.
type fakeAI struct {
  generateText func(ctx context.Context, system, user string) (string, error)
  generateJSON func(ctx context.Context, system, user, schemaName string, schema map[string]any) (map[string]any, error)
  transcribe   func(ctx context.Context, media io.Reader, filename string) (string, error)
}

func (f *fakeAI) GenerateText(ctx context.Context, system, user string) (string, error) {
  if f.generateText == nil {
    return "", fmt.Errorf("unexpected GenerateText call")
  }
  return f.generateText(ctx, system, user)
}

func (f *fakeAI) GenerateJSON(ctx context.Context, system, user, schemaName string, schema map[string]any) (map[string]any, error) {
  if f.generateJSON == nil {
    return nil, fmt.Errorf("unexpected GenerateJSON call")
  }
  return f.generateJSON(ctx, system, user, schemaName, schema)
}

func (f *fakeAI) Transcribe(ctx context.Context, media io.Reader, filename string) (string, error) {
  if f.transcribe == nil {
    return "", fmt.Errorf("unexpected Transcribe call")
  }
  return f.transcribe(ctx, media, filename)
}

func testLogger(t *testing.T) *logger.Logger {
  t.Helper()
  log, err := logger.New("test")
  if err != nil {
    t.Fatalf("logger: %v", err)
  }
  return log
}

// sqlite cannot evaluate the Postgres uuid default, so the test schema
// generates ids itself.
const testUUIDPK = `id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(4)) || '-' || hex(randomblob(2)) || '-4' || substr(hex(randomblob(2)),2) || '-a' || substr(hex(randomblob(2)),2) || '-' || hex(randomblob(6))))`

func openTestDB(t *testing.T) *gorm.DB {
  t.Helper()
  gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
    Logger: gormlogger.Default.LogMode(gormlogger.Silent),
  })
  if err != nil {
    t.Fatalf("open sqlite: %v", err)
  }
  ddl := []string{
    `CREATE TABLE "user" (` + testUUIDPK + `, username TEXT, email TEXT, password TEXT, is_admin NUMERIC DEFAULT 0, subscription_status TEXT DEFAULT 'free', subscription_end_date DATETIME, stripe_customer_id TEXT, created_at DATETIME, updated_at DATETIME)`,
    `CREATE TABLE user_token (` + testUUIDPK + `, user_id TEXT, access_token TEXT, refresh_token TEXT, expires_at DATETIME, created_at DATETIME, updated_at DATETIME)`,
    `CREATE TABLE folder (` + testUUIDPK + `, user_id TEXT, name TEXT, parent_id TEXT, created_at DATETIME, updated_at DATETIME)`,
    `CREATE TABLE document (` + testUUIDPK + `, user_id TEXT, folder_id TEXT, filename TEXT, original_filename TEXT, file_type TEXT, content TEXT, structured_content TEXT, category TEXT, processed NUMERIC DEFAULT 0, created_at DATETIME, updated_at DATETIME, deleted_at DATETIME)`,
    `CREATE TABLE study_plan (` + testUUIDPK + `, user_id TEXT, folder_id TEXT, title TEXT, category TEXT, content TEXT, priority INTEGER DEFAULT 2, daily_time_minutes INTEGER DEFAULT 30, difficulty TEXT, goals TEXT, completion_target DATETIME, progress INTEGER DEFAULT 0, total_study_minutes INTEGER DEFAULT 0, created_at DATETIME, updated_at DATETIME, deleted_at DATETIME)`,
    `CREATE TABLE study_session (` + testUUIDPK + `, user_id TEXT, study_plan_id TEXT, start_time DATETIME, end_time DATETIME, duration_minutes INTEGER DEFAULT 0, created_at DATETIME, updated_at DATETIME)`,
    `CREATE TABLE interview_question (` + testUUIDPK + `, user_id TEXT, question TEXT, sample_answer TEXT, category TEXT, difficulty TEXT, created_at DATETIME, updated_at DATETIME, deleted_at DATETIME)`,
    `CREATE TABLE interview_practice (` + testUUIDPK + `, user_id TEXT, question_id TEXT, attempt_number INTEGER DEFAULT 1, answer_type TEXT DEFAULT 'text', answer_text TEXT, media_filename TEXT, score INTEGER DEFAULT 0, feedback TEXT, confidence_score REAL, created_at DATETIME)`,
    `CREATE TABLE chat_history (` + testUUIDPK + `, user_id TEXT, question TEXT, answer TEXT, tutor_mode NUMERIC DEFAULT 0, related_document_id TEXT, related_study_plan_id TEXT, created_at DATETIME)`,
  }
  for _, stmt := range ddl {
    if err := gdb.Exec(stmt).Error; err != nil {
      t.Fatalf("ddl: %v", err)
    }
  }
  return gdb
}
