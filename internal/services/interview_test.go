package services

import (
  "context"
  "fmt"
  "io"
  "strings"
  "testing"
  "time"

  "github.com/google/uuid"

  "github.com/studyforge/studyforge-backend/internal/repos"
  "github.com/studyforge/studyforge-backend/internal/types"
)

func newTestFileService(t *testing.T) FileService {
  t.Helper()
  t.Setenv("UPLOAD_DIR", t.TempDir())
  fs, err := NewFileService(testLogger(t))
  if err != nil {
    t.Fatalf("file service: %v", err)
  }
  return fs
}

func TestClampScore(t *testing.T) {
  tests := []struct {
    in   int
    want int
  }{
    {-5, 0},
    {0, 0},
    {57, 57},
    {100, 100},
    {150, 100},
  }
  for _, tt := range tests {
    if got := ClampScore(tt.in); got != tt.want {
      t.Fatalf("ClampScore(%d) = %d, want %d", tt.in, got, tt.want)
    }
  }
}

func TestClampConfidence(t *testing.T) {
  tests := []struct {
    in   float64
    want float64
  }{
    {-0.5, 0},
    {0, 0},
    {0.9, 0.9},
    {1, 1},
    {1.5, 1},
  }
  for _, tt := range tests {
    if got := clampConfidence(tt.in); got != tt.want {
      t.Fatalf("clampConfidence(%v) = %v, want %v", tt.in, got, tt.want)
    }
  }
}

func TestQuestionLimitFor(t *testing.T) {
  future := time.Now().Add(30 * 24 * time.Hour)
  past := time.Now().Add(-time.Hour)

  tests := []struct {
    name string
    user *types.User
    want int
  }{
    {"nil user", nil, 5},
    {"free user", &types.User{SubscriptionStatus: "free"}, 5},
    {"active subscriber", &types.User{SubscriptionStatus: "active"}, 10},
    {"active with future end date", &types.User{SubscriptionStatus: "active", SubscriptionEndDate: &future}, 10},
    {"lapsed end date", &types.User{SubscriptionStatus: "active", SubscriptionEndDate: &past}, 5},
    {"cancelled", &types.User{SubscriptionStatus: "cancelled"}, 5},
  }
  for _, tt := range tests {
    t.Run(tt.name, func(t *testing.T) {
      if got := QuestionLimitFor(tt.user); got != tt.want {
        t.Fatalf("got %d, want %d", got, tt.want)
      }
    })
  }
}

func TestQuestionLimitForHonorsEnvOverrides(t *testing.T) {
  t.Setenv("FREE_TIER_QUESTION_LIMIT", "3")
  t.Setenv("PREMIUM_TIER_QUESTION_LIMIT", "20")

  if got := QuestionLimitFor(&types.User{SubscriptionStatus: "free"}); got != 3 {
    t.Fatalf("free limit = %d, want 3", got)
  }
  if got := QuestionLimitFor(&types.User{SubscriptionStatus: "active"}); got != 20 {
    t.Fatalf("premium limit = %d, want 20", got)
  }
}

func TestGenerateRejectsCountOverTierLimit(t *testing.T) {
  log := testLogger(t)
  svc := NewInterviewService(log, nil, &fakeAI{}, nil, nil, nil)

  user := &types.User{ID: uuid.New(), SubscriptionStatus: "free"}
  _, err := svc.Generate(context.Background(), user, GenerateInterviewInput{
    JobDescription: "Backend engineer",
    NumQuestions:   7,
  })
  if err == nil {
    t.Fatalf("expected tier limit error")
  }
  if !strings.Contains(err.Error(), "limit") {
    t.Fatalf("unexpected error: %v", err)
  }
}

func TestSubmitAnswerMediaRequiresPremium(t *testing.T) {
  log := testLogger(t)
  svc := NewInterviewService(log, nil, &fakeAI{}, nil, nil, nil)

  user := &types.User{ID: uuid.New(), SubscriptionStatus: "free"}
  _, err := svc.SubmitAnswer(context.Background(), user, SubmitAnswerInput{
    QuestionID: uuid.New(),
    AnswerType: types.AnswerTypeAudio,
    Media:      strings.NewReader("fake audio"),
  })
  if err == nil {
    t.Fatalf("expected premium gate error")
  }
  if !strings.Contains(err.Error(), "premium") {
    t.Fatalf("unexpected error: %v", err)
  }
}

func TestSubmitAnswerRecordsTranscriptionPlaceholder(t *testing.T) {
  gdb := openTestDB(t)
  log := testLogger(t)
  qRepo := repos.NewInterviewQuestionRepo(gdb, log)
  pRepo := repos.NewInterviewPracticeRepo(gdb, log)
  ctx := context.Background()

  user := &types.User{ID: uuid.New(), SubscriptionStatus: "active"}
  created, err := qRepo.Create(ctx, nil, []*types.InterviewQuestion{{
    UserID:       user.ID,
    Question:     "Describe a hard bug you fixed",
    SampleAnswer: "A structured story with impact",
  }})
  if err != nil {
    t.Fatalf("create question: %v", err)
  }
  question := created[0]

  svc := NewInterviewService(log, gdb, &fakeAI{
    transcribe: func(_ context.Context, _ io.Reader, _ string) (string, error) {
      return "", fmt.Errorf("whisper unavailable")
    },
    generateJSON: func(_ context.Context, _, _, _ string, _ map[string]any) (map[string]any, error) {
      return map[string]any{"score": float64(150), "feedback": "Strong answer"}, nil
    },
  }, newTestFileService(t), qRepo, pRepo)

  practice, err := svc.SubmitAnswer(ctx, user, SubmitAnswerInput{
    QuestionID:    question.ID,
    AnswerType:    types.AnswerTypeAudio,
    Media:         strings.NewReader("fake audio bytes"),
    MediaFilename: "answer.webm",
  })
  if err != nil {
    t.Fatalf("submit answer: %v", err)
  }
  if practice.AnswerText != "[Transcription unavailable]" {
    t.Fatalf("expected placeholder transcript, got %q", practice.AnswerText)
  }
  if practice.Score != 100 {
    t.Fatalf("expected score clamped to 100, got %d", practice.Score)
  }
  if practice.AttemptNumber != 1 {
    t.Fatalf("expected first attempt, got %d", practice.AttemptNumber)
  }
  // Even a failed transcription keeps the stored media on record.
  if practice.MediaFilename == "" || practice.MediaFilename == "answer.webm" {
    t.Fatalf("expected stored media filename, got %q", practice.MediaFilename)
  }
}

func TestSubmitAnswerStoresMediaAndConfidence(t *testing.T) {
  gdb := openTestDB(t)
  log := testLogger(t)
  qRepo := repos.NewInterviewQuestionRepo(gdb, log)
  pRepo := repos.NewInterviewPracticeRepo(gdb, log)
  files := newTestFileService(t)
  ctx := context.Background()

  user := &types.User{ID: uuid.New(), SubscriptionStatus: "active"}
  created, err := qRepo.Create(ctx, nil, []*types.InterviewQuestion{{
    UserID:       user.ID,
    Question:     "Walk me through a production incident",
    SampleAnswer: "Detection, mitigation, root cause, prevention",
  }})
  if err != nil {
    t.Fatalf("create question: %v", err)
  }
  question := created[0]

  var schemaRequired []string
  svc := NewInterviewService(log, gdb, &fakeAI{
    transcribe: func(_ context.Context, media io.Reader, _ string) (string, error) {
      raw, err := io.ReadAll(media)
      if err != nil {
        return "", err
      }
      if string(raw) != "fake audio bytes" {
        t.Errorf("transcribe read %q, want stored media bytes", raw)
      }
      return "We bisected the release and rolled back.", nil
    },
    generateJSON: func(_ context.Context, _, _, schemaName string, schema map[string]any) (map[string]any, error) {
      if schemaName == "answer_assessment" {
        schemaRequired, _ = schema["required"].([]string)
      }
      return map[string]any{
        "score":            float64(80),
        "feedback":         "Clear and structured",
        "confidence_score": 0.9,
      }, nil
    },
  }, files, qRepo, pRepo)

  practice, err := svc.SubmitAnswer(ctx, user, SubmitAnswerInput{
    QuestionID:    question.ID,
    AnswerType:    types.AnswerTypeAudio,
    Media:         strings.NewReader("fake audio bytes"),
    MediaFilename: "answer.webm",
  })
  if err != nil {
    t.Fatalf("submit answer: %v", err)
  }

  found := false
  for _, f := range schemaRequired {
    if f == "confidence_score" {
      found = true
    }
  }
  if !found {
    t.Fatalf("assessment schema for a media answer must require confidence_score, got %v", schemaRequired)
  }

  if practice.ConfidenceScore == nil || *practice.ConfidenceScore != 0.9 {
    t.Fatalf("expected confidence 0.9, got %v", practice.ConfidenceScore)
  }
  if practice.Score != 80 {
    t.Fatalf("expected score 80, got %d", practice.Score)
  }
  if practice.MediaFilename == "answer.webm" || !strings.HasSuffix(practice.MediaFilename, "_answer.webm") {
    t.Fatalf("expected uuid-prefixed stored name, got %q", practice.MediaFilename)
  }
  if _, err := files.ReadAll(practice.MediaFilename); err != nil {
    t.Fatalf("stored media not readable: %v", err)
  }
}

func TestSubmitAnswerTextOmitsConfidence(t *testing.T) {
  gdb := openTestDB(t)
  log := testLogger(t)
  qRepo := repos.NewInterviewQuestionRepo(gdb, log)
  pRepo := repos.NewInterviewPracticeRepo(gdb, log)
  ctx := context.Background()

  user := &types.User{ID: uuid.New(), SubscriptionStatus: "free"}
  created, err := qRepo.Create(ctx, nil, []*types.InterviewQuestion{{
    UserID:   user.ID,
    Question: "Tell me about yourself",
  }})
  if err != nil {
    t.Fatalf("create question: %v", err)
  }

  svc := NewInterviewService(log, gdb, &fakeAI{
    generateJSON: func(_ context.Context, _, _, _ string, schema map[string]any) (map[string]any, error) {
      props, _ := schema["properties"].(map[string]any)
      if _, ok := props["confidence_score"]; ok {
        t.Errorf("text answers must not request a confidence rating")
      }
      return map[string]any{"score": float64(70), "feedback": "Good"}, nil
    },
  }, nil, qRepo, pRepo)

  practice, err := svc.SubmitAnswer(ctx, user, SubmitAnswerInput{
    QuestionID: created[0].ID,
    AnswerType: types.AnswerTypeText,
    AnswerText: "I build backend systems.",
  })
  if err != nil {
    t.Fatalf("submit answer: %v", err)
  }
  if practice.ConfidenceScore != nil {
    t.Fatalf("expected nil confidence for a text answer, got %v", *practice.ConfidenceScore)
  }
}

func TestGenerateReturnsStructuredCompatibility(t *testing.T) {
  gdb := openTestDB(t)
  log := testLogger(t)
  qRepo := repos.NewInterviewQuestionRepo(gdb, log)
  pRepo := repos.NewInterviewPracticeRepo(gdb, log)
  ctx := context.Background()

  user := &types.User{ID: uuid.New(), SubscriptionStatus: "free"}
  svc := NewInterviewService(log, gdb, &fakeAI{
    generateJSON: func(_ context.Context, _, _, schemaName string, _ map[string]any) (map[string]any, error) {
      switch schemaName {
      case "compatibility_analysis":
        return map[string]any{
          "score":        float64(140),
          "keyword_gaps": []any{"kubernetes", "terraform"},
          "summary":      "Strong backend fit, thin on infra.",
        }, nil
      case "interview_questions":
        return map[string]any{
          "questions": []any{
            map[string]any{"question": "Why us?", "sample_answer": "Because.", "category": "behavioral", "difficulty": "easy"},
          },
        }, nil
      }
      return nil, fmt.Errorf("unexpected schema %q", schemaName)
    },
  }, nil, qRepo, pRepo)

  set, err := svc.Generate(ctx, user, GenerateInterviewInput{
    JobDescription: "Platform engineer",
    Resume:         "Five years of Go services.",
    NumQuestions:   1,
  })
  if err != nil {
    t.Fatalf("generate: %v", err)
  }
  if set.CompatibilityAnalysis == nil {
    t.Fatalf("expected a compatibility analysis")
  }
  if set.CompatibilityAnalysis.Score != 100 {
    t.Fatalf("expected score clamped to 100, got %d", set.CompatibilityAnalysis.Score)
  }
  if len(set.CompatibilityAnalysis.KeywordGaps) != 2 || set.CompatibilityAnalysis.KeywordGaps[0] != "kubernetes" {
    t.Fatalf("unexpected keyword gaps: %v", set.CompatibilityAnalysis.KeywordGaps)
  }
  if set.CompatibilityAnalysis.Summary == "" {
    t.Fatalf("expected a summary")
  }
}

func TestSubmitAnswerRejectsForeignQuestion(t *testing.T) {
  gdb := openTestDB(t)
  log := testLogger(t)
  qRepo := repos.NewInterviewQuestionRepo(gdb, log)
  pRepo := repos.NewInterviewPracticeRepo(gdb, log)
  ctx := context.Background()

  owner := uuid.New()
  created, err := qRepo.Create(ctx, nil, []*types.InterviewQuestion{{
    UserID:   owner,
    Question: "Why us?",
  }})
  if err != nil {
    t.Fatalf("create question: %v", err)
  }

  svc := NewInterviewService(log, gdb, &fakeAI{}, nil, qRepo, pRepo)
  intruder := &types.User{ID: uuid.New(), SubscriptionStatus: "free"}
  _, err = svc.SubmitAnswer(ctx, intruder, SubmitAnswerInput{
    QuestionID: created[0].ID,
    AnswerType: types.AnswerTypeText,
    AnswerText: "Because.",
  })
  if err == nil || !strings.Contains(err.Error(), "not found") {
    t.Fatalf("expected question not found, got %v", err)
  }
}
