package services

import (
  "context"
  "fmt"
  "io"
  "strings"

  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/studyforge/studyforge-backend/internal/logger"
  "github.com/studyforge/studyforge-backend/internal/repos"
  "github.com/studyforge/studyforge-backend/internal/types"
  "github.com/studyforge/studyforge-backend/internal/utils"
)

const (
  defaultFreeTierQuestionLimit    = 5
  defaultPremiumTierQuestionLimit = 10

  transcriptionPlaceholder = "[Transcription unavailable]"
)

// InterviewService generates interview question sets and scores practice
// answers. Audio and video answers are premium-only; free accounts are
// capped at a smaller question set.
type InterviewService interface {
  Generate(ctx context.Context, user *types.User, input GenerateInterviewInput) (*InterviewSet, error)
  SubmitAnswer(ctx context.Context, user *types.User, input SubmitAnswerInput) (*types.InterviewPractice, error)
  Export(ctx context.Context, userID uuid.UUID) (*InterviewExport, error)
  Clear(ctx context.Context, userID uuid.UUID) error
}

type GenerateInterviewInput struct {
  JobDescription string `json:"job_description"`
  Resume         string `json:"resume,omitempty"`
  NumQuestions   int    `json:"num_questions"`
  Category       string `json:"category,omitempty"`
  Difficulty     string `json:"difficulty,omitempty"`
}

type SubmitAnswerInput struct {
  QuestionID    uuid.UUID
  AnswerType    string
  AnswerText    string
  Media         io.Reader
  MediaFilename string
}

// CompatibilityAnalysis rates a resume against the job description the
// question set was generated for.
type CompatibilityAnalysis struct {
  Score       int      `json:"score"`
  KeywordGaps []string `json:"keyword_gaps"`
  Summary     string   `json:"summary"`
}

type InterviewSet struct {
  Questions             []*types.InterviewQuestion `json:"questions"`
  CompatibilityAnalysis *CompatibilityAnalysis     `json:"compatibility_analysis,omitempty"`
}

type InterviewExport struct {
  Questions []*types.InterviewQuestion `json:"questions"`
  Practices []*types.InterviewPractice `json:"practices"`
}

type interviewService struct {
  log          *logger.Logger
  db           *gorm.DB
  ai           OpenAIClient
  files        FileService
  questionRepo repos.InterviewQuestionRepo
  practiceRepo repos.InterviewPracticeRepo
}

func NewInterviewService(log *logger.Logger, db *gorm.DB, ai OpenAIClient, files FileService, questionRepo repos.InterviewQuestionRepo, practiceRepo repos.InterviewPracticeRepo) InterviewService {
  return &interviewService{
    log:          log.With("service", "InterviewService"),
    db:           db,
    ai:           ai,
    files:        files,
    questionRepo: questionRepo,
    practiceRepo: practiceRepo,
  }
}

// QuestionLimitFor caps the size of a generated question set by tier.
func QuestionLimitFor(user *types.User) int {
  if user != nil && user.IsPremium() {
    return utils.GetEnvAsInt("PREMIUM_TIER_QUESTION_LIMIT", defaultPremiumTierQuestionLimit, nil)
  }
  return utils.GetEnvAsInt("FREE_TIER_QUESTION_LIMIT", defaultFreeTierQuestionLimit, nil)
}

func interviewQuestionsSchema() map[string]any {
  return map[string]any{
    "type": "object",
    "properties": map[string]any{
      "questions": map[string]any{
        "type": "array",
        "items": map[string]any{
          "type": "object",
          "properties": map[string]any{
            "question":      map[string]any{"type": "string"},
            "sample_answer": map[string]any{"type": "string"},
            "category":      map[string]any{"type": "string"},
            "difficulty":    map[string]any{"type": "string"},
          },
          "required":             []string{"question", "sample_answer", "category", "difficulty"},
          "additionalProperties": false,
        },
      },
    },
    "required":             []string{"questions"},
    "additionalProperties": false,
  }
}

// assessmentSchema describes one graded answer. Spoken answers also get a
// delivery-confidence rating between 0 and 1.
func assessmentSchema(withConfidence bool) map[string]any {
  properties := map[string]any{
    "score":    map[string]any{"type": "integer"},
    "feedback": map[string]any{"type": "string"},
  }
  required := []string{"score", "feedback"}
  if withConfidence {
    properties["confidence_score"] = map[string]any{"type": "number"}
    required = append(required, "confidence_score")
  }
  return map[string]any{
    "type":                 "object",
    "properties":           properties,
    "required":             required,
    "additionalProperties": false,
  }
}

func compatibilitySchema() map[string]any {
  return map[string]any{
    "type": "object",
    "properties": map[string]any{
      "score":        map[string]any{"type": "integer"},
      "keyword_gaps": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
      "summary":      map[string]any{"type": "string"},
    },
    "required":             []string{"score", "keyword_gaps", "summary"},
    "additionalProperties": false,
  }
}

// Generate replaces the user's question set with a fresh one. Requests
// beyond the tier limit are rejected outright rather than silently clamped.
func (s *interviewService) Generate(ctx context.Context, user *types.User, input GenerateInterviewInput) (*InterviewSet, error) {
  if user == nil {
    return nil, fmt.Errorf("nil user")
  }
  jobDescription := strings.TrimSpace(input.JobDescription)
  if jobDescription == "" {
    return nil, fmt.Errorf("job description is required")
  }

  limit := QuestionLimitFor(user)
  numQuestions := input.NumQuestions
  if numQuestions <= 0 {
    numQuestions = limit
  }
  if numQuestions > limit {
    return nil, fmt.Errorf("question count %d exceeds the %d-question limit for your plan", numQuestions, limit)
  }

  var analysis *CompatibilityAnalysis
  if resume := strings.TrimSpace(input.Resume); resume != "" {
    analysis = s.analyzeCompatibility(ctx, user.ID, jobDescription, resume)
  }

  var prompt strings.Builder
  fmt.Fprintf(&prompt, "Generate exactly %d interview questions for this job description:\n%s\n", numQuestions, jobDescription)
  if input.Category != "" {
    fmt.Fprintf(&prompt, "Focus category: %s\n", input.Category)
  }
  if input.Difficulty != "" {
    fmt.Fprintf(&prompt, "Difficulty: %s\n", input.Difficulty)
  }

  system := "You are an experienced interviewer. Produce realistic interview questions, each with a strong sample answer, a category, and a difficulty."
  obj, err := s.ai.GenerateJSON(ctx, system, prompt.String(), "interview_questions", interviewQuestionsSchema())
  if err != nil {
    return nil, fmt.Errorf("question generation: %w", err)
  }

  rawQuestions, ok := obj["questions"].([]any)
  if !ok || len(rawQuestions) == 0 {
    return nil, fmt.Errorf("model returned no questions")
  }
  if len(rawQuestions) > numQuestions {
    rawQuestions = rawQuestions[:numQuestions]
  }

  questions := make([]*types.InterviewQuestion, 0, len(rawQuestions))
  for _, rq := range rawQuestions {
    entry, ok := rq.(map[string]any)
    if !ok {
      continue
    }
    text, _ := entry["question"].(string)
    if strings.TrimSpace(text) == "" {
      continue
    }
    sample, _ := entry["sample_answer"].(string)
    category, _ := entry["category"].(string)
    difficulty, _ := entry["difficulty"].(string)
    questions = append(questions, &types.InterviewQuestion{
      UserID:       user.ID,
      Question:     text,
      SampleAnswer: sample,
      Category:     category,
      Difficulty:   difficulty,
    })
  }
  if len(questions) == 0 {
    return nil, fmt.Errorf("model returned no usable questions")
  }

  // Old set and its attempts go away in the same transaction that writes
  // the new set.
  err = s.db.Transaction(func(tx *gorm.DB) error {
    if err := s.questionRepo.DeleteByUserID(ctx, tx, user.ID); err != nil {
      return err
    }
    created, err := s.questionRepo.Create(ctx, tx, questions)
    if err != nil {
      return err
    }
    questions = created
    return nil
  })
  if err != nil {
    return nil, fmt.Errorf("persist question set: %w", err)
  }

  return &InterviewSet{Questions: questions, CompatibilityAnalysis: analysis}, nil
}

// analyzeCompatibility rates the resume against the job description. A
// failure here never blocks question generation.
func (s *interviewService) analyzeCompatibility(ctx context.Context, userID uuid.UUID, jobDescription, resume string) *CompatibilityAnalysis {
  system := "You are a career coach. Rate how well the resume matches the job description from 0 to 100, list the keywords and skills the resume is missing, and summarize how to present the candidacy. Be specific and brief."
  prompt := fmt.Sprintf("Job description:\n%s\n\nResume:\n%s", jobDescription, resume)

  obj, err := s.ai.GenerateJSON(ctx, system, prompt, "compatibility_analysis", compatibilitySchema())
  if err != nil {
    s.log.Warn("Compatibility analysis failed, continuing without it", "user_id", userID, "error", err)
    return nil
  }

  analysis := &CompatibilityAnalysis{}
  if v, ok := obj["score"].(float64); ok {
    analysis.Score = ClampScore(int(v))
  }
  if gaps, ok := obj["keyword_gaps"].([]any); ok {
    for _, g := range gaps {
      if gap, ok := g.(string); ok && gap != "" {
        analysis.KeywordGaps = append(analysis.KeywordGaps, gap)
      }
    }
  }
  analysis.Summary, _ = obj["summary"].(string)
  return analysis
}

// SubmitAnswer scores one answer against its question. Media answers are
// transcribed first; a failed transcription records a placeholder transcript
// and still produces an assessment of what is available.
func (s *interviewService) SubmitAnswer(ctx context.Context, user *types.User, input SubmitAnswerInput) (*types.InterviewPractice, error) {
  if user == nil {
    return nil, fmt.Errorf("nil user")
  }

  answerType := input.AnswerType
  if answerType == "" {
    answerType = types.AnswerTypeText
  }
  switch answerType {
  case types.AnswerTypeText, types.AnswerTypeAudio, types.AnswerTypeVideo:
  default:
    return nil, fmt.Errorf("unknown answer type %q", answerType)
  }
  if (answerType == types.AnswerTypeAudio || answerType == types.AnswerTypeVideo) && !user.IsPremium() {
    return nil, fmt.Errorf("audio and video answers require a premium subscription")
  }

  questions, err := s.questionRepo.GetByIDs(ctx, nil, []uuid.UUID{input.QuestionID})
  if err != nil {
    return nil, fmt.Errorf("load question: %w", err)
  }
  if len(questions) == 0 || questions[0].UserID != user.ID {
    return nil, fmt.Errorf("question not found")
  }
  question := questions[0]

  answerText := strings.TrimSpace(input.AnswerText)
  mediaFilename := ""
  if answerType != types.AnswerTypeText {
    if input.Media == nil {
      return nil, fmt.Errorf("media answer requires an uploaded file")
    }
    stored, err := s.files.Save(input.Media, input.MediaFilename)
    if err != nil {
      return nil, fmt.Errorf("store media answer: %w", err)
    }
    mediaFilename = stored
    answerText = s.transcribeStored(ctx, user.ID, question.ID, stored)
  }
  if answerText == "" {
    return nil, fmt.Errorf("answer is empty")
  }

  withConfidence := answerType != types.AnswerTypeText
  score, feedback, confidence := s.assess(ctx, question, answerText, withConfidence)

  attempt, err := s.practiceRepo.NextAttemptNumber(ctx, nil, user.ID, question.ID)
  if err != nil {
    return nil, fmt.Errorf("attempt numbering: %w", err)
  }

  practice := &types.InterviewPractice{
    UserID:          user.ID,
    QuestionID:      question.ID,
    AttemptNumber:   attempt,
    AnswerType:      answerType,
    AnswerText:      answerText,
    MediaFilename:   mediaFilename,
    Score:           score,
    Feedback:        feedback,
    ConfidenceScore: confidence,
  }
  created, err := s.practiceRepo.Create(ctx, nil, []*types.InterviewPractice{practice})
  if err != nil {
    return nil, fmt.Errorf("persist practice: %w", err)
  }
  return created[0], nil
}

// transcribeStored reads a stored media answer back from the upload folder
// and transcribes it. A failed transcription records a placeholder so the
// attempt is still assessed on what is available.
func (s *interviewService) transcribeStored(ctx context.Context, userID, questionID uuid.UUID, stored string) string {
  media, err := s.files.Open(stored)
  if err != nil {
    s.log.Warn("Stored media unreadable, recording placeholder", "user_id", userID, "question_id", questionID, "error", err)
    return transcriptionPlaceholder
  }
  defer media.Close()

  transcript, err := s.ai.Transcribe(ctx, media, stored)
  if err != nil {
    s.log.Warn("Transcription failed, recording placeholder", "user_id", userID, "question_id", questionID, "error", err)
    return transcriptionPlaceholder
  }
  return transcript
}

// assess grades an answer 0-100 with feedback, plus a 0-1 delivery
// confidence for spoken answers. An assessment failure is soft: the attempt
// still records with a zero score and explanatory text.
func (s *interviewService) assess(ctx context.Context, question *types.InterviewQuestion, answerText string, withConfidence bool) (int, string, *float64) {
  system := "You are an interview assessor. Score the candidate's answer from 0 to 100 against the question and the sample answer, and give direct, actionable feedback."
  if withConfidence {
    system += " Also rate the confidence of the delivery from 0 to 1 based on the transcript."
  }
  prompt := fmt.Sprintf("Question: %s\n\nSample answer: %s\n\nCandidate's answer: %s", question.Question, question.SampleAnswer, answerText)

  obj, err := s.ai.GenerateJSON(ctx, system, prompt, "answer_assessment", assessmentSchema(withConfidence))
  if err != nil {
    s.log.Warn("Assessment failed", "question_id", question.ID, "error", err)
    return 0, "Assessment unavailable, please try again.", nil
  }

  score := 0
  if v, ok := obj["score"].(float64); ok {
    score = ClampScore(int(v))
  }
  feedback, _ := obj["feedback"].(string)
  if feedback == "" {
    feedback = "No feedback provided."
  }

  var confidence *float64
  if withConfidence {
    if v, ok := obj["confidence_score"].(float64); ok {
      c := clampConfidence(v)
      confidence = &c
    }
  }
  return score, feedback, confidence
}

func clampConfidence(v float64) float64 {
  if v < 0 {
    return 0
  }
  if v > 1 {
    return 1
  }
  return v
}

// ClampScore forces a model-reported score into the 0-100 range.
func ClampScore(score int) int {
  if score < 0 {
    return 0
  }
  if score > 100 {
    return 100
  }
  return score
}

func (s *interviewService) Export(ctx context.Context, userID uuid.UUID) (*InterviewExport, error) {
  questions, err := s.questionRepo.GetByUserID(ctx, nil, userID)
  if err != nil {
    return nil, err
  }
  practices, err := s.practiceRepo.GetByUserID(ctx, nil, userID)
  if err != nil {
    return nil, err
  }
  return &InterviewExport{Questions: questions, Practices: practices}, nil
}

func (s *interviewService) Clear(ctx context.Context, userID uuid.UUID) error {
  return s.questionRepo.DeleteByUserID(ctx, nil, userID)
}
