package services

import (
  "context"
  "encoding/json"
  "fmt"
  "math"
  "strings"
  "time"

  "github.com/google/uuid"
  "gorm.io/datatypes"

  "github.com/studyforge/studyforge-backend/internal/logger"
  "github.com/studyforge/studyforge-backend/internal/repos"
  "github.com/studyforge/studyforge-backend/internal/types"
)

// StudyPlanService generates and maintains AI study plans. Generated plan
// content is validated before it is persisted: a plan that comes back too
// thin is rejected rather than stored.
type StudyPlanService interface {
  Generate(ctx context.Context, userID uuid.UUID, input GeneratePlanInput) (*types.StudyPlan, error)
  Adjust(ctx context.Context, plan *types.StudyPlan, feedback string) (bool, error)
  RecordStudyTime(ctx context.Context, plan *types.StudyPlan, minutes int) error
}

type GeneratePlanInput struct {
  Topic            string     `json:"topic"`
  Category         string     `json:"category"`
  Priority         int        `json:"priority"`
  DailyTimeMinutes int        `json:"daily_time_minutes"`
  Difficulty       string     `json:"difficulty"`
  Goals            string     `json:"goals"`
  CompletionTarget *time.Time `json:"completion_target,omitempty"`
  DocumentIDs      []uuid.UUID `json:"document_ids,omitempty"`
}

type studyPlanService struct {
  log       *logger.Logger
  ai        OpenAIClient
  planRepo  repos.StudyPlanRepo
  docRepo   repos.DocumentRepo
}

func NewStudyPlanService(log *logger.Logger, ai OpenAIClient, planRepo repos.StudyPlanRepo, docRepo repos.DocumentRepo) StudyPlanService {
  return &studyPlanService{
    log:      log.With("service", "StudyPlanService"),
    ai:       ai,
    planRepo: planRepo,
    docRepo:  docRepo,
  }
}

func studyPlanSchema() map[string]any {
  return map[string]any{
    "type": "object",
    "properties": map[string]any{
      "title":      map[string]any{"type": "string"},
      "summary":    map[string]any{"type": "string"},
      "difficulty": map[string]any{"type": "string"},
      "key_concepts": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
      "sections": map[string]any{
        "type": "array",
        "items": map[string]any{
          "type": "object",
          "properties": map[string]any{
            "heading":    map[string]any{"type": "string"},
            "content":    map[string]any{"type": "string"},
            "key_points": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
          },
          "required":             []string{"heading", "content", "key_points"},
          "additionalProperties": false,
        },
      },
      "daily_schedule": map[string]any{
        "type": "array",
        "items": map[string]any{
          "type": "object",
          "properties": map[string]any{
            "day":              map[string]any{"type": "integer"},
            "focus":            map[string]any{"type": "string"},
            "activities":       map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
            "duration_minutes": map[string]any{"type": "integer"},
          },
          "required":             []string{"day", "focus", "activities", "duration_minutes"},
          "additionalProperties": false,
        },
      },
      "milestones": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
      "practice_questions": map[string]any{
        "type": "array",
        "items": map[string]any{
          "type": "object",
          "properties": map[string]any{
            "question": map[string]any{"type": "string"},
            "answer":   map[string]any{"type": "string"},
          },
          "required":             []string{"question", "answer"},
          "additionalProperties": false,
        },
      },
    },
    "required": []string{"title", "summary", "difficulty", "key_concepts", "sections", "daily_schedule", "milestones", "practice_questions"},
    "additionalProperties": false,
  }
}

// ValidatePlanContent enforces the minimum substance a generated plan must
// have: at least 3 key concepts, 3 sections, and 5 practice questions, plus
// all required top-level fields.
func ValidatePlanContent(content map[string]any) error {
  if content == nil {
    return fmt.Errorf("empty plan content")
  }
  for _, field := range []string{"title", "summary", "key_concepts", "sections", "daily_schedule", "practice_questions"} {
    if _, ok := content[field]; !ok {
      return fmt.Errorf("plan content missing required field %q", field)
    }
  }
  if n := arrayLen(content["key_concepts"]); n < 3 {
    return fmt.Errorf("plan has %d key concepts, need at least 3", n)
  }
  if n := arrayLen(content["sections"]); n < 3 {
    return fmt.Errorf("plan has %d sections, need at least 3", n)
  }
  if n := arrayLen(content["practice_questions"]); n < 5 {
    return fmt.Errorf("plan has %d practice questions, need at least 5", n)
  }
  return nil
}

func arrayLen(v any) int {
  arr, ok := v.([]any)
  if !ok {
    return 0
  }
  return len(arr)
}

func (s *studyPlanService) Generate(ctx context.Context, userID uuid.UUID, input GeneratePlanInput) (*types.StudyPlan, error) {
  topic := strings.TrimSpace(input.Topic)
  if topic == "" {
    return nil, fmt.Errorf("topic is required")
  }

  priority := input.Priority
  if priority < 1 || priority > 3 {
    priority = 2
  }
  dailyMinutes := input.DailyTimeMinutes
  if dailyMinutes <= 0 {
    dailyMinutes = 30
  }
  category := strings.TrimSpace(input.Category)
  if category == "" {
    category = "General"
  }

  daysAvailable := 14
  if input.CompletionTarget != nil {
    until := time.Until(*input.CompletionTarget)
    daysAvailable = int(math.Ceil(until.Hours() / 24))
    if daysAvailable < 1 {
      daysAvailable = 1
    }
  }

  var prompt strings.Builder
  fmt.Fprintf(&prompt, "Create a study plan for the topic: %s\n", topic)
  fmt.Fprintf(&prompt, "Available study time: %d minutes per day over %d days.\n", dailyMinutes, daysAvailable)
  if input.Difficulty != "" {
    fmt.Fprintf(&prompt, "Target difficulty: %s\n", input.Difficulty)
  }
  if strings.TrimSpace(input.Goals) != "" {
    fmt.Fprintf(&prompt, "Learner goals: %s\n", input.Goals)
  }

  if len(input.DocumentIDs) > 0 {
    docs, err := s.docRepo.GetByIDs(ctx, nil, input.DocumentIDs)
    if err != nil {
      return nil, fmt.Errorf("load reference documents: %w", err)
    }
    for _, doc := range docs {
      if doc.UserID != userID {
        continue
      }
      if structured := doc.GetStructuredContent(); structured != nil {
        if summary, ok := structured["summary"].(string); ok && summary != "" {
          fmt.Fprintf(&prompt, "Reference material %q: %s\n", doc.OriginalFilename, summary)
        }
      }
    }
  }

  system := "You are an expert learning coach. Design a complete, realistic study plan with at least 3 key concepts, at least 3 content sections, a day-by-day schedule that fits the stated daily time, concrete milestones, and at least 5 practice questions with detailed answers."

  content, err := s.ai.GenerateJSON(ctx, system, prompt.String(), "study_plan", studyPlanSchema())
  if err != nil {
    return nil, fmt.Errorf("plan generation: %w", err)
  }
  if err := ValidatePlanContent(content); err != nil {
    s.log.Warn("Generated plan rejected", "user_id", userID, "topic", topic, "error", err)
    return nil, fmt.Errorf("generated plan failed validation: %w", err)
  }

  raw, err := json.Marshal(content)
  if err != nil {
    return nil, fmt.Errorf("encode plan content: %w", err)
  }

  title := topic
  if t, ok := content["title"].(string); ok && strings.TrimSpace(t) != "" {
    title = t
  }
  difficulty := input.Difficulty
  if d, ok := content["difficulty"].(string); ok && d != "" {
    difficulty = d
  }

  plan := &types.StudyPlan{
    UserID:           userID,
    Title:            title,
    Category:         category,
    Content:          datatypes.JSON(raw),
    Priority:         priority,
    DailyTimeMinutes: dailyMinutes,
    Difficulty:       difficulty,
    Goals:            input.Goals,
    CompletionTarget: input.CompletionTarget,
  }
  created, err := s.planRepo.Create(ctx, nil, []*types.StudyPlan{plan})
  if err != nil {
    return nil, fmt.Errorf("persist plan: %w", err)
  }
  return created[0], nil
}

// Adjust rewrites the stored schedule based on learner feedback. It returns
// false when the plan carries no stored content to adjust.
func (s *studyPlanService) Adjust(ctx context.Context, plan *types.StudyPlan, feedback string) (bool, error) {
  if plan == nil {
    return false, fmt.Errorf("nil plan")
  }
  current := plan.GetContent()
  if current == nil {
    return false, nil
  }
  if strings.TrimSpace(feedback) == "" {
    return false, fmt.Errorf("feedback is required")
  }

  currentRaw, err := json.Marshal(current)
  if err != nil {
    return false, fmt.Errorf("encode current plan: %w", err)
  }

  system := "You are an expert learning coach. Revise the given study plan according to the learner's feedback. Keep what works, change what the feedback asks for, and return the full revised plan."
  prompt := fmt.Sprintf("Current plan:\n%s\n\nLearner feedback:\n%s", string(currentRaw), feedback)

  revised, err := s.ai.GenerateJSON(ctx, system, prompt, "study_plan", studyPlanSchema())
  if err != nil {
    return false, fmt.Errorf("plan adjustment: %w", err)
  }
  if err := ValidatePlanContent(revised); err != nil {
    return false, fmt.Errorf("adjusted plan failed validation: %w", err)
  }

  raw, err := json.Marshal(revised)
  if err != nil {
    return false, fmt.Errorf("encode adjusted plan: %w", err)
  }
  if err := s.planRepo.UpdateFields(ctx, nil, plan.ID, map[string]interface{}{
    "content": datatypes.JSON(raw),
  }); err != nil {
    return false, fmt.Errorf("persist adjusted plan: %w", err)
  }
  return true, nil
}

// RecordStudyTime adds completed session minutes to the plan and derives a
// progress percentage from total time against the scheduled amount.
func (s *studyPlanService) RecordStudyTime(ctx context.Context, plan *types.StudyPlan, minutes int) error {
  if plan == nil {
    return fmt.Errorf("nil plan")
  }
  if minutes < 0 {
    minutes = 0
  }
  total := plan.TotalStudyMinutes + minutes

  progress := plan.Progress
  if scheduled := s.scheduledMinutes(plan); scheduled > 0 {
    progress = int(math.Round(float64(total) / float64(scheduled) * 100))
    if progress > 100 {
      progress = 100
    }
  }

  return s.planRepo.UpdateFields(ctx, nil, plan.ID, map[string]interface{}{
    "total_study_minutes": total,
    "progress":            progress,
  })
}

// scheduledMinutes sums the plan's day-by-day schedule; a plan with no
// usable schedule reports 0 and keeps its stored progress untouched.
func (s *studyPlanService) scheduledMinutes(plan *types.StudyPlan) int {
  content := plan.GetContent()
  if content == nil {
    return 0
  }
  days, ok := content["daily_schedule"].([]any)
  if !ok {
    return 0
  }
  total := 0
  for _, d := range days {
    entry, ok := d.(map[string]any)
    if !ok {
      continue
    }
    if dur, ok := entry["duration_minutes"].(float64); ok && dur > 0 {
      total += int(dur)
    }
  }
  return total
}
