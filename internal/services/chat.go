package services

import (
  "context"
  "crypto/sha256"
  "encoding/hex"
  "fmt"
  "strings"
  "time"

  "github.com/google/uuid"

  "github.com/studyforge/studyforge-backend/internal/clients/redis"
  "github.com/studyforge/studyforge-backend/internal/logger"
  "github.com/studyforge/studyforge-backend/internal/repos"
  "github.com/studyforge/studyforge-backend/internal/types"
)

const chatContextTTL = time.Hour

// ChatService answers learner questions, optionally grounded in the user's
// processed documents and study plans (tutor mode). Assembled per-user
// context is cached for an hour; the cache being down degrades to a fresh
// assembly, never to a failed request.
type ChatService interface {
  Ask(ctx context.Context, userID uuid.UUID, input AskInput) (*types.ChatHistory, error)
  History(ctx context.Context, userID uuid.UUID, limit int) ([]*types.ChatHistory, error)
  ClearHistory(ctx context.Context, userID uuid.UUID) error
}

type AskInput struct {
  Query              string     `json:"query"`
  TutorMode          bool       `json:"tutor_mode"`
  RelatedDocumentID  *uuid.UUID `json:"related_document_id,omitempty"`
  RelatedStudyPlanID *uuid.UUID `json:"related_study_plan_id,omitempty"`
}

type chatService struct {
  log      *logger.Logger
  ai       OpenAIClient
  cache    redis.Cache
  chatRepo repos.ChatHistoryRepo
  docRepo  repos.DocumentRepo
  planRepo repos.StudyPlanRepo
}

func NewChatService(log *logger.Logger, ai OpenAIClient, cache redis.Cache, chatRepo repos.ChatHistoryRepo, docRepo repos.DocumentRepo, planRepo repos.StudyPlanRepo) ChatService {
  return &chatService{
    log:      log.With("service", "ChatService"),
    ai:       ai,
    cache:    cache,
    chatRepo: chatRepo,
    docRepo:  docRepo,
    planRepo: planRepo,
  }
}

// chatContextKey scopes cached context to one user and one query so a
// repeated question within the TTL reuses the same assembled material.
func chatContextKey(query string, userID uuid.UUID) string {
  sum := sha256.Sum256([]byte(query + userID.String()))
  return "chat:context:" + hex.EncodeToString(sum[:])
}

func (s *chatService) Ask(ctx context.Context, userID uuid.UUID, input AskInput) (*types.ChatHistory, error) {
  query := strings.TrimSpace(input.Query)
  if query == "" {
    return nil, fmt.Errorf("query is required")
  }

  system := "You are a helpful study assistant. Answer clearly and concisely."
  userPrompt := query

  if input.TutorMode {
    studyContext, err := s.assembleContext(ctx, userID, query, input)
    if err != nil {
      s.log.Warn("Context assembly failed, answering without it", "user_id", userID, "error", err)
      studyContext = ""
    }
    system = "You are a personal tutor. Ground your answer in the learner's own study material when it is relevant, and say so when it is not."
    if studyContext != "" {
      userPrompt = fmt.Sprintf("Learner's study material:\n%s\n\nQuestion: %s", studyContext, query)
    }
  }

  answer, err := s.ai.GenerateText(ctx, system, userPrompt)
  if err != nil {
    return nil, fmt.Errorf("chat completion: %w", err)
  }

  entry := &types.ChatHistory{
    UserID:             userID,
    Question:           query,
    Answer:             answer,
    TutorMode:          input.TutorMode,
    RelatedDocumentID:  input.RelatedDocumentID,
    RelatedStudyPlanID: input.RelatedStudyPlanID,
  }
  created, err := s.chatRepo.Create(ctx, nil, []*types.ChatHistory{entry})
  if err != nil {
    return nil, fmt.Errorf("persist chat entry: %w", err)
  }
  return created[0], nil
}

// assembleContext gathers summaries of the user's processed documents and
// study plans. A specific related document or plan, when given, is
// included in full rather than summarized.
func (s *chatService) assembleContext(ctx context.Context, userID uuid.UUID, query string, input AskInput) (string, error) {
  cacheKey := chatContextKey(query, userID)
  if s.cache != nil {
    var cached string
    if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
      return cached, nil
    }
  }

  var parts []string

  if input.RelatedDocumentID != nil {
    docs, err := s.docRepo.GetByIDs(ctx, nil, []uuid.UUID{*input.RelatedDocumentID})
    if err != nil {
      return "", err
    }
    if len(docs) == 1 && docs[0].UserID == userID {
      if structured := docs[0].GetStructuredContent(); structured != nil {
        parts = append(parts, fmt.Sprintf("Focused document %q: %s", docs[0].OriginalFilename, flattenStructured(structured)))
      }
    }
  }

  if input.RelatedStudyPlanID != nil {
    plans, err := s.planRepo.GetByIDs(ctx, nil, []uuid.UUID{*input.RelatedStudyPlanID})
    if err != nil {
      return "", err
    }
    if len(plans) == 1 && plans[0].UserID == userID {
      if content := plans[0].GetContent(); content != nil {
        if summary, ok := content["summary"].(string); ok && summary != "" {
          parts = append(parts, fmt.Sprintf("Focused study plan %q: %s", plans[0].Title, summary))
        }
      }
    }
  }

  docs, err := s.docRepo.GetProcessedByUserID(ctx, nil, userID)
  if err != nil {
    return "", err
  }
  for _, doc := range docs {
    structured := doc.GetStructuredContent()
    if structured == nil {
      continue
    }
    if summary, ok := structured["summary"].(string); ok && summary != "" {
      parts = append(parts, fmt.Sprintf("Document %q: %s", doc.OriginalFilename, summary))
    }
  }

  plans, err := s.planRepo.GetByUserID(ctx, nil, userID)
  if err != nil {
    return "", err
  }
  for _, plan := range plans {
    content := plan.GetContent()
    if content == nil {
      continue
    }
    if summary, ok := content["summary"].(string); ok && summary != "" {
      parts = append(parts, fmt.Sprintf("Study plan %q: %s", plan.Title, summary))
    }
  }

  assembled := strings.Join(parts, "\n")
  if s.cache != nil && assembled != "" {
    if err := s.cache.Set(ctx, cacheKey, assembled, chatContextTTL); err != nil {
      s.log.Warn("Context cache write failed", "user_id", userID, "error", err)
    }
  }
  return assembled, nil
}

// flattenStructured renders a structured document as prompt text: summary
// first, then each section heading with its content.
func flattenStructured(structured map[string]any) string {
  var b strings.Builder
  if summary, ok := structured["summary"].(string); ok {
    b.WriteString(summary)
  }
  sections, ok := structured["sections"].([]any)
  if !ok {
    return b.String()
  }
  for _, sec := range sections {
    entry, ok := sec.(map[string]any)
    if !ok {
      continue
    }
    heading, _ := entry["heading"].(string)
    content, _ := entry["content"].(string)
    if heading != "" || content != "" {
      fmt.Fprintf(&b, "\n%s: %s", heading, content)
    }
  }
  return b.String()
}

func (s *chatService) History(ctx context.Context, userID uuid.UUID, limit int) ([]*types.ChatHistory, error) {
  if limit <= 0 || limit > 100 {
    limit = 50
  }
  return s.chatRepo.GetByUserID(ctx, nil, userID, limit)
}

func (s *chatService) ClearHistory(ctx context.Context, userID uuid.UUID) error {
  return s.chatRepo.DeleteByUserID(ctx, nil, userID)
}
