package services

import (
  "context"
  "fmt"
  "math"
  "time"

  "github.com/google/uuid"

  "github.com/studyforge/studyforge-backend/internal/logger"
  "github.com/studyforge/studyforge-backend/internal/repos"
  "github.com/studyforge/studyforge-backend/internal/types"
)

// SessionService tracks timed study sessions against a plan. At most one
// session per plan is open at a time; ending a session feeds its duration
// back into the plan's totals.
type SessionService interface {
  Start(ctx context.Context, userID, planID uuid.UUID) (*types.StudySession, error)
  End(ctx context.Context, userID, sessionID uuid.UUID) (*types.StudySession, error)
  ListForPlan(ctx context.Context, userID, planID uuid.UUID) ([]*types.StudySession, error)
}

type sessionService struct {
  log         *logger.Logger
  sessionRepo repos.StudySessionRepo
  planRepo    repos.StudyPlanRepo
  planService StudyPlanService
}

func NewSessionService(log *logger.Logger, sessionRepo repos.StudySessionRepo, planRepo repos.StudyPlanRepo, planService StudyPlanService) SessionService {
  return &sessionService{
    log:         log.With("service", "SessionService"),
    sessionRepo: sessionRepo,
    planRepo:    planRepo,
    planService: planService,
  }
}

func (s *sessionService) Start(ctx context.Context, userID, planID uuid.UUID) (*types.StudySession, error) {
  plan, err := s.ownedPlan(ctx, userID, planID)
  if err != nil {
    return nil, err
  }

  // An already-open session for the plan is resumed, not duplicated.
  if open, err := s.sessionRepo.GetOpenByPlanID(ctx, nil, plan.ID); err != nil {
    return nil, err
  } else if open != nil {
    return open, nil
  }

  session := &types.StudySession{
    UserID:      userID,
    StudyPlanID: plan.ID,
    StartTime:   time.Now(),
  }
  created, err := s.sessionRepo.Create(ctx, nil, []*types.StudySession{session})
  if err != nil {
    return nil, fmt.Errorf("start session: %w", err)
  }
  return created[0], nil
}

// End closes an open session. Ending an already-closed session is an error,
// not an idempotent no-op: the duration has already been counted.
func (s *sessionService) End(ctx context.Context, userID, sessionID uuid.UUID) (*types.StudySession, error) {
  sessions, err := s.sessionRepo.GetByIDs(ctx, nil, []uuid.UUID{sessionID})
  if err != nil {
    return nil, err
  }
  if len(sessions) == 0 || sessions[0].UserID != userID {
    return nil, fmt.Errorf("session not found")
  }
  session := sessions[0]
  if !session.IsOpen() {
    return nil, fmt.Errorf("session already ended")
  }

  now := time.Now()
  minutes := int(math.Round(now.Sub(session.StartTime).Minutes()))
  if minutes < 0 {
    minutes = 0
  }

  if err := s.sessionRepo.UpdateFields(ctx, nil, session.ID, map[string]interface{}{
    "end_time":         now,
    "duration_minutes": minutes,
  }); err != nil {
    return nil, fmt.Errorf("end session: %w", err)
  }
  session.EndTime = &now
  session.DurationMinutes = minutes

  plans, err := s.planRepo.GetByIDs(ctx, nil, []uuid.UUID{session.StudyPlanID})
  if err == nil && len(plans) == 1 {
    if err := s.planService.RecordStudyTime(ctx, plans[0], minutes); err != nil {
      s.log.Warn("Plan totals update failed", "plan_id", session.StudyPlanID, "error", err)
    }
  }

  return session, nil
}

func (s *sessionService) ListForPlan(ctx context.Context, userID, planID uuid.UUID) ([]*types.StudySession, error) {
  plan, err := s.ownedPlan(ctx, userID, planID)
  if err != nil {
    return nil, err
  }
  return s.sessionRepo.GetByPlanID(ctx, nil, plan.ID)
}

func (s *sessionService) ownedPlan(ctx context.Context, userID, planID uuid.UUID) (*types.StudyPlan, error) {
  plans, err := s.planRepo.GetByIDs(ctx, nil, []uuid.UUID{planID})
  if err != nil {
    return nil, err
  }
  if len(plans) == 0 || plans[0].UserID != userID {
    return nil, fmt.Errorf("study plan not found")
  }
  return plans[0], nil
}
