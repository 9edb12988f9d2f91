package repos

import (
  "context"

  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/studyforge/studyforge-backend/internal/logger"
  "github.com/studyforge/studyforge-backend/internal/types"
)

type StudySessionRepo interface {
  Create(ctx context.Context, tx *gorm.DB, sessions []*types.StudySession) ([]*types.StudySession, error)
  GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.StudySession, error)
  GetByPlanID(ctx context.Context, tx *gorm.DB, planID uuid.UUID) ([]*types.StudySession, error)
  GetOpenByPlanID(ctx context.Context, tx *gorm.DB, planID uuid.UUID) (*types.StudySession, error)
  UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
  DeleteByPlanIDs(ctx context.Context, tx *gorm.DB, planIDs []uuid.UUID) error
}

type studySessionRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewStudySessionRepo(db *gorm.DB, baseLog *logger.Logger) StudySessionRepo {
  return &studySessionRepo{db: db, log: baseLog.With("repo", "StudySessionRepo")}
}

func (r *studySessionRepo) Create(ctx context.Context, tx *gorm.DB, sessions []*types.StudySession) ([]*types.StudySession, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if len(sessions) == 0 {
    return []*types.StudySession{}, nil
  }
  if err := transaction.WithContext(ctx).Create(&sessions).Error; err != nil {
    return nil, err
  }
  return sessions, nil
}

func (r *studySessionRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.StudySession, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var results []*types.StudySession
  if len(ids) == 0 {
    return results, nil
  }
  if err := transaction.WithContext(ctx).
    Where("id IN ?", ids).
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (r *studySessionRepo) GetByPlanID(ctx context.Context, tx *gorm.DB, planID uuid.UUID) ([]*types.StudySession, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var results []*types.StudySession
  if planID == uuid.Nil {
    return results, nil
  }
  if err := transaction.WithContext(ctx).
    Where("study_plan_id = ?", planID).
    Order("start_time DESC").
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (r *studySessionRepo) GetOpenByPlanID(ctx context.Context, tx *gorm.DB, planID uuid.UUID) (*types.StudySession, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if planID == uuid.Nil {
    return nil, nil
  }
  var session types.StudySession
  err := transaction.WithContext(ctx).
    Where("study_plan_id = ? AND end_time IS NULL", planID).
    Order("start_time DESC").
    Limit(1).
    Find(&session).Error
  if err != nil {
    return nil, err
  }
  if session.ID == uuid.Nil {
    return nil, nil
  }
  return &session, nil
}

func (r *studySessionRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if id == uuid.Nil || len(updates) == 0 {
    return nil
  }
  return transaction.WithContext(ctx).
    Model(&types.StudySession{}).
    Where("id = ?", id).
    Updates(updates).Error
}

func (r *studySessionRepo) DeleteByPlanIDs(ctx context.Context, tx *gorm.DB, planIDs []uuid.UUID) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if len(planIDs) == 0 {
    return nil
  }
  return transaction.WithContext(ctx).
    Where("study_plan_id IN ?", planIDs).
    Delete(&types.StudySession{}).Error
}
