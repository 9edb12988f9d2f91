package repos

import (
  "context"

  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/studyforge/studyforge-backend/internal/logger"
  "github.com/studyforge/studyforge-backend/internal/types"
)

type ChatHistoryRepo interface {
  Create(ctx context.Context, tx *gorm.DB, entries []*types.ChatHistory) ([]*types.ChatHistory, error)
  GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.ChatHistory, error)
  DeleteByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error
}

type chatHistoryRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewChatHistoryRepo(db *gorm.DB, baseLog *logger.Logger) ChatHistoryRepo {
  return &chatHistoryRepo{db: db, log: baseLog.With("repo", "ChatHistoryRepo")}
}

func (r *chatHistoryRepo) Create(ctx context.Context, tx *gorm.DB, entries []*types.ChatHistory) ([]*types.ChatHistory, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if len(entries) == 0 {
    return []*types.ChatHistory{}, nil
  }
  if err := transaction.WithContext(ctx).Create(&entries).Error; err != nil {
    return nil, err
  }
  return entries, nil
}

func (r *chatHistoryRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.ChatHistory, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var results []*types.ChatHistory
  if userID == uuid.Nil {
    return results, nil
  }
  q := transaction.WithContext(ctx).
    Where("user_id = ?", userID).
    Order("created_at DESC")
  if limit > 0 {
    q = q.Limit(limit)
  }
  if err := q.Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (r *chatHistoryRepo) DeleteByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if userID == uuid.Nil {
    return nil
  }
  return transaction.WithContext(ctx).
    Where("user_id = ?", userID).
    Delete(&types.ChatHistory{}).Error
}
