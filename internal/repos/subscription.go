package repos

import (
  "context"

  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/studyforge/studyforge-backend/internal/logger"
  "github.com/studyforge/studyforge-backend/internal/types"
)

type SubscriptionRepo interface {
  Create(ctx context.Context, tx *gorm.DB, subs []*types.Subscription) ([]*types.Subscription, error)
  GetByStripeSubscriptionID(ctx context.Context, tx *gorm.DB, stripeSubID string) (*types.Subscription, error)
  GetActiveByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.Subscription, error)
  UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
}

type subscriptionRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewSubscriptionRepo(db *gorm.DB, baseLog *logger.Logger) SubscriptionRepo {
  return &subscriptionRepo{db: db, log: baseLog.With("repo", "SubscriptionRepo")}
}

func (r *subscriptionRepo) Create(ctx context.Context, tx *gorm.DB, subs []*types.Subscription) ([]*types.Subscription, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if len(subs) == 0 {
    return []*types.Subscription{}, nil
  }
  if err := transaction.WithContext(ctx).Create(&subs).Error; err != nil {
    return nil, err
  }
  return subs, nil
}

func (r *subscriptionRepo) GetByStripeSubscriptionID(ctx context.Context, tx *gorm.DB, stripeSubID string) (*types.Subscription, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if stripeSubID == "" {
    return nil, nil
  }
  var sub types.Subscription
  err := transaction.WithContext(ctx).
    Where("stripe_subscription_id = ?", stripeSubID).
    Limit(1).
    Find(&sub).Error
  if err != nil {
    return nil, err
  }
  if sub.ID == uuid.Nil {
    return nil, nil
  }
  return &sub, nil
}

func (r *subscriptionRepo) GetActiveByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.Subscription, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if userID == uuid.Nil {
    return nil, nil
  }
  var sub types.Subscription
  err := transaction.WithContext(ctx).
    Where("user_id = ? AND status = ?", userID, "active").
    Order("created_at DESC").
    Limit(1).
    Find(&sub).Error
  if err != nil {
    return nil, err
  }
  if sub.ID == uuid.Nil {
    return nil, nil
  }
  return &sub, nil
}

func (r *subscriptionRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if id == uuid.Nil || len(updates) == 0 {
    return nil
  }
  return transaction.WithContext(ctx).
    Model(&types.Subscription{}).
    Where("id = ?", id).
    Updates(updates).Error
}
