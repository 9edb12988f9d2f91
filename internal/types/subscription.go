package types

import (
  "time"

  "github.com/google/uuid"
)

type Subscription struct {
  ID                   uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  UserID               uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
  User                 *User      `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
  StripeSubscriptionID string     `gorm:"uniqueIndex;not null;column:stripe_subscription_id" json:"stripe_subscription_id"`
  StripePriceID        string     `gorm:"column:stripe_price_id" json:"stripe_price_id"`
  Status               string     `gorm:"column:status;not null;default:'active'" json:"status"`
  PlanType             string     `gorm:"column:plan_type;not null" json:"plan_type"`
  Amount               int64      `gorm:"column:amount" json:"amount"`
  Currency             string     `gorm:"column:currency" json:"currency"`
  Interval             string     `gorm:"column:interval" json:"interval"`
  StartDate            time.Time  `gorm:"column:start_date" json:"start_date"`
  EndDate              time.Time  `gorm:"column:end_date" json:"end_date"`
  CancelledAt          *time.Time `gorm:"column:cancelled_at" json:"cancelled_at,omitempty"`
  CreatedAt            time.Time  `gorm:"not null;default:now()" json:"created_at"`
  UpdatedAt            time.Time  `gorm:"not null;default:now()" json:"updated_at"`
}

func (Subscription) TableName() string { return "subscription" }
