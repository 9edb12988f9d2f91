package types

import (
  "time"

  "github.com/google/uuid"
)

type User struct {
  ID                  uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  Username            string     `gorm:"uniqueIndex;not null;column:username" json:"username"`
  Email               string     `gorm:"uniqueIndex;not null;column:email" json:"email"`
  Password            string     `gorm:"not null;column:password" json:"-"`
  IsAdmin             bool       `gorm:"not null;default:false;column:is_admin" json:"is_admin"`
  SubscriptionStatus  string     `gorm:"column:subscription_status;not null;default:'free'" json:"subscription_status"`
  SubscriptionEndDate *time.Time `gorm:"column:subscription_end_date" json:"subscription_end_date,omitempty"`
  StripeCustomerID    string     `gorm:"column:stripe_customer_id;index" json:"-"`
  CreatedAt           time.Time  `gorm:"not null;default:now()" json:"created_at"`
  UpdatedAt           time.Time  `gorm:"not null;default:now()" json:"updated_at"`
}

func (User) TableName() string { return "user" }

// IsPremium reports whether the user currently has an active paid
// subscription. An expired end date downgrades regardless of status.
func (u *User) IsPremium() bool {
  if u == nil {
    return false
  }
  if u.SubscriptionStatus != "active" {
    return false
  }
  if u.SubscriptionEndDate != nil && u.SubscriptionEndDate.Before(time.Now()) {
    return false
  }
  return true
}
