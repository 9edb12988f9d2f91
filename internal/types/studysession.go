package types

import (
  "time"

  "github.com/google/uuid"
)

type StudySession struct {
  ID              uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  UserID          uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
  StudyPlanID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"study_plan_id"`
  StudyPlan       *StudyPlan `gorm:"constraint:OnDelete:CASCADE;foreignKey:StudyPlanID;references:ID" json:"study_plan,omitempty"`
  StartTime       time.Time  `gorm:"column:start_time;not null" json:"start_time"`
  EndTime         *time.Time `gorm:"column:end_time" json:"end_time,omitempty"`
  DurationMinutes int        `gorm:"column:duration_minutes;not null;default:0" json:"duration_minutes"`
  CreatedAt       time.Time  `gorm:"not null;default:now()" json:"created_at"`
  UpdatedAt       time.Time  `gorm:"not null;default:now()" json:"updated_at"`
}

func (StudySession) TableName() string { return "study_session" }

func (s *StudySession) IsOpen() bool {
  return s != nil && s.EndTime == nil
}
