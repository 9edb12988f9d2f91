package types

import (
  "encoding/json"
  "time"

  "github.com/google/uuid"
  "gorm.io/datatypes"
  "gorm.io/gorm"
)

type StudyPlan struct {
  ID                uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  UserID            uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
  User              *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
  FolderID          *uuid.UUID     `gorm:"type:uuid;index" json:"folder_id,omitempty"`
  Folder            *Folder        `gorm:"constraint:OnDelete:SET NULL;foreignKey:FolderID;references:ID" json:"folder,omitempty"`
  Title             string         `gorm:"column:title;not null" json:"title"`
  Category          string         `gorm:"column:category;not null;default:'General'" json:"category"`
  Content           datatypes.JSON `gorm:"column:content;type:jsonb" json:"content"`
  Priority          int            `gorm:"column:priority;not null;default:2" json:"priority"`
  DailyTimeMinutes  int            `gorm:"column:daily_time_minutes;not null;default:30" json:"daily_time_minutes"`
  Difficulty        string         `gorm:"column:difficulty" json:"difficulty"`
  Goals             string         `gorm:"column:goals;type:text" json:"goals"`
  CompletionTarget  *time.Time     `gorm:"column:completion_target" json:"completion_target,omitempty"`
  Progress          int            `gorm:"column:progress;not null;default:0" json:"progress"`
  TotalStudyMinutes int            `gorm:"column:total_study_minutes;not null;default:0" json:"total_study_minutes"`
  CreatedAt         time.Time      `gorm:"not null;default:now()" json:"created_at"`
  UpdatedAt         time.Time      `gorm:"not null;default:now()" json:"updated_at"`
  DeletedAt         gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (StudyPlan) TableName() string { return "study_plan" }

// GetContent decodes the stored plan JSON, returning nil for empty or
// corrupt stored text.
func (p *StudyPlan) GetContent() map[string]any {
  if p == nil || len(p.Content) == 0 {
    return nil
  }
  var out map[string]any
  if err := json.Unmarshal(p.Content, &out); err != nil {
    return nil
  }
  return out
}
