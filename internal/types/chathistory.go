package types

import (
  "time"

  "github.com/google/uuid"
)

type ChatHistory struct {
  ID                 uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  UserID             uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
  User               *User      `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
  Question           string     `gorm:"column:question;type:text;not null" json:"question"`
  Answer             string     `gorm:"column:answer;type:text;not null" json:"answer"`
  TutorMode          bool       `gorm:"column:tutor_mode;not null;default:false" json:"tutor_mode"`
  RelatedDocumentID  *uuid.UUID `gorm:"type:uuid;index" json:"related_document_id,omitempty"`
  RelatedStudyPlanID *uuid.UUID `gorm:"type:uuid;index" json:"related_study_plan_id,omitempty"`
  CreatedAt          time.Time  `gorm:"not null;default:now()" json:"created_at"`
}

func (ChatHistory) TableName() string { return "chat_history" }
