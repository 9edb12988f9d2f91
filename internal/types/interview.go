package types

import (
  "time"

  "github.com/google/uuid"
  "gorm.io/gorm"
)

const (
  AnswerTypeText  = "text"
  AnswerTypeAudio = "audio"
  AnswerTypeVideo = "video"
)

type InterviewQuestion struct {
  ID           uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  UserID       uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
  User         *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
  Question     string         `gorm:"column:question;type:text;not null" json:"question"`
  SampleAnswer string         `gorm:"column:sample_answer;type:text" json:"sample_answer"`
  Category     string         `gorm:"column:category" json:"category"`
  Difficulty   string         `gorm:"column:difficulty" json:"difficulty"`
  CreatedAt    time.Time      `gorm:"not null;default:now()" json:"created_at"`
  UpdatedAt    time.Time      `gorm:"not null;default:now()" json:"updated_at"`
  DeletedAt    gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (InterviewQuestion) TableName() string { return "interview_question" }

type InterviewPractice struct {
  ID              uuid.UUID          `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  UserID          uuid.UUID          `gorm:"type:uuid;not null;index" json:"user_id"`
  QuestionID      uuid.UUID          `gorm:"type:uuid;not null;index" json:"question_id"`
  Question        *InterviewQuestion `gorm:"constraint:OnDelete:CASCADE;foreignKey:QuestionID;references:ID" json:"question,omitempty"`
  AttemptNumber   int                `gorm:"column:attempt_number;not null;default:1" json:"attempt_number"`
  AnswerType      string             `gorm:"column:answer_type;not null;default:'text'" json:"answer_type"`
  AnswerText      string             `gorm:"column:answer_text;type:text" json:"answer_text"`
  MediaFilename   string             `gorm:"column:media_filename" json:"media_filename,omitempty"`
  Score           int                `gorm:"column:score;not null;default:0" json:"score"`
  Feedback        string             `gorm:"column:feedback;type:text" json:"feedback"`
  ConfidenceScore *float64           `gorm:"column:confidence_score" json:"confidence_score,omitempty"`
  CreatedAt       time.Time          `gorm:"not null;default:now()" json:"created_at"`
}

func (InterviewPractice) TableName() string { return "interview_practice" }
