package types

import (
  "time"

  "github.com/google/uuid"
  "gorm.io/datatypes"
)

const (
  JobStatusQueued    = "queued"
  JobStatusRunning   = "running"
  JobStatusSucceeded = "succeeded"
  JobStatusFailed    = "failed"
  JobStatusCanceled  = "canceled"
)

type JobRun struct {
  ID          uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  OwnerUserID uuid.UUID      `gorm:"type:uuid;not null;index;column:owner_user_id" json:"owner_user_id"`
  EntityType  string         `gorm:"column:entity_type;index" json:"entity_type"`
  EntityID    uuid.UUID      `gorm:"type:uuid;index;column:entity_id" json:"entity_id"`
  JobType     string         `gorm:"column:job_type;not null;index" json:"job_type"`
  Status      string         `gorm:"column:status;not null;default:'queued';index" json:"status"`
  Attempts    int            `gorm:"column:attempts;not null;default:0" json:"attempts"`
  Stage       string         `gorm:"column:stage" json:"stage"`
  Progress    int            `gorm:"column:progress;not null;default:0" json:"progress"`
  Message     string         `gorm:"column:message;type:text" json:"message"`
  Payload     datatypes.JSON `gorm:"column:payload;type:jsonb" json:"payload"`
  Result      datatypes.JSON `gorm:"column:result;type:jsonb" json:"result"`
  LastError   string         `gorm:"column:last_error;type:text" json:"last_error"`
  LastErrorAt *time.Time     `gorm:"column:last_error_at" json:"last_error_at,omitempty"`
  LockedAt    *time.Time     `gorm:"column:locked_at" json:"locked_at,omitempty"`
  HeartbeatAt *time.Time     `gorm:"column:heartbeat_at" json:"heartbeat_at,omitempty"`
  CreatedAt   time.Time      `gorm:"not null;default:now()" json:"created_at"`
  UpdatedAt   time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (JobRun) TableName() string { return "job_run" }

func (j *JobRun) IsTerminal() bool {
  if j == nil {
    return false
  }
  switch j.Status {
  case JobStatusSucceeded, JobStatusFailed, JobStatusCanceled:
    return true
  default:
    return false
  }
}
