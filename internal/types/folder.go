package types

import (
  "time"

  "github.com/google/uuid"
)

type Folder struct {
  ID        uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  UserID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
  User      *User      `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
  Name      string     `gorm:"column:name;not null" json:"name"`
  ParentID  *uuid.UUID `gorm:"type:uuid;index" json:"parent_id,omitempty"`
  Parent    *Folder    `gorm:"constraint:OnDelete:CASCADE;foreignKey:ParentID;references:ID" json:"parent,omitempty"`
  CreatedAt time.Time  `gorm:"not null;default:now()" json:"created_at"`
  UpdatedAt time.Time  `gorm:"not null;default:now()" json:"updated_at"`
}

func (Folder) TableName() string { return "folder" }
