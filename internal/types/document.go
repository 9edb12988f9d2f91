package types

import (
  "encoding/json"
  "time"

  "github.com/google/uuid"
  "gorm.io/datatypes"
  "gorm.io/gorm"
)

const (
  DocumentTypePDF   = "pdf"
  DocumentTypeImage = "image"
  DocumentTypeLink  = "link"
  DocumentTypeText  = "text"
  // DocumentTypeAI marks documents synthesized from other documents.
  DocumentTypeAI = "ai"
)

type Document struct {
  ID                uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
  UserID            uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
  User              *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
  FolderID          *uuid.UUID     `gorm:"type:uuid;index" json:"folder_id,omitempty"`
  Folder            *Folder        `gorm:"constraint:OnDelete:SET NULL;foreignKey:FolderID;references:ID" json:"folder,omitempty"`
  Filename          string         `gorm:"column:filename;not null" json:"filename"`
  OriginalFilename  string         `gorm:"column:original_filename;not null" json:"original_filename"`
  FileType          string         `gorm:"column:file_type;not null" json:"file_type"`
  Content           string         `gorm:"column:content;type:text" json:"content"`
  StructuredContent datatypes.JSON `gorm:"column:structured_content;type:jsonb" json:"structured_content"`
  Category          string         `gorm:"column:category" json:"category"`
  Processed         bool           `gorm:"column:processed;not null;default:false" json:"processed"`
  CreatedAt         time.Time      `gorm:"not null;default:now()" json:"created_at"`
  UpdatedAt         time.Time      `gorm:"not null;default:now()" json:"updated_at"`
  DeletedAt         gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Document) TableName() string { return "document" }

// GetStructuredContent decodes the stored structured content. Malformed or
// empty stored JSON yields nil, never an error: stale blobs are treated as
// absent content.
func (d *Document) GetStructuredContent() map[string]any {
  if d == nil || len(d.StructuredContent) == 0 {
    return nil
  }
  var out map[string]any
  if err := json.Unmarshal(d.StructuredContent, &out); err != nil {
    return nil
  }
  return out
}
