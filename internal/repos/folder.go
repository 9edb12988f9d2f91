package repos

import (
  "context"

  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/studyforge/studyforge-backend/internal/logger"
  "github.com/studyforge/studyforge-backend/internal/types"
)

type FolderRepo interface {
  Create(ctx context.Context, tx *gorm.DB, folders []*types.Folder) ([]*types.Folder, error)
  GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Folder, error)
  GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Folder, error)
  GetChildren(ctx context.Context, tx *gorm.DB, parentID uuid.UUID) ([]*types.Folder, error)
  UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
  DeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error
}

type folderRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewFolderRepo(db *gorm.DB, baseLog *logger.Logger) FolderRepo {
  return &folderRepo{db: db, log: baseLog.With("repo", "FolderRepo")}
}

func (r *folderRepo) Create(ctx context.Context, tx *gorm.DB, folders []*types.Folder) ([]*types.Folder, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if len(folders) == 0 {
    return []*types.Folder{}, nil
  }
  if err := transaction.WithContext(ctx).Create(&folders).Error; err != nil {
    return nil, err
  }
  return folders, nil
}

func (r *folderRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Folder, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var results []*types.Folder
  if len(ids) == 0 {
    return results, nil
  }
  if err := transaction.WithContext(ctx).
    Where("id IN ?", ids).
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (r *folderRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Folder, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var results []*types.Folder
  if userID == uuid.Nil {
    return results, nil
  }
  if err := transaction.WithContext(ctx).
    Where("user_id = ?", userID).
    Order("name ASC").
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (r *folderRepo) GetChildren(ctx context.Context, tx *gorm.DB, parentID uuid.UUID) ([]*types.Folder, error) {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  var results []*types.Folder
  if parentID == uuid.Nil {
    return results, nil
  }
  if err := transaction.WithContext(ctx).
    Where("parent_id = ?", parentID).
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (r *folderRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if id == uuid.Nil || len(updates) == 0 {
    return nil
  }
  return transaction.WithContext(ctx).
    Model(&types.Folder{}).
    Where("id = ?", id).
    Updates(updates).Error
}

func (r *folderRepo) DeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error {
  transaction := tx
  if transaction == nil {
    transaction = r.db
  }
  if len(ids) == 0 {
    return nil
  }
  return transaction.WithContext(ctx).
    Where("id IN ?", ids).
    Delete(&types.Folder{}).Error
}
