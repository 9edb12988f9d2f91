package services

import (
  "context"
  "fmt"
  "strings"

  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/studyforge/studyforge-backend/internal/logger"
  "github.com/studyforge/studyforge-backend/internal/repos"
  "github.com/studyforge/studyforge-backend/internal/types"
)

// FolderService manages the user's folder tree and what lives in it.
// Every referenced folder, document, and plan is ownership-checked before
// anything moves.
type FolderService interface {
  Create(ctx context.Context, userID uuid.UUID, name string, parentID *uuid.UUID) (*types.Folder, error)
  Rename(ctx context.Context, userID, folderID uuid.UUID, name string) error
  Delete(ctx context.Context, userID, folderID uuid.UUID) error
  List(ctx context.Context, userID uuid.UUID) ([]*types.Folder, error)
  Contents(ctx context.Context, userID, folderID uuid.UUID) (*FolderContents, error)
  AssignDocuments(ctx context.Context, userID uuid.UUID, docIDs []uuid.UUID, folderID *uuid.UUID) error
  AssignStudyPlans(ctx context.Context, userID uuid.UUID, planIDs []uuid.UUID, folderID *uuid.UUID) error
}

type FolderContents struct {
  Folder     *types.Folder      `json:"folder"`
  Subfolders []*types.Folder    `json:"subfolders"`
  Documents  []*types.Document  `json:"documents"`
  StudyPlans []*types.StudyPlan `json:"study_plans"`
}

type folderService struct {
  log        *logger.Logger
  db         *gorm.DB
  folderRepo repos.FolderRepo
  docRepo    repos.DocumentRepo
  planRepo   repos.StudyPlanRepo
}

func NewFolderService(log *logger.Logger, db *gorm.DB, folderRepo repos.FolderRepo, docRepo repos.DocumentRepo, planRepo repos.StudyPlanRepo) FolderService {
  return &folderService{
    log:        log.With("service", "FolderService"),
    db:         db,
    folderRepo: folderRepo,
    docRepo:    docRepo,
    planRepo:   planRepo,
  }
}

func (s *folderService) Create(ctx context.Context, userID uuid.UUID, name string, parentID *uuid.UUID) (*types.Folder, error) {
  name = strings.TrimSpace(name)
  if name == "" {
    return nil, fmt.Errorf("folder name is required")
  }
  if parentID != nil {
    if _, err := s.ownedFolder(ctx, userID, *parentID); err != nil {
      return nil, fmt.Errorf("parent folder: %w", err)
    }
  }

  folder := &types.Folder{
    UserID:   userID,
    Name:     name,
    ParentID: parentID,
  }
  created, err := s.folderRepo.Create(ctx, nil, []*types.Folder{folder})
  if err != nil {
    return nil, fmt.Errorf("create folder: %w", err)
  }
  return created[0], nil
}

func (s *folderService) Rename(ctx context.Context, userID, folderID uuid.UUID, name string) error {
  name = strings.TrimSpace(name)
  if name == "" {
    return fmt.Errorf("folder name is required")
  }
  if _, err := s.ownedFolder(ctx, userID, folderID); err != nil {
    return err
  }
  return s.folderRepo.UpdateFields(ctx, nil, folderID, map[string]interface{}{
    "name": name,
  })
}

// Delete removes the folder; its contents survive, detached to the root.
// Child folders move up to the deleted folder's parent.
func (s *folderService) Delete(ctx context.Context, userID, folderID uuid.UUID) error {
  folder, err := s.ownedFolder(ctx, userID, folderID)
  if err != nil {
    return err
  }

  return s.db.Transaction(func(tx *gorm.DB) error {
    children, err := s.folderRepo.GetChildren(ctx, tx, folder.ID)
    if err != nil {
      return err
    }
    for _, child := range children {
      if err := s.folderRepo.UpdateFields(ctx, tx, child.ID, map[string]interface{}{
        "parent_id": folder.ParentID,
      }); err != nil {
        return err
      }
    }

    docs, err := s.docRepo.GetByUserID(ctx, tx, userID)
    if err != nil {
      return err
    }
    var docIDs []uuid.UUID
    for _, doc := range docs {
      if doc.FolderID != nil && *doc.FolderID == folder.ID {
        docIDs = append(docIDs, doc.ID)
      }
    }
    if err := s.docRepo.AssignFolder(ctx, tx, docIDs, nil); err != nil {
      return err
    }

    plans, err := s.planRepo.GetByUserID(ctx, tx, userID)
    if err != nil {
      return err
    }
    var planIDs []uuid.UUID
    for _, plan := range plans {
      if plan.FolderID != nil && *plan.FolderID == folder.ID {
        planIDs = append(planIDs, plan.ID)
      }
    }
    if err := s.planRepo.AssignFolder(ctx, tx, planIDs, nil); err != nil {
      return err
    }

    return s.folderRepo.DeleteByIDs(ctx, tx, []uuid.UUID{folder.ID})
  })
}

func (s *folderService) List(ctx context.Context, userID uuid.UUID) ([]*types.Folder, error) {
  return s.folderRepo.GetByUserID(ctx, nil, userID)
}

func (s *folderService) Contents(ctx context.Context, userID, folderID uuid.UUID) (*FolderContents, error) {
  folder, err := s.ownedFolder(ctx, userID, folderID)
  if err != nil {
    return nil, err
  }

  subfolders, err := s.folderRepo.GetChildren(ctx, nil, folder.ID)
  if err != nil {
    return nil, err
  }

  docs, err := s.docRepo.GetByUserID(ctx, nil, userID)
  if err != nil {
    return nil, err
  }
  inFolderDocs := make([]*types.Document, 0)
  for _, doc := range docs {
    if doc.FolderID != nil && *doc.FolderID == folder.ID {
      inFolderDocs = append(inFolderDocs, doc)
    }
  }

  plans, err := s.planRepo.GetByUserID(ctx, nil, userID)
  if err != nil {
    return nil, err
  }
  inFolderPlans := make([]*types.StudyPlan, 0)
  for _, plan := range plans {
    if plan.FolderID != nil && *plan.FolderID == folder.ID {
      inFolderPlans = append(inFolderPlans, plan)
    }
  }

  return &FolderContents{
    Folder:     folder,
    Subfolders: subfolders,
    Documents:  inFolderDocs,
    StudyPlans: inFolderPlans,
  }, nil
}

func (s *folderService) AssignDocuments(ctx context.Context, userID uuid.UUID, docIDs []uuid.UUID, folderID *uuid.UUID) error {
  if len(docIDs) == 0 {
    return nil
  }
  if folderID != nil {
    if _, err := s.ownedFolder(ctx, userID, *folderID); err != nil {
      return err
    }
  }
  docs, err := s.docRepo.GetByIDs(ctx, nil, docIDs)
  if err != nil {
    return err
  }
  if len(docs) != len(docIDs) {
    return fmt.Errorf("document not found")
  }
  for _, doc := range docs {
    if doc.UserID != userID {
      return fmt.Errorf("document not found")
    }
  }
  return s.docRepo.AssignFolder(ctx, nil, docIDs, folderID)
}

func (s *folderService) AssignStudyPlans(ctx context.Context, userID uuid.UUID, planIDs []uuid.UUID, folderID *uuid.UUID) error {
  if len(planIDs) == 0 {
    return nil
  }
  if folderID != nil {
    if _, err := s.ownedFolder(ctx, userID, *folderID); err != nil {
      return err
    }
  }
  plans, err := s.planRepo.GetByIDs(ctx, nil, planIDs)
  if err != nil {
    return err
  }
  if len(plans) != len(planIDs) {
    return fmt.Errorf("study plan not found")
  }
  for _, plan := range plans {
    if plan.UserID != userID {
      return fmt.Errorf("study plan not found")
    }
  }
  return s.planRepo.AssignFolder(ctx, nil, planIDs, folderID)
}

func (s *folderService) ownedFolder(ctx context.Context, userID, folderID uuid.UUID) (*types.Folder, error) {
  folders, err := s.folderRepo.GetByIDs(ctx, nil, []uuid.UUID{folderID})
  if err != nil {
    return nil, err
  }
  if len(folders) == 0 || folders[0].UserID != userID {
    return nil, fmt.Errorf("folder not found")
  }
  return folders[0], nil
}
