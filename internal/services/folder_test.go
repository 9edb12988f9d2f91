package services

import (
  "context"
  "strings"
  "testing"

  "github.com/google/uuid"

  "github.com/studyforge/studyforge-backend/internal/repos"
  "github.com/studyforge/studyforge-backend/internal/types"
)

func newFolderFixture(t *testing.T) (FolderService, repos.FolderRepo, repos.DocumentRepo, repos.StudyPlanRepo) {
  t.Helper()
  gdb := openTestDB(t)
  log := testLogger(t)
  folderRepo := repos.NewFolderRepo(gdb, log)
  docRepo := repos.NewDocumentRepo(gdb, log)
  planRepo := repos.NewStudyPlanRepo(gdb, log)
  svc := NewFolderService(log, gdb, folderRepo, docRepo, planRepo)
  return svc, folderRepo, docRepo, planRepo
}

func TestFolderDeleteDetachesContents(t *testing.T) {
  svc, folderRepo, docRepo, planRepo := newFolderFixture(t)
  ctx := context.Background()
  userID := uuid.New()

  parent, err := svc.Create(ctx, userID, "School", nil)
  if err != nil {
    t.Fatalf("create parent: %v", err)
  }
  target, err := svc.Create(ctx, userID, "Biology", &parent.ID)
  if err != nil {
    t.Fatalf("create target: %v", err)
  }
  child, err := svc.Create(ctx, userID, "Genetics", &target.ID)
  if err != nil {
    t.Fatalf("create child: %v", err)
  }

  docs, err := docRepo.Create(ctx, nil, []*types.Document{{
    UserID:           userID,
    FolderID:         &target.ID,
    Filename:         "stored_cells.pdf",
    OriginalFilename: "cells.pdf",
    FileType:         types.DocumentTypePDF,
  }})
  if err != nil {
    t.Fatalf("create doc: %v", err)
  }
  plans, err := planRepo.Create(ctx, nil, []*types.StudyPlan{{
    UserID:   userID,
    FolderID: &target.ID,
    Title:    "Cell biology",
  }})
  if err != nil {
    t.Fatalf("create plan: %v", err)
  }

  if err := svc.Delete(ctx, userID, target.ID); err != nil {
    t.Fatalf("delete folder: %v", err)
  }

  // Child folders climb to the deleted folder's parent.
  reloaded, err := folderRepo.GetByIDs(ctx, nil, []uuid.UUID{child.ID})
  if err != nil || len(reloaded) != 1 {
    t.Fatalf("reload child: %v (%d)", err, len(reloaded))
  }
  if reloaded[0].ParentID == nil || *reloaded[0].ParentID != parent.ID {
    t.Fatalf("child should move under %s, got %v", parent.ID, reloaded[0].ParentID)
  }

  // Documents and plans detach to the root rather than disappearing.
  gotDocs, err := docRepo.GetByIDs(ctx, nil, []uuid.UUID{docs[0].ID})
  if err != nil || len(gotDocs) != 1 {
    t.Fatalf("reload doc: %v (%d)", err, len(gotDocs))
  }
  if gotDocs[0].FolderID != nil {
    t.Fatalf("document should be detached, got folder %v", gotDocs[0].FolderID)
  }
  gotPlans, err := planRepo.GetByIDs(ctx, nil, []uuid.UUID{plans[0].ID})
  if err != nil || len(gotPlans) != 1 {
    t.Fatalf("reload plan: %v (%d)", err, len(gotPlans))
  }
  if gotPlans[0].FolderID != nil {
    t.Fatalf("plan should be detached, got folder %v", gotPlans[0].FolderID)
  }

  if _, err := svc.Contents(ctx, userID, target.ID); err == nil {
    t.Fatalf("deleted folder should not resolve")
  }
}

func TestAssignDocumentsChecksOwnership(t *testing.T) {
  svc, _, docRepo, _ := newFolderFixture(t)
  ctx := context.Background()
  owner := uuid.New()

  folder, err := svc.Create(ctx, owner, "Mine", nil)
  if err != nil {
    t.Fatalf("create folder: %v", err)
  }
  foreign, err := docRepo.Create(ctx, nil, []*types.Document{{
    UserID:           uuid.New(),
    Filename:         "stored_other.pdf",
    OriginalFilename: "other.pdf",
    FileType:         types.DocumentTypePDF,
  }})
  if err != nil {
    t.Fatalf("create doc: %v", err)
  }

  err = svc.AssignDocuments(ctx, owner, []uuid.UUID{foreign[0].ID}, &folder.ID)
  if err == nil || !strings.Contains(err.Error(), "not found") {
    t.Fatalf("expected ownership rejection, got %v", err)
  }
}

func TestFolderContents(t *testing.T) {
  svc, _, docRepo, _ := newFolderFixture(t)
  ctx := context.Background()
  userID := uuid.New()

  folder, err := svc.Create(ctx, userID, "Chemistry", nil)
  if err != nil {
    t.Fatalf("create folder: %v", err)
  }
  if _, err := svc.Create(ctx, userID, "Organic", &folder.ID); err != nil {
    t.Fatalf("create subfolder: %v", err)
  }
  docs, err := docRepo.Create(ctx, nil, []*types.Document{{
    UserID:           userID,
    Filename:         "stored_acids.pdf",
    OriginalFilename: "acids.pdf",
    FileType:         types.DocumentTypePDF,
  }})
  if err != nil {
    t.Fatalf("create doc: %v", err)
  }
  if err := svc.AssignDocuments(ctx, userID, []uuid.UUID{docs[0].ID}, &folder.ID); err != nil {
    t.Fatalf("assign doc: %v", err)
  }

  contents, err := svc.Contents(ctx, userID, folder.ID)
  if err != nil {
    t.Fatalf("contents: %v", err)
  }
  if len(contents.Subfolders) != 1 {
    t.Fatalf("expected 1 subfolder, got %d", len(contents.Subfolders))
  }
  if len(contents.Documents) != 1 || contents.Documents[0].ID != docs[0].ID {
    t.Fatalf("expected the assigned document, got %+v", contents.Documents)
  }
  if len(contents.StudyPlans) != 0 {
    t.Fatalf("expected no plans, got %d", len(contents.StudyPlans))
  }
}
