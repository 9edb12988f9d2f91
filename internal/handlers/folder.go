package handlers

import (
  "net/http"

  "github.com/gin-gonic/gin"
  "github.com/google/uuid"

  "github.com/studyforge/studyforge-backend/internal/requestdata"
  "github.com/studyforge/studyforge-backend/internal/services"
)

type FolderHandler struct {
  folderService services.FolderService
}

func NewFolderHandler(folderService services.FolderService) *FolderHandler {
  return &FolderHandler{folderService: folderService}
}

func (fh *FolderHandler) Create(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())

  var req struct {
    Name     string     `json:"name"`
    ParentID *uuid.UUID `json:"parent_id,omitempty"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
    return
  }
  folder, err := fh.folderService.Create(c.Request.Context(), rd.UserID, req.Name, req.ParentID)
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
    return
  }
  c.JSON(http.StatusCreated, gin.H{"folder": folder})
}

func (fh *FolderHandler) List(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  folders, err := fh.folderService.List(c.Request.Context(), rd.UserID)
  if err != nil {
    c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
    return
  }
  RespondOK(c, gin.H{"folders": folders})
}

func (fh *FolderHandler) Contents(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  id, err := uuid.Parse(c.Param("id"))
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid folder id"})
    return
  }
  contents, err := fh.folderService.Contents(c.Request.Context(), rd.UserID, id)
  if err != nil {
    c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
    return
  }
  RespondOK(c, contents)
}

func (fh *FolderHandler) Rename(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  id, err := uuid.Parse(c.Param("id"))
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid folder id"})
    return
  }
  var req struct {
    Name string `json:"name"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
    return
  }
  if err := fh.folderService.Rename(c.Request.Context(), rd.UserID, id, req.Name); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
    return
  }
  RespondOK(c, gin.H{"message": "folder renamed"})
}

func (fh *FolderHandler) Delete(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  id, err := uuid.Parse(c.Param("id"))
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid folder id"})
    return
  }
  if err := fh.folderService.Delete(c.Request.Context(), rd.UserID, id); err != nil {
    c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
    return
  }
  RespondOK(c, gin.H{"message": "folder deleted"})
}

// Assign moves documents and/or study plans into a folder; a null folder_id
// detaches them back to the root.
func (fh *FolderHandler) Assign(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())

  var req struct {
    FolderID     *uuid.UUID  `json:"folder_id,omitempty"`
    DocumentIDs  []uuid.UUID `json:"document_ids,omitempty"`
    StudyPlanIDs []uuid.UUID `json:"study_plan_ids,omitempty"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
    return
  }
  if len(req.DocumentIDs) == 0 && len(req.StudyPlanIDs) == 0 {
    c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to assign"})
    return
  }
  if err := fh.folderService.AssignDocuments(c.Request.Context(), rd.UserID, req.DocumentIDs, req.FolderID); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
    return
  }
  if err := fh.folderService.AssignStudyPlans(c.Request.Context(), rd.UserID, req.StudyPlanIDs, req.FolderID); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
    return
  }
  RespondOK(c, gin.H{"message": "items assigned"})
}
