package handlers

import (
  "net/http"

  "github.com/gin-gonic/gin"
  "github.com/google/uuid"

  "github.com/studyforge/studyforge-backend/internal/requestdata"
  "github.com/studyforge/studyforge-backend/internal/services"
)

type SessionHandler struct {
  sessionService services.SessionService
}

func NewSessionHandler(sessionService services.SessionService) *SessionHandler {
  return &SessionHandler{sessionService: sessionService}
}

func (sh *SessionHandler) Start(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())

  var req struct {
    StudyPlanID uuid.UUID `json:"study_plan_id"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
    return
  }
  session, err := sh.sessionService.Start(c.Request.Context(), rd.UserID, req.StudyPlanID)
  if err != nil {
    c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
    return
  }
  c.JSON(http.StatusCreated, gin.H{"session": session})
}

func (sh *SessionHandler) End(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  id, err := uuid.Parse(c.Param("id"))
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
    return
  }
  session, err := sh.sessionService.End(c.Request.Context(), rd.UserID, id)
  if err != nil {
    c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
    return
  }
  RespondOK(c, gin.H{"session": session})
}

func (sh *SessionHandler) ListForPlan(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  planID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid study plan id"})
    return
  }
  sessions, err := sh.sessionService.ListForPlan(c.Request.Context(), rd.UserID, planID)
  if err != nil {
    c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
    return
  }
  RespondOK(c, gin.H{"sessions": sessions})
}
