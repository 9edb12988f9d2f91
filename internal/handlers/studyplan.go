package handlers

import (
  "net/http"
  "time"

  "github.com/gin-gonic/gin"
  "github.com/google/uuid"

  "github.com/studyforge/studyforge-backend/internal/repos"
  "github.com/studyforge/studyforge-backend/internal/requestdata"
  "github.com/studyforge/studyforge-backend/internal/services"
  "github.com/studyforge/studyforge-backend/internal/types"
)

type StudyPlanHandler struct {
  planService services.StudyPlanService
  planRepo    repos.StudyPlanRepo
  sessionRepo repos.StudySessionRepo
}

func NewStudyPlanHandler(planService services.StudyPlanService, planRepo repos.StudyPlanRepo, sessionRepo repos.StudySessionRepo) *StudyPlanHandler {
  return &StudyPlanHandler{planService: planService, planRepo: planRepo, sessionRepo: sessionRepo}
}

// Generate accepts the target either as an RFC 3339 completion_target or a
// date-only completion_date (2006-01-02).
func (sh *StudyPlanHandler) Generate(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())

  var req struct {
    services.GeneratePlanInput
    CompletionDate string `json:"completion_date"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
    return
  }
  if req.CompletionDate != "" && req.CompletionTarget == nil {
    target, err := time.Parse("2006-01-02", req.CompletionDate)
    if err != nil {
      c.JSON(http.StatusBadRequest, gin.H{"error": "completion_date must be YYYY-MM-DD"})
      return
    }
    req.CompletionTarget = &target
  }
  plan, err := sh.planService.Generate(c.Request.Context(), rd.UserID, req.GeneratePlanInput)
  if err != nil {
    c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
    return
  }
  c.JSON(http.StatusCreated, gin.H{"study_plan": plan})
}

func (sh *StudyPlanHandler) List(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  plans, err := sh.planRepo.GetByUserID(c.Request.Context(), nil, rd.UserID)
  if err != nil {
    c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
    return
  }
  RespondOK(c, gin.H{"study_plans": plans})
}

func (sh *StudyPlanHandler) Get(c *gin.Context) {
  plan, ok := sh.ownedPlan(c)
  if !ok {
    return
  }
  RespondOK(c, gin.H{"study_plan": plan})
}

// Delete removes the plan and its sessions. The schema cascades on
// Postgres; the explicit session delete keeps other backends consistent.
func (sh *StudyPlanHandler) Delete(c *gin.Context) {
  plan, ok := sh.ownedPlan(c)
  if !ok {
    return
  }
  if err := sh.sessionRepo.DeleteByPlanIDs(c.Request.Context(), nil, []uuid.UUID{plan.ID}); err != nil {
    c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
    return
  }
  if err := sh.planRepo.DeleteByIDs(c.Request.Context(), nil, []uuid.UUID{plan.ID}); err != nil {
    c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
    return
  }
  RespondOK(c, gin.H{"message": "study plan deleted"})
}

func (sh *StudyPlanHandler) Adjust(c *gin.Context) {
  plan, ok := sh.ownedPlan(c)
  if !ok {
    return
  }
  var req struct {
    Feedback string `json:"feedback"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
    return
  }
  adjusted, err := sh.planService.Adjust(c.Request.Context(), plan, req.Feedback)
  if err != nil {
    c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
    return
  }
  if !adjusted {
    c.JSON(http.StatusConflict, gin.H{"error": "plan has no stored content to adjust"})
    return
  }
  RespondOK(c, gin.H{"message": "study plan adjusted"})
}

func (sh *StudyPlanHandler) ownedPlan(c *gin.Context) (*types.StudyPlan, bool) {
  rd := requestdata.GetRequestData(c.Request.Context())
  id, err := uuid.Parse(c.Param("id"))
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid study plan id"})
    return nil, false
  }
  plans, err := sh.planRepo.GetByIDs(c.Request.Context(), nil, []uuid.UUID{id})
  if err != nil {
    c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
    return nil, false
  }
  if len(plans) == 0 || plans[0].UserID != rd.UserID {
    c.JSON(http.StatusNotFound, gin.H{"error": "study plan not found"})
    return nil, false
  }
  return plans[0], true
}
