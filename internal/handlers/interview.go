package handlers

import (
  "net/http"

  "github.com/gin-gonic/gin"
  "github.com/google/uuid"

  "github.com/studyforge/studyforge-backend/internal/middleware"
  "github.com/studyforge/studyforge-backend/internal/services"
  "github.com/studyforge/studyforge-backend/internal/types"
)

type InterviewHandler struct {
  interviewService services.InterviewService
}

func NewInterviewHandler(interviewService services.InterviewService) *InterviewHandler {
  return &InterviewHandler{interviewService: interviewService}
}

func (ih *InterviewHandler) Generate(c *gin.Context) {
  user := middleware.CurrentUser(c)

  var req services.GenerateInterviewInput
  if err := c.ShouldBindJSON(&req); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
    return
  }
  set, err := ih.interviewService.Generate(c.Request.Context(), user, req)
  if err != nil {
    c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
    return
  }
  c.JSON(http.StatusCreated, set)
}

// SubmitAnswer takes either JSON (text answers) or multipart (audio/video
// with a "media" file part).
func (ih *InterviewHandler) SubmitAnswer(c *gin.Context) {
  user := middleware.CurrentUser(c)

  input := services.SubmitAnswerInput{}
  contentType := c.ContentType()
  if contentType == "multipart/form-data" {
    questionID, err := uuid.Parse(c.PostForm("question_id"))
    if err != nil {
      c.JSON(http.StatusBadRequest, gin.H{"error": "invalid question id"})
      return
    }
    answerType := c.PostForm("answer_type")
    if answerType == "" {
      answerType = types.AnswerTypeAudio
    }
    fh, err := c.FormFile("media")
    if err != nil {
      c.JSON(http.StatusBadRequest, gin.H{"error": "media file required"})
      return
    }
    if fh.Size > uploadLimitBytes() {
      c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "media file too large"})
      return
    }
    src, err := fh.Open()
    if err != nil {
      c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable media file"})
      return
    }
    defer src.Close()

    input.QuestionID = questionID
    input.AnswerType = answerType
    input.Media = src
    input.MediaFilename = fh.Filename
  } else {
    var req struct {
      QuestionID uuid.UUID `json:"question_id"`
      AnswerText string    `json:"answer_text"`
    }
    if err := c.ShouldBindJSON(&req); err != nil {
      c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
      return
    }
    input.QuestionID = req.QuestionID
    input.AnswerType = types.AnswerTypeText
    input.AnswerText = req.AnswerText
  }

  practice, err := ih.interviewService.SubmitAnswer(c.Request.Context(), user, input)
  if err != nil {
    c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
    return
  }
  c.JSON(http.StatusCreated, gin.H{"practice": practice})
}

func (ih *InterviewHandler) Export(c *gin.Context) {
  user := middleware.CurrentUser(c)
  export, err := ih.interviewService.Export(c.Request.Context(), user.ID)
  if err != nil {
    c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
    return
  }
  RespondOK(c, export)
}

func (ih *InterviewHandler) Clear(c *gin.Context) {
  user := middleware.CurrentUser(c)
  if err := ih.interviewService.Clear(c.Request.Context(), user.ID); err != nil {
    c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
    return
  }
  RespondOK(c, gin.H{"message": "interview data cleared"})
}
