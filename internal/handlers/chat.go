package handlers

import (
  "net/http"
  "strconv"

  "github.com/gin-gonic/gin"

  "github.com/studyforge/studyforge-backend/internal/requestdata"
  "github.com/studyforge/studyforge-backend/internal/services"
)

type ChatHandler struct {
  chatService services.ChatService
}

func NewChatHandler(chatService services.ChatService) *ChatHandler {
  return &ChatHandler{chatService: chatService}
}

func (ch *ChatHandler) Ask(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())

  var req services.AskInput
  if err := c.ShouldBindJSON(&req); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
    return
  }
  entry, err := ch.chatService.Ask(c.Request.Context(), rd.UserID, req)
  if err != nil {
    c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
    return
  }
  RespondOK(c, gin.H{"answer": entry.Answer, "entry": entry})
}

func (ch *ChatHandler) History(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
  entries, err := ch.chatService.History(c.Request.Context(), rd.UserID, limit)
  if err != nil {
    c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
    return
  }
  RespondOK(c, gin.H{"history": entries})
}

func (ch *ChatHandler) ClearHistory(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if err := ch.chatService.ClearHistory(c.Request.Context(), rd.UserID); err != nil {
    c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
    return
  }
  RespondOK(c, gin.H{"message": "chat history cleared"})
}
