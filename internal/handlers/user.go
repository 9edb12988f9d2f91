package handlers

import (
  "net/http"

  "github.com/gin-gonic/gin"

  "github.com/studyforge/studyforge-backend/internal/middleware"
  "github.com/studyforge/studyforge-backend/internal/repos"
)

type UserHandler struct {
  userRepo repos.UserRepo
}

func NewUserHandler(userRepo repos.UserRepo) *UserHandler {
  return &UserHandler{userRepo: userRepo}
}

func (uh *UserHandler) GetMe(c *gin.Context) {
  user := middleware.CurrentUser(c)
  if user == nil {
    c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
    return
  }
  RespondOK(c, gin.H{"user": user, "is_premium": user.IsPremium()})
}

// ListUsers is admin-only; the router guards it with RequireAdmin.
func (uh *UserHandler) ListUsers(c *gin.Context) {
  users, err := uh.userRepo.ListAll(c.Request.Context(), nil)
  if err != nil {
    c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
    return
  }
  RespondOK(c, gin.H{"users": users})
}
