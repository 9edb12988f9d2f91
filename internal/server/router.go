package server

import (
  "strings"

  "github.com/gin-contrib/cors"
  "github.com/gin-gonic/gin"

  "github.com/studyforge/studyforge-backend/internal/handlers"
  "github.com/studyforge/studyforge-backend/internal/middleware"
)

type RouterConfig struct {
  Mode             string
  AllowedOrigins   string
  AuthMiddleware   *middleware.AuthMiddleware
  AuthHandler      *handlers.AuthHandler
  UserHandler      *handlers.UserHandler
  DocumentHandler  *handlers.DocumentHandler
  StudyPlanHandler *handlers.StudyPlanHandler
  SessionHandler   *handlers.SessionHandler
  ChatHandler      *handlers.ChatHandler
  InterviewHandler *handlers.InterviewHandler
  FolderHandler    *handlers.FolderHandler
  BillingHandler   *handlers.BillingHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
  if cfg.Mode == "release" {
    gin.SetMode(gin.ReleaseMode)
  }
  router := gin.Default()
  router.MaxMultipartMemory = 16 << 20

  origins := []string{"http://localhost:3000"}
  if cfg.AllowedOrigins != "" {
    origins = strings.Split(cfg.AllowedOrigins, ",")
  }
  router.Use(cors.New(cors.Config{
    AllowOrigins:     origins,
    AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
    AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", "Stripe-Signature"},
    AllowCredentials: true,
  }))

  // Public
  router.GET("/healthcheck", handlers.HealthCheck)
  router.POST("/api/register", cfg.AuthHandler.Register)
  router.POST("/api/login", cfg.AuthHandler.Login)
  router.POST("/api/refresh", cfg.AuthHandler.Refresh)
  router.POST("/api/webhooks/stripe", cfg.BillingHandler.Webhook)

  // Protected
  protected := router.Group("/api")
  protected.Use(cfg.AuthMiddleware.RequireAuth())

  protected.POST("/logout", cfg.AuthHandler.Logout)
  protected.GET("/user", cfg.UserHandler.GetMe)

  // Documents
  protected.POST("/documents", cfg.DocumentHandler.Upload)
  protected.GET("/documents", cfg.DocumentHandler.List)
  protected.GET("/documents/:id", cfg.DocumentHandler.Get)
  protected.GET("/documents/:id/status", cfg.DocumentHandler.Status)
  protected.DELETE("/documents/:id", cfg.DocumentHandler.Delete)
  protected.POST("/documents/combine", cfg.DocumentHandler.Combine)

  // Study plans
  protected.POST("/study-plans", cfg.StudyPlanHandler.Generate)
  protected.GET("/study-plans", cfg.StudyPlanHandler.List)
  protected.GET("/study-plans/:id", cfg.StudyPlanHandler.Get)
  protected.DELETE("/study-plans/:id", cfg.StudyPlanHandler.Delete)
  protected.POST("/study-plans/:id/adjust", cfg.StudyPlanHandler.Adjust)
  protected.GET("/study-plans/:id/sessions", cfg.SessionHandler.ListForPlan)

  // Study sessions
  protected.POST("/sessions/start", cfg.SessionHandler.Start)
  protected.POST("/sessions/:id/end", cfg.SessionHandler.End)

  // Chat
  protected.POST("/chat", cfg.ChatHandler.Ask)
  protected.GET("/chat/history", cfg.ChatHandler.History)
  protected.DELETE("/chat/history", cfg.ChatHandler.ClearHistory)

  // Interview practice
  protected.POST("/interview/generate", cfg.InterviewHandler.Generate)
  protected.POST("/interview/answer", cfg.InterviewHandler.SubmitAnswer)
  protected.GET("/interview/export", cfg.InterviewHandler.Export)
  protected.DELETE("/interview", cfg.InterviewHandler.Clear)

  // Folders
  protected.POST("/folders", cfg.FolderHandler.Create)
  protected.GET("/folders", cfg.FolderHandler.List)
  protected.GET("/folders/:id", cfg.FolderHandler.Contents)
  protected.PATCH("/folders/:id", cfg.FolderHandler.Rename)
  protected.DELETE("/folders/:id", cfg.FolderHandler.Delete)
  protected.POST("/folders/assign", cfg.FolderHandler.Assign)

  // Billing
  protected.POST("/billing/checkout", cfg.BillingHandler.CreateCheckout)
  protected.GET("/billing/subscription", cfg.BillingHandler.CurrentSubscription)
  protected.POST("/billing/cancel", cfg.BillingHandler.Cancel)

  // Admin
  admin := router.Group("/admin")
  admin.Use(cfg.AuthMiddleware.RequireAuth(), cfg.AuthMiddleware.RequireAdmin())
  admin.GET("/users", cfg.UserHandler.ListUsers)

  return router
}
