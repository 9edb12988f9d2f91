package main

import (
  "os"

  "github.com/joho/godotenv"

  "github.com/studyforge/studyforge-backend/internal/clients/redis"
  "github.com/studyforge/studyforge-backend/internal/db"
  "github.com/studyforge/studyforge-backend/internal/handlers"
  "github.com/studyforge/studyforge-backend/internal/jobs"
  "github.com/studyforge/studyforge-backend/internal/logger"
  "github.com/studyforge/studyforge-backend/internal/middleware"
  "github.com/studyforge/studyforge-backend/internal/repos"
  "github.com/studyforge/studyforge-backend/internal/server"
  "github.com/studyforge/studyforge-backend/internal/services"
  "github.com/studyforge/studyforge-backend/internal/utils"
)

func main() {
  _ = godotenv.Load()

  mode := os.Getenv("APP_ENV")
  log, err := logger.New(mode)
  if err != nil {
    panic(err)
  }
  defer log.Sync()

  pg, err := db.NewPostgresService(log)
  if err != nil {
    log.Fatal("Postgres init failed", "error", err)
  }
  if err := pg.AutoMigrateAll(); err != nil {
    log.Fatal("Auto migration failed", "error", err)
  }
  gdb := pg.DB()

  // Repos
  userRepo := repos.NewUserRepo(gdb, log)
  tokenRepo := repos.NewUserTokenRepo(gdb, log)
  folderRepo := repos.NewFolderRepo(gdb, log)
  docRepo := repos.NewDocumentRepo(gdb, log)
  planRepo := repos.NewStudyPlanRepo(gdb, log)
  sessionRepo := repos.NewStudySessionRepo(gdb, log)
  chatRepo := repos.NewChatHistoryRepo(gdb, log)
  questionRepo := repos.NewInterviewQuestionRepo(gdb, log)
  practiceRepo := repos.NewInterviewPracticeRepo(gdb, log)
  subRepo := repos.NewSubscriptionRepo(gdb, log)
  jobRepo := repos.NewJobRunRepo(gdb, log)

  // Clients
  cache, err := redis.NewCache(log)
  if err != nil {
    log.Fatal("Redis init failed", "error", err)
  }
  defer cache.Close()

  ai, err := services.NewOpenAIClient(log)
  if err != nil {
    log.Fatal("OpenAI client init failed", "error", err)
  }

  fileService, err := services.NewFileService(log)
  if err != nil {
    log.Fatal("File service init failed", "error", err)
  }

  // Services
  authService, err := services.NewAuthService(log, gdb, userRepo, tokenRepo)
  if err != nil {
    log.Fatal("Auth service init failed", "error", err)
  }
  planService := services.NewStudyPlanService(log, ai, planRepo, docRepo)
  sessionService := services.NewSessionService(log, sessionRepo, planRepo, planService)
  chatService := services.NewChatService(log, ai, cache, chatRepo, docRepo, planRepo)
  interviewService := services.NewInterviewService(log, gdb, ai, fileService, questionRepo, practiceRepo)
  folderService := services.NewFolderService(log, gdb, folderRepo, docRepo, planRepo)
  billingService, err := services.NewBillingService(log, userRepo, subRepo)
  if err != nil {
    log.Fatal("Billing service init failed", "error", err)
  }
  dispatcher := jobs.NewDispatcher(log, jobRepo)

  // HTTP
  authMiddleware := middleware.NewAuthMiddleware(log, authService)
  router := server.NewRouter(server.RouterConfig{
    Mode:             mode,
    AllowedOrigins:   utils.GetEnv("CORS_ALLOWED_ORIGINS", "", log),
    AuthMiddleware:   authMiddleware,
    AuthHandler:      handlers.NewAuthHandler(authService),
    UserHandler:      handlers.NewUserHandler(userRepo),
    DocumentHandler:  handlers.NewDocumentHandler(log, docRepo, fileService, dispatcher),
    StudyPlanHandler: handlers.NewStudyPlanHandler(planService, planRepo, sessionRepo),
    SessionHandler:   handlers.NewSessionHandler(sessionService),
    ChatHandler:      handlers.NewChatHandler(chatService),
    InterviewHandler: handlers.NewInterviewHandler(interviewService),
    FolderHandler:    handlers.NewFolderHandler(folderService),
    BillingHandler:   handlers.NewBillingHandler(log, billingService),
  })

  port := utils.GetEnv("PORT", "8080", log)
  log.Info("Starting API server", "port", port)
  if err := router.Run(":" + port); err != nil {
    log.Fatal("Server exited", "error", err)
  }
}
