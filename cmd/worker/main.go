package main

import (
  "context"
  "os"
  "os/signal"
  "syscall"

  "github.com/joho/godotenv"

  "github.com/studyforge/studyforge-backend/internal/db"
  jobdocs "github.com/studyforge/studyforge-backend/internal/jobs/documents"
  "github.com/studyforge/studyforge-backend/internal/jobs/runtime"
  "github.com/studyforge/studyforge-backend/internal/jobs/worker"
  "github.com/studyforge/studyforge-backend/internal/logger"
  "github.com/studyforge/studyforge-backend/internal/repos"
  "github.com/studyforge/studyforge-backend/internal/services"
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
  gdb := pg.DB()

  docRepo := repos.NewDocumentRepo(gdb, log)
  jobRepo := repos.NewJobRunRepo(gdb, log)

  ai, err := services.NewOpenAIClient(log)
  if err != nil {
    log.Fatal("OpenAI client init failed", "error", err)
  }
  ocr, err := services.NewOCRService(log)
  if err != nil {
    log.Fatal("OCR service init failed", "error", err)
  }
  defer ocr.Close()

  fileService, err := services.NewFileService(log)
  if err != nil {
    log.Fatal("File service init failed", "error", err)
  }

  processor := services.NewDocumentProcessor(log, ai, ocr, fileService)

  registry := runtime.NewRegistry()
  if err := registry.Register(jobdocs.NewProcessHandler(log, docRepo, processor)); err != nil {
    log.Fatal("Handler registration failed", "error", err)
  }
  if err := registry.Register(jobdocs.NewCombineHandler(log, docRepo, processor)); err != nil {
    log.Fatal("Handler registration failed", "error", err)
  }

  ctx, cancel := context.WithCancel(context.Background())
  defer cancel()

  w := worker.New(gdb, log, jobRepo, registry)
  w.Start(ctx)
  log.Info("Job worker started")

  sig := make(chan os.Signal, 1)
  signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
  <-sig
  log.Info("Shutting down job worker")
  cancel()
}
