package handlers

import (
  "context"
  "fmt"
  "mime/multipart"
  "net/http"
  "strings"
  "sync"
  "time"

  "github.com/gin-gonic/gin"
  "github.com/google/uuid"
  "golang.org/x/sync/errgroup"

  "github.com/studyforge/studyforge-backend/internal/jobs"
  "github.com/studyforge/studyforge-backend/internal/logger"
  "github.com/studyforge/studyforge-backend/internal/repos"
  "github.com/studyforge/studyforge-backend/internal/requestdata"
  "github.com/studyforge/studyforge-backend/internal/services"
  "github.com/studyforge/studyforge-backend/internal/types"
  "github.com/studyforge/studyforge-backend/internal/utils"
)

const (
  defaultMaxUploadMB = 16
  combineWaitTimeout = 120 * time.Second
)

// uploadLimitBytes reads the per-file cap from MAX_UPLOAD_MB.
func uploadLimitBytes() int64 {
  mb := utils.GetEnvAsInt("MAX_UPLOAD_MB", defaultMaxUploadMB, nil)
  if mb < 1 {
    mb = defaultMaxUploadMB
  }
  return int64(mb) << 20
}

type DocumentHandler struct {
  log         *logger.Logger
  docRepo     repos.DocumentRepo
  fileService services.FileService
  dispatcher  *jobs.Dispatcher
}

func NewDocumentHandler(log *logger.Logger, docRepo repos.DocumentRepo, fileService services.FileService, dispatcher *jobs.Dispatcher) *DocumentHandler {
  return &DocumentHandler{
    log:         log.With("handler", "DocumentHandler"),
    docRepo:     docRepo,
    fileService: fileService,
    dispatcher:  dispatcher,
  }
}

type uploadItemResult struct {
  Filename   string     `json:"filename"`
  DocumentID *uuid.UUID `json:"document_id,omitempty"`
  Error      string     `json:"error,omitempty"`
}

// Upload accepts multiple files plus optional "link" and "text" fields in
// one multipart request. Each item succeeds or fails independently;
// processing happens in the background.
func (dh *DocumentHandler) Upload(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  userID := rd.UserID

  form, err := c.MultipartForm()
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart form"})
    return
  }

  files := form.File["files"]
  link := strings.TrimSpace(c.PostForm("link"))
  text := strings.TrimSpace(c.PostForm("text"))
  if len(files) == 0 && link == "" && text == "" {
    c.JSON(http.StatusBadRequest, gin.H{"error": "no files, link, or text provided"})
    return
  }

  var mu sync.Mutex
  results := make([]uploadItemResult, 0, len(files)+2)
  appendResult := func(r uploadItemResult) {
    mu.Lock()
    results = append(results, r)
    mu.Unlock()
  }

  g, gctx := errgroup.WithContext(c.Request.Context())
  g.SetLimit(4)
  for _, fh := range files {
    fh := fh
    g.Go(func() error {
      doc, err := dh.saveUploadedFile(gctx, userID, fh)
      if err != nil {
        appendResult(uploadItemResult{Filename: fh.Filename, Error: err.Error()})
        return nil
      }
      if _, err := dh.dispatcher.Enqueue(gctx, userID, "document", doc.ID, jobs.JobTypeDocumentProcess, map[string]any{
        "document_id": doc.ID.String(),
      }); err != nil {
        dh.log.Warn("Process enqueue failed", "document_id", doc.ID, "error", err)
      }
      appendResult(uploadItemResult{Filename: fh.Filename, DocumentID: &doc.ID})
      return nil
    })
  }
  _ = g.Wait()

  if link != "" {
    doc, err := dh.createInline(c, userID, types.DocumentTypeLink, link, link)
    if err != nil {
      appendResult(uploadItemResult{Filename: link, Error: err.Error()})
    } else {
      appendResult(uploadItemResult{Filename: link, DocumentID: &doc.ID})
    }
  }
  if text != "" {
    name := strings.TrimSpace(c.PostForm("title"))
    if name == "" {
      name = "Pasted text"
    }
    doc, err := dh.createInline(c, userID, types.DocumentTypeText, text, name)
    if err != nil {
      appendResult(uploadItemResult{Filename: name, Error: err.Error()})
    } else {
      appendResult(uploadItemResult{Filename: name, DocumentID: &doc.ID})
    }
  }

  c.JSON(http.StatusAccepted, gin.H{"results": results})
}

func (dh *DocumentHandler) saveUploadedFile(ctx context.Context, userID uuid.UUID, fh *multipart.FileHeader) (*types.Document, error) {
  if !utils.AllowedFile(fh.Filename) {
    return nil, fmt.Errorf("file type not allowed: %s", fh.Filename)
  }
  if limit := uploadLimitBytes(); fh.Size > limit {
    return nil, fmt.Errorf("file exceeds the %d MiB limit", limit>>20)
  }

  src, err := fh.Open()
  if err != nil {
    return nil, fmt.Errorf("open upload: %w", err)
  }
  defer src.Close()

  stored, err := dh.fileService.Save(src, fh.Filename)
  if err != nil {
    return nil, err
  }

  fileType := types.DocumentTypePDF
  if utils.IsImageExtension(utils.FileExtension(fh.Filename)) {
    fileType = types.DocumentTypeImage
  }

  created, err := dh.docRepo.Create(ctx, nil, []*types.Document{{
    UserID:           userID,
    Filename:         stored,
    OriginalFilename: fh.Filename,
    FileType:         fileType,
  }})
  if err != nil {
    _ = dh.fileService.Delete(stored)
    return nil, err
  }
  return created[0], nil
}

func (dh *DocumentHandler) createInline(c *gin.Context, userID uuid.UUID, fileType, content, name string) (*types.Document, error) {
  created, err := dh.docRepo.Create(c.Request.Context(), nil, []*types.Document{{
    UserID:           userID,
    Filename:         "inline_" + uuid.New().String(),
    OriginalFilename: name,
    FileType:         fileType,
    Content:          content,
  }})
  if err != nil {
    return nil, err
  }
  doc := created[0]
  if _, err := dh.dispatcher.Enqueue(c.Request.Context(), userID, "document", doc.ID, jobs.JobTypeDocumentProcess, map[string]any{
    "document_id": doc.ID.String(),
  }); err != nil {
    dh.log.Warn("Process enqueue failed", "document_id", doc.ID, "error", err)
  }
  return doc, nil
}

func (dh *DocumentHandler) List(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  docs, err := dh.docRepo.GetByUserID(c.Request.Context(), nil, rd.UserID)
  if err != nil {
    c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
    return
  }
  RespondOK(c, gin.H{"documents": docs})
}

func (dh *DocumentHandler) Get(c *gin.Context) {
  doc, ok := dh.ownedDocument(c)
  if !ok {
    return
  }
  RespondOK(c, gin.H{"document": doc})
}

func (dh *DocumentHandler) Delete(c *gin.Context) {
  doc, ok := dh.ownedDocument(c)
  if !ok {
    return
  }
  if err := dh.docRepo.DeleteByIDs(c.Request.Context(), nil, []uuid.UUID{doc.ID}); err != nil {
    c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
    return
  }
  if doc.FileType == types.DocumentTypePDF || doc.FileType == types.DocumentTypeImage {
    if err := dh.fileService.Delete(doc.Filename); err != nil {
      dh.log.Warn("Stored file cleanup failed", "document_id", doc.ID, "error", err)
    }
  }
  RespondOK(c, gin.H{"message": "document deleted"})
}

// Combine enqueues a synthesis job and waits for it synchronously, since
// the client expects the new document in the response.
func (dh *DocumentHandler) Combine(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())

  var req struct {
    DocumentIDs []uuid.UUID `json:"document_ids"`
    Title       string      `json:"title"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
    return
  }
  if len(req.DocumentIDs) < 2 {
    c.JSON(http.StatusBadRequest, gin.H{"error": "at least two document ids required"})
    return
  }

  ids := make([]string, 0, len(req.DocumentIDs))
  for _, id := range req.DocumentIDs {
    ids = append(ids, id.String())
  }

  job, err := dh.dispatcher.Enqueue(c.Request.Context(), rd.UserID, "document", req.DocumentIDs[0], jobs.JobTypeDocumentsCombine, map[string]any{
    "document_ids": ids,
    "title":        req.Title,
  })
  if err != nil {
    c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
    return
  }

  finished, err := dh.dispatcher.Wait(c.Request.Context(), job.ID, combineWaitTimeout)
  if err != nil {
    c.JSON(http.StatusGatewayTimeout, gin.H{"error": err.Error(), "job_id": job.ID})
    return
  }
  if finished.Status != types.JobStatusSucceeded {
    c.JSON(http.StatusUnprocessableEntity, gin.H{"error": finished.LastError, "job_id": finished.ID})
    return
  }
  RespondOK(c, gin.H{"job_id": finished.ID, "result": finished.Result})
}

// Status reports the latest processing job for a document.
func (dh *DocumentHandler) Status(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  doc, ok := dh.ownedDocument(c)
  if !ok {
    return
  }
  job, err := dh.dispatcher.Latest(c.Request.Context(), rd.UserID, "document", doc.ID, jobs.JobTypeDocumentProcess)
  if err != nil {
    c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
    return
  }
  if job == nil {
    RespondOK(c, gin.H{"processed": doc.Processed})
    return
  }
  RespondOK(c, gin.H{"processed": doc.Processed, "job": job})
}

func (dh *DocumentHandler) ownedDocument(c *gin.Context) (*types.Document, bool) {
  rd := requestdata.GetRequestData(c.Request.Context())
  id, err := uuid.Parse(c.Param("id"))
  if err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid document id"})
    return nil, false
  }
  docs, err := dh.docRepo.GetByIDs(c.Request.Context(), nil, []uuid.UUID{id})
  if err != nil {
    c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
    return nil, false
  }
  if len(docs) == 0 || docs[0].UserID != rd.UserID {
    c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
    return nil, false
  }
  return docs[0], true
}
