package services

import (
  "fmt"
  "io"
  "os"
  "path/filepath"
  "strings"

  "github.com/google/uuid"

  "github.com/studyforge/studyforge-backend/internal/logger"
  "github.com/studyforge/studyforge-backend/internal/utils"
)

// FileService persists uploads on local disk under the configured upload
// folder. Stored names are uuid-prefixed so concurrent uploads of the same
// filename never collide.
type FileService interface {
  Save(src io.Reader, originalFilename string) (string, error)
  Open(storedFilename string) (*os.File, error)
  ReadAll(storedFilename string) ([]byte, error)
  Delete(storedFilename string) error
  UploadDir() string
}

type fileService struct {
  log       *logger.Logger
  uploadDir string
}

func NewFileService(log *logger.Logger) (FileService, error) {
  serviceLog := log.With("service", "FileService")
  uploadDir := utils.GetEnv("UPLOAD_DIR", "uploads", log)
  if err := os.MkdirAll(uploadDir, 0o755); err != nil {
    return nil, fmt.Errorf("ensure upload directory: %w", err)
  }
  return &fileService{log: serviceLog, uploadDir: uploadDir}, nil
}

func (s *fileService) Save(src io.Reader, originalFilename string) (string, error) {
  safe := utils.SecureFilename(originalFilename)
  stored := uuid.New().String() + "_" + safe
  path := filepath.Join(s.uploadDir, stored)

  dst, err := os.Create(path)
  if err != nil {
    return "", fmt.Errorf("create upload file: %w", err)
  }
  defer dst.Close()

  if _, err := io.Copy(dst, src); err != nil {
    _ = os.Remove(path)
    return "", fmt.Errorf("write upload file: %w", err)
  }
  return stored, nil
}

func (s *fileService) Open(storedFilename string) (*os.File, error) {
  path, err := s.resolve(storedFilename)
  if err != nil {
    return nil, err
  }
  return os.Open(path)
}

func (s *fileService) ReadAll(storedFilename string) ([]byte, error) {
  path, err := s.resolve(storedFilename)
  if err != nil {
    return nil, err
  }
  return os.ReadFile(path)
}

func (s *fileService) Delete(storedFilename string) error {
  path, err := s.resolve(storedFilename)
  if err != nil {
    return err
  }
  if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
    return err
  }
  return nil
}

func (s *fileService) UploadDir() string {
  return s.uploadDir
}

// resolve rejects any stored name that would escape the upload folder.
func (s *fileService) resolve(storedFilename string) (string, error) {
  if storedFilename == "" || strings.Contains(storedFilename, "..") || strings.ContainsAny(storedFilename, "/\\") {
    return "", fmt.Errorf("invalid stored filename: %q", storedFilename)
  }
  return filepath.Join(s.uploadDir, storedFilename), nil
}
