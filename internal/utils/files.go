package utils

import (
  "path/filepath"
  "strings"
)

// Extensions accepted for document uploads.
var AllowedUploadExtensions = map[string]bool{
  "pdf":  true,
  "png":  true,
  "jpg":  true,
  "jpeg": true,
}

func AllowedFile(filename string) bool {
  ext := FileExtension(filename)
  return ext != "" && AllowedUploadExtensions[ext]
}

func FileExtension(filename string) string {
  ext := strings.ToLower(filepath.Ext(filename))
  return strings.TrimPrefix(ext, ".")
}

// SecureFilename strips path components and any character outside
// [a-zA-Z0-9._-] so a stored filename can never escape the upload folder.
func SecureFilename(filename string) string {
  base := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
  var b strings.Builder
  for _, r := range base {
    switch {
    case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
      b.WriteRune(r)
    case r == '.' || r == '_' || r == '-':
      b.WriteRune(r)
    default:
      b.WriteRune('_')
    }
  }
  out := strings.Trim(b.String(), "._")
  if out == "" {
    out = "upload"
  }
  return out
}

func IsImageExtension(ext string) bool {
  switch strings.ToLower(ext) {
  case "png", "jpg", "jpeg":
    return true
  default:
    return false
  }
}
