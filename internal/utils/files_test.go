package utils

import "testing"

func TestAllowedFile(t *testing.T) {
  tests := []struct {
    filename string
    want     bool
  }{
    {"notes.pdf", true},
    {"scan.PNG", true},
    {"photo.jpeg", true},
    {"photo.jpg", true},
    {"malware.exe", false},
    {"archive.tar.gz", false},
    {"noextension", false},
    {"", false},
  }
  for _, tt := range tests {
    if got := AllowedFile(tt.filename); got != tt.want {
      t.Fatalf("AllowedFile(%q) = %v, want %v", tt.filename, got, tt.want)
    }
  }
}

func TestSecureFilename(t *testing.T) {
  tests := []struct {
    in   string
    want string
  }{
    {"notes.pdf", "notes.pdf"},
    {"../../etc/passwd", "passwd"},
    {"..\\..\\windows\\system32", "system32"},
    {"my notes (final).pdf", "my_notes__final_.pdf"},
    {"...", "upload"},
    {"", "upload"},
  }
  for _, tt := range tests {
    if got := SecureFilename(tt.in); got != tt.want {
      t.Fatalf("SecureFilename(%q) = %q, want %q", tt.in, got, tt.want)
    }
  }
}

func TestIsImageExtension(t *testing.T) {
  for _, ext := range []string{"png", "jpg", "jpeg", "JPG"} {
    if !IsImageExtension(ext) {
      t.Fatalf("expected %q to be an image extension", ext)
    }
  }
  for _, ext := range []string{"pdf", "gif", ""} {
    if IsImageExtension(ext) {
      t.Fatalf("did not expect %q to be an image extension", ext)
    }
  }
}
