package services

import (
  "context"
  "encoding/json"
  "strings"
  "testing"

  "gorm.io/datatypes"

  "github.com/studyforge/studyforge-backend/internal/types"
)

func TestExtractReadableTextPrefersMainContainer(t *testing.T) {
  page := `<html><body>
    <nav><a href="/">Home</a><p>Navigation junk</p></nav>
    <article>
      <h1>Photosynthesis</h1>
      <p>Plants convert light into energy.</p>
      <script>trackPageView()</script>
      <ul><li>Chlorophyll absorbs light</li></ul>
    </article>
    <footer><p>Copyright notice</p></footer>
  </body></html>`

  got, err := ExtractReadableText(strings.NewReader(page))
  if err != nil {
    t.Fatalf("extract: %v", err)
  }
  for _, want := range []string{"Photosynthesis", "Plants convert light into energy.", "Chlorophyll absorbs light"} {
    if !strings.Contains(got, want) {
      t.Fatalf("expected %q in %q", want, got)
    }
  }
  for _, junk := range []string{"Navigation junk", "trackPageView", "Copyright notice"} {
    if strings.Contains(got, junk) {
      t.Fatalf("did not expect %q in %q", junk, got)
    }
  }
}

func TestExtractReadableTextFallsBackToWholePage(t *testing.T) {
  page := `<html><body>
    <div><h2>Loose heading</h2><p>A paragraph with no container.</p></div>
  </body></html>`

  got, err := ExtractReadableText(strings.NewReader(page))
  if err != nil {
    t.Fatalf("extract: %v", err)
  }
  if !strings.Contains(got, "Loose heading") || !strings.Contains(got, "A paragraph with no container.") {
    t.Fatalf("fallback missed page text: %q", got)
  }
}

func TestExtractReadableTextContentDiv(t *testing.T) {
  page := `<html><body>
    <div class="sidebar"><p>Sidebar links</p></div>
    <div class="main-content"><p>The actual lesson text.</p></div>
  </body></html>`

  got, err := ExtractReadableText(strings.NewReader(page))
  if err != nil {
    t.Fatalf("extract: %v", err)
  }
  if !strings.Contains(got, "The actual lesson text.") {
    t.Fatalf("expected lesson text in %q", got)
  }
  if strings.Contains(got, "Sidebar links") {
    t.Fatalf("did not expect sidebar text in %q", got)
  }
}

func TestCombineRequiresTwoUsableDocuments(t *testing.T) {
  log := testLogger(t)
  processor := NewDocumentProcessor(log, &fakeAI{}, nil, nil)

  docs := []*types.Document{
    {OriginalFilename: "notes.pdf", Content: "usable raw text"},
    {OriginalFilename: "blank.pdf"},
    nil,
  }
  _, err := processor.Combine(context.Background(), docs)
  if err == nil {
    t.Fatalf("expected error for a single usable document")
  }
  if !strings.Contains(err.Error(), "at least two") {
    t.Fatalf("unexpected error: %v", err)
  }
}

func TestCombineSynthesizesStructuredContent(t *testing.T) {
  log := testLogger(t)

  var prompt string
  ai := &fakeAI{
    generateJSON: func(_ context.Context, _, user, _ string, _ map[string]any) (map[string]any, error) {
      prompt = user
      return map[string]any{
        "title":   "Combined notes",
        "summary": "Both documents, merged",
        "sections": []any{
          map[string]any{"heading": "h", "content": "c", "key_points": []any{"p"}},
        },
      }, nil
    },
  }
  processor := NewDocumentProcessor(log, ai, nil, nil)

  docs := []*types.Document{
    {OriginalFilename: "algebra.pdf", StructuredContent: datatypes.JSON(`{"title":"Algebra","summary":"s"}`)},
    {OriginalFilename: "calculus.txt", Content: "raw calculus notes"},
  }
  raw, err := processor.Combine(context.Background(), docs)
  if err != nil {
    t.Fatalf("combine: %v", err)
  }

  var combined map[string]any
  if err := json.Unmarshal(raw, &combined); err != nil {
    t.Fatalf("decode combined: %v", err)
  }
  if combined["title"] != "Combined notes" {
    t.Fatalf("unexpected title: %v", combined["title"])
  }
  if !strings.Contains(prompt, "algebra.pdf") || !strings.Contains(prompt, "raw calculus notes") {
    t.Fatalf("prompt missing source material: %q", prompt)
  }
}

func TestProcessSoftFailsOnEmptyText(t *testing.T) {
  log := testLogger(t)
  processor := NewDocumentProcessor(log, &fakeAI{}, nil, nil)

  doc := &types.Document{FileType: types.DocumentTypePDF, Content: "   "}
  rawText, structured, err := processor.Process(context.Background(), doc)
  if err != nil {
    t.Fatalf("expected soft failure, got error: %v", err)
  }
  if rawText != "" {
    t.Fatalf("expected no raw text, got %q", rawText)
  }
  if structured != nil {
    t.Fatalf("expected nil structured content, got %s", structured)
  }
}

func TestProcessKeepsRawTextWhenStructuringFails(t *testing.T) {
  log := testLogger(t)
  ai := &fakeAI{
    generateJSON: func(_ context.Context, _, _, _ string, _ map[string]any) (map[string]any, error) {
      return nil, context.DeadlineExceeded
    },
  }
  processor := NewDocumentProcessor(log, ai, nil, nil)

  doc := &types.Document{FileType: types.DocumentTypePDF, Content: "dense lecture notes"}
  rawText, structured, err := processor.Process(context.Background(), doc)
  if err != nil {
    t.Fatalf("expected soft failure, got error: %v", err)
  }
  if rawText != "dense lecture notes" {
    t.Fatalf("expected extracted text to survive, got %q", rawText)
  }
  if structured != nil {
    t.Fatalf("expected nil structured content, got %s", structured)
  }
}
