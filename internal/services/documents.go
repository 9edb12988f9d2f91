package services

import (
  "context"
  "encoding/json"
  "fmt"
  "io"
  "net/http"
  "strings"
  "time"

  "golang.org/x/net/html"
  "gorm.io/datatypes"

  "github.com/studyforge/studyforge-backend/internal/logger"
  "github.com/studyforge/studyforge-backend/internal/types"
)

// DocumentProcessor turns raw uploaded material into structured study
// content. Process returns the extracted raw text alongside the structured
// result so callers can persist both. Soft failures (nothing to extract,
// malformed model JSON) return nil structured content and no error: the
// document simply stays unprocessed, keeping whatever text was extracted.
type DocumentProcessor interface {
  Process(ctx context.Context, doc *types.Document) (string, datatypes.JSON, error)
  Combine(ctx context.Context, docs []*types.Document) (datatypes.JSON, error)
}

type documentProcessor struct {
  log        *logger.Logger
  ai         OpenAIClient
  ocr        OCRService
  files      FileService
  httpClient *http.Client
}

func NewDocumentProcessor(log *logger.Logger, ai OpenAIClient, ocr OCRService, files FileService) DocumentProcessor {
  return &documentProcessor{
    log:        log.With("service", "DocumentProcessor"),
    ai:         ai,
    ocr:        ocr,
    files:      files,
    httpClient: &http.Client{Timeout: 30 * time.Second},
  }
}

// structuredContentSchema is the fixed output shape requested for every
// processed document.
func structuredContentSchema() map[string]any {
  return map[string]any{
    "type": "object",
    "properties": map[string]any{
      "title":        map[string]any{"type": "string"},
      "summary":      map[string]any{"type": "string"},
      "difficulty":   map[string]any{"type": "string"},
      "key_concepts": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
      "sections": map[string]any{
        "type": "array",
        "items": map[string]any{
          "type": "object",
          "properties": map[string]any{
            "heading":    map[string]any{"type": "string"},
            "content":    map[string]any{"type": "string"},
            "key_points": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
          },
          "required":             []string{"heading", "content", "key_points"},
          "additionalProperties": false,
        },
      },
      "practice_questions": map[string]any{
        "type": "array",
        "items": map[string]any{
          "type": "object",
          "properties": map[string]any{
            "question": map[string]any{"type": "string"},
            "answer":   map[string]any{"type": "string"},
          },
          "required":             []string{"question", "answer"},
          "additionalProperties": false,
        },
      },
      "resources": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
    },
    "required":             []string{"title", "summary", "difficulty", "key_concepts", "sections", "practice_questions", "resources"},
    "additionalProperties": false,
  }
}

const structuredContentSystemPrompt = "Analyze the following content and create a structured study document with a title, a brief summary, an estimated difficulty, key concepts, sections with key points, practice questions with detailed answers, and suggested further resources."

func (p *documentProcessor) Process(ctx context.Context, doc *types.Document) (string, datatypes.JSON, error) {
  if doc == nil {
    return "", nil, fmt.Errorf("nil document")
  }

  rawText, err := p.extractRawText(ctx, doc)
  if err != nil {
    p.log.Warn("Raw text extraction failed", "document_id", doc.ID, "file_type", doc.FileType, "error", err)
    return "", nil, nil
  }
  if strings.TrimSpace(rawText) == "" {
    p.log.Warn("No extractable text", "document_id", doc.ID, "file_type", doc.FileType)
    return "", nil, nil
  }

  structured, err := p.generateStructuredContent(ctx, rawText)
  if err != nil {
    p.log.Warn("Structured content generation failed", "document_id", doc.ID, "error", err)
    return rawText, nil, nil
  }
  return rawText, structured, nil
}

func (p *documentProcessor) extractRawText(ctx context.Context, doc *types.Document) (string, error) {
  switch doc.FileType {
  case types.DocumentTypeImage, "png", "jpg", "jpeg":
    img, err := p.files.ReadAll(doc.Filename)
    if err != nil {
      return "", fmt.Errorf("read image: %w", err)
    }
    return p.ocr.ExtractText(ctx, img)
  case types.DocumentTypeLink:
    return p.fetchLinkText(ctx, doc.Content)
  case types.DocumentTypePDF:
    // PDF extraction is a pass-through placeholder; whatever raw content
    // the document already carries is used as-is.
    return doc.Content, nil
  default:
    return doc.Content, nil
  }
}

func (p *documentProcessor) fetchLinkText(ctx context.Context, url string) (string, error) {
  if strings.TrimSpace(url) == "" {
    return "", fmt.Errorf("empty url")
  }
  req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
  if err != nil {
    return "", fmt.Errorf("build link request: %w", err)
  }
  resp, err := p.httpClient.Do(req)
  if err != nil {
    return "", fmt.Errorf("fetch link: %w", err)
  }
  defer resp.Body.Close()
  if resp.StatusCode < 200 || resp.StatusCode >= 300 {
    return "", fmt.Errorf("fetch link: http %d", resp.StatusCode)
  }
  return ExtractReadableText(resp.Body)
}

// ExtractReadableText strips an HTML page to plain text. It prefers common
// main-content containers (article, main, id/class "content") and falls
// back to every paragraph and heading on the page.
func ExtractReadableText(r io.Reader) (string, error) {
  root, err := html.Parse(r)
  if err != nil {
    return "", fmt.Errorf("parse html: %w", err)
  }

  container := findMainContainer(root)
  if container == nil {
    container = root
  }

  var parts []string
  collectTextBlocks(container, &parts)
  if len(parts) == 0 && container != root {
    collectTextBlocks(root, &parts)
  }
  return strings.Join(parts, " "), nil
}

func findMainContainer(n *html.Node) *html.Node {
  if n.Type == html.ElementNode {
    switch n.Data {
    case "article", "main":
      return n
    case "div", "section":
      for _, attr := range n.Attr {
        if attr.Key != "id" && attr.Key != "class" {
          continue
        }
        v := strings.ToLower(attr.Val)
        if strings.Contains(v, "content") || strings.Contains(v, "article-body") || strings.Contains(v, "post-body") {
          return n
        }
      }
    }
  }
  for c := n.FirstChild; c != nil; c = c.NextSibling {
    if found := findMainContainer(c); found != nil {
      return found
    }
  }
  return nil
}

func collectTextBlocks(n *html.Node, out *[]string) {
  if n.Type == html.ElementNode {
    switch n.Data {
    case "script", "style", "noscript", "nav", "footer", "header":
      return
    case "p", "h1", "h2", "h3", "h4", "h5", "h6", "li":
      text := strings.TrimSpace(nodeText(n))
      if text != "" {
        *out = append(*out, text)
      }
      return
    }
  }
  for c := n.FirstChild; c != nil; c = c.NextSibling {
    collectTextBlocks(c, out)
  }
}

func nodeText(n *html.Node) string {
  if n.Type == html.TextNode {
    return n.Data
  }
  var b strings.Builder
  for c := n.FirstChild; c != nil; c = c.NextSibling {
    b.WriteString(nodeText(c))
  }
  return b.String()
}

func (p *documentProcessor) generateStructuredContent(ctx context.Context, rawText string) (datatypes.JSON, error) {
  obj, err := p.ai.GenerateJSON(ctx, structuredContentSystemPrompt, rawText, "structured_study_document", structuredContentSchema())
  if err != nil {
    return nil, err
  }
  for _, field := range []string{"title", "summary", "key_concepts", "sections", "practice_questions"} {
    if _, ok := obj[field]; !ok {
      return nil, fmt.Errorf("structured content missing required field %q", field)
    }
  }
  raw, err := json.Marshal(obj)
  if err != nil {
    return nil, fmt.Errorf("encode structured content: %w", err)
  }
  return datatypes.JSON(raw), nil
}

// Combine synthesizes one unified study document from multiple documents.
// At least two inputs with usable content are required.
func (p *documentProcessor) Combine(ctx context.Context, docs []*types.Document) (datatypes.JSON, error) {
  var chunks []string
  for _, doc := range docs {
    if doc == nil {
      continue
    }
    if structured := doc.GetStructuredContent(); structured != nil {
      raw, err := json.Marshal(structured)
      if err == nil {
        chunks = append(chunks, fmt.Sprintf("Document %q (structured):\n%s", doc.OriginalFilename, string(raw)))
        continue
      }
    }
    if strings.TrimSpace(doc.Content) != "" {
      chunks = append(chunks, fmt.Sprintf("Document %q (raw):\n%s", doc.OriginalFilename, doc.Content))
    }
  }
  if len(chunks) < 2 {
    return nil, fmt.Errorf("combining requires at least two documents with usable content, got %d", len(chunks))
  }

  combined := strings.Join(chunks, "\n\n---\n\n")
  system := "Synthesize the following study documents into one unified, coherent study document. Merge overlapping concepts, keep every distinct topic, and produce a single consistent set of sections and practice questions."
  obj, err := p.ai.GenerateJSON(ctx, system, combined, "combined_study_document", structuredContentSchema())
  if err != nil {
    return nil, fmt.Errorf("combine generation: %w", err)
  }
  for _, field := range []string{"title", "summary", "sections"} {
    if _, ok := obj[field]; !ok {
      return nil, fmt.Errorf("combined content missing required field %q", field)
    }
  }
  raw, err := json.Marshal(obj)
  if err != nil {
    return nil, fmt.Errorf("encode combined content: %w", err)
  }
  return datatypes.JSON(raw), nil
}
