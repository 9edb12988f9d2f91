package services

import (
  "bytes"
  "context"
  "encoding/json"
  "errors"
  "fmt"
  "io"
  "math/rand"
  "mime/multipart"
  "net"
  "net/http"
  "os"
  "strconv"
  "strings"
  "time"

  "github.com/studyforge/studyforge-backend/internal/logger"
)

// OpenAIClient is the single outbound AI gateway. One instance is constructed
// at startup and injected into every component that talks to the model.
// JSON mode is a request, not a guarantee: callers must validate the shape
// of what comes back.
type OpenAIClient interface {
  GenerateText(ctx context.Context, system string, user string) (string, error)
  GenerateJSON(ctx context.Context, system string, user string, schemaName string, schema map[string]any) (map[string]any, error)
  Transcribe(ctx context.Context, media io.Reader, filename string) (string, error)
}

type openAIClient struct {
  log             *logger.Logger
  baseURL         string
  apiKey          string
  model           string
  transcribeModel string
  httpClient      *http.Client

  maxRetries int
}

func NewOpenAIClient(log *logger.Logger) (OpenAIClient, error) {
  apiKey := os.Getenv("OPENAI_API_KEY")
  if apiKey == "" {
    return nil, fmt.Errorf("missing OPENAI_API_KEY")
  }

  baseURL := os.Getenv("OPENAI_BASE_URL")
  if baseURL == "" {
    baseURL = "https://api.openai.com"
  }

  model := os.Getenv("OPENAI_MODEL")
  if model == "" {
    model = "gpt-4o"
  }

  transcribe := os.Getenv("OPENAI_TRANSCRIBE_MODEL")
  if transcribe == "" {
    transcribe = "whisper-1"
  }

  timeoutSec := 180
  if v := os.Getenv("OPENAI_TIMEOUT_SECONDS"); v != "" {
    if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed > 0 {
      timeoutSec = parsed
    }
  }

  maxRetries := 4
  if v := os.Getenv("OPENAI_MAX_RETRIES"); v != "" {
    if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed >= 0 {
      maxRetries = parsed
    }
  }

  return &openAIClient{
    log:             log.With("service", "OpenAIClient"),
    baseURL:         baseURL,
    apiKey:          apiKey,
    model:           model,
    transcribeModel: transcribe,
    httpClient:      &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
    maxRetries:      maxRetries,
  }, nil
}

type openAIHTTPError struct {
  StatusCode int
  Body       string
}

func (e *openAIHTTPError) Error() string {
  return fmt.Sprintf("openai http %d: %s", e.StatusCode, e.Body)
}

func isRetryableHTTP(code int) bool {
  if code == 408 || code == 429 {
    return true
  }
  return code >= 500 && code <= 599
}

func isRetryableErr(err error) bool {
  if err == nil {
    return false
  }
  if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
    return true
  }
  var netErr net.Error
  if errors.As(err, &netErr) {
    if netErr.Timeout() {
      return true
    }
  }
  var httpErr *openAIHTTPError
  if errors.As(err, &httpErr) {
    return isRetryableHTTP(httpErr.StatusCode)
  }
  return false
}

func jitterSleep(base time.Duration) time.Duration {
  // +/- 20%
  if base <= 0 {
    return 0
  }
  j := 0.2
  delta := base.Seconds() * j
  low := base.Seconds() - delta
  high := base.Seconds() + delta
  if low < 0 {
    low = 0
  }
  v := low + rand.Float64()*(high-low)
  return time.Duration(v * float64(time.Second))
}

func (c *openAIClient) doOnce(ctx context.Context, method, path, contentType string, body io.Reader) (*http.Response, []byte, error) {
  req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
  if err != nil {
    return nil, nil, err
  }
  req.Header.Set("Authorization", "Bearer "+c.apiKey)
  req.Header.Set("Content-Type", contentType)

  resp, err := c.httpClient.Do(req)
  if err != nil {
    return nil, nil, err
  }

  raw, readErr := io.ReadAll(resp.Body)
  _ = resp.Body.Close()
  if readErr != nil {
    return resp, nil, readErr
  }

  if resp.StatusCode < 200 || resp.StatusCode >= 300 {
    return resp, raw, &openAIHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
  }
  return resp, raw, nil
}

func (c *openAIClient) doJSON(ctx context.Context, method, path string, body any, out any) error {
  // exponential backoff: 1s, 2s, 4s, 8s (cap ~10s)
  backoff := 1 * time.Second

  for attempt := 0; attempt <= c.maxRetries; attempt++ {
    if ctx.Err() != nil {
      return ctx.Err()
    }

    var buf bytes.Buffer
    if body != nil {
      if err := json.NewEncoder(&buf).Encode(body); err != nil {
        return err
      }
    }

    resp, raw, err := c.doOnce(ctx, method, path, "application/json", &buf)
    if err == nil {
      if out == nil {
        return nil
      }
      if uErr := json.Unmarshal(raw, out); uErr != nil {
        return fmt.Errorf("openai decode error: %w; raw=%s", uErr, string(raw))
      }
      return nil
    }

    if !isRetryableErr(err) {
      return err
    }
    if attempt == c.maxRetries {
      return err
    }

    // Respect Retry-After when present
    sleepFor := backoff
    if resp != nil {
      ra := strings.TrimSpace(resp.Header.Get("Retry-After"))
      if ra != "" {
        if secs, parseErr := strconv.Atoi(ra); parseErr == nil && secs > 0 {
          sleepFor = time.Duration(secs) * time.Second
        }
      }
    }

    if sleepFor > 10*time.Second {
      sleepFor = 10 * time.Second
    }
    sleepFor = jitterSleep(sleepFor)

    c.log.Warn("OpenAI request retrying",
      "path", path,
      "attempt", attempt+1,
      "max_retries", c.maxRetries,
      "sleep", sleepFor.String(),
      "error", err.Error(),
    )

    time.Sleep(sleepFor)
    backoff *= 2
  }

  return fmt.Errorf("unreachable retry loop")
}

// ---- Chat completions (free text) ----

type chatMessage struct {
  Role    string `json:"role"`
  Content string `json:"content"`
}

type chatCompletionsRequest struct {
  Model          string         `json:"model"`
  Messages       []chatMessage  `json:"messages"`
  ResponseFormat map[string]any `json:"response_format,omitempty"`
  Temperature    float64        `json:"temperature,omitempty"`
}

type chatCompletionsResponse struct {
  Choices []struct {
    Message struct {
      Content string `json:"content"`
      Refusal string `json:"refusal,omitempty"`
    } `json:"message"`
  } `json:"choices"`
}

func (c *openAIClient) GenerateText(ctx context.Context, system string, user string) (string, error) {
  req := chatCompletionsRequest{
    Model: c.model,
    Messages: []chatMessage{
      {Role: "system", Content: system},
      {Role: "user", Content: user},
    },
  }
  var resp chatCompletionsResponse
  if err := c.doJSON(ctx, "POST", "/v1/chat/completions", req, &resp); err != nil {
    return "", err
  }
  if len(resp.Choices) == 0 {
    return "", fmt.Errorf("no choices in completion response")
  }
  if refusal := resp.Choices[0].Message.Refusal; refusal != "" {
    return "", fmt.Errorf("model refused: %s", refusal)
  }
  text := resp.Choices[0].Message.Content
  if strings.TrimSpace(text) == "" {
    return "", fmt.Errorf("empty completion text")
  }
  return text, nil
}

// ---- Structured JSON (Structured Outputs via response_format json_schema) ----

func (c *openAIClient) GenerateJSON(ctx context.Context, system string, user string, schemaName string, schema map[string]any) (map[string]any, error) {
  if schemaName == "" {
    return nil, errors.New("schemaName required")
  }
  if schema == nil {
    return nil, errors.New("schema required")
  }

  req := chatCompletionsRequest{
    Model: c.model,
    Messages: []chatMessage{
      {Role: "system", Content: system},
      {Role: "user", Content: user},
    },
    Temperature: 0.2,
    ResponseFormat: map[string]any{
      "type": "json_schema",
      "json_schema": map[string]any{
        "name":   schemaName,
        "schema": schema,
        "strict": true,
      },
    },
  }

  var resp chatCompletionsResponse
  if err := c.doJSON(ctx, "POST", "/v1/chat/completions", req, &resp); err != nil {
    return nil, err
  }
  if len(resp.Choices) == 0 {
    return nil, fmt.Errorf("no choices in completion response")
  }
  if refusal := resp.Choices[0].Message.Refusal; refusal != "" {
    return nil, fmt.Errorf("model refused: %s", refusal)
  }
  jsonText := resp.Choices[0].Message.Content
  if jsonText == "" {
    return nil, fmt.Errorf("no output text found in response")
  }

  var obj map[string]any
  if err := json.Unmarshal([]byte(jsonText), &obj); err != nil {
    return nil, fmt.Errorf("failed to parse model JSON: %w; text=%s", err, jsonText)
  }
  return obj, nil
}

// ---- Audio transcription ----

type transcriptionResponse struct {
  Text string `json:"text"`
}

func (c *openAIClient) Transcribe(ctx context.Context, media io.Reader, filename string) (string, error) {
  if media == nil {
    return "", errors.New("media reader required")
  }

  body := &bytes.Buffer{}
  writer := multipart.NewWriter(body)

  part, err := writer.CreateFormFile("file", filename)
  if err != nil {
    return "", fmt.Errorf("create multipart file: %w", err)
  }
  if _, err := io.Copy(part, media); err != nil {
    return "", fmt.Errorf("copy media data: %w", err)
  }
  if err := writer.WriteField("model", c.transcribeModel); err != nil {
    return "", fmt.Errorf("write model field: %w", err)
  }
  if err := writer.Close(); err != nil {
    return "", fmt.Errorf("close multipart writer: %w", err)
  }

  // Transcription bodies are not replayable, so no retry loop here.
  _, raw, err := c.doOnce(ctx, "POST", "/v1/audio/transcriptions", writer.FormDataContentType(), body)
  if err != nil {
    return "", err
  }

  var resp transcriptionResponse
  if err := json.Unmarshal(raw, &resp); err != nil {
    return "", fmt.Errorf("transcription decode error: %w", err)
  }
  if strings.TrimSpace(resp.Text) == "" {
    return "", fmt.Errorf("empty transcription")
  }
  return resp.Text, nil
}
