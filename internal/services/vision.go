package services

import (
  "context"
  "fmt"
  "os"
  "strings"

  vision "cloud.google.com/go/vision/v2/apiv1"
  visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"
  "google.golang.org/api/option"

  "github.com/studyforge/studyforge-backend/internal/logger"
)

// OCRService extracts text from uploaded images via GCP Vision document
// text detection.
type OCRService interface {
  ExtractText(ctx context.Context, img []byte) (string, error)
  Close() error
}

type ocrService struct {
  log    *logger.Logger
  client *vision.ImageAnnotatorClient
}

func NewOCRService(log *logger.Logger) (OCRService, error) {
  if log == nil {
    return nil, fmt.Errorf("logger required")
  }
  serviceLog := log.With("service", "OCRService")

  creds := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON"))

  ctx := context.Background()
  var client *vision.ImageAnnotatorClient
  var err error
  if creds != "" {
    client, err = vision.NewImageAnnotatorClient(ctx, option.WithCredentialsJSON([]byte(creds)))
  } else {
    client, err = vision.NewImageAnnotatorClient(ctx)
  }
  if err != nil {
    return nil, fmt.Errorf("vision client init: %w", err)
  }

  return &ocrService{log: serviceLog, client: client}, nil
}

// ExtractText runs DOCUMENT_TEXT_DETECTION on raw image bytes. An image
// with no detectable text returns "" with no error; the caller decides
// whether that is a soft failure.
func (s *ocrService) ExtractText(ctx context.Context, img []byte) (string, error) {
  if len(img) == 0 {
    return "", fmt.Errorf("empty image")
  }

  req := &visionpb.BatchAnnotateImagesRequest{
    Requests: []*visionpb.AnnotateImageRequest{
      {
        Image: &visionpb.Image{Content: img},
        Features: []*visionpb.Feature{
          {Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
        },
      },
    },
  }

  resp, err := s.client.BatchAnnotateImages(ctx, req)
  if err != nil {
    return "", fmt.Errorf("vision annotate: %w", err)
  }
  if len(resp.GetResponses()) == 0 {
    return "", fmt.Errorf("vision returned no responses")
  }
  r := resp.GetResponses()[0]
  if rErr := r.GetError(); rErr != nil {
    return "", fmt.Errorf("vision error: %s", rErr.GetMessage())
  }
  text := ""
  if fta := r.GetFullTextAnnotation(); fta != nil {
    text = fta.GetText()
  }
  return strings.TrimSpace(text), nil
}

func (s *ocrService) Close() error {
  return s.client.Close()
}
