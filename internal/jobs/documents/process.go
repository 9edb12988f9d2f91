package documents

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/studyforge/studyforge-backend/internal/jobs"
	"github.com/studyforge/studyforge-backend/internal/jobs/runtime"
	"github.com/studyforge/studyforge-backend/internal/logger"
	"github.com/studyforge/studyforge-backend/internal/repos"
	"github.com/studyforge/studyforge-backend/internal/services"
)

// ProcessHandler extracts text from one uploaded document and stores the
// structured study content on it. Extraction soft-failures leave the
// document unprocessed and still succeed the job: there is nothing to retry.
type ProcessHandler struct {
	log       *logger.Logger
	docRepo   repos.DocumentRepo
	processor services.DocumentProcessor
}

func NewProcessHandler(baseLog *logger.Logger, docRepo repos.DocumentRepo, processor services.DocumentProcessor) *ProcessHandler {
	return &ProcessHandler{
		log:       baseLog.With("job", jobs.JobTypeDocumentProcess),
		docRepo:   docRepo,
		processor: processor,
	}
}

func (h *ProcessHandler) Type() string { return jobs.JobTypeDocumentProcess }

func (h *ProcessHandler) Run(jc *runtime.Context) error {
	docID, ok := jc.PayloadUUID("document_id")
	if !ok {
		err := fmt.Errorf("payload missing document_id")
		jc.Fail("validate", err)
		return err
	}

	docs, err := h.docRepo.GetByIDs(jc.Ctx, nil, []uuid.UUID{docID})
	if err != nil {
		jc.Fail("load", err)
		return err
	}
	if len(docs) == 0 || docs[0].UserID != jc.Job.OwnerUserID {
		err := fmt.Errorf("document %s not found", docID)
		jc.Fail("load", err)
		return err
	}
	doc := docs[0]

	jc.Progress("extract", 20, "Extracting content")
	rawText, structured, err := h.processor.Process(jc.Ctx, doc)
	if err != nil {
		jc.Fail("extract", err)
		return err
	}

	// The extracted text is kept even when structuring fails so the
	// document can still feed raw-content consumers.
	fields := map[string]interface{}{}
	if rawText != "" && rawText != doc.Content {
		fields["content"] = rawText
	}

	if structured == nil {
		h.log.Warn("Document yielded no structured content", "document_id", doc.ID)
		if len(fields) > 0 {
			if err := h.docRepo.UpdateFields(jc.Ctx, nil, doc.ID, fields); err != nil {
				jc.Fail("store", err)
				return err
			}
		}
		jc.Succeed("done", map[string]any{"document_id": doc.ID, "processed": false})
		return nil
	}

	jc.Progress("store", 80, "Storing structured content")
	fields["structured_content"] = structured
	fields["processed"] = true
	if err := h.docRepo.UpdateFields(jc.Ctx, nil, doc.ID, fields); err != nil {
		jc.Fail("store", err)
		return err
	}

	jc.Succeed("done", map[string]any{"document_id": doc.ID, "processed": true})
	return nil
}
