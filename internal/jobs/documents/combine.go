package documents

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/studyforge/studyforge-backend/internal/jobs"
	"github.com/studyforge/studyforge-backend/internal/jobs/runtime"
	"github.com/studyforge/studyforge-backend/internal/logger"
	"github.com/studyforge/studyforge-backend/internal/repos"
	"github.com/studyforge/studyforge-backend/internal/services"
	"github.com/studyforge/studyforge-backend/internal/types"
)

// CombineHandler synthesizes several of the user's documents into one new
// AI-generated document. The HTTP layer waits on this run, so terminal
// states carry everything the caller needs in the result payload.
type CombineHandler struct {
	log       *logger.Logger
	docRepo   repos.DocumentRepo
	processor services.DocumentProcessor
}

func NewCombineHandler(baseLog *logger.Logger, docRepo repos.DocumentRepo, processor services.DocumentProcessor) *CombineHandler {
	return &CombineHandler{
		log:       baseLog.With("job", jobs.JobTypeDocumentsCombine),
		docRepo:   docRepo,
		processor: processor,
	}
}

func (h *CombineHandler) Type() string { return jobs.JobTypeDocumentsCombine }

func (h *CombineHandler) Run(jc *runtime.Context) error {
	rawIDs, ok := jc.Payload()["document_ids"].([]any)
	if !ok || len(rawIDs) < 2 {
		err := fmt.Errorf("payload needs at least two document_ids")
		jc.Fail("validate", err)
		return err
	}
	ids := make([]uuid.UUID, 0, len(rawIDs))
	for _, raw := range rawIDs {
		s, ok := raw.(string)
		if !ok {
			continue
		}
		id, err := uuid.Parse(s)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) < 2 {
		err := fmt.Errorf("payload needs at least two valid document ids")
		jc.Fail("validate", err)
		return err
	}

	docs, err := h.docRepo.GetByIDs(jc.Ctx, nil, ids)
	if err != nil {
		jc.Fail("load", err)
		return err
	}
	owned := make([]*types.Document, 0, len(docs))
	for _, doc := range docs {
		if doc.UserID == jc.Job.OwnerUserID {
			owned = append(owned, doc)
		}
	}
	if len(owned) < 2 {
		err := fmt.Errorf("need at least two owned documents, found %d", len(owned))
		jc.Fail("load", err)
		return err
	}

	jc.Progress("synthesize", 30, "Combining documents")
	combined, err := h.processor.Combine(jc.Ctx, owned)
	if err != nil {
		jc.Fail("synthesize", err)
		return err
	}

	title, _ := jc.Payload()["title"].(string)
	title = strings.TrimSpace(title)
	if title == "" {
		title = "Combined study document"
	}

	jc.Progress("store", 80, "Saving combined document")
	created, err := h.docRepo.Create(jc.Ctx, nil, []*types.Document{{
		UserID:            jc.Job.OwnerUserID,
		Filename:          "combined_" + uuid.New().String(),
		OriginalFilename:  title,
		FileType:          types.DocumentTypeAI,
		StructuredContent: combined,
		Processed:         true,
	}})
	if err != nil {
		jc.Fail("store", err)
		return err
	}

	jc.Succeed("done", map[string]any{"document_id": created[0].ID})
	return nil
}
