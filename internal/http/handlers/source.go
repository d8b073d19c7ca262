package handlers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/notebook-backend/internal/data/repos"
	"github.com/yungbote/notebook-backend/internal/domain"
	"github.com/yungbote/notebook-backend/internal/http/response"
	"github.com/yungbote/notebook-backend/internal/modules/ingest"
	"github.com/yungbote/notebook-backend/internal/pkg/dbctx"
	"github.com/yungbote/notebook-backend/internal/platform/logger"
	"github.com/yungbote/notebook-backend/internal/platform/qdrant"
	"github.com/yungbote/notebook-backend/internal/platform/staticdir"
)

// Ingestor runs a saved source through the ingestion pipeline.
type Ingestor interface {
	Run(ctx context.Context, in ingest.RunInput) (ingest.RunOutput, error)
}

var acceptedExts = map[string]bool{
	".pdf":  true,
	".docx": true,
}

type SourceHandler struct {
	log       *logger.Logger
	notebooks repos.NotebookRepo
	sources   repos.SourceRepo
	static    *staticdir.Store
	pipeline  Ingestor
	vec       qdrant.VectorStore
}

func NewSourceHandler(
	log *logger.Logger,
	notebooks repos.NotebookRepo,
	sources repos.SourceRepo,
	static *staticdir.Store,
	pipeline Ingestor,
	vec qdrant.VectorStore,
) *SourceHandler {
	return &SourceHandler{
		log:       log.With("handler", "SourceHandler"),
		notebooks: notebooks,
		sources:   sources,
		static:    static,
		pipeline:  pipeline,
		vec:       vec,
	}
}

// POST /api/notebooks/:id/sources
//
// Accepts one multipart file ("file", .pdf or .docx), saves it under the
// static root, records the source row, and ingests synchronously. Uploading
// bytes already present in the notebook still creates an independent source;
// the response names the earlier one and the flat-node cache does the rest.
func (h *SourceHandler) Upload(c *gin.Context) {
	notebookID, err := uuid.Parse(c.Param("id"))
	if err != nil || notebookID == uuid.Nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_notebook_id", err)
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}

	notebook, err := h.notebooks.GetByID(dbc, notebookID)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "get_notebook_failed", err)
		return
	}
	if notebook == nil {
		response.RespondError(c, http.StatusNotFound, "notebook_not_found", nil)
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "file_required", err)
		return
	}
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !acceptedExts[ext] {
		response.RespondError(c, http.StatusBadRequest, "unsupported_file_type", nil)
		return
	}

	f, err := fh.Open()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "could_not_read_file", err)
		return
	}
	defer f.Close()

	sourceID := uuid.New()
	hasher := sha256.New()
	rel, _, err := h.static.SaveSource(sourceID, ext, io.TeeReader(f, hasher))
	if err != nil {
		h.log.Error("Save upload failed", "error", err.Error(), "filename", fh.Filename)
		response.RespondError(c, http.StatusInternalServerError, "save_file_failed", err)
		return
	}
	fileHash := hex.EncodeToString(hasher.Sum(nil))

	duplicateOf, err := h.sources.GetByFileHash(dbc, notebookID, fileHash)
	if err != nil {
		h.log.Warn("Duplicate lookup failed", "error", err.Error())
	}

	row := &domain.Source{
		ID:         sourceID,
		NotebookID: notebookID,
		Filename:   fh.Filename,
		FilePath:   rel,
		FileHash:   fileHash,
	}
	if _, err := h.sources.Create(dbc, row); err != nil {
		_ = h.static.RemoveSource(sourceID)
		if repos.IsForeignKeyViolation(err) {
			response.RespondError(c, http.StatusNotFound, "notebook_not_found", err)
			return
		}
		if repos.IsRetryable(err) {
			response.RespondError(c, http.StatusServiceUnavailable, "create_source_retry", err)
			return
		}
		h.log.Error("Create source failed", "error", err.Error())
		response.RespondError(c, http.StatusInternalServerError, "create_source_failed", err)
		return
	}

	out, err := h.pipeline.Run(c.Request.Context(), ingest.RunInput{
		SourceID: sourceID,
		FilePath: rel,
		Filename: fh.Filename,
		FileHash: fileHash,
	})
	if err != nil {
		if errors.Is(err, ingest.ErrSourceDeleted) {
			response.RespondError(c, http.StatusConflict, "source_deleted", err)
			return
		}
		response.RespondError(c, http.StatusInternalServerError, "ingest_failed", err)
		return
	}

	stored, err := h.sources.GetByID(dbc, sourceID)
	if err != nil || stored == nil {
		stored = row
	}
	payload := gin.H{
		"source":         stored,
		"documents":      out.Documents,
		"skip_report":    out.SkipReport,
		"flat_cache_hit": out.FlatCacheHit,
	}
	if duplicateOf != nil {
		payload["duplicate_of"] = duplicateOf.ID
	}
	response.RespondCreated(c, payload)
}

// DELETE /api/sources/:id
//
// Vector points go first; the row is only soft-deleted once the index is
// clean, so a retrieval filtered to this source can never see leftovers.
func (h *SourceHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil || id == uuid.Nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_source_id", err)
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}

	row, err := h.sources.GetByID(dbc, id)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "get_source_failed", err)
		return
	}
	if row == nil {
		response.RespondError(c, http.StatusNotFound, "source_not_found", nil)
		return
	}

	if err := h.vec.DeleteBySource(c.Request.Context(), id.String()); err != nil {
		h.log.Error("Vector delete failed", "error", err.Error(), "source_id", id.String())
		response.RespondError(c, http.StatusInternalServerError, "vector_delete_failed", err)
		return
	}
	if err := h.static.RemoveSource(id); err != nil {
		h.log.Warn("Static cleanup failed", "error", err.Error(), "source_id", id.String())
	}
	if err := h.sources.SoftDelete(dbc, id); err != nil {
		h.log.Error("Soft delete failed", "error", err.Error(), "source_id", id.String())
		response.RespondError(c, http.StatusInternalServerError, "delete_source_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}
