package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/notebook-backend/internal/data/repos"
	"github.com/yungbote/notebook-backend/internal/http/response"
	"github.com/yungbote/notebook-backend/internal/modules/retrieve"
	"github.com/yungbote/notebook-backend/internal/pkg/dbctx"
	"github.com/yungbote/notebook-backend/internal/platform/logger"
)

// Asker answers a question over a set of sources.
type Asker interface {
	Retrieve(ctx context.Context, question string, sourceIDs []uuid.UUID) (retrieve.Result, error)
}

type AskHandler struct {
	log       *logger.Logger
	notebooks repos.NotebookRepo
	sources   repos.SourceRepo
	retriever Asker
}

func NewAskHandler(log *logger.Logger, notebooks repos.NotebookRepo, sources repos.SourceRepo, retriever Asker) *AskHandler {
	return &AskHandler{
		log:       log.With("handler", "AskHandler"),
		notebooks: notebooks,
		sources:   sources,
		retriever: retriever,
	}
}

type askRequest struct {
	Question  string      `json:"question"`
	SourceIDs []uuid.UUID `json:"source_ids"`
}

// POST /api/notebooks/:id/ask
//
// Scope defaults to every source in the notebook; an explicit source_ids
// list is intersected with the notebook's own, so a caller can never reach
// into another notebook.
func (h *AskHandler) Ask(c *gin.Context) {
	notebookID, err := uuid.Parse(c.Param("id"))
	if err != nil || notebookID == uuid.Nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_notebook_id", err)
		return
	}

	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		response.RespondError(c, http.StatusBadRequest, "question_required", nil)
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

	rows, err := h.sources.ListByNotebook(dbc, notebookID)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "list_sources_failed", err)
		return
	}
	owned := make(map[uuid.UUID]bool, len(rows))
	scope := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		owned[row.ID] = true
		scope = append(scope, row.ID)
	}
	if len(req.SourceIDs) > 0 {
		scope = scope[:0]
		for _, id := range req.SourceIDs {
			if owned[id] {
				scope = append(scope, id)
			}
		}
	}

	result, err := h.retriever.Retrieve(c.Request.Context(), req.Question, scope)
	if err != nil {
		h.log.Error("Retrieve failed", "error", err.Error(), "notebook_id", notebookID.String())
		response.RespondError(c, http.StatusInternalServerError, "retrieve_failed", err)
		return
	}
	response.RespondOK(c, result)
}
