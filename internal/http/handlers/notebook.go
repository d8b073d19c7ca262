package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/notebook-backend/internal/data/repos"
	"github.com/yungbote/notebook-backend/internal/domain"
	"github.com/yungbote/notebook-backend/internal/http/response"
	"github.com/yungbote/notebook-backend/internal/pkg/dbctx"
	"github.com/yungbote/notebook-backend/internal/platform/logger"
)

const maxTitleLen = 500

type NotebookHandler struct {
	log       *logger.Logger
	notebooks repos.NotebookRepo
}

func NewNotebookHandler(log *logger.Logger, notebooks repos.NotebookRepo) *NotebookHandler {
	return &NotebookHandler{
		log:       log.With("handler", "NotebookHandler"),
		notebooks: notebooks,
	}
}

type createNotebookRequest struct {
	Title string `json:"title"`
}

// POST /api/notebooks
func (h *NotebookHandler) Create(c *gin.Context) {
	var req createNotebookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		response.RespondError(c, http.StatusBadRequest, "title_required", nil)
		return
	}
	if len(title) > maxTitleLen {
		response.RespondError(c, http.StatusBadRequest, "title_too_long", nil)
		return
	}

	row, err := h.notebooks.Create(dbctx.Context{Ctx: c.Request.Context()}, &domain.Notebook{Title: title})
	if err != nil {
		h.log.Error("Create notebook failed", "error", err.Error())
		response.RespondError(c, http.StatusInternalServerError, "create_notebook_failed", err)
		return
	}
	response.RespondCreated(c, gin.H{"notebook": row})
}

// GET /api/notebooks
func (h *NotebookHandler) List(c *gin.Context) {
	rows, err := h.notebooks.List(dbctx.Context{Ctx: c.Request.Context()})
	if err != nil {
		h.log.Error("List notebooks failed", "error", err.Error())
		response.RespondError(c, http.StatusInternalServerError, "list_notebooks_failed", err)
		return
	}
	if rows == nil {
		rows = []*domain.Notebook{}
	}
	response.RespondOK(c, gin.H{"notebooks": rows})
}

// GET /api/notebooks/:id
func (h *NotebookHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil || id == uuid.Nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_notebook_id", err)
		return
	}

	row, err := h.notebooks.GetByIDWithSources(dbctx.Context{Ctx: c.Request.Context()}, id)
	if err != nil {
		h.log.Error("Get notebook failed", "error", err.Error(), "notebook_id", id.String())
		response.RespondError(c, http.StatusInternalServerError, "get_notebook_failed", err)
		return
	}
	if row == nil {
		response.RespondError(c, http.StatusNotFound, "notebook_not_found", nil)
		return
	}
	response.RespondOK(c, gin.H{"notebook": row})
}
