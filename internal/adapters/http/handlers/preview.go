package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/promptlib/internal/adapters/http/dto"
	"github.com/jsamuelsen/promptlib/internal/app"
)

// PreviewHandler serves the preview compiler and the template catalog.
// None of its routes touch the library collaborator.
type PreviewHandler struct {
	previews *app.PreviewService
}

func NewPreviewHandler(previews *app.PreviewService) *PreviewHandler {
	return &PreviewHandler{previews: previews}
}

// RegisterRoutes mounts /preview and /templates on rg.
func (h *PreviewHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/preview", h.Preview)
	rg.GET("/templates", h.ListTemplates)
	rg.GET("/templates/:label", h.GetTemplate)
	rg.POST("/templates/:label/apply", h.ApplyTemplate)
}

// Preview renders the posted record.
func (h *PreviewHandler) Preview(c *gin.Context) {
	var body dto.PromptBody
	if !bind(c, dto.BindAndValidate, &body) {
		return
	}

	p := body.ToDomain()
	c.JSON(http.StatusOK, h.previews.Render(c.Request.Context(), &p))
}

func (h *PreviewHandler) ListTemplates(c *gin.Context) {
	c.JSON(http.StatusOK, dto.NewTemplateSummaries(h.previews.Templates()))
}

// GetTemplate returns one template with its preview on a blank record.
func (h *PreviewHandler) GetTemplate(c *gin.Context) {
	var path dto.TemplatePath
	if !bind(c, dto.BindURIAndValidate, &path) {
		return
	}

	view, err := h.previews.Template(c.Request.Context(), path.Label)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewTemplateResponse(view))
}

// ApplyTemplate merges the template into the posted record. An empty body
// applies the template to a blank record.
func (h *PreviewHandler) ApplyTemplate(c *gin.Context) {
	var path dto.TemplatePath
	if !bind(c, dto.BindURIAndValidate, &path) {
		return
	}

	var body dto.PromptBody
	if c.Request.ContentLength != 0 && !bind(c, dto.BindAndValidate, &body) {
		return
	}

	record := body.ToDomain()

	merged, preview, err := h.previews.ApplyTemplate(c.Request.Context(), path.Label, &record)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ApplyTemplateResponse{
		Template: path.Label,
		Record:   dto.NewPromptBody(&merged),
		Preview:  preview,
	})
}

// bind runs a dto binder and writes the 400 itself on failure.
func bind(c *gin.Context, binder func(*gin.Context, any) error, v any) bool {
	err := binder(c, v)

	switch {
	case err == nil:
		return true
	case dto.IsValidationError(err):
		dto.RespondWithValidationErrors(c, dto.ValidationErrors(err))
	case errors.Is(err, dto.ErrBinding):
		dto.RespondWithCode(c, dto.ErrorCodeBadRequest, "request could not be decoded")
	default:
		dto.HandleError(c, err)
	}

	return false
}
