package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/promptlib/internal/adapters/http/dto"
	"github.com/jsamuelsen/promptlib/internal/adapters/http/middleware"
	"github.com/jsamuelsen/promptlib/internal/app"
	"github.com/jsamuelsen/promptlib/internal/domain"
	"github.com/jsamuelsen/promptlib/internal/interchange"
	"github.com/jsamuelsen/promptlib/internal/platform/logging"
)

// LibraryService is the export and import use cases.
type LibraryService interface {
	Export(ctx context.Context, cred domain.Credential) (*interchange.Document, error)
	Import(ctx context.Context, cred domain.Credential, doc *interchange.Document) (app.ImportResult, error)
}

// LibraryHandler serves whole-library export and import. Both forward the
// caller's credential to the library collaborator.
type LibraryHandler struct {
	library         LibraryService
	maxDocumentSize int64
}

// NewLibraryHandler creates the handler. maxDocumentSize caps import bodies;
// zero or less means no cap beyond the server's own.
func NewLibraryHandler(library LibraryService, maxDocumentSize int64) *LibraryHandler {
	return &LibraryHandler{library: library, maxDocumentSize: maxDocumentSize}
}

// ImportRoute is the import route relative to the API group. The router
// exempts it from the request timeout and the global body limit.
const ImportRoute = "/library/import"

func (h *LibraryHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/library/export", h.Export)
	rg.POST(ImportRoute, h.Import)
}

// Export streams the library as an interchange document, JSON unless
// ?format=yaml.
func (h *LibraryHandler) Export(c *gin.Context) {
	var q dto.FormatQuery
	if !bind(c, dto.BindQueryAndValidate, &q) {
		return
	}

	format, err := interchange.ParseFormat(q.Format)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	ctx := logging.WithOperation(c.Request.Context(), "export")

	doc, err := h.library.Export(ctx, middleware.GetCredential(c))
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := interchange.Encode(&buf, doc, format); err != nil {
		dto.HandleError(c, err)
		return
	}

	filename := exportFilename(doc, format)
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	c.Data(http.StatusOK, format.ContentType()+"; charset=utf-8", buf.Bytes())
}

// exportFilename stamps the attachment name with the document's own export
// time so the two never disagree. An unparseable stamp falls back to now.
func exportFilename(doc *interchange.Document, format interchange.Format) string {
	stamp, err := time.Parse(interchange.TimestampLayout, doc.ExportedAt)
	if err != nil {
		stamp = time.Now()
	}

	return fmt.Sprintf("promptlib-%s.%s", stamp.UTC().Format("20060102-150405"), format)
}

// Import reads an interchange document from the body and replays it into
// the caller's library. The format comes from ?format= or the Content-Type.
//
// A malformed document is rejected before any write. A collaborator failure
// mid-way returns the error with the counts reached so far in its details.
func (h *LibraryHandler) Import(c *gin.Context) {
	var q dto.FormatQuery
	if !bind(c, dto.BindQueryAndValidate, &q) {
		return
	}

	format, err := importFormat(q.Format, c.ContentType())
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	body := c.Request.Body
	if h.maxDocumentSize > 0 {
		body = http.MaxBytesReader(c.Writer, body, h.maxDocumentSize)
	}

	doc, err := interchange.Decode(body, format)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			dto.RespondWithCode(c, dto.ErrorCodePayloadTooLarge,
				"document exceeds "+strconv.FormatInt(tooLarge.Limit, 10)+" bytes")

			return
		}

		dto.HandleError(c, err)

		return
	}

	ctx := logging.WithOperation(c.Request.Context(), "import")

	res, err := h.library.Import(ctx, middleware.GetCredential(c), doc)
	if err != nil {
		attrs := []any{
			slog.Int("created", res.Created),
			slog.Int("skipped", res.Skipped),
			slog.String("error", err.Error()),
		}
		if step, ok := app.GetExecutionStep(err); ok {
			attrs = append(attrs, slog.String("step", string(step)))
		}

		logging.FromContext(ctx).WarnContext(ctx, "import aborted", attrs...)

		status, resp := dto.MapDomainError(err)
		resp.TraceID = dto.GetTraceID(c)

		if resp.Error.Details == nil {
			resp.Error.Details = map[string]string{}
		}

		resp.Error.Details["created"] = strconv.Itoa(res.Created)
		resp.Error.Details["skipped"] = strconv.Itoa(res.Skipped)

		c.JSON(status, resp)

		return
	}

	c.JSON(http.StatusOK, dto.ImportResponse(res))
}

// importFormat prefers an explicit ?format= and otherwise sniffs the media
// type. Anything not YAML is read as JSON.
func importFormat(query, contentType string) (interchange.Format, error) {
	if query != "" {
		return interchange.ParseFormat(query)
	}

	if strings.Contains(strings.ToLower(contentType), "yaml") {
		return interchange.FormatYAML, nil
	}

	return interchange.FormatJSON, nil
}
