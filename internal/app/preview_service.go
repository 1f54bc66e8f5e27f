package app

import (
	"context"
	"log/slog"

	"github.com/jsamuelsen/promptlib/internal/domain"
	"github.com/jsamuelsen/promptlib/internal/preview"
	"github.com/jsamuelsen/promptlib/internal/templates"
)

// Preview is a rendered prompt with its structured sections.
type Preview struct {
	Markdown string            `json:"markdown"`
	Sections []preview.Section `json:"sections"`
}

// TemplateView is a catalog template together with its rendered preview.
type TemplateView struct {
	Template templates.Template
	Preview  Preview
}

// PreviewService exposes the preview compiler and the template catalog.
// It holds no state between calls.
type PreviewService struct {
	logger  *slog.Logger
	metrics *Metrics
}

// NewPreviewService creates a preview service. Both arguments may be nil.
func NewPreviewService(logger *slog.Logger, metrics *Metrics) *PreviewService {
	if logger == nil {
		logger = slog.Default()
	}

	return &PreviewService{
		logger:  logger.With(slog.String("component", "app.PreviewService")),
		metrics: metrics,
	}
}

// Render compiles p.
func (s *PreviewService) Render(_ context.Context, p *domain.StructuredPrompt) Preview {
	out := Preview{
		Markdown: preview.Render(p),
		Sections: preview.Sections(p),
	}

	s.metrics.recordRender(len(out.Markdown))

	return out
}

// Templates lists the catalog in authoring order.
func (s *PreviewService) Templates() []templates.Template {
	return templates.List()
}

// Template returns one template and its preview on a blank record.
func (s *PreviewService) Template(ctx context.Context, label string) (*TemplateView, error) {
	tpl, err := templates.Get(label)
	if err != nil {
		return nil, err
	}

	var blank domain.StructuredPrompt
	merged := templates.Apply(&blank, tpl)

	return &TemplateView{Template: tpl, Preview: s.Render(ctx, &merged)}, nil
}

// ApplyTemplate merges the template into record and previews the result.
// record is not modified.
func (s *PreviewService) ApplyTemplate(
	ctx context.Context,
	label string,
	record *domain.StructuredPrompt,
) (domain.StructuredPrompt, Preview, error) {
	tpl, err := templates.Get(label)
	if err != nil {
		return domain.StructuredPrompt{}, Preview{}, err
	}

	merged := templates.Apply(record, tpl)

	s.logger.DebugContext(ctx, "template applied", slog.String("template", label))

	return merged, s.Render(ctx, &merged), nil
}
