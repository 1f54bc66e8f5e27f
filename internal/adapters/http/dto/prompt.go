package dto

import (
	"slices"

	"github.com/jsamuelsen/promptlib/internal/app"
	"github.com/jsamuelsen/promptlib/internal/domain"
	"github.com/jsamuelsen/promptlib/internal/templates"
)

// PromptBody is a structured prompt as it travels over the API. Every field
// is optional: an untitled draft still previews as "Sans titre".
type PromptBody struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`

	Contexte string `json:"contexte,omitempty"`
	Role     string `json:"role,omitempty"`
	Objectif string `json:"objectif,omitempty"`
	Style    string `json:"style,omitempty"`
	Ton      string `json:"ton,omitempty"`
	Audience string `json:"audience,omitempty"`
	Resultat string `json:"resultat,omitempty"`

	CategoryID    string `json:"category_id,omitempty"`
	SubcategoryID string `json:"subcategory_id,omitempty"`

	Tags []string `json:"tags"`

	ModeleCible string `json:"modele_cible,omitempty"`
	Langue      string `json:"langue,omitempty"`
}

// ToDomain copies the body into a StructuredPrompt.
func (b *PromptBody) ToDomain() domain.StructuredPrompt {
	return domain.StructuredPrompt{
		Title:         b.Title,
		Description:   b.Description,
		Contexte:      b.Contexte,
		Role:          b.Role,
		Objectif:      b.Objectif,
		Style:         b.Style,
		Ton:           b.Ton,
		Audience:      b.Audience,
		Resultat:      b.Resultat,
		CategoryID:    b.CategoryID,
		SubcategoryID: b.SubcategoryID,
		Tags:          slices.Clone(b.Tags),
		ModeleCible:   b.ModeleCible,
		Langue:        b.Langue,
	}
}

// NewPromptBody is the inverse of ToDomain. Tags serialize as [] rather than null.
func NewPromptBody(p *domain.StructuredPrompt) PromptBody {
	tags := slices.Clone(p.Tags)
	if tags == nil {
		tags = []string{}
	}

	return PromptBody{
		Title:         p.Title,
		Description:   p.Description,
		Contexte:      p.Contexte,
		Role:          p.Role,
		Objectif:      p.Objectif,
		Style:         p.Style,
		Ton:           p.Ton,
		Audience:      p.Audience,
		Resultat:      p.Resultat,
		CategoryID:    p.CategoryID,
		SubcategoryID: p.SubcategoryID,
		Tags:          tags,
		ModeleCible:   p.ModeleCible,
		Langue:        p.Langue,
	}
}

// PreviewResponse is app.Preview on the wire.
type PreviewResponse = app.Preview

// TemplateSummary is one catalog entry in a listing.
type TemplateSummary struct {
	Label string `json:"label"`
	Title string `json:"title"`
}

// TemplateResponse is one template with its values and rendered preview.
type TemplateResponse struct {
	Label   string          `json:"label"`
	Values  PromptBody      `json:"values"`
	Preview PreviewResponse `json:"preview"`
}

// ApplyTemplateResponse is the merged record and its preview.
type ApplyTemplateResponse struct {
	Template string          `json:"template"`
	Record   PromptBody      `json:"record"`
	Preview  PreviewResponse `json:"preview"`
}

// TemplatePath binds the :label path parameter.
type TemplatePath struct {
	Label string `uri:"label" json:"label" validate:"notblank"`
}

// FormatQuery binds the optional ?format= of export and import.
type FormatQuery struct {
	Format string `form:"format" json:"format" validate:"omitempty,oneof=json yaml yml"`
}

// ImportResponse reports aggregate import counts.
type ImportResponse = app.ImportResult

func NewTemplateSummaries(tpls []templates.Template) []TemplateSummary {
	out := make([]TemplateSummary, len(tpls))
	for i, t := range tpls {
		out[i] = TemplateSummary{Label: t.Label, Title: t.Values.Title}
	}

	return out
}

func NewTemplateResponse(view *app.TemplateView) TemplateResponse {
	return TemplateResponse{
		Label:   view.Template.Label,
		Values:  NewPromptBody(&view.Template.Values),
		Preview: view.Preview,
	}
}
