// Package interchange defines the portable library document and its codec.
//
// A document references taxonomy by name, never by persistence ID, so it can
// be imported into a library whose IDs differ from the source.
package interchange

import (
	"slices"
	"time"

	"github.com/jsamuelsen/promptlib/internal/domain"
)

// TimestampLayout is the layout used for exported_at and prompt timestamps.
const TimestampLayout = time.RFC3339

// Document is the whole-library interchange payload.
//
// Timestamps are kept as strings. They are metadata only and are never
// interpreted on import, which lets documents produced by other exporters
// (for example ISO timestamps without a zone) load unchanged.
type Document struct {
	ExportedAt    string             `json:"exported_at"   yaml:"exported_at"`
	Categories    []CategoryEntry    `json:"categories"    yaml:"categories"`
	Subcategories []SubcategoryEntry `json:"subcategories" yaml:"subcategories"`
	Tags          []string           `json:"tags"          yaml:"tags"`
	Prompts       []PromptRecord     `json:"prompts"       yaml:"prompts"`
}

// CategoryEntry names one category.
type CategoryEntry struct {
	Name string `json:"name" yaml:"name"`
}

// SubcategoryEntry names one subcategory and its owning category.
// Category is nil when the owner could not be resolved at export time.
type SubcategoryEntry struct {
	Name     string  `json:"name"     yaml:"name"`
	Category *string `json:"category" yaml:"category"`
}

// PromptRecord is a flattened prompt.
type PromptRecord struct {
	Title       string   `json:"title"                  yaml:"title"`
	Description string   `json:"description,omitempty"  yaml:"description,omitempty"`
	Contexte    string   `json:"contexte,omitempty"     yaml:"contexte,omitempty"`
	Role        string   `json:"role,omitempty"         yaml:"role,omitempty"`
	Objectif    string   `json:"objectif,omitempty"     yaml:"objectif,omitempty"`
	Style       string   `json:"style,omitempty"        yaml:"style,omitempty"`
	Ton         string   `json:"ton,omitempty"          yaml:"ton,omitempty"`
	Audience    string   `json:"audience,omitempty"     yaml:"audience,omitempty"`
	Resultat    string   `json:"resultat,omitempty"     yaml:"resultat,omitempty"`
	Category    string   `json:"category,omitempty"     yaml:"category,omitempty"`
	Subcategory string   `json:"subcategory,omitempty"  yaml:"subcategory,omitempty"`
	Tags        []string `json:"tags,omitempty"         yaml:"tags,omitempty"`
	ModeleCible string   `json:"modele_cible,omitempty" yaml:"modele_cible,omitempty"`
	Langue      string   `json:"langue,omitempty"       yaml:"langue,omitempty"`
	CreatedAt   string   `json:"created_at,omitempty"   yaml:"created_at,omitempty"`
	UpdatedAt   string   `json:"updated_at,omitempty"   yaml:"updated_at,omitempty"`
}

// Body returns the prompt content as a StructuredPrompt. Taxonomy references
// are left empty since they must be resolved against the target library.
func (r *PromptRecord) Body() domain.StructuredPrompt {
	return domain.StructuredPrompt{
		Title:       r.Title,
		Description: r.Description,
		Contexte:    r.Contexte,
		Role:        r.Role,
		Objectif:    r.Objectif,
		Style:       r.Style,
		Ton:         r.Ton,
		Audience:    r.Audience,
		Resultat:    r.Resultat,
		Tags:        domain.NormalizeTags(r.Tags),
		ModeleCible: r.ModeleCible,
		Langue:      r.Langue,
	}
}

// NewPromptRecord flattens a persisted prompt, replacing references by names.
func NewPromptRecord(p *domain.Prompt) PromptRecord {
	rec := PromptRecord{
		Title:       p.Title,
		Description: p.Description,
		Contexte:    p.Contexte,
		Role:        p.Role,
		Objectif:    p.Objectif,
		Style:       p.Style,
		Ton:         p.Ton,
		Audience:    p.Audience,
		Resultat:    p.Resultat,
		Tags:        slices.Clone(p.Tags),
		ModeleCible: p.ModeleCible,
		Langue:      p.Langue,
		CreatedAt:   formatTime(p.CreatedAt),
		UpdatedAt:   formatTime(p.UpdatedAt),
	}

	if p.Category != nil {
		rec.Category = p.Category.Name
	}

	if p.Subcategory != nil {
		rec.Subcategory = p.Subcategory.Name
	}

	return rec
}

// Build assembles a document from a library snapshot. Categories keep their
// listing order; each category's subcategories follow in the same order.
func Build(exportedAt time.Time, categories []domain.Category, tags []domain.Tag, prompts []domain.Prompt) *Document {
	doc := &Document{
		ExportedAt:    formatTime(exportedAt),
		Categories:    make([]CategoryEntry, 0, len(categories)),
		Subcategories: []SubcategoryEntry{},
		Tags:          make([]string, 0, len(tags)),
		Prompts:       make([]PromptRecord, 0, len(prompts)),
	}

	for _, c := range categories {
		doc.Categories = append(doc.Categories, CategoryEntry{Name: c.Name})

		for _, s := range c.Subcategories {
			owner := c.Name
			doc.Subcategories = append(doc.Subcategories, SubcategoryEntry{Name: s.Name, Category: &owner})
		}
	}

	for _, t := range tags {
		doc.Tags = append(doc.Tags, t.Name)
	}

	for i := range prompts {
		doc.Prompts = append(doc.Prompts, NewPromptRecord(&prompts[i]))
	}

	return doc
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	return t.UTC().Format(TimestampLayout)
}
