package domain

import (
	"slices"
	"strings"
	"time"
)

// DefaultLanguage is the language tag assumed when a prompt does not carry one.
const DefaultLanguage = "fr"

// FieldKey identifies one of the seven framework fields of a structured prompt.
type FieldKey string

// Framework field keys, in declaration order.
const (
	FieldContexte FieldKey = "contexte"
	FieldRole     FieldKey = "role"
	FieldObjectif FieldKey = "objectif"
	FieldStyle    FieldKey = "style"
	FieldTon      FieldKey = "ton"
	FieldAudience FieldKey = "audience"
	FieldResultat FieldKey = "resultat"
)

// FrameworkField describes one authoring section: its key, the heading used
// when rendering it, and the hint shown to authors.
type FrameworkField struct {
	Key   FieldKey
	Label string
	Hint  string
}

// frameworkFields is the fixed declaration order. Rendering and validation
// both walk this table, so reordering it changes the preview output.
var frameworkFields = []FrameworkField{
	{
		Key:   FieldContexte,
		Label: "Contexte",
		Hint:  "Décrivez le contexte global : situation, contraintes, informations préalables à connaître.",
	},
	{
		Key:   FieldRole,
		Label: "Rôle",
		Hint:  "Précisez le rôle attendu de l'IA (coach, analyste, expert, etc.).",
	},
	{
		Key:   FieldObjectif,
		Label: "Objectif",
		Hint:  "Indiquez l'objectif principal de la réponse, ce que vous souhaitez obtenir.",
	},
	{
		Key:   FieldStyle,
		Label: "Style",
		Hint:  "Définissez les préférences stylistiques (formel, concis, narratif, etc.).",
	},
	{
		Key:   FieldTon,
		Label: "Ton",
		Hint:  "Quel ton adopter ? Enthousiaste, sérieux, pédagogique...",
	},
	{
		Key:   FieldAudience,
		Label: "Audience",
		Hint:  "Qui lira ou utilisera le résultat ? Décrivez l'audience cible.",
	},
	{
		Key:   FieldResultat,
		Label: "Résultat attendu",
		Hint:  "Décrivez le format et les critères de réussite du résultat attendu.",
	},
}

// FrameworkFields returns the seven framework fields in declaration order.
func FrameworkFields() []FrameworkField {
	return slices.Clone(frameworkFields)
}

// StructuredPrompt is the authoring unit: a titled record made of the seven
// framework fields plus classification metadata.
//
// CategoryID and SubcategoryID are opaque references assigned by persistence.
// When both are set the subcategory must belong to the category; that rule is
// enforced by the persistence collaborator, not here.
type StructuredPrompt struct {
	Title       string
	Description string

	Contexte string
	Role     string
	Objectif string
	Style    string
	Ton      string
	Audience string
	Resultat string

	CategoryID    string
	SubcategoryID string

	// Tags are referenced by name. Order is kept for display only.
	Tags []string

	ModeleCible string
	Langue      string
}

// Field returns the value of the given framework field.
func (p *StructuredPrompt) Field(key FieldKey) string {
	switch key {
	case FieldContexte:
		return p.Contexte
	case FieldRole:
		return p.Role
	case FieldObjectif:
		return p.Objectif
	case FieldStyle:
		return p.Style
	case FieldTon:
		return p.Ton
	case FieldAudience:
		return p.Audience
	case FieldResultat:
		return p.Resultat
	default:
		return ""
	}
}

// SetField assigns the value of the given framework field.
// Unknown keys are ignored.
func (p *StructuredPrompt) SetField(key FieldKey, value string) {
	switch key {
	case FieldContexte:
		p.Contexte = value
	case FieldRole:
		p.Role = value
	case FieldObjectif:
		p.Objectif = value
	case FieldStyle:
		p.Style = value
	case FieldTon:
		p.Ton = value
	case FieldAudience:
		p.Audience = value
	case FieldResultat:
		p.Resultat = value
	}
}

// Language returns the prompt language, falling back to DefaultLanguage.
func (p *StructuredPrompt) Language() string {
	if p.Langue == "" {
		return DefaultLanguage
	}

	return p.Langue
}

// Validate checks the rules a prompt must satisfy before it is persisted.
func (p *StructuredPrompt) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return NewValidationError("title", "is required")
	}

	if p.SubcategoryID != "" && p.CategoryID == "" {
		return NewInconsistencyError("prompt", "subcategory set without category")
	}

	return nil
}

// Clone returns a deep copy of the prompt.
func (p *StructuredPrompt) Clone() StructuredPrompt {
	c := *p
	c.Tags = slices.Clone(p.Tags)

	return c
}

// NormalizeTags trims tag names, drops empty ones and removes exact
// duplicates while keeping first-seen order. Matching is case-sensitive.
func NormalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))

	for _, tag := range tags {
		name := strings.TrimSpace(tag)
		if name == "" {
			continue
		}

		if _, dup := seen[name]; dup {
			continue
		}

		seen[name] = struct{}{}
		out = append(out, name)
	}

	return out
}

// Category groups prompts. Names are unique library-wide.
type Category struct {
	ID            string
	Name          string
	Subcategories []Subcategory
}

// Subcategory belongs to exactly one category. Names are unique within it.
type Subcategory struct {
	ID         string
	Name       string
	CategoryID string
}

// Tag is a library-wide label, unique by name.
type Tag struct {
	ID   string
	Name string
}

// Prompt is a persisted structured prompt with its resolved references.
type Prompt struct {
	ID string
	StructuredPrompt

	Category    *Category
	Subcategory *Subcategory

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PromptSummary is the list representation of a prompt. It omits the
// framework fields.
type PromptSummary struct {
	ID          string
	Title       string
	Description string
	ModeleCible string
	Langue      string
	Category    *Category
	Subcategory *Subcategory
	Tags        []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Sort keys accepted by PromptFilter.Sort. Prefix with "-" for descending order.
const (
	SortUpdatedAt = "updated_at"
	SortCreatedAt = "created_at"
	SortTitle     = "title"
	SortCategory  = "rubrique"

	// DefaultSort lists the most recently updated prompts first.
	DefaultSort = "-" + SortUpdatedAt
)

// PromptFilter narrows a prompt listing. Zero values mean "no constraint".
type PromptFilter struct {
	Search        string
	CategoryID    string
	SubcategoryID string
	Tag           string
	ModeleCible   string
	Langue        string
	Sort          string
}

// SortKey returns the sort field and whether the order is descending.
func (f *PromptFilter) SortKey() (key string, descending bool) {
	sort := f.Sort
	if sort == "" {
		sort = DefaultSort
	}

	descending = strings.HasPrefix(sort, "-")
	key = strings.TrimLeft(sort, "-")

	switch key {
	case SortTitle, SortCreatedAt, SortCategory:
		return key, descending
	default:
		return SortUpdatedAt, descending
	}
}
