package acl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/jsamuelsen/promptlib/internal/adapters/clients"
	"github.com/jsamuelsen/promptlib/internal/domain"
	"github.com/jsamuelsen/promptlib/internal/platform/logging"
)

// DefaultServiceName names the collaborator in errors and telemetry.
const DefaultServiceName = "library"

// LibraryClientConfig configures a LibraryClient.
type LibraryClientConfig struct {
	// Client must have its BaseURL set to the collaborator API root.
	Client *clients.Client

	// ServiceName defaults to DefaultServiceName.
	ServiceName string

	Logger *slog.Logger
}

// LibraryClient implements ports.Library against the persistence REST API.
type LibraryClient struct {
	BaseAdapter

	logger *slog.Logger
}

// NewLibraryClient creates the adapter. Panics if Client is nil.
func NewLibraryClient(cfg LibraryClientConfig) *LibraryClient {
	if cfg.Client == nil {
		panic("LibraryClient: Client is required")
	}

	name := cfg.ServiceName
	if name == "" {
		name = DefaultServiceName
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &LibraryClient{
		BaseAdapter: NewBaseAdapter(cfg.Client, name),
		logger:      logger.With(slog.String("component", "acl.LibraryClient")),
	}
}

// External DTOs. They never leave this package.
type (
	categoryDTO struct {
		ID            externalID       `json:"id"`
		Name          string           `json:"name"`
		Subcategories []subcategoryDTO `json:"subcategories"`
	}

	subcategoryDTO struct {
		ID         externalID `json:"id"`
		Name       string     `json:"name"`
		CategoryID externalID `json:"category_id"`
	}

	tagDTO struct {
		ID   externalID `json:"id"`
		Name string     `json:"name"`
	}

	promptDTO struct {
		ID          externalID      `json:"id"`
		Title       string          `json:"title"`
		Description *string         `json:"description"`
		Contexte    *string         `json:"contexte"`
		Role        *string         `json:"role"`
		Objectif    *string         `json:"objectif"`
		Style       *string         `json:"style"`
		Ton         *string         `json:"ton"`
		Audience    *string         `json:"audience"`
		Resultat    *string         `json:"resultat"`
		ModeleCible *string         `json:"modele_cible"`
		Langue      *string         `json:"langue"`
		Category    *categoryDTO    `json:"category"`
		Subcategory *subcategoryDTO `json:"subcategory"`
		Tags        []tagRef        `json:"tags"`
		CreatedAt   string          `json:"created_at"`
		UpdatedAt   string          `json:"updated_at"`
	}

	nameRequest struct {
		Name string `json:"name"`
	}

	subcategoryRequest struct {
		Name       string     `json:"name"`
		CategoryID externalID `json:"category_id"`
	}

	promptRequest struct {
		Title         string      `json:"title"`
		Description   string      `json:"description,omitempty"`
		Contexte      string      `json:"contexte,omitempty"`
		Role          string      `json:"role,omitempty"`
		Objectif      string      `json:"objectif,omitempty"`
		Style         string      `json:"style,omitempty"`
		Ton           string      `json:"ton,omitempty"`
		Audience      string      `json:"audience,omitempty"`
		Resultat      string      `json:"resultat,omitempty"`
		CategoryID    *externalID `json:"category_id,omitempty"`
		SubcategoryID *externalID `json:"subcategory_id,omitempty"`
		Tags          []string    `json:"tags"`
		ModeleCible   string      `json:"modele_cible,omitempty"`
		Langue        string      `json:"langue,omitempty"`
	}
)

// tagRef accepts a tag either as an object with a name or as a bare string.
type tagRef string

func (t *tagRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}

		*t = tagRef(s)

		return nil
	}

	var obj tagDTO
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}

	*t = tagRef(obj.Name)

	return nil
}

// ListCategories implements ports.Library.
func (c *LibraryClient) ListCategories(ctx context.Context, cred domain.Credential) ([]domain.Category, error) {
	body, err := c.Get(ctx, cred, "/categories", "list categories", "")
	if err != nil {
		return nil, err
	}

	dtos, err := DecodeResponse[[]categoryDTO](body)
	if err != nil {
		return nil, c.invalidResponse("list categories", err)
	}

	cats, err := TranslateSlice(*dtos, translateCategory)
	if err != nil {
		return nil, c.invalidResponse("list categories", err)
	}

	return cats, nil
}

// CreateCategory implements ports.Library.
func (c *LibraryClient) CreateCategory(ctx context.Context, cred domain.Credential, name string) (*domain.Category, error) {
	body, err := c.Post(ctx, cred, "/categories", nameRequest{Name: name}, "create category")
	if err != nil {
		return nil, err
	}

	dto, err := DecodeResponse[categoryDTO](body)
	if err != nil {
		return nil, c.invalidResponse("create category", err)
	}

	cat, err := translateCategory(dto)
	if err != nil {
		return nil, c.invalidResponse("create category", err)
	}

	c.logger.Log(ctx, logging.LevelTrace, "category created", slog.String("id", cat.ID))

	return &cat, nil
}

// CreateSubcategory implements ports.Library.
func (c *LibraryClient) CreateSubcategory(
	ctx context.Context,
	cred domain.Credential,
	categoryID, name string,
) (*domain.Subcategory, error) {
	path := "/categories/" + url.PathEscape(categoryID) + "/subcategories"
	req := subcategoryRequest{Name: name, CategoryID: externalID(categoryID)}

	body, err := c.Post(ctx, cred, path, req, "create subcategory")
	if err != nil {
		return nil, err
	}

	dto, err := DecodeResponse[subcategoryDTO](body)
	if err != nil {
		return nil, c.invalidResponse("create subcategory", err)
	}

	sub, err := translateSubcategory(dto)
	if err != nil {
		return nil, c.invalidResponse("create subcategory", err)
	}

	if sub.CategoryID == "" {
		sub.CategoryID = categoryID
	}

	return &sub, nil
}

// ListTags implements ports.Library.
func (c *LibraryClient) ListTags(ctx context.Context, cred domain.Credential) ([]domain.Tag, error) {
	body, err := c.Get(ctx, cred, "/tags", "list tags", "")
	if err != nil {
		return nil, err
	}

	dtos, err := DecodeResponse[[]tagDTO](body)
	if err != nil {
		return nil, c.invalidResponse("list tags", err)
	}

	tags, err := TranslateSlice(*dtos, translateTag)
	if err != nil {
		return nil, c.invalidResponse("list tags", err)
	}

	return tags, nil
}

// CreateTag implements ports.Library.
func (c *LibraryClient) CreateTag(ctx context.Context, cred domain.Credential, name string) (*domain.Tag, error) {
	body, err := c.Post(ctx, cred, "/tags", nameRequest{Name: name}, "create tag")
	if err != nil {
		return nil, err
	}

	dto, err := DecodeResponse[tagDTO](body)
	if err != nil {
		return nil, c.invalidResponse("create tag", err)
	}

	tag, err := translateTag(dto)
	if err != nil {
		return nil, c.invalidResponse("create tag", err)
	}

	return &tag, nil
}

// ListPrompts implements ports.Library.
func (c *LibraryClient) ListPrompts(
	ctx context.Context,
	cred domain.Credential,
	filter domain.PromptFilter,
) ([]domain.PromptSummary, error) {
	path := "/prompts"
	if q := filterQuery(filter); q != "" {
		path += "?" + q
	}

	body, err := c.Get(ctx, cred, path, "list prompts", "")
	if err != nil {
		return nil, err
	}

	dtos, err := DecodeResponse[[]promptDTO](body)
	if err != nil {
		return nil, c.invalidResponse("list prompts", err)
	}

	summaries, err := TranslateSlice(*dtos, translateSummary)
	if err != nil {
		return nil, c.invalidResponse("list prompts", err)
	}

	return summaries, nil
}

// GetPrompt implements ports.Library.
func (c *LibraryClient) GetPrompt(ctx context.Context, cred domain.Credential, id string) (*domain.Prompt, error) {
	body, err := c.Get(ctx, cred, "/prompts/"+url.PathEscape(id), "get prompt", id)
	if err != nil {
		return nil, err
	}

	dto, err := DecodeResponse[promptDTO](body)
	if err != nil {
		return nil, c.invalidResponse("get prompt", err)
	}

	p, err := translatePrompt(dto)
	if err != nil {
		return nil, c.invalidResponse("get prompt", err)
	}

	return p, nil
}

// CreatePrompt implements ports.Library.
func (c *LibraryClient) CreatePrompt(
	ctx context.Context,
	cred domain.Credential,
	input *domain.StructuredPrompt,
) (*domain.Prompt, error) {
	body, err := c.Post(ctx, cred, "/prompts", newPromptRequest(input), "create prompt")
	if err != nil {
		return nil, err
	}

	dto, err := DecodeResponse[promptDTO](body)
	if err != nil {
		return nil, c.invalidResponse("create prompt", err)
	}

	p, err := translatePrompt(dto)
	if err != nil {
		return nil, c.invalidResponse("create prompt", err)
	}

	c.logger.Log(ctx, logging.LevelTrace, "prompt created", slog.String("id", p.ID))

	return p, nil
}

func (c *LibraryClient) invalidResponse(operation string, err error) error {
	return domain.NewUnavailableError(c.ServiceName(), fmt.Sprintf("invalid %s response: %v", operation, err))
}

func filterQuery(f domain.PromptFilter) string {
	q := url.Values{}

	set := func(key, value string) {
		if value != "" {
			q.Set(key, value)
		}
	}

	set("search", f.Search)
	set("category_id", f.CategoryID)
	set("subcategory_id", f.SubcategoryID)
	set("tag", f.Tag)
	set("modele_cible", f.ModeleCible)
	set("langue", f.Langue)
	set("sort", f.Sort)

	return q.Encode()
}

func newPromptRequest(p *domain.StructuredPrompt) promptRequest {
	req := promptRequest{
		Title:       p.Title,
		Description: p.Description,
		Contexte:    p.Contexte,
		Role:        p.Role,
		Objectif:    p.Objectif,
		Style:       p.Style,
		Ton:         p.Ton,
		Audience:    p.Audience,
		Resultat:    p.Resultat,
		Tags:        domain.NormalizeTags(p.Tags),
		ModeleCible: p.ModeleCible,
		Langue:      p.Langue,
	}

	if req.Tags == nil {
		req.Tags = []string{}
	}

	if p.CategoryID != "" {
		id := externalID(p.CategoryID)
		req.CategoryID = &id
	}

	if p.SubcategoryID != "" {
		id := externalID(p.SubcategoryID)
		req.SubcategoryID = &id
	}

	return req
}

func translateCategory(dto *categoryDTO) (domain.Category, error) {
	if dto.ID == "" {
		return domain.Category{}, domain.NewValidationError("category.id", "is required")
	}

	subs, err := TranslateSlice(dto.Subcategories, translateSubcategory)
	if err != nil {
		return domain.Category{}, err
	}

	for i := range subs {
		if subs[i].CategoryID == "" {
			subs[i].CategoryID = string(dto.ID)
		}
	}

	return domain.Category{ID: string(dto.ID), Name: dto.Name, Subcategories: subs}, nil
}

func translateSubcategory(dto *subcategoryDTO) (domain.Subcategory, error) {
	if dto.ID == "" {
		return domain.Subcategory{}, domain.NewValidationError("subcategory.id", "is required")
	}

	return domain.Subcategory{ID: string(dto.ID), Name: dto.Name, CategoryID: string(dto.CategoryID)}, nil
}

func translateTag(dto *tagDTO) (domain.Tag, error) {
	if dto.ID == "" {
		return domain.Tag{}, domain.NewValidationError("tag.id", "is required")
	}

	return domain.Tag{ID: string(dto.ID), Name: dto.Name}, nil
}

func translateSummary(dto *promptDTO) (domain.PromptSummary, error) {
	p, err := translatePrompt(dto)
	if err != nil {
		return domain.PromptSummary{}, err
	}

	return domain.PromptSummary{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		ModeleCible: p.ModeleCible,
		Langue:      p.Langue,
		Category:    p.Category,
		Subcategory: p.Subcategory,
		Tags:        p.Tags,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}, nil
}

func translatePrompt(dto *promptDTO) (*domain.Prompt, error) {
	if dto.ID == "" {
		return nil, domain.NewValidationError("prompt.id", "is required")
	}

	created, err := parseTimestamp(dto.CreatedAt)
	if err != nil {
		return nil, domain.NewValidationError("prompt.created_at", err.Error())
	}

	updated, err := parseTimestamp(dto.UpdatedAt)
	if err != nil {
		return nil, domain.NewValidationError("prompt.updated_at", err.Error())
	}

	p := &domain.Prompt{
		ID: string(dto.ID),
		StructuredPrompt: domain.StructuredPrompt{
			Title:       dto.Title,
			Description: deref(dto.Description),
			Contexte:    deref(dto.Contexte),
			Role:        deref(dto.Role),
			Objectif:    deref(dto.Objectif),
			Style:       deref(dto.Style),
			Ton:         deref(dto.Ton),
			Audience:    deref(dto.Audience),
			Resultat:    deref(dto.Resultat),
			ModeleCible: deref(dto.ModeleCible),
			Langue:      deref(dto.Langue),
		},
		CreatedAt: created,
		UpdatedAt: updated,
	}

	for _, t := range dto.Tags {
		p.Tags = append(p.Tags, string(t))
	}

	if dto.Category != nil {
		cat, err := translateCategory(dto.Category)
		if err != nil {
			return nil, err
		}

		p.Category = &cat
		p.CategoryID = cat.ID
	}

	if dto.Subcategory != nil {
		sub, err := translateSubcategory(dto.Subcategory)
		if err != nil {
			return nil, err
		}

		p.Subcategory = &sub
		p.SubcategoryID = sub.ID
	}

	return p, nil
}

// timestampLayouts are tried in order. The collaborator may omit the zone,
// in which case UTC is assumed.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}

	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}

	return *s
}
