//go:build integration

package integration

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/jsamuelsen/promptlib/internal/adapters/memstore"
	"github.com/jsamuelsen/promptlib/internal/domain"
)

// fakeAPI is a persistence REST API backed by memstore. It speaks the wire
// format the library client expects and checks the bearer token.
type fakeAPI struct {
	store *memstore.Store
	token string

	// down makes every route answer 503 while set.
	down atomic.Bool

	// failPromptsAfter fails CreatePrompt once that many prompts were created.
	// Negative disables it.
	failPromptsAfter atomic.Int32
	promptsCreated   atomic.Int32
}

func newFakeAPI(token string) *fakeAPI {
	api := &fakeAPI{store: memstore.New(), token: token}
	api.failPromptsAfter.Store(-1)

	return api
}

func (a *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /categories", a.listCategories)
	mux.HandleFunc("POST /categories", a.createCategory)
	mux.HandleFunc("POST /categories/{id}/subcategories", a.createSubcategory)
	mux.HandleFunc("GET /tags", a.listTags)
	mux.HandleFunc("POST /tags", a.createTag)
	mux.HandleFunc("GET /prompts", a.listPrompts)
	mux.HandleFunc("GET /prompts/{id}", a.getPrompt)
	mux.HandleFunc("POST /prompts", a.createPrompt)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.down.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}

		if r.Header.Get("Authorization") != "Bearer "+a.token {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Could not validate credentials"})
			return
		}

		mux.ServeHTTP(w, r)
	})
}

type wireCategory struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Subcategories []wireSubcategory `json:"subcategories,omitempty"`
}

type wireSubcategory struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	CategoryID string `json:"category_id"`
}

type wireTag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type wirePrompt struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description,omitempty"`
	Contexte    string           `json:"contexte,omitempty"`
	Role        string           `json:"role,omitempty"`
	Objectif    string           `json:"objectif,omitempty"`
	Style       string           `json:"style,omitempty"`
	Ton         string           `json:"ton,omitempty"`
	Audience    string           `json:"audience,omitempty"`
	Resultat    string           `json:"resultat,omitempty"`
	ModeleCible string           `json:"modele_cible,omitempty"`
	Langue      string           `json:"langue,omitempty"`
	Category    *wireCategory    `json:"category"`
	Subcategory *wireSubcategory `json:"subcategory"`
	Tags        []string         `json:"tags"`
	CreatedAt   string           `json:"created_at"`
	UpdatedAt   string           `json:"updated_at"`
}

type promptInput struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Contexte      string   `json:"contexte"`
	Role          string   `json:"role"`
	Objectif      string   `json:"objectif"`
	Style         string   `json:"style"`
	Ton           string   `json:"ton"`
	Audience      string   `json:"audience"`
	Resultat      string   `json:"resultat"`
	CategoryID    *string  `json:"category_id"`
	SubcategoryID *string  `json:"subcategory_id"`
	Tags          []string `json:"tags"`
	ModeleCible   string   `json:"modele_cible"`
	Langue        string   `json:"langue"`
}

func (a *fakeAPI) listCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := a.store.ListCategories(r.Context(), domain.Credential{})
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]wireCategory, len(cats))
	for i := range cats {
		out[i] = toWireCategory(&cats[i])
	}

	writeJSON(w, http.StatusOK, out)
}

func (a *fakeAPI) createCategory(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name string `json:"name"`
	}
	if !readJSON(w, r, &in) {
		return
	}

	cat, err := a.store.CreateCategory(r.Context(), domain.Credential{}, in.Name)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toWireCategory(cat))
}

func (a *fakeAPI) createSubcategory(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name string `json:"name"`
	}
	if !readJSON(w, r, &in) {
		return
	}

	sc, err := a.store.CreateSubcategory(r.Context(), domain.Credential{}, r.PathValue("id"), in.Name)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, wireSubcategory{ID: sc.ID, Name: sc.Name, CategoryID: sc.CategoryID})
}

func (a *fakeAPI) listTags(w http.ResponseWriter, r *http.Request) {
	tags, err := a.store.ListTags(r.Context(), domain.Credential{})
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]wireTag, len(tags))
	for i, t := range tags {
		out[i] = wireTag{ID: t.ID, Name: t.Name}
	}

	writeJSON(w, http.StatusOK, out)
}

func (a *fakeAPI) createTag(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name string `json:"name"`
	}
	if !readJSON(w, r, &in) {
		return
	}

	tag, err := a.store.CreateTag(r.Context(), domain.Credential{}, in.Name)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, wireTag{ID: tag.ID, Name: tag.Name})
}

func (a *fakeAPI) listPrompts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	rows, err := a.store.ListPrompts(r.Context(), domain.Credential{}, domain.PromptFilter{
		Search:        q.Get("search"),
		CategoryID:    q.Get("category_id"),
		SubcategoryID: q.Get("subcategory_id"),
		Tag:           q.Get("tag"),
		ModeleCible:   q.Get("modele_cible"),
		Langue:        q.Get("langue"),
		Sort:          q.Get("sort"),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]wirePrompt, len(rows))
	for i := range rows {
		s := &rows[i]
		out[i] = wirePrompt{
			ID:          s.ID,
			Title:       s.Title,
			Description: s.Description,
			ModeleCible: s.ModeleCible,
			Langue:      s.Langue,
			Category:    toWireCategoryRef(s.Category),
			Subcategory: toWireSubcategory(s.Subcategory),
			Tags:        s.Tags,
			CreatedAt:   s.CreatedAt.Format(time.RFC3339Nano),
			UpdatedAt:   s.UpdatedAt.Format(time.RFC3339Nano),
		}
	}

	writeJSON(w, http.StatusOK, out)
}

func (a *fakeAPI) getPrompt(w http.ResponseWriter, r *http.Request) {
	p, err := a.store.GetPrompt(r.Context(), domain.Credential{}, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toWirePrompt(p))
}

func (a *fakeAPI) createPrompt(w http.ResponseWriter, r *http.Request) {
	var in promptInput
	if !readJSON(w, r, &in) {
		return
	}

	if limit := a.failPromptsAfter.Load(); limit >= 0 && a.promptsCreated.Load() >= limit {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	p, err := a.store.CreatePrompt(r.Context(), domain.Credential{}, &domain.StructuredPrompt{
		Title:         in.Title,
		Description:   in.Description,
		Contexte:      in.Contexte,
		Role:          in.Role,
		Objectif:      in.Objectif,
		Style:         in.Style,
		Ton:           in.Ton,
		Audience:      in.Audience,
		Resultat:      in.Resultat,
		CategoryID:    deref(in.CategoryID),
		SubcategoryID: deref(in.SubcategoryID),
		Tags:          in.Tags,
		ModeleCible:   in.ModeleCible,
		Langue:        in.Langue,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	a.promptsCreated.Add(1)

	writeJSON(w, http.StatusCreated, toWirePrompt(p))
}

func toWireCategory(c *domain.Category) wireCategory {
	out := wireCategory{ID: c.ID, Name: c.Name, Subcategories: []wireSubcategory{}}
	for _, sc := range c.Subcategories {
		out.Subcategories = append(out.Subcategories, wireSubcategory{ID: sc.ID, Name: sc.Name, CategoryID: sc.CategoryID})
	}

	return out
}

func toWireCategoryRef(c *domain.Category) *wireCategory {
	if c == nil {
		return nil
	}

	return &wireCategory{ID: c.ID, Name: c.Name}
}

func toWireSubcategory(sc *domain.Subcategory) *wireSubcategory {
	if sc == nil {
		return nil
	}

	return &wireSubcategory{ID: sc.ID, Name: sc.Name, CategoryID: sc.CategoryID}
}

func toWirePrompt(p *domain.Prompt) wirePrompt {
	return wirePrompt{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Contexte:    p.Contexte,
		Role:        p.Role,
		Objectif:    p.Objectif,
		Style:       p.Style,
		Ton:         p.Ton,
		Audience:    p.Audience,
		Resultat:    p.Resultat,
		ModeleCible: p.ModeleCible,
		Langue:      p.Langue,
		Category:    toWireCategoryRef(p.Category),
		Subcategory: toWireSubcategory(p.Subcategory),
		Tags:        p.Tags,
		CreatedAt:   p.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt:   p.UpdatedAt.Format(time.RFC3339Nano),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}

	return *s
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": err.Error()})
		return false
	}

	return true
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch {
	case domain.IsNotFound(err):
		status = http.StatusNotFound
	case domain.IsValidation(err), domain.IsInconsistent(err):
		status = http.StatusBadRequest
	case domain.IsUnavailable(err):
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, map[string]string{"detail": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
