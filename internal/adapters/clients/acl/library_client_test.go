package acl

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/promptlib/internal/adapters/clients"
	"github.com/jsamuelsen/promptlib/internal/domain"
	"github.com/jsamuelsen/promptlib/internal/platform/config"
)

func newLibraryClient(t *testing.T, mux *http.ServeMux) *LibraryClient {
	t.Helper()

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := clients.New(&clients.Config{
		BaseURL:     server.URL,
		ServiceName: "library",
		Timeout:     5 * time.Second,
		Retry:       config.RetryConfig{MaxAttempts: 1},
		Circuit:     config.CircuitBreakerConfig{MaxFailures: 5, Timeout: time.Second, HalfOpenLimit: 1},
	})
	require.NoError(t, err)

	return NewLibraryClient(LibraryClientConfig{Client: client})
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

var cred = domain.NewCredential("tok")

func TestNewLibraryClient_PanicsWithoutClient(t *testing.T) {
	assert.Panics(t, func() { NewLibraryClient(LibraryClientConfig{}) })
}

func TestLibraryClient_ListCategories(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /categories", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, `[
			{"id": 1, "name": "Marketing", "subcategories": [{"id": 7, "name": "Emailing", "category_id": 1}]},
			{"id": 2, "name": "RH", "subcategories": []}
		]`)
	})

	cats, err := newLibraryClient(t, mux).ListCategories(context.Background(), cred)
	require.NoError(t, err)

	require.Len(t, cats, 2)
	assert.Equal(t, domain.Category{
		ID:            "1",
		Name:          "Marketing",
		Subcategories: []domain.Subcategory{{ID: "7", Name: "Emailing", CategoryID: "1"}},
	}, cats[0])
	assert.Empty(t, cats[1].Subcategories)
}

func TestLibraryClient_CreateTaxonomy(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /categories", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Marketing", body["name"])
		writeJSON(w, http.StatusCreated, `{"id": 3, "name": "Marketing", "subcategories": []}`)
	})
	mux.HandleFunc("POST /categories/3/subcategories", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Emailing", body["name"])
		assert.InDelta(t, 3, body["category_id"], 0)
		writeJSON(w, http.StatusCreated, `{"id": 9, "name": "Emailing", "category_id": 3}`)
	})
	mux.HandleFunc("POST /tags", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusCreated, `{"id": "t-1", "name": "vente"}`)
	})

	lib := newLibraryClient(t, mux)
	ctx := context.Background()

	cat, err := lib.CreateCategory(ctx, cred, "Marketing")
	require.NoError(t, err)
	assert.Equal(t, "3", cat.ID)

	sub, err := lib.CreateSubcategory(ctx, cred, cat.ID, "Emailing")
	require.NoError(t, err)
	assert.Equal(t, domain.Subcategory{ID: "9", Name: "Emailing", CategoryID: "3"}, *sub)

	tag, err := lib.CreateTag(ctx, cred, "vente")
	require.NoError(t, err)
	assert.Equal(t, domain.Tag{ID: "t-1", Name: "vente"}, *tag)
}

func TestLibraryClient_DuplicateNameIsValidation(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /categories", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusBadRequest, `{"detail": "A category with this name already exists."}`)
	})

	_, err := newLibraryClient(t, mux).CreateCategory(context.Background(), cred, "Marketing")
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
	assert.Contains(t, err.Error(), "already exists")
}

func TestLibraryClient_ListPromptsSendsFilter(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /prompts", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "mail", q.Get("search"))
		assert.Equal(t, "1", q.Get("category_id"))
		assert.Equal(t, "vente", q.Get("tag"))
		assert.Equal(t, "created_at", q.Get("sort"))
		assert.False(t, q.Has("langue"))

		writeJSON(w, http.StatusOK, `[{
			"id": 5, "title": "Relance", "description": null,
			"modele_cible": "gpt-4o", "langue": "fr",
			"category": {"id": 1, "name": "Marketing"},
			"subcategory": null,
			"tags": [{"id": 2, "name": "vente"}],
			"created_at": "2024-03-01T10:00:00.123456",
			"updated_at": "2024-03-02T10:00:00"
		}]`)
	})

	summaries, err := newLibraryClient(t, mux).ListPrompts(context.Background(), cred, domain.PromptFilter{
		Search:     "mail",
		CategoryID: "1",
		Tag:        "vente",
		Sort:       domain.SortCreatedAt,
	})
	require.NoError(t, err)

	require.Len(t, summaries, 1)
	s := summaries[0]
	assert.Equal(t, "5", s.ID)
	assert.Equal(t, "Relance", s.Title)
	assert.Empty(t, s.Description)
	assert.Equal(t, []string{"vente"}, s.Tags)
	require.NotNil(t, s.Category)
	assert.Equal(t, "Marketing", s.Category.Name)
	assert.Nil(t, s.Subcategory)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 123456000, time.UTC), s.CreatedAt)
}

func TestLibraryClient_GetPrompt(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /prompts/5", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{
			"id": 5, "title": "Relance", "contexte": "Client B2B", "resultat": "Un email",
			"category": {"id": 1, "name": "Marketing"},
			"subcategory": {"id": 7, "name": "Emailing", "category_id": 1},
			"tags": ["vente", "email"],
			"created_at": "2024-03-01T10:00:00Z",
			"updated_at": "2024-03-01T10:00:00Z"
		}`)
	})
	mux.HandleFunc("GET /prompts/404", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, `{"detail": "Prompt not found"}`)
	})

	lib := newLibraryClient(t, mux)

	p, err := lib.GetPrompt(context.Background(), cred, "5")
	require.NoError(t, err)
	assert.Equal(t, "Client B2B", p.Contexte)
	assert.Equal(t, "Un email", p.Resultat)
	assert.Equal(t, "1", p.CategoryID)
	assert.Equal(t, "7", p.SubcategoryID)
	assert.Equal(t, "Emailing", p.Subcategory.Name)
	assert.Equal(t, []string{"vente", "email"}, p.Tags)

	_, err = lib.GetPrompt(context.Background(), cred, "404")
	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err))
}

func TestLibraryClient_CreatePrompt(t *testing.T) {
	var got map[string]any

	mux := http.NewServeMux()
	mux.HandleFunc("POST /prompts", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusCreated, `{"id": 11, "title": "Demo", "tags": [],
			"created_at": "2024-03-01T10:00:00Z", "updated_at": "2024-03-01T10:00:00Z"}`)
	})

	p, err := newLibraryClient(t, mux).CreatePrompt(context.Background(), cred, &domain.StructuredPrompt{
		Title:      "Demo",
		Contexte:   "A",
		CategoryID: "4",
		Tags:       []string{" x ", "x", ""},
	})
	require.NoError(t, err)
	assert.Equal(t, "11", p.ID)

	assert.Equal(t, "Demo", got["title"])
	assert.Equal(t, "A", got["contexte"])
	assert.InDelta(t, 4, got["category_id"], 0)
	assert.NotContains(t, got, "subcategory_id")
	assert.NotContains(t, got, "role")
	assert.Equal(t, []any{"x"}, got["tags"])
}

func TestLibraryClient_InvalidResponseIsUnavailable(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /tags", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `[{"name": "no id"}]`)
	})
	mux.HandleFunc("GET /prompts/1", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `not json`)
	})

	lib := newLibraryClient(t, mux)

	_, err := lib.ListTags(context.Background(), cred)
	assert.True(t, domain.IsUnavailable(err))

	_, err = lib.GetPrompt(context.Background(), cred, "1")
	assert.True(t, domain.IsUnavailable(err))
}

func TestLibraryClient_ServerErrorIsUnavailable(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /tags", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := newLibraryClient(t, mux).ListTags(context.Background(), cred)
	require.Error(t, err)
	assert.True(t, domain.IsUnavailable(err))
}
