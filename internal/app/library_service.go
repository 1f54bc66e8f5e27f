// Package app contains application services that orchestrate use cases.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/promptlib/internal/domain"
	"github.com/jsamuelsen/promptlib/internal/interchange"
	"github.com/jsamuelsen/promptlib/internal/ports"
)

const (
	instrumentationName = "github.com/jsamuelsen/promptlib/internal/app"

	// DefaultExportConcurrency bounds in-flight prompt fetches during export.
	DefaultExportConcurrency = 4
)

// ImportResult is the only feedback an import gives: aggregate counts.
type ImportResult struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}

// LibraryServiceConfig contains the dependencies of LibraryService.
type LibraryServiceConfig struct {
	Library ports.Library
	Logger  *slog.Logger
	Metrics *Metrics

	// ExportConcurrency bounds prompt detail fetches. Defaults to DefaultExportConcurrency.
	ExportConcurrency int

	// Clock stamps exported documents. Defaults to time.Now.
	Clock func() time.Time
}

// LibraryService exports and imports whole libraries through the library
// collaborator.
//
// Export is a best-effort read: the collaborator gives no snapshot isolation,
// so a library modified during export may yield a document mixing states.
// Import writes strictly sequentially and never rolls back.
type LibraryService struct {
	library     ports.Library
	logger      *slog.Logger
	metrics     *Metrics
	concurrency int
	now         func() time.Time
	tracer      trace.Tracer
}

// NewLibraryService creates a library service. It panics if no library is given.
func NewLibraryService(cfg LibraryServiceConfig) *LibraryService {
	if cfg.Library == nil {
		panic("app: LibraryServiceConfig.Library is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	concurrency := cfg.ExportConcurrency
	if concurrency < 1 {
		concurrency = DefaultExportConcurrency
	}

	now := cfg.Clock
	if now == nil {
		now = time.Now
	}

	return &LibraryService{
		library:     cfg.Library,
		logger:      logger.With(slog.String("component", "app.LibraryService")),
		metrics:     cfg.Metrics,
		concurrency: concurrency,
		now:         now,
		tracer:      otel.Tracer(instrumentationName),
	}
}

type librarySnapshot struct {
	categories []domain.Category
	tags       []domain.Tag
	prompts    []domain.Prompt
}

// Export reads the whole library and flattens it into a portable document.
func (s *LibraryService) Export(ctx context.Context, cred domain.Credential) (*interchange.Document, error) {
	ctx, span := s.tracer.Start(ctx, "LibraryService.Export")
	defer span.End()

	op := Operation[domain.Credential, *librarySnapshot, *interchange.Document]{
		Name:    "library.export",
		Perform: s.readSnapshot,
		Respond: func(ctx context.Context, _ domain.Credential, snap *librarySnapshot) (*interchange.Document, error) {
			doc := interchange.Build(s.now(), snap.categories, snap.tags, snap.prompts)
			s.metrics.recordExport(len(doc.Prompts))

			s.logger.InfoContext(ctx, "library exported",
				slog.Int("categories", len(doc.Categories)),
				slog.Int("subcategories", len(doc.Subcategories)),
				slog.Int("tags", len(doc.Tags)),
				slog.Int("prompts", len(doc.Prompts)),
			)

			return doc, nil
		},
	}

	doc, err := Execute(ctx, op, cred)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return nil, err
	}

	span.SetAttributes(attribute.Int("export.prompts", len(doc.Prompts)))

	return doc, nil
}

func (s *LibraryService) readSnapshot(ctx context.Context, cred domain.Credential) (*librarySnapshot, error) {
	cats, tags, summaries, err := Parallel3(ctx,
		func(ctx context.Context) ([]domain.Category, error) {
			return s.library.ListCategories(ctx, cred)
		},
		func(ctx context.Context) ([]domain.Tag, error) {
			return s.library.ListTags(ctx, cred)
		},
		func(ctx context.Context) ([]domain.PromptSummary, error) {
			return s.library.ListPrompts(ctx, cred, domain.PromptFilter{Sort: domain.SortCreatedAt})
		},
	)
	if err != nil {
		return nil, fmt.Errorf("reading library: %w", err)
	}

	prompts, err := MapLimit(ctx, s.concurrency, summaries,
		func(ctx context.Context, sum domain.PromptSummary) (domain.Prompt, error) {
			p, err := s.library.GetPrompt(ctx, cred, sum.ID)
			if err != nil {
				return domain.Prompt{}, fmt.Errorf("fetching prompt %s: %w", sum.ID, err)
			}

			return *p, nil
		},
	)
	if err != nil {
		return nil, err
	}

	resolveReferences(prompts, cats)

	return &librarySnapshot{categories: cats, tags: tags, prompts: prompts}, nil
}

// resolveReferences fills category and subcategory names on prompts whose
// collaborator response carried only IDs.
func resolveReferences(prompts []domain.Prompt, cats []domain.Category) {
	byID := make(map[string]*domain.Category, len(cats))
	subByID := make(map[string]*domain.Subcategory)

	for i := range cats {
		byID[cats[i].ID] = &cats[i]
		for j := range cats[i].Subcategories {
			subByID[cats[i].Subcategories[j].ID] = &cats[i].Subcategories[j]
		}
	}

	for i := range prompts {
		p := &prompts[i]

		if p.Category == nil && p.CategoryID != "" {
			if c, ok := byID[p.CategoryID]; ok {
				p.Category = &domain.Category{ID: c.ID, Name: c.Name}
			}
		}

		if p.Subcategory == nil && p.SubcategoryID != "" {
			if sc, ok := subByID[p.SubcategoryID]; ok {
				cp := *sc
				p.Subcategory = &cp
			}
		}
	}
}

// Import recreates the prompts of doc in the library.
//
// Records are processed in document order. For each record the category,
// its subcategory and the tags are resolved by exact name or created, then
// the prompt is always created as a new record. Records with an empty title
// or a subcategory without a category are skipped, as are records the
// library rejects as invalid or inconsistent. After the prompt pass the
// document's own taxonomy lists are resolved the same way so unused entries
// are carried over too.
//
// A collaborator failure aborts the import. Writes already made are kept and
// the counts reached so far are returned alongside the error.
func (s *LibraryService) Import(ctx context.Context, cred domain.Credential, doc *interchange.Document) (ImportResult, error) {
	ctx, span := s.tracer.Start(ctx, "LibraryService.Import")
	defer span.End()

	var progress ImportResult

	op := Operation[*interchange.Document, ImportResult, ImportResult]{
		Name: "library.import",
		Validate: func(_ context.Context, doc *interchange.Document) error {
			if doc == nil {
				return domain.NewMalformedDocumentError("document is empty")
			}

			return nil
		},
		Perform: func(ctx context.Context, doc *interchange.Document) (ImportResult, error) {
			err := s.importDocument(ctx, cred, doc, &progress)

			return progress, err
		},
		Respond: func(ctx context.Context, _ *interchange.Document, res ImportResult) (ImportResult, error) {
			s.logger.InfoContext(ctx, "library imported",
				slog.Int("created", res.Created),
				slog.Int("skipped", res.Skipped),
			)

			return res, nil
		},
	}

	res, err := Execute(ctx, op, doc)
	s.metrics.recordImport(progress, err)

	span.SetAttributes(
		attribute.Int("import.created", progress.Created),
		attribute.Int("import.skipped", progress.Skipped),
	)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return progress, err
	}

	return res, nil
}

func (s *LibraryService) importDocument(
	ctx context.Context,
	cred domain.Credential,
	doc *interchange.Document,
	progress *ImportResult,
) error {
	idx, err := loadTaxonomyIndex(ctx, s.library, cred)
	if err != nil {
		return err
	}

	for i := range doc.Prompts {
		created, err := s.importRecord(ctx, cred, idx, &doc.Prompts[i])
		if err != nil {
			return fmt.Errorf("importing prompt %d: %w", i, err)
		}

		if created {
			progress.Created++
		} else {
			progress.Skipped++
		}
	}

	return s.importTaxonomy(ctx, idx, doc)
}

// importRecord returns false when the record is skipped.
func (s *LibraryService) importRecord(
	ctx context.Context,
	cred domain.Credential,
	idx *taxonomyIndex,
	rec *interchange.PromptRecord,
) (bool, error) {
	body := rec.Body()

	if err := body.Validate(); err != nil {
		s.logger.DebugContext(ctx, "skipping prompt record", slog.Any("reason", err))

		return false, nil
	}

	hasCategory := strings.TrimSpace(rec.Category) != ""
	hasSubcategory := strings.TrimSpace(rec.Subcategory) != ""

	if hasSubcategory && !hasCategory {
		s.logger.DebugContext(ctx, "skipping prompt record",
			slog.Any("reason", domain.NewInconsistencyError("prompt", "subcategory without category")),
			slog.String("title", rec.Title),
		)

		return false, nil
	}

	if hasCategory {
		catID, err := idx.category(ctx, rec.Category)
		if err != nil {
			return false, err
		}

		body.CategoryID = catID

		if hasSubcategory {
			subID, err := idx.subcategory(ctx, catID, rec.Subcategory)
			if err != nil {
				return false, err
			}

			body.SubcategoryID = subID
		}
	}

	for _, name := range body.Tags {
		if _, err := idx.tag(ctx, name); err != nil {
			return false, err
		}
	}

	if _, err := s.library.CreatePrompt(ctx, cred, &body); err != nil {
		// The collaborator rejected this record alone; the rest can still go in.
		if domain.IsInconsistent(err) || domain.IsValidation(err) {
			s.logger.DebugContext(ctx, "skipping prompt record",
				slog.Any("reason", err),
				slog.String("title", rec.Title),
			)

			return false, nil
		}

		return false, fmt.Errorf("creating prompt %q: %w", body.Title, err)
	}

	return true, nil
}

// importTaxonomy resolves the document's taxonomy lists after the prompt pass.
// Entries with blank names, and subcategories without an owning category,
// cannot be created and are ignored.
func (s *LibraryService) importTaxonomy(ctx context.Context, idx *taxonomyIndex, doc *interchange.Document) error {
	for _, c := range doc.Categories {
		if strings.TrimSpace(c.Name) == "" {
			continue
		}

		if _, err := idx.category(ctx, c.Name); err != nil {
			return err
		}
	}

	for _, sc := range doc.Subcategories {
		if strings.TrimSpace(sc.Name) == "" || sc.Category == nil || strings.TrimSpace(*sc.Category) == "" {
			continue
		}

		catID, err := idx.category(ctx, *sc.Category)
		if err != nil {
			return err
		}

		if _, err := idx.subcategory(ctx, catID, sc.Name); err != nil {
			return err
		}
	}

	for _, name := range domain.NormalizeTags(doc.Tags) {
		if _, err := idx.tag(ctx, name); err != nil {
			return err
		}
	}

	s.logger.DebugContext(ctx, "taxonomy resolved", slog.Int("created_entries", idx.created))

	return nil
}
