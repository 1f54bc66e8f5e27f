// Package preview renders structured prompts into markdown text.
//
// Rendering is pure and allocation-light so it can run on every keystroke.
package preview

import (
	"strings"

	"github.com/jsamuelsen/promptlib/internal/domain"
)

// UntitledHeading replaces an empty title in the rendered output.
const UntitledHeading = "Sans titre"

// Section is one rendered framework field.
type Section struct {
	Key     domain.FieldKey `json:"key"`
	Label   string          `json:"label"`
	Content string          `json:"content"`
}

// isBlank treats whitespace-only content as empty. Non-blank content is
// emitted verbatim.
func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// Sections returns the non-blank framework fields of p in declaration order.
func Sections(p *domain.StructuredPrompt) []Section {
	fields := domain.FrameworkFields()
	out := make([]Section, 0, len(fields))

	for _, f := range fields {
		content := p.Field(f.Key)
		if isBlank(content) {
			continue
		}

		out = append(out, Section{Key: f.Key, Label: f.Label, Content: content})
	}

	return out
}

// Render converts p into its canonical markdown preview.
//
// The title heading always comes first. The description and each non-empty
// framework field follow, separated by exactly one blank line. The result is
// trimmed of surrounding whitespace. p is never modified.
func Render(p *domain.StructuredPrompt) string {
	title := p.Title
	if isBlank(title) {
		title = UntitledHeading
	}

	sections := Sections(p)
	blocks := make([]string, 0, len(sections)+2)
	blocks = append(blocks, "# "+title)

	if !isBlank(p.Description) {
		blocks = append(blocks, "## Description\n"+p.Description)
	}

	for _, s := range sections {
		blocks = append(blocks, "### "+s.Label+"\n"+s.Content)
	}

	return strings.TrimSpace(strings.Join(blocks, "\n\n"))
}
