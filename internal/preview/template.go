package preview

import (
	"github.com/jsamuelsen/promptlib/internal/domain"
	"github.com/jsamuelsen/promptlib/internal/templates"
)

// RenderTemplate renders the catalog template with the given label as it
// would look when applied to a blank record.
func RenderTemplate(label string) (string, error) {
	tpl, err := templates.Get(label)
	if err != nil {
		return "", err
	}

	var blank domain.StructuredPrompt
	merged := templates.Apply(&blank, tpl)

	return Render(&merged), nil
}
