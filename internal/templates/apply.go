package templates

import (
	"slices"

	"github.com/jsamuelsen/promptlib/internal/domain"
)

// Apply merges tpl into record and returns the result. record is not modified.
//
// The merge is field by field: a value defined by the template replaces the
// record's value, and a field the template leaves unset keeps whatever the
// record had. Category and subcategory are never touched.
func Apply(record *domain.StructuredPrompt, tpl Template) domain.StructuredPrompt {
	out := record.Clone()
	v := &tpl.Values

	out.Title = pick(v.Title, out.Title)
	out.Description = pick(v.Description, out.Description)

	for _, f := range domain.FrameworkFields() {
		out.SetField(f.Key, pick(v.Field(f.Key), out.Field(f.Key)))
	}

	out.ModeleCible = pick(v.ModeleCible, out.ModeleCible)
	out.Langue = pick(v.Langue, out.Langue)

	if len(v.Tags) > 0 {
		out.Tags = slices.Clone(v.Tags)
	}

	return out
}

func pick(templateValue, current string) string {
	if templateValue != "" {
		return templateValue
	}

	return current
}
