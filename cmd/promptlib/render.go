package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jsamuelsen/promptlib/internal/app"
	"github.com/jsamuelsen/promptlib/internal/domain"
	"github.com/jsamuelsen/promptlib/internal/interchange"
)

func newRenderCmd(opts *options) *cobra.Command {
	var template string

	cmd := &cobra.Command{
		Use:   "render <file>",
		Short: "Print the Markdown preview of a prompt file",
		Long: `Render reads one prompt in YAML or JSON, using the same field names as
an exported library record, and prints its Markdown preview.

With --template the named catalog template is merged in first: every field
the template defines replaces the file's value.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt, err := readPromptFile(args[0])
			if err != nil {
				return err
			}

			svc := app.NewPreviewService(opts.logger, nil)

			out := svc.Render(cmd.Context(), &prompt)
			if template != "" {
				if _, out, err = svc.ApplyTemplate(cmd.Context(), template, &prompt); err != nil {
					return err
				}
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), out.Markdown)

			return err
		},
	}

	cmd.Flags().StringVarP(&template, "template", "t", "", "apply a catalog template before rendering")

	return cmd
}

// readPromptFile decodes a prompt record. YAML is a superset of JSON so one
// decoder handles both.
func readPromptFile(path string) (domain.StructuredPrompt, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.StructuredPrompt{}, fmt.Errorf("reading prompt: %w", err)
	}

	var rec interchange.PromptRecord
	if err := yaml.Unmarshal(raw, &rec); err != nil {
		return domain.StructuredPrompt{}, fmt.Errorf("parsing %s: %w", path, err)
	}

	return rec.Body(), nil
}
