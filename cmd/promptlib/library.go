package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jsamuelsen/promptlib/internal/interchange"
)

func newExportCmd(opts *options) *cobra.Command {
	var out, format string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the whole library as an interchange document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := interchange.ParseFormat(format)
			if err != nil {
				return err
			}

			svc, err := opts.libraryService()
			if err != nil {
				return err
			}

			doc, err := svc.Export(cmd.Context(), opts.credential())
			if err != nil {
				return err
			}

			if out == "" || out == "-" {
				return interchange.Encode(cmd.OutOrStdout(), doc, f)
			}

			file, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("creating %s: %w", out, err)
			}

			if err := encodeAndClose(file, doc, f); err != nil {
				return fmt.Errorf("writing %s: %w", out, err)
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "exported %d prompts to %s\n", len(doc.Prompts), out)

			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default: stdout)")
	cmd.Flags().StringVarP(&format, "format", "f", "json", "json or yaml")

	return cmd
}

// encodeAndClose writes doc to wc and closes it. A failed close means the
// document may not have reached the file and is reported.
func encodeAndClose(wc io.WriteCloser, doc *interchange.Document, f interchange.Format) error {
	if err := interchange.Encode(wc, doc, f); err != nil {
		_ = wc.Close()

		return err
	}

	return wc.Close()
}

func newImportCmd(opts *options) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import an interchange document into the library",
		Long: `Import adds every prompt of the document to the library. Categories,
subcategories and tags are matched by exact name and created only when
missing; prompts are always created, so importing twice duplicates them.

Records without a title, or with a subcategory but no category, are skipped.
A failure part-way leaves what was already written.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := fileFormat(args[0], format)
			if err != nil {
				return err
			}

			file, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening document: %w", err)
			}
			defer file.Close()

			doc, err := interchange.Decode(file, f)
			if err != nil {
				return err
			}

			svc, err := opts.libraryService()
			if err != nil {
				return err
			}

			res, err := svc.Import(cmd.Context(), opts.credential(), doc)
			fmt.Fprintf(cmd.OutOrStdout(), "created %d, skipped %d\n", res.Created, res.Skipped)

			return err
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "json or yaml (default: from the file extension)")

	return cmd
}

func fileFormat(path, flag string) (interchange.Format, error) {
	if flag != "" {
		return interchange.ParseFormat(flag)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return interchange.FormatYAML, nil
	default:
		return interchange.FormatJSON, nil
	}
}
