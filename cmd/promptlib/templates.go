package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jsamuelsen/promptlib/internal/app"
)

func newTemplatesCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "Browse the built-in template catalog",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List template labels and titles",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "LABEL\tTITLE")

				for _, t := range app.NewPreviewService(opts.logger, nil).Templates() {
					fmt.Fprintf(tw, "%s\t%s\n", t.Label, t.Values.Title)
				}

				return tw.Flush()
			},
		},
		&cobra.Command{
			Use:   "show <label>",
			Short: "Print a template's preview",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				view, err := app.NewPreviewService(opts.logger, nil).Template(cmd.Context(), args[0])
				if err != nil {
					return err
				}

				_, err = fmt.Fprintln(cmd.OutOrStdout(), view.Preview.Markdown)

				return err
			},
		},
	)

	return cmd
}
