// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/apporo/app-compression/internal/issue"
)

// DefaultCodesStyle is the glamour style used by the codes command.
const DefaultCodesStyle = "dark"

func newCodesCommand(app *App, global *globalFlags) *cobra.Command {
	var (
		lang  string
		style string
		raw   bool
	)

	cmd := &cobra.Command{
		Use:   "codes",
		Short: "List the error codes a job can return",
		Long: `List the error codes a job can return.

Overrides from the error_codes section of the configuration are applied.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := app.loadConfig(cmd.Context(), global)
			if err != nil {
				return &ExitError{Code: ExitUsage, Err: err}
			}
			catalog, err := cfg.Catalog()
			if err != nil {
				return &ExitError{Code: ExitUsage, Err: err}
			}
			if !cmd.Flags().Changed("lang") {
				lang = cfg.Language
			}

			if raw {
				_, err = fmt.Fprint(app.stdout, catalog.Markdown(lang))
				return err
			}
			out, err := catalog.Render(lang, style)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(app.stdout, out)
			return err
		},
	}

	cmd.Flags().StringVar(&lang, "lang", issue.DefaultLanguage, "message language")
	cmd.Flags().StringVar(&style, "style", DefaultCodesStyle, "glamour style (dark, light, notty, ...)")
	cmd.Flags().BoolVar(&raw, "raw", false, "print markdown without rendering")

	return cmd
}
