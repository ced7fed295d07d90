// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/apporo/app-compression/internal/config"
)

func newConfigCommand(app *App, global *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect appcompress configuration",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Show the effective configuration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, source, err := app.loadConfig(cmd.Context(), global)
				if err != nil {
					fmt.Fprintln(app.stderr, formatErrorForDisplay(err, global.verbose))
					return &ExitError{Code: ExitUsage, Err: err}
				}
				printConfig(app.stdout, cfg, source)
				return nil
			},
		},
		&cobra.Command{
			Use:   "dump",
			Short: "Print the effective configuration as CUE",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, _, err := app.loadConfig(cmd.Context(), global)
				if err != nil {
					return &ExitError{Code: ExitUsage, Err: err}
				}
				_, err = fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
				return err
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the default configuration file path",
			Args:  cobra.NoArgs,
			RunE: func(_ *cobra.Command, _ []string) error {
				dir, err := config.ConfigDir()
				if err != nil {
					return err
				}
				fmt.Fprintln(app.stdout, config.FilePath(dir))
				return nil
			},
		},
	)

	return cmd
}

func printConfig(w io.Writer, cfg *config.Config, source string) {
	if source == "" {
		source = SubtitleStyle.Render("(defaults and environment)")
	}
	fmt.Fprintln(w, TitleStyle.Render("Configuration"))
	fmt.Fprintf(w, "  %s %s\n\n", CmdStyle.Render("source:"), source)

	rows := []struct {
		key   string
		value any
	}{
		{"compression_level", cfg.CompressionLevel},
		{"stop_on_error", cfg.StopOnError},
		{"skip_on_error", cfg.SkipOnError},
		{"letter_case", cfg.LetterCase},
		{"locale", cfg.Locale},
		{"format", cfg.Format},
		{"language", cfg.Language},
		{"http.timeout", cfg.HTTP.Timeout},
		{"http.user_agent", cfg.HTTP.UserAgent},
	}
	for _, r := range rows {
		fmt.Fprintf(w, "  %s %v\n", CmdStyle.Render(fmt.Sprintf("%-18s", r.key+":")), r.value)
	}
	for _, name := range slices.Sorted(maps.Keys(cfg.ErrorCodes)) {
		ec := cfg.ErrorCodes[name]
		fmt.Fprintf(w, "  %s message=%q status=%d return=%d\n",
			WarningStyle.Render("error_codes."+name+":"), ec.Message, ec.StatusCode, ec.ReturnCode)
	}
}
