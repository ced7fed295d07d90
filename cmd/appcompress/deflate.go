// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/apporo/app-compression/internal/issue"
	"github.com/apporo/app-compression/pkg/archive"
	"github.com/apporo/app-compression/pkg/compression"
	"github.com/apporo/app-compression/pkg/naming"
	"github.com/apporo/app-compression/pkg/resource"
)

// stdoutPath selects standard output as the archive destination.
const stdoutPath = "-"

type (
	// jobFlags are the job option overrides shared by deflate.
	jobFlags struct {
		format      string
		level       int
		stopOnError bool
		skipOnError bool
		letterCase  string
		locale      string
		lang        string
	}

	deflateFlags struct {
		jobFlags
		manifest string
		output   string
		json     bool
	}

	// nopCloser keeps standard output open after the job closes its sink.
	nopCloser struct {
		io.Writer
	}
)

func (nopCloser) Close() error { return nil }

func newDeflateCommand(app *App, global *globalFlags) *cobra.Command {
	f := &deflateFlags{}

	cmd := &cobra.Command{
		Use:   "deflate",
		Short: "Build an archive from a resource manifest",
		Long: `Build an archive from a resource manifest.

The manifest lists resources in archive order. YAML, JSON (comments allowed)
and CUE manifests are accepted:

  resources:
    - type: file
      source: ./README.md
    - type: directory
      source: ./assets
      target: static
    - type: http
      source: https://example.com/logo
      target: logo

Failed HTTP resources become empty placeholder entries unless
--skip-on-error or --stop-on-error is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDeflate(cmd, app, global, f)
		},
	}

	cmd.Flags().StringVarP(&f.manifest, "manifest", "m", "", "resource manifest (.yaml, .json, .jsonc or .cue)")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", `archive destination ("-" for stdout)`)
	cmd.Flags().BoolVar(&f.json, "json", false, "print the job outcome as JSON")
	addJobFlags(cmd.Flags(), &f.jobFlags)
	_ = cmd.MarkFlagRequired("manifest")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func addJobFlags(fs *pflag.FlagSet, f *jobFlags) {
	fs.StringVar(&f.format, "format", "", "archive format: zip, tar, tar.gz, tar.zst, tar.lz4")
	fs.IntVar(&f.level, "level", archive.DefaultLevel, "compression level 0-9 (0 stores)")
	fs.BoolVar(&f.stopOnError, "stop-on-error", false, "fail on the first resource that cannot be fetched")
	fs.BoolVar(&f.skipOnError, "skip-on-error", false, "drop resources that cannot be fetched")
	fs.StringVar(&f.letterCase, "letter-case", "", "entry name case: lower, upper, ignore")
	fs.StringVar(&f.locale, "locale", "", "locale used for entry name case mapping")
	fs.StringVar(&f.lang, "lang", "", "language of error messages")
}

// apply overrides opts with the flags the user actually set.
func (f *jobFlags) apply(fs *pflag.FlagSet, opts compression.Options) compression.Options {
	if fs.Changed("format") {
		opts.Format = archive.Format(f.format)
	}
	if fs.Changed("level") {
		opts.CompressionLevel = compression.UserLevel(f.level)
	}
	if fs.Changed("stop-on-error") {
		opts.StopOnError = f.stopOnError
	}
	if fs.Changed("skip-on-error") {
		opts.SkipOnError = f.skipOnError
	}
	if fs.Changed("letter-case") {
		opts.LetterCase = naming.LetterCase(f.letterCase)
	}
	if fs.Changed("locale") {
		opts.Locale = f.locale
	}
	if fs.Changed("lang") {
		opts.Language = f.lang
	}
	return opts
}

func runDeflate(cmd *cobra.Command, app *App, global *globalFlags, f *deflateFlags) error {
	ctx := cmd.Context()

	cfg, _, err := app.loadConfig(ctx, global)
	if err != nil {
		return &ExitError{Code: ExitUsage, Err: err}
	}
	logger := app.newLogger(global)
	helper, err := app.newHelper(cfg, logger)
	if err != nil {
		return &ExitError{Code: ExitUsage, Err: err}
	}

	opts := f.apply(cmd.Flags(), cfg.JobOptions())
	if validateErr := opts.Validate(); validateErr != nil {
		return helper.Catalog().Wrap(issue.InvalidJobOptions, issue.Payload{Language: opts.Language}, validateErr)
	}

	manifest, err := resource.LoadManifest(f.manifest)
	if err != nil {
		return &ExitError{Code: ExitUsage, Err: err}
	}

	sink, report, err := openOutput(app, f.output)
	if err != nil {
		return &ExitError{Code: ExitUsage, Err: err}
	}

	outcome, err := helper.Deflate(ctx, compression.Args{Resources: manifest.Resources, Writer: sink}, opts)
	if err != nil {
		if f.output != stdoutPath {
			_ = os.Remove(f.output)
		}
		return err
	}

	if f.json {
		enc := json.NewEncoder(report)
		enc.SetIndent("", "  ")
		return enc.Encode(outcome)
	}
	printOutcome(report, f.output, outcome)
	return nil
}

// openOutput returns the archive sink and the writer for the human report.
// When the archive goes to stdout the report goes to stderr.
func openOutput(app *App, path string) (io.WriteCloser, io.Writer, error) {
	if path == stdoutPath {
		return nopCloser{Writer: app.stdout}, app.stderr, nil
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, nil, issue.NewErrorContext().
			WithOperation("create archive").
			WithResource(path).
			WithSuggestion("Check that the parent directory exists and is writable").
			Wrap(err).
			BuildError()
	}
	return file, app.stdout, nil
}

func printOutcome(w io.Writer, output string, o *compression.Outcome) {
	fmt.Fprintf(w, "%s Archive written: %s (%s)\n", SuccessStyle.Render("✓"), output, o.Format)
	fmt.Fprintf(w, "  %s %d\n", CmdStyle.Render("entries:"), o.Entries)
	fmt.Fprintf(w, "  %s %d\n", CmdStyle.Render("bytes:  "), o.Bytes)
	fmt.Fprintf(w, "  %s %s\n", CmdStyle.Render("digest: "), o.Digest)
	if len(o.Results) == 0 {
		return
	}
	fmt.Fprintln(w)
	for _, r := range o.Results {
		status := SuccessStyle.Render(fmt.Sprintf("%-11s", r.Status))
		if r.Status != compression.StatusArchived {
			status = WarningStyle.Render(fmt.Sprintf("%-11s", r.Status))
		}
		entry := r.Entry
		if entry == "" {
			entry = "."
		}
		line := fmt.Sprintf("  %s %s %s", status, entry, SubtitleStyle.Render(r.Kind.String()+":"+r.Source))
		if r.Cause != "" {
			line += " " + SubtitleStyle.Render("("+r.Cause+")")
		}
		fmt.Fprintln(w, line)
	}
}
