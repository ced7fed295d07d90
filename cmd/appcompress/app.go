// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"

	"github.com/apporo/app-compression/internal/config"
	"github.com/apporo/app-compression/internal/fetch"
	"github.com/apporo/app-compression/pkg/compression"
)

type (
	// App wires CLI services and shared dependencies. All Cobra command
	// handlers receive an App reference.
	App struct {
		Config config.Provider
		stdout io.Writer
		stderr io.Writer

		// httpClient overrides the client built from configuration.
		httpClient *http.Client
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config     config.Provider
		Stdout     io.Writer
		Stderr     io.Writer
		HTTPClient *http.Client
	}

	// globalFlags are the persistent root flags.
	globalFlags struct {
		verbose bool
		cfgFile string
	}
)

// NewApp builds an App from deps.
func NewApp(deps Dependencies) *App {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	return &App{
		Config:     deps.Config,
		stdout:     deps.Stdout,
		stderr:     deps.Stderr,
		httpClient: deps.HTTPClient,
	}
}

// loadConfig loads configuration honoring the --config flag. source is the
// file that was read, "" when none was.
func (a *App) loadConfig(ctx context.Context, flags *globalFlags) (cfg *config.Config, source string, err error) {
	return a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: flags.cfgFile})
}

// newLogger returns the CLI logger writing to stderr.
func (a *App) newLogger(flags *globalFlags) *log.Logger {
	level := log.InfoLevel
	if flags.verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(a.stderr, log.Options{
		Prefix:          config.AppName,
		Level:           level,
		ReportTimestamp: true,
	})
}

// newHelper builds the compression helper described by cfg.
func (a *App) newHelper(cfg *config.Config, logger *log.Logger) (*compression.Helper, error) {
	catalog, err := cfg.Catalog()
	if err != nil {
		return nil, err
	}
	client := a.httpClient
	if client == nil {
		client = &http.Client{Timeout: cfg.HTTP.Timeout}
	}
	fetcher := fetch.New(
		fetch.WithHTTPClient(client),
		fetch.WithUserAgent(cfg.HTTP.UserAgent),
		fetch.WithCatalog(catalog),
		fetch.WithLogger(logger),
	)
	return compression.New(
		compression.WithLogger(logger),
		compression.WithCatalog(catalog),
		compression.WithFetcher(fetcher),
	), nil
}
