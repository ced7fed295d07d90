// SPDX-License-Identifier: MPL-2.0

package config

import "context"

type (
	// LoadOptions defines explicit configuration loading inputs.
	LoadOptions struct {
		// ConfigFilePath forces loading from a specific config file when set.
		ConfigFilePath string
		// ConfigDirPath overrides the config directory lookup when set.
		ConfigDirPath string
		// BaseDir is searched for config.cue after the config directory.
		// Defaults to the current directory.
		BaseDir string
	}

	// Provider loads configuration from explicit options. Load also reports
	// the file the configuration came from; it is "" when only defaults and
	// environment overrides apply.
	Provider interface {
		Load(ctx context.Context, opts LoadOptions) (cfg *Config, source string, err error)
	}

	// fileProvider reads CUE files from disk.
	fileProvider struct{}
)

// NewProvider creates a provider reading config.cue files.
func NewProvider() Provider {
	return fileProvider{}
}

func (fileProvider) Load(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	return loadWithOptions(ctx, opts)
}
