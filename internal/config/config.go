// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/spf13/viper"

	"github.com/apporo/app-compression/internal/issue"
	"github.com/apporo/app-compression/pkg/cueutil"
)

const (
	// AppName is the application name.
	AppName = "appcompress"
	// EnvPrefix prefixes environment overrides (APPCOMPRESS_FORMAT=tar.gz).
	EnvPrefix = "APPCOMPRESS"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
)

//go:embed config_schema.cue
var configSchema []byte

// ConfigDir returns the appcompress configuration directory using platform-specific
// conventions: Windows uses %APPDATA%, macOS uses ~/Library/Application Support,
// and Linux/others use $XDG_CONFIG_HOME (defaulting to ~/.config).
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default: // Linux and others
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// FilePath returns the config file path inside dir.
func FilePath(dir string) string {
	return filepath.Join(dir, ConfigFileName+"."+ConfigFileExt)
}

// loadWithOptions performs option-driven config loading and returns the
// resolved file path ("" when only defaults and environment apply).
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("compression_level", defaults.CompressionLevel)
	v.SetDefault("stop_on_error", defaults.StopOnError)
	v.SetDefault("skip_on_error", defaults.SkipOnError)
	v.SetDefault("letter_case", string(defaults.LetterCase))
	v.SetDefault("locale", defaults.Locale)
	v.SetDefault("format", string(defaults.Format))
	v.SetDefault("language", defaults.Language)
	v.SetDefault("http.timeout", defaults.HTTP.Timeout)
	v.SetDefault("http.user_agent", defaults.HTTP.UserAgent)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	resolvedPath, err := resolveConfigPath(opts)
	if err != nil {
		return nil, "", err
	}
	if resolvedPath != "" {
		if err := loadCUEIntoViper(v, resolvedPath); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(resolvedPath).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the configuration values match the expected schema").
				WithSuggestion("Use 'appcompress config show' to see the effective configuration").
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(describeSource(resolvedPath)).
			WithSuggestion("Check " + EnvPrefix + "_* environment variables for typos").
			WithSuggestion("Valid formats: zip, tar, tar.gz, tar.zst, tar.lz4; valid letter cases: lower, upper, ignore").
			Wrap(err).
			BuildError()
	}

	return &cfg, resolvedPath, nil
}

// resolveConfigPath applies the lookup order: explicit file, config
// directory, current directory. A missing explicit file is an error; the
// other locations are optional.
func resolveConfigPath(opts LoadOptions) (string, error) {
	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Check that the file exists and is readable").
				WithSuggestion("Use 'appcompress config show' to see default configuration").
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		return opts.ConfigFilePath, nil
	}

	cfgDir := opts.ConfigDirPath
	if cfgDir == "" {
		dir, err := ConfigDir()
		if err != nil {
			return "", err
		}
		cfgDir = dir
	}

	for _, candidate := range []string{FilePath(cfgDir), FilePath(opts.BaseDir)} {
		if fileExists(candidate) {
			return candidate, nil
		}
	}
	return "", nil
}

// loadCUEIntoViper parses a CUE file, validates it against the #Config schema,
// and merges its contents into Viper.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	configMap, err := cueutil.Decode[map[string]any](configSchema, data, "#Config", cueutil.WithFilename(path))
	if err != nil {
		return err
	}

	// Merge into Viper (preserves defaults, allows env overrides)
	if err := v.MergeConfigMap(*configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

func describeSource(path string) string {
	if path == "" {
		return "defaults and environment"
	}
	return path
}

// GenerateCUE generates a CUE representation of the configuration
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// appcompress configuration\n\n")
	fmt.Fprintf(&sb, "compression_level: %d\n", cfg.CompressionLevel)
	fmt.Fprintf(&sb, "stop_on_error: %v\n", cfg.StopOnError)
	fmt.Fprintf(&sb, "skip_on_error: %v\n", cfg.SkipOnError)
	fmt.Fprintf(&sb, "letter_case: %q\n", cfg.LetterCase)
	fmt.Fprintf(&sb, "locale: %q\n", cfg.Locale)
	fmt.Fprintf(&sb, "format: %q\n", cfg.Format)
	fmt.Fprintf(&sb, "language: %q\n", cfg.Language)

	sb.WriteString("\nhttp: {\n")
	fmt.Fprintf(&sb, "\ttimeout: %q\n", cfg.HTTP.Timeout.String())
	fmt.Fprintf(&sb, "\tuser_agent: %q\n", cfg.HTTP.UserAgent)
	sb.WriteString("}\n")

	if len(cfg.ErrorCodes) > 0 {
		names := make([]string, 0, len(cfg.ErrorCodes))
		for name := range cfg.ErrorCodes {
			names = append(names, name)
		}
		sort.Strings(names)

		sb.WriteString("\nerror_codes: {\n")
		for _, name := range names {
			ec := cfg.ErrorCodes[name]
			fmt.Fprintf(&sb, "\t%q: {\n", name)
			if ec.Message != "" {
				fmt.Fprintf(&sb, "\t\tmessage: %q\n", ec.Message)
			}
			if ec.StatusCode != 0 {
				fmt.Fprintf(&sb, "\t\tstatus_code: %d\n", ec.StatusCode)
			}
			if ec.ReturnCode != 0 {
				fmt.Fprintf(&sb, "\t\treturn_code: %d\n", ec.ReturnCode)
			}
			sb.WriteString("\t}\n")
		}
		sb.WriteString("}\n")
	}

	return sb.String()
}
