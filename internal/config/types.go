// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/apporo/app-compression/internal/fetch"
	"github.com/apporo/app-compression/internal/issue"
	"github.com/apporo/app-compression/pkg/archive"
	"github.com/apporo/app-compression/pkg/compression"
	"github.com/apporo/app-compression/pkg/naming"
)

// DefaultHTTPTimeout bounds a single remote resource request.
const DefaultHTTPTimeout = 30 * time.Second

// ErrUnknownErrorCode is returned when error_codes names a kind that does not exist.
var ErrUnknownErrorCode = errors.New("unknown error code")

type (
	// Config is the root configuration structure.
	Config struct {
		// CompressionLevel is the default level (0..9).
		CompressionLevel int `json:"compression_level" mapstructure:"compression_level"`
		// StopOnError fails a job on the first failed resource.
		StopOnError bool `json:"stop_on_error" mapstructure:"stop_on_error"`
		// SkipOnError drops failed resources instead of writing placeholders.
		SkipOnError bool `json:"skip_on_error" mapstructure:"skip_on_error"`
		// LetterCase applied to entry names.
		LetterCase naming.LetterCase `json:"letter_case" mapstructure:"letter_case"`
		// Locale used for case mapping of entry names.
		Locale string `json:"locale" mapstructure:"locale"`
		// Format of produced archives.
		Format archive.Format `json:"format" mapstructure:"format"`
		// Language of error messages.
		Language string `json:"language" mapstructure:"language"`
		// HTTP configures remote resource fetching.
		HTTP HTTPConfig `json:"http" mapstructure:"http"`
		// ErrorCodes overrides registry entries by kind name.
		ErrorCodes map[string]ErrorCodeConfig `json:"error_codes" mapstructure:"error_codes"`
	}

	// HTTPConfig configures the remote resource client.
	HTTPConfig struct {
		Timeout   time.Duration `json:"timeout" mapstructure:"timeout"`
		UserAgent string        `json:"user_agent" mapstructure:"user_agent"`
	}

	// ErrorCodeConfig overrides one error registry entry. Zero fields keep
	// the built-in value.
	ErrorCodeConfig struct {
		Message    string `json:"message" mapstructure:"message"`
		StatusCode int    `json:"status_code" mapstructure:"status_code"`
		ReturnCode int    `json:"return_code" mapstructure:"return_code"`
	}
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	opts := compression.DefaultOptions()
	return &Config{
		CompressionLevel: opts.CompressionLevel,
		LetterCase:       opts.LetterCase,
		Locale:           opts.Locale,
		Format:           opts.Format,
		Language:         issue.DefaultLanguage,
		HTTP: HTTPConfig{
			Timeout:   DefaultHTTPTimeout,
			UserAgent: fetch.DefaultUserAgent,
		},
	}
}

// Validate checks the constraints that environment overrides can break after
// schema validation.
func (c *Config) Validate() error {
	errs := []error{c.JobOptions().Validate()}
	if c.HTTP.Timeout < 0 {
		errs = append(errs, fmt.Errorf("http.timeout must not be negative, got %s", c.HTTP.Timeout))
	}
	if _, err := c.Overrides(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// JobOptions returns the job defaults described by c.
func (c *Config) JobOptions() compression.Options {
	return compression.Options{
		CompressionLevel: compression.UserLevel(c.CompressionLevel),
		StopOnError:      c.StopOnError,
		SkipOnError:      c.SkipOnError,
		LetterCase:       c.LetterCase,
		Locale:           c.Locale,
		Format:           c.Format,
		Language:         c.Language,
	}
}

// Overrides maps error_codes onto registry kinds. Kind names match case
// insensitively because Viper lower-cases map keys.
func (c *Config) Overrides() (map[issue.Kind]issue.Override, error) {
	if len(c.ErrorCodes) == 0 {
		return nil, nil
	}
	kinds := issue.DefaultCatalog().Kinds()
	out := make(map[issue.Kind]issue.Override, len(c.ErrorCodes))
	for name, ec := range c.ErrorCodes {
		kind, ok := matchKind(kinds, name)
		if !ok {
			return nil, fmt.Errorf("%w: error_codes.%s", ErrUnknownErrorCode, name)
		}
		out[kind] = issue.Override{Message: ec.Message, StatusCode: ec.StatusCode, ReturnCode: ec.ReturnCode}
	}
	return out, nil
}

// Catalog returns the error registry with the configured overrides applied.
func (c *Config) Catalog() (*issue.Catalog, error) {
	overrides, err := c.Overrides()
	if err != nil {
		return nil, err
	}
	if overrides == nil {
		return issue.DefaultCatalog(), nil
	}
	return issue.NewCatalog(overrides), nil
}

func matchKind(kinds []issue.Kind, name string) (issue.Kind, bool) {
	for _, k := range kinds {
		if strings.EqualFold(string(k), name) {
			return k, true
		}
	}
	return "", false
}
