// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/apporo/app-compression/internal/issue"
	"github.com/apporo/app-compression/internal/testutil"
	"github.com/apporo/app-compression/pkg/archive"
	"github.com/apporo/app-compression/pkg/naming"
)

// isolated returns LoadOptions that never touch the user's real config.
func isolated(t *testing.T) LoadOptions {
	t.Helper()
	return LoadOptions{ConfigDirPath: t.TempDir(), BaseDir: t.TempDir()}
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	return testutil.MustWriteFile(t, filepath.Join(dir, ConfigFileName+"."+ConfigFileExt), content)
}

func TestLoad_Defaults(t *testing.T) {
	t.Parallel()

	cfg, path, err := NewProvider().Load(context.Background(), isolated(t))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if path != "" {
		t.Errorf("resolved path = %q, want none", path)
	}

	want := DefaultConfig()
	if cfg.CompressionLevel != want.CompressionLevel || cfg.Format != want.Format || cfg.LetterCase != want.LetterCase {
		t.Errorf("cfg = %+v, want defaults %+v", cfg, want)
	}
	if cfg.HTTP.Timeout != DefaultHTTPTimeout {
		t.Errorf("HTTP.Timeout = %s, want %s", cfg.HTTP.Timeout, DefaultHTTPTimeout)
	}
}

func TestLoad_FromConfigDir(t *testing.T) {
	t.Parallel()

	opts := isolated(t)
	writeConfig(t, opts.ConfigDirPath, `
compression_level: 3
skip_on_error:     true
letter_case:       "upper"
locale:            "vi"
format:            "tar.zst"
language:          "vi"
http: {
	timeout:    "1m30s"
	user_agent: "custom/2.0"
}
error_codes: {
	InvalidStreamWriter: {
		message:     "sink says no"
		return_code: 42
	}
}
`)

	cfg, path, err := NewProvider().Load(context.Background(), opts)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !strings.HasPrefix(path, opts.ConfigDirPath) {
		t.Errorf("resolved path = %q, want file in %q", path, opts.ConfigDirPath)
	}
	if cfg.CompressionLevel != 3 || !cfg.SkipOnError || cfg.StopOnError {
		t.Errorf("policy fields = %+v", cfg)
	}
	if cfg.LetterCase != naming.CaseUpper || cfg.Format != archive.FormatTarZstd || cfg.Locale != "vi" {
		t.Errorf("naming fields = %+v", cfg)
	}
	if cfg.HTTP.Timeout != 90*time.Second || cfg.HTTP.UserAgent != "custom/2.0" {
		t.Errorf("HTTP = %+v", cfg.HTTP)
	}

	catalog, err := cfg.Catalog()
	if err != nil {
		t.Fatalf("Catalog() error = %v", err)
	}
	e := catalog.NewError(issue.InvalidStreamWriter, issue.Payload{})
	if e.Message != "sink says no" || e.ReturnCode != 42 || e.StatusCode != 400 {
		t.Errorf("overridden error = %+v", e)
	}

	jobOpts := cfg.JobOptions()
	if jobOpts.CompressionLevel != 3 || jobOpts.Format != archive.FormatTarZstd || !jobOpts.SkipOnError {
		t.Errorf("JobOptions() = %+v", jobOpts)
	}
}

func TestLoad_BaseDirFallback(t *testing.T) {
	t.Parallel()

	opts := isolated(t)
	writeConfig(t, opts.BaseDir, `format: "tar"`)

	cfg, _, err := NewProvider().Load(context.Background(), opts)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Format != archive.FormatTar {
		t.Errorf("Format = %q, want tar", cfg.Format)
	}
}

func TestLoad_ExplicitFile(t *testing.T) {
	t.Parallel()

	opts := isolated(t)
	writeConfig(t, opts.ConfigDirPath, `format: "tar"`)
	explicit := testutil.MustWriteFile(t, filepath.Join(t.TempDir(), "other.cue"), `format: "tar.gz"`)
	opts.ConfigFilePath = explicit

	cfg, _, err := NewProvider().Load(context.Background(), opts)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Format != archive.FormatTarGzip {
		t.Errorf("Format = %q, want tar.gz (explicit file wins)", cfg.Format)
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		missing bool
	}{
		{name: "missing explicit file", missing: true},
		{name: "level out of range", content: `compression_level: 12`},
		{name: "unknown format", content: `format: "rar"`},
		{name: "unknown field", content: `colour: "blue"`},
		{name: "bad duration", content: `http: timeout: "soon"`},
		{name: "bad status code", content: `error_codes: ArchiveFailed: status_code: 42`},
		{name: "unknown error kind", content: `error_codes: NoSuchKind: message: "x"`},
		{name: "syntax error", content: `format: "zip`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			opts := isolated(t)
			opts.ConfigFilePath = filepath.Join(t.TempDir(), "config.cue")
			if !tt.missing {
				testutil.MustWriteFile(t, opts.ConfigFilePath, tt.content)
			}

			_, _, err := NewProvider().Load(context.Background(), opts)
			if err == nil {
				t.Fatal("Load() should fail")
			}
			var ae *issue.ActionableError
			if !errors.As(err, &ae) {
				t.Fatalf("error should be *issue.ActionableError, got %T: %v", err, err)
			}
			if len(ae.Suggestions) == 0 {
				t.Error("error should carry suggestions")
			}
		})
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	// Environment mutation: not parallel.
	defer testutil.MustSetenv(t, "APPCOMPRESS_FORMAT", "tar.lz4")()
	defer testutil.MustSetenv(t, "APPCOMPRESS_COMPRESSION_LEVEL", "1")()
	defer testutil.MustSetenv(t, "APPCOMPRESS_HTTP_USER_AGENT", "env-agent")()

	opts := isolated(t)
	writeConfig(t, opts.ConfigDirPath, `format: "tar"`)

	cfg, _, err := NewProvider().Load(context.Background(), opts)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Format != archive.FormatTarLZ4 || cfg.CompressionLevel != 1 || cfg.HTTP.UserAgent != "env-agent" {
		t.Errorf("cfg = %+v, want env overrides", cfg)
	}
}

func TestLoad_EnvOverrideInvalid(t *testing.T) {
	defer testutil.MustSetenv(t, "APPCOMPRESS_LETTER_CASE", "title")()

	_, _, err := NewProvider().Load(context.Background(), isolated(t))
	if !errors.Is(err, naming.ErrInvalidLetterCase) {
		t.Fatalf("error = %v, want ErrInvalidLetterCase", err)
	}
}

func TestLoad_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := NewProvider().Load(ctx, isolated(t)); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestGenerateCUE_RoundTrip(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.StopOnError = true
	cfg.HTTP.Timeout = 5 * time.Second
	cfg.ErrorCodes = map[string]ErrorCodeConfig{
		"ArchiveFailed": {StatusCode: 503},
	}

	opts := isolated(t)
	writeConfig(t, opts.ConfigDirPath, GenerateCUE(cfg))

	loaded, _, err := NewProvider().Load(context.Background(), opts)
	if err != nil {
		t.Fatalf("Load(GenerateCUE()) error = %v\n%s", err, GenerateCUE(cfg))
	}
	if !loaded.StopOnError || loaded.HTTP.Timeout != 5*time.Second || loaded.Format != cfg.Format {
		t.Errorf("loaded = %+v", loaded)
	}
	catalog, err := loaded.Catalog()
	if err != nil {
		t.Fatal(err)
	}
	if got := catalog.NewError(issue.ArchiveFailed, issue.Payload{}).StatusCode; got != 503 {
		t.Errorf("ArchiveFailed status = %d, want 503", got)
	}
}

func TestConfigDir(t *testing.T) {
	dir, err := ConfigDir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}
	if filepath.Base(dir) != AppName {
		t.Errorf("ConfigDir() = %q, want suffix %q", dir, AppName)
	}
	if _, statErr := os.Stat(filepath.Dir(dir)); statErr != nil && !os.IsNotExist(statErr) {
		t.Errorf("stat parent: %v", statErr)
	}
}
