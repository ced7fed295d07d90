// SPDX-License-Identifier: MPL-2.0

package archive

import (
	"errors"
	"fmt"
)

const (
	// FormatZip is a deflate-compressed zip archive (default).
	FormatZip Format = "zip"
	// FormatTar is an uncompressed tar archive.
	FormatTar Format = "tar"
	// FormatTarGzip is a gzip-compressed tar archive.
	FormatTarGzip Format = "tar.gz"
	// FormatTarZstd is a zstd-compressed tar archive.
	FormatTarZstd Format = "tar.zst"
	// FormatTarLZ4 is an lz4-compressed tar archive.
	FormatTarLZ4 Format = "tar.lz4"

	// MinLevel stores entries without compression.
	MinLevel = 0
	// MaxLevel is the strongest compression level.
	MaxLevel = 9
	// DefaultLevel is used when no level is configured.
	DefaultLevel = MaxLevel
)

var (
	// ErrInvalidFormat is the sentinel error wrapped by InvalidFormatError.
	ErrInvalidFormat = errors.New("invalid archive format")
	// ErrInvalidLevel is returned when a compression level is outside [MinLevel, MaxLevel].
	ErrInvalidLevel = errors.New("invalid compression level")
)

type (
	// Format selects the archive container and its compression codec.
	Format string

	// InvalidFormatError is returned when a Format value is not recognized.
	// It wraps ErrInvalidFormat for errors.Is() compatibility.
	InvalidFormatError struct {
		Value Format
	}
)

// Error implements the error interface.
func (e *InvalidFormatError) Error() string {
	return fmt.Sprintf("invalid archive format %q (valid: zip, tar, tar.gz, tar.zst, tar.lz4)", e.Value)
}

// Unwrap returns ErrInvalidFormat for errors.Is() compatibility.
func (e *InvalidFormatError) Unwrap() error {
	return ErrInvalidFormat
}

// Validate returns nil for supported formats and for the zero value (zip).
func (f Format) Validate() error {
	switch f {
	case "", FormatZip, FormatTar, FormatTarGzip, FormatTarZstd, FormatTarLZ4:
		return nil
	default:
		return &InvalidFormatError{Value: f}
	}
}

// Extension returns the file name suffix for archives of this format.
func (f Format) Extension() string {
	if f == "" {
		return ".zip"
	}
	return "." + string(f)
}

// ContentType returns the media type used when serving the archive.
func (f Format) ContentType() string {
	switch f {
	case FormatTar:
		return "application/x-tar"
	case FormatTarGzip:
		return "application/gzip"
	case FormatTarZstd:
		return "application/zstd"
	case FormatTarLZ4:
		return "application/x-lz4"
	default:
		return "application/zip"
	}
}

// ValidateLevel returns ErrInvalidLevel when level is out of range.
func ValidateLevel(level int) error {
	if level < MinLevel || level > MaxLevel {
		return fmt.Errorf("%w: %d (valid: %d..%d)", ErrInvalidLevel, level, MinLevel, MaxLevel)
	}
	return nil
}
