// SPDX-License-Identifier: MPL-2.0

package compression

import (
	"errors"
	"io"

	"github.com/apporo/app-compression/pkg/archive"
	"github.com/apporo/app-compression/pkg/naming"
	"github.com/apporo/app-compression/pkg/resource"
)

type (
	// Options configure one job. The zero value compresses at the default
	// level.
	Options struct {
		// CompressionLevel ranges over 1..9. Zero selects the default level
		// and LevelStore writes entries uncompressed.
		CompressionLevel int
		// StopOnError fails the job on the first acquisition failure.
		StopOnError bool
		// SkipOnError drops failed resources instead of writing placeholders.
		SkipOnError bool
		// LetterCase applied to entry names. Defaults to lower.
		LetterCase naming.LetterCase
		// Locale is the BCP 47 hint used for case mapping of entry names.
		Locale string
		// Format of the produced archive. Defaults to zip.
		Format archive.Format
		// Language of error messages.
		Language string
		// RequestID correlates log lines; generated when empty.
		RequestID string
		// TempDir holds spool files for tar formats. Defaults to os.TempDir().
		TempDir string
	}

	// Args are the inputs of one job.
	Args struct {
		// Resources are processed in order.
		Resources []resource.Descriptor
		// Writer receives the archive. It must be an io.WriteCloser or an
		// http.ResponseWriter; it is closed (or flushed) when the job ends.
		Writer io.Writer
	}
)

// LevelStore is the CompressionLevel that stores entries uncompressed.
const LevelStore = -1

// UserLevel converts a level as users write it (0..9, 0 stores) to a
// CompressionLevel.
func UserLevel(n int) int {
	if n == 0 {
		return LevelStore
	}
	return n
}

// DefaultOptions returns the job defaults: strongest compression, lower-case
// names, zip format, placeholders for failed resources.
func DefaultOptions() Options {
	return Options{
		CompressionLevel: archive.DefaultLevel,
		LetterCase:       naming.CaseLower,
		Locale:           naming.DefaultLocale,
		Format:           archive.FormatZip,
	}
}

// Validate reports every invalid field.
func (o Options) Validate() error {
	return errors.Join(
		archive.ValidateLevel(o.level()),
		o.Format.Validate(),
		o.LetterCase.Validate(),
	)
}

// level maps CompressionLevel to the archive level.
func (o Options) level() int {
	switch o.CompressionLevel {
	case 0:
		return archive.DefaultLevel
	case LevelStore:
		return 0
	default:
		return o.CompressionLevel
	}
}

func (o Options) naming() naming.Options {
	return naming.Options{Locale: o.Locale, Case: o.LetterCase}
}
