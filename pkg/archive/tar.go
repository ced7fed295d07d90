// SPDX-License-Identifier: MPL-2.0

package archive

import (
	"archive/tar"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// lz4Levels maps our 0..9 scale onto lz4 compression levels.
var lz4Levels = [...]lz4.CompressionLevel{
	lz4.Fast, lz4.Level1, lz4.Level2, lz4.Level3, lz4.Level4,
	lz4.Level5, lz4.Level6, lz4.Level7, lz4.Level8, lz4.Level9,
}

type tarEncoder struct {
	tw      *tar.Writer
	codec   io.WriteCloser
	tempDir string
}

func newTarEncoder(f Format, level int, out io.Writer, tempDir string) (*tarEncoder, error) {
	codec, err := newCodec(f, level, out)
	if err != nil {
		return nil, err
	}
	target := out
	if codec != nil {
		target = codec
	}
	return &tarEncoder{tw: tar.NewWriter(target), codec: codec, tempDir: tempDir}, nil
}

func newCodec(f Format, level int, out io.Writer) (io.WriteCloser, error) {
	switch f {
	case FormatTar:
		return nil, nil
	case FormatTarGzip:
		return gzip.NewWriterLevel(out, level)
	case FormatTarZstd:
		return zstd.NewWriter(out, zstd.WithEncoderLevel(zstdLevel(level)))
	case FormatTarLZ4:
		zw := lz4.NewWriter(out)
		if err := zw.Apply(lz4.CompressionLevelOption(lz4Levels[level])); err != nil {
			return nil, err
		}
		return zw, nil
	default:
		return nil, &InvalidFormatError{Value: f}
	}
}

func zstdLevel(level int) zstd.EncoderLevel {
	switch {
	case level <= 2:
		return zstd.SpeedFastest
	case level <= 5:
		return zstd.SpeedDefault
	case level <= 8:
		return zstd.SpeedBetterCompression
	default:
		return zstd.SpeedBestCompression
	}
}

func (e *tarEncoder) writeEntry(hdr entryHeader, r io.Reader) (err error) {
	if hdr.size < 0 {
		spooled, size, spoolErr := e.spool(r)
		if spoolErr != nil {
			return spoolErr
		}
		defer func() {
			_ = spooled.Close()
			_ = os.Remove(spooled.Name())
		}()
		hdr.size = size
		r = spooled
	}

	if err = e.tw.WriteHeader(&tar.Header{
		Typeflag: tar.TypeReg,
		Name:     hdr.name,
		Size:     hdr.size,
		Mode:     int64(hdr.mode),
		ModTime:  hdr.modTime,
	}); err != nil {
		return err
	}
	// A file that shrank after stat would leave the header size unmet.
	n, err := io.CopyN(e.tw, r, hdr.size)
	if err != nil {
		return fmt.Errorf("copied %d of %d bytes: %w", n, hdr.size, err)
	}
	return nil
}

// spool copies r to a temp file so its size is known before the header is written.
func (e *tarEncoder) spool(r io.Reader) (*os.File, int64, error) {
	f, err := os.CreateTemp(e.tempDir, "appcompress-spool-*")
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create spool file: %w", err)
	}
	size, err := io.Copy(f, r)
	if err == nil {
		_, err = f.Seek(0, io.SeekStart)
	}
	if err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return nil, 0, fmt.Errorf("failed to spool entry: %w", err)
	}
	return f, size, nil
}

func (e *tarEncoder) close() error {
	err := e.tw.Close()
	if e.codec != nil {
		if closeErr := e.codec.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	return err
}
