// SPDX-License-Identifier: MPL-2.0

package archive

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zeebo/blake3"
)

var (
	// ErrNilSink is returned by NewWriter when no sink is given.
	ErrNilSink = errors.New("archive sink is nil")
	// ErrFinalized is returned by Append methods called after Finalize.
	ErrFinalized = errors.New("archive already finalized")
	// ErrAborted is the failure recorded by Abort when no cause is given.
	ErrAborted = errors.New("archive aborted")
	// ErrEmptyEntryName is returned when an entry has no name.
	ErrEmptyEntryName = errors.New("archive entry name is empty")
)

type (
	// Option configures a Writer.
	Option func(*Writer)

	// Stats summarizes the bytes handed to the sink.
	Stats struct {
		Entries int
		Bytes   int64
		// Digest is the hex BLAKE3-256 of the archive bytes. It is only
		// meaningful after Finalize.
		Digest string
	}

	// Writer appends entries to one archive stream. Appends and Abort must
	// not run concurrently. Finalize may be called from several goroutines;
	// the archive is finished once and every call returns the same result.
	Writer struct {
		sink     io.WriteCloser
		format   Format
		level    int
		observer Observer
		tempDir  string
		modTime  time.Time

		out     *countingWriter
		enc     encoder
		entries int
		err     error

		finalizeOnce sync.Once
		finalized    atomic.Bool
		finalErr     error
	}

	// entryHeader describes one regular file entry. size is -1 when the
	// length is not known up front.
	entryHeader struct {
		name    string
		size    int64
		mode    fs.FileMode
		modTime time.Time
	}

	encoder interface {
		writeEntry(hdr entryHeader, r io.Reader) error
		close() error
	}

	// countingWriter forwards to the sink while counting and hashing. The
	// first sink error is kept and returned on every later write.
	countingWriter struct {
		w    io.Writer
		hash *blake3.Hasher
		n    int64
		err  error

		// discard drops writes once the archive is known to be broken.
		discard bool
	}
)

// WithFormat selects the archive format. The zero value means zip.
func WithFormat(f Format) Option {
	return func(w *Writer) {
		w.format = f
	}
}

// WithLevel sets the compression level (0 stores, 9 is strongest).
func WithLevel(level int) Option {
	return func(w *Writer) {
		w.level = level
	}
}

// WithObserver registers the observer that receives writer signals.
func WithObserver(o Observer) Option {
	return func(w *Writer) {
		if o != nil {
			w.observer = o
		}
	}
}

// WithTempDir sets where tar formats spool streams of unknown size.
func WithTempDir(dir string) Option {
	return func(w *Writer) {
		w.tempDir = dir
	}
}

// WithModTime sets the modification time stamped on stream entries.
func WithModTime(t time.Time) Option {
	return func(w *Writer) {
		w.modTime = t
	}
}

// NewWriter creates a Writer bound to sink. The sink is owned by the Writer
// from now on and is closed by Finalize.
func NewWriter(sink io.WriteCloser, opts ...Option) (*Writer, error) {
	if sink == nil {
		return nil, ErrNilSink
	}
	w := &Writer{
		sink:     sink,
		format:   FormatZip,
		level:    DefaultLevel,
		observer: ObserverFuncs{},
		modTime:  time.Now(),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.format == "" {
		w.format = FormatZip
	}
	if err := w.format.Validate(); err != nil {
		return nil, err
	}
	if err := ValidateLevel(w.level); err != nil {
		return nil, err
	}

	w.out = &countingWriter{w: sink, hash: blake3.New()}
	enc, err := newEncoder(w.format, w.level, w.out, w.tempDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s encoder: %w", w.format, err)
	}
	w.enc = enc
	return w, nil
}

// Format returns the archive format in use.
func (w *Writer) Format() Format {
	return w.format
}

// Err returns the sticky fatal error, if any.
func (w *Writer) Err() error {
	return w.err
}

// Stats returns the current counters.
func (w *Writer) Stats() Stats {
	return Stats{
		Entries: w.entries,
		Bytes:   w.out.n,
		Digest:  hex.EncodeToString(w.out.hash.Sum(nil)),
	}
}

// AppendStream writes one entry named name with the content of r.
func (w *Writer) AppendStream(name string, r io.Reader) error {
	if err := w.ready(name); err != nil {
		return err
	}
	hdr := entryHeader{name: name, size: -1, mode: 0o644, modTime: w.modTime}
	return w.write(hdr, r)
}

// AppendFile writes the regular file at filePath as an entry named name.
// Source problems are reported as *Warning.
func (w *Writer) AppendFile(filePath, name string) error {
	if err := w.ready(name); err != nil {
		return err
	}
	info, err := os.Stat(filePath)
	if err != nil {
		return w.warn(newWarning(filePath, err))
	}
	if !info.Mode().IsRegular() {
		return w.warn(&Warning{Code: WarningOther, Path: filePath, Err: errors.New("not a regular file")})
	}
	return w.appendRegular(filePath, name, info)
}

// AppendDirectory writes every regular file below dirPath. Entries are
// placed under name, or at the archive root when name is empty. Files are
// visited in lexical order. A file that disappears during the walk is
// reported and skipped; other source problems stop the walk and are returned
// as *Warning.
func (w *Writer) AppendDirectory(dirPath, name string) error {
	if err := w.usable(); err != nil {
		return err
	}
	info, err := os.Stat(dirPath)
	if err != nil {
		return w.warn(newWarning(dirPath, err))
	}
	if !info.IsDir() {
		return w.warn(&Warning{Code: WarningOther, Path: dirPath, Err: errors.New("not a directory")})
	}

	return filepath.WalkDir(dirPath, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return w.softWarn(newWarning(p, walkErr))
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, relErr := filepath.Rel(dirPath, p)
		if relErr != nil {
			return w.warn(&Warning{Code: WarningOther, Path: p, Err: relErr})
		}
		entryName := filepath.ToSlash(rel)
		if name != "" {
			entryName = path.Join(name, entryName)
		}
		fileInfo, infoErr := d.Info()
		if infoErr != nil {
			return w.softWarn(newWarning(p, infoErr))
		}
		if appendErr := w.appendRegular(p, entryName, fileInfo); appendErr != nil {
			if IsNotFound(appendErr) {
				return nil
			}
			return appendErr
		}
		return nil
	})
}

// Finalize flushes the encoder and closes the sink. Only the first call does
// any work; later calls return the same result. It returns the first fatal
// error seen during the writer's life, or the close error.
func (w *Writer) Finalize() error {
	w.finalizeOnce.Do(func() {
		w.finalized.Store(true)
		// A failed archive gets no trailer; the encoders are only released.
		w.out.discard = w.err != nil
		closeErr := w.enc.close()
		sinkErr := w.sink.Close()

		switch {
		case w.err != nil:
			w.finalErr = w.err
		case closeErr != nil:
			w.finalErr = fmt.Errorf("failed to finish %s archive: %w", w.format, closeErr)
		case w.out.err != nil:
			w.finalErr = w.out.err
		case sinkErr != nil:
			w.finalErr = fmt.Errorf("failed to close archive sink: %w", sinkErr)
		}
		if w.finalErr != nil && w.err == nil {
			w.err = w.finalErr
		}
		w.observer.Done(w.finalErr)
	})
	return w.finalErr
}

// Abort finalizes an archive that must not be completed. cause becomes the
// sticky error unless one is already recorded; nothing more reaches the sink
// before it is closed. Abort after Finalize only returns the final result.
func (w *Writer) Abort(cause error) error {
	if cause == nil {
		cause = ErrAborted
	}
	if !w.finalized.Load() && w.err == nil {
		w.err = cause
	}
	return w.Finalize()
}

func (w *Writer) usable() error {
	if w.finalized.Load() {
		return ErrFinalized
	}
	return w.err
}

func (w *Writer) ready(name string) error {
	if err := w.usable(); err != nil {
		return err
	}
	if name == "" {
		return ErrEmptyEntryName
	}
	return nil
}

func (w *Writer) appendRegular(filePath, name string, info fs.FileInfo) (err error) {
	f, err := os.Open(filePath)
	if err != nil {
		return w.warn(newWarning(filePath, err))
	}
	defer func() { _ = f.Close() }()

	hdr := entryHeader{name: name, size: info.Size(), mode: info.Mode().Perm(), modTime: info.ModTime()}
	return w.write(hdr, f)
}

func (w *Writer) write(hdr entryHeader, r io.Reader) error {
	if err := w.enc.writeEntry(hdr, r); err != nil {
		w.err = fmt.Errorf("failed to write entry %q: %w", hdr.name, err)
		return w.err
	}
	w.entries++
	w.observer.Progress(Progress{Entries: w.entries, Bytes: w.out.n})
	return nil
}

func (w *Writer) warn(warning *Warning) error {
	w.observer.Warning(warning)
	return warning
}

// softWarn reports a walk warning and keeps walking for not-found paths.
func (w *Writer) softWarn(warning *Warning) error {
	w.observer.Warning(warning)
	if warning.Code == WarningNotFound {
		return nil
	}
	return warning
}

func (c *countingWriter) Write(p []byte) (int, error) {
	if c.discard {
		return len(p), nil
	}
	if c.err != nil {
		return 0, c.err
	}
	n, err := c.w.Write(p)
	c.n += int64(n)
	_, _ = c.hash.Write(p[:n])
	if err != nil {
		c.err = fmt.Errorf("archive sink: %w", err)
		return n, c.err
	}
	return n, nil
}

func newEncoder(f Format, level int, out io.Writer, tempDir string) (encoder, error) {
	if f == FormatZip {
		return newZipEncoder(out, level), nil
	}
	return newTarEncoder(f, level, out, tempDir)
}
