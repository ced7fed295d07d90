// SPDX-License-Identifier: MPL-2.0

package naming

import (
	"bufio"
	"errors"
	"io"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// SniffLen is the number of leading bytes inspected for content-type detection.
const SniffLen = 3072

// Resolver derives archive entry names. The zero value slugifies lower-case
// with the default locale.
type Resolver struct {
	Options Options
}

// NewResolver returns a Resolver using opts.
func NewResolver(opts Options) *Resolver {
	return &Resolver{Options: opts}
}

// Resolve returns the entry name for target and the reader the archive must
// consume in place of content.
//
// With an explicit extension the name is slug + "." + ext unless the slug
// already ends that way. Otherwise, when content is non-nil and not a
// placeholder, the extension is sniffed from the leading bytes; the returned
// reader replays those bytes. Placeholders are never sniffed. Extensions that
// cannot be determined yield no suffix.
func (r *Resolver) Resolve(target, explicitExt string, content io.Reader, placeholder bool) (string, io.Reader) {
	name := Slugify(target, r.Options)
	if ext := normalizeExt(explicitExt); ext != "" {
		return withExt(name, r.caseExt(ext)), content
	}
	if content == nil || placeholder {
		return name, content
	}

	ext, replay := Sniff(content)
	return withExt(name, r.caseExt(ext)), replay
}

// ResolvePath names an entry that is appended by filesystem path: the
// extension falls back to the one of sourcePath.
func (r *Resolver) ResolvePath(target, explicitExt, sourcePath string) string {
	name := Slugify(target, r.Options)
	ext := normalizeExt(explicitExt)
	if ext == "" {
		ext = normalizeExt(filepath.Ext(sourcePath))
	}
	if name == "" {
		// No usable target: keep the source file name.
		name = Slugify(filepath.Base(sourcePath), r.Options)
		if name == "" {
			return ""
		}
	}
	return withExt(name, r.caseExt(ext))
}

// ResolveDir slugifies a directory rename target segment by segment. An empty
// result means "flatten into the archive root".
func (r *Resolver) ResolveDir(target string) string {
	return SlugifyPath(target, r.Options)
}

// Sniff detects the file extension of the stream (".png" → "png") and returns
// a reader that yields the complete stream from its first byte.
func Sniff(content io.Reader) (string, io.Reader) {
	br := bufio.NewReaderSize(content, SniffLen)
	head, err := br.Peek(SniffLen)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return "", br
	}
	if len(head) == 0 {
		return "", br
	}
	return normalizeExt(mimetype.Detect(head).Extension()), br
}

// caseExt upper-cases extensions for CaseUpper; they are lower-case otherwise.
func (r *Resolver) caseExt(ext string) string {
	if r.Options.Case == CaseUpper {
		return strings.ToUpper(ext)
	}
	return ext
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimLeft(strings.TrimSpace(ext), "."))
}

func withExt(name, ext string) string {
	if ext == "" || (len(name) > len(ext) && strings.EqualFold(name[len(name)-len(ext)-1:], "."+ext)) {
		return name
	}
	return name + "." + ext
}
