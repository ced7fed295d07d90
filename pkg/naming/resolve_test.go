// SPDX-License-Identifier: MPL-2.0

package naming

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

// pngHeader is the 8-byte PNG signature followed by an IHDR chunk start.
var pngHeader = []byte{
	0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n',
	0x00, 0x00, 0x00, 0x0d, 'I', 'H', 'D', 'R',
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01, 0x08, 0x06, 0x00, 0x00, 0x00,
}

func TestResolver_ExplicitExtension(t *testing.T) {
	t.Parallel()

	r := NewResolver(Options{})
	tests := []struct {
		target, ext, want string
	}{
		{"My logo", "png", "my-logo.png"},
		{"My logo", ".PNG", "my-logo.png"},
		{"logo.png", "png", "logo.png"},
		{"Report.PDF", "pdf", "report.pdf"},
	}
	for _, tt := range tests {
		name, rd := r.Resolve(tt.target, tt.ext, strings.NewReader("data"), false)
		if name != tt.want {
			t.Errorf("Resolve(%q, %q) = %q, want %q", tt.target, tt.ext, name, tt.want)
		}
		if b, _ := io.ReadAll(rd); string(b) != "data" {
			t.Errorf("content changed: %q", b)
		}
	}
}

func TestResolver_Idempotent(t *testing.T) {
	t.Parallel()

	r := NewResolver(Options{})
	name, _ := r.Resolve("logo.png", "png", nil, false)
	again, _ := r.Resolve(name, "png", nil, false)
	if name != "logo.png" || again != name {
		t.Errorf("Resolve not idempotent: %q then %q", name, again)
	}
}

func TestResolver_SniffKeepsAllBytes(t *testing.T) {
	t.Parallel()

	payload := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0xAB}, 10*SniffLen)...)
	name, rd := NewResolver(Options{}).Resolve("Logo", "", bytes.NewReader(payload), false)
	if name != "logo.png" {
		t.Errorf("name = %q, want logo.png", name)
	}
	got, err := io.ReadAll(rd)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("replayed stream differs: got %d bytes, want %d", len(got), len(payload))
	}
}

func TestResolver_SniffAlreadyExtended(t *testing.T) {
	t.Parallel()

	name, _ := NewResolver(Options{}).Resolve("logo.png", "", bytes.NewReader(pngHeader), false)
	if name != "logo.png" {
		t.Errorf("name = %q, want logo.png", name)
	}
}

func TestResolver_PlaceholderNotSniffed(t *testing.T) {
	t.Parallel()

	name, rd := NewResolver(Options{}).Resolve("Logo", "", bytes.NewReader(nil), true)
	if name != "logo" {
		t.Errorf("name = %q, want logo", name)
	}
	if b, _ := io.ReadAll(rd); len(b) != 0 {
		t.Errorf("placeholder yielded %d bytes", len(b))
	}
}

func TestResolver_UnknownContentNoSuffix(t *testing.T) {
	t.Parallel()

	name, _ := NewResolver(Options{}).Resolve("Blob", "", bytes.NewReader([]byte{0x00, 0x01, 0x02, 0xff, 0xfe}), false)
	if name != "blob" {
		t.Errorf("name = %q, want blob", name)
	}
}

func TestResolver_ResolvePath(t *testing.T) {
	t.Parallel()

	r := NewResolver(Options{})
	tests := []struct {
		target, ext, source, want string
	}{
		{"a", "", "data/a.txt", "a.txt"},
		{"Read Me", "md", "data/README", "read-me.md"},
		{"", "", "data/Notes.TXT", "notes.txt"},
		{"plain", "", "data/Makefile", "plain"},
		{"", "csv", "/data/export", "export.csv"},
		{"", "csv", "/data/export.CSV", "export.csv"},
		{"", "json", "/data/export.csv", "export.csv.json"},
		{"---", "gz", "/data/dump.tar", "dump.tar.gz"},
		{"", "txt", "/", ""},
	}
	for _, tt := range tests {
		if got := r.ResolvePath(tt.target, tt.ext, tt.source); got != tt.want {
			t.Errorf("ResolvePath(%q, %q, %q) = %q, want %q", tt.target, tt.ext, tt.source, got, tt.want)
		}
	}
}

func TestSniff_Text(t *testing.T) {
	t.Parallel()

	ext, rd := Sniff(strings.NewReader("hello world\n"))
	if ext != "txt" {
		t.Errorf("ext = %q, want txt", ext)
	}
	if b, _ := io.ReadAll(rd); string(b) != "hello world\n" {
		t.Errorf("replay = %q", b)
	}
}

func TestResolver_UpperCaseExtension(t *testing.T) {
	t.Parallel()

	r := NewResolver(Options{Case: CaseUpper})
	if got := r.ResolvePath("Release Notes", "", "docs/notes.txt"); got != "RELEASE-NOTES.TXT" {
		t.Errorf("ResolvePath() = %q, want RELEASE-NOTES.TXT", got)
	}
	if got, _ := r.Resolve("logo.png", "png", nil, false); got != "LOGO.PNG" {
		t.Errorf("Resolve() = %q, want LOGO.PNG", got)
	}
}
