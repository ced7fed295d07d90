// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"archive/tar"
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Entry is one archive member as seen by ReadEntries.
type Entry struct {
	Name    string
	Content string
}

// ReadEntries decodes an archive produced in format ("zip", "tar", "tar.gz",
// "tar.zst" or "tar.lz4") and returns its members in archive order.
func ReadEntries(t testing.TB, format string, data []byte) []Entry {
	t.Helper()
	if format == "" || format == "zip" {
		return readZip(t, data)
	}

	var r io.Reader = bytes.NewReader(data)
	switch format {
	case "tar":
	case "tar.gz":
		zr, err := gzip.NewReader(r)
		if err != nil {
			t.Fatalf("failed to open gzip stream: %v", err)
		}
		r = zr
	case "tar.zst":
		zr, err := zstd.NewReader(r)
		if err != nil {
			t.Fatalf("failed to open zstd stream: %v", err)
		}
		defer zr.Close()
		r = zr
	case "tar.lz4":
		r = lz4.NewReader(r)
	default:
		t.Fatalf("unknown archive format %q", format)
	}
	return readTar(t, r)
}

// EntryNames returns the member names of entries in order.
func EntryNames(entries []Entry) []string {
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
	}
	return names
}

func readZip(t testing.TB, data []byte) []Entry {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("failed to open zip archive: %v", err)
	}
	entries := make([]Entry, 0, len(zr.File))
	for _, f := range zr.File {
		rc, openErr := f.Open()
		if openErr != nil {
			t.Fatalf("failed to open zip entry %s: %v", f.Name, openErr)
		}
		content, readErr := io.ReadAll(rc)
		_ = rc.Close()
		if readErr != nil {
			t.Fatalf("failed to read zip entry %s: %v", f.Name, readErr)
		}
		entries = append(entries, Entry{Name: f.Name, Content: string(content)})
	}
	return entries
}

func readTar(t testing.TB, r io.Reader) []Entry {
	t.Helper()
	tr := tar.NewReader(r)
	var entries []Entry
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return entries
		}
		if err != nil {
			t.Fatalf("failed to read tar header: %v", err)
		}
		content, readErr := io.ReadAll(tr)
		if readErr != nil {
			t.Fatalf("failed to read tar entry %s: %v", hdr.Name, readErr)
		}
		entries = append(entries, Entry{Name: hdr.Name, Content: string(content)})
	}
}
