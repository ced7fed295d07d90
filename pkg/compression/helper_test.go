// SPDX-License-Identifier: MPL-2.0

package compression_test

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/blake3"

	"github.com/apporo/app-compression/internal/issue"
	"github.com/apporo/app-compression/internal/testutil"
	"github.com/apporo/app-compression/pkg/archive"
	"github.com/apporo/app-compression/pkg/compression"
	"github.com/apporo/app-compression/pkg/resource"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00\x1f\x15\xc4\x89")

// fixture serves /logo (a PNG without extension in its path), /text and a
// failing /broken endpoint, counting requests.
type fixture struct {
	server *httptest.Server
	hits   atomic.Int32
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{}
	mux := http.NewServeMux()
	mux.HandleFunc("/logo", func(w http.ResponseWriter, _ *http.Request) {
		f.hits.Add(1)
		_, _ = w.Write(pngHeader)
	})
	mux.HandleFunc("/text", func(w http.ResponseWriter, _ *http.Request) {
		f.hits.Add(1)
		_, _ = w.Write([]byte("plain words"))
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, _ *http.Request) {
		f.hits.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fixture) url(p string) string {
	return f.server.URL + p
}

func newHelper() *compression.Helper {
	return compression.New(compression.WithLogger(log.New(io.Discard)))
}

func TestDeflate_EndToEnd(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	dir := t.TempDir()
	a := testutil.MustWriteFile(t, filepath.Join(dir, "a.txt"), "alpha")

	sink := testutil.NewSink()
	outcome, err := newHelper().Deflate(context.Background(), compression.Args{
		Resources: []resource.Descriptor{
			{Kind: resource.KindFile, Source: a, Target: "a"},
			{Kind: resource.KindHTTP, Source: fx.url("/logo"), Target: "logo"},
		},
		Writer: sink,
	}, compression.DefaultOptions())
	require.NoError(t, err)

	entries := testutil.ReadEntries(t, "zip", sink.Bytes())
	require.Equal(t, []string{"a.txt", "logo.png"}, testutil.EntryNames(entries))
	assert.Equal(t, "alpha", entries[0].Content)
	assert.Equal(t, string(pngHeader), entries[1].Content)

	assert.Equal(t, 2, outcome.Entries)
	assert.Equal(t, 2, outcome.Count(compression.StatusArchived))
	assert.Equal(t, int64(len(sink.Bytes())), outcome.Bytes)
	sum := blake3.Sum256(sink.Bytes())
	assert.Equal(t, hex.EncodeToString(sum[:]), outcome.Digest)
	assert.NotEmpty(t, outcome.RequestID)
	assert.Equal(t, 1, sink.Closes())
}

func TestDeflate_ZeroOptionsCompress(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := testutil.MustWriteFile(t, filepath.Join(dir, "data.txt"), string(bytes.Repeat([]byte("abc"), 1000)))

	for _, tc := range []struct {
		name   string
		level  int
		method uint16
	}{
		{name: "unset", level: 0, method: zip.Deflate},
		{name: "store", level: compression.LevelStore, method: zip.Store},
	} {
		sink := testutil.NewSink()
		_, err := newHelper().Deflate(context.Background(), compression.Args{
			Resources: []resource.Descriptor{{Kind: resource.KindFile, Source: src}},
			Writer:    sink,
		}, compression.Options{CompressionLevel: tc.level})
		require.NoError(t, err, tc.name)

		data := sink.Bytes()
		zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
		require.NoError(t, err, tc.name)
		require.Len(t, zr.File, 1, tc.name)
		assert.Equal(t, tc.method, zr.File[0].Method, tc.name)
	}
}

func TestDeflate_PreservesOrder(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	dir := t.TempDir()
	first := testutil.MustWriteFile(t, filepath.Join(dir, "z-first.txt"), "1")
	last := testutil.MustWriteFile(t, filepath.Join(dir, "a-last.txt"), "3")

	sink := testutil.NewSink()
	opts := compression.DefaultOptions()
	opts.Format = archive.FormatTarGzip
	_, err := newHelper().Deflate(context.Background(), compression.Args{
		Resources: []resource.Descriptor{
			{Kind: resource.KindFile, Source: first},
			{Kind: resource.KindHTTP, Source: fx.url("/text"), Target: "Middle Part"},
			{Kind: resource.KindFile, Source: last},
		},
		Writer: sink,
	}, opts)
	require.NoError(t, err)

	entries := testutil.ReadEntries(t, "tar.gz", sink.Bytes())
	assert.Equal(t, []string{"z-first.txt", "middle-part.txt", "a-last.txt"}, testutil.EntryNames(entries))
}

func TestDeflate_ErrorPolicy(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)

	tests := []struct {
		name        string
		stopOnError bool
		skipOnError bool
		wantNames   []string
		wantStatus  compression.Status
	}{
		{name: "placeholder", wantNames: []string{"broken.bin", "text.txt"}, wantStatus: compression.StatusPlaceholder},
		{name: "skip", skipOnError: true, wantNames: []string{"text.txt"}, wantStatus: compression.StatusSkipped},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			opts := compression.DefaultOptions()
			opts.StopOnError = tt.stopOnError
			opts.SkipOnError = tt.skipOnError

			sink := testutil.NewSink()
			outcome, err := newHelper().Deflate(context.Background(), compression.Args{
				Resources: []resource.Descriptor{
					{Kind: resource.KindHTTP, Source: fx.url("/broken"), Target: "broken", Extension: "bin"},
					{Kind: resource.KindHTTP, Source: fx.url("/text"), Target: "text"},
				},
				Writer: sink,
			}, opts)
			require.NoError(t, err)

			entries := testutil.ReadEntries(t, "zip", sink.Bytes())
			require.Equal(t, tt.wantNames, testutil.EntryNames(entries))
			if tt.wantStatus == compression.StatusPlaceholder {
				assert.Empty(t, entries[0].Content)
			}
			require.Len(t, outcome.Results, 2)
			assert.Equal(t, tt.wantStatus, outcome.Results[0].Status)
			assert.Contains(t, outcome.Results[0].Cause, string(issue.HttpResourceRespStatusIsNotOk))
		})
	}
}

func TestDeflate_PlaceholderIsNotSniffed(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	sink := testutil.NewSink()
	_, err := newHelper().Deflate(context.Background(), compression.Args{
		Resources: []resource.Descriptor{{Kind: resource.KindHTTP, Source: fx.url("/broken"), Target: "report"}},
		Writer:    sink,
	}, compression.DefaultOptions())
	require.NoError(t, err)

	entries := testutil.ReadEntries(t, "zip", sink.Bytes())
	assert.Equal(t, []testutil.Entry{{Name: "report", Content: ""}}, entries)
}

func TestDeflate_StopOnErrorAborts(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	opts := compression.DefaultOptions()
	opts.StopOnError = true
	opts.Language = "vi-VN"

	sink := testutil.NewSink()
	job := newHelper().NewJob(compression.Args{
		Resources: []resource.Descriptor{
			{Kind: resource.KindHTTP, Source: fx.url("/text"), Target: "first"},
			{Kind: resource.KindHTTP, Source: fx.url("/broken"), Target: "broken"},
			{Kind: resource.KindHTTP, Source: fx.url("/logo"), Target: "never"},
		},
		Writer: sink,
	}, opts)

	outcome, err := job.Run(context.Background())
	assert.Nil(t, outcome)

	var ie *issue.Error
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, issue.HttpResourceRespStatusIsNotOk, ie.Kind)
	assert.Equal(t, 10003, ie.ReturnCode)
	assert.Equal(t, 400, ie.StatusCode)
	assert.Equal(t, "Tài nguyên HTTP trả về mã trạng thái lỗi", ie.Message)
	assert.Equal(t, http.StatusInternalServerError, ie.Detail["statusCode"])

	assert.Equal(t, compression.StateFailed, job.State())
	assert.Equal(t, 1, sink.Closes())
	assert.Equal(t, int32(2), fx.hits.Load(), "descriptors after the failure must not be fetched")
}

func TestDeflate_InvalidSink(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	resources := []resource.Descriptor{{Kind: resource.KindHTTP, Source: fx.url("/text")}}

	for _, w := range []io.Writer{nil, &bytes.Buffer{}} {
		job := newHelper().NewJob(compression.Args{Resources: resources, Writer: w}, compression.DefaultOptions())
		outcome, err := job.Run(context.Background())
		assert.Nil(t, outcome)

		var ie *issue.Error
		require.ErrorAs(t, err, &ie)
		assert.Equal(t, issue.InvalidStreamWriter, ie.Kind)
		assert.Equal(t, 10001, ie.ReturnCode)
		assert.Equal(t, compression.StateFailed, job.State())
	}
	assert.Zero(t, fx.hits.Load(), "no resource may be acquired before the sink is accepted")
}

func TestDeflate_InvalidOptions(t *testing.T) {
	t.Parallel()

	opts := compression.DefaultOptions()
	opts.CompressionLevel = 11
	opts.Format = "rar"

	sink := testutil.NewSink()
	_, err := newHelper().Deflate(context.Background(), compression.Args{Writer: sink}, opts)
	assert.Equal(t, issue.InvalidJobOptions, issue.KindOf(err))
	assert.ErrorIs(t, err, archive.ErrInvalidLevel)
	assert.ErrorIs(t, err, archive.ErrInvalidFormat)
	assert.Equal(t, 1, sink.Closes(), "an accepted sink is closed even when options are rejected")
	assert.Empty(t, sink.Bytes())
}

func TestDeflate_UnsupportedKind(t *testing.T) {
	t.Parallel()

	resources := []resource.Descriptor{
		{Kind: "ftp", Source: "ftp://example.com/x"},
		{Kind: resource.KindFile, Source: testutil.MustWriteFile(t, filepath.Join(t.TempDir(), "keep.txt"), "k")},
	}

	t.Run("skipped without stop on error", func(t *testing.T) {
		t.Parallel()

		sink := testutil.NewSink()
		outcome, err := newHelper().Deflate(context.Background(), compression.Args{Resources: resources, Writer: sink}, compression.DefaultOptions())
		require.NoError(t, err)
		assert.Equal(t, []string{"keep.txt"}, testutil.EntryNames(testutil.ReadEntries(t, "zip", sink.Bytes())))
		assert.Equal(t, compression.StatusSkipped, outcome.Results[0].Status)
	})

	t.Run("fails with stop on error", func(t *testing.T) {
		t.Parallel()

		opts := compression.DefaultOptions()
		opts.StopOnError = true
		sink := testutil.NewSink()
		_, err := newHelper().Deflate(context.Background(), compression.Args{Resources: resources, Writer: sink}, opts)
		assert.Equal(t, issue.ResourceTypeUnsupported, issue.KindOf(err))
		assert.Equal(t, 1, sink.Closes())
	})
}

func TestDeflate_LocalPaths(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(root, "assets", "b.css"), "b")
	testutil.MustWriteFile(t, filepath.Join(root, "assets", "img", "a.svg"), "a")
	notes := testutil.MustWriteFile(t, filepath.Join(root, "Notes.TXT"), "n")

	sink := testutil.NewSink()
	opts := compression.DefaultOptions()
	opts.LetterCase = "upper"
	outcome, err := newHelper().Deflate(context.Background(), compression.Args{
		Resources: []resource.Descriptor{
			{Kind: resource.KindDirectory, Source: filepath.Join(root, "assets"), Target: "Static Files/v1"},
			{Kind: resource.KindFile, Source: filepath.Join(root, "missing.txt")},
			{Kind: resource.KindFile, Source: notes, Target: "Release Notes"},
		},
		Writer: sink,
	}, opts)
	require.NoError(t, err)

	entries := testutil.ReadEntries(t, "zip", sink.Bytes())
	assert.Equal(t, []string{"STATIC-FILES/V1/b.css", "STATIC-FILES/V1/img/a.svg", "RELEASE-NOTES.TXT"}, testutil.EntryNames(entries))
	assert.Equal(t, compression.StatusMissing, outcome.Results[1].Status)
	assert.Equal(t, 3, outcome.Entries)
}

func TestDeflate_ResponseWriterSink(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	rec := httptest.NewRecorder()
	_, err := newHelper().Deflate(context.Background(), compression.Args{
		Resources: []resource.Descriptor{{Kind: "href", Source: fx.url("/logo")}},
		Writer:    rec,
	}, compression.DefaultOptions())
	require.NoError(t, err)

	assert.True(t, rec.Flushed)
	entries := testutil.ReadEntries(t, "zip", rec.Body.Bytes())
	assert.Equal(t, []string{"logo.png"}, testutil.EntryNames(entries))
}

func TestDeflate_ContextCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sink := testutil.NewSink()
	_, err := newHelper().Deflate(ctx, compression.Args{
		Resources: []resource.Descriptor{{Kind: resource.KindFile, Source: "whatever"}},
		Writer:    sink,
	}, compression.DefaultOptions())
	assert.Equal(t, issue.ArchiveFailed, issue.KindOf(err))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, sink.Closes())
}

func TestDeflate_SinkFailure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	big := testutil.MustWriteFile(t, filepath.Join(dir, "big.txt"), string(bytes.Repeat([]byte("q"), 256<<10)))

	opts := compression.DefaultOptions()
	opts.CompressionLevel = compression.LevelStore
	sink := testutil.NewFailingSink(1024)
	_, err := newHelper().Deflate(context.Background(), compression.Args{
		Resources: []resource.Descriptor{{Kind: resource.KindFile, Source: big}},
		Writer:    sink,
	}, opts)

	var ie *issue.Error
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, issue.ArchiveFailed, ie.Kind)
	assert.Equal(t, 500, ie.StatusCode)
	assert.True(t, errors.Is(err, testutil.ErrSinkBroken))
	assert.Equal(t, 1, sink.Closes())
}

func TestJob_RunOnce(t *testing.T) {
	t.Parallel()

	job := newHelper().NewJob(compression.Args{Writer: testutil.NewSink()}, compression.DefaultOptions())
	assert.Equal(t, compression.StateIdle, job.State())

	outcome, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, outcome.Entries)
	assert.Equal(t, compression.StateCompleted, job.State())

	_, err = job.Run(context.Background())
	assert.ErrorIs(t, err, compression.ErrJobStarted)
}
