// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/apporo/app-compression/internal/issue"
	"github.com/apporo/app-compression/pkg/archive"
	"github.com/apporo/app-compression/pkg/compression"
	"github.com/apporo/app-compression/pkg/naming"
	"github.com/apporo/app-compression/pkg/resource"
)

const (
	// DefaultAddr is the listen address of the serve command.
	DefaultAddr = "127.0.0.1:8080"
	// DefaultMaxBody bounds the request manifest size.
	DefaultMaxBody int64 = 1 << 20

	requestIDHeader = "X-Request-Id"
	shutdownTimeout = 10 * time.Second
)

type (
	serveFlags struct {
		addr    string
		maxBody int64
	}

	// deflateHandler streams the archive for a POSTed manifest straight into
	// the response body.
	deflateHandler struct {
		helper   *compression.Helper
		defaults compression.Options
		maxBody  int64
		logger   *log.Logger
	}

	// trackingWriter records whether any response bytes were sent so an error
	// can still be reported as JSON.
	trackingWriter struct {
		http.ResponseWriter
		wrote bool
	}

	errorBody struct {
		Name       string         `json:"name"`
		ReturnCode int            `json:"returnCode,omitempty"`
		StatusCode int            `json:"statusCode"`
		Message    string         `json:"message"`
		Payload    map[string]any `json:"payload,omitempty"`
	}
)

func newServeCommand(app *App, global *globalFlags) *cobra.Command {
	f := &serveFlags{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve archives over HTTP",
		Long: `Serve archives over HTTP.

POST /deflate with a JSON manifest body ({"resources": [...]}) streams the
archive back. Query parameters override configured job options:
format, level, stop_on_error, skip_on_error, letter_case, locale, lang.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), app, global, f)
		},
	}

	cmd.Flags().StringVar(&f.addr, "addr", DefaultAddr, "listen address")
	cmd.Flags().Int64Var(&f.maxBody, "max-body", DefaultMaxBody, "maximum manifest size in bytes")

	return cmd
}

func runServe(ctx context.Context, app *App, global *globalFlags, f *serveFlags) error {
	cfg, _, err := app.loadConfig(ctx, global)
	if err != nil {
		return &ExitError{Code: ExitUsage, Err: err}
	}
	logger := app.newLogger(global)
	helper, err := app.newHelper(cfg, logger)
	if err != nil {
		return &ExitError{Code: ExitUsage, Err: err}
	}

	listener, err := net.Listen("tcp", f.addr)
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("start server").
			WithResource(f.addr).
			WithSuggestion("Choose a free port with --addr").
			Wrap(err).
			BuildError()
	}

	srv := &http.Server{
		Handler:           newServeMux(newDeflateHandler(helper, cfg.JobOptions(), f.maxBody, logger)),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Warn("server shutdown", "err", shutdownErr)
		}
	}()

	logger.Info("listening", "addr", listener.Addr().String())
	if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func newServeMux(h http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/deflate", h)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, "ok\n")
	})
	return mux
}

func newDeflateHandler(helper *compression.Helper, defaults compression.Options, maxBody int64, logger *log.Logger) *deflateHandler {
	if maxBody <= 0 {
		maxBody = DefaultMaxBody
	}
	return &deflateHandler{helper: helper, defaults: defaults, maxBody: maxBody, logger: logger}
}

func (h *deflateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeErrorBody(w, errorBody{
			Name:       "MethodNotAllowed",
			StatusCode: http.StatusMethodNotAllowed,
			Message:    "use POST",
		})
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		status := http.StatusBadRequest
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			status = http.StatusRequestEntityTooLarge
		}
		writeErrorBody(w, errorBody{Name: "InvalidRequest", StatusCode: status, Message: err.Error()})
		return
	}
	manifest, err := resource.ParseManifest(data, resource.FormatJSON, "request body")
	if err != nil {
		writeErrorBody(w, errorBody{Name: "InvalidRequest", StatusCode: http.StatusBadRequest, Message: err.Error()})
		return
	}

	opts, err := optionsFromQuery(r.URL.Query(), h.defaults)
	if err == nil {
		err = opts.Validate()
	}
	if err != nil {
		writeJobError(w, h.helper.Catalog().Wrap(issue.InvalidJobOptions, issue.Payload{Language: opts.Language}, err))
		return
	}
	opts.RequestID = r.Header.Get(requestIDHeader)
	if opts.RequestID == "" {
		opts.RequestID = uuid.NewString()
	}

	header := w.Header()
	header.Set(requestIDHeader, opts.RequestID)
	header.Set("Content-Type", opts.Format.ContentType())
	header.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "archive"+opts.Format.Extension()))

	tw := &trackingWriter{ResponseWriter: w}
	outcome, err := h.helper.Deflate(r.Context(), compression.Args{Resources: manifest.Resources, Writer: tw}, opts)
	if err != nil {
		if tw.wrote {
			// Headers are gone; the client sees a truncated archive.
			h.logger.Error("archive truncated", "requestId", opts.RequestID, "err", err)
			return
		}
		header.Del("Content-Type")
		header.Del("Content-Disposition")
		writeJobError(w, err)
		return
	}
	h.logger.Debug("archive served", "requestId", outcome.RequestID, "bytes", outcome.Bytes)
}

// optionsFromQuery overrides opts with the query parameters that are present.
func optionsFromQuery(q url.Values, opts compression.Options) (compression.Options, error) {
	if q.Has("lang") {
		opts.Language = q.Get("lang")
	}
	if q.Has("format") {
		opts.Format = archive.Format(q.Get("format"))
	}
	if q.Has("letter_case") {
		opts.LetterCase = naming.LetterCase(q.Get("letter_case"))
	}
	if q.Has("locale") {
		opts.Locale = q.Get("locale")
	}
	if q.Has("level") {
		level, err := strconv.Atoi(q.Get("level"))
		if err != nil {
			return opts, fmt.Errorf("level: %w", err)
		}
		opts.CompressionLevel = compression.UserLevel(level)
	}
	for _, b := range []struct {
		key string
		dst *bool
	}{
		{"stop_on_error", &opts.StopOnError},
		{"skip_on_error", &opts.SkipOnError},
	} {
		if !q.Has(b.key) {
			continue
		}
		v, err := strconv.ParseBool(q.Get(b.key))
		if err != nil {
			return opts, fmt.Errorf("%s: %w", b.key, err)
		}
		*b.dst = v
	}
	return opts, nil
}

func (t *trackingWriter) Write(p []byte) (int, error) {
	if len(p) > 0 {
		t.wrote = true
	}
	return t.ResponseWriter.Write(p)
}

func (t *trackingWriter) WriteHeader(code int) {
	t.wrote = true
	t.ResponseWriter.WriteHeader(code)
}

// FlushError flushes the underlying writer once archive bytes were sent.
// Before that a flush would commit the archive headers and the error
// response could no longer be written.
func (t *trackingWriter) FlushError() error {
	if !t.wrote {
		return nil
	}
	return http.NewResponseController(t.ResponseWriter).Flush()
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (t *trackingWriter) Unwrap() http.ResponseWriter {
	return t.ResponseWriter
}

func writeJobError(w http.ResponseWriter, err error) {
	var jobErr *issue.Error
	if !errors.As(err, &jobErr) {
		writeErrorBody(w, errorBody{Name: "InternalError", StatusCode: http.StatusInternalServerError, Message: err.Error()})
		return
	}
	body := errorBody{
		Name:       string(jobErr.Kind),
		ReturnCode: jobErr.ReturnCode,
		StatusCode: jobErr.StatusCode,
		Message:    jobErr.Message,
		Payload:    maps.Clone(jobErr.Detail),
	}
	if jobErr.Cause != nil {
		if body.Payload == nil {
			body.Payload = make(map[string]any, 1)
		}
		body.Payload["cause"] = jobErr.Cause.Error()
	}
	writeErrorBody(w, body)
}

func writeErrorBody(w http.ResponseWriter, body errorBody) {
	if body.StatusCode == 0 {
		body.StatusCode = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(body.StatusCode)
	_ = json.NewEncoder(w).Encode(body)
}
