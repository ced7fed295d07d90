// SPDX-License-Identifier: MPL-2.0

package fetch

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/apporo/app-compression/internal/issue"
	"github.com/apporo/app-compression/pkg/resource"
)

// DefaultUserAgent is sent when no User-Agent is configured.
const DefaultUserAgent = "app-compression/dev"

// ErrNotRemote is returned when Acquire is called for a local descriptor.
var ErrNotRemote = errors.New("descriptor is not a remote resource")

type (
	// Fetcher issues HTTP requests for http descriptors. It holds no per-job
	// state and is safe for concurrent use.
	Fetcher struct {
		httpClient *http.Client
		userAgent  string
		catalog    *issue.Catalog
		logger     *log.Logger
	}

	// Option configures a Fetcher during construction.
	Option func(*Fetcher)

	// Policy is the part of the job configuration that decides whether an
	// acquisition failure is returned or replaced by a placeholder.
	Policy struct {
		StopOnError bool
		// Language selects the message language of typed errors.
		Language string
	}

	// Content is an acquired resource body.
	Content struct {
		// Reader yields the body from its first byte.
		Reader io.Reader
		// Placeholder is true when Reader is an empty stand-in for a failed
		// acquisition; Cause then holds the typed failure.
		Placeholder bool
		Cause       error

		closer io.Closer
	}
)

// WithHTTPClient sets a custom HTTP client, useful for tests or proxy configurations.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		if c != nil {
			f.httpClient = c
		}
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithCatalog sets the error registry used to build typed errors.
func WithCatalog(c *issue.Catalog) Option {
	return func(f *Fetcher) {
		if c != nil {
			f.catalog = c
		}
	}
}

// WithLogger sets the logger for request diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(f *Fetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// New creates a Fetcher.
// Defaults: httpClient=http.DefaultClient, userAgent=DefaultUserAgent,
// catalog=issue.DefaultCatalog(), logger=log.Default().
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		httpClient: http.DefaultClient,
		userAgent:  DefaultUserAgent,
		catalog:    issue.DefaultCatalog(),
		logger:     log.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Placeholder returns empty content standing in for a failed acquisition.
// Every call returns a fresh reader.
func Placeholder(cause error) *Content {
	return &Content{Reader: strings.NewReader(""), Placeholder: true, Cause: cause}
}

// Close releases the underlying response body, if any.
func (c *Content) Close() error {
	if c == nil || c.closer == nil {
		return nil
	}
	return c.closer.Close()
}

// Acquire fetches d. A non-2xx status, a transport failure or an unreadable
// body produce a typed *issue.Error; with p.StopOnError it is returned,
// otherwise it is carried by a placeholder Content. Context cancellation is
// always returned as is. The caller must Close the returned Content.
func (f *Fetcher) Acquire(ctx context.Context, d resource.Descriptor, p Policy) (*Content, error) {
	if d.Kind.Normalize() != resource.KindHTTP {
		return nil, fmt.Errorf("%w: %s", ErrNotRemote, d)
	}

	content, err := f.fetch(ctx, d, p.Language)
	if err == nil {
		return content, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if p.StopOnError {
		return nil, err
	}
	f.logger.Debug("substituting placeholder", "url", redactURL(d.Source), "error", err)
	return Placeholder(err), nil
}

func (f *Fetcher) fetch(ctx context.Context, d resource.Descriptor, lang string) (*Content, error) {
	detail := map[string]any{
		"url":    redactURL(d.Source),
		"method": d.RequestMethod(),
	}

	resp, err := f.doRequest(ctx, d)
	if err != nil {
		detail["statusCode"] = 0
		return nil, f.catalog.Wrap(issue.HttpResourceRespStatusIsNotOk, issue.Payload{Language: lang, Detail: detail}, err)
	}
	detail["statusCode"] = resp.StatusCode

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		if resp.Body != nil {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
			_ = resp.Body.Close()
		}
		return nil, f.catalog.NewError(issue.HttpResourceRespStatusIsNotOk, issue.Payload{Language: lang, Detail: detail})
	}

	if resp.Body == nil {
		return nil, f.catalog.NewError(issue.HttpResourceRespBodyIsInvalid, issue.Payload{Language: lang, Detail: detail})
	}
	// An empty body is valid; a body that fails on its first read is not.
	body := bufio.NewReader(resp.Body)
	if _, peekErr := body.Peek(1); peekErr != nil && !errors.Is(peekErr, io.EOF) {
		_ = resp.Body.Close()
		return nil, f.catalog.Wrap(issue.HttpResourceRespBodyIsInvalid, issue.Payload{Language: lang, Detail: detail}, peekErr)
	}

	f.logger.Debug("resource fetched", "url", detail["url"], "status", resp.StatusCode, "contentType", resp.Header.Get("Content-Type"))
	return &Content{Reader: body, closer: resp.Body}, nil
}

// doRequest creates and executes the request described by d.
func (f *Fetcher) doRequest(ctx context.Context, d resource.Descriptor) (*http.Response, error) {
	var body io.Reader = http.NoBody
	if b := d.RequestBody(); b != "" {
		body = strings.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, d.RequestMethod(), d.Source, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	for k, v := range d.RequestHeaders() {
		req.Header.Set(k, v)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	return resp, nil
}

// redactURL strips query parameters and fragments from a URL for safe inclusion
// in error payloads and logs.
func redactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid-url>"
	}
	u.RawQuery = ""
	u.Fragment = ""
	u.User = nil
	return u.String()
}
