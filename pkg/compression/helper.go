// SPDX-License-Identifier: MPL-2.0

package compression

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/apporo/app-compression/internal/fetch"
	"github.com/apporo/app-compression/internal/issue"
)

type (
	// Helper runs compression jobs. It is safe for concurrent use: every job
	// owns its archive writer, spool files and outcome.
	Helper struct {
		logger  *log.Logger
		catalog *issue.Catalog
		fetcher *fetch.Fetcher
	}

	// Option configures a Helper during construction.
	Option func(*Helper)
)

// WithLogger sets the base logger. Each job derives a child logger carrying
// its request id.
func WithLogger(l *log.Logger) Option {
	return func(h *Helper) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithCatalog sets the error registry.
func WithCatalog(c *issue.Catalog) Option {
	return func(h *Helper) {
		if c != nil {
			h.catalog = c
		}
	}
}

// WithFetcher sets the remote resource fetcher.
func WithFetcher(f *fetch.Fetcher) Option {
	return func(h *Helper) {
		if f != nil {
			h.fetcher = f
		}
	}
}

// New creates a Helper. Without WithFetcher a default fetcher sharing the
// helper's logger and catalog is used.
func New(opts ...Option) *Helper {
	h := &Helper{
		logger:  log.Default(),
		catalog: issue.DefaultCatalog(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.fetcher == nil {
		h.fetcher = fetch.New(fetch.WithLogger(h.logger), fetch.WithCatalog(h.catalog))
	}
	return h
}

// Catalog returns the error registry used by the helper.
func (h *Helper) Catalog() *issue.Catalog {
	return h.catalog
}

// Deflate writes every descriptor of args.Resources into one archive streamed
// to args.Writer. It returns an Outcome on success, or exactly one typed
// *issue.Error. Once the writer has been accepted it is closed on every path.
func (h *Helper) Deflate(ctx context.Context, args Args, opts Options) (*Outcome, error) {
	return h.NewJob(args, opts).Run(ctx)
}
