// SPDX-License-Identifier: MPL-2.0

package resource

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const (
	// KindFile is a single local file appended by path.
	KindFile Kind = "file"
	// KindDirectory is a local directory appended recursively.
	KindDirectory Kind = "directory"
	// KindHTTP is a remote resource fetched over HTTP(S).
	KindHTTP Kind = "http"

	// kindHref is the legacy spelling of KindHTTP.
	kindHref Kind = "href"
)

// ErrInvalidKind is the sentinel error wrapped by InvalidKindError.
var ErrInvalidKind = errors.New("invalid resource kind")

type (
	// Kind selects how a descriptor is acquired. The set is closed: any other
	// value is unsupported and handled by the job's error policy.
	Kind string

	// InvalidKindError is returned when a Kind value is not recognized.
	// It wraps ErrInvalidKind for errors.Is() compatibility.
	InvalidKindError struct {
		Value Kind
	}

	// HTTPOptions are request settings for KindHTTP descriptors.
	HTTPOptions struct {
		// Method defaults to GET.
		Method  string            `json:"method,omitempty" yaml:"method,omitempty"`
		Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
		Body    string            `json:"body,omitempty" yaml:"body,omitempty"`
	}

	// Descriptor is one input resource of a job. Descriptors are read-only to
	// the compression engine.
	Descriptor struct {
		Kind Kind `json:"type" yaml:"type"`
		// Source is a filesystem path or a URL.
		Source string `json:"source" yaml:"source"`
		// Target is the desired entry name. It is slugified and extended before
		// use. For directories it renames the root inside the archive; when
		// empty the directory contents are placed at the archive root.
		Target string `json:"target,omitempty" yaml:"target,omitempty"`
		// Extension overrides extension detection (without the leading dot).
		Extension string `json:"extension,omitempty" yaml:"extension,omitempty"`
		// Options only apply to KindHTTP.
		Options *HTTPOptions `json:"options,omitempty" yaml:"options,omitempty"`
	}
)

// Error implements the error interface.
func (e *InvalidKindError) Error() string {
	return fmt.Sprintf("invalid resource kind %q (valid: file, directory, http)", e.Value)
}

// Unwrap returns ErrInvalidKind for errors.Is() compatibility.
func (e *InvalidKindError) Unwrap() error {
	return ErrInvalidKind
}

// Normalize maps legacy and mixed-case spellings onto the canonical kinds.
// Unknown values are returned lower-cased and trimmed.
func (k Kind) Normalize() Kind {
	n := Kind(strings.ToLower(strings.TrimSpace(string(k))))
	if n == kindHref {
		return KindHTTP
	}
	return n
}

// Validate returns nil when k (after normalization) is a supported kind.
func (k Kind) Validate() error {
	switch k.Normalize() {
	case KindFile, KindDirectory, KindHTTP:
		return nil
	default:
		return &InvalidKindError{Value: k}
	}
}

// String returns the kind as written.
func (k Kind) String() string {
	return string(k)
}

// method returns the request method, GET when unset.
func (o *HTTPOptions) method() string {
	if o == nil || o.Method == "" {
		return http.MethodGet
	}
	return strings.ToUpper(o.Method)
}

// RequestMethod returns the HTTP method to use for d.
func (d Descriptor) RequestMethod() string {
	return d.Options.method()
}

// RequestHeaders returns the configured request headers (possibly nil).
func (d Descriptor) RequestHeaders() map[string]string {
	if d.Options == nil {
		return nil
	}
	return d.Options.Headers
}

// RequestBody returns the configured request body ("" when unset).
func (d Descriptor) RequestBody() string {
	if d.Options == nil {
		return ""
	}
	return d.Options.Body
}

// String renders the descriptor for log lines.
func (d Descriptor) String() string {
	return fmt.Sprintf("%s:%s", d.Kind, d.Source)
}
