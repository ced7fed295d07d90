// SPDX-License-Identifier: EPL-2.0

package issue

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
)

const (
	// InvalidStreamWriter is raised when the output sink is not a writable stream.
	InvalidStreamWriter Kind = "InvalidStreamWriter"
	// ResourceTypeUnsupported is raised when a descriptor kind is not recognized.
	ResourceTypeUnsupported Kind = "ResourceTypeUnsupported"
	// HttpResourceRespStatusIsNotOk is raised when an HTTP resource answers with a
	// non-success status or cannot be reached at all.
	HttpResourceRespStatusIsNotOk Kind = "HttpResourceRespStatusIsNotOk" //nolint:revive // registry name
	// HttpResourceRespBodyIsInvalid is raised when an HTTP response has no readable body.
	HttpResourceRespBodyIsInvalid Kind = "HttpResourceRespBodyIsInvalid" //nolint:revive // registry name
	// InvalidJobOptions is raised when job options fail validation.
	InvalidJobOptions Kind = "InvalidJobOptions"
	// ArchiveFailed wraps fatal archive encoder errors and escalated warnings.
	ArchiveFailed Kind = "ArchiveFailed"

	// DefaultLanguage is the language used when a message has no translation.
	DefaultLanguage = "en"
)

type (
	// Kind is the stable symbolic name of an error in the registry.
	Kind string

	// Entry is one registry record.
	Entry struct {
		Kind       Kind
		ReturnCode int
		StatusCode int
		// Messages maps a language code to the message text. The DefaultLanguage
		// entry must always be present.
		Messages map[string]string
	}

	// Payload carries the caller language and arbitrary structured detail
	// attached to an error.
	Payload struct {
		Language string
		Detail   map[string]any
	}

	// Override replaces parts of an Entry. Zero values leave the entry unchanged.
	Override struct {
		Message    string
		ReturnCode int
		StatusCode int
	}

	// Catalog is the error-code registry. It is immutable after construction and
	// safe for concurrent use.
	Catalog struct {
		entries map[Kind]Entry
	}

	// Error is a typed job error produced by a Catalog.
	Error struct {
		Kind       Kind
		ReturnCode int
		StatusCode int
		Message    string
		Language   string
		Detail     map[string]any
		Cause      error
	}
)

var (
	defaultEntries = []Entry{
		{
			Kind: InvalidStreamWriter, ReturnCode: 10001, StatusCode: 400,
			Messages: map[string]string{
				"en": "The writer must be a writable stream",
				"vi": "Đối tượng ghi phải là một luồng ghi được",
			},
		},
		{
			Kind: ResourceTypeUnsupported, ReturnCode: 10002, StatusCode: 400,
			Messages: map[string]string{
				"en": "The resource type is unsupported",
				"vi": "Loại tài nguyên không được hỗ trợ",
			},
		},
		{
			Kind: HttpResourceRespStatusIsNotOk, ReturnCode: 10003, StatusCode: 400,
			Messages: map[string]string{
				"en": "The HTTP resource return an error status code",
				"vi": "Tài nguyên HTTP trả về mã trạng thái lỗi",
			},
		},
		{
			Kind: HttpResourceRespBodyIsInvalid, ReturnCode: 10004, StatusCode: 400,
			Messages: map[string]string{
				"en": "The HTTP resource return an invalid response body",
				"vi": "Tài nguyên HTTP trả về nội dung không hợp lệ",
			},
		},
		{
			Kind: InvalidJobOptions, ReturnCode: 10005, StatusCode: 400,
			Messages: map[string]string{
				"en": "The compression options are invalid",
				"vi": "Tùy chọn nén không hợp lệ",
			},
		},
		{
			Kind: ArchiveFailed, ReturnCode: 10006, StatusCode: 500,
			Messages: map[string]string{
				"en": "The archive could not be written",
				"vi": "Không thể ghi tệp nén",
			},
		},
	}

	defaultCatalog = sync.OnceValue(func() *Catalog {
		return NewCatalog(nil)
	})

	render = glamour.Render
)

// DefaultCatalog returns the built-in registry without overrides.
func DefaultCatalog() *Catalog {
	return defaultCatalog()
}

// NewCatalog builds a registry from the built-in entries with the given overrides
// applied. Overrides for unknown kinds are ignored; an override message replaces
// the default-language text only.
func NewCatalog(overrides map[Kind]Override) *Catalog {
	c := &Catalog{entries: make(map[Kind]Entry, len(defaultEntries))}
	for _, e := range defaultEntries {
		e.Messages = maps.Clone(e.Messages)
		if o, ok := overrides[e.Kind]; ok {
			if o.Message != "" {
				e.Messages[DefaultLanguage] = o.Message
			}
			if o.ReturnCode != 0 {
				e.ReturnCode = o.ReturnCode
			}
			if o.StatusCode != 0 {
				e.StatusCode = o.StatusCode
			}
		}
		c.entries[e.Kind] = e
	}
	return c
}

// Lookup returns the entry registered for kind.
func (c *Catalog) Lookup(kind Kind) (Entry, bool) {
	e, ok := c.entries[kind]
	return e, ok
}

// Kinds returns the registered kinds ordered by return code.
func (c *Catalog) Kinds() []Kind {
	kinds := slices.Collect(maps.Keys(c.entries))
	slices.SortFunc(kinds, func(a, b Kind) int {
		return c.entries[a].ReturnCode - c.entries[b].ReturnCode
	})
	return kinds
}

// NewError builds a typed error for kind. The message is taken from the
// payload language when a translation exists. Unknown kinds produce an error
// with a zero return code and the kind name as message.
func (c *Catalog) NewError(kind Kind, payload Payload) *Error {
	lang := payload.Language
	if lang == "" {
		lang = DefaultLanguage
	}
	e := &Error{Kind: kind, Language: lang, Detail: payload.Detail, Message: string(kind)}
	entry, ok := c.entries[kind]
	if !ok {
		return e
	}
	e.ReturnCode = entry.ReturnCode
	e.StatusCode = entry.StatusCode
	e.Message = entry.message(lang)
	return e
}

// Wrap is NewError with a cause attached.
func (c *Catalog) Wrap(kind Kind, payload Payload, cause error) *Error {
	e := c.NewError(kind, payload)
	e.Cause = cause
	return e
}

// Markdown renders the registry as a markdown table.
func (c *Catalog) Markdown(lang string) string {
	var sb strings.Builder
	sb.WriteString("# Error codes\n\n")
	sb.WriteString("| Name | Return code | Status | Message |\n")
	sb.WriteString("|---|---|---|---|\n")
	for _, kind := range c.Kinds() {
		e := c.entries[kind]
		fmt.Fprintf(&sb, "| `%s` | %d | %d | %s |\n", kind, e.ReturnCode, e.StatusCode, e.message(lang))
	}
	return sb.String()
}

// Render renders the registry markdown for a terminal using the given glamour style.
func (c *Catalog) Render(lang, stylePath string) (string, error) {
	return render(c.Markdown(lang), stylePath)
}

func (e Entry) message(lang string) string {
	if msg, ok := e.Messages[lang]; ok {
		return msg
	}
	// "vi-VN" falls back to "vi" before the default language.
	if base, _, found := strings.Cut(lang, "-"); found {
		if msg, ok := e.Messages[base]; ok {
			return msg
		}
	}
	return e.Messages[DefaultLanguage]
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s (%d): %s", e.Kind, e.ReturnCode, e.Message)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same kind, so that
// errors.Is(err, &issue.Error{Kind: k}) matches regardless of codes or message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
