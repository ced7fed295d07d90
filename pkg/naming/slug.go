// SPDX-License-Identifier: MPL-2.0

package naming

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	// CaseLower lower-cases slugs (default).
	CaseLower LetterCase = "lower"
	// CaseUpper upper-cases slugs.
	CaseUpper LetterCase = "upper"
	// CaseIgnore keeps the letter case of the input.
	CaseIgnore LetterCase = "ignore"

	// DefaultLocale is used when Options.Locale is empty or unparsable.
	DefaultLocale = "en"
)

// ErrInvalidLetterCase is the sentinel error wrapped by InvalidLetterCaseError.
var ErrInvalidLetterCase = errors.New("invalid letter case")

// transliterations covers letters that have no canonical decomposition and
// therefore survive mark stripping.
var transliterations = map[rune]string{
	'đ': "d", 'Đ': "D",
	'ø': "o", 'Ø': "O",
	'ł': "l", 'Ł': "L",
	'ß': "ss", 'ẞ': "SS",
	'æ': "ae", 'Æ': "AE",
	'œ': "oe", 'Œ': "OE",
	'þ': "th", 'Þ': "TH",
	'ð': "d", 'Ð': "D",
	'ı': "i",
}

type (
	// LetterCase selects the case applied to slugs.
	LetterCase string

	// InvalidLetterCaseError is returned when a LetterCase value is not recognized.
	// It wraps ErrInvalidLetterCase for errors.Is() compatibility.
	InvalidLetterCaseError struct {
		Value LetterCase
	}

	// Options control slugification.
	Options struct {
		// Locale is a BCP 47 tag used for case mapping (e.g. "vi", "tr").
		Locale string
		// Case defaults to CaseLower.
		Case LetterCase
	}
)

// Error implements the error interface.
func (e *InvalidLetterCaseError) Error() string {
	return fmt.Sprintf("invalid letter case %q (valid: lower, upper, ignore)", e.Value)
}

// Unwrap returns ErrInvalidLetterCase for errors.Is() compatibility.
func (e *InvalidLetterCaseError) Unwrap() error {
	return ErrInvalidLetterCase
}

// Validate returns nil for the three supported cases and for the zero value.
func (c LetterCase) Validate() error {
	switch c {
	case "", CaseLower, CaseUpper, CaseIgnore:
		return nil
	default:
		return &InvalidLetterCaseError{Value: c}
	}
}

// Slugify normalizes s into a filesystem and URL safe name. Letters, digits,
// '.', '_' and '-' are kept; every other run of characters becomes one '-'.
// Leading and trailing hyphens are dropped, and a result made only of dots
// is empty.
func Slugify(s string, opts Options) string {
	s = stripMarks(applyCase(s, opts))

	var sb strings.Builder
	sb.Grow(len(s))
	pendingHyphen := false
	for _, r := range s {
		if keep(r) {
			if pendingHyphen && sb.Len() > 0 {
				sb.WriteByte('-')
			}
			pendingHyphen = false
			sb.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}

	out := strings.Trim(sb.String(), "-")
	// Collapse hyphen runs that came from the input itself ("a--b").
	for strings.Contains(out, "--") {
		out = strings.ReplaceAll(out, "--", "-")
	}
	if strings.Trim(out, ".") == "" {
		return ""
	}
	return out
}

// SlugifyPath slugifies each '/'-separated segment of p, dropping empty ones.
func SlugifyPath(p string, opts Options) string {
	parts := strings.Split(strings.ReplaceAll(p, "\\", "/"), "/")
	out := parts[:0]
	for _, part := range parts {
		if part == "." || part == ".." {
			continue
		}
		if s := Slugify(part, opts); s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, "/")
}

func keep(r rune) bool {
	switch {
	case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
		return true
	case r == '.' || r == '_' || r == '-':
		return true
	default:
		return false
	}
}

func stripMarks(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if t, ok := transliterations[r]; ok {
			sb.WriteString(t)
			continue
		}
		sb.WriteRune(r)
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, sb.String())
	if err != nil {
		return sb.String()
	}
	return out
}

func applyCase(s string, opts Options) string {
	tag := language.Make(DefaultLocale)
	if opts.Locale != "" {
		if parsed, err := language.Parse(opts.Locale); err == nil {
			tag = parsed
		}
	}
	switch opts.Case {
	case CaseIgnore:
		return s
	case CaseUpper:
		return cases.Upper(tag).String(s)
	default:
		return cases.Lower(tag).String(s)
	}
}
