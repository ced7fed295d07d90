// SPDX-License-Identifier: MPL-2.0

package resource

import (
	"errors"
	"net/http"
	"testing"
)

func TestKind_NormalizeAndValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      Kind
		want    Kind
		wantErr bool
	}{
		{"file", KindFile, false},
		{"directory", KindDirectory, false},
		{"http", KindHTTP, false},
		{"href", KindHTTP, false},
		{" HTTP ", KindHTTP, false},
		{"ftp", "ftp", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(string(tt.in), func(t *testing.T) {
			t.Parallel()
			if got := tt.in.Normalize(); got != tt.want {
				t.Errorf("Normalize() = %q, want %q", got, tt.want)
			}
			err := tt.in.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, ErrInvalidKind) {
					t.Error("error should wrap ErrInvalidKind")
				}
				var kindErr *InvalidKindError
				if !errors.As(err, &kindErr) || kindErr.Value != tt.in {
					t.Errorf("errors.As(*InvalidKindError) failed for %v", err)
				}
			}
		})
	}
}

func TestDescriptor_RequestDefaults(t *testing.T) {
	t.Parallel()

	d := Descriptor{Kind: KindHTTP, Source: "http://example"}
	if d.RequestMethod() != http.MethodGet {
		t.Errorf("RequestMethod() = %q, want GET", d.RequestMethod())
	}
	if d.RequestHeaders() != nil || d.RequestBody() != "" {
		t.Error("expected no headers and no body without options")
	}

	d.Options = &HTTPOptions{Method: "post", Headers: map[string]string{"X-A": "1"}, Body: "{}"}
	if d.RequestMethod() != http.MethodPost {
		t.Errorf("RequestMethod() = %q, want POST", d.RequestMethod())
	}
	if d.RequestHeaders()["X-A"] != "1" || d.RequestBody() != "{}" {
		t.Error("options not exposed")
	}
}
