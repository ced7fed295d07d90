// SPDX-License-Identifier: MPL-2.0

package resource

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/apporo/app-compression/internal/issue"
	"github.com/apporo/app-compression/pkg/cueutil"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

const (
	// FormatYAML is a YAML manifest (.yaml, .yml).
	FormatYAML ManifestFormat = "yaml"
	// FormatJSON is a JSON manifest; comments and trailing commas are allowed (.json, .jsonc).
	FormatJSON ManifestFormat = "json"
	// FormatCUE is a CUE manifest validated against the embedded schema (.cue).
	FormatCUE ManifestFormat = "cue"
)

// ErrUnknownManifestFormat is returned when a manifest format cannot be determined.
var ErrUnknownManifestFormat = errors.New("unknown manifest format")

//go:embed manifest_schema.cue
var manifestSchema []byte

type (
	// ManifestFormat is the encoding of a manifest file.
	ManifestFormat string

	// Manifest is an ordered list of descriptors.
	Manifest struct {
		Resources []Descriptor `json:"resources" yaml:"resources"`
	}
)

// FormatFromPath infers the manifest format from a file extension.
func FormatFromPath(path string) (ManifestFormat, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json", ".jsonc":
		return FormatJSON, nil
	case ".cue":
		return FormatCUE, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownManifestFormat, filepath.Ext(path))
	}
}

// ParseManifest decodes a manifest of the given format. name is only used in
// error messages.
func ParseManifest(data []byte, format ManifestFormat, name string) (*Manifest, error) {
	var m Manifest
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	case FormatJSON:
		if err := json.Unmarshal(jsonc.ToJSON(data), &m); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	case FormatCUE:
		decoded, err := cueutil.Decode[Manifest](manifestSchema, data, "#Manifest", cueutil.WithFilename(name))
		if err != nil {
			return nil, err
		}
		m = *decoded
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownManifestFormat, format)
	}
	return &m, nil
}

// LoadManifest reads and decodes the manifest at path, choosing the decoder
// from the file extension.
func LoadManifest(path string) (*Manifest, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("load manifest").
			WithResource(path).
			WithSuggestion("Use a .yaml, .yml, .json, .jsonc or .cue manifest").
			Wrap(err).
			BuildError()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, issue.WrapWithContext(err, "read manifest", path)
	}

	m, err := ParseManifest(data, format, path)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("load manifest").
			WithResource(path).
			WithSuggestion("Every resource needs a type and a source").
			Wrap(err).
			BuildError()
	}
	return m, nil
}
