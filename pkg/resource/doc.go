// SPDX-License-Identifier: MPL-2.0

// Package resource defines the descriptors that make up a compression job and
// loads them from manifest files.
//
// A descriptor names one resource (a local file, a local directory or an HTTP
// resource), where it comes from and the entry name it should get in the
// archive. Manifests are accepted as YAML, JSON/JSONC or CUE:
//
//	resources:
//	  - type: directory
//	    source: ./data/files
//	    target: subdata/items
//	  - type: http
//	    source: https://example.com/logo.png
//	    target: My logo
package resource
