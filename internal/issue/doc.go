// SPDX-License-Identifier: MPL-2.0

// Package issue provides the error-code registry used by compression jobs and
// actionable errors for the command line.
//
// Job failures are reported as *Error values built from a Catalog. Each Kind has
// a stable symbolic name, a numeric return code, an HTTP-style status code and a
// message that can be localized per language. The catalog can be overridden from
// configuration so that deployments can renumber codes without code changes.
//
// ActionableError carries operation/resource/suggestion context for failures that
// are surfaced to a human (configuration loading, manifest parsing).
package issue
