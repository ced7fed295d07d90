// SPDX-License-Identifier: MPL-2.0

// Package cueutil decodes CUE documents against an embedded schema.
//
// Decoding follows three steps: compile the schema, compile the user data and
// unify it with a schema definition, then validate and decode into a Go value.
// Errors carry the file name and a JSON-path style location:
//
//	resources.cue: resources[1].source: incomplete value string
package cueutil
