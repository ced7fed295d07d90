// SPDX-License-Identifier: MPL-2.0

// Package naming turns human-written target names into archive entry names.
//
// A target is slugified (diacritics removed, unsafe runs collapsed to a single
// hyphen, case applied per locale) and then given an extension: the explicit
// one when provided, otherwise one sniffed from the leading bytes of the
// content. Sniffing never consumes bytes: the reader handed back by Resolve
// replays the stream from its first byte.
package naming
