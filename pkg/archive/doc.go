// SPDX-License-Identifier: MPL-2.0

// Package archive writes named entries into a single compressed archive stream.
//
// A Writer is bound to one sink for its whole life. Entries are appended in
// call order from streams (AppendStream), files (AppendFile) or directory trees
// (AppendDirectory); Finalize flushes the encoder and closes the sink exactly
// once, whatever happened before.
//
// Failures come in two flavours. A *Warning is recoverable: the entry was not
// written but the archive is intact (a missing file, an unreadable directory).
// Anything else returned by an Append method is fatal and sticky: the encoder
// or the sink is broken and every later append returns the same error.
//
// Observers receive Progress and Warning notifications as they happen and a
// single Done call carrying the terminal result.
package archive
