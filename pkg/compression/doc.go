// SPDX-License-Identifier: MPL-2.0

// Package compression assembles archives from ordered resource descriptors.
//
// Helper.Deflate is the single public operation. Each call runs one Job:
// descriptors are processed strictly in order (acquire, resolve the entry
// name, append), failures are routed through the job's error policy, and the
// archive is finalized exactly once on every path past sink validation.
//
// Policy summary for a failed remote acquisition:
//
//	StopOnError            the typed error fails the job
//	SkipOnError            the descriptor is dropped
//	neither                an empty placeholder entry is written
//
// Failed jobs return exactly one *issue.Error and no Outcome.
package compression
