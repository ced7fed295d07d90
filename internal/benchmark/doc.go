// SPDX-License-Identifier: MPL-2.0

// Package benchmark provides benchmarks for the hot paths of appcompress:
//   - manifest decoding (YAML, JSONC and CUE)
//   - entry name resolution (slugify, extension sniffing)
//   - archive encoding for every format
//   - end-to-end jobs over local files and an in-process HTTP server
//
// To generate a PGO profile, run:
//
//	go test -run '^$' -bench . -cpuprofile default.pgo ./internal/benchmark
package benchmark
