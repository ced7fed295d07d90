// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for appcompress.
//
// The command tree is built per App (NewRootCommand) so tests can run it
// against in-memory stdout/stderr and isolated configuration.
package cmd
