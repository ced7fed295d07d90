// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helper functions for tests that handle errors
// appropriately, reducing boilerplate and ensuring consistent error handling.
//
// Common helpers include environment variable management (MustSetenv),
// fixture creation (MustMkdirAll, MustWriteFile), resource cleanup (MustClose),
// in-memory archive sinks (Sink) and archive inspection (ReadEntries).
package testutil
