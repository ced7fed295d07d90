// SPDX-License-Identifier: MPL-2.0

// Package fetch acquires remote resources over HTTP and substitutes empty
// placeholder content for failed acquisitions when the job policy allows it.
package fetch
