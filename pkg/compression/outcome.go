// SPDX-License-Identifier: MPL-2.0

package compression

import (
	"github.com/apporo/app-compression/pkg/archive"
	"github.com/apporo/app-compression/pkg/resource"
)

const (
	// StatusArchived means the resource was written under its resolved name.
	StatusArchived Status = "archived"
	// StatusPlaceholder means an empty entry stands in for a failed resource.
	StatusPlaceholder Status = "placeholder"
	// StatusSkipped means the resource was dropped by the error policy.
	StatusSkipped Status = "skipped"
	// StatusMissing means the local path did not exist.
	StatusMissing Status = "missing"
)

type (
	// Status is the per-descriptor result of a job.
	Status string

	// Result records what happened to one descriptor.
	Result struct {
		Index  int           `json:"index"`
		Kind   resource.Kind `json:"type"`
		Source string        `json:"source"`
		Entry  string        `json:"entry"` // "" for a flattened directory
		Status Status        `json:"status"`
		Cause  string        `json:"cause,omitempty"`
	}

	// Outcome is the success value of a job.
	Outcome struct {
		RequestID string         `json:"requestId"`
		Format    archive.Format `json:"format"`
		Entries   int            `json:"entries"`
		Bytes     int64          `json:"bytes"`
		Digest    string         `json:"digest"` // hex BLAKE3-256 of the archive bytes
		Results   []Result       `json:"results"`
	}
)

// Count returns how many results have status s.
func (o *Outcome) Count(s Status) int {
	n := 0
	for _, r := range o.Results {
		if r.Status == s {
			n++
		}
	}
	return n
}
