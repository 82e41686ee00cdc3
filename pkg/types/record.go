// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// BuildStatus is the outcome of one builder run.
type BuildStatus string

const (
	BuildSucceeded BuildStatus = "succeeded"
	BuildFailed    BuildStatus = "failed"
)

// BuildRecord describes one builder run as stored in the history ledger.
type BuildRecord struct {
	// ID is a random UUID assigned when the record is stored.
	ID string `json:"id" yaml:"id"`

	// Module is the module build directory (BinDir).
	Module string `json:"module" yaml:"module"`

	// Builder names the builder kind (e.g. "next", "tsc").
	Builder string `json:"builder" yaml:"builder"`

	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at" yaml:"started_at"`

	// Duration is the wall time of the run.
	Duration time.Duration `json:"duration" yaml:"duration"`

	// ExitCode is the tool exit code, 0 when no tool ran.
	ExitCode int `json:"exit_code" yaml:"exit_code"`

	// Status is succeeded or failed.
	Status BuildStatus `json:"status" yaml:"status"`

	// Archive is the output tar written by Bundle, empty on failure.
	Archive string `json:"archive,omitempty" yaml:"archive,omitempty"`

	// Digest is the sha256 of Archive.
	Digest string `json:"digest,omitempty" yaml:"digest,omitempty"`

	// Error holds the failure message.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}
