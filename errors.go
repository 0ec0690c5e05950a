package asupersync

import "errors"

// Namespace prefixes every sentinel error's message so they are recognizable
// in aggregated outcomes and logs without needing type assertions.
const Namespace = "asupersync"

var (
	// ErrRegionClosed is returned when an operation targets a region that has
	// already begun closing or is Closed.
	ErrRegionClosed = errors.New(Namespace + ": region is closing or closed")

	// ErrAdmissionRejected is returned by Spawn and Cx.Reserve when a region's
	// admission bounds (max tasks, max obligations, max heap bytes) would be
	// exceeded. Per DESIGN.md's Open Question resolution, admission always
	// rejects; it never queues.
	ErrAdmissionRejected = errors.New(Namespace + ": admission bounds exceeded")

	// ErrGenerationMismatch is returned when an arena index's generation does
	// not match the live record's generation (use-after-free / stale handle).
	ErrGenerationMismatch = errors.New(Namespace + ": stale id: generation mismatch")

	// ErrDoubleResolve is returned when an obligation already Committed or
	// Aborted is resolved again.
	ErrDoubleResolve = errors.New(Namespace + ": obligation already resolved")

	// ErrUnknownObligation is returned when an obligation id is not present
	// in the ledger for the task addressed.
	ErrUnknownObligation = errors.New(Namespace + ": unknown obligation id")

	// ErrMultipleResolve names a repeat resolution of a single-resolution
	// value. No function in this module returns it.
	ErrMultipleResolve = errors.New(Namespace + ": multiple resolution of a single-resolution value")

	// ErrRaceEmpty names the "no participants" case of RaceAll. Nothing uses
	// or returns it: an empty race never settles rather than failing (see
	// spec.md §8 S6).
	ErrRaceEmpty = errors.New(Namespace + ": race has no participants")
)
