// Package asupersync implements a structured-concurrency async runtime with
// deterministic simulation support.
//
// Every task is owned by a lexical scope ("region"); regions form a tree,
// and closing a region cancels and waits for everything still live beneath
// it before the region itself finishes closing. Obligations — resources
// that require an explicit Commit or Abort, such as a reserved file handle
// or an in-flight write — are tracked per task and per region: one still
// Reserved when its region closes is reported as a leak rather than
// silently dropped, and a task that settles Cancelled has its open
// obligations aborted.
//
// A Driver is the runtime: it owns the task and region arenas and wires
// together the scheduler (package sched), the obligation ledger (package
// obligation), the clock (package clock), and an operator-facing Logger.
// CreateRootRegion and CreateChild build the region tree; Spawn admits
// tasks into it; BeginClose/AwaitQuiescent/Complete drive a region through
// its close sequence; Join2/JoinAll/Race2/RaceAll combine task outcomes.
//
// Package lab supplies a deterministic variant of the same runtime — a
// virtual clock that only advances when nothing is runnable, a seeded RNG,
// and a YAML-described fault injector — for reproducing concurrency bugs
// bit-for-bit across runs. Package trace records a run's causal event
// history for replay comparison and refinement-firewall validation.
package asupersync
