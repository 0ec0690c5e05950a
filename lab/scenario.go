// Package lab implements the deterministic simulation runtime: a seeded
// RNG, a virtual clock that only advances when nothing is runnable, an
// event queue driving a single-threaded step loop, and a YAML-described
// fault injector. It is grounded on zkoranges-go-claw's config.go yaml.v3
// struct-tag idiom for the scenario file format, and its step loop is
// modeled on the teacher's fifo.go single-goroutine sequential executor
// (itself excluded from the teacher's own build via a build tag) — this
// package is, structurally, that same executor with a virtual clock and
// fault injection bolted on.
package lab

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// FaultSpec describes one fault the injector may apply when a named event
// fires during the simulation.
type FaultSpec struct {
	// At names the event the fault triggers on (a trace.Kind string, e.g.
	// "poll" or "obligation_reserve").
	At string `yaml:"at"`
	// Kind is the fault behavior: "delay", "drop", or "panic".
	Kind string `yaml:"kind"`
	// Probability is the chance (0..1) the fault fires each time its event
	// occurs; 1 means always.
	Probability float64 `yaml:"probability"`
	// DelayMS is the virtual delay applied for Kind=="delay".
	DelayMS int64 `yaml:"delay_ms"`
}

// Scenario is the YAML-described configuration for one deterministic run:
// its seed and the faults to inject, matching spec.md §8 S5's
// "01_race_condition.yaml"-style scenario files.
type Scenario struct {
	Name   string      `yaml:"name"`
	Seed   uint64      `yaml:"seed"`
	Faults []FaultSpec `yaml:"faults"`
}

// LoadScenario decodes a Scenario from r.
func LoadScenario(r io.Reader) (Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&s); err != nil {
		return Scenario{}, fmt.Errorf("lab: decode scenario: %w", err)
	}
	return s, nil
}
