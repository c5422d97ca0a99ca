// Package sim provides the day-step engine of the urban incident simulator.
//
// # Reading Guide
//
// Start with these files to understand a simulated day:
//   - engine.go: the day loop, its fixed draw order and the read accessors
//   - rng.go: per-day random streams derived from the run seed
//   - config.go: engine parameters and their validation
//
// # Architecture
//
// The sim package wires the subsystems, which live in sub-packages:
//   - sim/incident/: fixed taxonomy, incident vectors and the daily vector store
//   - sim/matrix/: static per-zone matrices, neighbors and their validation
//   - sim/regime/: the hidden Stable/Deteriorating/Crisis chain
//   - sim/modulator/: matrix factors, attenuation, re-randomization windows
//   - sim/intensity/: capped intensity and zero-inflated vector sampling
//   - sim/events/: grave and positive events and the event log
//   - sim/congestion/: daily congestion and real-time slowdowns
//   - sim/response/: stations, hospitals and golden-hour resolution
//   - sim/snapshot/: save/load of a run's mutable state
//   - sim/city/: synthetic city generation
//
// A day reads only previous days' vectors for every history, cross-type
// and neighbor lookup, so the zones of one day never observe each other's
// partial results.
package sim
