package sim

import (
	"fmt"
	"hash/fnv"
	"math/rand"
)

// === SimulationKey ===

// SimulationKey uniquely identifies a reproducible simulation run.
// Two runs with the same SimulationKey and identical configuration
// MUST produce bit-for-bit identical results.
type SimulationKey int64

// NewSimulationKey creates a SimulationKey from a seed value.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// === Subsystem Constants ===

const (
	// SubsystemPatterns is the one-shot stream drawing the re-randomization schedule.
	SubsystemPatterns = "patterns"
)

// SubsystemDay returns the subsystem name of a simulated day's stream.
func SubsystemDay(day int) string {
	return fmt.Sprintf("day_%d", day)
}

// === PartitionedRNG ===

// PartitionedRNG provides deterministic, isolated RNG instances per subsystem.
//
// Derivation formula: masterSeed XOR fnv1a64(subsystemName).
//
// Each simulated day draws from its own stream, so a run resumed from a
// snapshot after day N continues with exactly the draws of an
// uninterrupted run.
//
// Thread-safety: NOT thread-safe. Must be called from single goroutine.
type PartitionedRNG struct {
	key        SimulationKey
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a SimulationKey.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{
		key:        key,
		subsystems: make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns a deterministically-seeded RNG for the named subsystem.
// The same subsystem name always returns the same *rand.Rand instance (cached).
// Never returns nil.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}
	rng := p.derive(name)
	p.subsystems[name] = rng
	return rng
}

// ForDay returns a fresh RNG for a simulated day. Day streams are not
// cached: each day is consumed exactly once.
func (p *PartitionedRNG) ForDay(day int) *rand.Rand {
	return p.derive(SubsystemDay(day))
}

func (p *PartitionedRNG) derive(name string) *rand.Rand {
	return rand.New(rand.NewSource(int64(p.key) ^ fnv1a64(name)))
}

// Key returns the SimulationKey used to create this PartitionedRNG.
func (p *PartitionedRNG) Key() SimulationKey {
	return p.key
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
