package sim

import (
	"math"
	"testing"
)

// === SimulationKey Tests ===

func TestSimulationKey_Creation(t *testing.T) {
	tests := []struct {
		name string
		seed int64
	}{
		{"positive seed", 42},
		{"zero seed", 0},
		{"negative seed", -1},
		{"max int64", math.MaxInt64},
		{"min int64", math.MinInt64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := NewSimulationKey(tt.seed)
			if int64(key) != tt.seed {
				t.Errorf("NewSimulationKey(%d) = %d, want %d", tt.seed, key, tt.seed)
			}
		})
	}
}

// === PartitionedRNG Tests ===

func TestPartitionedRNG_DeterministicDerivation(t *testing.T) {
	// BDD: Same key+name produces same sequence
	rng1 := NewPartitionedRNG(NewSimulationKey(42))
	rng2 := NewPartitionedRNG(NewSimulationKey(42))

	for i := 0; i < 3; i++ {
		a := rng1.ForSubsystem(SubsystemPatterns).Float64()
		b := rng2.ForSubsystem(SubsystemPatterns).Float64()
		if a != b {
			t.Errorf("Value %d: got %v and %v, want identical", i, a, b)
		}
	}
}

func TestPartitionedRNG_DayStreamsIndependentOfHistory(t *testing.T) {
	// BDD: day N's stream does not depend on what earlier days consumed
	consumed := NewPartitionedRNG(NewSimulationKey(7))
	for day := 1; day < 5; day++ {
		r := consumed.ForDay(day)
		for i := 0; i < day*10; i++ {
			r.Float64()
		}
	}
	fresh := NewPartitionedRNG(NewSimulationKey(7))

	a, b := consumed.ForDay(5), fresh.ForDay(5)
	for i := 0; i < 10; i++ {
		if x, y := a.Float64(), b.Float64(); x != y {
			t.Fatalf("draw %d: %v != %v", i, x, y)
		}
	}
}

func TestPartitionedRNG_DaysDiffer(t *testing.T) {
	rng := NewPartitionedRNG(NewSimulationKey(42))
	if rng.ForDay(1).Float64() == rng.ForDay(2).Float64() {
		t.Error("days 1 and 2 produced the same first draw")
	}
}

func TestPartitionedRNG_CachesInstance(t *testing.T) {
	// BDD: Same name returns same *rand.Rand instance
	rng := NewPartitionedRNG(NewSimulationKey(42))

	if rng.ForSubsystem(SubsystemPatterns) != rng.ForSubsystem(SubsystemPatterns) {
		t.Error("ForSubsystem returned different instances for same name")
	}
	if rng.ForDay(3) == rng.ForDay(3) {
		t.Error("ForDay must return a fresh instance")
	}
}

func TestPartitionedRNG_Key(t *testing.T) {
	seed := int64(12345)
	rng := NewPartitionedRNG(NewSimulationKey(seed))

	if rng.Key() != SimulationKey(seed) {
		t.Errorf("Key() = %v, want %v", rng.Key(), seed)
	}
}

func TestPartitionedRNG_NegativeSeed(t *testing.T) {
	// BDD: MinInt64 seed works correctly
	rng := NewPartitionedRNG(NewSimulationKey(math.MinInt64))

	val := rng.ForDay(1).Float64()
	if val < 0 || val >= 1 {
		t.Errorf("Float64() returned %v, want [0, 1)", val)
	}
}

func TestPartitionedRNG_LazyInitialization(t *testing.T) {
	// BDD: Subsystems map is empty until ForSubsystem is called
	rng := NewPartitionedRNG(NewSimulationKey(42))
	rng.ForDay(1)

	if len(rng.subsystems) != 0 {
		t.Errorf("PartitionedRNG has %d cached subsystems, want 0", len(rng.subsystems))
	}
	rng.ForSubsystem(SubsystemPatterns)
	if len(rng.subsystems) != 1 {
		t.Errorf("PartitionedRNG has %d cached subsystems, want 1", len(rng.subsystems))
	}
}
