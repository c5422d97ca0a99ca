package trace

import (
	"math"
	"testing"
)

func TestSummarize_Empty_ZeroValues(t *testing.T) {
	// GIVEN no outcomes
	// WHEN summarized
	s := Summarize(nil)

	// THEN all counts are zero
	if s.Total != 0 || s.Mortalities != 0 || s.SevereInjuries != 0 {
		t.Errorf("expected zero counts, got %+v", s)
	}
	if s.MeanTotalMinutes != 0 || s.MaxTotalMinutes != 0 {
		t.Error("expected zero times")
	}
	if len(s.StationDispatches) != 0 {
		t.Error("expected empty dispatch distribution")
	}
}

func TestSummarize_MixedOutcomes_CorrectCounts(t *testing.T) {
	// GIVEN outcomes over and under the threshold plus one automatic fatality
	outcomes := []Outcome{
		{StationID: "s1", Total: 40, Threshold: 60, Verdict: VerdictNone},
		{StationID: "s1", Total: 70, Threshold: 60, Verdict: VerdictSevereInjury},
		{StationID: "s2", Total: 90, Threshold: 60, Verdict: VerdictMortality, Understaffed: true},
		{Total: Minutes(math.Inf(1)), Threshold: 60, Verdict: VerdictMortality, Automatic: true},
	}

	// WHEN summarized
	s := Summarize(outcomes)

	// THEN counts match and the infinite total is excluded from the mean
	if s.Total != 4 {
		t.Errorf("expected 4 outcomes, got %d", s.Total)
	}
	if s.Mortalities != 2 {
		t.Errorf("expected 2 mortalities, got %d", s.Mortalities)
	}
	if s.SevereInjuries != 1 {
		t.Errorf("expected 1 severe injury, got %d", s.SevereInjuries)
	}
	if s.Automatic != 1 || s.Understaffed != 1 {
		t.Errorf("expected 1 automatic and 1 understaffed, got %d and %d", s.Automatic, s.Understaffed)
	}
	if s.OverThreshold != 2 {
		t.Errorf("expected 2 over threshold, got %d", s.OverThreshold)
	}
	wantMean := (40.0 + 70.0 + 90.0) / 3
	if math.Abs(s.MeanTotalMinutes-wantMean) > 1e-9 {
		t.Errorf("expected mean %.3f, got %.3f", wantMean, s.MeanTotalMinutes)
	}
	if s.MaxTotalMinutes != 90 {
		t.Errorf("expected max 90, got %.1f", s.MaxTotalMinutes)
	}
	if s.StationDispatches["s1"] != 2 || s.StationDispatches["s2"] != 1 {
		t.Errorf("unexpected dispatch distribution %v", s.StationDispatches)
	}
}
