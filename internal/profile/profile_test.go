package profile

import (
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	s := New()
	p := s.Get()

	if p.Stage != StageFoundation {
		t.Errorf("stage = %q, want %q", p.Stage, StageFoundation)
	}
	if p.WeekInStage != 1 {
		t.Errorf("weekInStage = %d, want 1", p.WeekInStage)
	}
	if p.WellBeing != 7 {
		t.Errorf("wellBeing = %d, want 7", p.WellBeing)
	}
	if p.SystemHealth != 8 {
		t.Errorf("systemHealth = %d, want 8", p.SystemHealth)
	}
	if len(p.Metrics) == 0 {
		t.Error("expected starter metrics")
	}
	for h, slot := range p.Energy {
		if slot.Hour != h {
			t.Fatalf("slot %d has hour %d", h, slot.Hour)
		}
		if slot.Level != EnergyMedium {
			t.Fatalf("slot %d level = %q, want medium", h, slot.Level)
		}
		if slot.Confidence != 0.3 {
			t.Fatalf("slot %d confidence = %v, want 0.3", h, slot.Confidence)
		}
	}
}

func TestAdvanceStage(t *testing.T) {
	s := New()
	s.AdvanceWeek()
	s.AdvanceWeek()

	p := s.AdvanceStage()
	if p.Stage != StageOptimization {
		t.Fatalf("stage = %q, want %q", p.Stage, StageOptimization)
	}
	if p.WeekInStage != 1 {
		t.Errorf("weekInStage = %d, want 1 after advance", p.WeekInStage)
	}

	s.AdvanceStage()
	p = s.AdvanceStage()
	if p.Stage != StageSustainability {
		t.Fatalf("stage = %q, want %q", p.Stage, StageSustainability)
	}

	// Terminal stage: advancing again changes nothing.
	s.AdvanceWeek()
	p = s.AdvanceStage()
	if p.Stage != StageSustainability {
		t.Errorf("stage = %q, want terminal stage to hold", p.Stage)
	}
	if p.WeekInStage != 2 {
		t.Errorf("weekInStage = %d, want 2 (no reset on no-op)", p.WeekInStage)
	}
}

func TestNextStage(t *testing.T) {
	tests := []struct {
		in   Stage
		want Stage
	}{
		{StageFoundation, StageOptimization},
		{StageOptimization, StageMastery},
		{StageMastery, StageSustainability},
		{StageSustainability, StageSustainability},
		{Stage("bogus"), Stage("bogus")},
	}
	for _, tt := range tests {
		if got := NextStage(tt.in); got != tt.want {
			t.Errorf("NextStage(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRecordEnergy(t *testing.T) {
	s := New()

	s.RecordEnergy(9, EnergyHigh)
	p := s.Get()
	if p.Energy[9].Level != EnergyHigh {
		t.Errorf("level = %q, want high", p.Energy[9].Level)
	}
	if got := p.Energy[9].Confidence; got < 0.39 || got > 0.41 {
		t.Errorf("confidence = %v, want 0.4", got)
	}

	// Re-observing the same hour keeps raising confidence up to the cap.
	for i := 0; i < 20; i++ {
		s.RecordEnergy(9, EnergyHigh)
	}
	if got := s.Get().Energy[9].Confidence; got != 1.0 {
		t.Errorf("confidence = %v, want capped at 1.0", got)
	}

	// Out-of-range hours and unknown levels are ignored.
	s.RecordEnergy(24, EnergyHigh)
	s.RecordEnergy(-1, EnergyHigh)
	s.RecordEnergy(10, EnergyLevel("turbo"))
	p = s.Get()
	if p.Energy[10].Level != EnergyMedium {
		t.Errorf("slot 10 level = %q, want untouched medium", p.Energy[10].Level)
	}
}

func TestScoreClamping(t *testing.T) {
	s := New()

	s.RecordWellBeing(15)
	if got := s.Get().WellBeing; got != 10 {
		t.Errorf("wellBeing = %d, want 10", got)
	}
	s.RecordWellBeing(-3)
	if got := s.Get().WellBeing; got != 1 {
		t.Errorf("wellBeing = %d, want 1", got)
	}
	s.RecordSystemHealth(0)
	if got := s.Get().SystemHealth; got != 1 {
		t.Errorf("systemHealth = %d, want 1", got)
	}
}

func TestUpdateMergesMetricsByID(t *testing.T) {
	s := New()
	before := len(s.Get().Metrics)

	s.Update(Patch{Metrics: []Metric{
		{ID: "deep-work-hours", Name: "Deep work hours", Category: "focus", Current: 12, Target: 20, Trend: TrendImproving},
		{ID: "inbox-zero-days", Name: "Inbox zero days", Category: "admin", Current: 2, Target: 5, Trend: TrendStable},
	}})

	p := s.Get()
	if len(p.Metrics) != before+1 {
		t.Fatalf("metric count = %d, want %d", len(p.Metrics), before+1)
	}
	var found bool
	for _, m := range p.Metrics {
		if m.ID == "deep-work-hours" {
			found = true
			if m.Current != 12 {
				t.Errorf("current = %v, want 12", m.Current)
			}
			if m.Trend != TrendImproving {
				t.Errorf("trend = %q, want improving", m.Trend)
			}
		}
	}
	if !found {
		t.Fatal("deep-work-hours metric missing after update")
	}
}

func TestUpdatePartialFields(t *testing.T) {
	s := New()
	week := 3
	wb := 22
	stage := StageMastery

	p := s.Update(Patch{Stage: &stage, WeekInStage: &week, WellBeing: &wb})
	if p.Stage != StageMastery {
		t.Errorf("stage = %q, want mastery", p.Stage)
	}
	if p.WeekInStage != 3 {
		t.Errorf("weekInStage = %d, want 3", p.WeekInStage)
	}
	if p.WellBeing != 10 {
		t.Errorf("wellBeing = %d, want clamped to 10", p.WellBeing)
	}

	bogus := Stage("ascended")
	p = s.Update(Patch{Stage: &bogus})
	if p.Stage != StageMastery {
		t.Errorf("stage = %q, want unknown stage rejected", p.Stage)
	}
}

func TestMarkPrincipleComplete(t *testing.T) {
	s := New()
	s.MarkPrincipleComplete("time-blocking")
	s.MarkPrincipleComplete("time-blocking")
	s.MarkPrincipleComplete("  ")
	s.MarkPrincipleComplete("weekly-review")

	got := s.Get().CompletedPrinciples
	if len(got) != 2 {
		t.Fatalf("completedPrinciples = %v, want 2 entries", got)
	}
}

func TestStageCompletion(t *testing.T) {
	s := New()
	if got := s.StageCompletion(); got != 0.25 {
		t.Errorf("completion = %v, want 0.25 (week 1 of 4)", got)
	}
	for i := 0; i < 10; i++ {
		s.AdvanceWeek()
	}
	if got := s.StageCompletion(); got != 1.0 {
		t.Errorf("completion = %v, want capped at 1.0", got)
	}
}

func TestPeakHours(t *testing.T) {
	s := New()
	for i := 0; i < 4; i++ {
		s.RecordEnergy(14, EnergyHigh)
		s.RecordEnergy(9, EnergyHigh)
	}
	s.RecordEnergy(20, EnergyHigh) // single observation, low confidence

	got := s.PeakHours(0.6)
	if len(got) != 2 || got[0] != 9 || got[1] != 14 {
		t.Errorf("peak hours = %v, want [9 14]", got)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	s := New()
	p := s.Get()
	p.Metrics[0].Current = 999
	p.CompletedPrinciples = append(p.CompletedPrinciples, "rogue")

	fresh := s.Get()
	if fresh.Metrics[0].Current == 999 {
		t.Error("mutating the returned profile leaked into the store")
	}
	if len(fresh.CompletedPrinciples) != 0 {
		t.Error("mutating the returned slice leaked into the store")
	}
}

func TestRestoreNormalizes(t *testing.T) {
	s := New()
	broken := Profile{
		Stage:        Stage("quantum"),
		WeekInStage:  0,
		WellBeing:    42,
		SystemHealth: -1,
	}
	s.Restore(broken)

	p := s.Get()
	if p.Stage != StageFoundation {
		t.Errorf("stage = %q, want foundation fallback", p.Stage)
	}
	if p.WeekInStage != 1 {
		t.Errorf("weekInStage = %d, want 1", p.WeekInStage)
	}
	if p.WellBeing != 10 || p.SystemHealth != 1 {
		t.Errorf("scores = %d/%d, want clamped 10/1", p.WellBeing, p.SystemHealth)
	}
	for h, slot := range p.Energy {
		if slot.Hour != h || slot.Level != EnergyMedium {
			t.Fatalf("slot %d = %+v, want repaired medium slot", h, slot)
		}
	}
	if len(p.Metrics) == 0 {
		t.Error("expected default metrics after restoring empty profile")
	}
}

func TestSetLastAssessment(t *testing.T) {
	s := New()
	ts := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	s.SetLastAssessment(ts)
	got := s.Get().LastAssessment
	if got == nil || !got.Equal(ts) {
		t.Errorf("lastAssessment = %v, want %v", got, ts)
	}
}
