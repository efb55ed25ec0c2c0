package guidance

import (
	"fmt"
	"log"
	"time"

	"github.com/Gabo8286/luna-engine/internal/ledger"
	"github.com/Gabo8286/luna-engine/internal/profile"
)

const (
	// StaleReviewAge is how old the last assessment may get before the
	// review rule fires.
	StaleReviewAge = 7 * 24 * time.Hour

	// LowWellBeingThreshold fires the well-being rule for scores below it.
	LowWellBeingThreshold = 6

	// DegradedHealthThreshold fires the recovery suggestion at or below it.
	DegradedHealthThreshold = 4

	// PeakConfidence is the minimum energy confidence for an hour to count
	// as a known peak window.
	PeakConfidence = 0.6
)

// View is the read-only slice of engine state a rule evaluates against.
type View struct {
	Now             time.Time
	Profile         profile.Profile
	StageCompletion float64
	PeakHours       []int
	Recovering      bool
}

// Finding is what a fired rule produces: an insight, optionally paired with
// a reminder to schedule alongside it.
type Finding struct {
	Insight  ledger.Insight
	Reminder *ledger.Reminder
}

// Rule is a pure predicate over the view, producing zero or one finding.
// Rules must tolerate partial profiles; a rule that cannot evaluate simply
// does not fire.
type Rule struct {
	Name     string
	Evaluate func(View) (Finding, bool)
}

// DefaultRules returns the ordered rule set. Order is the order findings
// are emitted in; rules are independent and one firing never suppresses
// another.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "stale-review", Evaluate: staleReviewRule},
		{Name: "low-well-being", Evaluate: lowWellBeingRule},
		{Name: "degraded-health", Evaluate: degradedHealthRule},
		{Name: "stage-readiness", Evaluate: stageReadinessRule},
		{Name: "peak-energy", Evaluate: peakEnergyRule},
		{Name: "off-track-metric", Evaluate: offTrackMetricRule},
	}
}

// runRule isolates a single rule: a panicking rule is logged and treated as
// "did not fire" so the remaining rules still run.
func runRule(r Rule, v View) (finding Finding, fired bool) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("[guidance] rule %s panicked: %v", r.Name, rec)
			fired = false
		}
	}()
	return r.Evaluate(v)
}

func staleReviewRule(v View) (Finding, bool) {
	last := v.Profile.LastAssessment
	if last != nil && v.Now.Sub(*last) <= StaleReviewAge {
		return Finding{}, false
	}
	desc := "You have never run a progress review."
	if last != nil {
		desc = fmt.Sprintf("Your last progress review was %d days ago.", int(v.Now.Sub(*last).Hours()/24))
	}
	return Finding{
		Insight: ledger.Insight{
			Kind:        ledger.InsightWarning,
			Principle:   "weekly-review",
			Title:       "Progress review overdue",
			Description: desc + " Regular reviews keep your system honest.",
			ActionItems: []string{
				"Block 30 minutes for a review",
				"Check each metric against its target",
				"Note one thing to change next week",
			},
			Priority: ledger.PriorityHigh,
		},
		Reminder: &ledger.Reminder{
			Kind:        ledger.ReminderReview,
			Title:       "Run your progress review",
			ScheduledAt: v.Now.Add(24 * time.Hour),
			Priority:    ledger.PriorityHigh,
		},
	}, true
}

func lowWellBeingRule(v View) (Finding, bool) {
	wb := v.Profile.WellBeing
	if wb >= LowWellBeingThreshold {
		return Finding{}, false
	}
	return Finding{
		Insight: ledger.Insight{
			Kind:        ledger.InsightWarning,
			Principle:   "sustainable-pace",
			Title:       "Well-being needs attention",
			Description: fmt.Sprintf("Your well-being score is %d/10. Productivity built on a depleted base does not hold.", wb),
			ActionItems: []string{
				"Take a real break today",
				"End work at your planned stop time",
				"Do one restorative thing this evening",
			},
			Priority: ledger.PriorityHigh,
		},
	}, true
}

func degradedHealthRule(v View) (Finding, bool) {
	sh := v.Profile.SystemHealth
	if sh > DegradedHealthThreshold || v.Recovering {
		return Finding{}, false
	}
	return Finding{
		Insight: ledger.Insight{
			Kind:        ledger.InsightWarning,
			Principle:   "system-maintenance",
			Title:       "Your system needs a recovery",
			Description: fmt.Sprintf("System health is down to %d/10. A structured recovery beats pushing through.", sh),
			ActionItems: []string{
				"Start a level 1 recovery for a light reset",
				"Escalate to level 2 or 3 if this persists",
			},
			Priority: ledger.PriorityHigh,
		},
	}, true
}

func stageReadinessRule(v View) (Finding, bool) {
	if v.StageCompletion < 1.0 {
		return Finding{}, false
	}
	next := profile.NextStage(v.Profile.Stage)
	if next == v.Profile.Stage {
		return Finding{}, false
	}
	return Finding{
		Insight: ledger.Insight{
			Kind:        ledger.InsightCelebration,
			Principle:   "stage-progression",
			Title:       fmt.Sprintf("Ready for the %s stage", next),
			Description: fmt.Sprintf("You have completed the planned weeks of the %s stage. Advance when it feels earned.", v.Profile.Stage),
			ActionItems: []string{"Review what stuck from this stage", "Advance to the next stage"},
			Priority:    ledger.PriorityMedium,
		},
	}, true
}

func peakEnergyRule(v View) (Finding, bool) {
	hour := v.Now.Hour()
	for _, h := range v.PeakHours {
		if h == hour {
			return Finding{
				Insight: ledger.Insight{
					Kind:        ledger.InsightSuggestion,
					Principle:   "energy-alignment",
					Title:       "You are in a peak energy window",
					Description: fmt.Sprintf("Hour %02d:00 is one of your high-energy hours. Protect it for deep work.", hour),
					ActionItems: []string{"Close communication tools", "Pick your hardest task now"},
					Priority:    ledger.PriorityLow,
				},
			}, true
		}
	}
	return Finding{}, false
}

func offTrackMetricRule(v View) (Finding, bool) {
	for _, m := range v.Profile.Metrics {
		if m.Target <= 0 || m.Trend != profile.TrendDeclining {
			continue
		}
		if m.Current >= m.Target {
			continue
		}
		return Finding{
			Insight: ledger.Insight{
				Kind:        ledger.InsightSuggestion,
				Principle:   "metric-tracking",
				Title:       fmt.Sprintf("%s is off track", m.Name),
				Description: fmt.Sprintf("%s is at %.0f against a target of %.0f and declining. Small corrections now beat big ones later.", m.Name, m.Current, m.Target),
				ActionItems: []string{fmt.Sprintf("Plan one concrete step on %s tomorrow", m.Name)},
				Priority:    ledger.PriorityMedium,
			},
		}, true
	}
	return Finding{}, false
}
