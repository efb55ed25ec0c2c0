package ledger

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Gabo8286/luna-engine/internal/profile"
)

const (
	// MaxInsights bounds the active insight list. New insights push the
	// oldest out; dismissals free a slot early.
	MaxInsights = 10

	// MaxAssessments and MaxPatterns bound the retained history.
	MaxAssessments = 20
	MaxPatterns    = 20

	// patternConfidenceStep is added each time a known pattern is
	// re-observed, capped at 1.0.
	patternConfidenceStep = 0.1
)

type InsightKind string

const (
	InsightSuggestion  InsightKind = "suggestion"
	InsightWarning     InsightKind = "warning"
	InsightCelebration InsightKind = "celebration"
	InsightGuidance    InsightKind = "guidance"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

type ReminderKind string

const (
	ReminderReview     ReminderKind = "review"
	ReminderBreak      ReminderKind = "break"
	ReminderReflection ReminderKind = "reflection"
	ReminderGoalCheck  ReminderKind = "goal-check"
	ReminderWellBeing  ReminderKind = "well-being"
)

type Impact string

const (
	ImpactPositive Impact = "positive"
	ImpactNegative Impact = "negative"
	ImpactNeutral  Impact = "neutral"
)

// Insight is a single piece of generated guidance shown to the user until
// dismissed or pushed out by newer entries.
type Insight struct {
	ID          string      `json:"id"`
	Kind        InsightKind `json:"kind"`
	Principle   string      `json:"principle,omitempty"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	ActionItems []string    `json:"actionItems,omitempty"`
	Priority    Priority    `json:"priority"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// Reminder is a scheduled nudge. Reminders are never deleted, only marked
// completed, so the history stays auditable.
type Reminder struct {
	ID          string       `json:"id"`
	Kind        ReminderKind `json:"kind"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	ScheduledAt time.Time    `json:"scheduledAt"`
	Completed   bool         `json:"completed"`
	Priority    Priority     `json:"priority"`
}

// Assessment is an immutable point-in-time evaluation of the user's
// progress, carrying a copy of the metrics at that moment.
type Assessment struct {
	ID           string           `json:"id"`
	TakenAt      time.Time        `json:"takenAt"`
	Stage        profile.Stage    `json:"stage"`
	Completion   float64          `json:"completion"`
	Strengths    []string         `json:"strengths"`
	Improvements []string         `json:"improvements"`
	NextSteps    []string         `json:"nextSteps"`
	Metrics      []profile.Metric `json:"metrics"`
}

// BehaviorPattern is an observed habit or tendency. Re-observing the same
// pattern text bumps its frequency and confidence instead of duplicating it.
type BehaviorPattern struct {
	Pattern         string    `json:"pattern"`
	Frequency       int       `json:"frequency"`
	Impact          Impact    `json:"impact"`
	SuggestedAction string    `json:"suggestedAction,omitempty"`
	Confidence      float64   `json:"confidence"`
	LastObserved    time.Time `json:"lastObserved"`
}

// Snapshot is the serializable view of the ledger.
type Snapshot struct {
	Insights    []Insight    `json:"insights"`
	Reminders   []Reminder   `json:"reminders"`
	Assessments []Assessment `json:"assessments"`
}

// Ledger keeps the bounded books of insights, reminders, assessments and
// behavior patterns. It is not safe for concurrent use on its own; the
// engine facade serializes access.
type Ledger struct {
	insights    []Insight
	reminders   []Reminder
	assessments []Assessment
	patterns    []BehaviorPattern

	now func() time.Time
}

func New() *Ledger {
	return &Ledger{now: time.Now}
}

// AddInsight assigns a fresh ID and timestamp, prepends the insight and
// truncates the list to MaxInsights. The newest insight is always index zero.
func (l *Ledger) AddInsight(ins Insight) Insight {
	ins.ID = uuid.NewString()
	ins.CreatedAt = l.now()
	ins.Title = strings.TrimSpace(ins.Title)
	if ins.Priority == "" {
		ins.Priority = PriorityMedium
	}
	l.insights = append([]Insight{cloneInsight(ins)}, l.insights...)
	if len(l.insights) > MaxInsights {
		l.insights = l.insights[:MaxInsights]
	}
	return ins
}

// DismissInsight removes the insight with the given ID. Unknown IDs are a
// no-op and report false.
func (l *Ledger) DismissInsight(id string) bool {
	for i, ins := range l.insights {
		if ins.ID == id {
			l.insights = append(l.insights[:i], l.insights[i+1:]...)
			return true
		}
	}
	return false
}

func (l *Ledger) Insights() []Insight {
	out := make([]Insight, len(l.insights))
	for i, ins := range l.insights {
		out[i] = cloneInsight(ins)
	}
	return out
}

// RecentInsights returns up to n of the most recent insights.
func (l *Ledger) RecentInsights(n int) []Insight {
	if n < 0 {
		n = 0
	}
	if n > len(l.insights) {
		n = len(l.insights)
	}
	out := make([]Insight, n)
	for i, ins := range l.insights[:n] {
		out[i] = cloneInsight(ins)
	}
	return out
}

// ScheduleReminder assigns a fresh ID and records the reminder.
func (l *Ledger) ScheduleReminder(r Reminder) Reminder {
	r.ID = uuid.NewString()
	r.Title = strings.TrimSpace(r.Title)
	r.Completed = false
	if r.Priority == "" {
		r.Priority = PriorityMedium
	}
	l.reminders = append(l.reminders, r)
	return r
}

// CompleteReminder marks the reminder done. Unknown or already-completed
// IDs are a no-op and report false. Completed reminders stay in the list.
func (l *Ledger) CompleteReminder(id string) bool {
	for i := range l.reminders {
		if l.reminders[i].ID == id {
			if l.reminders[i].Completed {
				return false
			}
			l.reminders[i].Completed = true
			return true
		}
	}
	return false
}

func (l *Ledger) Reminders() []Reminder {
	return append([]Reminder{}, l.reminders...)
}

// PendingReminders returns reminders not yet completed, soonest first.
func (l *Ledger) PendingReminders() []Reminder {
	var pending []Reminder
	for _, r := range l.reminders {
		if !r.Completed {
			pending = append(pending, r)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].ScheduledAt.Before(pending[j].ScheduledAt) })
	return pending
}

// DueReminders returns pending reminders whose scheduled time is at or
// before now, soonest first.
func (l *Ledger) DueReminders(now time.Time) []Reminder {
	var due []Reminder
	for _, r := range l.PendingReminders() {
		if !r.ScheduledAt.After(now) {
			due = append(due, r)
		}
	}
	return due
}

// RecordAssessment prepends an assessment, assigning an ID and timestamp if
// the caller left them zero, and truncates history to MaxAssessments.
func (l *Ledger) RecordAssessment(a Assessment) Assessment {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.TakenAt.IsZero() {
		a.TakenAt = l.now()
	}
	l.assessments = append([]Assessment{cloneAssessment(a)}, l.assessments...)
	if len(l.assessments) > MaxAssessments {
		l.assessments = l.assessments[:MaxAssessments]
	}
	return a
}

func (l *Ledger) Assessments() []Assessment {
	out := make([]Assessment, len(l.assessments))
	for i, a := range l.assessments {
		out[i] = cloneAssessment(a)
	}
	return out
}

// LatestAssessment returns the most recent assessment, if any.
func (l *Ledger) LatestAssessment() (Assessment, bool) {
	if len(l.assessments) == 0 {
		return Assessment{}, false
	}
	return cloneAssessment(l.assessments[0]), true
}

// RecordPattern notes an observed behavior pattern, newest first, truncated
// to MaxPatterns. Re-observing a pattern with the same text bumps its
// frequency and confidence and moves it to the front. Blank pattern text is
// ignored.
func (l *Ledger) RecordPattern(p BehaviorPattern) (BehaviorPattern, bool) {
	p.Pattern = strings.TrimSpace(p.Pattern)
	if p.Pattern == "" {
		return BehaviorPattern{}, false
	}
	p.LastObserved = l.now()
	for i, existing := range l.patterns {
		if strings.EqualFold(existing.Pattern, p.Pattern) {
			p.Frequency = existing.Frequency + 1
			p.Confidence = existing.Confidence + patternConfidenceStep
			if p.Confidence > 1.0 {
				p.Confidence = 1.0
			}
			if p.Impact == "" {
				p.Impact = existing.Impact
			}
			if p.SuggestedAction == "" {
				p.SuggestedAction = existing.SuggestedAction
			}
			l.patterns = append(l.patterns[:i], l.patterns[i+1:]...)
			l.patterns = append([]BehaviorPattern{p}, l.patterns...)
			return p, true
		}
	}
	if p.Frequency < 1 {
		p.Frequency = 1
	}
	if p.Impact == "" {
		p.Impact = ImpactNeutral
	}
	if p.Confidence <= 0 {
		p.Confidence = patternConfidenceStep
	}
	l.patterns = append([]BehaviorPattern{p}, l.patterns...)
	if len(l.patterns) > MaxPatterns {
		l.patterns = l.patterns[:MaxPatterns]
	}
	return p, true
}

func (l *Ledger) Patterns() []BehaviorPattern {
	return append([]BehaviorPattern{}, l.patterns...)
}

// RestorePatterns replaces the pattern list, re-applying the size bound.
// Patterns travel outside the ledger section of the persisted record, so
// they are restored separately from Restore.
func (l *Ledger) RestorePatterns(patterns []BehaviorPattern) {
	l.patterns = append([]BehaviorPattern{}, patterns...)
	if len(l.patterns) > MaxPatterns {
		l.patterns = l.patterns[:MaxPatterns]
	}
}

// Snapshot copies the ledger contents for persistence. Behavior patterns
// are serialized at the top level of the engine record, not here.
func (l *Ledger) Snapshot() Snapshot {
	return Snapshot{
		Insights:    l.Insights(),
		Reminders:   l.Reminders(),
		Assessments: l.Assessments(),
	}
}

// Restore replaces the ledger contents from a snapshot, re-applying the
// size bounds in case the snapshot predates them.
func (l *Ledger) Restore(s Snapshot) {
	l.insights = append([]Insight{}, s.Insights...)
	if len(l.insights) > MaxInsights {
		l.insights = l.insights[:MaxInsights]
	}
	l.reminders = append([]Reminder{}, s.Reminders...)
	l.assessments = append([]Assessment{}, s.Assessments...)
	if len(l.assessments) > MaxAssessments {
		l.assessments = l.assessments[:MaxAssessments]
	}
}

func cloneInsight(ins Insight) Insight {
	out := ins
	out.ActionItems = append([]string{}, ins.ActionItems...)
	return out
}

func cloneAssessment(a Assessment) Assessment {
	out := a
	out.Strengths = append([]string{}, a.Strengths...)
	out.Improvements = append([]string{}, a.Improvements...)
	out.NextSteps = append([]string{}, a.NextSteps...)
	out.Metrics = append([]profile.Metric{}, a.Metrics...)
	return out
}
