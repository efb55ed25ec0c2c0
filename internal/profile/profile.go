package profile

import (
	"sort"
	"strings"
	"time"
)

// Stage is one of the four ordered productivity maturity levels. Progression
// is forward-only; AdvanceStage at the terminal stage is a no-op.
type Stage string

const (
	StageFoundation     Stage = "foundation"
	StageOptimization   Stage = "optimization"
	StageMastery        Stage = "mastery"
	StageSustainability Stage = "sustainability"
)

// stageOrder fixes the progression. Index lookups go through stageIndex.
var stageOrder = []Stage{StageFoundation, StageOptimization, StageMastery, StageSustainability}

// StageWeeks is the planned duration of each stage, used for completion
// percentages in assessments and the stage-readiness rule.
var StageWeeks = map[Stage]int{
	StageFoundation:     4,
	StageOptimization:   6,
	StageMastery:        8,
	StageSustainability: 12,
}

type EnergyLevel string

const (
	EnergyLow    EnergyLevel = "low"
	EnergyMedium EnergyLevel = "medium"
	EnergyHigh   EnergyLevel = "high"
)

type Trend string

const (
	TrendImproving Trend = "improving"
	TrendStable    Trend = "stable"
	TrendDeclining Trend = "declining"
)

const (
	// ConfidenceStep is added to an hour's confidence each time that hour
	// is re-observed, capped at 1.0.
	ConfidenceStep = 0.1

	// defaultConfidence seeds new energy slots low enough that a handful
	// of observations still move the needle.
	defaultConfidence = 0.3

	minScore = 1
	maxScore = 10
)

// Metric is a named, tracked measurement with a target and a trend.
type Metric struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Current   float64   `json:"current"`
	Target    float64   `json:"target"`
	Trend     Trend     `json:"trend"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// EnergySlot models the user's typical alertness for one hour of the day.
// Confidence grows with repeated observation and never decreases.
type EnergySlot struct {
	Hour       int         `json:"hour"`
	Level      EnergyLevel `json:"level"`
	Confidence float64     `json:"confidence"`
}

// Profile is the full productivity profile. Values handed out by Store are
// copies; callers never share mutable state with the store.
type Profile struct {
	Stage               Stage          `json:"stage"`
	WeekInStage         int            `json:"weekInStage"`
	CompletedPrinciples []string       `json:"completedPrinciples"`
	Metrics             []Metric       `json:"metrics"`
	LastAssessment      *time.Time     `json:"lastAssessment,omitempty"`
	WellBeing           int            `json:"wellBeing"`
	SystemHealth        int            `json:"systemHealth"`
	Energy              [24]EnergySlot `json:"energy"`
}

// Patch is a partial profile update. Nil fields are left untouched; Metrics
// are deep-merged by ID (replace matching entries, append new ones).
type Patch struct {
	Stage               *Stage
	WeekInStage         *int
	CompletedPrinciples []string
	Metrics             []Metric
	LastAssessment      *time.Time
	WellBeing           *int
	SystemHealth        *int
}

// Store holds the profile. It is not safe for concurrent use on its own;
// the engine facade serializes access.
type Store struct {
	p Profile
}

// New returns a store seeded with the defaults a fresh user starts from.
func New() *Store {
	return &Store{p: Default()}
}

// Default is the profile of a brand-new user: foundation stage, week one,
// a neutral energy table and the starter metric set.
func Default() Profile {
	p := Profile{
		Stage:               StageFoundation,
		WeekInStage:         1,
		CompletedPrinciples: []string{},
		WellBeing:           7,
		SystemHealth:        8,
		Metrics:             defaultMetrics(),
	}
	for h := 0; h < 24; h++ {
		p.Energy[h] = EnergySlot{Hour: h, Level: EnergyMedium, Confidence: defaultConfidence}
	}
	return p
}

func defaultMetrics() []Metric {
	now := time.Now()
	return []Metric{
		{ID: "deep-work-hours", Name: "Deep work hours", Category: "focus", Current: 0, Target: 20, Trend: TrendStable, UpdatedAt: now},
		{ID: "task-completion", Name: "Task completion rate", Category: "output", Current: 0, Target: 80, Trend: TrendStable, UpdatedAt: now},
		{ID: "break-adherence", Name: "Break adherence", Category: "balance", Current: 0, Target: 90, Trend: TrendStable, UpdatedAt: now},
	}
}

// Get returns a copy of the current profile.
func (s *Store) Get() Profile {
	return cloneProfile(s.p)
}

// Restore replaces the stored profile wholesale, normalizing anything a
// partial or legacy snapshot left inconsistent.
func (s *Store) Restore(p Profile) {
	s.p = normalize(p)
}

// Update applies a partial update and returns the resulting profile.
func (s *Store) Update(patch Patch) Profile {
	if patch.Stage != nil {
		if _, ok := stageIndex(*patch.Stage); ok {
			s.p.Stage = *patch.Stage
		}
	}
	if patch.WeekInStage != nil && *patch.WeekInStage >= 1 {
		s.p.WeekInStage = *patch.WeekInStage
	}
	if patch.CompletedPrinciples != nil {
		s.p.CompletedPrinciples = append([]string{}, patch.CompletedPrinciples...)
	}
	if patch.LastAssessment != nil {
		t := *patch.LastAssessment
		s.p.LastAssessment = &t
	}
	if patch.WellBeing != nil {
		s.p.WellBeing = clampScore(*patch.WellBeing)
	}
	if patch.SystemHealth != nil {
		s.p.SystemHealth = clampScore(*patch.SystemHealth)
	}
	for _, m := range patch.Metrics {
		s.upsertMetric(m)
	}
	return s.Get()
}

// AdvanceStage moves the profile to the next stage in the fixed ordering and
// resets the week counter. At the terminal stage it is a no-op.
func (s *Store) AdvanceStage() Profile {
	idx, ok := stageIndex(s.p.Stage)
	if !ok || idx == len(stageOrder)-1 {
		return s.Get()
	}
	s.p.Stage = stageOrder[idx+1]
	s.p.WeekInStage = 1
	return s.Get()
}

// AdvanceWeek increments the week-in-stage counter. The surrounding
// application drives this from its calendar once per week.
func (s *Store) AdvanceWeek() Profile {
	s.p.WeekInStage++
	return s.Get()
}

// RecordEnergy updates the slot for the given hour. Out-of-range hours are
// ignored (lenient-input policy). Re-observing an hour raises its confidence
// by ConfidenceStep, capped at 1.0; confidence never decreases.
func (s *Store) RecordEnergy(hour int, level EnergyLevel) {
	if hour < 0 || hour > 23 {
		return
	}
	if level != EnergyLow && level != EnergyMedium && level != EnergyHigh {
		return
	}
	slot := &s.p.Energy[hour]
	slot.Hour = hour
	slot.Level = level
	slot.Confidence += ConfidenceStep
	if slot.Confidence > 1.0 {
		slot.Confidence = 1.0
	}
}

// RecordWellBeing stores the score clamped to [1,10].
func (s *Store) RecordWellBeing(score int) {
	s.p.WellBeing = clampScore(score)
}

// RecordSystemHealth stores the score clamped to [1,10].
func (s *Store) RecordSystemHealth(score int) {
	s.p.SystemHealth = clampScore(score)
}

// RecordMetric upserts a metric by ID and stamps its update time.
func (s *Store) RecordMetric(m Metric) {
	m.UpdatedAt = time.Now()
	s.upsertMetric(m)
}

// MarkPrincipleComplete adds a principle to the completed set; duplicates
// are ignored.
func (s *Store) MarkPrincipleComplete(id string) {
	id = strings.TrimSpace(id)
	if id == "" {
		return
	}
	for _, existing := range s.p.CompletedPrinciples {
		if existing == id {
			return
		}
	}
	s.p.CompletedPrinciples = append(s.p.CompletedPrinciples, id)
}

// SetLastAssessment stamps the most recent assessment time.
func (s *Store) SetLastAssessment(t time.Time) {
	s.p.LastAssessment = &t
}

// StageCompletion reports progress through the current stage in [0,1],
// capped at 1 once the planned weeks are done.
func (s *Store) StageCompletion() float64 {
	total := StageWeeks[s.p.Stage]
	if total <= 0 {
		return 0
	}
	completion := float64(s.p.WeekInStage) / float64(total)
	if completion > 1 {
		completion = 1
	}
	return completion
}

// PeakHours returns the hours rated high-energy with at least the given
// confidence, in ascending order.
func (s *Store) PeakHours(minConfidence float64) []int {
	var hours []int
	for _, slot := range s.p.Energy {
		if slot.Level == EnergyHigh && slot.Confidence >= minConfidence {
			hours = append(hours, slot.Hour)
		}
	}
	sort.Ints(hours)
	return hours
}

func (s *Store) upsertMetric(m Metric) {
	if strings.TrimSpace(m.ID) == "" {
		return
	}
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = time.Now()
	}
	for i := range s.p.Metrics {
		if s.p.Metrics[i].ID == m.ID {
			s.p.Metrics[i] = m
			return
		}
	}
	s.p.Metrics = append(s.p.Metrics, m)
}

func clampScore(score int) int {
	if score < minScore {
		return minScore
	}
	if score > maxScore {
		return maxScore
	}
	return score
}

func stageIndex(stage Stage) (int, bool) {
	for i, s := range stageOrder {
		if s == stage {
			return i, true
		}
	}
	return 0, false
}

// NextStage returns the stage after the given one, or the same stage when it
// is terminal or unknown.
func NextStage(stage Stage) Stage {
	idx, ok := stageIndex(stage)
	if !ok || idx == len(stageOrder)-1 {
		return stage
	}
	return stageOrder[idx+1]
}

func cloneProfile(p Profile) Profile {
	out := p
	out.CompletedPrinciples = append([]string{}, p.CompletedPrinciples...)
	out.Metrics = append([]Metric{}, p.Metrics...)
	if p.LastAssessment != nil {
		t := *p.LastAssessment
		out.LastAssessment = &t
	}
	return out
}

// normalize repairs a profile loaded from a snapshot: unknown stages fall
// back to foundation, scores are clamped, and every energy slot keeps its
// hour-indexed invariant even when the serialized array was short.
func normalize(p Profile) Profile {
	if _, ok := stageIndex(p.Stage); !ok {
		p.Stage = StageFoundation
	}
	if p.WeekInStage < 1 {
		p.WeekInStage = 1
	}
	if p.CompletedPrinciples == nil {
		p.CompletedPrinciples = []string{}
	}
	if p.Metrics == nil {
		p.Metrics = defaultMetrics()
	}
	p.WellBeing = clampScore(p.WellBeing)
	p.SystemHealth = clampScore(p.SystemHealth)
	for h := 0; h < 24; h++ {
		slot := p.Energy[h]
		slot.Hour = h
		switch slot.Level {
		case EnergyLow, EnergyMedium, EnergyHigh:
		default:
			slot.Level = EnergyMedium
			if slot.Confidence == 0 {
				slot.Confidence = defaultConfidence
			}
		}
		if slot.Confidence < 0 {
			slot.Confidence = 0
		}
		if slot.Confidence > 1 {
			slot.Confidence = 1
		}
		p.Energy[h] = slot
	}
	return p
}
