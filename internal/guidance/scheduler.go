package guidance

import (
	"fmt"
	"log"
	"sync"
	"time"

	rcron "github.com/robfig/cron/v3"
)

// DefaultInterval is the cadence of the proactive evaluation loop.
const DefaultInterval = 30 * time.Minute

// Scheduler runs the rule set on a fixed cadence while proactive mode is
// enabled, and on demand through Evaluate. Timer callbacks go through
// OnTick, which the owning engine points back at itself; the scheduler
// never touches engine state directly.
type Scheduler struct {
	mu        sync.Mutex
	interval  time.Duration
	lastCheck time.Time
	rules     []Rule
	cron      *rcron.Cron
	now       func() time.Time

	// OnTick is invoked on every timer tick while enabled. Set it before
	// calling Enable.
	OnTick func()
}

// NewScheduler builds a scheduler with the given cadence and rules. A
// non-positive interval falls back to DefaultInterval; nil rules fall back
// to DefaultRules.
func NewScheduler(interval time.Duration, rules []Rule) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if rules == nil {
		rules = DefaultRules()
	}
	return &Scheduler{
		interval: interval,
		rules:    rules,
		now:      time.Now,
	}
}

// Enable starts the periodic tick. Enabling while already enabled is a
// no-op and reports false, so exactly one timer exists at a time.
func (s *Scheduler) Enable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return false
	}

	c := rcron.New()
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", s.interval), func() {
		if s.OnTick != nil {
			s.OnTick()
		}
	}); err != nil {
		log.Printf("[guidance] failed to register tick: %v", err)
		return false
	}
	c.Start()
	s.cron = c
	log.Printf("[guidance] proactive mode enabled (every %s)", s.interval)
	return true
}

// Disable stops the periodic tick, waiting briefly for an in-flight tick to
// finish. Disabling while already disabled is a no-op and reports false.
func (s *Scheduler) Disable() bool {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c == nil {
		return false
	}

	stopCtx := c.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(5 * time.Second):
		log.Printf("[guidance] stop timeout waiting for running evaluation")
	}
	log.Printf("[guidance] proactive mode disabled")
	return true
}

// Enabled reports whether the periodic tick is running.
func (s *Scheduler) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cron != nil
}

// Interval returns the evaluation cadence.
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// LastCheck returns when the last evaluation ran; zero if never.
func (s *Scheduler) LastCheck() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastCheck
}

// RestoreLastCheck rehydrates the debounce clock from persisted state.
func (s *Scheduler) RestoreLastCheck(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastCheck = t
}

// Evaluate runs the rule set against the view and returns the findings,
// plus whether the evaluation ran at all. Unforced evaluations are skipped
// while proactive mode is disabled or while the last evaluation is younger
// than one cadence period; forced evaluations run regardless. Any
// evaluation that runs advances the last-check clock, even when nothing
// fires. Each rule is isolated: one failing rule never suppresses the rest.
func (s *Scheduler) Evaluate(v View, force bool) ([]Finding, bool) {
	s.mu.Lock()
	if !force {
		if s.cron == nil {
			s.mu.Unlock()
			return nil, false
		}
		if !s.lastCheck.IsZero() && v.Now.Sub(s.lastCheck) < s.interval {
			s.mu.Unlock()
			return nil, false
		}
	}
	s.lastCheck = v.Now
	rules := s.rules
	s.mu.Unlock()

	var findings []Finding
	for _, rule := range rules {
		if finding, fired := runRule(rule, v); fired {
			findings = append(findings, finding)
		}
	}
	if len(findings) > 0 {
		log.Printf("[guidance] %d rule(s) fired", len(findings))
	}
	return findings, true
}
