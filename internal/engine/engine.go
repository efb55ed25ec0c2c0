// Package engine is the single entry point around the coach's state: the
// profile, the insight ledger, the recovery workflow and the guidance
// scheduler, persisted write-through after every mutation. Construct one
// Engine at startup, Start it, and route every operation through it; no
// component underneath is safe to share.
package engine

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Gabo8286/luna-engine/internal/bus"
	"github.com/Gabo8286/luna-engine/internal/config"
	"github.com/Gabo8286/luna-engine/internal/guidance"
	"github.com/Gabo8286/luna-engine/internal/interpreter"
	"github.com/Gabo8286/luna-engine/internal/ledger"
	"github.com/Gabo8286/luna-engine/internal/profile"
	"github.com/Gabo8286/luna-engine/internal/recovery"
	"github.com/Gabo8286/luna-engine/internal/store"
)

// Options carries the optional collaborators. Zero values mean: keyword
// interpreter, no notification bus, wall clock.
type Options struct {
	Interpreter interpreter.Interpreter
	Bus         *bus.MessageBus
	Now         func() time.Time
}

// Engine wires the coach together. All state mutation is serialized behind
// one mutex; the scheduler tick re-enters through evaluate on its own
// goroutine. Every mutator persists the full snapshot before returning;
// save failures are logged, never surfaced to the caller.
type Engine struct {
	cfg    *config.Config
	store  *store.Store
	bus    *bus.MessageBus
	interp interpreter.Interpreter
	now    func() time.Time

	mu        sync.Mutex
	profile   *profile.Store
	ledger    *ledger.Ledger
	recovery  *recovery.Workflow
	sched     *guidance.Scheduler
	prefs     store.Preferences
	announced map[string]struct{}
	started   bool
}

func New(cfg *config.Config, st *store.Store, opts Options) (*Engine, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if st == nil {
		return nil, fmt.Errorf("engine store is required")
	}

	catalog := recovery.DefaultCatalog()
	if cfg.Coach.RecoveryCatalog != "" {
		loaded, err := recovery.LoadCatalog(cfg.Coach.RecoveryCatalog)
		if err != nil {
			log.Printf("[engine] recovery catalog warning, using built-in: %v", err)
		} else {
			catalog = loaded
		}
	}

	interp := opts.Interpreter
	if interp == nil {
		interp = interpreter.NewKeyword()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	e := &Engine{
		cfg:       cfg,
		store:     st,
		bus:       opts.Bus,
		interp:    interp,
		now:       now,
		profile:   profile.New(),
		ledger:    ledger.New(),
		recovery:  recovery.NewWorkflow(catalog),
		prefs:     store.DefaultPreferences(),
		announced: make(map[string]struct{}),
	}
	e.sched = e.newScheduler(time.Duration(cfg.Coach.CheckIntervalMinutes) * time.Minute)
	return e, nil
}

func (e *Engine) newScheduler(interval time.Duration) *guidance.Scheduler {
	s := guidance.NewScheduler(interval, nil)
	s.OnTick = func() { e.evaluate(false) }
	return s
}

// Start loads the persisted snapshot (or seeds defaults on first run),
// rehydrates every component, and enables proactive mode when both the
// persisted preference and the config allow it. Calling Start twice is a
// no-op. The context bounds the proactive loop: when it is cancelled the
// periodic tick stops.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return nil
	}
	e.started = true

	rec, err := e.store.Load()
	if err != nil {
		log.Printf("[engine] load state warning, starting from defaults: %v", err)
		rec = nil
	}
	fresh := rec == nil
	if fresh {
		rec = store.NewRecord()
	}

	e.profile.Restore(rec.Profile)
	e.ledger.Restore(rec.Ledger)
	e.ledger.RestorePatterns(rec.BehaviorPatterns)
	e.recovery.Restore(rec.RecoveryProgress)
	e.prefs = rec.Preferences

	// Preferences may carry a cadence override unknown at construction.
	if want := e.intervalLocked(); want != e.sched.Interval() {
		e.sched = e.newScheduler(want)
	}
	if rec.LastProactiveCheck != nil {
		e.sched.RestoreLastCheck(*rec.LastProactiveCheck)
	}

	if fresh {
		e.persistLocked()
	}

	stage := e.profile.Get().Stage
	proactive := e.prefs.Proactive && e.cfg.Coach.ProactiveOnStart
	sched := e.sched
	e.mu.Unlock()

	if proactive {
		sched.Enable()
	}
	if ctx != nil && ctx.Done() != nil {
		go func() {
			<-ctx.Done()
			sched.Disable()
		}()
	}

	log.Printf("[engine] started (stage=%s, proactive=%v)", stage, proactive)
	return nil
}

// Close stops the proactive loop, writes a final snapshot and closes the
// store.
func (e *Engine) Close() error {
	e.mu.Lock()
	sched := e.sched
	e.mu.Unlock()
	sched.Disable()

	e.mu.Lock()
	e.persistLocked()
	e.mu.Unlock()

	if err := e.store.Close(); err != nil {
		return fmt.Errorf("close store: %w", err)
	}
	log.Printf("[engine] closed")
	return nil
}

func (e *Engine) intervalLocked() time.Duration {
	if e.prefs.CadenceMinutes > 0 {
		return time.Duration(e.prefs.CadenceMinutes) * time.Minute
	}
	return time.Duration(e.cfg.Coach.CheckIntervalMinutes) * time.Minute
}

// snapshotLocked assembles the full persistence record from the live
// components.
func (e *Engine) snapshotLocked() *store.Record {
	var prog *recovery.Progress
	if p, ok := e.recovery.Progress(); ok {
		prog = &p
	}
	var lastCheck *time.Time
	if lc := e.sched.LastCheck(); !lc.IsZero() {
		t := lc
		lastCheck = &t
	}
	return &store.Record{
		Version:            store.SchemaVersion,
		Profile:            e.profile.Get(),
		Ledger:             e.ledger.Snapshot(),
		RecoveryProgress:   prog,
		Preferences:        e.prefs,
		BehaviorPatterns:   e.ledger.Patterns(),
		LastProactiveCheck: lastCheck,
	}
}

func (e *Engine) persistLocked() {
	if err := e.store.Save(e.snapshotLocked()); err != nil {
		log.Printf("[engine] save state warning: %v", err)
	}
}

// --- profile operations ---

func (e *Engine) Profile() profile.Profile {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.profile.Get()
}

// UpdateProfile applies a partial update and returns the resulting profile.
func (e *Engine) UpdateProfile(patch profile.Patch) profile.Profile {
	e.mu.Lock()
	p := e.profile.Update(patch)
	e.persistLocked()
	e.mu.Unlock()
	return p
}

// AdvanceStage moves to the next stage and resets the week counter; a no-op
// at the terminal stage.
func (e *Engine) AdvanceStage() profile.Profile {
	e.mu.Lock()
	p := e.profile.AdvanceStage()
	e.persistLocked()
	e.mu.Unlock()
	return p
}

// AdvanceWeek increments the week-in-stage counter.
func (e *Engine) AdvanceWeek() profile.Profile {
	e.mu.Lock()
	p := e.profile.AdvanceWeek()
	e.persistLocked()
	e.mu.Unlock()
	return p
}

// RecordMetric upserts a metric by ID.
func (e *Engine) RecordMetric(m profile.Metric) {
	e.mu.Lock()
	e.profile.RecordMetric(m)
	e.persistLocked()
	e.mu.Unlock()
}

// RecordWellBeing stores the score clamped to [1,10].
func (e *Engine) RecordWellBeing(score int) {
	e.mu.Lock()
	e.profile.RecordWellBeing(score)
	e.persistLocked()
	e.mu.Unlock()
}

// RecordSystemHealth stores the score clamped to [1,10].
func (e *Engine) RecordSystemHealth(score int) {
	e.mu.Lock()
	e.profile.RecordSystemHealth(score)
	e.persistLocked()
	e.mu.Unlock()
}

// RecordEnergy notes the observed energy level for an hour of the day.
// Out-of-range hours and unknown levels are ignored.
func (e *Engine) RecordEnergy(hour int, level profile.EnergyLevel) {
	e.mu.Lock()
	e.profile.RecordEnergy(hour, level)
	e.persistLocked()
	e.mu.Unlock()
}

// MarkPrincipleComplete adds a principle to the completed set.
func (e *Engine) MarkPrincipleComplete(id string) {
	e.mu.Lock()
	e.profile.MarkPrincipleComplete(id)
	e.persistLocked()
	e.mu.Unlock()
}

// --- assessments ---

// TriggerAssessment snapshots the current profile into an immutable
// assessment, stamps the last-assessment time and persists both.
func (e *Engine) TriggerAssessment(strengths, improvements, nextSteps []string) ledger.Assessment {
	e.mu.Lock()
	now := e.now()
	p := e.profile.Get()
	a := e.ledger.RecordAssessment(ledger.Assessment{
		TakenAt:      now,
		Stage:        p.Stage,
		Completion:   e.profile.StageCompletion(),
		Strengths:    append([]string{}, strengths...),
		Improvements: append([]string{}, improvements...),
		NextSteps:    append([]string{}, nextSteps...),
		Metrics:      p.Metrics,
	})
	e.profile.SetLastAssessment(now)
	e.persistLocked()
	e.mu.Unlock()
	return a
}

func (e *Engine) Assessments() []ledger.Assessment {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.Assessments()
}

func (e *Engine) LatestAssessment() (ledger.Assessment, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.LatestAssessment()
}

// --- insights and reminders ---

// AddInsight records a user-authored insight; the ledger assigns its ID and
// timestamp and enforces the retention cap.
func (e *Engine) AddInsight(ins ledger.Insight) ledger.Insight {
	e.mu.Lock()
	out := e.ledger.AddInsight(ins)
	e.persistLocked()
	e.mu.Unlock()
	return out
}

// DismissInsight removes an insight by ID; unknown IDs are a no-op.
func (e *Engine) DismissInsight(id string) bool {
	e.mu.Lock()
	ok := e.ledger.DismissInsight(id)
	if ok {
		e.persistLocked()
	}
	e.mu.Unlock()
	return ok
}

func (e *Engine) Insights() []ledger.Insight {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.Insights()
}

func (e *Engine) RecentInsights(n int) []ledger.Insight {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.RecentInsights(n)
}

// ScheduleReminder records a reminder; the ledger assigns its ID.
func (e *Engine) ScheduleReminder(r ledger.Reminder) ledger.Reminder {
	e.mu.Lock()
	out := e.ledger.ScheduleReminder(r)
	e.persistLocked()
	e.mu.Unlock()
	return out
}

// CompleteReminder marks a reminder done; unknown or already-completed IDs
// are a no-op.
func (e *Engine) CompleteReminder(id string) bool {
	e.mu.Lock()
	ok := e.ledger.CompleteReminder(id)
	if ok {
		e.persistLocked()
	}
	e.mu.Unlock()
	return ok
}

func (e *Engine) Reminders() []ledger.Reminder {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.Reminders()
}

func (e *Engine) PendingReminders() []ledger.Reminder {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.PendingReminders()
}

// --- proactive mode ---

// EnableProactiveMode turns the periodic guidance loop on and persists the
// preference. Reports false when the loop was already running.
func (e *Engine) EnableProactiveMode() bool {
	e.mu.Lock()
	e.prefs.Proactive = true
	e.persistLocked()
	sched := e.sched
	e.mu.Unlock()
	return sched.Enable()
}

// DisableProactiveMode turns the loop off and persists the preference.
// Reports false when the loop was already stopped.
func (e *Engine) DisableProactiveMode() bool {
	e.mu.Lock()
	e.prefs.Proactive = false
	e.persistLocked()
	sched := e.sched
	e.mu.Unlock()
	return sched.Disable()
}

func (e *Engine) ProactiveEnabled() bool {
	e.mu.Lock()
	sched := e.sched
	e.mu.Unlock()
	return sched.Enabled()
}

func (e *Engine) LastProactiveCheck() time.Time {
	e.mu.Lock()
	sched := e.sched
	e.mu.Unlock()
	return sched.LastCheck()
}

// CheckForProactiveGuidance forces an immediate evaluation regardless of
// cadence or the enabled flag, and returns the insights it generated.
func (e *Engine) CheckForProactiveGuidance() []ledger.Insight {
	return e.evaluate(true)
}

// evaluate runs one guidance cycle: build the read-only view, run the rule
// set, book fired insights and their reminders, announce newly due
// reminders, persist, and push notifications after the lock is released.
func (e *Engine) evaluate(force bool) []ledger.Insight {
	e.mu.Lock()
	now := e.now()
	v := guidance.View{
		Now:             now,
		Profile:         e.profile.Get(),
		StageCompletion: e.profile.StageCompletion(),
		PeakHours:       e.profile.PeakHours(guidance.PeakConfidence),
		Recovering:      e.recovery.Active(),
	}
	findings, ran := e.sched.Evaluate(v, force)
	if !ran {
		e.mu.Unlock()
		return nil
	}

	insights := make([]ledger.Insight, 0, len(findings))
	var notes []bus.Notification
	for _, f := range findings {
		ins := e.ledger.AddInsight(f.Insight)
		insights = append(insights, ins)
		if n, ok := e.notificationLocked(bus.KindInsight, ins.Title, ins.Description, ins.Priority); ok {
			notes = append(notes, n)
		}
		if f.Reminder != nil {
			e.ledger.ScheduleReminder(*f.Reminder)
		}
	}
	for _, r := range e.ledger.DueReminders(now) {
		if _, seen := e.announced[r.ID]; seen {
			continue
		}
		e.announced[r.ID] = struct{}{}
		if n, ok := e.notificationLocked(bus.KindReminder, r.Title, r.Description, r.Priority); ok {
			notes = append(notes, n)
		}
	}
	e.persistLocked()
	e.mu.Unlock()

	e.notify(notes)
	return insights
}

// notificationLocked shapes an outbound notification, suppressing
// non-high-priority ones during the user's quiet hours.
func (e *Engine) notificationLocked(kind bus.NotificationKind, title, body string, priority ledger.Priority) (bus.Notification, bool) {
	if priority != ledger.PriorityHigh && e.inQuietHoursLocked() {
		return bus.Notification{}, false
	}
	return bus.Notification{
		Channel:   e.prefs.NotifyChannel,
		Kind:      kind,
		Title:     title,
		Body:      body,
		Priority:  string(priority),
		Timestamp: e.now(),
	}, true
}

// inQuietHoursLocked handles windows that wrap midnight (22 -> 7). Equal
// start and end means quiet hours are off.
func (e *Engine) inQuietHoursLocked() bool {
	start, end := e.prefs.QuietHoursStart, e.prefs.QuietHoursEnd
	if start == end {
		return false
	}
	h := e.now().Hour()
	if start < end {
		return h >= start && h < end
	}
	return h >= start || h < end
}

// notify pushes notifications onto the bus without ever blocking the
// engine; with no bus wired (CLI mode) they are simply not delivered.
func (e *Engine) notify(notes []bus.Notification) {
	if e.bus == nil {
		return
	}
	for _, n := range notes {
		select {
		case e.bus.Outbound <- n:
		default:
			log.Printf("[engine] outbound bus full, dropping %s notification", n.Kind)
		}
	}
}

// --- recovery ---

// StartRecovery begins a recovery at the given catalog level. Unknown
// levels leave the workflow idle and report false.
func (e *Engine) StartRecovery(level int) bool {
	e.mu.Lock()
	ok := e.recovery.Start(level)
	if ok {
		e.persistLocked()
	}
	e.mu.Unlock()
	return ok
}

// CompleteRecoveryStep marks a step of the active recovery done.
func (e *Engine) CompleteRecoveryStep(step string) bool {
	e.mu.Lock()
	ok := e.recovery.CompleteStep(step)
	if ok {
		e.persistLocked()
	}
	e.mu.Unlock()
	return ok
}

// AddRecoveryStep appends a follow-up step to the active recovery.
func (e *Engine) AddRecoveryStep(step string) bool {
	e.mu.Lock()
	ok := e.recovery.AddStep(step)
	if ok {
		e.persistLocked()
	}
	e.mu.Unlock()
	return ok
}

// FinishRecovery ends the active recovery unconditionally and returns the
// final progress.
func (e *Engine) FinishRecovery() (recovery.Progress, bool) {
	e.mu.Lock()
	done, ok := e.recovery.Finish()
	if ok {
		e.persistLocked()
	}
	e.mu.Unlock()
	return done, ok
}

func (e *Engine) Recovering() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.recovery.Active()
}

func (e *Engine) RecoveryProgress() (recovery.Progress, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.recovery.Progress()
}

func (e *Engine) RecoveryCatalog() []recovery.Level {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.recovery.Catalog().Levels()
}

// --- preferences and patterns ---

func (e *Engine) Preferences() store.Preferences {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.prefs
}

// UpdatePreferences applies a partial preferences update. A cadence change
// takes effect on the next engine start; a proactive change toggles the
// loop immediately.
func (e *Engine) UpdatePreferences(patch store.PreferencesPatch) store.Preferences {
	e.mu.Lock()
	if patch.Proactive != nil {
		e.prefs.Proactive = *patch.Proactive
	}
	if patch.CadenceMinutes != nil && *patch.CadenceMinutes >= 0 {
		e.prefs.CadenceMinutes = *patch.CadenceMinutes
	}
	if patch.Tone != nil && *patch.Tone != "" {
		e.prefs.Tone = *patch.Tone
	}
	if patch.NotifyChannel != nil {
		e.prefs.NotifyChannel = *patch.NotifyChannel
	}
	if patch.QuietHoursStart != nil && validHour(*patch.QuietHoursStart) {
		e.prefs.QuietHoursStart = *patch.QuietHoursStart
	}
	if patch.QuietHoursEnd != nil && validHour(*patch.QuietHoursEnd) {
		e.prefs.QuietHoursEnd = *patch.QuietHoursEnd
	}
	out := e.prefs
	e.persistLocked()
	sched := e.sched
	e.mu.Unlock()

	if patch.Proactive != nil {
		if *patch.Proactive {
			sched.Enable()
		} else {
			sched.Disable()
		}
	}
	return out
}

func validHour(h int) bool {
	return h >= 0 && h <= 23
}

// RecordBehaviorPattern books an observed pattern; re-observations bump
// frequency and confidence.
func (e *Engine) RecordBehaviorPattern(p ledger.BehaviorPattern) (ledger.BehaviorPattern, bool) {
	e.mu.Lock()
	out, ok := e.ledger.RecordPattern(p)
	if ok {
		e.persistLocked()
	}
	e.mu.Unlock()
	return out, ok
}

func (e *Engine) BehaviorPatterns() []ledger.BehaviorPattern {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.Patterns()
}

// --- free text ---

// SuggestActions hands user-authored text to the interpreter and returns
// its suggestions. Interpreter failures mean no suggestions, never an
// engine error.
func (e *Engine) SuggestActions(ctx context.Context, text, contextTag string) []interpreter.Action {
	actions, err := e.interp.Interpret(ctx, text, contextTag)
	if err != nil {
		log.Printf("[engine] interpret warning: %v", err)
		return nil
	}
	return actions
}
