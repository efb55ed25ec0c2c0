package recovery

import (
	"strings"
	"time"
)

// Progress tracks an active recovery. It exists only while the workflow is
// active and is discarded on finish.
type Progress struct {
	Level            int       `json:"level"`
	Name             string    `json:"name"`
	StartedAt        time.Time `json:"startedAt"`
	EstimatedMinutes int       `json:"estimatedMinutes"`
	CompletedSteps   []string  `json:"completedSteps"`
	RemainingSteps   []string  `json:"remainingSteps"`
	CurrentStep      string    `json:"currentStep"`
}

// Workflow is the recovery state machine: idle until started with a known
// catalog level, active until finished. It is deliberately permissive:
// unknown levels are ignored, unknown steps are recorded anyway, and finish
// always succeeds. It is not safe for concurrent use on its own; the engine
// facade serializes access.
type Workflow struct {
	catalog *Catalog
	active  *Progress
	now     func() time.Time
}

// NewWorkflow returns an idle workflow over the given catalog. A nil
// catalog falls back to the built-in one.
func NewWorkflow(catalog *Catalog) *Workflow {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Workflow{catalog: catalog, now: time.Now}
}

// Active reports whether a recovery is in progress.
func (w *Workflow) Active() bool {
	return w.active != nil
}

// Progress returns a copy of the active progress, if any.
func (w *Workflow) Progress() (Progress, bool) {
	if w.active == nil {
		return Progress{}, false
	}
	return cloneProgress(*w.active), true
}

// Catalog returns the catalog the workflow selects levels from.
func (w *Workflow) Catalog() *Catalog {
	return w.catalog
}

// Start begins recovery at the given level. Unknown levels leave the state
// untouched and report false. Starting while already active replaces the
// current progress with a fresh one.
func (w *Workflow) Start(level int) bool {
	lv, ok := w.catalog.Lookup(level)
	if !ok {
		return false
	}
	w.active = &Progress{
		Level:            lv.Level,
		Name:             lv.Name,
		StartedAt:        w.now(),
		EstimatedMinutes: lv.Minutes,
		CompletedSteps:   []string{},
		RemainingSteps:   []string{lv.Action},
		CurrentStep:      lv.Action,
	}
	return true
}

// CompleteStep marks a step done. Steps found in the remaining list move to
// completed; steps not in the plan are appended to completed anyway. Calling
// while idle is a no-op.
func (w *Workflow) CompleteStep(step string) bool {
	if w.active == nil {
		return false
	}
	step = strings.TrimSpace(step)
	if step == "" {
		return false
	}
	for i, remaining := range w.active.RemainingSteps {
		if remaining == step {
			w.active.RemainingSteps = append(w.active.RemainingSteps[:i], w.active.RemainingSteps[i+1:]...)
			break
		}
	}
	w.active.CompletedSteps = append(w.active.CompletedSteps, step)
	if len(w.active.RemainingSteps) > 0 {
		w.active.CurrentStep = w.active.RemainingSteps[0]
	} else {
		w.active.CurrentStep = ""
	}
	return true
}

// AddStep appends a follow-up step to the remaining list of an active
// recovery. Idle workflows ignore it.
func (w *Workflow) AddStep(step string) bool {
	if w.active == nil {
		return false
	}
	step = strings.TrimSpace(step)
	if step == "" {
		return false
	}
	w.active.RemainingSteps = append(w.active.RemainingSteps, step)
	if w.active.CurrentStep == "" {
		w.active.CurrentStep = step
	}
	return true
}

// Finish clears the active recovery unconditionally, whether or not steps
// remain. The workflow returns to idle and can be started again.
func (w *Workflow) Finish() (Progress, bool) {
	if w.active == nil {
		return Progress{}, false
	}
	done := cloneProgress(*w.active)
	w.active = nil
	return done, true
}

// Restore rehydrates progress from a persisted snapshot. A nil progress
// leaves the workflow idle. Levels no longer in the catalog are kept as-is
// so an in-flight recovery survives a catalog change.
func (w *Workflow) Restore(p *Progress) {
	if p == nil {
		w.active = nil
		return
	}
	restored := cloneProgress(*p)
	if restored.CompletedSteps == nil {
		restored.CompletedSteps = []string{}
	}
	if restored.RemainingSteps == nil {
		restored.RemainingSteps = []string{}
	}
	if restored.CurrentStep == "" && len(restored.RemainingSteps) > 0 {
		restored.CurrentStep = restored.RemainingSteps[0]
	}
	w.active = &restored
}

func cloneProgress(p Progress) Progress {
	out := p
	out.CompletedSteps = append([]string{}, p.CompletedSteps...)
	out.RemainingSteps = append([]string{}, p.RemainingSteps...)
	return out
}
