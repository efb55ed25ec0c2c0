package recovery

import (
	"testing"
	"time"
)

func TestStartUnknownLevel(t *testing.T) {
	w := NewWorkflow(nil)
	if w.Start(99) {
		t.Fatal("start with unknown level reported true")
	}
	if w.Active() {
		t.Error("workflow active after failed start")
	}
	if _, ok := w.Progress(); ok {
		t.Error("progress exists after failed start")
	}
}

func TestStartValidLevel(t *testing.T) {
	w := NewWorkflow(nil)
	w.now = func() time.Time { return time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC) }

	if !w.Start(1) {
		t.Fatal("start with known level reported false")
	}
	if !w.Active() {
		t.Fatal("workflow not active after start")
	}

	p, ok := w.Progress()
	if !ok {
		t.Fatal("no progress after start")
	}
	lv, _ := DefaultCatalog().Lookup(1)
	if len(p.RemainingSteps) != 1 || p.RemainingSteps[0] != lv.Action {
		t.Errorf("remaining = %v, want exactly the catalog action", p.RemainingSteps)
	}
	if len(p.CompletedSteps) != 0 {
		t.Errorf("completed = %v, want empty", p.CompletedSteps)
	}
	if p.CurrentStep != lv.Action {
		t.Errorf("currentStep = %q, want %q", p.CurrentStep, lv.Action)
	}
	if p.EstimatedMinutes != lv.Minutes {
		t.Errorf("estimatedMinutes = %d, want %d", p.EstimatedMinutes, lv.Minutes)
	}
	if p.StartedAt.IsZero() {
		t.Error("startedAt not stamped")
	}
}

func TestCompleteStep(t *testing.T) {
	w := NewWorkflow(nil)

	// Completing while idle is a no-op.
	if w.CompleteStep("anything") {
		t.Fatal("completeStep while idle reported true")
	}

	w.Start(1)
	lv, _ := DefaultCatalog().Lookup(1)

	if !w.CompleteStep(lv.Action) {
		t.Fatal("completing the planned step reported false")
	}
	p, _ := w.Progress()
	if len(p.RemainingSteps) != 0 {
		t.Errorf("remaining = %v, want empty", p.RemainingSteps)
	}
	if len(p.CompletedSteps) != 1 || p.CompletedSteps[0] != lv.Action {
		t.Errorf("completed = %v, want the planned step", p.CompletedSteps)
	}
	if p.CurrentStep != "" {
		t.Errorf("currentStep = %q, want cleared", p.CurrentStep)
	}

	// Steps outside the plan are accepted and recorded anyway.
	if !w.CompleteStep("took a nap") {
		t.Fatal("completing an unplanned step reported false")
	}
	p, _ = w.Progress()
	if len(p.CompletedSteps) != 2 || p.CompletedSteps[1] != "took a nap" {
		t.Errorf("completed = %v, want unplanned step appended", p.CompletedSteps)
	}
	if w.CompleteStep("  ") {
		t.Error("blank step accepted")
	}
}

func TestAddStep(t *testing.T) {
	w := NewWorkflow(nil)
	if w.AddStep("stretch") {
		t.Fatal("addStep while idle reported true")
	}

	w.Start(1)
	if !w.AddStep("drink water") {
		t.Fatal("addStep while active reported false")
	}
	p, _ := w.Progress()
	if len(p.RemainingSteps) != 2 || p.RemainingSteps[1] != "drink water" {
		t.Errorf("remaining = %v, want appended step", p.RemainingSteps)
	}

	// Completing everything then adding a step makes it current again.
	w.CompleteStep(p.RemainingSteps[0])
	w.CompleteStep("drink water")
	w.AddStep("one more lap")
	p, _ = w.Progress()
	if p.CurrentStep != "one more lap" {
		t.Errorf("currentStep = %q, want newly added step", p.CurrentStep)
	}
}

func TestFinishUnconditional(t *testing.T) {
	w := NewWorkflow(nil)

	if _, ok := w.Finish(); ok {
		t.Fatal("finish while idle reported true")
	}

	w.Start(2)
	done, ok := w.Finish()
	if !ok {
		t.Fatal("finish while active reported false")
	}
	// Remaining steps do not block finishing.
	if len(done.RemainingSteps) != 1 {
		t.Errorf("finished with remaining = %v, want the untouched plan", done.RemainingSteps)
	}
	if w.Active() {
		t.Error("workflow still active after finish")
	}

	// Reusable: a fresh recovery can start from idle again.
	if !w.Start(1) {
		t.Error("workflow not reusable after finish")
	}
}

func TestStartWhileActiveReplaces(t *testing.T) {
	w := NewWorkflow(nil)
	w.Start(1)
	w.CompleteStep("warmup")

	if !w.Start(3) {
		t.Fatal("restart reported false")
	}
	p, _ := w.Progress()
	if p.Level != 3 {
		t.Errorf("level = %d, want 3 after restart", p.Level)
	}
	if len(p.CompletedSteps) != 0 {
		t.Errorf("completed = %v, want fresh progress", p.CompletedSteps)
	}
}

func TestProgressIsCopy(t *testing.T) {
	w := NewWorkflow(nil)
	w.Start(1)
	p, _ := w.Progress()
	p.RemainingSteps[0] = "tampered"

	fresh, _ := w.Progress()
	if fresh.RemainingSteps[0] == "tampered" {
		t.Error("mutating returned progress leaked into the workflow")
	}
}

func TestRestore(t *testing.T) {
	w := NewWorkflow(nil)
	w.Restore(nil)
	if w.Active() {
		t.Fatal("restore(nil) left workflow active")
	}

	saved := Progress{
		Level:            7, // no longer in the catalog
		StartedAt:        time.Date(2025, 6, 30, 9, 0, 0, 0, time.UTC),
		EstimatedMinutes: 60,
		RemainingSteps:   []string{"step a", "step b"},
	}
	w.Restore(&saved)
	if !w.Active() {
		t.Fatal("restore with progress left workflow idle")
	}
	p, _ := w.Progress()
	if p.Level != 7 {
		t.Errorf("level = %d, want in-flight recovery kept despite catalog change", p.Level)
	}
	if p.CurrentStep != "step a" {
		t.Errorf("currentStep = %q, want repaired from remaining list", p.CurrentStep)
	}
	if p.CompletedSteps == nil {
		t.Error("completedSteps = nil, want initialized empty slice")
	}
}
