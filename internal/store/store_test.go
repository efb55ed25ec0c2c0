package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Gabo8286/luna-engine/internal/ledger"
	"github.com/Gabo8286/luna-engine/internal/profile"
	"github.com/Gabo8286/luna-engine/internal/recovery"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "luna.db"))
	if err != nil {
		t.Fatalf("NewStore error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "luna.db")

	s, err := NewStore(dbPath)
	if err != nil {
		t.Fatalf("NewStore error: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	// Idempotent reopen against the same path.
	s2, err := NewStore(dbPath)
	if err != nil {
		t.Fatalf("NewStore reopen error: %v", err)
	}
	defer s2.Close()
}

func TestLoadNoState(t *testing.T) {
	s := newTestStore(t)
	rec, err := s.Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if rec != nil {
		t.Errorf("rec = %+v, want nil for empty store", rec)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)

	assessedAt := time.Date(2025, 6, 28, 14, 30, 0, 0, time.UTC)
	createdAt := time.Date(2025, 7, 1, 9, 15, 0, 0, time.UTC)
	scheduledAt := time.Date(2025, 7, 3, 8, 0, 0, 0, time.UTC)
	startedAt := time.Date(2025, 7, 1, 16, 45, 0, 0, time.UTC)
	checkedAt := time.Date(2025, 7, 1, 17, 0, 0, 0, time.UTC)
	observedAt := time.Date(2025, 6, 30, 20, 0, 0, 0, time.UTC)

	rec := NewRecord()
	rec.Profile.Stage = profile.StageOptimization
	rec.Profile.WeekInStage = 3
	rec.Profile.LastAssessment = &assessedAt
	rec.Ledger = ledger.Snapshot{
		Insights: []ledger.Insight{{
			ID: "ins-1", Kind: ledger.InsightWarning, Title: "t", Priority: ledger.PriorityHigh, CreatedAt: createdAt,
		}},
		Reminders: []ledger.Reminder{{
			ID: "rem-1", Kind: ledger.ReminderReview, Title: "review", ScheduledAt: scheduledAt, Priority: ledger.PriorityMedium,
		}},
		Assessments: []ledger.Assessment{{
			ID: "as-1", TakenAt: assessedAt, Stage: profile.StageOptimization, Completion: 0.5,
		}},
	}
	rec.RecoveryProgress = &recovery.Progress{
		Level: 1, StartedAt: startedAt, EstimatedMinutes: 30,
		RemainingSteps: []string{"step"}, CompletedSteps: []string{}, CurrentStep: "step",
	}
	rec.BehaviorPatterns = []ledger.BehaviorPattern{{
		Pattern: "night owl", Frequency: 3, Impact: ledger.ImpactNeutral, Confidence: 0.4, LastObserved: observedAt,
	}}
	rec.LastProactiveCheck = &checkedAt

	if err := s.Save(rec); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	loaded, err := s.Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if loaded == nil {
		t.Fatal("Load returned nil after Save")
	}

	// Every date-bearing field survives as the same instant.
	if !loaded.Profile.LastAssessment.Equal(assessedAt) {
		t.Errorf("lastAssessment = %v, want %v", loaded.Profile.LastAssessment, assessedAt)
	}
	if !loaded.Ledger.Insights[0].CreatedAt.Equal(createdAt) {
		t.Errorf("insight createdAt = %v, want %v", loaded.Ledger.Insights[0].CreatedAt, createdAt)
	}
	if !loaded.Ledger.Reminders[0].ScheduledAt.Equal(scheduledAt) {
		t.Errorf("reminder scheduledAt = %v, want %v", loaded.Ledger.Reminders[0].ScheduledAt, scheduledAt)
	}
	if !loaded.Ledger.Assessments[0].TakenAt.Equal(assessedAt) {
		t.Errorf("assessment takenAt = %v, want %v", loaded.Ledger.Assessments[0].TakenAt, assessedAt)
	}
	if !loaded.RecoveryProgress.StartedAt.Equal(startedAt) {
		t.Errorf("recovery startedAt = %v, want %v", loaded.RecoveryProgress.StartedAt, startedAt)
	}
	if !loaded.LastProactiveCheck.Equal(checkedAt) {
		t.Errorf("lastProactiveCheck = %v, want %v", loaded.LastProactiveCheck, checkedAt)
	}
	if !loaded.BehaviorPatterns[0].LastObserved.Equal(observedAt) {
		t.Errorf("pattern lastObserved = %v, want %v", loaded.BehaviorPatterns[0].LastObserved, observedAt)
	}

	if loaded.Profile.Stage != profile.StageOptimization || loaded.Profile.WeekInStage != 3 {
		t.Errorf("profile = %q week %d, want optimization week 3", loaded.Profile.Stage, loaded.Profile.WeekInStage)
	}
	if loaded.RecoveryProgress.CurrentStep != "step" {
		t.Errorf("currentStep = %q, want step", loaded.RecoveryProgress.CurrentStep)
	}
}

func TestSaveIsUpsert(t *testing.T) {
	s := newTestStore(t)

	rec := NewRecord()
	rec.Profile.WeekInStage = 1
	if err := s.Save(rec); err != nil {
		t.Fatalf("first Save: %v", err)
	}
	rec.Profile.WeekInStage = 9
	if err := s.Save(rec); err != nil {
		t.Fatalf("second Save: %v", err)
	}

	var count int
	if err := s.db.QueryRow(`SELECT COUNT(1) FROM coach_state`).Scan(&count); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if count != 1 {
		t.Errorf("rows = %d, want single upserted row", count)
	}

	loaded, err := s.Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if loaded.Profile.WeekInStage != 9 {
		t.Errorf("weekInStage = %d, want last write to win", loaded.Profile.WeekInStage)
	}
}

func TestLoadCorruptEnvelope(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.db.Exec(
		`INSERT INTO coach_state (key, value) VALUES (?, ?)`, stateKey, "{definitely not json",
	); err != nil {
		t.Fatalf("seed corrupt row: %v", err)
	}

	rec, err := s.Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if rec != nil {
		t.Errorf("rec = %+v, want nil for unreadable state", rec)
	}
}

func TestLoadCorruptSection(t *testing.T) {
	s := newTestStore(t)

	// Profile section is garbage; preferences are valid and must survive.
	value := `{"version":1,"profile":42,"preferences":{"tone":"direct","quietHoursStart":23,"quietHoursEnd":6}}`
	if _, err := s.db.Exec(
		`INSERT INTO coach_state (key, value) VALUES (?, ?)`, stateKey, value,
	); err != nil {
		t.Fatalf("seed row: %v", err)
	}

	rec, err := s.Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if rec == nil {
		t.Fatal("Load returned nil, want partial record")
	}
	if rec.Profile.Stage != profile.StageFoundation {
		t.Errorf("stage = %q, want default after corrupt profile section", rec.Profile.Stage)
	}
	if rec.Preferences.Tone != "direct" {
		t.Errorf("tone = %q, want valid section kept", rec.Preferences.Tone)
	}
}

func TestMigrateUnversionedRecord(t *testing.T) {
	s := newTestStore(t)

	legacy := map[string]any{
		"profile": map[string]any{"stage": "mastery", "weekInStage": 2, "wellBeing": 8, "systemHealth": 9},
	}
	data, _ := json.Marshal(legacy)
	if _, err := s.db.Exec(
		`INSERT INTO coach_state (key, value) VALUES (?, ?)`, stateKey, string(data),
	); err != nil {
		t.Fatalf("seed row: %v", err)
	}

	rec, err := s.Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if rec.Version != SchemaVersion {
		t.Errorf("version = %d, want migrated to %d", rec.Version, SchemaVersion)
	}
	if rec.Profile.Stage != profile.StageMastery {
		t.Errorf("stage = %q, want mastery preserved", rec.Profile.Stage)
	}
	if rec.Preferences.Tone == "" {
		t.Error("preferences should be defaulted for legacy records")
	}
}

func TestMigrateFromFile(t *testing.T) {
	dir := t.TempDir()
	legacyPath := filepath.Join(dir, "luna-state.json")

	rec := NewRecord()
	rec.Profile.Stage = profile.StageOptimization
	data, _ := json.Marshal(rec)
	if err := os.WriteFile(legacyPath, data, 0644); err != nil {
		t.Fatal(err)
	}

	s := newTestStore(t)
	if err := MigrateFromFile(legacyPath, s); err != nil {
		t.Fatalf("MigrateFromFile error: %v", err)
	}

	loaded, err := s.Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if loaded == nil || loaded.Profile.Stage != profile.StageOptimization {
		t.Fatal("legacy state was not imported")
	}

	// A second import must not clobber live state.
	rec2 := NewRecord()
	rec2.Profile.Stage = profile.StageMastery
	data2, _ := json.Marshal(rec2)
	os.WriteFile(legacyPath, data2, 0644)
	if err := MigrateFromFile(legacyPath, s); err != nil {
		t.Fatalf("MigrateFromFile rerun error: %v", err)
	}
	loaded, _ = s.Load()
	if loaded.Profile.Stage != profile.StageOptimization {
		t.Errorf("stage = %q, want original import kept", loaded.Profile.Stage)
	}
}

func TestMigrateFromFileMissing(t *testing.T) {
	s := newTestStore(t)
	if err := MigrateFromFile(filepath.Join(t.TempDir(), "missing.json"), s); err != nil {
		t.Fatalf("MigrateFromFile on missing file: %v", err)
	}
	rec, _ := s.Load()
	if rec != nil {
		t.Error("missing legacy file should leave the store empty")
	}
}
