package store

import (
	"encoding/json"
	"log"
	"time"

	"github.com/Gabo8286/luna-engine/internal/ledger"
	"github.com/Gabo8286/luna-engine/internal/profile"
	"github.com/Gabo8286/luna-engine/internal/recovery"
)

// SchemaVersion tags saved records so future loads can migrate old shapes.
const SchemaVersion = 1

// Preferences is the small user-tunable configuration persisted with the
// engine state. CadenceMinutes overrides the configured proactive check
// interval when positive; zero means "use the config value".
type Preferences struct {
	Proactive       bool   `json:"proactive"`
	CadenceMinutes  int    `json:"cadenceMinutes,omitempty"`
	Tone            string `json:"tone"`
	NotifyChannel   string `json:"notifyChannel,omitempty"`
	QuietHoursStart int    `json:"quietHoursStart"`
	QuietHoursEnd   int    `json:"quietHoursEnd"`
}

// PreferencesPatch is a partial preferences update. Nil fields are left
// untouched.
type PreferencesPatch struct {
	Proactive       *bool
	CadenceMinutes  *int
	Tone            *string
	NotifyChannel   *string
	QuietHoursStart *int
	QuietHoursEnd   *int
}

func DefaultPreferences() Preferences {
	return Preferences{
		Proactive:       true,
		Tone:            "encouraging",
		QuietHoursStart: 22,
		QuietHoursEnd:   7,
	}
}

// Record is the single serialized engine snapshot kept in the store. All
// time fields travel as ISO-8601 strings on the wire.
type Record struct {
	Version            int                      `json:"version"`
	Profile            profile.Profile          `json:"profile"`
	Ledger             ledger.Snapshot          `json:"ledger"`
	RecoveryProgress   *recovery.Progress       `json:"recoveryProgress"`
	Preferences        Preferences              `json:"preferences"`
	BehaviorPatterns   []ledger.BehaviorPattern `json:"behaviorPatterns"`
	LastProactiveCheck *time.Time               `json:"lastProactiveCheck"`
}

// NewRecord returns the defaults a fresh install starts from.
func NewRecord() *Record {
	return &Record{
		Version:     SchemaVersion,
		Profile:     profile.Default(),
		Preferences: DefaultPreferences(),
	}
}

// decodeRecord rebuilds a record from its serialized form, tolerating
// corruption section by section: a section that fails to parse is logged
// and replaced by its default, and only a record whose envelope is not JSON
// at all is rejected entirely.
func decodeRecord(data []byte) (*Record, bool) {
	var sections map[string]json.RawMessage
	if err := json.Unmarshal(data, &sections); err != nil {
		log.Printf("[store] discarding unreadable state record: %v", err)
		return nil, false
	}

	rec := NewRecord()
	decodeSection(sections, "version", &rec.Version)
	decodeSection(sections, "profile", &rec.Profile)
	decodeSection(sections, "ledger", &rec.Ledger)
	decodeSection(sections, "recoveryProgress", &rec.RecoveryProgress)
	decodeSection(sections, "preferences", &rec.Preferences)
	decodeSection(sections, "behaviorPatterns", &rec.BehaviorPatterns)
	decodeSection(sections, "lastProactiveCheck", &rec.LastProactiveCheck)
	return migrate(rec), true
}

// decodeSection parses one section onto a copy of its defaults, so fields a
// legacy record never wrote keep their default values and a corrupt section
// never half-overwrites the destination.
func decodeSection[T any](sections map[string]json.RawMessage, key string, dst *T) {
	raw, ok := sections[key]
	if !ok || string(raw) == "null" {
		return
	}
	parsed := *dst
	if err := json.Unmarshal(raw, &parsed); err != nil {
		log.Printf("[store] section %q is corrupt, keeping defaults: %v", key, err)
		return
	}
	*dst = parsed
}

// migrate upgrades older record shapes to the current schema. Unversioned
// records predate versioning and are treated as version 1.
func migrate(rec *Record) *Record {
	if rec.Version <= 0 {
		rec.Version = 1
	}
	if rec.Version > SchemaVersion {
		log.Printf("[store] record version %d is newer than supported %d, loading best-effort", rec.Version, SchemaVersion)
	}
	rec.Version = SchemaVersion
	if rec.Preferences == (Preferences{}) {
		rec.Preferences = DefaultPreferences()
	}
	return rec
}
