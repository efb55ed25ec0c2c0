package interpreter

import (
	"context"
	"testing"
)

func TestInterpretMatchesIntents(t *testing.T) {
	k := NewKeyword()

	tests := []struct {
		name string
		text string
		tag  string
		want string
	}{
		{"burnout", "I feel completely burned out and exhausted", "", "start-recovery"},
		{"review", "time for my weekly review of progress", "", "trigger-assessment"},
		{"reminder", "remind me tomorrow about the report", "", "schedule-reminder"},
		{"status", "give me a status overview", "", "show-status"},
		{"pattern", "I noticed I always skip lunch on Mondays", "", "record-pattern"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actions, err := k.Interpret(context.Background(), tt.text, tt.tag)
			if err != nil {
				t.Fatalf("Interpret error: %v", err)
			}
			if len(actions) == 0 {
				t.Fatal("no actions suggested")
			}
			if actions[0].Command != tt.want {
				t.Errorf("top action = %q (%.2f), want %q", actions[0].Command, actions[0].Confidence, tt.want)
			}
		})
	}
}

func TestInterpretExtractsArgs(t *testing.T) {
	k := NewKeyword()

	actions, err := k.Interpret(context.Background(), "feeling rough today, about a 4", "")
	if err != nil {
		t.Fatalf("Interpret error: %v", err)
	}
	var found bool
	for _, a := range actions {
		if a.Command == "record-well-being" {
			found = true
			if a.Args["score"] != "4" {
				t.Errorf("score = %q, want 4", a.Args["score"])
			}
		}
	}
	if !found {
		t.Fatal("record-well-being not suggested")
	}

	actions, _ = k.Interpret(context.Background(), "start a level 2 recovery please", "")
	if len(actions) == 0 || actions[0].Command != "start-recovery" {
		t.Fatalf("actions = %+v, want start-recovery first", actions)
	}
	if actions[0].Args["level"] != "2" {
		t.Errorf("level = %q, want 2", actions[0].Args["level"])
	}
}

func TestInterpretContextTagBoost(t *testing.T) {
	k := NewKeyword()

	// "ready" alone is ambiguous; the recovery tag should not help it, the
	// stage tag should.
	neutral, _ := k.Interpret(context.Background(), "I think I am ready", "")
	tagged, _ := k.Interpret(context.Background(), "I think I am ready", "stage")

	conf := func(actions []Action, command string) float64 {
		for _, a := range actions {
			if a.Command == command {
				return a.Confidence
			}
		}
		return 0
	}
	if conf(tagged, "advance-stage") <= conf(neutral, "advance-stage") {
		t.Errorf("tag boost missing: tagged %.2f vs neutral %.2f",
			conf(tagged, "advance-stage"), conf(neutral, "advance-stage"))
	}
}

func TestInterpretCapsSuggestions(t *testing.T) {
	k := NewKeyword()
	actions, _ := k.Interpret(context.Background(),
		"review my progress, remind me later, feeling tired, low energy, noticed a pattern", "")
	if len(actions) > maxSuggestions {
		t.Errorf("suggestions = %d, want at most %d", len(actions), maxSuggestions)
	}
}

func TestInterpretEmptyText(t *testing.T) {
	k := NewKeyword()
	actions, err := k.Interpret(context.Background(), "   ", "")
	if err != nil || actions != nil {
		t.Errorf("got (%v, %v), want (nil, nil) for blank text", actions, err)
	}
}

func TestInterpretCancelledContext(t *testing.T) {
	k := NewKeyword()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := k.Interpret(ctx, "review", ""); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestNullInterpreter(t *testing.T) {
	actions, err := Null{}.Interpret(context.Background(), "anything at all", "tag")
	if actions != nil || err != nil {
		t.Errorf("got (%v, %v), want (nil, nil)", actions, err)
	}
}
