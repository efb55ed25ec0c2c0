// Package interpreter maps user-authored free text to suggested engine
// commands. The engine treats it as a best-effort collaborator: failures or
// empty results simply mean no suggestions.
package interpreter

import (
	"context"
	"sort"
	"strconv"
	"strings"
)

// Action is one suggested follow-up command, with any arguments the
// interpreter could extract from the text.
type Action struct {
	Command    string            `json:"command"`
	Args       map[string]string `json:"args,omitempty"`
	Confidence float64           `json:"confidence"`
}

// Interpreter turns free text plus a context tag into suggested actions.
type Interpreter interface {
	Interpret(ctx context.Context, text, contextTag string) ([]Action, error)
}

// Null is an Interpreter that never suggests anything.
type Null struct{}

func (Null) Interpret(context.Context, string, string) ([]Action, error) {
	return nil, nil
}

const maxSuggestions = 3

type intent struct {
	command  string
	topic    string
	keywords []string
}

// Keyword is a table-driven Interpreter: each intent carries a normalized
// keyword list, and confidence grows with the number of distinct hits. A
// context tag matching an intent's topic nudges that intent upward.
type Keyword struct {
	intents []intent
}

func NewKeyword() *Keyword {
	return &Keyword{intents: []intent{
		{command: "start-recovery", topic: "recovery", keywords: sanitizeKeywords([]string{
			"recover", "recovery", "burnout", "burned", "exhausted", "drained", "overwhelmed", "crash",
		})},
		{command: "record-well-being", topic: "well-being", keywords: sanitizeKeywords([]string{
			"feel", "feeling", "mood", "wellbeing", "well-being", "stressed", "anxious", "tired", "great", "awful",
		})},
		{command: "trigger-assessment", topic: "review", keywords: sanitizeKeywords([]string{
			"review", "assess", "assessment", "progress", "evaluate", "retrospective",
		})},
		{command: "schedule-reminder", topic: "reminder", keywords: sanitizeKeywords([]string{
			"remind", "reminder", "later", "tomorrow", "nudge",
		})},
		{command: "advance-stage", topic: "stage", keywords: sanitizeKeywords([]string{
			"advance", "graduate", "stage", "promotion", "ready",
		})},
		{command: "record-energy", topic: "energy", keywords: sanitizeKeywords([]string{
			"energy", "energetic", "alert", "sluggish", "focused", "foggy",
		})},
		{command: "show-status", topic: "status", keywords: sanitizeKeywords([]string{
			"status", "standing", "doing", "overview", "summary",
		})},
		{command: "record-pattern", topic: "pattern", keywords: sanitizeKeywords([]string{
			"noticed", "pattern", "always", "keep", "habit", "tend",
		})},
	}}
}

func (k *Keyword) Interpret(ctx context.Context, text, contextTag string) ([]Action, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return nil, nil
	}
	tag := strings.ToLower(strings.TrimSpace(contextTag))

	var actions []Action
	for _, in := range k.intents {
		hits := 0
		for _, kw := range in.keywords {
			if _, ok := tokens[kw]; ok {
				hits++
			}
		}
		confidence := 0.0
		if hits > 0 {
			confidence = 0.4 + 0.2*float64(hits-1)
		}
		if tag != "" && tag == in.topic {
			confidence += 0.2
		}
		if confidence <= 0 {
			continue
		}
		if confidence > 1 {
			confidence = 1
		}
		actions = append(actions, Action{
			Command:    in.command,
			Args:       extractArgs(in.command, text),
			Confidence: confidence,
		})
	}

	sort.SliceStable(actions, func(i, j int) bool { return actions[i].Confidence > actions[j].Confidence })
	if len(actions) > maxSuggestions {
		actions = actions[:maxSuggestions]
	}
	return actions, nil
}

// extractArgs pulls the obvious numeric argument for commands that take
// one: a 1-10 score, or a recovery level.
func extractArgs(command, text string) map[string]string {
	switch command {
	case "record-well-being":
		if n, ok := firstInt(text, 1, 10); ok {
			return map[string]string{"score": strconv.Itoa(n)}
		}
	case "start-recovery":
		if n, ok := firstInt(text, 1, 9); ok {
			return map[string]string{"level": strconv.Itoa(n)}
		}
	case "record-energy":
		if n, ok := firstInt(text, 0, 23); ok {
			return map[string]string{"hour": strconv.Itoa(n)}
		}
	}
	return nil
}

func firstInt(text string, min, max int) (int, bool) {
	for _, tok := range strings.Fields(text) {
		tok = strings.Trim(tok, ".,!?:;()\"'")
		n, err := strconv.Atoi(tok)
		if err != nil {
			continue
		}
		if n >= min && n <= max {
			return n, true
		}
	}
	return 0, false
}

func tokenize(text string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(text))
	out := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,!?:;()\"'")
		if f != "" {
			out[f] = struct{}{}
		}
	}
	return out
}

func sanitizeKeywords(keywords []string) []string {
	seen := make(map[string]struct{}, len(keywords))
	out := make([]string, 0, len(keywords))
	for _, keyword := range keywords {
		normalized := strings.ToLower(strings.TrimSpace(keyword))
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	sort.Strings(out)
	return out
}
