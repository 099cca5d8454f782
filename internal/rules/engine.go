// Package rules recognizes known failure signatures in launcher log text.
//
// An Engine holds a fixed, ordered list of detector rules. Each rule is an
// independent predicate over the whole text; when it fires, its response is
// resolved through a catalog. Evaluation performs no I/O, keeps no state between
// calls, and returns matches in rule-declaration order.
package rules

import (
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"
)

// Severity is how urgent a matched problem is.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
)

// Glyph returns the marker callers display next to a match.
func (s Severity) Glyph() string {
	switch s {
	case SeverityHigh:
		return "‼"
	case SeverityMedium:
		return "❗"
	default:
		return "?"
	}
}

// Valid reports whether s is one of the known severities.
func (s Severity) Valid() bool {
	return s == SeverityHigh || s == SeverityMedium
}

// Lookup resolves a catalog key to its response text.
type Lookup interface {
	Lookup(key string) (string, bool)
}

// Definition declares a detector rule before its trigger is compiled.
type Definition struct {
	Name     string
	Key      string
	Severity Severity
	Trigger  Trigger
}

// Match is one fired rule.
type Match struct {
	Rule     string   `json:"rule" yaml:"rule"`
	Severity Severity `json:"severity" yaml:"severity"`
	Message  string   `json:"message" yaml:"message"`
}

// RuleInfo describes a rule for listings.
type RuleInfo struct {
	Name     string
	Key      string
	Severity Severity
	Kind     TriggerKind
	Trigger  string
}

// Rule is a compiled detector.
type Rule struct {
	def     Definition
	matcher matcher
}

// Name returns the rule name.
func (r *Rule) Name() string {
	return r.def.Name
}

// Check reports the severity and catalog key when the rule's trigger is present.
func (r *Rule) Check(text string) (Severity, string, bool) {
	if !r.matcher.Match(text) {
		return "", "", false
	}
	return r.def.Severity, r.def.Key, true
}

// Engine evaluates an ordered rule set against log text.
// It is immutable after construction and safe for concurrent use.
type Engine struct {
	catalog Lookup
	rules   []*Rule
}

// New compiles defs into an engine. Any malformed definition, including a pattern
// that fails to compile, is reported here so a broken rule set never becomes ready.
func New(catalog Lookup, defs []Definition) (*Engine, error) {
	if catalog == nil {
		return nil, fmt.Errorf("catalog is required")
	}

	seen := make(map[string]bool, len(defs))
	compiled := make([]*Rule, 0, len(defs))
	for i, def := range defs {
		if def.Name == "" {
			return nil, fmt.Errorf("rule %d has no name", i)
		}
		if seen[def.Name] {
			return nil, fmt.Errorf("duplicate rule name %q", def.Name)
		}
		seen[def.Name] = true

		if def.Key == "" {
			return nil, fmt.Errorf("rule %q has no catalog key", def.Name)
		}
		if !def.Severity.Valid() {
			return nil, fmt.Errorf("rule %q has unknown severity %q", def.Name, def.Severity)
		}

		// The caller keeps its slice; the engine must not see later edits.
		def.Trigger.Terms = slices.Clone(def.Trigger.Terms)
		m, err := def.Trigger.compile()
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", def.Name, err)
		}
		compiled = append(compiled, &Rule{def: def, matcher: m})
	}

	return &Engine{catalog: catalog, rules: compiled}, nil
}

// Default returns an engine with the built-in rule set.
func Default(catalog Lookup) (*Engine, error) {
	return New(catalog, DefaultDefinitions())
}

// Evaluate runs every rule against text and returns the fired rules in
// declaration order. A rule whose catalog key is missing contributes nothing.
func (e *Engine) Evaluate(text string) []Match {
	matches := make([]Match, 0)
	for _, r := range e.rules {
		if m, ok := e.apply(r, text); ok {
			matches = append(matches, m)
		}
	}
	return matches
}

// EvaluateParallel is Evaluate with rules checked concurrently. The result is
// identical to Evaluate for the same input.
func (e *Engine) EvaluateParallel(text string) []Match {
	slots := make([]*Match, len(e.rules))

	var g errgroup.Group
	for i, r := range e.rules {
		g.Go(func() error {
			if m, ok := e.apply(r, text); ok {
				slots[i] = &m
			}
			return nil
		})
	}
	// Rules never return errors.
	_ = g.Wait()

	matches := make([]Match, 0)
	for _, m := range slots {
		if m != nil {
			matches = append(matches, *m)
		}
	}
	return matches
}

func (e *Engine) apply(r *Rule, text string) (Match, bool) {
	severity, key, ok := r.Check(text)
	if !ok {
		return Match{}, false
	}
	message, ok := e.catalog.Lookup(key)
	if !ok {
		return Match{}, false
	}
	return Match{Rule: r.Name(), Severity: severity, Message: message}, true
}

// Rules describes the rule set in evaluation order.
func (e *Engine) Rules() []RuleInfo {
	infos := make([]RuleInfo, len(e.rules))
	for i, r := range e.rules {
		infos[i] = RuleInfo{
			Name:     r.def.Name,
			Key:      r.def.Key,
			Severity: r.def.Severity,
			Kind:     r.def.Trigger.Kind,
			Trigger:  r.def.Trigger.String(),
		}
	}
	return infos
}

// MissingKeys returns the catalog keys referenced by rules that the catalog
// cannot resolve, in rule order and without duplicates. Rules using these keys
// never fire.
func (e *Engine) MissingKeys() []string {
	var missing []string
	seen := make(map[string]bool)
	for _, r := range e.rules {
		key := r.def.Key
		if seen[key] {
			continue
		}
		seen[key] = true
		if _, ok := e.catalog.Lookup(key); !ok {
			missing = append(missing, key)
		}
	}
	return missing
}
