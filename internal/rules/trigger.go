package rules

import (
	"fmt"
	"regexp"
	"strings"
)

// TriggerKind identifies how a trigger matches log text.
type TriggerKind string

const (
	KindLiteral TriggerKind = "literal"
	KindAllOf   TriggerKind = "all-of"
	KindAnyOf   TriggerKind = "any-of"
	KindPattern TriggerKind = "pattern"
)

// Trigger describes what a rule searches for. Triggers are compiled into matchers
// when an Engine is constructed.
type Trigger struct {
	Kind  TriggerKind
	Terms []string
}

// matcher reports whether a compiled trigger is present in the text.
type matcher interface {
	Match(text string) bool
}

// Literal fires when s occurs anywhere in the text.
func Literal(s string) Trigger {
	return Trigger{Kind: KindLiteral, Terms: []string{s}}
}

// AllOf fires when every term occurs in the text, in any order.
func AllOf(terms ...string) Trigger {
	return Trigger{Kind: KindAllOf, Terms: terms}
}

// AnyOf fires when at least one term occurs in the text.
func AnyOf(terms ...string) Trigger {
	return Trigger{Kind: KindAnyOf, Terms: terms}
}

// Pattern fires when the regular expression matches anywhere in the text.
func Pattern(expr string) Trigger {
	return Trigger{Kind: KindPattern, Terms: []string{expr}}
}

// String renders the trigger for listings.
func (t Trigger) String() string {
	quoted := make([]string, len(t.Terms))
	for i, term := range t.Terms {
		quoted[i] = fmt.Sprintf("%q", term)
	}
	switch t.Kind {
	case KindAllOf:
		return strings.Join(quoted, " AND ")
	case KindAnyOf:
		return strings.Join(quoted, " OR ")
	case KindPattern:
		return "/" + strings.Join(t.Terms, "") + "/"
	default:
		return strings.Join(quoted, "")
	}
}

func (t Trigger) compile() (matcher, error) {
	if len(t.Terms) == 0 {
		return nil, fmt.Errorf("%s trigger has no terms", t.Kind)
	}
	for _, term := range t.Terms {
		if term == "" {
			return nil, fmt.Errorf("%s trigger has an empty term", t.Kind)
		}
	}

	switch t.Kind {
	case KindLiteral:
		if len(t.Terms) != 1 {
			return nil, fmt.Errorf("literal trigger needs exactly one term, got %d", len(t.Terms))
		}
		return literalMatcher(t.Terms[0]), nil
	case KindAllOf:
		return allOfMatcher(t.Terms), nil
	case KindAnyOf:
		return anyOfMatcher(t.Terms), nil
	case KindPattern:
		if len(t.Terms) != 1 {
			return nil, fmt.Errorf("pattern trigger needs exactly one expression, got %d", len(t.Terms))
		}
		re, err := regexp.Compile(t.Terms[0])
		if err != nil {
			return nil, fmt.Errorf("failed to compile pattern: %w", err)
		}
		return patternMatcher{re: re}, nil
	default:
		return nil, fmt.Errorf("unknown trigger kind %q", t.Kind)
	}
}

type literalMatcher string

func (m literalMatcher) Match(text string) bool {
	return strings.Contains(text, string(m))
}

type allOfMatcher []string

func (m allOfMatcher) Match(text string) bool {
	for _, term := range m {
		if !strings.Contains(text, term) {
			return false
		}
	}
	return true
}

type anyOfMatcher []string

func (m anyOfMatcher) Match(text string) bool {
	for _, term := range m {
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}

type patternMatcher struct {
	re *regexp.Regexp
}

func (m patternMatcher) Match(text string) bool {
	return m.re.MatchString(text)
}
