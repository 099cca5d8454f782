// Package report renders rule engine results for people and for machines.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/muesli/reflow/wordwrap"
	"gopkg.in/yaml.v3"

	"github.com/newhook/triage/internal/rules"
)

// Format is an output format.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// DefaultWidth is the text wrap width used when none is configured.
const DefaultWidth = 80

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatText, "":
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown output format %q (valid: text, json, yaml)", s)
	}
}

// Report is the result of checking one log.
type Report struct {
	ID        string        `json:"id" yaml:"id"`
	Source    string        `json:"source" yaml:"source"`
	CheckedAt time.Time     `json:"checked_at" yaml:"checked_at"`
	Matches   []rules.Match `json:"matches" yaml:"matches"`
}

// New creates a report for the matches found in source.
func New(source string, matches []rules.Match) Report {
	if matches == nil {
		matches = []rules.Match{}
	}
	return Report{
		ID:        uuid.New().String(),
		Source:    source,
		CheckedAt: time.Now().UTC(),
		Matches:   matches,
	}
}

// TextOptions controls the human-readable renderer.
type TextOptions struct {
	Width int
	Color bool
}

var (
	sourceStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	highStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))

	mediumStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214"))

	ruleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("247"))

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("42"))
)

type painter struct {
	color bool
}

func (p painter) paint(style lipgloss.Style, s string) string {
	if !p.color {
		return s
	}
	return style.Render(s)
}

func (p painter) severity(s rules.Severity) string {
	switch s {
	case rules.SeverityHigh:
		return p.paint(highStyle, s.Glyph())
	case rules.SeverityMedium:
		return p.paint(mediumStyle, s.Glyph())
	default:
		return s.Glyph()
	}
}

// RenderText formats reports as wrapped, optionally colored text.
func RenderText(reports []Report, opts TextOptions) string {
	width := opts.Width
	if width <= 0 {
		width = DefaultWidth
	}
	p := painter{color: opts.Color}

	var b strings.Builder
	for i, r := range reports {
		if i > 0 {
			b.WriteString("\n")
		}
		if len(reports) > 1 || r.Source != "" {
			b.WriteString(p.paint(sourceStyle, sourceLabel(r.Source)))
			b.WriteString("\n")
		}
		if len(r.Matches) == 0 {
			b.WriteString(p.paint(okStyle, "No known problems found."))
			b.WriteString("\n")
			continue
		}
		for _, m := range r.Matches {
			fmt.Fprintf(&b, "%s %s\n", p.severity(m.Severity), p.paint(ruleStyle, m.Rule))
			wrapped := wordwrap.String(m.Message, max(width-2, 20))
			for _, line := range strings.Split(wrapped, "\n") {
				b.WriteString("  ")
				b.WriteString(line)
				b.WriteString("\n")
			}
		}
	}
	return b.String()
}

func sourceLabel(source string) string {
	if source == "" || source == "-" {
		return "stdin"
	}
	return source
}

// WriteText writes the human-readable rendering to w.
func WriteText(w io.Writer, reports []Report, opts TextOptions) error {
	_, err := io.WriteString(w, RenderText(reports, opts))
	return err
}

// WriteJSON writes reports as an indented JSON array.
func WriteJSON(w io.Writer, reports []Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(reports); err != nil {
		return fmt.Errorf("failed to encode reports: %w", err)
	}
	return nil
}

// WriteYAML writes reports as a YAML sequence.
func WriteYAML(w io.Writer, reports []Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(reports); err != nil {
		return fmt.Errorf("failed to encode reports: %w", err)
	}
	return enc.Close()
}

// Write renders reports in the given format.
func Write(w io.Writer, format Format, reports []Report, opts TextOptions) error {
	switch format {
	case FormatText, "":
		return WriteText(w, reports, opts)
	case FormatJSON:
		return WriteJSON(w, reports)
	case FormatYAML:
		return WriteYAML(w, reports)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
