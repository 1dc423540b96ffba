// Package sections splits accumulated model text into labelled blocks
// delimited by "=== LABEL ===" lines.
package sections

import (
	"regexp"
	"slices"
	"strings"
)

// Block labels.
const (
	Summary   = "SUMMARY"
	Schematic = "SCHEMATIC"
	PCB       = "PCB"
	BOM       = "BOM"
)

// Unlabeled is the label of text that sits under no delimiter.
const Unlabeled = ""

// Refusal is the whole-response sentinel a model replies with when it
// refuses a request.
const Refusal = "ERROR"

// delimiter matches a whole "=== LABEL ===" line.
var delimiter = regexp.MustCompile(`^===\s*([^\s=]+)\s*===\s*$`)

// Layout is the ordered set of labels one response mode expects.
type Layout []string

var (
	// FullLayout is the four-block design answer.
	FullLayout = Layout{Summary, Schematic, PCB, BOM}

	// SummaryLayout is a question answer filling only the first block.
	SummaryLayout = Layout{Summary}

	// TranslationLayout is the three blocks a translation carries.
	TranslationLayout = Layout{Schematic, PCB, BOM}
)

// Has reports whether label belongs to the layout. Matching is case
// sensitive.
func (l Layout) Has(label string) bool {
	return slices.Contains(l, label)
}

// Section is one labelled block of text.
type Section struct {
	Label string `json:"label"`
	Body  string `json:"body"`

	// Known is false for labels outside the active layout and for
	// unlabeled text.
	Known bool `json:"known"`
}

// Unlabeled reports whether the section sits under no delimiter.
func (s Section) Unlabeled() bool {
	return s.Label == Unlabeled
}

// Parse splits text into sections. Each delimiter line starts a section that
// runs until the next delimiter or the end of text. Text without any
// delimiter is returned as a single unlabeled section. Non-blank text ahead of
// the first delimiter becomes a leading unlabeled section.
func Parse(text string, layout Layout) []Section {
	lines := strings.Split(text, "\n")

	var (
		out     []Section
		current *Section
		body    []string
	)

	flush := func() {
		trimmed := trimBlank(body)
		if current == nil {
			if trimmed != "" {
				out = append(out, Section{Label: Unlabeled, Body: trimmed})
			}
		} else {
			current.Body = trimmed
			out = append(out, *current)
		}
		body = body[:0]
	}

	for _, line := range lines {
		m := delimiter.FindStringSubmatch(strings.TrimRight(line, "\r"))
		if m == nil {
			body = append(body, line)
			continue
		}

		flush()
		label := m[1]
		current = &Section{Label: label, Known: layout.Has(label)}
	}
	flush()

	if len(out) == 0 {
		// Blank input still yields the single unlabeled section.
		return []Section{{Label: Unlabeled}}
	}
	return out
}

// Find returns the first section with label.
func Find(secs []Section, label string) (Section, bool) {
	for _, s := range secs {
		if s.Label == label {
			return s, true
		}
	}
	return Section{}, false
}

// InOrder reports whether the known sections follow the layout order, each
// label at most once.
func InOrder(secs []Section, layout Layout) bool {
	next := 0
	for _, s := range secs {
		if !s.Known {
			continue
		}
		idx := slices.Index(layout, s.Label)
		if idx < next {
			return false
		}
		next = idx + 1
	}
	return true
}

// IsRefusal reports whether the whole response is the refusal sentinel.
func IsRefusal(text string) bool {
	return strings.TrimSpace(text) == Refusal
}

// trimBlank joins lines after dropping leading and trailing blank lines.
// Whitespace inside kept lines is untouched.
func trimBlank(lines []string) string {
	start, end := 0, len(lines)
	for start < end && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}

	kept := make([]string, 0, end-start)
	for _, line := range lines[start:end] {
		kept = append(kept, strings.TrimRight(line, "\r"))
	}
	return strings.Join(kept, "\n")
}
