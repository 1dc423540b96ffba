// Package prompt holds the system instructions appended to every turn and a
// registry of named presets that can be overridden from a TOML file.
package prompt

import (
	"strings"

	"github.com/papercomputeco/circuitchat/pkg/sections"
)

// rulePrefix marks each hard rule in a rendered instruction.
const rulePrefix = "⚠️ "

// Section layout names.
const (
	LayoutNone        = ""
	LayoutFull        = "full"
	LayoutSummary     = "summary"
	LayoutTranslation = "translation"
)

// Instruction is a system instruction.
type Instruction struct {
	Name string `toml:"-"`

	// Persona is the opening line.
	Persona string `toml:"persona"`

	// Format lines describe the expected response shape.
	Format []string `toml:"format"`

	// Rules are rendered one per line with a warning marker.
	Rules []string `toml:"rules"`

	// Sections names the block layout the response follows, if any.
	Sections string `toml:"sections"`

	// DefaultText replaces blank user text on image turns.
	DefaultText string `toml:"default_text"`
}

// Render returns the system message text.
func (i Instruction) Render() string {
	var b strings.Builder
	b.WriteString(i.Persona)

	if len(i.Format) > 0 {
		b.WriteString("\n\n")
		b.WriteString(strings.Join(i.Format, "\n"))
	}

	if len(i.Rules) > 0 {
		b.WriteString("\n\n")
		for n, rule := range i.Rules {
			if n > 0 {
				b.WriteByte('\n')
			}
			b.WriteString(rulePrefix)
			b.WriteString(rule)
		}
	}
	return b.String()
}

// Expand renders the instruction and substitutes {{key}} placeholders.
func (i Instruction) Expand(vars map[string]string) string {
	text := i.Render()
	if len(vars) == 0 {
		return text
	}

	pairs := make([]string, 0, 2*len(vars))
	for k, v := range vars {
		pairs = append(pairs, "{{"+k+"}}", v)
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

// Layout returns the section layout the response follows. Instructions
// without blocks return nil.
func (i Instruction) Layout() sections.Layout {
	switch i.Sections {
	case LayoutFull:
		return sections.FullLayout
	case LayoutSummary:
		return sections.SummaryLayout
	case LayoutTranslation:
		return sections.TranslationLayout
	default:
		return nil
	}
}
