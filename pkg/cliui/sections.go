package cliui

import (
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/papercomputeco/circuitchat/pkg/sections"
)

var (
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("117")).Bold(true)
	boardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
)

// RenderSections renders parsed model output for the terminal. Drawing
// blocks (SCHEMATIC, PCB) are boxed verbatim so the ASCII art keeps its
// columns; every other block is rendered as markdown. Labels outside the
// active layout are flagged.
func RenderSections(secs []sections.Section) string {
	var b strings.Builder

	for i, sec := range secs {
		if i > 0 {
			b.WriteString("\n")
		}

		if !sec.Unlabeled() {
			b.WriteString(labelStyle.Render("▌ " + sec.Label))
			if !sec.Known {
				b.WriteString(" " + WarnMark + " " + DimStyle.Render("unexpected section"))
			}
			b.WriteString("\n")
		}

		b.WriteString(renderBody(sec))
		if !strings.HasSuffix(b.String(), "\n") {
			b.WriteString("\n")
		}
	}

	return b.String()
}

func renderBody(sec sections.Section) string {
	if sec.Body == "" {
		return DimStyle.Render("(empty)")
	}

	switch sec.Label {
	case sections.Schematic, sections.PCB:
		return boardStyle.Render(sec.Body)
	}

	rendered, err := RenderMarkdown(sec.Body)
	if err != nil {
		return sec.Body
	}
	return rendered
}

// RenderOrderWarning flags an answer whose blocks do not follow layout.
func RenderOrderWarning(layout sections.Layout) string {
	return WarnMark + " " + DimStyle.Render("sections out of order, expected "+strings.Join(layout, " → ")) + "\n"
}

// RenderRefusal renders the model's whole-response refusal.
func RenderRefusal() string {
	return FailMark + " " + KeyStyle.Render("The model declined this request.") + "\n"
}
