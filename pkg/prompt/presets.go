package prompt

// Built-in preset names.
const (
	ASCII     = "ascii"
	Schematic = "schematic"
	Summary   = "summary"
	Translate = "translate"
)

// DefaultText is sent in place of blank user text on image turns.
const DefaultText = "Describe this circuit and redraw it."

const persona = "You are a helpful electrical engineer."

func builtins() map[string]Instruction {
	return map[string]Instruction{
		ASCII: {
			Name:    ASCII,
			Persona: persona,
			Rules: []string{
				"If the request is vague fill in the gaps always assume simplified assumptions",
				"ALWAYS reply with *only* ASCII art representing a complete, functional electronic circuit using standard components (e.g., resistors, capacitors, ICs, transistors, diodes, etc.).",
				"Label each component with its **type and value** (e.g., R1 1kΩ, C1 10µF, 555 Timer, etc.).",
				"Show **connections with lines**, and **nest or box components** when appropriate (e.g., for ICs).",
				"Do NOT reply with explanations, text, captions, or code fences. Just ASCII art.",
				"If you must refuse, reply with exactly: ERROR",
			},
			DefaultText: DefaultText,
		},
		Schematic: {
			Name:    Schematic,
			Persona: persona,
			Format: []string{
				"Reply with exactly these four blocks, in this order, each introduced by its marker line:",
				"=== SUMMARY ===",
				"One short paragraph describing what the circuit does.",
				"=== SCHEMATIC ===",
				"ASCII art of the complete circuit with every component labelled.",
				"=== PCB ===",
				"ASCII art of a single sided board layout.",
				"=== BOM ===",
				"One line per part: designator, value, description.",
			},
			Rules: []string{
				"If the request is vague fill in the gaps always assume simplified assumptions",
				"Label each component with its **type and value** (e.g., R1 1kΩ, C1 10µF, 555 Timer, etc.).",
				"Do NOT use code fences and do NOT add text outside the four blocks.",
				"If you must refuse, reply with exactly: ERROR",
			},
			Sections:    LayoutFull,
			DefaultText: DefaultText,
		},
		Summary: {
			Name:    Summary,
			Persona: persona,
			Format: []string{
				"Answer the question in a single block introduced by its marker line:",
				"=== SUMMARY ===",
			},
			Rules: []string{
				"Answer briefly and concretely, with component values where they matter.",
				"Do NOT draw circuits and do NOT use code fences.",
				"If you must refuse, reply with exactly: ERROR",
			},
			Sections:    LayoutSummary,
			DefaultText: DefaultText,
		},
		Translate: {
			Name:    Translate,
			Persona: "You are a technical translator for electronics documentation.",
			Format: []string{
				"Translate the text inside each block into {{language}}.",
				"Keep the three marker lines exactly as given:",
				"=== SCHEMATIC ===",
				"=== PCB ===",
				"=== BOM ===",
			},
			Rules: []string{
				"Preserve the technical meaning, designators, values and units exactly.",
				"Use natural phrasing for a native {{language}} reader.",
				"Leave ASCII art line structure unchanged; translate only its words.",
				"Do NOT add a preamble, a postscript or code fences.",
			},
			Sections: LayoutTranslation,
		},
	}
}
