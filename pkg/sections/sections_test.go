package sections_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/circuitchat/pkg/sections"
)

const design = `=== SUMMARY ===
A 555 astable blinking one LED at about 1 Hz.

=== SCHEMATIC ===

 +9V ──┬── R1 1kΩ ──┐
       │            │
      [555]      LED1

=== PCB ===
Single sided, 30x20 mm.
=== BOM ===
R1 1kΩ
U1 NE555
`

var _ = Describe("Parse", func() {
	It("returns the four design blocks in order with trimmed bodies", func() {
		secs := sections.Parse(design, sections.FullLayout)

		Expect(secs).To(HaveLen(4))
		Expect(secs[0]).To(Equal(sections.Section{
			Label: "SUMMARY",
			Body:  "A 555 astable blinking one LED at about 1 Hz.",
			Known: true,
		}))
		Expect(secs[1].Label).To(Equal("SCHEMATIC"))
		Expect(secs[1].Body).To(Equal(" +9V ──┬── R1 1kΩ ──┐\n       │            │\n      [555]      LED1"))
		Expect(secs[2].Body).To(Equal("Single sided, 30x20 mm."))
		Expect(secs[3].Body).To(Equal("R1 1kΩ\nU1 NE555"))
		Expect(sections.InOrder(secs, sections.FullLayout)).To(BeTrue())
	})

	It("returns a single summary section for a question answer", func() {
		secs := sections.Parse("=== SUMMARY ===\nUse a 330Ω resistor.\n", sections.SummaryLayout)
		Expect(secs).To(Equal([]sections.Section{{Label: "SUMMARY", Body: "Use a 330Ω resistor.", Known: true}}))
	})

	It("returns one unlabeled section when no delimiter is present", func() {
		art := "\n  +--R1--+\n  |      |\n  +-LED--+\n\n"
		secs := sections.Parse(art, sections.FullLayout)
		Expect(secs).To(HaveLen(1))
		Expect(secs[0].Unlabeled()).To(BeTrue())
		Expect(secs[0].Known).To(BeFalse())
		Expect(secs[0].Body).To(Equal("  +--R1--+\n  |      |\n  +-LED--+"))
	})

	It("keeps unknown labels and flags them", func() {
		secs := sections.Parse("=== SUMMARY ===\na\n=== NOTES ===\nb\n=== BOM ===\nc", sections.FullLayout)
		Expect(secs).To(HaveLen(3))
		Expect(secs[1]).To(Equal(sections.Section{Label: "NOTES", Body: "b", Known: false}))
		Expect(secs[2].Known).To(BeTrue())
	})

	It("matches labels case-sensitively", func() {
		secs := sections.Parse("=== summary ===\na", sections.FullLayout)
		Expect(secs[0].Label).To(Equal("summary"))
		Expect(secs[0].Known).To(BeFalse())
	})

	It("accepts empty bodies", func() {
		secs := sections.Parse("=== SUMMARY ===\n\n=== SCHEMATIC ===\n=== PCB ===\n=== BOM ===\n", sections.FullLayout)
		Expect(secs).To(HaveLen(4))
		for _, s := range secs {
			Expect(s.Body).To(BeEmpty())
		}
	})

	It("turns a non-blank preamble into a leading unlabeled section", func() {
		secs := sections.Parse("Sure, here it is:\n=== SUMMARY ===\nok", sections.FullLayout)
		Expect(secs).To(HaveLen(2))
		Expect(secs[0]).To(Equal(sections.Section{Label: sections.Unlabeled, Body: "Sure, here it is:"}))
		Expect(secs[1].Label).To(Equal("SUMMARY"))
	})

	It("drops a blank preamble", func() {
		secs := sections.Parse("\n\n=== SUMMARY ===\nok", sections.FullLayout)
		Expect(secs).To(HaveLen(1))
	})

	It("tolerates carriage returns", func() {
		secs := sections.Parse("=== PCB ===\r\ntwo layers\r\n", sections.TranslationLayout)
		Expect(secs).To(Equal([]sections.Section{{Label: "PCB", Body: "two layers", Known: true}}))
	})

	It("returns an empty unlabeled section for empty text", func() {
		Expect(sections.Parse("", sections.FullLayout)).To(Equal([]sections.Section{{Label: sections.Unlabeled}}))
	})
})

var _ = Describe("InOrder", func() {
	It("rejects known sections out of layout order", func() {
		secs := sections.Parse("=== BOM ===\na\n=== SUMMARY ===\nb", sections.FullLayout)
		Expect(sections.InOrder(secs, sections.FullLayout)).To(BeFalse())
	})

	It("rejects a repeated label", func() {
		secs := sections.Parse("=== PCB ===\na\n=== PCB ===\nb", sections.TranslationLayout)
		Expect(sections.InOrder(secs, sections.TranslationLayout)).To(BeFalse())
	})

	It("ignores unknown and unlabeled sections", func() {
		secs := sections.Parse("intro\n=== SCHEMATIC ===\na\n=== EXTRA ===\nb\n=== BOM ===\nc", sections.TranslationLayout)
		Expect(sections.InOrder(secs, sections.TranslationLayout)).To(BeTrue())
	})
})

var _ = Describe("Find", func() {
	It("returns the first matching section", func() {
		secs := sections.Parse(design, sections.FullLayout)
		bom, ok := sections.Find(secs, sections.BOM)
		Expect(ok).To(BeTrue())
		Expect(bom.Body).To(HavePrefix("R1"))

		_, ok = sections.Find(secs, "NOTES")
		Expect(ok).To(BeFalse())
	})
})

var _ = DescribeTable("IsRefusal",
	func(text string, refusal bool) {
		Expect(sections.IsRefusal(text)).To(Equal(refusal))
	},
	Entry("exact sentinel", "ERROR", true),
	Entry("surrounding whitespace", "\nERROR \n", true),
	Entry("lowercase", "error", false),
	Entry("sentinel inside text", "ERROR: supply too low", false),
)
