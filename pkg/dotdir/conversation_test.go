package dotdir_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/circuitchat/pkg/dotdir"
)

var _ = Describe("dotdir.Manager conversation", func() {
	var tmpDir string
	var m *dotdir.Manager

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		m = dotdir.NewManager()
	})

	It("returns nil when no conversation was saved", func() {
		conv, err := m.LoadConversation(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(conv).To(BeNil())
	})

	It("round-trips a conversation", func() {
		conv := &dotdir.Conversation{
			Preset: "schematic",
			Messages: []dotdir.ConversationMessage{
				{Role: "user", Content: "what does R1 do?"},
				{Role: "assistant", Content: "=== SUMMARY ===\nR1 limits current."},
			},
		}
		Expect(m.SaveConversation(conv, tmpDir)).To(Succeed())

		info, err := os.Stat(filepath.Join(tmpDir, "conversation.json"))
		Expect(err).NotTo(HaveOccurred())
		Expect(info.Mode().Perm()).To(Equal(os.FileMode(0o600)))

		loaded, err := m.LoadConversation(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded).To(Equal(conv))
	})

	It("overwrites an existing conversation", func() {
		first := &dotdir.Conversation{Messages: []dotdir.ConversationMessage{{Role: "user", Content: "first"}}}
		second := &dotdir.Conversation{Messages: []dotdir.ConversationMessage{{Role: "user", Content: "second"}}}
		Expect(m.SaveConversation(first, tmpDir)).To(Succeed())
		Expect(m.SaveConversation(second, tmpDir)).To(Succeed())

		loaded, err := m.LoadConversation(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.Messages[0].Content).To(Equal("second"))
	})

	It("returns an error for a nil conversation", func() {
		Expect(m.SaveConversation(nil, tmpDir)).To(HaveOccurred())
	})

	It("returns an error for a corrupt file", func() {
		Expect(os.WriteFile(filepath.Join(tmpDir, "conversation.json"), []byte("{"), 0o600)).To(Succeed())

		_, err := m.LoadConversation(tmpDir)
		Expect(err).To(MatchError(ContainSubstring("parsing conversation")))
	})

	Describe("ClearConversation", func() {
		It("removes the saved conversation", func() {
			Expect(m.SaveConversation(&dotdir.Conversation{}, tmpDir)).To(Succeed())
			Expect(m.ClearConversation(tmpDir)).To(Succeed())

			loaded, err := m.LoadConversation(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(BeNil())
		})

		It("succeeds when nothing was saved", func() {
			Expect(m.ClearConversation(tmpDir)).To(Succeed())
		})
	})
})
