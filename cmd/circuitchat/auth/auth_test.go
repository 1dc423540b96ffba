package authcmder_test

import (
	"bytes"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	authcmder "github.com/papercomputeco/circuitchat/cmd/circuitchat/auth"
	"github.com/papercomputeco/circuitchat/pkg/credentials"
)

var _ = Describe("Auth Command", func() {
	var (
		tmpDir string
		mgr    *credentials.Manager
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "auth-test-*")
		Expect(err).NotTo(HaveOccurred())

		mgr, err = credentials.NewManager(tmpDir)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	// execute runs the auth command against tmpDir with stdin as its input.
	execute := func(stdin string, args ...string) (string, error) {
		cmd := authcmder.NewAuthCmd()
		cmd.PersistentFlags().String("config-dir", "", "Override path to .circuitchat/ config directory")
		out := &bytes.Buffer{}
		cmd.SetOut(out)
		cmd.SetIn(bytes.NewBufferString(stdin))
		cmd.SetArgs(append(args, "--config-dir", tmpDir))
		err := cmd.Execute()
		return out.String(), err
	}

	Describe("NewAuthCmd", func() {
		It("creates a command with its flags", func() {
			cmd := authcmder.NewAuthCmd()
			Expect(cmd.Use).To(Equal("auth [provider]"))
			Expect(cmd.Flags().Lookup("list")).NotTo(BeNil())
			Expect(cmd.Flags().Lookup("remove")).NotTo(BeNil())
			Expect(cmd.Flags().Lookup("account-id")).NotTo(BeNil())
		})
	})

	Describe("storing a key", func() {
		It("reads the key from piped input", func() {
			out, err := execute("sk-test\n", "openai")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("Stored"))

			pc, ok, err := mgr.Get("openai")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
			Expect(pc.APIKey).To(Equal("sk-test"))
		})

		It("stores the workersai account id", func() {
			_, err := execute("  cf-token  \n", "workersai", "--account-id", "acct-9")
			Expect(err).NotTo(HaveOccurred())

			pc, _, err := mgr.Get("workersai")
			Expect(err).NotTo(HaveOccurred())
			Expect(pc).To(Equal(credentials.ProviderCredential{APIKey: "cf-token", AccountID: "acct-9"}))
		})

		It("warns when workersai has no account id", func() {
			out, err := execute("cf-token\n", "workersai")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("No account ID stored"))
		})

		It("rejects an empty key", func() {
			_, err := execute("   \n", "openai")
			Expect(err).To(MatchError("API key cannot be empty"))
		})

		It("rejects missing input", func() {
			_, err := execute("", "openai")
			Expect(err).To(MatchError("no input received on stdin"))
		})
	})

	Describe("--list flag", func() {
		It("shows no credentials when none stored", func() {
			out, err := execute("", "--list")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("No stored credentials"))
		})

		It("lists stored credentials", func() {
			Expect(mgr.Set("workersai", credentials.ProviderCredential{APIKey: "cf", AccountID: "acct-1"})).To(Succeed())

			out, err := execute("", "--list")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("workersai"))
			Expect(out).To(ContainSubstring("acct-1"))
		})
	})

	Describe("--remove flag", func() {
		It("removes stored credentials", func() {
			Expect(mgr.Set("openai", credentials.ProviderCredential{APIKey: "sk-test"})).To(Succeed())

			_, err := execute("", "--remove", "openai")
			Expect(err).NotTo(HaveOccurred())

			_, ok, err := mgr.Get("openai")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
		})
	})

	Describe("provider argument validation", func() {
		It("returns error when no provider given", func() {
			_, err := execute("")
			Expect(err).To(MatchError(ContainSubstring("provider argument required")))
		})

		It("returns error for unsupported provider", func() {
			_, err := execute("sk-test\n", "ollama")
			Expect(err).To(MatchError(ContainSubstring("unsupported provider")))
		})
	})

	Describe("shell completion", func() {
		It("provides provider name completions", func() {
			cmd := authcmder.NewAuthCmd()
			completions, directive := cmd.ValidArgsFunction(cmd, []string{}, "")
			Expect(completions).To(ConsistOf("workersai", "openai"))
			Expect(directive).To(Equal(cobra.ShellCompDirectiveNoFileComp))
		})

		It("provides no completions after first arg", func() {
			cmd := authcmder.NewAuthCmd()
			completions, _ := cmd.ValidArgsFunction(cmd, []string{"openai"}, "")
			Expect(completions).To(BeNil())
		})
	})
})
