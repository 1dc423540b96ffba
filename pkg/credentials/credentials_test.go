package credentials_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/circuitchat/pkg/credentials"
)

var _ = Describe("Manager", func() {
	var (
		tmpDir string
		mgr    *credentials.Manager
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "credentials-test-*")
		Expect(err).NotTo(HaveOccurred())

		mgr, err = credentials.NewManager(tmpDir)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	It("targets credentials.toml inside the override directory", func() {
		Expect(mgr.GetTarget()).To(Equal(filepath.Join(tmpDir, "credentials.toml")))
	})

	Describe("Load", func() {
		It("returns empty credentials when no file exists", func() {
			creds, err := mgr.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(creds.Providers).To(BeEmpty())
		})

		It("loads existing credentials", func() {
			data := `version = 0

[providers.workersai]
api_key = "cf-token"
account_id = "acct-1"
`
			Expect(os.WriteFile(mgr.GetTarget(), []byte(data), 0o600)).To(Succeed())

			creds, err := mgr.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(creds.Providers).To(HaveKeyWithValue("workersai", credentials.ProviderCredential{
				APIKey:    "cf-token",
				AccountID: "acct-1",
			}))
		})

		It("returns error for malformed TOML", func() {
			Expect(os.WriteFile(mgr.GetTarget(), []byte("not [valid"), 0o600)).To(Succeed())

			_, err := mgr.Load()
			Expect(err).To(MatchError(ContainSubstring("parsing credentials")))
		})
	})

	Describe("Save", func() {
		It("persists credentials to disk with restricted permissions", func() {
			Expect(mgr.Set("openai", credentials.ProviderCredential{APIKey: "sk-test"})).To(Succeed())

			info, err := os.Stat(mgr.GetTarget())
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Mode().Perm()).To(Equal(os.FileMode(0o600)))
		})

		It("returns error for nil credentials", func() {
			Expect(mgr.Save(nil)).To(MatchError("cannot save nil credentials"))
		})
	})

	Describe("storing credentials", func() {
		It("overwrites an existing credential and keeps other providers", func() {
			Expect(mgr.Set("openai", credentials.ProviderCredential{APIKey: "sk-old"})).To(Succeed())
			Expect(mgr.Set("workersai", credentials.ProviderCredential{APIKey: "cf", AccountID: "a"})).To(Succeed())
			Expect(mgr.Set("openai", credentials.ProviderCredential{APIKey: "sk-new"})).To(Succeed())

			pc, ok, err := mgr.Get("openai")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
			Expect(pc.APIKey).To(Equal("sk-new"))

			pc, ok, err = mgr.Get("workersai")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
			Expect(pc.AccountID).To(Equal("a"))
		})

		It("reports unknown providers as missing", func() {
			_, ok, err := mgr.Get("ollama")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
		})

		It("removes a credential and tolerates removing a missing one", func() {
			Expect(mgr.Set("openai", credentials.ProviderCredential{APIKey: "sk"})).To(Succeed())
			Expect(mgr.Remove("openai")).To(Succeed())
			Expect(mgr.Remove("openai")).To(Succeed())

			providers, err := mgr.ListProviders()
			Expect(err).NotTo(HaveOccurred())
			Expect(providers).To(BeEmpty())
		})

		It("lists providers in sorted order", func() {
			Expect(mgr.Set("workersai", credentials.ProviderCredential{APIKey: "cf"})).To(Succeed())
			Expect(mgr.Set("openai", credentials.ProviderCredential{APIKey: "sk"})).To(Succeed())

			providers, err := mgr.ListProviders()
			Expect(err).NotTo(HaveOccurred())
			Expect(providers).To(Equal([]string{"openai", "workersai"}))
		})
	})

	Describe("Resolve", func() {
		BeforeEach(func() {
			GinkgoT().Setenv("OPENAI_API_KEY", "")
			GinkgoT().Setenv("CLOUDFLARE_API_TOKEN", "")
			GinkgoT().Setenv("CLOUDFLARE_ACCOUNT_ID", "")
		})

		It("keeps explicit values", func() {
			Expect(mgr.Set("openai", credentials.ProviderCredential{APIKey: "stored"})).To(Succeed())
			GinkgoT().Setenv("OPENAI_API_KEY", "from-env")

			pc, err := mgr.Resolve("openai", credentials.ProviderCredential{APIKey: "explicit"})
			Expect(err).NotTo(HaveOccurred())
			Expect(pc.APIKey).To(Equal("explicit"))
		})

		It("prefers the provider environment over stored credentials", func() {
			Expect(mgr.Set("openai", credentials.ProviderCredential{APIKey: "stored"})).To(Succeed())
			GinkgoT().Setenv("OPENAI_API_KEY", "from-env")

			pc, err := mgr.Resolve("openai", credentials.ProviderCredential{})
			Expect(err).NotTo(HaveOccurred())
			Expect(pc.APIKey).To(Equal("from-env"))
		})

		It("falls back to stored credentials field by field", func() {
			Expect(mgr.Set("workersai", credentials.ProviderCredential{APIKey: "stored", AccountID: "stored-acct"})).To(Succeed())
			GinkgoT().Setenv("CLOUDFLARE_API_TOKEN", "from-env")

			pc, err := mgr.Resolve("workersai", credentials.ProviderCredential{})
			Expect(err).NotTo(HaveOccurred())
			Expect(pc.APIKey).To(Equal("from-env"))
			Expect(pc.AccountID).To(Equal("stored-acct"))
		})

		It("returns the explicit values untouched for providers without credentials", func() {
			pc, err := mgr.Resolve("ollama", credentials.ProviderCredential{})
			Expect(err).NotTo(HaveOccurred())
			Expect(pc).To(Equal(credentials.ProviderCredential{}))
		})
	})
})

var _ = Describe("provider metadata", func() {
	It("maps providers to their environment variables", func() {
		Expect(credentials.EnvVarForProvider("workersai")).To(Equal("CLOUDFLARE_API_TOKEN"))
		Expect(credentials.EnvVarForProvider("openai")).To(Equal("OPENAI_API_KEY"))
		Expect(credentials.EnvVarForProvider("ollama")).To(BeEmpty())
	})

	It("only requires an account id for workersai", func() {
		Expect(credentials.NeedsAccountID("workersai")).To(BeTrue())
		Expect(credentials.NeedsAccountID("openai")).To(BeFalse())
	})

	It("lists the providers that take API keys", func() {
		Expect(credentials.SupportedProviders()).To(ConsistOf("workersai", "openai"))
		Expect(credentials.IsSupportedProvider("openai")).To(BeTrue())
		Expect(credentials.IsSupportedProvider("ollama")).To(BeFalse())
	})
})
