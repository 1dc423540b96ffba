package initcmder_test

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	initcmder "github.com/papercomputeco/circuitchat/cmd/circuitchat/init"
	"github.com/papercomputeco/circuitchat/pkg/config"
)

var _ = Describe("NewInitCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := initcmder.NewInitCmd()
		Expect(cmd.Use).To(Equal("init"))
	})

	It("rejects any arguments", func() {
		cmd := initcmder.NewInitCmd()
		Expect(cmd.Args(cmd, []string{})).To(Succeed())
		Expect(cmd.Args(cmd, []string{"extra"})).NotTo(Succeed())
	})

	It("has a --preset flag", func() {
		cmd := initcmder.NewInitCmd()
		f := cmd.Flags().Lookup("preset")
		Expect(f).NotTo(BeNil())
		Expect(f.DefValue).To(Equal(""))
	})
})

var _ = Describe("Init command execution", func() {
	var (
		tmpDir  string
		origDir string
		out     *bytes.Buffer
	)

	execute := func(args ...string) error {
		cmd := initcmder.NewInitCmd()
		cmd.SetArgs(args)
		cmd.SetOut(out)
		return cmd.Execute()
	}

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "circuitchat-init-test-*")
		Expect(err).NotTo(HaveOccurred())

		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())
		Expect(os.Chdir(tmpDir)).To(Succeed())

		out = &bytes.Buffer{}
	})

	AfterEach(func() {
		Expect(os.Chdir(origDir)).To(Succeed())
		os.RemoveAll(tmpDir)
	})

	It("creates a .circuitchat directory with a default config", func() {
		Expect(execute()).To(Succeed())

		info, err := os.Stat(filepath.Join(tmpDir, ".circuitchat"))
		Expect(err).NotTo(HaveOccurred())
		Expect(info.IsDir()).To(BeTrue())
		Expect(out.String()).To(ContainSubstring("Initialized .circuitchat directory"))

		cfg := loadConfig(tmpDir)
		Expect(cfg.Version).To(Equal(config.CurrentV))
		Expect(cfg.Server.Listen).To(Equal(":8787"))
		Expect(cfg.Model.Provider).To(Equal("workersai"))
		Expect(cfg.Model.Seed).To(Equal(42))
		Expect(cfg.Prompt.Preset).To(Equal("ascii"))
		Expect(cfg.Client.Target).To(Equal("http://localhost:8787"))
	})

	It("does not overwrite existing contents when already initialized", func() {
		dir := filepath.Join(tmpDir, ".circuitchat")
		Expect(os.MkdirAll(dir, 0o755)).To(Succeed())

		cfgPath := filepath.Join(dir, "config.toml")
		custom := "version = 0\n\n[model]\nprovider = \"ollama\"\n"
		Expect(os.WriteFile(cfgPath, []byte(custom), 0o600)).To(Succeed())

		convPath := filepath.Join(dir, "conversation.json")
		Expect(os.WriteFile(convPath, []byte(`{"messages":[]}`), 0o600)).To(Succeed())

		Expect(execute()).To(Succeed())
		Expect(out.String()).To(ContainSubstring("Already initialized"))

		data, err := os.ReadFile(cfgPath)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal(custom))

		data, err = os.ReadFile(convPath)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal(`{"messages":[]}`))
	})

	It("writes a default config into an existing directory that has none", func() {
		Expect(os.MkdirAll(filepath.Join(tmpDir, ".circuitchat"), 0o755)).To(Succeed())

		Expect(execute()).To(Succeed())
		Expect(loadConfig(tmpDir).Model.Provider).To(Equal("workersai"))
	})

	Describe("--preset with provider presets", func() {
		It("creates config.toml with the ollama preset", func() {
			Expect(execute("--preset", "ollama")).To(Succeed())

			cfg := loadConfig(tmpDir)
			Expect(cfg.Model.Provider).To(Equal("ollama"))
			Expect(cfg.Model.Upstream).To(Equal("http://localhost:11434"))
			Expect(cfg.Model.Name).To(Equal("llama3.2-vision"))
			Expect(cfg.Server.Listen).To(Equal(":8787"))
		})

		It("accepts every advertised preset", func() {
			for _, name := range config.ValidPresetNames() {
				Expect(execute("--preset", name)).To(Succeed(), name)
				Expect(loadConfig(tmpDir).Model.Provider).To(Equal(name))
			}
		})

		It("overwrites existing config.toml when re-running with a different preset", func() {
			Expect(execute("--preset", "openai")).To(Succeed())
			Expect(loadConfig(tmpDir).Model.Provider).To(Equal("openai"))

			Expect(execute("--preset", "ollama")).To(Succeed())
			Expect(loadConfig(tmpDir).Model.Provider).To(Equal("ollama"))
		})

		It("rejects unknown preset names without creating the directory", func() {
			err := execute("--preset", "invalid-provider")
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("unknown preset"))

			_, statErr := os.Stat(filepath.Join(tmpDir, ".circuitchat"))
			Expect(os.IsNotExist(statErr)).To(BeTrue())
		})
	})

	Describe("--preset with remote URL", func() {
		It("fetches and writes remote config.toml", func() {
			remoteCfg := `version = 0

[server]
listen = ":9090"

[model]
provider = "openai"
upstream = "https://api.openai.com/v1"
name = "gpt-4o"
`
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "text/plain")
				fmt.Fprint(w, remoteCfg)
			}))
			defer server.Close()

			Expect(execute("--preset", server.URL)).To(Succeed())

			cfg := loadConfig(tmpDir)
			Expect(cfg.Server.Listen).To(Equal(":9090"))
			Expect(cfg.Model.Provider).To(Equal("openai"))
			Expect(cfg.Model.Name).To(Equal("gpt-4o"))
		})

		It("returns error for non-200 HTTP response", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			}))
			defer server.Close()

			err := execute("--preset", server.URL)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("HTTP 404"))
		})

		It("returns error for invalid TOML from URL", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprint(w, "this is not valid toml [[[")
			}))
			defer server.Close()

			err := execute("--preset", server.URL)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("parsing"))
		})

		It("returns error for unreachable URL", func() {
			err := execute("--preset", "http://127.0.0.1:1")
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("fetching remote config"))
		})
	})
})

// loadConfig reads and parses config.toml from the .circuitchat directory
// within baseDir.
func loadConfig(baseDir string) *config.Config {
	data, err := os.ReadFile(filepath.Join(baseDir, ".circuitchat", "config.toml"))
	ExpectWithOffset(1, err).NotTo(HaveOccurred())

	cfg := &config.Config{}
	ExpectWithOffset(1, toml.Unmarshal(data, cfg)).To(Succeed())
	return cfg
}
