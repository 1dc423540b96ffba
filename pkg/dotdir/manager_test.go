package dotdir_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/circuitchat/pkg/dotdir"
)

var _ = Describe("dotdir", func() {
	var tmpDir string
	var m *dotdir.Manager

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "dotdir-test-*")
		Expect(err).NotTo(HaveOccurred())

		// Resolve symlinks so paths match filepath.Abs results
		// (e.g. on macOS /var -> /private/var).
		tmpDir, err = filepath.EvalSymlinks(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		m = dotdir.NewManager()
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	Describe("NewManager", func() {
		It("creates a new manager", func() {
			Expect(m).ToNot(BeNil())
		})
	})

	Describe("Target", func() {
		It("creates the directory if it doesn't exist", func() {
			dir := filepath.Join(tmpDir, "newdir")
			result, err := m.Target(dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(dir))

			info, err := os.Stat(dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(info.IsDir()).To(BeTrue())
		})

		It("returns existing directory without error", func() {
			result, err := m.Target(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(tmpDir))
		})

		It("returns the override dir even when a local .circuitchat dir exists", func() {
			// Create a local .circuitchat dir in the tmpDir
			localDir := filepath.Join(tmpDir, ".circuitchat")
			Expect(os.Mkdir(localDir, 0o755)).To(Succeed())

			// Change to tmpDir so the local dir is discoverable
			origDir, err := os.Getwd()
			Expect(err).NotTo(HaveOccurred())
			Expect(os.Chdir(tmpDir)).To(Succeed())
			DeferCleanup(func() { os.Chdir(origDir) })

			overrideDir := filepath.Join(tmpDir, "override")
			result, err := m.Target(overrideDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(overrideDir))
		})

		It("returns the local .circuitchat dir when it exists and no override is provided", func() {
			// Create a local .circuitchat dir in the tmpDir
			localDir := filepath.Join(tmpDir, ".circuitchat")
			Expect(os.Mkdir(localDir, 0o755)).To(Succeed())

			// Change to tmpDir so the local dir is discoverable
			origDir, err := os.Getwd()
			Expect(err).NotTo(HaveOccurred())
			Expect(os.Chdir(tmpDir)).To(Succeed())
			DeferCleanup(func() { os.Chdir(origDir) })

			result, err := m.Target("")
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(localDir))
		})

		It("falls back to the home directory when no local dir exists and no override is provided", func() {
			emptyDir := filepath.Join(tmpDir, "empty")
			Expect(os.Mkdir(emptyDir, 0o755)).To(Succeed())

			origDir, err := os.Getwd()
			Expect(err).NotTo(HaveOccurred())
			Expect(os.Chdir(emptyDir)).To(Succeed())
			DeferCleanup(func() { os.Chdir(origDir) })

			home := filepath.Join(tmpDir, "home")
			Expect(os.Mkdir(home, 0o755)).To(Succeed())
			GinkgoT().Setenv("HOME", home)

			result, err := m.Target("")
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(filepath.Join(home, ".circuitchat")))

			info, err := os.Stat(result)
			Expect(err).NotTo(HaveOccurred())
			Expect(info.IsDir()).To(BeTrue())
		})
	})

	Describe("InitLocal", func() {
		BeforeEach(func() {
			origDir, err := os.Getwd()
			Expect(err).NotTo(HaveOccurred())
			Expect(os.Chdir(tmpDir)).To(Succeed())
			DeferCleanup(func() { os.Chdir(origDir) })
		})

		It("creates ./.circuitchat and reports it was new", func() {
			dir, existed, err := m.InitLocal()
			Expect(err).NotTo(HaveOccurred())
			Expect(existed).To(BeFalse())
			Expect(dir).To(Equal(filepath.Join(tmpDir, dotdir.DirName)))

			local, err := m.Local()
			Expect(err).NotTo(HaveOccurred())
			Expect(local).To(Equal(dir))
		})

		It("reports an existing directory and leaves its contents alone", func() {
			existing := filepath.Join(tmpDir, dotdir.DirName)
			Expect(os.Mkdir(existing, 0o755)).To(Succeed())
			Expect(os.WriteFile(filepath.Join(existing, "config.toml"), []byte("version = 0\n"), 0o600)).To(Succeed())

			_, existed, err := m.InitLocal()
			Expect(err).NotTo(HaveOccurred())
			Expect(existed).To(BeTrue())

			data, err := os.ReadFile(filepath.Join(existing, "config.toml"))
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(Equal("version = 0\n"))
		})
	})

	Describe("Home", func() {
		It("points below the user home directory", func() {
			GinkgoT().Setenv("HOME", tmpDir)

			home, err := m.Home()
			Expect(err).NotTo(HaveOccurred())
			Expect(home).To(Equal(filepath.Join(tmpDir, dotdir.DirName)))

			_, err = os.Stat(home)
			Expect(os.IsNotExist(err)).To(BeTrue())
		})
	})
})
