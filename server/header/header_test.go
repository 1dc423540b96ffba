package header

import (
	"net/http"
	"net/http/httptest"

	"github.com/gofiber/fiber/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Handler", func() {
	var (
		app *fiber.App
		hh  *Handler
	)

	BeforeEach(func() {
		app = fiber.New()
		hh = NewHandler()
	})

	AfterEach(func() {
		app.Shutdown()
	})

	It("sets the event-stream response headers", func() {
		app.Post("/test", func(c *fiber.Ctx) error {
			hh.SetStreamHeaders(c)
			return c.SendString("data: [DONE]\n\n")
		})

		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/test", nil))
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()

		Expect(resp.Header.Get("Content-Type")).To(Equal("text/event-stream"))
		Expect(resp.Header.Get("Cache-Control")).To(Equal("no-cache"))
		Expect(resp.Header.Get("X-Accel-Buffering")).To(Equal("no"))
		Expect(resp.Header.Get("Access-Control-Allow-Origin")).To(Equal("*"))
	})

	It("reads the preset header", func() {
		var preset string
		app.Post("/test", func(c *fiber.Ctx) error {
			preset = hh.Preset(c)
			return c.SendStatus(fiber.StatusOK)
		})

		req := httptest.NewRequest(http.MethodPost, "/test", nil)
		req.Header.Set(PresetHeader, " schematic ")
		resp, err := app.Test(req)
		Expect(err).NotTo(HaveOccurred())
		resp.Body.Close()

		Expect(preset).To(Equal("schematic"))
	})

	It("detects clients asking for an event stream", func() {
		var wants []bool
		app.Post("/test", func(c *fiber.Ctx) error {
			wants = append(wants, hh.WantsEventStream(c))
			return c.SendStatus(fiber.StatusOK)
		})

		for _, accept := range []string{"text/event-stream", "application/json", ""} {
			req := httptest.NewRequest(http.MethodPost, "/test", nil)
			if accept != "" {
				req.Header.Set("Accept", accept)
			}
			resp, err := app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
		}

		Expect(wants).To(Equal([]bool{true, false, false}))
	})
})
