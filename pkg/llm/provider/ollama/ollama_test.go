package ollama_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/circuitchat/pkg/llm"
	"github.com/papercomputeco/circuitchat/pkg/llm/provider"
	"github.com/papercomputeco/circuitchat/pkg/llm/provider/ollama"
)

var _ = Describe("Ollama Provider", func() {
	var (
		server   *httptest.Server
		received map[string]any
		reply    string
		p        provider.Provider
	)

	BeforeEach(func() {
		received = nil
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			Expect(r.URL.Path).To(Equal("/api/chat"))
			Expect(json.NewDecoder(r.Body).Decode(&received)).To(Succeed())
			_, _ = io.WriteString(w, reply)
		}))
		p = ollama.New(ollama.Config{Upstream: server.URL})
	})

	AfterEach(func() {
		server.Close()
	})

	Describe("Name", func() {
		It("returns 'ollama'", func() {
			Expect(p.Name()).To(Equal("ollama"))
		})
	})

	Describe("Complete", func() {
		It("maps seed and max tokens into options", func() {
			reply = `{"model":"llava","message":{"role":"assistant","content":"two LEDs"},"done":true}`
			seed, maxTokens := 42, 256

			text, err := p.Complete(context.Background(), &llm.ChatRequest{
				Model:     "llava",
				Seed:      &seed,
				MaxTokens: &maxTokens,
				Messages:  []llm.Message{llm.NewTextMessage(llm.RoleUser, "Hello")},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(text).To(Equal("two LEDs"))

			Expect(received["stream"]).To(BeFalse())
			options := received["options"].(map[string]any)
			Expect(options["seed"]).To(BeNumerically("==", 42))
			Expect(options["num_predict"]).To(BeNumerically("==", 256))
		})

		It("sends data-URL images as base64 payloads", func() {
			reply = `{"message":{"role":"assistant","content":"ok"},"done":true}`

			_, err := p.Complete(context.Background(), &llm.ChatRequest{
				Model: "llava",
				Messages: []llm.Message{
					llm.NewImageMessage(llm.RoleUser, "data:image/jpeg;base64,/9j/4AAQ", "What is this?"),
				},
			})
			Expect(err).NotTo(HaveOccurred())

			msg := received["messages"].([]any)[0].(map[string]any)
			Expect(msg["content"]).To(Equal("What is this?"))
			Expect(msg["images"]).To(Equal([]any{"/9j/4AAQ"}))
		})

		It("rejects remote image URLs", func() {
			_, err := p.Complete(context.Background(), &llm.ChatRequest{
				Model: "llava",
				Messages: []llm.Message{
					llm.NewImageMessage(llm.RoleUser, "https://example.com/board.png", "What is this?"),
				},
			})
			Expect(err).To(MatchError(ollama.ErrRemoteImage))
		})
	})

	Describe("Stream", func() {
		It("re-frames NDJSON lines into response frames", func() {
			reply = `{"message":{"role":"assistant","content":"U1"},"done":false}` + "\n" +
				`{"message":{"role":"assistant","content":" & U2"},"done":false}` + "\n" +
				`{"message":{"role":"assistant","content":""},"done":true,"done_reason":"stop"}` + "\n"

			body, err := p.Stream(context.Background(), &llm.ChatRequest{
				Model:    "llava",
				Messages: []llm.Message{llm.NewTextMessage(llm.RoleUser, "List parts")},
			})
			Expect(err).NotTo(HaveOccurred())
			defer body.Close()

			out, err := io.ReadAll(body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(out)).To(Equal(
				"data: {\"response\":\"U1\"}\n\n" +
					"data: {\"response\":\" & U2\"}\n\n" +
					"data: [DONE]\n\n"))
			Expect(received["stream"]).To(BeTrue())
		})

		It("surfaces an in-stream error as a read error", func() {
			reply = `{"message":{"content":"partial"},"done":false}` + "\n" + `{"error":"model crashed"}` + "\n"

			body, err := p.Stream(context.Background(), &llm.ChatRequest{Model: "llava"})
			Expect(err).NotTo(HaveOccurred())
			defer body.Close()

			out, err := io.ReadAll(body)
			Expect(err).To(MatchError(ContainSubstring("model crashed")))
			Expect(string(out)).To(Equal("data: {\"response\":\"partial\"}\n\n"))
		})
	})
})
