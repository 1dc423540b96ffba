package openai_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/circuitchat/pkg/llm"
	"github.com/papercomputeco/circuitchat/pkg/llm/provider"
	"github.com/papercomputeco/circuitchat/pkg/llm/provider/openai"
)

var _ = Describe("OpenAI Provider", func() {
	var (
		server   *httptest.Server
		received map[string]any
		auth     string
		reply    string
	)

	BeforeEach(func() {
		received = nil
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			Expect(r.URL.Path).To(Equal("/v1/chat/completions"))
			auth = r.Header.Get("Authorization")
			Expect(json.NewDecoder(r.Body).Decode(&received)).To(Succeed())
			_, _ = io.WriteString(w, reply)
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	newProvider := func() provider.Provider {
		return openai.New(openai.Config{Upstream: server.URL + "/v1", APIKey: "sk-test"})
	}

	seed := 42
	request := &llm.ChatRequest{
		Model: "gpt-4o",
		Seed:  &seed,
		Messages: []llm.Message{
			llm.NewTextMessage(llm.RoleSystem, "Be brief."),
			llm.NewImageMessage(llm.RoleUser, "data:image/png;base64,AAAA", "Describe the schematic"),
		},
	}

	It("returns 'openai'", func() {
		Expect(newProvider().Name()).To(Equal("openai"))
	})

	It("sends text messages as strings and image messages as parts", func() {
		reply = `{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`
		_, err := newProvider().Complete(context.Background(), request)
		Expect(err).NotTo(HaveOccurred())

		Expect(auth).To(Equal("Bearer sk-test"))
		Expect(received["model"]).To(Equal("gpt-4o"))
		Expect(received["seed"]).To(BeNumerically("==", 42))
		Expect(received).NotTo(HaveKey("stream"))

		messages := received["messages"].([]any)
		Expect(messages[0].(map[string]any)["content"]).To(Equal("Be brief."))
		parts := messages[1].(map[string]any)["content"].([]any)
		Expect(parts).To(HaveLen(2))
		Expect(parts[0].(map[string]any)["type"]).To(Equal("image_url"))
		Expect(parts[1].(map[string]any)["text"]).To(Equal("Describe the schematic"))
	})

	It("returns the first choice on Complete", func() {
		reply = `{"choices":[{"message":{"role":"assistant","content":"a resistor"}}]}`
		text, err := newProvider().Complete(context.Background(), request)
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal("a resistor"))
	})

	It("reports an empty completion", func() {
		reply = `{"choices":[]}`
		_, err := newProvider().Complete(context.Background(), request)
		Expect(err).To(MatchError(llm.ErrEmptyCompletion))
	})

	It("re-frames streamed chunks into response frames", func() {
		reply = "data: {\"choices\":[{\"delta\":{\"role\":\"assistant\"}}]}\n\n" +
			"data: {\"choices\":[{\"delta\":{\"content\":\"R1\"}}]}\n\n" +
			"data: {\"choices\":[{\"delta\":{\"content\":\" <10k>\"}}]}\n\n" +
			"data: [DONE]\n\n"

		body, err := newProvider().Stream(context.Background(), request)
		Expect(err).NotTo(HaveOccurred())
		defer body.Close()

		out, err := io.ReadAll(body)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(out)).To(Equal(
			"data: {\"response\":\"R1\"}\n\n" +
				"data: {\"response\":\" <10k>\"}\n\n" +
				"data: [DONE]\n\n"))
		Expect(received["stream"]).To(BeTrue())
	})
})

var _ = Describe("OpenAI upstream errors", func() {
	It("returns an UpstreamError for non-200 responses", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"error":"bad key"}`)
		}))
		defer server.Close()

		p := openai.New(openai.Config{Upstream: server.URL})
		_, err := p.Stream(context.Background(), &llm.ChatRequest{Model: "m"})

		var upstream *llm.UpstreamError
		Expect(errors.As(err, &upstream)).To(BeTrue())
		Expect(upstream.StatusCode).To(Equal(http.StatusUnauthorized))
		Expect(upstream.Body).To(ContainSubstring("bad key"))
	})
})
