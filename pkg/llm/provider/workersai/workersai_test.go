package workersai_test

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
	"github.com/papercomputeco/circuitchat/pkg/llm/provider/workersai"
)

var _ = Describe("Workers AI Provider", func() {
	var (
		server   *httptest.Server
		path     string
		auth     string
		received map[string]any
		reply    string
	)

	BeforeEach(func() {
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			path = r.URL.Path
			auth = r.Header.Get("Authorization")
			Expect(json.NewDecoder(r.Body).Decode(&received)).To(Succeed())
			_, _ = io.WriteString(w, reply)
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	newProvider := func() provider.Provider {
		return workersai.New(workersai.Config{
			Upstream:  server.URL,
			AccountID: "acct",
			APIToken:  "token",
		})
	}

	request := func() *llm.ChatRequest {
		seed := 42
		return &llm.ChatRequest{
			Model: "@cf/meta/llama-4-scout-17b-16e-instruct",
			Seed:  &seed,
			Messages: []llm.Message{
				llm.NewTextMessage(llm.RoleSystem, "You draw circuits."),
				llm.NewImageMessage(llm.RoleUser, "data:image/png;base64,AAAA", "Draw this"),
			},
		}
	}

	It("posts to the account run endpoint for the model", func() {
		reply = `{"result":{"response":"ok"},"success":true,"errors":[]}`
		_, err := newProvider().Complete(context.Background(), request())
		Expect(err).NotTo(HaveOccurred())

		Expect(path).To(Equal("/accounts/acct/ai/run/@cf/meta/llama-4-scout-17b-16e-instruct"))
		Expect(auth).To(Equal("Bearer token"))
		Expect(received["seed"]).To(BeNumerically("==", 42))
	})

	It("orders image parts before text parts", func() {
		reply = `{"result":{"response":"ok"},"success":true,"errors":[]}`
		_, err := newProvider().Complete(context.Background(), request())
		Expect(err).NotTo(HaveOccurred())

		messages := received["messages"].([]any)
		Expect(messages[0].(map[string]any)["content"]).To(Equal("You draw circuits."))
		parts := messages[1].(map[string]any)["content"].([]any)
		Expect(parts[0].(map[string]any)["type"]).To(Equal("image_url"))
		Expect(parts[0].(map[string]any)["image_url"]).To(Equal(map[string]any{"url": "data:image/png;base64,AAAA"}))
		Expect(parts[1].(map[string]any)["type"]).To(Equal("text"))
	})

	It("returns the result response text", func() {
		reply = `{"result":{"response":"Here is the diagram"},"success":true,"errors":[]}`
		text, err := newProvider().Complete(context.Background(), request())
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal("Here is the diagram"))
	})

	It("reports envelope errors", func() {
		reply = `{"result":null,"success":false,"errors":[{"code":5006,"message":"bad input"}]}`
		_, err := newProvider().Complete(context.Background(), request())
		Expect(err).To(MatchError(ContainSubstring("5006: bad input")))
	})

	It("reports a missing response field", func() {
		reply = `{"result":{},"success":true,"errors":[]}`
		_, err := newProvider().Complete(context.Background(), request())
		Expect(err).To(MatchError(llm.ErrEmptyCompletion))
	})

	It("passes the streaming body through untouched", func() {
		reply = "data: {\"response\":\"a\"}\n\ndata: {\"response\":\"b\"}\n\ndata: [DONE]\n\n"
		body, err := newProvider().Stream(context.Background(), request())
		Expect(err).NotTo(HaveOccurred())
		defer body.Close()

		out, err := io.ReadAll(body)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(out)).To(Equal(reply))
		Expect(received["stream"]).To(BeTrue())
	})
})
