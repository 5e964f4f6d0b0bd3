package scanning

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
)

var _ = Describe("Ollama", func() {
	var (
		server *ghttp.Server
		ollama *Ollama
		lines  []Line
		err    error
	)

	BeforeEach(func() {
		server = ghttp.NewServer()
		ollama, err = NewOllama(server.URL()+"/", "qwen2.5vl")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	JustBeforeEach(func() {
		lines, err = ollama.Recognize(context.Background(), []byte("png-bytes"), "korean")
	})

	When("the model returns a transcription", func() {
		var request ollamaChatRequest

		BeforeEach(func() {
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest(http.MethodPost, "/api/chat"),
				ghttp.VerifyContentType("application/json"),
				func(w http.ResponseWriter, r *http.Request) {
					defer GinkgoRecover()
					Expect(json.NewDecoder(r.Body).Decode(&request)).To(Succeed())
				},
				ghttp.RespondWithJSONEncoded(http.StatusOK, ollamaChatResponse{
					Message: ollamaMessage{
						Role:    "assistant",
						Content: `{"lines": [{"text": "카페 모카 강남점", "bbox": [5, 5, 200, 30], "confidence": 0.8}]}`,
					},
					Done: true,
				}),
			))
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should send the image on the user message", func() {
			Expect(request.Model).To(Equal("qwen2.5vl"))
			Expect(request.Format).To(Equal("json"))
			Expect(request.Stream).To(BeFalse())
			Expect(request.Messages).To(HaveLen(2))
			Expect(request.Messages[1].Images).To(ConsistOf(base64.StdEncoding.EncodeToString([]byte("png-bytes"))))
			Expect(request.Messages[1].Content).To(ContainSubstring("korean"))
		})

		It("should parse the lines", func() {
			Expect(lines).To(HaveLen(1))
			Expect(lines[0].Text).To(Equal("카페 모카 강남점"))
			Expect(lines[0].Engine).To(Equal("ollama"))
		})
	})

	When("the model sees no text", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWithJSONEncoded(http.StatusOK, ollamaChatResponse{
				Message: ollamaMessage{Role: "assistant", Content: `{"lines": []}`},
				Done:    true,
			}))
		})

		It("should report no text", func() {
			kind, _ := KindOf(err)
			Expect(kind).To(Equal(KindNoTextFound))
		})
	})

	When("the model answers with prose", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWithJSONEncoded(http.StatusOK, ollamaChatResponse{
				Message: ollamaMessage{Role: "assistant", Content: "I see a receipt."},
				Done:    true,
			}))
		})

		It("should report a transport failure", func() {
			kind, _ := KindOf(err)
			Expect(kind).To(Equal(KindTransport))
		})
	})

	When("the model is missing", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusNotFound, `{"error":"model not found"}`))
		})

		It("should report a transport failure", func() {
			kind, _ := KindOf(err)
			Expect(kind).To(Equal(KindTransport))
			Expect(err.Error()).To(ContainSubstring("model not found"))
		})
	})
})

var _ = Describe("NewOllama", func() {
	It("should apply defaults", func() {
		o, err := NewOllama("", "")
		Expect(err).NotTo(HaveOccurred())
		Expect(o.baseURL).To(Equal("http://localhost:11434"))
		Expect(o.model).To(Equal("qwen2.5vl"))
	})
})
