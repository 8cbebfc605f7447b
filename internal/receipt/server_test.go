package receipt

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/serdark/receipt-recon/internal/extraction"
)

func multipartUpload(mode string) (*bytes.Buffer, string) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "receipt.jpg")
	Expect(err).NotTo(HaveOccurred())
	_, err = part.Write([]byte("fake image bytes"))
	Expect(err).NotTo(HaveOccurred())
	if mode != "" {
		Expect(writer.WriteField("mode", mode)).To(Succeed())
	}
	Expect(writer.Close()).To(Succeed())
	return body, writer.FormDataContentType()
}

var _ = Describe("Server", func() {
	var (
		db      *mockDB
		store   *mockStorage
		left    *mockEngine
		right   *mockOCREngine
		service *Service
		server  *Server
		rec     *httptest.ResponseRecorder
	)

	BeforeEach(func() {
		db = newMockDB()
		store = newMockStorage()
		left = &mockEngine{
			name: "gemini",
			fields: &extraction.RawFields{
				MerchantName: "MIGROS",
				Total:        "₺149,90",
			},
		}
		right = &mockOCREngine{
			mockEngine: mockEngine{
				name: "openai",
				fields: &extraction.RawFields{
					MerchantName: "MIGROS",
					Total:        "₺150,00",
				},
			},
		}
		service = NewServiceWithDeps(db, store, left, right,
			&fixedIDGenerator{id: "srv-id"},
			&defaultTimeSource{},
		)
		server = NewServer(service, BasicAuth{})
		rec = httptest.NewRecorder()
	})

	Describe("POST /api/analyses", func() {
		It("should process an upload in single-engine mode", func() {
			body, contentType := multipartUpload("gemini")
			req := httptest.NewRequest("POST", "/api/analyses", body)
			req.Header.Set("Content-Type", contentType)

			server.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusCreated))
			var analysis Analysis
			Expect(json.Unmarshal(rec.Body.Bytes(), &analysis)).To(Succeed())
			Expect(analysis.ID).To(Equal("srv-id"))
			Expect(analysis.Records).To(HaveLen(1))
			Expect(analysis.Diff).To(BeNil())
		})

		It("should default to compare mode and include the diff", func() {
			body, contentType := multipartUpload("")
			req := httptest.NewRequest("POST", "/api/analyses", body)
			req.Header.Set("Content-Type", contentType)

			server.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusCreated))
			var analysis Analysis
			Expect(json.Unmarshal(rec.Body.Bytes(), &analysis)).To(Succeed())
			Expect(analysis.Mode).To(Equal(ModeCompare))
			Expect(analysis.Records).To(HaveLen(2))
			Expect(analysis.Diff).NotTo(BeNil())
			Expect(analysis.Diff.Summary).To(ContainSubstring("Field mismatches: total"))
		})

		It("should reject an unknown mode", func() {
			body, contentType := multipartUpload("psychic")
			req := httptest.NewRequest("POST", "/api/analyses", body)
			req.Header.Set("Content-Type", contentType)

			server.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("should reject a request without a file", func() {
			body := &bytes.Buffer{}
			writer := multipart.NewWriter(body)
			Expect(writer.WriteField("mode", "gemini")).To(Succeed())
			Expect(writer.Close()).To(Succeed())
			req := httptest.NewRequest("POST", "/api/analyses", body)
			req.Header.Set("Content-Type", writer.FormDataContentType())

			server.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("GET /api/analyses", func() {
		It("should list stored analyses", func() {
			_, err := service.ProcessReceipt(context.Background(), "receipt.jpg", []byte("data"), "image/jpeg", "gemini")
			Expect(err).NotTo(HaveOccurred())

			req := httptest.NewRequest("GET", "/api/analyses", nil)
			server.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusOK))
			var analyses []*Analysis
			Expect(json.Unmarshal(rec.Body.Bytes(), &analyses)).To(Succeed())
			Expect(analyses).To(HaveLen(1))
		})
	})

	Describe("GET /api/analyses/{id}", func() {
		It("should return a stored analysis", func() {
			_, err := service.ProcessReceipt(context.Background(), "receipt.jpg", []byte("data"), "image/jpeg", "gemini")
			Expect(err).NotTo(HaveOccurred())

			req := httptest.NewRequest("GET", "/api/analyses/srv-id", nil)
			server.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusOK))
		})

		It("should 404 for an unknown id", func() {
			req := httptest.NewRequest("GET", "/api/analyses/missing", nil)
			server.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusNotFound))
		})
	})

	Describe("GET /api/analyses/{id}/file", func() {
		It("should serve the stored document", func() {
			_, err := service.ProcessReceipt(context.Background(), "receipt.jpg", []byte("image-bytes"), "image/jpeg", "gemini")
			Expect(err).NotTo(HaveOccurred())

			req := httptest.NewRequest("GET", "/api/analyses/srv-id/file", nil)
			server.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Header().Get("Content-Type")).To(Equal("image/jpeg"))
			Expect(rec.Body.Bytes()).To(Equal([]byte("image-bytes")))
		})
	})

	Describe("DELETE /api/analyses/{id}", func() {
		It("should delete a stored analysis", func() {
			_, err := service.ProcessReceipt(context.Background(), "receipt.jpg", []byte("data"), "image/jpeg", "gemini")
			Expect(err).NotTo(HaveOccurred())

			req := httptest.NewRequest("DELETE", "/api/analyses/srv-id", nil)
			server.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusNoContent))
			Expect(db.analyses).To(BeEmpty())
		})
	})

	Describe("CORS preflight", func() {
		It("should answer OPTIONS requests", func() {
			req := httptest.NewRequest("OPTIONS", "/api/analyses", nil)
			server.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusNoContent))
			Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(Equal("*"))
		})
	})

	Describe("basic auth", func() {
		BeforeEach(func() {
			server = NewServer(service, BasicAuth{Username: "admin", Password: "secret"})
		})

		It("should reject requests without credentials", func() {
			req := httptest.NewRequest("GET", "/api/analyses", nil)
			server.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
			Expect(rec.Header().Get("WWW-Authenticate")).To(ContainSubstring("Basic"))
		})

		It("should accept requests with valid credentials", func() {
			req := httptest.NewRequest("GET", "/api/analyses", nil)
			req.SetBasicAuth("admin", "secret")
			server.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusOK))
		})

		It("should reject bad credentials", func() {
			req := httptest.NewRequest("GET", "/api/analyses", nil)
			req.SetBasicAuth("admin", "wrong")
			server.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		})
	})
})
