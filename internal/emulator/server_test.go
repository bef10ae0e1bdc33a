package emulator

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/receipt-client/internal/receipt"
)

var _ = Describe("Server", func() {
	var (
		db      *mockDB
		storage *mockStorage
		server  *Server
	)

	BeforeEach(func() {
		db = newMockDB()
		storage = newMockStorage()
		service := NewServiceWithDeps(db, storage, &mockKeyGenerator{key: "k"}, &mockTimeSource{now: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)})
		server = NewServer(service, "")
	})

	do := func(req *http.Request) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, req)
		return rec
	}

	upload := func(filename string) *httptest.ResponseRecorder {
		var body bytes.Buffer
		writer := multipart.NewWriter(&body)
		if filename != "" {
			h := make(textproto.MIMEHeader)
			h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
			h.Set("Content-Type", "application/pdf")
			part, err := writer.CreatePart(h)
			Expect(err).NotTo(HaveOccurred())
			part.Write([]byte("%PDF-1.4"))
		} else {
			Expect(writer.WriteField("note", "no file")).To(Succeed())
		}
		Expect(writer.Close()).To(Succeed())

		req := httptest.NewRequest(http.MethodPost, "/receipts/upload", &body)
		req.Header.Set("Content-Type", writer.FormDataContentType())
		return do(req)
	}

	decodeRecord := func(rec *httptest.ResponseRecorder) receipt.Record {
		var record receipt.Record
		Expect(json.Unmarshal(rec.Body.Bytes(), &record)).To(Succeed())
		return record
	}

	decodeDetail := func(rec *httptest.ResponseRecorder) string {
		var body map[string]string
		Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
		return body["detail"]
	}

	Describe("GET /health", func() {
		It("should report ok", func() {
			rec := do(httptest.NewRequest(http.MethodGet, "/health", nil))
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(MatchJSON(`{"status": "ok"}`))
		})
	})

	Describe("POST /receipts/upload", func() {
		When("a file is sent", func() {
			It("should return the new id", func() {
				rec := upload("receipt.pdf")
				Expect(rec.Code).To(Equal(http.StatusOK))
				Expect(rec.Header().Get("Content-Type")).To(Equal("application/json"))
				Expect(decodeRecord(rec).ID).To(Equal(int64(1)))
			})

			It("should store a pending record", func() {
				upload("receipt.pdf")
				Expect(db.receipts).To(HaveKey(int64(1)))
				Expect(db.receipts[1].Status).To(Equal(StatusPending))
				Expect(db.receipts[1].ContentType).To(Equal("application/pdf"))
				Expect(storage.files).To(HaveKey("k_receipt.pdf"))
			})
		})

		When("the file field is missing", func() {
			It("should return 422", func() {
				rec := upload("")
				Expect(rec.Code).To(Equal(http.StatusUnprocessableEntity))
				Expect(decodeDetail(rec)).To(Equal("Field 'file' is required"))
			})
		})

		When("the body is not multipart", func() {
			It("should return 400", func() {
				req := httptest.NewRequest(http.MethodPost, "/receipts/upload", strings.NewReader("x"))
				req.Header.Set("Content-Type", "text/plain")
				rec := do(req)
				Expect(rec.Code).To(Equal(http.StatusBadRequest))
			})
		})

		When("storage fails", func() {
			It("should return 500", func() {
				storage.saveErr = errors.New("disk full")
				rec := upload("receipt.pdf")
				Expect(rec.Code).To(Equal(http.StatusInternalServerError))
				Expect(decodeDetail(rec)).To(Equal("Could not store receipt"))
			})
		})
	})

	Describe("GET /receipts/{id}", func() {
		It("should return the record", func() {
			upload("receipt.pdf")
			rec := do(httptest.NewRequest(http.MethodGet, "/receipts/1", nil))
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(MatchJSON(`{
				"id": 1,
				"filename": "receipt.pdf",
				"status": "pending",
				"merchant": null,
				"date": null,
				"total": null,
				"group_id": null
			}`))
		})

		It("should return 404 for an unknown id", func() {
			rec := do(httptest.NewRequest(http.MethodGet, "/receipts/7", nil))
			Expect(rec.Code).To(Equal(http.StatusNotFound))
			Expect(rec.Body.String()).To(MatchJSON(`{"detail": "Receipt not found"}`))
		})

		It("should return 400 for a non-integer id", func() {
			rec := do(httptest.NewRequest(http.MethodGet, "/receipts/abc", nil))
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(decodeDetail(rec)).To(Equal("Receipt ID must be an integer"))
		})

		It("should return 500 when the database fails", func() {
			db.getErr = errors.New("disk error")
			rec := do(httptest.NewRequest(http.MethodGet, "/receipts/1", nil))
			Expect(rec.Code).To(Equal(http.StatusInternalServerError))
		})
	})

	Describe("PUT /receipts/{id}", func() {
		BeforeEach(func() {
			upload("receipt.pdf")
		})

		It("should settle the receipt", func() {
			req := httptest.NewRequest(http.MethodPut, "/receipts/1",
				strings.NewReader(`{"merchant": "Lidl", "total": 12.5, "group_id": 3}`))
			rec := do(req)
			Expect(rec.Code).To(Equal(http.StatusOK))

			record := decodeRecord(rec)
			Expect(record.Status).To(Equal(StatusProcessed))
			Expect(*record.Merchant).To(Equal("Lidl"))
			Expect(record.Total.String()).To(Equal("12.5"))
			Expect(*record.GroupID).To(Equal(int64(3)))
		})

		It("should reject an invalid body", func() {
			rec := do(httptest.NewRequest(http.MethodPut, "/receipts/1", strings.NewReader("{")))
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("should return 404 for an unknown id", func() {
			rec := do(httptest.NewRequest(http.MethodPut, "/receipts/9", strings.NewReader("{}")))
			Expect(rec.Code).To(Equal(http.StatusNotFound))
		})
	})

	Describe("GET /receipts", func() {
		It("should list every record", func() {
			upload("a.pdf")
			upload("b.pdf")
			rec := do(httptest.NewRequest(http.MethodGet, "/receipts", nil))
			Expect(rec.Code).To(Equal(http.StatusOK))

			var records []receipt.Record
			Expect(json.Unmarshal(rec.Body.Bytes(), &records)).To(Succeed())
			Expect(records).To(HaveLen(2))
			Expect(records[0].Filename).To(Equal("a.pdf"))
			Expect(records[1].Filename).To(Equal("b.pdf"))
		})

		It("should return an empty array when there are none", func() {
			rec := do(httptest.NewRequest(http.MethodGet, "/receipts", nil))
			Expect(rec.Body.String()).To(MatchJSON(`[]`))
		})
	})

	Describe("CORS", func() {
		It("should answer preflight requests", func() {
			req := httptest.NewRequest(http.MethodOptions, "/receipts/upload", nil)
			rec := do(req)
			Expect(rec.Code).To(Equal(http.StatusNoContent))
			Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(Equal("*"))
			Expect(rec.Header().Get("Access-Control-Allow-Methods")).To(ContainSubstring("POST"))
		})

		It("should send the configured origin", func() {
			server = NewServer(NewService(db, storage), "http://localhost:3000")
			rec := do(httptest.NewRequest(http.MethodGet, "/health", nil))
			Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(Equal("http://localhost:3000"))
		})
	})
})
