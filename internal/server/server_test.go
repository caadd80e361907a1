package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/raine/listing-digest/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	text        string
	err         error
	panic       bool
	prompt      string
	attachments [][]byte
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string, attachments [][]byte) (string, error) {
	if f.panic {
		panic("generator exploded")
	}
	f.prompt = prompt
	f.attachments = attachments
	return f.text, f.err
}

type fakeFetcher struct {
	body []byte
}

func (f *fakeFetcher) Fetch(ctx context.Context, pageURL string) ([]byte, error) {
	return f.body, nil
}

func productPage() string {
	return `<html><head><script type="application/ld+json">{"@type":"Product","name":"Widget","offers":{"price":"9900"}}</script></head><body>` +
		strings.Repeat("<p>filler</p>", 100) + `</body></html>`
}

func newTestServer(gen *fakeGenerator, maxUpload int64) http.Handler {
	svc := pipeline.NewService(gen, &fakeFetcher{body: []byte(productPage())}, pipeline.DefaultConfig())
	return New(svc, maxUpload).Handler()
}

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) pipeline.Result {
	t.Helper()
	var res pipeline.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res), rec.Body.String())
	return res
}

func TestAnalyze_JSON(t *testing.T) {
	gen := &fakeGenerator{text: "- 특징"}
	h := newTestServer(gen, 0)

	body, _ := json.Marshal(map[string]string{"html": productPage()})
	req := httptest.NewRequest(http.MethodPost, "/analyze", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
	res := decodeResult(t, rec)
	assert.True(t, res.Success)
	assert.Equal(t, "Widget", res.ProductName)
	assert.Equal(t, "9900원", res.Price)
	assert.Equal(t, "- 특징", res.Result)
}

func TestAnalyze_JSONFieldNames(t *testing.T) {
	h := newTestServer(&fakeGenerator{text: "ok"}, 0)

	body, _ := json.Marshal(map[string]string{"html": productPage()})
	req := httptest.NewRequest(http.MethodPost, "/analyze", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	assert.Equal(t, true, raw["success"])
	assert.Equal(t, "Widget", raw["product_name"])
	assert.Equal(t, "9900원", raw["price"])
	assert.Equal(t, "ok", raw["result"])
	assert.NotContains(t, raw, "error")
	assert.NotContains(t, raw, "image_count")
}

func multipartRequest(t *testing.T, fields map[string]string, images ...[]byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for i, img := range images {
		fw, err := mw.CreateFormFile("images", "shot"+string(rune('a'+i))+".png")
		require.NoError(t, err)
		fw.Write(img)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/analyze", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestAnalyze_MultipartImagesKeepOrder(t *testing.T) {
	gen := &fakeGenerator{text: "ok"}
	h := newTestServer(gen, 0)

	req := multipartRequest(t, nil, []byte("first"), []byte("second"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	res := decodeResult(t, rec)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, 2, res.ImageCount)
	assert.Equal(t, [][]byte{[]byte("first"), []byte("second")}, gen.attachments)
	assert.Contains(t, gen.prompt, "위에서 아래로")
}

func TestAnalyze_MultipartLocalBusiness(t *testing.T) {
	gen := &fakeGenerator{text: "업체명: 카페"}
	h := newTestServer(gen, 0)

	req := multipartRequest(t, map[string]string{"type": "place", "html": productPage()}, []byte("shot"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	res := decodeResult(t, rec)
	require.True(t, res.Success)
	assert.Empty(t, res.ProductName)
	assert.Contains(t, gen.prompt, "업체명:")
}

func TestAnalyze_InputError(t *testing.T) {
	h := newTestServer(&fakeGenerator{}, 0)

	req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(`{"html": "  "}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	res := decodeResult(t, rec)
	assert.False(t, res.Success)
	assert.Equal(t, pipeline.MsgNoInput, res.Error)
}

func TestAnalyze_GenerationError(t *testing.T) {
	h := newTestServer(&fakeGenerator{err: errors.New("quota exceeded")}, 0)

	req := multipartRequest(t, nil, []byte("shot"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	res := decodeResult(t, rec)
	assert.False(t, res.Success)
	assert.Equal(t, "AI 분석 실패: quota exceeded", res.Error)
}

func TestAnalyze_MalformedJSON(t *testing.T) {
	h := newTestServer(&fakeGenerator{}, 0)

	req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(`{not json`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	res := decodeResult(t, rec)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "잘못된 요청입니다")
}

func TestAnalyze_BodyTooLarge(t *testing.T) {
	h := newTestServer(&fakeGenerator{}, 64)

	body, _ := json.Marshal(map[string]string{"html": strings.Repeat("x", 1000)})
	req := httptest.NewRequest(http.MethodPost, "/analyze", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	res := decodeResult(t, rec)
	assert.Equal(t, pipeline.MsgRequestTooLarge, res.Error)
}

func TestAnalyze_PanicBecomesJSONError(t *testing.T) {
	h := newTestServer(&fakeGenerator{panic: true}, 0)

	req := multipartRequest(t, nil, []byte("shot"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	res := decodeResult(t, rec)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "generator exploded")
}

func TestAnalyzeURL(t *testing.T) {
	gen := &fakeGenerator{text: "ok"}
	h := newTestServer(gen, 0)

	req := httptest.NewRequest(http.MethodPost, "/analyze-url", strings.NewReader(`{"url": "https://www.coupang.com/vp/products/1"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	res := decodeResult(t, rec)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "Widget", res.ProductName)
}

func TestIndexAndHealth(t *testing.T) {
	h := newTestServer(&fakeGenerator{}, 0)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "/analyze")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRecoverJSON_BeforeResponse(t *testing.T) {
	h := recoverJSON(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	res := decodeResult(t, rec)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "boom")
}

func TestRecoverJSON_AfterResponseStarted(t *testing.T) {
	h := recoverJSON(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"success":true}`))
		panic("late boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"success":true}`, rec.Body.String())
}
