// Package server exposes the analysis pipeline over HTTP.
package server

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/raine/listing-digest/internal/logging"
	"github.com/raine/listing-digest/internal/pipeline"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultMaxUploadBytes caps a request body (50MB)
	DefaultMaxUploadBytes = 50 * 1024 * 1024
	// multipartMemory is how much of a multipart body is kept in memory before spilling to disk
	multipartMemory = 32 << 20
)

//go:embed static/index.html
var indexHTML []byte

// Server serves the analysis endpoints.
type Server struct {
	svc            *pipeline.Service
	maxUploadBytes int64
}

// New creates a new server. A non-positive maxUploadBytes uses the default.
func New(svc *pipeline.Service, maxUploadBytes int64) *Server {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &Server{svc: svc, maxUploadBytes: maxUploadBytes}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestLogger)
	r.Use(recoverJSON)

	r.Get("/", s.handleIndex)
	r.Get("/healthz", s.handleHealth)
	r.Post("/analyze", s.handleAnalyze)
	r.Post("/analyze-url", s.handleAnalyzeURL)

	return r
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type analyzeRequest struct {
	HTML string `json:"html"`
	Type string `json:"type"`
}

type analyzeURLRequest struct {
	URL string `json:"url"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)

	payload, err := s.readPayload(r)
	if err != nil {
		s.writeRequestError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, s.svc.Analyze(r.Context(), payload))
}

func (s *Server) handleAnalyzeURL(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)

	var req analyzeURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeRequestError(w, r, fmt.Errorf("invalid json body: %w", err))
		return
	}

	writeJSON(w, http.StatusOK, s.svc.AnalyzeURL(r.Context(), req.URL))
}

// readPayload accepts either a JSON body or a multipart form with ordered
// "images" file parts and optional "html" and "type" fields.
func (s *Server) readPayload(r *http.Request) (pipeline.Payload, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			return pipeline.Payload{}, fmt.Errorf("invalid multipart body: %w", err)
		}
		defer r.MultipartForm.RemoveAll()

		images, err := readImages(r)
		if err != nil {
			return pipeline.Payload{}, err
		}
		return pipeline.Payload{
			HTML:   r.FormValue("html"),
			Images: images,
			Type:   pipeline.ParseListingType(r.FormValue("type")),
		}, nil
	}

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return pipeline.Payload{}, fmt.Errorf("invalid json body: %w", err)
	}
	return pipeline.Payload{
		HTML: req.HTML,
		Type: pipeline.ParseListingType(req.Type),
	}, nil
}

func readImages(r *http.Request) ([][]byte, error) {
	headers := r.MultipartForm.File["images"]
	images := make([][]byte, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open image %q: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read image %q: %w", fh.Filename, err)
		}
		images = append(images, data)
	}
	return images, nil
}

func (s *Server) writeRequestError(w http.ResponseWriter, r *http.Request, err error) {
	logging.FromContext(r.Context()).Info().Err(err).Msg("bad request")

	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		writeJSON(w, http.StatusRequestEntityTooLarge, pipeline.Fail(pipeline.MsgRequestTooLarge))
		return
	}
	writeJSON(w, http.StatusBadRequest, pipeline.Fail(fmt.Sprintf(pipeline.MsgInvalidRequest, err)))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("failed to write response")
	}
}
