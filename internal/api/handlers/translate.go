package handlers

import (
	"net/http"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/bmore/mtgateway/internal/batch"
	"github.com/bmore/mtgateway/internal/gateway"
	"github.com/bmore/mtgateway/internal/lang"
	"github.com/bmore/mtgateway/internal/provider"
	"github.com/bmore/mtgateway/internal/quality"
)

const previewRunes = 100

type TranslateHandler struct {
	coordinator *batch.Coordinator
	router      *provider.Router
	detector    *lang.Detector
	log         *zap.Logger
}

func NewTranslateHandler(gc *gateway.Context) *TranslateHandler {
	return &TranslateHandler{
		coordinator: gc.Batch,
		router:      gc.Router,
		detector:    gc.Detector,
		log:         gc.Log.Named("api"),
	}
}

type translateRequest struct {
	Text string `json:"text"`
	Src  string `json:"src"`
	Tgt  string `json:"tgt"`
}

type translateResponse struct {
	Text     string          `json:"text"`
	Src      string          `json:"src"`
	Tgt      string          `json:"tgt"`
	Provider string          `json:"provider"`
	Cached   bool            `json:"cached"`
	Quality  *quality.Report `json:"quality,omitempty"`
}

// Translate handles POST /translate
func (h *TranslateHandler) Translate(w http.ResponseWriter, r *http.Request) {
	var req translateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	src, tgt := lang.Normalize(req.Src), lang.Normalize(req.Tgt)

	res, err := h.coordinator.Translate(r.Context(), req.Text, src, tgt)
	if err != nil {
		h.log.Error("translation failed", zap.String("src", src), zap.String("tgt", tgt), zap.Error(err))
		writeErr(w, err)
		return
	}

	jsonResponse(w, translateResponse{
		Text:     res.Text,
		Src:      src,
		Tgt:      tgt,
		Provider: h.router.Name(),
		Cached:   res.Cached,
		Quality:  res.Quality,
	}, http.StatusOK)
}

type batchRequest struct {
	Segments []string `json:"segments"`
	Src      string   `json:"src"`
	Tgt      string   `json:"tgt"`
}

type batchResponse struct {
	Segments    []string          `json:"segments"`
	Src         string            `json:"src"`
	Tgt         string            `json:"tgt"`
	Provider    string            `json:"provider"`
	Count       int               `json:"count"`
	CachedCount int               `json:"cachedCount"`
	Quality     []*quality.Report `json:"quality,omitempty"`
}

// TranslateBatch handles POST /translate/batch
func (h *TranslateHandler) TranslateBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	src, tgt := lang.Normalize(req.Src), lang.Normalize(req.Tgt)

	res, err := h.coordinator.TranslateBatch(r.Context(), batch.Request{Segments: req.Segments, Src: src, Tgt: tgt})
	if err != nil {
		h.log.Error("batch translation failed",
			zap.String("src", src), zap.String("tgt", tgt),
			zap.Int("segments", len(req.Segments)), zap.Error(err))
		writeErr(w, err)
		return
	}

	jsonResponse(w, batchResponse{
		Segments:    res.Segments,
		Src:         src,
		Tgt:         tgt,
		Provider:    h.router.Name(),
		Count:       len(res.Segments),
		CachedCount: res.CachedCount,
		Quality:     res.Quality,
	}, http.StatusOK)
}

// Languages handles GET /languages
func (h *TranslateHandler) Languages(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, h.router.Pairs(), http.StatusOK)
}

// Detect handles GET /detect?text=
func (h *TranslateHandler) Detect(w http.ResponseWriter, r *http.Request) {
	text := r.URL.Query().Get("text")
	if utf8.RuneCountInString(text) < 3 {
		jsonError(w, "text too short for detection", http.StatusBadRequest)
		return
	}

	jsonResponse(w, map[string]string{
		"language":    h.detector.Detect(text),
		"textPreview": preview(text),
	}, http.StatusOK)
}

func preview(text string) string {
	if utf8.RuneCountInString(text) <= previewRunes {
		return text
	}
	return string([]rune(text)[:previewRunes]) + "..."
}
