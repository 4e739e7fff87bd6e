package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/bmore/mtgateway/internal/gateway"
	"github.com/bmore/mtgateway/internal/lang"
	"github.com/bmore/mtgateway/internal/segment"
	"github.com/bmore/mtgateway/internal/xliff"
)

type DocumentHandler struct {
	gc  *gateway.Context
	log *zap.Logger
}

func NewDocumentHandler(gc *gateway.Context) *DocumentHandler {
	return &DocumentHandler{gc: gc, log: gc.Log.Named("api")}
}

type segmentRequest struct {
	Text    string          `json:"text"`
	Options segment.Options `json:"options"`
}

type segmentResponse struct {
	Segments []string                  `json:"segments"`
	Count    int                       `json:"count"`
	Units    []segment.TranslationUnit `json:"units"`
}

// Segment handles POST /segment
func (h *DocumentHandler) Segment(w http.ResponseWriter, r *http.Request) {
	var req segmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	segs := h.gc.Segmenter.Segment(req.Text, h.gc.SegmentOptions(req.Options))
	jsonResponse(w, segmentResponse{
		Segments: segs,
		Count:    len(segs),
		Units:    segment.Units(segs),
	}, http.StatusOK)
}

type qualityRequest struct {
	Source      string `json:"source"`
	Translation string `json:"translation"`
	Src         string `json:"src"`
	Tgt         string `json:"tgt"`
}

// Quality handles POST /quality
func (h *DocumentHandler) Quality(w http.ResponseWriter, r *http.Request) {
	var req qualityRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	report := h.gc.Quality.Check(req.Source, req.Translation, lang.Normalize(req.Src), lang.Normalize(req.Tgt))
	jsonResponse(w, report, http.StatusOK)
}

type xliffRequest struct {
	Text         string          `json:"text"`
	Src          string          `json:"src"`
	Tgt          string          `json:"tgt"`
	Filename     string          `json:"filename"`
	Options      segment.Options `json:"options"`
	Pretranslate bool            `json:"pretranslate"`
}

type xliffResponse struct {
	XLIFF string `json:"xliff"`
	xliff.Summary
	CachedCount int `json:"cachedCount,omitempty"`
}

// CreateXLIFF handles POST /xliff
func (h *DocumentHandler) CreateXLIFF(w http.ResponseWriter, r *http.Request) {
	var req xliffRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	src, tgt := lang.Normalize(req.Src), lang.Normalize(req.Tgt)
	if src == "" {
		jsonError(w, "src is required", http.StatusBadRequest)
		return
	}

	var (
		units  []segment.TranslationUnit
		cached int
	)
	if req.Pretranslate {
		started := time.Now()
		translated, res, err := h.gc.TranslateUnits(r.Context(), req.Text, src, tgt, req.Options, nil)
		if err != nil {
			writeErr(w, err)
			return
		}
		units, cached = translated, res.CachedCount
		h.log.Info("xliff pretranslated",
			zap.Int("segments", len(units)),
			zap.Int("cached", cached),
			zap.Duration("took", time.Since(started)))
	} else {
		segs := h.gc.Segmenter.Segment(req.Text, h.gc.SegmentOptions(req.Options))
		if len(segs) == 0 {
			writeErr(w, gateway.ErrEmptyDocument)
			return
		}
		units = segment.Units(segs)
	}

	out, err := xliff.Marshal(xliff.Build(units, src, tgt, req.Filename))
	if err != nil {
		writeErr(w, err)
		return
	}

	jsonResponse(w, xliffResponse{
		XLIFF:       string(out),
		Summary:     xliff.Summarize(units),
		CachedCount: cached,
	}, http.StatusOK)
}

type mergeRequest struct {
	XLIFF string `json:"xliff"`
}

// MergeXLIFF handles POST /xliff/merge
func (h *DocumentHandler) MergeXLIFF(w http.ResponseWriter, r *http.Request) {
	var req mergeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	doc, err := xliff.Parse([]byte(req.XLIFF))
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	jsonResponse(w, xliff.Merge(doc), http.StatusOK)
}
