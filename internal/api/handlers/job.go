package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bmore/mtgateway/internal/gateway"
	"github.com/bmore/mtgateway/internal/job"
	"github.com/bmore/mtgateway/internal/lang"
	"github.com/bmore/mtgateway/internal/segment"
)

type JobHandler struct {
	queue    *job.JobQueue
	supports func(src, tgt string) bool
	log      *zap.Logger
}

func NewJobHandler(gc *gateway.Context) *JobHandler {
	return &JobHandler{queue: gc.Jobs, supports: gc.Router.Supports, log: gc.Log.Named("api")}
}

type createJobRequest struct {
	Text         string          `json:"text"`
	Src          string          `json:"src"`
	Tgt          string          `json:"tgt"`
	Options      segment.Options `json:"options"`
	CheckQuality bool            `json:"check_quality"`
}

// CreateJob handles POST /jobs
func (h *JobHandler) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req createJobRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeErr(w, gateway.ErrEmptyDocument)
		return
	}
	src, tgt := lang.Normalize(req.Src), lang.Normalize(req.Tgt)
	if !h.supports(src, tgt) {
		jsonError(w, "language pair "+src+" -> "+tgt+" not supported", http.StatusBadRequest)
		return
	}

	j, err := h.queue.Enqueue(r.Context(), job.JobTranslateDocument, req.Text, job.TranslateParams{
		Src:          src,
		Tgt:          tgt,
		Options:      req.Options,
		CheckQuality: req.CheckQuality,
	})
	if err != nil {
		h.log.Error("enqueue job", zap.Error(err))
		jsonError(w, "failed to create job: "+err.Error(), http.StatusInternalServerError)
		return
	}
	jsonResponse(w, j, http.StatusAccepted)
}

// ListJobs returns all jobs
func (h *JobHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.queue.ListJobs(r.Context())
	if err != nil {
		jsonError(w, "failed to list jobs: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if jobs == nil {
		jobs = []*job.Job{}
	}
	jsonResponse(w, jobs, http.StatusOK)
}

// GetJob returns a single job by ID
func (h *JobHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		jsonError(w, "missing job ID", http.StatusBadRequest)
		return
	}

	j, err := h.queue.GetJob(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	jsonResponse(w, j, http.StatusOK)
}

// CancelJob cancels a pending or running job
func (h *JobHandler) CancelJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		jsonError(w, "missing job ID", http.StatusBadRequest)
		return
	}

	if err := h.queue.CancelJob(r.Context(), id); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
