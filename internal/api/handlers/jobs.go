package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/cashflow-ai/cashflow-backend/internal/api/middleware"
	"github.com/cashflow-ai/cashflow-backend/internal/jobs"
	"github.com/cashflow-ai/cashflow-backend/internal/mailbox"
)

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	store     jobs.JobStore
	publisher jobs.Publisher
	defaults  mailbox.Credentials
	log       zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, publisher jobs.Publisher, defaults mailbox.Credentials, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		store:     store,
		publisher: publisher,
		defaults:  defaults,
		log:       log,
	}
}

// EnqueueSync handles POST /api/sync/jobs
func (h *JobsHandler) EnqueueSync(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCredentials(r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	creds := req.credentials(h.defaults)
	if !creds.Valid() {
		middleware.WriteError(w, http.StatusBadRequest, "Missing email credentials")
		return
	}

	job := &jobs.SyncMailboxJob{
		Mailbox:     creds.EmailAddress,
		Credentials: creds,
	}
	if err := h.publisher.PublishSyncMailbox(r.Context(), job); err != nil {
		h.log.Error().Err(err).Str("mailbox", creds.EmailAddress).Msg("Failed to enqueue sync job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue sync job")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Str("mailbox", creds.EmailAddress).Msg("Sync job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"job_id": job.JobID,
		"status": jobs.JobStatusPending,
	})
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if jobID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
		return
	}

	job, err := h.store.GetJob(r.Context(), jobID)
	if errors.Is(err, jobs.ErrJobNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get job")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := jobs.JobFilter{
		Mailbox: query.Get("mailbox"),
		Status:  jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}
