// -----------------------------------------------------------------------
// Job Handler - job-control HTTP surface over the scheduler
// -----------------------------------------------------------------------

package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ternarybob/prospectus/internal/interfaces"
)

type JobHandler struct {
	scheduler interfaces.SchedulerService
}

func NewJobHandler(scheduler interfaces.SchedulerService) *JobHandler {
	return &JobHandler{scheduler: scheduler}
}

// ListJobsHandler returns the status of every registered job.
func (h *JobHandler) ListJobsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	statuses, err := h.scheduler.ListJobs(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"scheduler_running": h.scheduler.IsRunning(),
		"jobs":              statuses,
	})
}

// RunJobHandler schedules a one-shot run of the named job. Parameters come
// from the JSON body and are passed through to the job.
func (h *JobHandler) RunJobHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	jobID := r.URL.Query().Get("id")
	if jobID == "" {
		WriteError(w, http.StatusBadRequest, "Job id is required")
		return
	}

	var params map[string]any
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
			WriteError(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}
	}

	if !h.scheduler.RunNow(jobID, params) {
		WriteError(w, http.StatusNotFound, fmt.Sprintf("Unknown job: %s", jobID))
		return
	}
	WriteStarted(w, fmt.Sprintf("Job %s started", jobID))
}

// PauseJobHandler suspends the named job's trigger.
func (h *JobHandler) PauseJobHandler(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.scheduler.PauseJob, "paused")
}

// ResumeJobHandler re-enables the named job's trigger.
func (h *JobHandler) ResumeJobHandler(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.scheduler.ResumeJob, "resumed")
}

func (h *JobHandler) toggle(w http.ResponseWriter, r *http.Request, action func(string) bool, verb string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	jobID := r.URL.Query().Get("id")
	if jobID == "" {
		WriteError(w, http.StatusBadRequest, "Job id is required")
		return
	}
	if !action(jobID) {
		WriteError(w, http.StatusNotFound, fmt.Sprintf("Unknown job: %s", jobID))
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"status": "success",
		"job":    jobID,
		"action": verb,
	})
}
