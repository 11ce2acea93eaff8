package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Health
	mux.HandleFunc("/health", s.app.HealthHandler.Health)

	// Job control
	mux.HandleFunc("/api/jobs", s.app.JobHandler.ListJobsHandler)         // GET - list jobs with status
	mux.HandleFunc("/api/jobs/run", s.app.JobHandler.RunJobHandler)       // POST ?id= - one-shot run
	mux.HandleFunc("/api/jobs/pause", s.app.JobHandler.PauseJobHandler)   // POST ?id=
	mux.HandleFunc("/api/jobs/resume", s.app.JobHandler.ResumeJobHandler) // POST ?id=

	return mux
}
