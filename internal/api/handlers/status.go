package handlers

import (
	"net/http"

	"github.com/wonny/sectorwatch/internal/agent"
	"github.com/wonny/sectorwatch/internal/scheduler"
)

// ReportSource exposes the agent's latest cycle report
type ReportSource interface {
	LastReport() *agent.CycleReport
}

// JobStatsSource exposes scheduler statistics
type JobStatsSource interface {
	GetJobStats() map[string]scheduler.JobStats
}

// StatusHandler reports ingestion progress
type StatusHandler struct {
	reports ReportSource
	jobs    JobStatsSource
}

// NewStatusHandler creates a new status handler; either source may be nil
func NewStatusHandler(reports ReportSource, jobs JobStatsSource) *StatusHandler {
	return &StatusHandler{reports: reports, jobs: jobs}
}

// StatusResponse is the ingestion status payload
type StatusResponse struct {
	LastCycle *agent.CycleReport            `json:"last_cycle"`
	Jobs      map[string]scheduler.JobStats `json:"jobs"`
}

// GetStatus returns the last cycle report and job statistics
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{Jobs: map[string]scheduler.JobStats{}}
	if h.reports != nil {
		resp.LastCycle = h.reports.LastReport()
	}
	if h.jobs != nil {
		resp.Jobs = h.jobs.GetJobStats()
	}
	respondJSON(w, http.StatusOK, resp)
}
