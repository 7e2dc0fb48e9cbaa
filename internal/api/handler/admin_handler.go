package handler

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/timmy/ottgen/internal/logger"
	"github.com/timmy/ottgen/internal/service"
)

// Pipeline is the orchestrator surface the admin API drives.
type Pipeline interface {
	ParseSources(ctx context.Context) (*service.ParseResult, error)
	GenerateDailyBatch(ctx context.Context) (*service.BatchResult, error)
	GenerateOne(ctx context.Context, id int64) (*service.GenerateResult, error)
	ResetGeneratedFlag(ctx context.Context, id int64) error
	DeleteCandidate(ctx context.Context, id int64) error
	EnrichOne(ctx context.Context, id int64) (*service.EnrichOneResult, error)
}

// Admin job names.
const (
	jobParse    = "parse"
	jobGenerate = "generate_batch"
)

// JobStatus describes the last in-process run of an admin job.
type JobStatus struct {
	IsRunning     bool   `json:"is_running"`
	LastRunTime   string `json:"last_run_time,omitempty"`
	LastRunStatus string `json:"last_run_status,omitempty"`
}

// AdminHandler handles admin operations.
type AdminHandler struct {
	pipeline Pipeline

	// Job state, so one API process never runs the same bulk job twice at once.
	mu   sync.Mutex
	jobs map[string]*JobStatus
}

// NewAdminHandler creates a new admin handler.
// Parameters:
//   - pipeline: orchestrator instance.
// Returns:
//   - *AdminHandler: initialized handler.
func NewAdminHandler(pipeline Pipeline) *AdminHandler {
	return &AdminHandler{
		pipeline: pipeline,
		jobs: map[string]*JobStatus{
			jobParse:    {},
			jobGenerate: {},
		},
	}
}

// Parse handles POST /api/v1/admin/parse.
func (h *AdminHandler) Parse(c *gin.Context) {
	h.runJob(c, jobParse, func(ctx context.Context) (any, error) {
		return h.pipeline.ParseSources(ctx)
	})
}

// GenerateBatch handles POST /api/v1/admin/generate-batch.
func (h *AdminHandler) GenerateBatch(c *gin.Context) {
	h.runJob(c, jobGenerate, func(ctx context.Context) (any, error) {
		return h.pipeline.GenerateDailyBatch(ctx)
	})
}

// JobStatuses handles GET /api/v1/admin/jobs.
func (h *AdminHandler) JobStatuses(c *gin.Context) {
	h.mu.Lock()
	out := make(map[string]JobStatus, len(h.jobs))
	for name, st := range h.jobs {
		out[name] = *st
	}
	h.mu.Unlock()
	c.JSON(http.StatusOK, out)
}

// GenerateOne handles POST /api/v1/admin/candidates/:id/generate.
func (h *AdminHandler) GenerateOne(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	res, err := h.pipeline.GenerateOne(detached(c), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Reset handles POST /api/v1/admin/candidates/:id/reset.
func (h *AdminHandler) Reset(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.pipeline.ResetGeneratedFlag(detached(c), id); err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"candidate_id": id, "reset": true})
}

// Enrich handles POST /api/v1/admin/candidates/:id/enrich.
func (h *AdminHandler) Enrich(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	res, err := h.pipeline.EnrichOne(detached(c), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Delete handles DELETE /api/v1/admin/candidates/:id.
func (h *AdminHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.pipeline.DeleteCandidate(detached(c), id); err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"candidate_id": id, "deleted": true})
}

// runJob runs a bulk job synchronously, refusing to start it twice.
func (h *AdminHandler) runJob(c *gin.Context, name string, run func(ctx context.Context) (any, error)) {
	h.mu.Lock()
	st := h.jobs[name]
	if st.IsRunning {
		h.mu.Unlock()
		c.JSON(http.StatusConflict, gin.H{"error": name + " is already running"})
		return
	}
	st.IsRunning = true
	h.mu.Unlock()

	ctx := detached(c)
	res, err := run(ctx)

	h.mu.Lock()
	st.IsRunning = false
	st.LastRunTime = time.Now().UTC().Format(time.RFC3339)
	st.LastRunStatus = "success"
	if err != nil {
		st.LastRunStatus = "failed: " + err.Error()
	}
	h.mu.Unlock()

	if err != nil {
		logger.FromContext(ctx).WithError(err).Errorf("Admin %s failed", name)
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// detached keeps the request's logger fields but not its cancellation, so a
// client disconnect never interrupts a candidate between claim and mark.
func detached(c *gin.Context) context.Context {
	return context.WithoutCancel(c.Request.Context())
}

// writeServiceError maps orchestrator errors to HTTP status codes.
func writeServiceError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrCandidateNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrInvalidState), errors.Is(err, service.ErrLockNotAcquired):
		status = http.StatusConflict
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
