package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/timmy/ottgen/internal/domain"
	"github.com/timmy/ottgen/internal/metrics"
	"github.com/timmy/ottgen/internal/repository"
)

const (
	defaultPageSize = 50
	minPageSize     = 5
	maxPageSize     = 300
)

// CandidateHandler serves read-only candidate views.
type CandidateHandler struct {
	store      *repository.CandidateStore
	dailyLimit int
}

// NewCandidateHandler creates a candidate handler.
// Parameters:
//   - store: candidate store.
//   - dailyLimit: configured daily generation quota, reported by Stats.
// Returns:
//   - *CandidateHandler: initialized handler.
func NewCandidateHandler(store *repository.CandidateStore, dailyLimit int) *CandidateHandler {
	return &CandidateHandler{store: store, dailyLimit: dailyLimit}
}

// ListCandidatesResponse is one page of candidates in a status.
type ListCandidatesResponse struct {
	Items          []domain.Candidate     `json:"items"`
	Status         domain.CandidateStatus `json:"status"`
	Page           int                    `json:"page"`
	PageSize       int                    `json:"page_size"`
	Total          int64                  `json:"total"`
	OverviewFilter int                    `json:"overview_filter"`
}

// StatsResponse summarizes the queue and today's quota.
type StatsResponse struct {
	Counts     map[domain.CandidateStatus]int64 `json:"counts"`
	TodayUsed  int                              `json:"today_used"`
	DailyLimit int                              `json:"daily_limit"`
	Remaining  int                              `json:"remaining"`
}

// ListCandidates handles GET /api/v1/candidates.
// Query: status (default queued), page (1-based), page_size (clamped to [5, 300]),
// overview_filter (minimum overview length).
func (h *CandidateHandler) ListCandidates(c *gin.Context) {
	status := domain.CandidateStatus(c.DefaultQuery("status", string(domain.CandidateStatusQueued)))
	if !status.Valid() {
		status = domain.CandidateStatusQueued
	}
	page := max(1, queryInt(c, "page", 1))
	pageSize := min(maxPageSize, max(minPageSize, queryInt(c, "page_size", defaultPageSize)))
	minLen := max(0, queryInt(c, "overview_filter", 0))

	ctx := c.Request.Context()
	items, err := h.store.ListCandidates(ctx, status, pageSize, (page-1)*pageSize, minLen)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list candidates: " + err.Error()})
		return
	}
	total, err := h.store.CountCandidates(ctx, status, minLen)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count candidates: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, ListCandidatesResponse{
		Items:          items,
		Status:         status,
		Page:           page,
		PageSize:       pageSize,
		Total:          total,
		OverviewFilter: minLen,
	})
}

// GetCandidate handles GET /api/v1/candidates/:id.
func (h *CandidateHandler) GetCandidate(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	candidate, err := h.store.GetCandidate(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Candidate not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, candidate)
}

// Stats handles GET /api/v1/stats.
func (h *CandidateHandler) Stats(c *gin.Context) {
	ctx := c.Request.Context()
	counts, err := h.store.CountByStatus(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	used, err := h.store.TodayGeneratedCount(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	gauge := make(map[string]int64, len(counts))
	for status, n := range counts {
		gauge[string(status)] = n
	}
	metrics.Get().SetCandidateCounts(gauge)

	c.JSON(http.StatusOK, StatsResponse{
		Counts:     counts,
		TodayUsed:  used,
		DailyLimit: h.dailyLimit,
		Remaining:  max(0, h.dailyLimit-used),
	})
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

// pathID parses the :id parameter, writing a 400 response when it is invalid.
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid candidate ID"})
		return 0, false
	}
	return id, true
}
