package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ondc-data/geo-enricher/internal/service"
	"github.com/ondc-data/geo-enricher/pkg/response"
)

// RunHandler handles HTTP requests for enrichment run tasks
type RunHandler struct {
	service *service.RunService
}

// NewRunHandler creates a new run handler
func NewRunHandler(service *service.RunService) *RunHandler {
	return &RunHandler{service: service}
}

// CreateTask starts a new enrichment run
// POST /api/admin/runs
func (h *RunHandler) CreateTask(c *gin.Context) {
	var req service.RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	createdBy := c.GetString("user")
	if createdBy == "" {
		createdBy = "admin"
	}

	task, err := h.service.CreateTask(req, createdBy)
	if err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	response.Success(c, task)
}

// GetTask retrieves a task by ID
// GET /api/v1/runs/:id
func (h *RunHandler) GetTask(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid task ID")
		return
	}

	task, err := h.service.GetTask(id)
	if err != nil {
		response.NotFound(c, err.Error())
		return
	}

	response.Success(c, task)
}

// ListTasks retrieves tasks with optional filters
// GET /api/v1/runs
func (h *RunHandler) ListTasks(c *gin.Context) {
	status := c.Query("status")
	flow := c.Query("flow")

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil {
		limit = 20
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil {
		offset = 0
	}

	tasks, err := h.service.ListTasks(status, flow, limit, offset)
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"tasks":  tasks,
		"limit":  limit,
		"offset": offset,
	})
}
