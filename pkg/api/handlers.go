// Package api is the thin HTTP surface over the dispatcher and the
// worker registry. Request/response mapping only; every rule lives in
// the core packages.
package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/athulya-anil/laneq/pkg/models"
	"github.com/athulya-anil/laneq/pkg/queue"
	"github.com/athulya-anil/laneq/pkg/registry"
)

// API wires HTTP routes to the dispatcher and registry.
type API struct {
	disp     *queue.Dispatcher
	registry *registry.Registry
}

// New creates an API instance.
func New(disp *queue.Dispatcher, reg *registry.Registry) *API {
	return &API{disp: disp, registry: reg}
}

// SetupRoutes configures all API routes.
func (a *API) SetupRoutes(router *gin.Engine) {
	router.POST("/jobs", a.submitJob)
	router.GET("/jobs", a.listJobs)
	router.GET("/jobs/ids", a.listJobIDs)
	router.GET("/jobs/stats", a.getStats)
	router.GET("/jobs/:id", a.getJob)
	router.GET("/jobs/:id/result", a.getResult)
	router.POST("/jobs/:id/cancel", a.cancelJob)
	router.DELETE("/jobs/:id", a.deleteJob)

	router.GET("/workers", a.listWorkers)
	router.GET("/deadletter", a.listDeadLetter)
	router.GET("/health", a.healthCheck)
}

// JobSubmitRequest is the payload for submitting a job.
type JobSubmitRequest struct {
	Type      string          `json:"type" binding:"required"`
	Payload   string          `json:"payload"`
	Priority  models.Priority `json:"priority"`
	DependsOn []string        `json:"depends_on"`
}

// submitJob handles POST /jobs.
func (a *API) submitJob(c *gin.Context) {
	var req JobSubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	job, err := a.disp.Enqueue(c.Request.Context(), queue.SubmitRequest{
		Type:      req.Type,
		Payload:   req.Payload,
		Priority:  req.Priority,
		DependsOn: req.DependsOn,
	})
	if err != nil {
		switch {
		case errors.Is(err, models.ErrUnknownPriority),
			errors.Is(err, models.ErrDuplicateDependency),
			errors.Is(err, models.ErrSelfDependency):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"job_id": job.ID,
		"status": string(job.Status),
	})
}

// listJobs handles GET /jobs.
func (a *API) listJobs(c *gin.Context) {
	jobs, err := a.disp.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(jobs), "jobs": jobs})
}

// listJobIDs handles GET /jobs/ids.
func (a *API) listJobIDs(c *gin.Context) {
	ids, err := a.disp.ListIDs(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(ids), "ids": ids})
}

// getStats handles GET /jobs/stats.
func (a *API) getStats(c *gin.Context) {
	stats, err := a.disp.GetStats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// getJob handles GET /jobs/:id.
func (a *API) getJob(c *gin.Context) {
	job, err := a.disp.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, models.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, job)
}

// getResult handles GET /jobs/:id/result.
func (a *API) getResult(c *gin.Context) {
	job, err := a.disp.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, models.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if job.Status != models.COMPLETED {
		c.JSON(http.StatusConflict, gin.H{
			"error":  models.ErrNoResult.Error(),
			"status": string(job.Status),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"job_id": job.ID, "result": job.Result})
}

// cancelJob handles POST /jobs/:id/cancel.
func (a *API) cancelJob(c *gin.Context) {
	err := a.disp.Cancel(c.Request.Context(), c.Param("id"))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"job_id": c.Param("id"), "status": string(models.CANCELLED)})
	case errors.Is(err, models.ErrJobNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
	case errors.Is(err, models.ErrNotCancellable):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// deleteJob handles DELETE /jobs/:id.
func (a *API) deleteJob(c *gin.Context) {
	err := a.disp.Delete(c.Request.Context(), c.Param("id"))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"job_id": c.Param("id"), "deleted": true})
	case errors.Is(err, models.ErrJobNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// listWorkers handles GET /workers.
func (a *API) listWorkers(c *gin.Context) {
	workers, err := a.registry.Workers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(workers), "workers": workers})
}

// listDeadLetter handles GET /deadletter.
func (a *API) listDeadLetter(c *gin.Context) {
	ids, err := a.disp.DeadLetterIDs(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(ids), "ids": ids})
}

// healthCheck handles GET /health.
func (a *API) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}
