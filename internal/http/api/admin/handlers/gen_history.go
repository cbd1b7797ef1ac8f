package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/CodegenAdmin/internal/codegen/generator"
	"github.com/router-for-me/CodegenAdmin/internal/codegen/history"
	"github.com/router-for-me/CodegenAdmin/internal/codegen/packaging"
)

// GenHistoryHandler serves generation history snapshots.
type GenHistoryHandler struct {
	gen     *generator.Generator
	history *history.Store
	now     func() time.Time
}

// NewGenHistoryHandler constructs a GenHistoryHandler.
func NewGenHistoryHandler(gen *generator.Generator, store *history.Store) *GenHistoryHandler {
	return &GenHistoryHandler{gen: gen, history: store, now: time.Now}
}

// List returns snapshots newest first.
func (h *GenHistoryHandler) List(c *gin.Context) {
	tableID, errID := parseOptionalID(c.Query("table_id"))
	if errID != nil {
		writeError(c, errID)
		return
	}
	result, errList := h.history.List(c.Request.Context(), scopeFrom(c), history.ListQuery{
		TableID:   derefID(tableID),
		TableName: c.Query("table_name"),
		Page:      queryInt(c, "page", 1),
		PageSize:  queryInt(c, "page_size", 20),
	})
	if errList != nil {
		writeError(c, errList)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Get returns one snapshot with its artifacts.
func (h *GenHistoryHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	snap, errGet := h.gen.Snapshot(c.Request.Context(), scopeFrom(c), id)
	if errGet != nil {
		writeError(c, errGet)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// Download streams a stored snapshot as a zip without re-rendering.
func (h *GenHistoryHandler) Download(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	snap, errGet := h.gen.Snapshot(c.Request.Context(), scopeFrom(c), id)
	if errGet != nil {
		writeError(c, errGet)
		return
	}
	data, _, errZip := packaging.Zip(packaging.EntriesFromArtifacts("", snap.Artifacts), snap.GeneratedAt)
	if errZip != nil {
		writeError(c, errZip)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+snap.TableName+`.zip"`)
	c.Data(http.StatusOK, "application/zip", data)
}

// Delete removes one snapshot.
func (h *GenHistoryHandler) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if errDelete := h.history.Delete(c.Request.Context(), scopeFrom(c), id); errDelete != nil {
		writeError(c, errDelete)
		return
	}
	c.Status(http.StatusNoContent)
}

// BatchDelete removes several snapshots.
func (h *GenHistoryHandler) BatchDelete(c *gin.Context) {
	var body idsRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		badRequest(c, "invalid json")
		return
	}
	deleted, errDelete := h.history.BatchDelete(c.Request.Context(), scopeFrom(c), body.IDs)
	if errDelete != nil {
		writeError(c, errDelete)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

// cleanupRequest captures the payload for age-based cleanup.
type cleanupRequest struct {
	RetentionDays int `json:"retention_days"` // Overrides the configured retention when positive.
}

// Cleanup removes snapshots older than the retention window.
func (h *GenHistoryHandler) Cleanup(c *gin.Context) {
	if !scopeFrom(c).Super {
		c.JSON(http.StatusForbidden, gin.H{"code": "forbidden", "error": "cleanup requires the super tenant"})
		return
	}
	var body cleanupRequest
	if c.Request.ContentLength > 0 {
		if errBind := c.ShouldBindJSON(&body); errBind != nil {
			badRequest(c, "invalid json")
			return
		}
	}
	days := body.RetentionDays
	if days <= 0 {
		days = h.history.RetentionDays()
	}
	deleted, errCleanup := h.history.Cleanup(c.Request.Context(), days, h.now())
	if errCleanup != nil {
		writeError(c, errCleanup)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted, "retention_days": days})
}
