package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/CodegenAdmin/internal/datasource"
	"github.com/router-for-me/CodegenAdmin/internal/models"
	"github.com/router-for-me/CodegenAdmin/internal/store"
	log "github.com/sirupsen/logrus"
)

// connectionTestTimeout bounds a data source connectivity check.
const connectionTestTimeout = 10 * time.Second

// DataSourceHandler manages registered data sources.
type DataSourceHandler struct {
	store   *store.DataSourceStore
	manager *datasource.Manager
	check   func(ctx context.Context, ds models.DataSource) error
}

// NewDataSourceHandler constructs a DataSourceHandler.
func NewDataSourceHandler(dataSources *store.DataSourceStore, manager *datasource.Manager) *DataSourceHandler {
	return &DataSourceHandler{store: dataSources, manager: manager, check: datasource.CheckConnection}
}

// dataSourceRequest captures the payload for creating or updating a data source.
type dataSourceRequest struct {
	Name     string `json:"name"`     // Display name.
	Type     string `json:"type"`     // postgres, mysql or sqlite.
	Host     string `json:"host"`     // Server host.
	Port     int    `json:"port"`     // Server port.
	Username string `json:"username"` // Login user.
	Password string `json:"password"` // Login password; empty keeps the stored one on update.
	Database string `json:"database"` // Database name.
	Schema   string `json:"schema"`   // Schema (postgres).
	Path     string `json:"path"`     // File path (sqlite).
	SSLMode  string `json:"ssl_mode"` // SSL mode (postgres).
	Remark   string `json:"remark"`   // Free-form note.
}

func (r dataSourceRequest) model() models.DataSource {
	return models.DataSource{
		Name:     r.Name,
		Type:     r.Type,
		Host:     r.Host,
		Port:     r.Port,
		Username: r.Username,
		Password: r.Password,
		Database: r.Database,
		Schema:   r.Schema,
		Path:     r.Path,
		SSLMode:  r.SSLMode,
		Remark:   r.Remark,
	}
}

// List returns the caller's data sources.
func (h *DataSourceHandler) List(c *gin.Context) {
	rows, errList := h.store.List(c.Request.Context(), scopeFrom(c))
	if errList != nil {
		writeError(c, errList)
		return
	}
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, formatDataSource(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{"data_sources": out})
}

// Get returns one data source.
func (h *DataSourceHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	ds, errGet := h.store.DataSourceByID(c.Request.Context(), scopeFrom(c), id)
	if errGet != nil {
		writeError(c, errGet)
		return
	}
	c.JSON(http.StatusOK, formatDataSource(ds))
}

// Create registers a data source.
func (h *DataSourceHandler) Create(c *gin.Context) {
	var body dataSourceRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		badRequest(c, "invalid json")
		return
	}
	ds := body.model()
	if errCreate := h.store.Create(c.Request.Context(), scopeFrom(c), &ds); errCreate != nil {
		writeError(c, errCreate)
		return
	}
	c.JSON(http.StatusCreated, formatDataSource(&ds))
}

// Update replaces a data source and drops its cached connection.
func (h *DataSourceHandler) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var body dataSourceRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		badRequest(c, "invalid json")
		return
	}
	ds, errUpdate := h.store.Update(c.Request.Context(), scopeFrom(c), id, body.model())
	if errUpdate != nil {
		writeError(c, errUpdate)
		return
	}
	if h.manager != nil {
		h.manager.Evict(id)
	}
	c.JSON(http.StatusOK, formatDataSource(ds))
}

// Delete removes a data source and drops its cached connection.
func (h *DataSourceHandler) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if errDelete := h.store.Delete(c.Request.Context(), scopeFrom(c), id); errDelete != nil {
		writeError(c, errDelete)
		return
	}
	if h.manager != nil {
		h.manager.Evict(id)
	}
	c.Status(http.StatusNoContent)
}

// Test checks connectivity of a stored data source.
func (h *DataSourceHandler) Test(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	ds, errGet := h.store.DataSourceByID(c.Request.Context(), scopeFrom(c), id)
	if errGet != nil {
		writeError(c, errGet)
		return
	}
	h.respondCheck(c, *ds)
}

// TestDraft checks connectivity of an unsaved data source.
func (h *DataSourceHandler) TestDraft(c *gin.Context) {
	var body dataSourceRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		badRequest(c, "invalid json")
		return
	}
	h.respondCheck(c, body.model())
}

func (h *DataSourceHandler) respondCheck(c *gin.Context, ds models.DataSource) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), connectionTestTimeout)
	defer cancel()
	if errCheck := h.check(ctx, ds); errCheck != nil {
		log.WithError(errCheck).WithField("data_source", ds.Name).Warn("data source connection test failed")
		c.JSON(http.StatusOK, gin.H{"ok": false, "error": errCheck.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// formatDataSource formats a data source into response JSON without its password.
func formatDataSource(ds *models.DataSource) gin.H {
	return gin.H{
		"id":           ds.ID,
		"name":         ds.Name,
		"type":         ds.Type,
		"host":         ds.Host,
		"port":         ds.Port,
		"username":     ds.Username,
		"has_password": ds.Password != "",
		"database":     ds.Database,
		"schema":       ds.Schema,
		"path":         ds.Path,
		"ssl_mode":     ds.SSLMode,
		"remark":       ds.Remark,
		"created_at":   ds.CreatedAt,
		"updated_at":   ds.UpdatedAt,
	}
}
