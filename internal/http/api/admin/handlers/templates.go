package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/CodegenAdmin/internal/codegen/render"
	"github.com/router-for-me/CodegenAdmin/internal/models"
	"github.com/router-for-me/CodegenAdmin/internal/store"
)

// TemplateHandler manages custom template groups and their templates.
type TemplateHandler struct {
	store    *store.TemplateStore
	registry *render.Registry
}

// NewTemplateHandler constructs a TemplateHandler.
func NewTemplateHandler(templates *store.TemplateStore, registry *render.Registry) *TemplateHandler {
	return &TemplateHandler{store: templates, registry: registry}
}

// groupRequest captures the payload for creating or updating a template group.
type groupRequest struct {
	Name        string `json:"name"`        // Group name.
	Description string `json:"description"` // Group description.
}

// templateRequest captures the payload for saving a custom template.
type templateRequest struct {
	Name         string `json:"name"`          // Template name, unique in its group.
	PathTemplate string `json:"path_template"` // Output path; may contain markers.
	Language     string `json:"language"`      // Optional language tag.
	Content      string `json:"content"`       // Template body.
	Sort         int    `json:"sort"`          // Render order.
}

// validateRequest captures the payload for validating template text.
type validateRequest struct {
	PathTemplate string `json:"path_template"` // Optional output path.
	Content      string `json:"content"`       // Template body.
}

// Builtin lists the built-in template groups.
func (h *TemplateHandler) Builtin(c *gin.Context) {
	groups := gin.H{}
	if h.registry != nil {
		for _, name := range h.registry.Groups() {
			defs, _ := h.registry.Group(name)
			items := make([]gin.H, 0, len(defs))
			for _, def := range defs {
				items = append(items, gin.H{
					"id":            def.ID,
					"name":          def.Name,
					"path_template": def.PathTemplate,
				})
			}
			groups[name] = items
		}
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups, "identifiers": render.KnownIdentifiers()})
}

// ListGroups returns the caller's template groups.
func (h *TemplateHandler) ListGroups(c *gin.Context) {
	rows, errList := h.store.ListGroups(c.Request.Context(), scopeFrom(c))
	if errList != nil {
		writeError(c, errList)
		return
	}
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, formatGroup(&rows[i], false))
	}
	c.JSON(http.StatusOK, gin.H{"groups": out})
}

// GetGroup returns a group with its templates.
func (h *TemplateHandler) GetGroup(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	group, errGet := h.store.GetGroup(c.Request.Context(), scopeFrom(c), id)
	if errGet != nil {
		writeError(c, errGet)
		return
	}
	c.JSON(http.StatusOK, formatGroup(group, true))
}

// CreateGroup inserts a template group.
func (h *TemplateHandler) CreateGroup(c *gin.Context) {
	var body groupRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		badRequest(c, "invalid json")
		return
	}
	group := models.TemplateGroup{Name: body.Name, Description: body.Description}
	if errCreate := h.store.CreateGroup(c.Request.Context(), scopeFrom(c), &group); errCreate != nil {
		writeError(c, errCreate)
		return
	}
	c.JSON(http.StatusCreated, formatGroup(&group, false))
}

// UpdateGroup renames a template group.
func (h *TemplateHandler) UpdateGroup(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var body groupRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		badRequest(c, "invalid json")
		return
	}
	group, errUpdate := h.store.UpdateGroup(c.Request.Context(), scopeFrom(c), id, body.Name, body.Description)
	if errUpdate != nil {
		writeError(c, errUpdate)
		return
	}
	c.JSON(http.StatusOK, formatGroup(group, true))
}

// DeleteGroup removes a template group with its templates.
func (h *TemplateHandler) DeleteGroup(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if errDelete := h.store.DeleteGroup(c.Request.Context(), scopeFrom(c), id); errDelete != nil {
		writeError(c, errDelete)
		return
	}
	c.Status(http.StatusNoContent)
}

// CreateTemplate adds a template to a group.
func (h *TemplateHandler) CreateTemplate(c *gin.Context) {
	groupID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	h.saveTemplate(c, groupID, 0, http.StatusCreated)
}

// UpdateTemplate replaces a template of a group.
func (h *TemplateHandler) UpdateTemplate(c *gin.Context) {
	groupID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	templateID, okTemplate := parseIDParam(c, "template_id")
	if !okTemplate {
		return
	}
	h.saveTemplate(c, groupID, templateID, http.StatusOK)
}

func (h *TemplateHandler) saveTemplate(c *gin.Context, groupID, templateID uint64, status int) {
	var body templateRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		badRequest(c, "invalid json")
		return
	}
	tpl := models.CustomTemplate{
		ID:           templateID,
		GroupID:      groupID,
		Name:         body.Name,
		PathTemplate: body.PathTemplate,
		Language:     body.Language,
		Content:      body.Content,
		Sort:         body.Sort,
	}
	warnings, errSave := h.store.SaveTemplate(c.Request.Context(), scopeFrom(c), &tpl)
	if errSave != nil {
		writeError(c, errSave)
		return
	}
	if warnings == nil {
		warnings = []string{}
	}
	c.JSON(status, gin.H{"template": formatTemplate(&tpl), "warnings": warnings})
}

// DeleteTemplate removes a template from a group.
func (h *TemplateHandler) DeleteTemplate(c *gin.Context) {
	groupID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	templateID, okTemplate := parseIDParam(c, "template_id")
	if !okTemplate {
		return
	}
	if errDelete := h.store.DeleteTemplate(c.Request.Context(), scopeFrom(c), groupID, templateID); errDelete != nil {
		writeError(c, errDelete)
		return
	}
	c.Status(http.StatusNoContent)
}

// Validate checks template text without saving it.
func (h *TemplateHandler) Validate(c *gin.Context) {
	var body validateRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		badRequest(c, "invalid json")
		return
	}
	known := render.KnownIdentifiers()
	pathCheck, errPath := render.ValidateTemplate(body.PathTemplate, known)
	if errPath != nil {
		c.JSON(http.StatusOK, gin.H{"valid": false, "field": "path_template", "error": errPath.Error()})
		return
	}
	contentCheck, errContent := render.ValidateTemplate(body.Content, known)
	if errContent != nil {
		c.JSON(http.StatusOK, gin.H{"valid": false, "field": "content", "error": errContent.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"valid":       true,
		"identifiers": append(pathCheck.Identifiers, contentCheck.Identifiers...),
		"warnings":    append(pathCheck.Warnings, contentCheck.Warnings...),
		"language":    render.LanguageForPath(body.PathTemplate),
	})
}

// formatGroup formats a template group into response JSON.
func formatGroup(g *models.TemplateGroup, withTemplates bool) gin.H {
	out := gin.H{
		"id":          g.ID,
		"name":        g.Name,
		"description": g.Description,
		"created_at":  g.CreatedAt,
		"updated_at":  g.UpdatedAt,
	}
	if withTemplates {
		templates := make([]gin.H, 0, len(g.Templates))
		for i := range g.Templates {
			templates = append(templates, formatTemplate(&g.Templates[i]))
		}
		out["templates"] = templates
	}
	return out
}

// formatTemplate formats a custom template into response JSON.
func formatTemplate(t *models.CustomTemplate) gin.H {
	return gin.H{
		"id":            t.ID,
		"group_id":      t.GroupID,
		"name":          t.Name,
		"path_template": t.PathTemplate,
		"language":      t.Language,
		"content":       t.Content,
		"sort":          t.Sort,
	}
}
