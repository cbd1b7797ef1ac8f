package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/CodegenAdmin/internal/apperrors"
	"github.com/router-for-me/CodegenAdmin/internal/tenant"
	log "github.com/sirupsen/logrus"
)

// Context keys set by the admin auth middleware.
const (
	ContextKeyScope       = "tenantScope"
	ContextKeyUsername    = "adminUsername"
	ContextKeyPermissions = "adminPermissions"
	ContextKeySuperAdmin  = "adminIsSuperAdmin"
)

// Error codes returned in the "code" field of error bodies.
const (
	CodeNotFound    = "not_found"
	CodeConflict    = "conflict"
	CodeValidation  = "validation"
	CodeSchemaEmpty = "schema_empty"
	CodeCorrupt     = "snapshot_corrupt"
	CodeInternal    = "internal"
)

// ErrorStatus maps err onto an HTTP status and error code.
func ErrorStatus(err error) (int, string) {
	switch {
	case err == nil:
		return http.StatusOK, ""
	case apperrors.IsValidation(err):
		return http.StatusBadRequest, CodeValidation
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, apperrors.ErrConflict):
		return http.StatusConflict, CodeConflict
	case errors.Is(err, apperrors.ErrSchemaEmpty):
		return http.StatusUnprocessableEntity, CodeSchemaEmpty
	case errors.Is(err, apperrors.ErrSnapshotCorrupt):
		return http.StatusUnprocessableEntity, CodeCorrupt
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// writeError renders err as {"code", "error"}. Internal errors hide their detail.
func writeError(c *gin.Context, err error) {
	status, code := ErrorStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		log.WithError(err).WithField("path", c.FullPath()).Error("admin request failed")
		message = "internal error"
	}
	c.JSON(status, gin.H{"code": code, "error": message})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"code": CodeValidation, "error": message})
}

// scopeFrom returns the caller's tenant scope.
func scopeFrom(c *gin.Context) tenant.Scope {
	if value, ok := c.Get(ContextKeyScope); ok {
		if scope, okScope := value.(tenant.Scope); okScope {
			return scope
		}
	}
	scope, _ := tenant.FromContext(c.Request.Context())
	return scope
}

// operatorFrom returns the caller's username.
func operatorFrom(c *gin.Context) string {
	return strings.TrimSpace(c.GetString(ContextKeyUsername))
}

func parseIDParam(c *gin.Context, name string) (uint64, bool) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param(name)), 10, 64)
	if errParse != nil || id == 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}

func parseOptionalID(raw string) (*uint64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	id, errParse := strconv.ParseUint(raw, 10, 64)
	if errParse != nil {
		return nil, apperrors.Validationf("invalid id %q", raw)
	}
	if id == 0 {
		return nil, nil
	}
	return &id, nil
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback
	}
	value, errParse := strconv.Atoi(raw)
	if errParse != nil {
		return fallback
	}
	return value
}

// idsRequest carries a list of ids in a body.
type idsRequest struct {
	IDs []uint64 `json:"ids"` // Target ids.
}
