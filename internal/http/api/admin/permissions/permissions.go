package permissions

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Definition describes an admin permission.
type Definition struct {
	Key    string `json:"key"`
	Method string `json:"method"`
	Path   string `json:"path"`
	Label  string `json:"label"`
	Module string `json:"module"`
}

// Key builds a permission key from method and path.
func Key(method, path string) string {
	return strings.ToUpper(method) + " " + path
}

// NormalizePermissions trims, de-duplicates, and sorts permissions.
func NormalizePermissions(perms []string) []string {
	if len(perms) == 0 {
		return []string{}
	}
	seen := make(map[string]struct{}, len(perms))
	normalized := make([]string, 0, len(perms))
	for _, perm := range perms {
		trimmed := strings.TrimSpace(perm)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		normalized = append(normalized, trimmed)
	}
	sort.Strings(normalized)
	return normalized
}

// ValidatePermissions validates that all permissions exist in the definition set.
func ValidatePermissions(perms []string) error {
	if len(perms) == 0 {
		return nil
	}
	allowed := definitionMap
	for _, perm := range perms {
		trimmed := strings.TrimSpace(perm)
		if trimmed == "" {
			continue
		}
		if _, ok := allowed[trimmed]; !ok {
			return fmt.Errorf("invalid permission: %s", trimmed)
		}
	}
	return nil
}

// ParsePermissions parses and normalizes permissions from JSON.
func ParsePermissions(raw []byte) []string {
	if len(raw) == 0 {
		return []string{}
	}
	var perms []string
	if err := json.Unmarshal(raw, &perms); err != nil {
		return []string{}
	}
	return NormalizePermissions(perms)
}

// HasPermission checks whether the key exists in the permission list.
func HasPermission(perms []string, key string) bool {
	if key == "" {
		return false
	}
	for _, perm := range perms {
		if perm == key {
			return true
		}
	}
	return false
}

// Definitions returns a copy of all permission definitions.
func Definitions() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions)
	return out
}

// DefinitionMap returns a copy of the permission definition map.
func DefinitionMap() map[string]Definition {
	out := make(map[string]Definition, len(definitionMap))
	for key, value := range definitionMap {
		out[key] = value
	}
	return out
}

// newDefinition builds a Definition with a normalized key.
func newDefinition(method, path, label, module string) Definition {
	upperMethod := strings.ToUpper(method)
	return Definition{
		Key:    Key(upperMethod, path),
		Method: upperMethod,
		Path:   path,
		Label:  label,
		Module: module,
	}
}

// definitions is the ordered list of permission definitions.
var definitions = []Definition{
	newDefinition("GET", "/v0/admin/gen/db-tables", "List Database Tables", "Tables"),
	newDefinition("POST", "/v0/admin/gen/tables/import", "Import Tables", "Tables"),
	newDefinition("GET", "/v0/admin/gen/tables", "List Tables", "Tables"),
	newDefinition("GET", "/v0/admin/gen/tables/:id", "Get Table", "Tables"),
	newDefinition("PUT", "/v0/admin/gen/tables/:id", "Update Table", "Tables"),
	newDefinition("DELETE", "/v0/admin/gen/tables/:id", "Delete Table", "Tables"),
	newDefinition("POST", "/v0/admin/gen/tables/batch-delete", "Batch Delete Tables", "Tables"),
	newDefinition("POST", "/v0/admin/gen/tables/:id/sync", "Sync Table", "Tables"),

	newDefinition("GET", "/v0/admin/gen/tables/:id/preview", "Preview Code", "Generation"),
	newDefinition("POST", "/v0/admin/gen/generate", "Generate Code", "Generation"),
	newDefinition("POST", "/v0/admin/gen/download", "Download Code", "Generation"),

	newDefinition("GET", "/v0/admin/gen/history", "List History", "History"),
	newDefinition("GET", "/v0/admin/gen/history/:id", "Get History", "History"),
	newDefinition("GET", "/v0/admin/gen/history/:id/download", "Download History", "History"),
	newDefinition("DELETE", "/v0/admin/gen/history/:id", "Delete History", "History"),
	newDefinition("POST", "/v0/admin/gen/history/batch-delete", "Batch Delete History", "History"),
	newDefinition("POST", "/v0/admin/gen/history/cleanup", "Clean Up History", "History"),

	newDefinition("GET", "/v0/admin/gen/data-sources", "List Data Sources", "Data Sources"),
	newDefinition("POST", "/v0/admin/gen/data-sources", "Create Data Source", "Data Sources"),
	newDefinition("POST", "/v0/admin/gen/data-sources/test", "Test Draft Data Source", "Data Sources"),
	newDefinition("GET", "/v0/admin/gen/data-sources/:id", "Get Data Source", "Data Sources"),
	newDefinition("PUT", "/v0/admin/gen/data-sources/:id", "Update Data Source", "Data Sources"),
	newDefinition("DELETE", "/v0/admin/gen/data-sources/:id", "Delete Data Source", "Data Sources"),
	newDefinition("POST", "/v0/admin/gen/data-sources/:id/test", "Test Data Source", "Data Sources"),

	newDefinition("GET", "/v0/admin/gen/templates/builtin", "List Built-in Templates", "Templates"),
	newDefinition("POST", "/v0/admin/gen/templates/validate", "Validate Template", "Templates"),
	newDefinition("GET", "/v0/admin/gen/template-groups", "List Template Groups", "Templates"),
	newDefinition("POST", "/v0/admin/gen/template-groups", "Create Template Group", "Templates"),
	newDefinition("GET", "/v0/admin/gen/template-groups/:id", "Get Template Group", "Templates"),
	newDefinition("PUT", "/v0/admin/gen/template-groups/:id", "Update Template Group", "Templates"),
	newDefinition("DELETE", "/v0/admin/gen/template-groups/:id", "Delete Template Group", "Templates"),
	newDefinition("POST", "/v0/admin/gen/template-groups/:id/templates", "Create Template", "Templates"),
	newDefinition("PUT", "/v0/admin/gen/template-groups/:id/templates/:template_id", "Update Template", "Templates"),
	newDefinition("DELETE", "/v0/admin/gen/template-groups/:id/templates/:template_id", "Delete Template", "Templates"),

	newDefinition("POST", "/v0/admin/settings", "Create Setting", "Settings"),
	newDefinition("GET", "/v0/admin/settings", "List Settings", "Settings"),
	newDefinition("GET", "/v0/admin/settings/:key", "Get Setting", "Settings"),
	newDefinition("PUT", "/v0/admin/settings/:key", "Put Setting", "Settings"),
	newDefinition("PATCH", "/v0/admin/settings/:key", "Update Setting", "Settings"),
	newDefinition("DELETE", "/v0/admin/settings/:key", "Delete Setting", "Settings"),

	newDefinition("GET", "/v0/admin/permissions", "List Permission Definitions", "Administrators"),
}

// definitionMap provides fast lookup for permission definitions.
var definitionMap = func() map[string]Definition {
	out := make(map[string]Definition, len(definitions))
	for _, def := range definitions {
		out[def.Key] = def
	}
	return out
}()
