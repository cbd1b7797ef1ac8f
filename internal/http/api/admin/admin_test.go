package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/CodegenAdmin/internal/codegen/generator"
	"github.com/router-for-me/CodegenAdmin/internal/codegen/history"
	"github.com/router-for-me/CodegenAdmin/internal/codegen/render"
	"github.com/router-for-me/CodegenAdmin/internal/codegen/templates"
	"github.com/router-for-me/CodegenAdmin/internal/config"
	"github.com/router-for-me/CodegenAdmin/internal/datasource"
	internaldb "github.com/router-for-me/CodegenAdmin/internal/db"
	"github.com/router-for-me/CodegenAdmin/internal/http/api/admin/permissions"
	"github.com/router-for-me/CodegenAdmin/internal/ratelimit"
	"github.com/router-for-me/CodegenAdmin/internal/security"
	"github.com/router-for-me/CodegenAdmin/internal/store"
)

const testSecret = "test-secret"

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	conn, err := internaldb.Open("file:" + filepath.Join(t.TempDir(), "admin.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if errMigrate := internaldb.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	if errCreate := conn.Exec(`CREATE TABLE sys_notice (
		notice_id INTEGER PRIMARY KEY AUTOINCREMENT,
		notice_title VARCHAR(50) NOT NULL,
		status CHAR(1) DEFAULT '0'
	)`).Error; errCreate != nil {
		t.Fatalf("create business table: %v", errCreate)
	}
	reg := render.NewRegistry()
	if errRegister := templates.Register(reg); errRegister != nil {
		t.Fatalf("register templates: %v", errRegister)
	}

	settings := store.NewSettingStore(conn)
	if errRefresh := settings.Refresh(context.Background()); errRefresh != nil {
		t.Fatalf("refresh settings: %v", errRefresh)
	}

	tables := store.NewTableStore(conn)
	tpls := store.NewTemplateStore(conn)
	dataSources := store.NewDataSourceStore(conn)
	hist := history.NewStore(conn, 10, 30)
	sources := datasource.NewManager(conn, dataSources)
	gen := generator.New(generator.Deps{
		Tables:    tables,
		Templates: tpls,
		History:   hist,
		Sources:   sources,
		Registry:  reg,
		Config: config.GeneratorConfig{
			Author:           "alice",
			PackageName:      "example.com/app",
			ModuleName:       "system",
			TablePrefixes:    []string{"sys_"},
			AutoRemovePrefix: true,
		},
	})

	r := gin.New()
	RegisterAdminRoutes(r, Deps{
		DB:          conn,
		JWT:         config.JWTConfig{Secret: testSecret, Expiry: time.Hour},
		Tenant:      config.TenantConfig{SuperTenantID: "000000"},
		Generator:   gen,
		Tables:      tables,
		Templates:   tpls,
		DataSources: dataSources,
		Settings:    settings,
		History:     hist,
		Sources:     sources,
		Registry:    reg,
		Limiter:     ratelimit.NewManager(nil, nil, nil),
	})
	return r
}

func token(t *testing.T, claims security.AdminClaims) string {
	t.Helper()
	signed, err := security.IssueAdminToken(testSecret, claims, time.Hour, time.Now())
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return signed
}

func superToken(t *testing.T, tenantID string) string {
	return token(t, security.AdminClaims{TenantID: tenantID, Username: "alice", SuperAdmin: true})
}

func do(t *testing.T, r *gin.Engine, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func importNotice(t *testing.T, r *gin.Engine, bearer string) uint64 {
	t.Helper()
	rec := do(t, r, http.MethodPost, "/v0/admin/gen/tables/import", bearer, gin.H{"tables": []string{"sys_notice"}})
	if rec.Code != http.StatusCreated {
		t.Fatalf("import status = %d body=%s", rec.Code, rec.Body.String())
	}
	tables := decode(t, rec)["tables"].([]any)
	return uint64(tables[0].(map[string]any)["id"].(float64))
}

func TestAuthRequired(t *testing.T) {
	r := newTestRouter(t)
	if rec := do(t, r, http.MethodGet, "/v0/admin/gen/tables", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing header status = %d", rec.Code)
	}
	if rec := do(t, r, http.MethodGet, "/v0/admin/gen/tables", "garbage", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token status = %d", rec.Code)
	}
	if rec := do(t, r, http.MethodGet, "/healthz", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", rec.Code)
	}
}

func TestPermissionMiddleware(t *testing.T) {
	r := newTestRouter(t)
	listKey := permissions.Key(http.MethodGet, "/v0/admin/gen/tables")

	denied := token(t, security.AdminClaims{TenantID: "t1", Username: "bob"})
	rec := do(t, r, http.MethodGet, "/v0/admin/gen/tables", denied, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if got := decode(t, rec)["permission"]; got != listKey {
		t.Fatalf("permission = %v, want %s", got, listKey)
	}

	allowed := token(t, security.AdminClaims{TenantID: "t1", Username: "bob", Permissions: []string{listKey}})
	if rec := do(t, r, http.MethodGet, "/v0/admin/gen/tables", allowed, nil); rec.Code != http.StatusOK {
		t.Fatalf("granted status = %d body=%s", rec.Code, rec.Body.String())
	}
	if rec := do(t, r, http.MethodPost, "/v0/admin/gen/tables/import", allowed, gin.H{"tables": []string{"sys_notice"}}); rec.Code != http.StatusForbidden {
		t.Fatalf("ungranted import status = %d", rec.Code)
	}
}

func TestEveryRouteHasPermission(t *testing.T) {
	r := newTestRouter(t)
	defs := permissions.DefinitionMap()
	for _, route := range r.Routes() {
		if !strings.HasPrefix(route.Path, "/v0/admin") {
			continue
		}
		if _, ok := defs[permissions.Key(route.Method, route.Path)]; !ok {
			t.Fatalf("route %s %s has no permission definition", route.Method, route.Path)
		}
	}
}

func TestGenerateFlow(t *testing.T) {
	r := newTestRouter(t)
	bearer := superToken(t, "t1")
	id := importNotice(t, r, bearer)

	rec := do(t, r, http.MethodPost, "/v0/admin/gen/tables/import", bearer, gin.H{"tables": []string{"sys_notice"}})
	if rec.Code != http.StatusConflict || decode(t, rec)["code"] != "conflict" {
		t.Fatalf("duplicate import status = %d body=%s", rec.Code, rec.Body.String())
	}

	idPath := "/v0/admin/gen/tables/" + jsonID(id)
	rec = do(t, r, http.MethodGet, idPath, bearer, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	if cols := decode(t, rec)["columns"].([]any); len(cols) != 3 {
		t.Fatalf("columns = %d, want 3", len(cols))
	}

	rec = do(t, r, http.MethodGet, idPath+"/preview", bearer, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("preview status = %d body=%s", rec.Code, rec.Body.String())
	}
	if artifacts := decode(t, rec)["artifacts"].([]any); len(artifacts) == 0 {
		t.Fatalf("preview produced no artifacts")
	}

	rec = do(t, r, http.MethodPost, "/v0/admin/gen/generate", bearer, gin.H{"table_ids": []uint64{id}})
	if rec.Code != http.StatusOK {
		t.Fatalf("generate status = %d body=%s", rec.Code, rec.Body.String())
	}
	if runID, _ := decode(t, rec)["run_id"].(string); runID == "" {
		t.Fatalf("generate returned no run id")
	}

	rec = do(t, r, http.MethodGet, "/v0/admin/gen/history?table_id="+jsonID(id), bearer, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("history status = %d", rec.Code)
	}
	if total := decode(t, rec)["total"].(float64); total != 1 {
		t.Fatalf("history total = %v, want 1", total)
	}

	rec = do(t, r, http.MethodPost, "/v0/admin/gen/download", bearer, gin.H{"table_ids": []uint64{id}})
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "application/zip" {
		t.Fatalf("download status = %d type=%s", rec.Code, rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), "sys_notice.zip") {
		t.Fatalf("disposition = %s", rec.Header().Get("Content-Disposition"))
	}
}

func TestTenantIsolationAndErrors(t *testing.T) {
	r := newTestRouter(t)
	id := importNotice(t, r, superToken(t, "t1"))

	other := superToken(t, "t2")
	rec := do(t, r, http.MethodGet, "/v0/admin/gen/tables/"+jsonID(id), other, nil)
	if rec.Code != http.StatusNotFound || decode(t, rec)["code"] != "not_found" {
		t.Fatalf("cross-tenant get status = %d body=%s", rec.Code, rec.Body.String())
	}

	root := superToken(t, "000000")
	if rec := do(t, r, http.MethodGet, "/v0/admin/gen/tables/"+jsonID(id), root, nil); rec.Code != http.StatusOK {
		t.Fatalf("super tenant get status = %d", rec.Code)
	}

	if rec := do(t, r, http.MethodGet, "/v0/admin/gen/tables/abc", other, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id status = %d", rec.Code)
	}
	if rec := do(t, r, http.MethodPost, "/v0/admin/gen/history/cleanup", other, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("tenant cleanup status = %d", rec.Code)
	}
	if rec := do(t, r, http.MethodPost, "/v0/admin/gen/history/cleanup", root, nil); rec.Code != http.StatusOK {
		t.Fatalf("super cleanup status = %d", rec.Code)
	}
}

func TestSettingsAndTemplates(t *testing.T) {
	r := newTestRouter(t)
	bearer := superToken(t, "t1")

	rec := do(t, r, http.MethodPut, "/v0/admin/settings/GEN_HISTORY_LIMIT", bearer, gin.H{"value": 0})
	if rec.Code != http.StatusBadRequest || decode(t, rec)["code"] != "validation" {
		t.Fatalf("invalid setting status = %d body=%s", rec.Code, rec.Body.String())
	}
	if rec := do(t, r, http.MethodPut, "/v0/admin/settings/GEN_HISTORY_LIMIT", bearer, gin.H{"value": 5}); rec.Code != http.StatusOK {
		t.Fatalf("put setting status = %d body=%s", rec.Code, rec.Body.String())
	}

	rec = do(t, r, http.MethodPost, "/v0/admin/gen/template-groups", bearer, gin.H{"name": "mine"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create group status = %d body=%s", rec.Code, rec.Body.String())
	}
	groupID := uint64(decode(t, rec)["id"].(float64))

	rec = do(t, r, http.MethodPost, "/v0/admin/gen/template-groups/"+jsonID(groupID)+"/templates", bearer, gin.H{
		"name":          "readme",
		"path_template": "${businessName}/README.md",
		"content":       "# ${className} ${mystery}",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create template status = %d body=%s", rec.Code, rec.Body.String())
	}
	if warnings := decode(t, rec)["warnings"].([]any); len(warnings) != 1 {
		t.Fatalf("warnings = %v, want one unknown identifier", warnings)
	}

	rec = do(t, r, http.MethodPost, "/v0/admin/gen/templates/validate", bearer, gin.H{"content": "${oops"})
	if rec.Code != http.StatusOK || decode(t, rec)["valid"] != false {
		t.Fatalf("validate status = %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestGenerationRateLimit(t *testing.T) {
	r := newTestRouter(t)
	tenantToken := superToken(t, "t1")
	id := importNotice(t, r, tenantToken)

	root := superToken(t, "000000")
	if rec := do(t, r, http.MethodPut, "/v0/admin/settings/GEN_RATE_LIMIT", root, gin.H{"value": 1}); rec.Code != http.StatusOK {
		t.Fatalf("put rate limit status = %d body=%s", rec.Code, rec.Body.String())
	}

	previewPath := "/v0/admin/gen/tables/" + jsonID(id) + "/preview"
	first := do(t, r, http.MethodGet, previewPath, tenantToken, nil)
	if first.Code != http.StatusOK || first.Header().Get("X-RateLimit-Limit") != "1" {
		t.Fatalf("first preview status = %d limit=%s", first.Code, first.Header().Get("X-RateLimit-Limit"))
	}
	if second := do(t, r, http.MethodGet, previewPath, tenantToken, nil); second.Code != http.StatusTooManyRequests {
		t.Fatalf("second preview status = %d, want 429", second.Code)
	}
	if rec := do(t, r, http.MethodGet, "/v0/admin/gen/tables/"+jsonID(id), tenantToken, nil); rec.Code != http.StatusOK {
		t.Fatalf("non-rendering route should not be limited, status = %d", rec.Code)
	}
}

func jsonID(id uint64) string {
	payload, _ := json.Marshal(id)
	return string(payload)
}

func TestListPermissions(t *testing.T) {
	r := newTestRouter(t)
	rec := do(t, r, http.MethodGet, "/v0/admin/permissions", superToken(t, "000000"), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	defs, ok := decode(t, rec)["permissions"].([]any)
	if !ok || len(defs) == 0 {
		t.Fatalf("permissions = %v", defs)
	}
	want := permissions.Key(http.MethodPost, "/v0/admin/gen/generate")
	found := false
	for _, raw := range defs {
		if def, _ := raw.(map[string]any); def["key"] == want {
			found = true
		}
	}
	if !found {
		t.Fatalf("missing %s", want)
	}
}
