package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbourn/go-inquiry-backend/internal/auth"
	"github.com/tbourn/go-inquiry-backend/internal/config"
	"github.com/tbourn/go-inquiry-backend/internal/crm"
	"github.com/tbourn/go-inquiry-backend/internal/domain"
	"github.com/tbourn/go-inquiry-backend/internal/http/middleware"
	"github.com/tbourn/go-inquiry-backend/internal/repo"
)

const uid = "2b1f8a3c-5d7e-4f60-9a1b-c2d3e4f5a6b7"

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := repo.OpenSQLite(filepath.Join(t.TempDir(), "router.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func testConfig() config.Config {
	return config.Config{
		APIBasePath:    "/api/v1",
		RateRPS:        100,
		RateBurst:      100,
		IdempotencyTTL: time.Hour,
		Log:            config.LogConfig{Redact: true},
		Auth:           config.AuthConfig{AllowUserHeader: true},
		OTEL:           config.OTELConfig{ServiceName: "test-svc"},
	}
}

func newRouter(t *testing.T, cfg config.Config) (*gin.Engine, *crm.Memory, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	dir := crm.NewMemory()
	r := gin.New()
	RegisterRoutes(r, db, crm.NewInquiryMirror(dir), cfg)
	return r, dir, db
}

func do(r http.Handler, method, path string, body io.Reader, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func asUser(extra ...string) map[string]string {
	h := map[string]string{middleware.HeaderUserID: uid, "Content-Type": "application/json"}
	for i := 0; i+1 < len(extra); i += 2 {
		h[extra[i]] = extra[i+1]
	}
	return h
}

func decodeInquiry(t *testing.T, w *httptest.ResponseRecorder) domain.Inquiry {
	t.Helper()
	var inq domain.Inquiry
	if err := json.Unmarshal(w.Body.Bytes(), &inq); err != nil {
		t.Fatalf("decode inquiry: %v (%s)", err, w.Body.String())
	}
	return inq
}

func TestRegisterRoutes_HealthMetricsFallbacks(t *testing.T) {
	r, _, _ := newRouter(t, testConfig())

	w := do(r, http.MethodGet, "/health", nil, map[string]string{"Origin": "http://anywhere.test"})
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("allow-all CORS expected '*', got %q", got)
	}
	if w.Header().Get("X-Request-ID") == "" || w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("request id / security headers missing: %v", w.Header())
	}

	w = do(r, http.MethodGet, "/metrics", nil, nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "http_requests_total") {
		t.Fatalf("GET /metrics: code=%d", w.Code)
	}

	w = do(r, http.MethodGet, "/nope", nil, nil)
	if w.Code != http.StatusNotFound || !strings.Contains(w.Body.String(), `"not_found"`) {
		t.Fatalf("GET /nope: %d %s", w.Code, w.Body.String())
	}

	w = do(r, http.MethodPost, "/health", nil, nil)
	if w.Code != http.StatusMethodNotAllowed || !strings.Contains(w.Body.String(), `"method_not_allowed"`) {
		t.Fatalf("POST /health: %d %s", w.Code, w.Body.String())
	}

	if w := do(r, http.MethodGet, "/swagger/doc.json", nil, nil); w.Code != http.StatusNotFound {
		t.Fatalf("swagger must be off by default, got %d", w.Code)
	}
}

func TestRegisterRoutes_CORSAllowlist(t *testing.T) {
	cfg := testConfig()
	cfg.CORS.AllowedOrigins = []string{"http://example.com"}
	r, _, _ := newRouter(t, cfg)

	w := do(r, http.MethodGet, "/health", nil, map[string]string{"Origin": "http://example.com"})
	if w.Code != http.StatusOK || w.Header().Get("Access-Control-Allow-Origin") != "http://example.com" {
		t.Fatalf("expected ACAO echo, got %d %q", w.Code, w.Header().Get("Access-Control-Allow-Origin"))
	}

	w = do(r, http.MethodGet, "/health", nil, map[string]string{"Origin": "http://evil.test"})
	if w.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("foreign origin must not be echoed")
	}
}

func TestRegisterRoutes_Swagger(t *testing.T) {
	cfg := testConfig()
	cfg.SwaggerEnabled = true
	cfg.APIBasePath = "/api/v2"
	r, _, _ := newRouter(t, cfg)

	w := do(r, http.MethodGet, "/swagger/doc.json", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /swagger/doc.json = %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, `"/inquiries/{id}"`) || !strings.Contains(body, `"basePath": "/api/v2"`) {
		t.Fatalf("unexpected swagger doc: %.200s", body)
	}
}

func TestRegisterRoutes_RequiresIdentity(t *testing.T) {
	r, _, _ := newRouter(t, testConfig())

	w := do(r, http.MethodGet, "/api/v1/inquiries", nil, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous list = %d", w.Code)
	}
	w = do(r, http.MethodGet, "/api/v1/inquiries", nil, map[string]string{middleware.HeaderUserID: "demo-user"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("non-UUID user = %d", w.Code)
	}
}

func TestRegisterRoutes_BearerToken(t *testing.T) {
	cfg := testConfig()
	cfg.Auth = config.AuthConfig{JWTSecret: "k", JWTIssuer: "idp"}
	r, _, db := newRouter(t, cfg)

	tok, err := (&auth.JWTer{Secret: []byte("k"), Issuer: "idp"}).Issue(auth.Claims{UID: uid, GivenName: "Ada", FamilyName: "Lovelace"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	w := do(r, http.MethodGet, "/api/v1/inquiries", nil, map[string]string{"Authorization": "Bearer " + tok})
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"inquiries":[]`) {
		t.Fatalf("bearer list: %d %s", w.Code, w.Body.String())
	}

	u, err := repo.GetUser(context.Background(), db, uid)
	if err != nil || u.FirstName != "Ada" || u.LastName != "Lovelace" {
		t.Fatalf("user not upserted from claims: %+v err=%v", u, err)
	}

	// the development header is off here
	if w := do(r, http.MethodGet, "/api/v1/inquiries", nil, map[string]string{middleware.HeaderUserID: uid}); w.Code != http.StatusUnauthorized {
		t.Fatalf("X-User-ID accepted while disabled: %d", w.Code)
	}
}

func TestRegisterRoutes_InquiryLifecycle(t *testing.T) {
	r, dir, _ := newRouter(t, testConfig())

	w := do(r, http.MethodPost, "/api/v1/inquiries", strings.NewReader(`{"question":"When does term start?"}`), asUser())
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	created := decodeInquiry(t, w)
	if w.Header().Get("Location") != "/api/v1/inquiries/"+created.ID || created.UserID != uid || created.Version != 1 {
		t.Fatalf("unexpected create result: %+v loc=%q", created, w.Header().Get("Location"))
	}
	if dir.Len(crm.EntityInquiry) != 1 {
		t.Fatalf("expected a mirrored CRM record")
	}

	w = do(r, http.MethodGet, "/api/v1/inquiries", nil, asUser())
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), created.ID) {
		t.Fatalf("list: %d %s", w.Code, w.Body.String())
	}

	w = do(r, http.MethodGet, "/api/v1/inquiries/"+created.ID+"/edit", nil, asUser())
	if w.Code != http.StatusOK || decodeInquiry(t, w).Version != 1 {
		t.Fatalf("edit form: %d %s", w.Code, w.Body.String())
	}

	body := `{"id":"` + created.ID + `","question":"When does autumn term start?","version":1}`
	w = do(r, http.MethodPut, "/api/v1/inquiries/"+created.ID, strings.NewReader(body), asUser())
	if w.Code != http.StatusOK || decodeInquiry(t, w).Version != 2 {
		t.Fatalf("update: %d %s", w.Code, w.Body.String())
	}

	// stale token
	w = do(r, http.MethodPut, "/api/v1/inquiries/"+created.ID, strings.NewReader(body), asUser())
	if w.Code != http.StatusConflict {
		t.Fatalf("stale update: %d %s", w.Code, w.Body.String())
	}

	w = do(r, http.MethodGet, "/api/v1/inquiries/"+created.ID, nil, asUser())
	if w.Code != http.StatusOK || decodeInquiry(t, w).Question != "When does autumn term start?" {
		t.Fatalf("details: %d %s", w.Code, w.Body.String())
	}

	w = do(r, http.MethodDelete, "/api/v1/inquiries/"+created.ID, nil, asUser())
	if w.Code != http.StatusNoContent || dir.Len(crm.EntityInquiry) != 0 {
		t.Fatalf("delete: %d remote=%d", w.Code, dir.Len(crm.EntityInquiry))
	}
	if w := do(r, http.MethodGet, "/api/v1/inquiries/"+created.ID, nil, asUser()); w.Code != http.StatusNotFound {
		t.Fatalf("deleted inquiry still visible: %d", w.Code)
	}
}

func TestRegisterRoutes_FormFlow(t *testing.T) {
	r, dir, _ := newRouter(t, testConfig())
	form := map[string]string{
		middleware.HeaderUserID: uid,
		"Content-Type":          "application/x-www-form-urlencoded",
	}

	w := do(r, http.MethodPost, "/api/v1/inquiries", strings.NewReader(url.Values{"question": {"Form question?"}}.Encode()), form)
	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/api/v1/inquiries" {
		t.Fatalf("form create: %d loc=%q", w.Code, w.Header().Get("Location"))
	}

	var list struct {
		Inquiries []domain.Inquiry `json:"inquiries"`
	}
	w = do(r, http.MethodGet, "/api/v1/inquiries", nil, asUser())
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil || len(list.Inquiries) != 1 {
		t.Fatalf("list after form create: %v %s", err, w.Body.String())
	}
	id := list.Inquiries[0].ID

	w = do(r, http.MethodGet, "/api/v1/inquiries/"+id+"/delete", nil, asUser())
	if w.Code != http.StatusOK {
		t.Fatalf("delete confirmation: %d", w.Code)
	}

	w = do(r, http.MethodPost, "/api/v1/inquiries/"+id+"/delete", strings.NewReader(""), form)
	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/api/v1/inquiries" || dir.Len(crm.EntityInquiry) != 0 {
		t.Fatalf("form delete: %d loc=%q", w.Code, w.Header().Get("Location"))
	}
}

func TestRegisterRoutes_IdempotentReplayBypassesRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateRPS = 0.001
	cfg.RateBurst = 1
	r, dir, _ := newRouter(t, cfg)

	post := func(key string) *httptest.ResponseRecorder {
		h := asUser()
		if key != "" {
			h[middleware.HeaderIdempotencyKey] = key
		}
		return do(r, http.MethodPost, "/api/v1/inquiries", bytes.NewBufferString(`{"question":"Once only?"}`), h)
	}

	first := post("retry-1")
	if first.Code != http.StatusCreated {
		t.Fatalf("first: %d %s", first.Code, first.Body.String())
	}
	replay := post("retry-1")
	if replay.Code != http.StatusOK || replay.Header().Get("Idempotency-Replayed") != "true" {
		t.Fatalf("replay: %d %s", replay.Code, replay.Body.String())
	}
	if decodeInquiry(t, replay).ID != decodeInquiry(t, first).ID || dir.Len(crm.EntityInquiry) != 1 {
		t.Fatalf("replay created a second inquiry")
	}

	if w := post(""); w.Code != http.StatusTooManyRequests {
		t.Fatalf("fresh request should be limited, got %d", w.Code)
	}
	if w := post("bad key!"); w.Code != http.StatusBadRequest {
		t.Fatalf("malformed key: %d", w.Code)
	}
}

func TestRegisterRoutes_CreateKeyIgnoredOnOtherRoutes(t *testing.T) {
	cfg := testConfig()
	cfg.RateRPS = 0.001
	cfg.RateBurst = 1
	r, _, _ := newRouter(t, cfg)

	created := do(r, http.MethodPost, "/api/v1/inquiries", bytes.NewBufferString(`{"question":"Keyed?"}`),
		asUser(middleware.HeaderIdempotencyKey, "k1"))
	if created.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", created.Code, created.Body.String())
	}
	inq := decodeInquiry(t, created)

	// The burst is spent; a stored create key must not unlock other routes.
	put := do(r, http.MethodPut, "/api/v1/inquiries/"+inq.ID,
		bytes.NewBufferString(`{"id":"`+inq.ID+`","question":"Edited"}`),
		asUser(middleware.HeaderIdempotencyKey, "k1"))
	if put.Code != http.StatusTooManyRequests {
		t.Fatalf("PUT with create key: %d %s", put.Code, put.Body.String())
	}
	if put.Header().Get("Idempotency-Replayed") != "" {
		t.Fatalf("PUT must not be marked as a replay")
	}

	// Keys are not validated outside the create route.
	get := do(r, http.MethodGet, "/api/v1/inquiries", nil, asUser(middleware.HeaderIdempotencyKey, "bad key!"))
	if get.Code != http.StatusTooManyRequests {
		t.Fatalf("GET with malformed key: %d", get.Code)
	}
}

func TestIdempotencyLookup(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	if err := repo.UpsertUser(ctx, db, &domain.ApplicationUser{ID: uid}); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	lookup := idempotencyLookup(db)
	now := time.Now().UTC()

	if ok, err := lookup(ctx, uid, "inquiries.create", "k", now); ok || err != nil {
		t.Fatalf("miss: ok=%v err=%v", ok, err)
	}
	if _, err := repo.CreateIdempotency(ctx, db, uid, "inquiries.create", "k", "inq-1", http.StatusCreated, time.Hour); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if ok, err := lookup(ctx, uid, "inquiries.create", "k", now); !ok || err != nil {
		t.Fatalf("hit: ok=%v err=%v", ok, err)
	}
	if ok, _ := lookup(ctx, uid, "other.scope", "k", now); ok {
		t.Fatalf("scopes must not collide")
	}

	sqlDB, _ := db.DB()
	_ = sqlDB.Close()
	if ok, err := lookup(ctx, uid, "inquiries.create", "k", now); ok || err == nil {
		t.Fatalf("closed db: ok=%v err=%v", ok, err)
	}
}

func TestInquiryRepoShim_Proxies(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	if err := repo.UpsertUser(ctx, db, &domain.ApplicationUser{ID: uid}); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	shim := inquiryRepoShim{}

	inq := &domain.Inquiry{ID: "8d0c2f7e-0000-4000-8000-000000000001", UserID: uid, Question: "q"}
	if err := shim.CreateInquiry(ctx, db, inq); err != nil {
		t.Fatalf("CreateInquiry: %v", err)
	}
	if items, err := shim.ListInquiries(ctx, db, uid); err != nil || len(items) != 1 {
		t.Fatalf("ListInquiries: %v %v", items, err)
	}
	got, err := shim.GetInquiry(ctx, db, inq.ID, uid)
	if err != nil || got.Question != "q" {
		t.Fatalf("GetInquiry: %+v %v", got, err)
	}
	got.Question = "q2"
	if err := shim.UpdateInquiry(ctx, db, got, 1); err != nil {
		t.Fatalf("UpdateInquiry: %v", err)
	}
	if ok, err := shim.InquiryExists(ctx, db, inq.ID, uid); !ok || err != nil {
		t.Fatalf("InquiryExists: %v %v", ok, err)
	}
	if err := shim.DeleteInquiry(ctx, db, inq.ID, uid); err != nil {
		t.Fatalf("DeleteInquiry: %v", err)
	}
	if ok, _ := shim.InquiryExists(ctx, db, inq.ID, uid); ok {
		t.Fatalf("inquiry should be gone")
	}
}

func TestLimitBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(limitBody(10))
	r.POST("/echo", func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.String(http.StatusRequestEntityTooLarge, "too big")
			return
		}
		c.String(http.StatusOK, "ok")
	})

	if w := do(r, http.MethodPost, "/echo", bytes.NewBufferString("0123456789AB"), nil); w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", w.Code)
	}
	if w := do(r, http.MethodPost, "/echo", bytes.NewBufferString("small"), nil); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestGroupWithPrefix(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	groupWithPrefix(r, "/").GET("/one", func(c *gin.Context) { c.String(http.StatusOK, "one") })
	groupWithPrefix(r, "").GET("/two", func(c *gin.Context) { c.String(http.StatusOK, "two") })
	groupWithPrefix(r, "/api").GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	for path, want := range map[string]string{"/one": "one", "/two": "two", "/api/ping": "pong"} {
		if w := do(r, http.MethodGet, path, nil, nil); w.Code != http.StatusOK || w.Body.String() != want {
			t.Fatalf("GET %s got %d %q", path, w.Code, w.Body.String())
		}
	}
}
