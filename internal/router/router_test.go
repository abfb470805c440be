package router

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ishpreet160/CertFlow/internal/config"
	"github.com/ishpreet160/CertFlow/internal/identity"
	"github.com/ishpreet160/CertFlow/internal/model"
	"github.com/ishpreet160/CertFlow/internal/storage"
	"github.com/ishpreet160/CertFlow/internal/testutil"
	"github.com/ishpreet160/CertFlow/internal/token"
	"github.com/ishpreet160/CertFlow/internal/worker"
)

const testSecret = "router-test-secret"

type recordingQueue struct {
	mu   sync.Mutex
	msgs []worker.EmailJobPayload
}

func (q *recordingQueue) Submit(_, _ string, payload any) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.msgs = append(q.msgs, payload.(worker.EmailJobPayload))
	return nil
}

type testServer struct {
	engine *gin.Engine
	db     *gorm.DB
	store  *storage.MemoryStore
	queue  *recordingQueue
	tokens *token.Issuer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		Env:                  "test",
		JWTSecret:            testSecret,
		JWTExpirationHours:   1,
		PasswordResetMinutes: 15,
		FrontendURL:          "http://portal.test",
		AllowedExtensions:    "pdf,png,jpg,jpeg",
		MaxUploadMB:          1,
		CORSOrigins:          "*",
	}
	ts := &testServer{
		db:     testutil.NewDB(t),
		store:  storage.NewMemoryStore(),
		queue:  &recordingQueue{},
		tokens: token.NewIssuer(testSecret, time.Hour, 15*time.Minute),
	}
	ts.engine = New(cfg, Deps{
		DB:      ts.db,
		Store:   ts.store,
		Orphans: worker.NewOrphanSweeper(worker.NewMemoryOrphanSet(), ts.store),
		Queue:   ts.queue,
	})
	return ts
}

func (ts *testServer) user(t *testing.T, name string, role identity.Role, manager *model.User) (*model.User, string) {
	t.Helper()
	u := testutil.SeedUser(t, ts.db, name, role, manager)
	tok, err := ts.tokens.IssueAccess(u.Claim())
	require.NoError(t, err)
	return u, tok
}

func (ts *testServer) do(t *testing.T, req *http.Request, tok string) *httptest.ResponseRecorder {
	t.Helper()
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	ts.engine.ServeHTTP(w, req)
	return w
}

func jsonReq(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func multipartReq(t *testing.T, method, path string, fields map[string]string, fileField, fileName string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileField != "" {
		fw, err := mw.CreateFormFile(fileField, fileName)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

var pdfBytes = []byte("%PDF-1.4 router test")

func TestHealth_RedisDisabled(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, httptest.NewRequest(http.MethodGet, "/health", nil), "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, "connected", body["db"])
	assert.Equal(t, "disabled", body["redis"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestCertificateFlowOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	m, mTok := ts.user(t, "Mona Manager", identity.RoleManager, nil)
	_, m2Tok := ts.user(t, "Other Manager", identity.RoleManager, nil)
	_, aTok := ts.user(t, "Ada Admin", identity.RoleAdmin, nil)
	_, eTok := ts.user(t, "Esha Employee", identity.RoleEmployee, m)

	// submit
	w := ts.do(t, multipartReq(t, http.MethodPost, "/v1/certificates",
		map[string]string{"title": "Metro fibre", "client": "BSNL", "value": "1500"},
		"file", "metro.pdf", pdfBytes), eTok)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[map[string]any](t, w)
	id := created["id"].(string)
	assert.Equal(t, "pending", created["status"])

	// reject
	w = ts.do(t, jsonReq(t, http.MethodPut, "/v1/certificates/"+id+"/status", map[string]string{"status": "rejected"}), mTok)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "rejected", decode[map[string]any](t, w)["status"])

	// bogus decision
	w = ts.do(t, jsonReq(t, http.MethodPut, "/v1/certificates/"+id+"/status", map[string]string{"status": "archived"}), mTok)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// resubmit by editing
	w = ts.do(t, multipartReq(t, http.MethodPut, "/v1/certificates/"+id,
		map[string]string{"title": "Metro fibre v2"}, "", "", nil), eTok)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	edited := decode[map[string]any](t, w)
	assert.Equal(t, "pending", edited["status"])
	assert.Equal(t, "Metro fibre v2", edited["title"])

	// other team cannot read
	w = ts.do(t, httptest.NewRequest(http.MethodGet, "/v1/certificates/"+id, nil), m2Tok)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// preview and download
	w = ts.do(t, httptest.NewRequest(http.MethodGet, "/v1/certificates/"+id+"/file", nil), mTok)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "inline")
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, pdfBytes, w.Body.Bytes())
	w = ts.do(t, httptest.NewRequest(http.MethodGet, "/v1/certificates/"+id+"/download", nil), eTok)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")

	// approve, then everything is frozen
	w = ts.do(t, jsonReq(t, http.MethodPut, "/v1/certificates/"+id+"/status", map[string]string{"status": "approved"}), aTok)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = ts.do(t, multipartReq(t, http.MethodPut, "/v1/certificates/"+id,
		map[string]string{"title": "late change"}, "", "", nil), eTok)
	assert.Equal(t, http.StatusConflict, w.Code)
	w = ts.do(t, httptest.NewRequest(http.MethodDelete, "/v1/certificates/"+id, nil), eTok)
	assert.Equal(t, http.StatusConflict, w.Code)

	// listings and stats
	w = ts.do(t, httptest.NewRequest(http.MethodGet, "/v1/certificates/all?status=approved", nil), mTok)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]map[string]any](t, w), 1)
	w = ts.do(t, httptest.NewRequest(http.MethodGet, "/v1/certificates/all?status=bogus", nil), mTok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = ts.do(t, httptest.NewRequest(http.MethodGet, "/v1/dashboard/stats", nil), aTok)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[map[string]int](t, w)
	assert.Equal(t, 1, stats["total_uploads"])
	assert.Equal(t, 1, stats["approved"])

	w = ts.do(t, httptest.NewRequest(http.MethodGet, "/v1/certificates/export", nil), mTok)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))

	// submitted + rejected + approved
	assert.Len(t, ts.queue.msgs, 3)
}

func TestCertificateCreate_Rejections(t *testing.T) {
	ts := newTestServer(t)
	_, aTok := ts.user(t, "Ada Admin", identity.RoleAdmin, nil)
	_, eTok := ts.user(t, "Esha Employee", identity.RoleEmployee, nil)

	w := ts.do(t, multipartReq(t, http.MethodPost, "/v1/certificates",
		map[string]string{"title": "x", "client": "y"}, "file", "a.pdf", pdfBytes), aTok)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = ts.do(t, multipartReq(t, http.MethodPost, "/v1/certificates",
		map[string]string{"client": "y"}, "file", "a.pdf", pdfBytes), eTok)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), `"title"`)

	w = ts.do(t, multipartReq(t, http.MethodPost, "/v1/certificates",
		map[string]string{"title": "x", "client": "y"}, "", "", nil), eTok)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = ts.do(t, multipartReq(t, http.MethodPost, "/v1/certificates",
		map[string]string{"title": "x", "client": "y"}, "file", "run.sh", []byte("#!/bin/sh")), eTok)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Zero(t, ts.store.Len())
}

func TestAuthAndRoleGates(t *testing.T) {
	ts := newTestServer(t)
	_, eTok := ts.user(t, "Esha Employee", identity.RoleEmployee, nil)

	w := ts.do(t, httptest.NewRequest(http.MethodGet, "/v1/certificates", nil), "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = ts.do(t, httptest.NewRequest(http.MethodGet, "/v1/certificates", nil), "garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(t, httptest.NewRequest(http.MethodGet, "/v1/dashboard/stats", nil), eTok)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = ts.do(t, httptest.NewRequest(http.MethodGet, "/v1/certificates/pending", nil), eTok)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = ts.do(t, httptest.NewRequest(http.MethodGet, "/v1/certificates/not-a-uuid", nil), eTok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegisterLoginProfile(t *testing.T) {
	ts := newTestServer(t)
	m, _ := ts.user(t, "Mona Manager", identity.RoleManager, nil)

	w := ts.do(t, httptest.NewRequest(http.MethodGet, "/v1/users/managers", nil), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]map[string]any](t, w), 1)

	w = ts.do(t, jsonReq(t, http.MethodPost, "/v1/auth/register", map[string]any{
		"name": "Esha", "email": "not-an-email", "password": "s3cret-pass",
	}), "")
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), `"email"`)

	w = ts.do(t, jsonReq(t, http.MethodPost, "/v1/auth/register", map[string]any{
		"name": "Esha", "email": "esha@example.com", "password": "s3cret-pass", "manager_id": m.ID.String(),
	}), "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = ts.do(t, jsonReq(t, http.MethodPost, "/v1/auth/login", map[string]any{
		"email": "esha@example.com", "password": "s3cret-pass",
	}), "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	login := decode[map[string]any](t, w)
	tok := login["access_token"].(string)

	w = ts.do(t, httptest.NewRequest(http.MethodGet, "/v1/profile", nil), tok)
	require.Equal(t, http.StatusOK, w.Code)
	profile := decode[map[string]any](t, w)
	assert.Equal(t, "employee", profile["role"])
	assert.Equal(t, m.ID.String(), profile["manager_id"])

	// an access token is not a reset token
	w = ts.do(t, jsonReq(t, http.MethodPost, "/v1/auth/reset-password/"+tok, map[string]any{"password": "another-pass"}), "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTCILOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	_, mTok := ts.user(t, "Mona Manager", identity.RoleManager, nil)
	_, eTok := ts.user(t, "Esha Employee", identity.RoleEmployee, nil)

	w := ts.do(t, multipartReq(t, http.MethodPost, "/v1/tcil/upload",
		map[string]string{"name": "ISO", "valid_from": "2025-01-01", "valid_till": "2024-01-01"},
		"pdf", "iso.pdf", pdfBytes), mTok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var uploads int64
	require.NoError(t, ts.db.Model(&model.Upload{}).Count(&uploads).Error)
	assert.Zero(t, uploads)

	w = ts.do(t, multipartReq(t, http.MethodPost, "/v1/tcil/upload",
		map[string]string{"name": "ISO", "valid_from": "01-01-2024", "valid_till": "2025-01-01"},
		"pdf", "iso.pdf", pdfBytes), eTok)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = ts.do(t, multipartReq(t, http.MethodPost, "/v1/tcil/upload",
		map[string]string{"name": "ISO", "valid_from": "01-01-2024", "valid_till": "2025-01-01"},
		"pdf", "iso.pdf", pdfBytes), mTok)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := decode[map[string]any](t, w)["id"].(string)

	w = ts.do(t, httptest.NewRequest(http.MethodGet, "/v1/tcil/certificates", nil), eTok)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]map[string]any](t, w), 1)

	w = ts.do(t, httptest.NewRequest(http.MethodGet, "/v1/tcil/certificates/"+id+"/download", nil), eTok)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, pdfBytes, w.Body.Bytes())

	w = ts.do(t, httptest.NewRequest(http.MethodDelete, "/v1/tcil/certificates/"+id, nil), mTok)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Zero(t, ts.store.Len())
}
