package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/isdelr/slatehub-api/internal/api/handlers"
	"github.com/isdelr/slatehub-api/internal/auth"
	"github.com/isdelr/slatehub-api/internal/database"
	"github.com/isdelr/slatehub-api/internal/models"
	"github.com/isdelr/slatehub-api/internal/monitoring"
	"github.com/isdelr/slatehub-api/internal/services"
	"github.com/isdelr/slatehub-api/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngBytes = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

type testServer struct {
	handler http.Handler
	store   *storage.Store
	monitor *monitoring.StorageMonitor
}

func newTestServer(t *testing.T, cfg RouterConfig, jwtSecret string) *testServer {
	t.Helper()
	dir := t.TempDir()

	db, err := database.New(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))

	store, err := storage.New(filepath.Join(dir, "uploads"))
	require.NoError(t, err)

	events := services.NewEventService(db)
	monitor, err := monitoring.NewStorageMonitor("@every 1h", store, events)
	require.NoError(t, err)
	monitor.Check()

	if cfg.CORSOrigin == "" {
		cfg.CORSOrigin = "http://localhost:5173"
	}
	router := NewRouter(cfg, Dependencies{
		Store:   store,
		Monitor: monitor,
		People:  services.NewMockPersonService(),
		Images:  services.NewImageService(db, store, events),
		Events:  events,
		Issuer:  auth.NewIssuer(jwtSecret),
	})
	return &testServer{handler: router, store: store, monitor: monitor}
}

func (s *testServer) do(t *testing.T, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func uploadRequest(t *testing.T, filename, contentType string, data []byte, personID string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="image"; filename="`+filename+`"`)
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)

	if personID != "" {
		require.NoError(t, mw.WriteField("person_id", personID))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/images", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func (s *testServer) upload(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, RouterConfig{}, "")

	rec := srv.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	health := decode[models.HealthResponse](t, rec)
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "slatehub-api (mock)", health.Service)
	assert.True(t, health.Storage.Available)
	assert.False(t, health.Timestamp.IsZero())
}

func TestHealthDegradedWithoutStorage(t *testing.T) {
	srv := newTestServer(t, RouterConfig{}, "")
	require.NoError(t, os.RemoveAll(srv.store.Root()))

	// The endpoint reports the monitor's last result until the next check.
	health := decode[models.HealthResponse](t, srv.do(t, http.MethodGet, "/health", ""))
	assert.Equal(t, "healthy", health.Status)

	srv.monitor.Check()
	rec := srv.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	health = decode[models.HealthResponse](t, rec)
	assert.Equal(t, "degraded", health.Status)
	assert.False(t, health.Storage.Available)

	require.NoError(t, os.MkdirAll(srv.store.Root(), 0o755))
	srv.monitor.Check()
	health = decode[models.HealthResponse](t, srv.do(t, http.MethodGet, "/health", ""))
	assert.Equal(t, "healthy", health.Status)
	assert.True(t, health.Storage.Available)
}

func TestHealthWithoutMonitorChecksStore(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.New(filepath.Join(dir, "uploads"))
	require.NoError(t, err)
	handler := handlers.NewHealthHandler(store, nil)

	require.NoError(t, os.RemoveAll(store.Root()))
	rec := httptest.NewRecorder()
	handler.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	health := decode[models.HealthResponse](t, rec)
	assert.Equal(t, "degraded", health.Status)
}

func TestRegister(t *testing.T) {
	srv := newTestServer(t, RouterConfig{}, "")

	rec := srv.do(t, http.MethodPost, "/api/auth/register", `{"username":"ada","email":"ada@example.com","password":"hunter2"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{
		"token": "mock_token_for_ada",
		"user": {"id":"person:ada","username":"ada","email":"ada@example.com","name":null,"stage_name":null,"verification_level":1}
	}`, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "hunter2")

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "token", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
}

func TestRegisterEmptyBody(t *testing.T) {
	srv := newTestServer(t, RouterConfig{}, "")

	rec := srv.do(t, http.MethodPost, "/api/auth/register", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decode[models.AuthResponse](t, rec)
	assert.Equal(t, "mock_token_for_new_user", resp.Token)
	assert.Equal(t, "new_user", resp.User.Username)
}

func TestMalformedBodiesAreBadRequests(t *testing.T) {
	srv := newTestServer(t, RouterConfig{}, "")

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/api/auth/register"},
		{http.MethodPost, "/api/auth/login"},
		{http.MethodPost, "/api/auth/check-username"},
		{http.MethodPut, "/api/profile"},
	} {
		for _, body := range []string{`{"username":`, `{"username":"a"} trailing`, `{"username":"a"}{}`} {
			rec := srv.do(t, tc.method, tc.path, body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, "%s %s", tc.path, body)
			errResp := decode[models.ErrorResponse](t, rec)
			assert.Equal(t, "Invalid request body", errResp.Error)
		}
	}
}

func TestMistypedFieldsFallBackToDefaults(t *testing.T) {
	srv := newTestServer(t, RouterConfig{}, "")

	rec := srv.do(t, http.MethodPost, "/api/auth/check-username", `{"username":123}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"available":true}`, rec.Body.String())

	rec = srv.do(t, http.MethodPost, "/api/auth/register", `{"username":7,"email":42,"name":["a"],"stage_name":null}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{
		"token": "mock_token_for_new_user",
		"user": {"id":"person:new_user","username":"new_user","email":42,"name":["a"],"stage_name":null,"verification_level":1}
	}`, rec.Body.String())

	rec = srv.do(t, http.MethodPost, "/api/auth/register", `{"username":"bob","email":42}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decode[models.AuthResponse](t, rec)
	assert.Equal(t, "mock_token_for_bob", resp.Token)
	assert.JSONEq(t, `42`, string(resp.User.Email))

	rec = srv.do(t, http.MethodPost, "/api/auth/login", `{"username":false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decode[models.AuthResponse](t, rec)
	assert.Equal(t, "mock_token_for_test_user", resp.Token)
	assert.Equal(t, "test_user", resp.User.Username)

	rec = srv.do(t, http.MethodPut, "/api/profile", `{"name":3.5}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"person:current_user_id","username":"current_user","email":"current@example.com","name":3.5,"stage_name":null,"verification_level":2}`, rec.Body.String())
}

func TestNonObjectBodiesUseDefaults(t *testing.T) {
	srv := newTestServer(t, RouterConfig{}, "")

	for _, body := range []string{`[]`, `"ada"`, `null`, `17`} {
		rec := srv.do(t, http.MethodPost, "/api/auth/login", body)
		require.Equal(t, http.StatusOK, rec.Code, body)
		resp := decode[models.AuthResponse](t, rec)
		assert.Equal(t, "test_user", resp.User.Username, body)
	}
}

func TestLogin(t *testing.T) {
	srv := newTestServer(t, RouterConfig{}, "")

	rec := srv.do(t, http.MethodPost, "/api/auth/login", `{"username":"bob","password":"x"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"token": "mock_token_for_bob",
		"user": {"id":"person:bob","username":"bob","email":"bob@example.com","name":"Test User","stage_name":"The Tester","verification_level":1}
	}`, rec.Body.String())

	rec = srv.do(t, http.MethodPost, "/api/auth/login", `{}`)
	resp := decode[models.AuthResponse](t, rec)
	assert.Equal(t, "test_user", resp.User.Username)
}

func TestMe(t *testing.T) {
	srv := newTestServer(t, RouterConfig{}, "")

	rec := srv.do(t, http.MethodGet, "/api/auth/me", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"person:current_user_id","username":"current_user","email":"current@example.com","name":"Current User","stage_name":"The Current One","verification_level":2}`, rec.Body.String())

	rec = srv.do(t, http.MethodGet, "/api/auth/me", "", "Authorization", "Bearer mock_token_for_ada")
	user := decode[models.MockUser](t, rec)
	assert.Equal(t, "ada", user.Username)
	assert.Equal(t, "person:ada", user.ID)

	// Unreadable tokens fall back to the static user instead of failing.
	rec = srv.do(t, http.MethodGet, "/api/auth/me", "", "Authorization", "Bearer nonsense")
	require.Equal(t, http.StatusOK, rec.Code)
	user = decode[models.MockUser](t, rec)
	assert.Equal(t, "current_user", user.Username)
}

func TestMeWithSignedToken(t *testing.T) {
	srv := newTestServer(t, RouterConfig{}, "test-secret")

	rec := srv.do(t, http.MethodPost, "/api/auth/login", `{"username":"carol"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[models.AuthResponse](t, rec)
	assert.NotContains(t, resp.Token, auth.MockTokenPrefix)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: resp.Token})
	me := httptest.NewRecorder()
	srv.handler.ServeHTTP(me, req)
	require.Equal(t, http.StatusOK, me.Code)
	user := decode[models.MockUser](t, me)
	assert.Equal(t, "carol", user.Username)
}

func TestLogout(t *testing.T) {
	srv := newTestServer(t, RouterConfig{}, "")

	rec := srv.do(t, http.MethodPost, "/api/auth/logout", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Logged out successfully"}`, rec.Body.String())

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "token", cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
	assert.Negative(t, cookies[0].MaxAge)
}

func TestCheckUsername(t *testing.T) {
	srv := newTestServer(t, RouterConfig{}, "")

	tests := []struct {
		body      string
		available bool
	}{
		{`{"username":"admin"}`, false},
		{`{"username":"Admin"}`, false},
		{`{"username":"TEST"}`, false},
		{`{"username":"root"}`, false},
		{`{"username":"alice"}`, true},
		{`{"username":"rooted"}`, true},
		{`{}`, true},
		{``, true},
	}

	for _, tt := range tests {
		rec := srv.do(t, http.MethodPost, "/api/auth/check-username", tt.body)
		require.Equal(t, http.StatusOK, rec.Code, tt.body)
		resp := decode[models.AvailabilityResponse](t, rec)
		assert.Equal(t, tt.available, resp.Available, tt.body)
	}
}

func TestUpdateProfile(t *testing.T) {
	srv := newTestServer(t, RouterConfig{}, "")

	rec := srv.do(t, http.MethodPut, "/api/profile", `{"name":"New Name","stage_name":"New Stage"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"person:current_user_id","username":"current_user","email":"current@example.com","name":"New Name","stage_name":"New Stage","verification_level":2}`, rec.Body.String())

	rec = srv.do(t, http.MethodPut, "/api/profile", `{"name":"Only Name"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"stage_name":null`)
}

func TestPublicProfile(t *testing.T) {
	srv := newTestServer(t, RouterConfig{}, "")

	rec := srv.do(t, http.MethodGet, "/api/users/ada", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"person:ada","username":"ada","email":"ada@example.com","name":"ADA","stage_name":"The Great ada","verification_level":1}`, rec.Body.String())

	rec = srv.do(t, http.MethodGet, "/api/users/NotFound", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"User not found","message":"A user with that username does not exist."}`, rec.Body.String())
}

func TestImageLifecycle(t *testing.T) {
	srv := newTestServer(t, RouterConfig{}, "")

	rec := srv.upload(t, uploadRequest(t, "avatar.png", "image/png", pngBytes, "person:ada"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resp := decode[models.ImageUploadResponse](t, rec)
	assert.Equal(t, "person:ada", resp.Image.PersonID)
	assert.Equal(t, "avatar.png", resp.Image.Filename)
	assert.Equal(t, "image/png", resp.Image.ContentType)
	assert.EqualValues(t, len(pngBytes), resp.Image.Size)
	assert.Equal(t, "/api/images/"+resp.Image.StoragePath, resp.URL)

	get := srv.do(t, http.MethodGet, resp.URL, "")
	require.Equal(t, http.StatusOK, get.Code)
	assert.Equal(t, "image/png", get.Header().Get("Content-Type"))
	assert.Equal(t, pngBytes, get.Body.Bytes())

	list := srv.do(t, http.MethodGet, "/api/people/person:ada/images", "")
	require.Equal(t, http.StatusOK, list.Code)
	images := decode[[]models.Image](t, list)
	require.Len(t, images, 1)
	assert.Equal(t, resp.Image.ID, images[0].ID)

	del := srv.do(t, http.MethodDelete, resp.URL, "")
	assert.Equal(t, http.StatusNoContent, del.Code)

	get = srv.do(t, http.MethodGet, resp.URL, "")
	assert.Equal(t, http.StatusNotFound, get.Code)

	// Deleting something that is already gone still succeeds.
	del = srv.do(t, http.MethodDelete, resp.URL, "")
	assert.Equal(t, http.StatusNoContent, del.Code)

	events := srv.do(t, http.MethodGet, "/api/events?limit=5", "")
	require.Equal(t, http.StatusOK, events.Code)
	recent := decode[[]models.Event](t, events)
	require.Len(t, recent, 2)
	assert.Equal(t, "image.delete", recent[0].Type)
	assert.Equal(t, "image.upload", recent[1].Type)
}

func TestImageUploadDefaultsPerson(t *testing.T) {
	srv := newTestServer(t, RouterConfig{}, "")

	rec := srv.upload(t, uploadRequest(t, "a.webp", "image/webp", []byte("RIFF....WEBP"), ""))
	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decode[models.ImageUploadResponse](t, rec)
	assert.Equal(t, "person:current_user_id", resp.Image.PersonID)
	assert.True(t, strings.HasSuffix(resp.Image.StoragePath, ".webp"))
}

func TestImageUploadSniffsUndeclaredType(t *testing.T) {
	srv := newTestServer(t, RouterConfig{}, "")

	rec := srv.upload(t, uploadRequest(t, "blob", "application/octet-stream", pngBytes, ""))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decode[models.ImageUploadResponse](t, rec)
	assert.Equal(t, "image/png", resp.Image.ContentType)
}

func TestImageUploadRejections(t *testing.T) {
	srv := newTestServer(t, RouterConfig{}, "")

	rec := srv.upload(t, uploadRequest(t, "notes.txt", "text/plain", []byte("hello"), ""))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.upload(t, uploadRequest(t, "empty.png", "image/png", nil, ""))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.upload(t, uploadRequest(t, "big.png", "image/png", make([]byte, storage.MaxImageSize+1), ""))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.upload(t, uploadRequest(t, "huge.png", "image/png", make([]byte, storage.MaxImageSize+2<<20), ""))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	// No "image" field at all.
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("person_id", "person:ada"))
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/images", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec = srv.upload(t, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	entries, err := filepath.Glob(filepath.Join(srv.store.Root(), "*"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestGetMissingImage(t *testing.T) {
	srv := newTestServer(t, RouterConfig{}, "")

	rec := srv.do(t, http.MethodGet, "/api/images/missing.png", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	errResp := decode[models.ErrorResponse](t, rec)
	assert.Equal(t, "Not found", errResp.Error)

	rec = srv.do(t, http.MethodGet, "/api/images/..", "")
	assert.NotEqual(t, http.StatusOK, rec.Code)
}

func TestAuthRateLimit(t *testing.T) {
	srv := newTestServer(t, RouterConfig{AuthRateLimit: 2}, "")

	for i := 0; i < 2; i++ {
		rec := srv.do(t, http.MethodGet, "/api/auth/me", "")
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := srv.do(t, http.MethodGet, "/api/auth/me", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// Other routes are not limited.
	rec = srv.do(t, http.MethodGet, "/api/users/ada", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t, RouterConfig{}, "")

	rec := srv.do(t, http.MethodOptions, "/api/auth/login", "",
		"Origin", "http://localhost:5173",
		"Access-Control-Request-Method", "POST",
	)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestUnknownRoute(t *testing.T) {
	srv := newTestServer(t, RouterConfig{}, "")

	rec := srv.do(t, http.MethodGet, "/api/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	rec = srv.do(t, http.MethodGet, "/api/auth/login", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, RouterConfig{}, "")
	srv.upload(t, uploadRequest(t, "a.png", "image/png", pngBytes, ""))

	rec := srv.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "slatehub_image_operations_total")
}
