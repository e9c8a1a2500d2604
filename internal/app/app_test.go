package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uniedit/ghiblify/internal/module/ledger"
	"github.com/uniedit/ghiblify/internal/shared/config"
	"go.uber.org/zap"
)

func testConfig(t *testing.T, replicateURL string) *config.Config {
	t.Helper()
	v := viper.New()
	config.SetDefaults(v)

	var cfg config.Config
	require.NoError(t, v.Unmarshal(&cfg))

	cfg.Ledger.Backend = config.BackendMemory
	cfg.Upload.Archive = config.ArchiveNone
	cfg.Replicate.BaseURL = replicateURL
	cfg.Replicate.Token = "test-token"
	cfg.Replicate.PollInterval = time.Millisecond
	cfg.Log.Level = "error"
	require.NoError(t, cfg.Validate())
	return &cfg
}

// fakeReplicate answers processing for the first polls, then succeeded.
func fakeReplicate(t *testing.T, processing int32) *httptest.Server {
	t.Helper()
	var polls atomic.Int32
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Token test-token", r.Header.Get("Authorization"))
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/predictions":
			fmt.Fprintf(w, `{"id":"p1","status":"starting","urls":{"get":"%s/v1/predictions/p1"}}`, server.URL)
		case r.Method == http.MethodGet && r.URL.Path == "/v1/predictions/p1":
			if polls.Add(1) <= processing {
				_, _ = w.Write([]byte(`{"id":"p1","status":"processing"}`))
				return
			}
			_, _ = w.Write([]byte(`{"id":"p1","status":"succeeded","output":["https://replicate.delivery/out.png"]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func uploadRequest(t *testing.T, target string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	fw, err := mw.CreateFormFile("image", "photo.jpg")
	require.NoError(t, err)
	_, _ = fw.Write([]byte{0xff, 0xd8, 0xff})
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestApp_EndToEnd(t *testing.T) {
	server := fakeReplicate(t, 2)
	app, err := New(context.Background(), testConfig(t, server.URL))
	require.NoError(t, err)
	defer app.Stop()
	r := app.Router()

	w := serve(r, httptest.NewRequest(http.MethodPost, "/reset", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = serve(r, uploadRequest(t, "/upload"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"resultImageUrl":"https://replicate.delivery/out.png"}`, w.Body.String())

	w = serve(r, httptest.NewRequest(http.MethodGet, "/count", nil))
	assert.JSONEq(t, `{"count":4}`, w.Body.String())

	w = serve(r, httptest.NewRequest(http.MethodGet, "/history?userId=user123", nil))
	var history []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &history))
	require.Len(t, history, 1)
	assert.Equal(t, "https://replicate.delivery/out.png", history[0]["url"])

	req := httptest.NewRequest(http.MethodPost, "/delete", strings.NewReader(`{"url":"https://replicate.delivery/out.png"}`))
	req.Header.Set("Content-Type", "application/json")
	w = serve(r, req)
	assert.JSONEq(t, `{"success":true,"msg":"deleted"}`, w.Body.String())

	w = serve(r, httptest.NewRequest(http.MethodGet, "/history", nil))
	assert.Equal(t, "[]", w.Body.String())
}

func TestApp_HealthAndMetrics(t *testing.T) {
	app, err := New(context.Background(), testConfig(t, "http://127.0.0.1:0"))
	require.NoError(t, err)
	defer app.Stop()
	r := app.Router()

	w := serve(r, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","ledger":"memory"}`, w.Body.String())

	serve(r, httptest.NewRequest(http.MethodPost, "/share", nil))

	w = serve(r, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `ghiblify_ledger_operations_total{op="share",result="ok"} 1`)
	assert.Contains(t, w.Body.String(), "ghiblify_http_requests_total")
}

func TestApp_HealthLedgerUnavailable(t *testing.T) {
	app, err := New(context.Background(), testConfig(t, "http://127.0.0.1:0"))
	require.NoError(t, err)
	defer app.Stop()

	app.docs.Port = ledger.NewMemoryBackend(nil)

	w := serve(app.Router(), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"success":false,"msg":"ledger unavailable"}`, w.Body.String())
}

func TestApp_UnknownRoute(t *testing.T) {
	app, err := New(context.Background(), testConfig(t, "http://127.0.0.1:0"))
	require.NoError(t, err)
	defer app.Stop()

	w := serve(app.Router(), httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"success":false,"msg":"route not found"}`, w.Body.String())
}

func TestApp_UnknownArchive(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:0")
	cfg.Upload.Archive = "ftp"

	_, err := New(context.Background(), cfg)
	assert.ErrorContains(t, err, "unknown upload archive")
}

func TestOpenDocuments_File(t *testing.T) {
	cfg := testConfig(t, "")
	cfg.Ledger.Backend = config.BackendFile
	cfg.Ledger.Dir = t.TempDir()

	docs, err := OpenDocuments(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer docs.Close()

	assert.Equal(t, config.BackendFile, docs.Backend)
	_, err = docs.Port.Load(context.Background(), "users")
	assert.Error(t, err)
}
