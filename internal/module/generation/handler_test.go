package generation

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uniedit/ghiblify/internal/shared/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type generatorFunc func(ctx context.Context, req *Request) *Result

func (f generatorFunc) Generate(ctx context.Context, req *Request) *Result {
	return f(ctx, req)
}

type recordingArchiver struct {
	filename string
	data     []byte
	err      error
}

func (a *recordingArchiver) Archive(_ context.Context, filename string, data []byte) (string, error) {
	a.filename = filename
	a.data = data
	if a.err != nil {
		return "", a.err
	}
	return "uploads/x.jpg", nil
}

func multipartBody(t *testing.T, field, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	if field != "" {
		fw, err := mw.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	} else {
		require.NoError(t, mw.WriteField("note", "no file"))
	}
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func setupRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(middleware.UserID("user123"))
	h.RegisterRoutes(r)
	return r
}

func upload(t *testing.T, r *gin.Engine, target, field string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, field, "photo.jpg", data)
	req := httptest.NewRequest(http.MethodPost, target, body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandler_Upload_Success(t *testing.T) {
	var got *Request
	gen := generatorFunc(func(_ context.Context, req *Request) *Result {
		got = req
		return &Result{Outcome: OutcomeSucceeded, OutputURL: "https://cdn/out.png", Attempts: 4}
	})
	archiver := &recordingArchiver{}
	r := setupRouter(NewHandler(gen, archiver, 0, nil))

	w := upload(t, r, "/upload?userId=alice", ImageField, []byte("jpeg-bytes"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"resultImageUrl":"https://cdn/out.png"}`, w.Body.String())
	require.NotNil(t, got)
	assert.Equal(t, "alice", got.UserID)
	assert.Equal(t, []byte("jpeg-bytes"), got.Image)
	assert.Equal(t, "photo.jpg", archiver.filename)
	assert.Equal(t, []byte("jpeg-bytes"), archiver.data)
}

func TestHandler_Upload_DefaultUser(t *testing.T) {
	var userID string
	gen := generatorFunc(func(_ context.Context, req *Request) *Result {
		userID = req.UserID
		return &Result{Outcome: OutcomeSucceeded, OutputURL: "u"}
	})
	r := setupRouter(NewHandler(gen, nil, 0, nil))

	upload(t, r, "/upload", ImageField, []byte("x"))
	assert.Equal(t, "user123", userID)
}

func TestHandler_Upload_Outcomes(t *testing.T) {
	tests := []struct {
		outcome Outcome
		msg     string
	}{
		{OutcomeAnomaly, "interface anomaly"},
		{OutcomeFailed, "generation failed"},
		{OutcomeTimedOut, "timed out"},
		{OutcomeServerError, "server error"},
	}

	for _, tt := range tests {
		t.Run(string(tt.outcome), func(t *testing.T) {
			gen := generatorFunc(func(context.Context, *Request) *Result {
				return &Result{Outcome: tt.outcome, Err: errors.New("cause")}
			})
			r := setupRouter(NewHandler(gen, nil, 0, nil))

			w := upload(t, r, "/upload", ImageField, []byte("x"))

			assert.Equal(t, http.StatusOK, w.Code)
			assert.JSONEq(t, `{"success":false,"msg":"`+tt.msg+`"}`, w.Body.String())
		})
	}
}

func TestHandler_Upload_MissingFile(t *testing.T) {
	called := false
	gen := generatorFunc(func(context.Context, *Request) *Result {
		called = true
		return &Result{Outcome: OutcomeSucceeded}
	})
	r := setupRouter(NewHandler(gen, nil, 0, nil))

	w := upload(t, r, "/upload", "", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"success":false,"msg":"image file is required"}`, w.Body.String())
	assert.False(t, called)
}

func TestHandler_Upload_TooLarge(t *testing.T) {
	gen := generatorFunc(func(context.Context, *Request) *Result {
		t.Fatal("generator must not run")
		return nil
	})
	r := setupRouter(NewHandler(gen, nil, 4, nil))

	w := upload(t, r, "/upload", ImageField, []byte("12345"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"success":false,"msg":"image exceeds 4 bytes"}`, w.Body.String())
}

func TestHandler_Upload_ArchiveFailureIgnored(t *testing.T) {
	gen := generatorFunc(func(context.Context, *Request) *Result {
		return &Result{Outcome: OutcomeSucceeded, OutputURL: "https://cdn/out.png"}
	})
	r := setupRouter(NewHandler(gen, &recordingArchiver{err: errors.New("bucket missing")}, 0, nil))

	w := upload(t, r, "/upload", ImageField, []byte("x"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"resultImageUrl":"https://cdn/out.png"}`, w.Body.String())
}
