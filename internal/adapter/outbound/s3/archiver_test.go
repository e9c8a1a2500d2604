package s3

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uniedit/ghiblify/internal/shared/config"
)

type fakePutter struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakePutter) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = params
	f.body, _ = io.ReadAll(params.Body)
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestArchiver_Archive(t *testing.T) {
	fake := &fakePutter{}
	a := NewArchiver(fake, "images", "uploads")

	pngHeader := []byte("\x89PNG\r\n\x1a\n0000")
	loc, err := a.Archive(context.Background(), "cat.PNG", pngHeader)
	require.NoError(t, err)

	require.NotNil(t, fake.input)
	key := *fake.input.Key
	assert.Equal(t, "images", *fake.input.Bucket)
	assert.True(t, strings.HasPrefix(key, "uploads/"))
	assert.True(t, strings.HasSuffix(key, ".png"))
	assert.Equal(t, "image/png", *fake.input.ContentType)
	assert.Equal(t, int64(len(pngHeader)), *fake.input.ContentLength)
	assert.Equal(t, pngHeader, fake.body)
	assert.Equal(t, "s3://images/"+key, loc)
}

func TestArchiver_Error(t *testing.T) {
	a := NewArchiver(&fakePutter{err: errors.New("access denied")}, "images", "")

	_, err := a.Archive(context.Background(), "cat.jpg", []byte("x"))
	assert.ErrorContains(t, err, "put object: access denied")
}

func TestNewClient_RequiresBucket(t *testing.T) {
	_, err := NewClient(context.Background(), &config.StorageConfig{})
	assert.Error(t, err)
}

func TestNewClient_CustomEndpoint(t *testing.T) {
	var (
		mu    sync.Mutex
		paths []string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.Method+" "+r.URL.Path)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client, err := NewClient(context.Background(), &config.StorageConfig{
		Endpoint:        server.URL,
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
		Bucket:          "images",
	})
	require.NoError(t, err)

	loc, err := NewArchiver(client, "images", "uploads/").Archive(context.Background(), "a.jpg", []byte("data"))
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, paths, 1)
	assert.True(t, strings.HasPrefix(paths[0], "PUT /images/uploads/"), paths[0])
	assert.True(t, strings.HasPrefix(loc, "s3://images/uploads/"))
}
