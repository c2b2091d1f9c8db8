package cloudinary

import (
	"context"
	"crypto/sha1"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSign(t *testing.T) {
	c := New("demo", "key", "shh", "")
	got := c.sign(map[string]string{"timestamp": "100", "public_id": "qr/1", "api_key": "key", "empty": ""})
	want := fmt.Sprintf("%x", sha1.Sum([]byte("public_id=qr/1&timestamp=100shh")))
	assert.Equal(t, want, got)
}

func TestUploadPNG(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/demo/image/upload", r.URL.Path)
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "key", r.FormValue("api_key"))
		assert.Equal(t, "p-1", r.FormValue("public_id"))
		assert.Equal(t, "qrcodes", r.FormValue("folder"))
		assert.Equal(t, "1700000000", r.FormValue("timestamp"))
		assert.NotEmpty(t, r.FormValue("signature"))

		f, _, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		data, _ := io.ReadAll(f)
		assert.Equal(t, []byte("png-bytes"), data)

		_, _ = w.Write([]byte(`{"public_id":"qrcodes/p-1","secure_url":"https://res.example/qrcodes/p-1.png","format":"png","bytes":9}`))
	}))
	defer srv.Close()

	c := New("demo", "key", "shh", "qrcodes")
	c.BaseURL = srv.URL
	c.now = func() time.Time { return time.Unix(1_700_000_000, 0) }
	assert.True(t, c.Configured())

	res, err := c.UploadPNG(context.Background(), []byte("png-bytes"), "p-1")
	require.NoError(t, err)
	assert.Equal(t, "https://res.example/qrcodes/p-1.png", res.SecureURL)
}

func TestUploadPNGServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"bad signature"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New("demo", "key", "shh", "")
	c.BaseURL = srv.URL
	_, err := c.UploadPNG(context.Background(), []byte("x"), "p-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestConfigured(t *testing.T) {
	var nilClient *Client
	assert.False(t, nilClient.Configured())
	assert.False(t, New("demo", "", "", "").Configured())
}
