package storage

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCloudinary(t *testing.T, handler http.HandlerFunc) *Cloudinary {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c, err := NewCloudinary(CloudinaryConfig{
		CloudName:  "demo",
		APIKey:     "key",
		APISecret:  "secret",
		APIBaseURL: server.URL + "/",
	}, server.Client())
	require.NoError(t, err)
	return c
}

func TestCloudinary_Upload(t *testing.T) {
	var gotPath string
	var gotFields map[string]string
	var gotFile []byte

	c := newTestCloudinary(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotFields = map[string]string{}
		for k, v := range r.MultipartForm.Value {
			gotFields[k] = v[0]
		}
		f, _, err := r.FormFile("file")
		require.NoError(t, err)
		gotFile, _ = io.ReadAll(f)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"public_id":  "abc123",
			"secure_url": "https://res.cloudinary.com/demo/image/upload/abc123.png",
		})
	})

	obj, err := c.Upload(context.Background(), []byte("png-bytes"), UploadOptions{
		Transform: &Transform{Effect: EffectBackgroundRemoval},
	})
	require.NoError(t, err)

	assert.Equal(t, "/v1_1/demo/image/upload", gotPath)
	assert.Equal(t, "abc123", obj.PublicID)
	assert.Equal(t, "https://res.cloudinary.com/demo/image/upload/abc123.png", obj.SecureURL)
	assert.Equal(t, []byte("png-bytes"), gotFile)
	assert.Equal(t, "key", gotFields["api_key"])
	assert.Equal(t, "e_background_removal", gotFields["transformation"])
	assert.NotEmpty(t, gotFields["timestamp"])
	assert.Regexp(t, `^[0-9a-f]{40,64}$`, gotFields["signature"])
}

func TestCloudinary_Upload_APIError(t *testing.T) {
	c := newTestCloudinary(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid Signature"}}`))
	})

	_, err := c.Upload(context.Background(), []byte("x"), UploadOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid Signature")
}

func TestCloudinary_Upload_MissingSecureURL(t *testing.T) {
	c := newTestCloudinary(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"public_id":"abc123"}`))
	})

	_, err := c.Upload(context.Background(), []byte("x"), UploadOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "secure_url")
}

func TestCloudinary_Upload_Rejected(t *testing.T) {
	c := newTestCloudinary(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	_, err := c.Upload(context.Background(), nil, UploadOptions{})
	assert.ErrorIs(t, err, ErrEmptyPayload)

	_, err = c.Upload(context.Background(), []byte("x"), UploadOptions{
		Transform: &Transform{Effect: EffectGenerativeRemove, Prompt: "two words"},
	})
	assert.ErrorIs(t, err, ErrInvalidTransform)
}

func TestCloudinary_URLFor(t *testing.T) {
	c := newTestCloudinary(t, func(w http.ResponseWriter, r *http.Request) {})

	raw, err := c.URLFor("folder/abc123", Transform{Effect: EffectGenerativeRemove, Prompt: "watch"})
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "https", u.Scheme)
	assert.Equal(t, "res.cloudinary.com", u.Host)
	assert.Contains(t, u.Path, "/demo/image/upload/e_gen_remove:prompt_watch/")
	assert.Contains(t, u.Path, "folder/abc123")

	_, err = c.URLFor("abc123", Transform{Effect: EffectGenerativeRemove, Prompt: "watch chair"})
	assert.ErrorIs(t, err, ErrInvalidTransform)

	_, err = c.URLFor("", Transform{Effect: EffectBackgroundRemoval})
	assert.Error(t, err)
}

func TestTransformationString(t *testing.T) {
	assert.Equal(t, "e_background_removal", transformationString(Transform{Effect: EffectBackgroundRemoval}))
	assert.Equal(t, "e_gen_remove:prompt_lamp", transformationString(Transform{Effect: EffectGenerativeRemove, Prompt: "lamp"}))
}

func TestNewCloudinary_MissingCredentials(t *testing.T) {
	_, err := NewCloudinary(CloudinaryConfig{CloudName: "demo"}, http.DefaultClient)
	assert.Error(t, err)
}
