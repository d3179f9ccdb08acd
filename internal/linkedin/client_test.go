package linkedin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialrelay/internal/httpx"
	"socialrelay/internal/logging"
	"socialrelay/internal/model"
)

func newTestClient(t *testing.T, h http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return New(Options{APIBaseURL: ts.URL, HTTP: httpx.Options{Logger: logging.Discard()}}), ts
}

func checkHeaders(t *testing.T, r *http.Request) {
	t.Helper()
	assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
	assert.Equal(t, "2.0.0", r.Header.Get("X-Restli-Protocol-Version"))
}

func TestUserInfoPassesThrough(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		checkHeaders(t, r)
		assert.Equal(t, "/v2/userinfo", r.URL.Path)
		_, _ = w.Write([]byte(`{"sub":"abc","name":"Jane"}`))
	}))
	raw, err := c.UserInfo(context.Background(), "tok")
	require.NoError(t, err)
	assert.JSONEq(t, `{"sub":"abc","name":"Jane"}`, string(raw))
}

func TestUserInfoFailureKeepsStatus(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"expired"}`))
	}))
	_, err := c.UserInfo(context.Background(), "tok")
	var ue *model.UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, http.StatusUnauthorized, ue.Status)
	assert.Equal(t, "Failed to fetch user info", ue.Error())
}

func TestCreatePostTextOnly(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		checkHeaders(t, r)
		assert.Equal(t, "/v2/ugcPosts", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "urn:li:person:p1", body["author"])
		assert.Equal(t, "PUBLISHED", body["lifecycleState"])
		share := body["specificContent"].(map[string]any)["com.linkedin.ugc.ShareContent"].(map[string]any)
		assert.Equal(t, "NONE", share["shareMediaCategory"])
		assert.NotContains(t, share, "media")
		assert.Equal(t, map[string]any{"text": "hello"}, share["shareCommentary"])
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"urn:li:share:1"}`))
	}))
	out, err := c.CreatePost(context.Background(), "tok", "p1", "hello")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"urn:li:share:1"}`, string(out))
}

func TestCreatePostRequiresCreated(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":200}`))
	}))
	_, err := c.CreatePost(context.Background(), "tok", "p1", "hello")
	var ue *model.UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, http.StatusOK, ue.Status)
}

func TestImagePostFlow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cat.jpg")
	require.NoError(t, os.WriteFile(path, []byte("jpegbytes"), 0o600))

	var ts *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/assets", func(w http.ResponseWriter, r *http.Request) {
		checkHeaders(t, r)
		assert.Equal(t, "registerUpload", r.URL.Query().Get("action"))
		var body registerUploadRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []string{imageRecipe}, body.Request.Recipes)
		assert.Equal(t, "urn:li:person:p1", body.Request.Owner)
		_, _ = w.Write([]byte(`{"value":{"uploadMechanism":{"com.linkedin.digitalmedia.uploading.MediaUploadHttpRequest":{"uploadUrl":"` +
			ts.URL + `/upload-bytes"}},"asset":"urn:li:digitalmediaAsset:9"}}`))
	})
	mux.HandleFunc("/upload-bytes", func(w http.ResponseWriter, r *http.Request) {
		checkHeaders(t, r)
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, "cat.jpg", hdr.Filename)
		assert.Equal(t, "image/jpeg", hdr.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("/v2/ugcPosts", func(w http.ResponseWriter, r *http.Request) {
		var body ugcPost
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		share := body.SpecificContent[shareContentKey]
		assert.Equal(t, "IMAGE", share.ShareMediaCategory)
		require.Len(t, share.Media, 1)
		assert.Equal(t, "urn:li:digitalmediaAsset:9", share.Media[0].Media)
		assert.Equal(t, "Center stage!", share.Media[0].Description.Text)
		assert.Equal(t, "look", share.Media[0].Title.Text)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"urn:li:share:77"}`))
	})
	var c *Client
	c, ts = newTestClient(t, mux)
	ctx := context.Background()

	up, err := c.RegisterImage(ctx, "tok", "p1")
	require.NoError(t, err)
	assert.Equal(t, "urn:li:digitalmediaAsset:9", up.Asset)

	require.NoError(t, c.UploadImage(ctx, "tok", up.UploadURL, path))

	out, err := c.CreateImagePost(ctx, "tok", "p1", "look", up.Asset)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"url": "https://www.linkedin.com/feed/update/urn:li:share:77"}, out)
}

func TestRegisterImageRejectsEmptyResponse(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"value":{}}`))
	}))
	_, err := c.RegisterImage(context.Background(), "tok", "p1")
	assert.Error(t, err)
}
