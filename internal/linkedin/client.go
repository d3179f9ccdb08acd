// Package linkedin posts to the LinkedIn UGC API on behalf of a member.
package linkedin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"

	"socialrelay/internal/httpx"
	"socialrelay/internal/model"
)

const (
	restliHeader  = "X-Restli-Protocol-Version"
	restliVersion = "2.0.0"

	imageRecipe      = "urn:li:digitalmediaRecipe:feedshare-image"
	uploadMechanism  = "com.linkedin.digitalmedia.uploading.MediaUploadHttpRequest"
	shareContentKey  = "com.linkedin.ugc.ShareContent"
	visibilityKey    = "com.linkedin.ugc.MemberNetworkVisibility"
	feedUpdatePrefix = "https://www.linkedin.com/feed/update/"
)

// Options configures a Client.
type Options struct {
	APIBaseURL string
	HTTP       httpx.Options
}

// Client is a thin LinkedIn v2 client. Every call carries the member's bearer token.
type Client struct {
	baseURL string
	api     *httpx.Client
}

func New(opts Options) *Client {
	base := opts.APIBaseURL
	if base == "" {
		base = "https://api.linkedin.com"
	}
	return &Client{baseURL: strings.TrimRight(base, "/"), api: httpx.New("linkedin", opts.HTTP)}
}

// ImageUpload is the result of registering an image asset.
type ImageUpload struct {
	UploadURL string `json:"upload_url"`
	Asset     string `json:"asset"`
}

// UserInfo returns the OpenID userinfo document untouched.
func (c *Client) UserInfo(ctx context.Context, token string) (json.RawMessage, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.baseURL+"/v2/userinfo", token, nil)
	if err != nil {
		return nil, err
	}
	var raw json.RawMessage
	if err := c.api.DoJSON(ctx, req, &raw); err != nil {
		var ue *model.UpstreamError
		if errors.As(err, &ue) {
			ue.Public = "Failed to fetch user info"
		}
		return nil, err
	}
	return raw, nil
}

// CreatePost publishes a text-only share and returns LinkedIn's response body.
func (c *Client) CreatePost(ctx context.Context, token, personID, text string) (json.RawMessage, error) {
	body, err := c.createUGCPost(ctx, token, newShare(personID, text, nil))
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return body, nil
}

// RegisterImage registers a feed-share image for personID and returns where to upload its bytes.
func (c *Client) RegisterImage(ctx context.Context, token, personID string) (ImageUpload, error) {
	payload := registerUploadRequest{}
	payload.Request.Recipes = []string{imageRecipe}
	payload.Request.Owner = personURN(personID)
	payload.Request.ServiceRelationships = []serviceRelationship{{
		RelationshipType: "OWNER",
		Identifier:       "urn:li:userGeneratedContent",
	}}
	req, err := c.newRequest(ctx, http.MethodPost, c.baseURL+"/v2/assets?action=registerUpload", token, payload)
	if err != nil {
		return ImageUpload{}, err
	}
	var raw struct {
		Value struct {
			UploadMechanism map[string]struct {
				UploadURL string `json:"uploadUrl"`
			} `json:"uploadMechanism"`
			Asset string `json:"asset"`
		} `json:"value"`
	}
	if err := c.api.DoJSON(ctx, req, &raw); err != nil {
		return ImageUpload{}, fmt.Errorf("register image: %w", err)
	}
	up := ImageUpload{
		UploadURL: raw.Value.UploadMechanism[uploadMechanism].UploadURL,
		Asset:     raw.Value.Asset,
	}
	if up.UploadURL == "" || up.Asset == "" {
		return ImageUpload{}, errors.New("register image: response missing upload url or asset")
	}
	return up, nil
}

// UploadImage sends the file at path to an upload URL obtained from RegisterImage.
func (c *Client) UploadImage(ctx context.Context, token, uploadURL, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(path)))
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		h.Set("Content-Type", ct)
	} else {
		h.Set("Content-Type", "application/octet-stream")
	}
	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, f); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, bytes.NewReader(buf.Bytes()))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set(restliHeader, restliVersion)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if err := c.api.DoJSON(ctx, req, nil); err != nil {
		return fmt.Errorf("upload image: %w", err)
	}
	return nil
}

// CreateImagePost publishes a share with a registered image and returns its public feed URL.
func (c *Client) CreateImagePost(ctx context.Context, token, personID, text, asset string) (map[string]string, error) {
	media := []shareMedia{{
		Status:      "READY",
		Description: textValue{Text: "Center stage!"},
		Media:       asset,
		Title:       textValue{Text: text},
	}}
	body, err := c.createUGCPost(ctx, token, newShare(personID, text, media))
	if err != nil {
		return nil, fmt.Errorf("create image post: %w", err)
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &created); err != nil {
		return nil, fmt.Errorf("create image post: decode: %w", err)
	}
	return map[string]string{"url": feedUpdatePrefix + created.ID}, nil
}

func (c *Client) createUGCPost(ctx context.Context, token string, post ugcPost) (json.RawMessage, error) {
	req, err := c.newRequest(ctx, http.MethodPost, c.baseURL+"/v2/ugcPosts", token, post)
	if err != nil {
		return nil, err
	}
	resp, err := c.api.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusCreated {
		return nil, &model.UpstreamError{Service: c.api.Service(), Status: resp.StatusCode, Body: string(b)}
	}
	return json.RawMessage(b), nil
}

func (c *Client) newRequest(ctx context.Context, method, u, token string, payload any) (*http.Request, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set(restliHeader, restliVersion)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func personURN(id string) string { return "urn:li:person:" + id }
