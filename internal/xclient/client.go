package xclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dghubble/oauth1"

	"socialrelay/internal/httpx"
	"socialrelay/internal/model"
)

// maxUserLookup is the X API limit of ids per users lookup.
const maxUserLookup = 100

// Options configures an HTTPClient.
type Options struct {
	APIBaseURL     string
	UploadBaseURL  string
	ConsumerKey    string
	ConsumerSecret string
	CallbackURL    string
	BearerToken    string
	HTTP           httpx.Options
}

// HTTPClient talks to X API v2 (user and app context), the v1.1 media upload
// endpoint and the OAuth 1.0a token endpoints.
type HTTPClient struct {
	baseURL     string
	uploadURL   string
	bearerToken string
	oauth       *oauth1.Config
	api         *httpx.Client
}

func NewHTTPClient(opts Options) *HTTPClient {
	base := opts.APIBaseURL
	if base == "" {
		base = "https://api.twitter.com"
	}
	upload := opts.UploadBaseURL
	if upload == "" {
		upload = "https://upload.twitter.com"
	}
	base = strings.TrimRight(base, "/")
	return &HTTPClient{
		baseURL:     base,
		uploadURL:   strings.TrimRight(upload, "/"),
		bearerToken: opts.BearerToken,
		oauth:       newOAuthConfig(base, opts.ConsumerKey, opts.ConsumerSecret, opts.CallbackURL),
		api:         httpx.New("twitter", opts.HTTP),
	}
}

type rawUser struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Username        string `json:"username"`
	ProfileImageURL string `json:"profile_image_url"`
	Verified        bool   `json:"verified"`
}

func (u rawUser) model() model.User {
	return model.User{
		ID:              u.ID,
		Username:        u.Username,
		Name:            u.Name,
		ProfileImageURL: u.ProfileImageURL,
		Verified:        u.Verified,
	}
}

// GetMe returns the account behind creds.
func (c *HTTPClient) GetMe(ctx context.Context, creds model.Credentials) (model.User, error) {
	u := c.baseURL + "/2/users/me?user.fields=profile_image_url,verified"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return model.User{}, err
	}
	var raw struct {
		Data rawUser `json:"data"`
	}
	if err := c.user(ctx, creds).DoJSON(ctx, req, &raw); err != nil {
		return model.User{}, fmt.Errorf("get me: %w", err)
	}
	return raw.Data.model(), nil
}

// GetHomeTimeline returns the reverse-chronological home timeline of the
// authenticated user, without replies and retweets.
func (c *HTTPClient) GetHomeTimeline(ctx context.Context, creds model.Credentials) ([]model.Tweet, error) {
	userID, ok := userIDFromToken(creds.AccessToken)
	if !ok {
		me, err := c.GetMe(ctx, creds)
		if err != nil {
			return nil, err
		}
		userID = me.ID
	}
	u := fmt.Sprintf("%s/2/users/%s/timelines/reverse_chronological?exclude=replies,retweets&tweet.fields=created_at,author_id",
		c.baseURL, url.PathEscape(userID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	var raw struct {
		Data []model.Tweet `json:"data"`
	}
	if err := c.user(ctx, creds).DoJSON(ctx, req, &raw); err != nil {
		return nil, fmt.Errorf("get home timeline: %w", err)
	}
	if raw.Data == nil {
		return []model.Tweet{}, nil
	}
	return raw.Data, nil
}

// GetUsersByIDs fetches user objects for ids with app-context lookups of at
// most 100 ids each, in the order the batches were sent.
func (c *HTTPClient) GetUsersByIDs(ctx context.Context, ids []string) ([]model.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	out := make([]model.User, 0, len(ids))
	for start := 0; start < len(ids); start += maxUserLookup {
		batch := ids[start:min(start+maxUserLookup, len(ids))]
		users, err := c.lookupUsers(ctx, batch)
		if err != nil {
			return nil, err
		}
		out = append(out, users...)
	}
	return out, nil
}

func (c *HTTPClient) lookupUsers(ctx context.Context, ids []string) ([]model.User, error) {
	u := fmt.Sprintf("%s/2/users?ids=%s&user.fields=profile_image_url,verified", c.baseURL, url.QueryEscape(strings.Join(ids, ",")))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	if c.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	}
	req.Header.Set("Accept", "application/json")
	var raw struct {
		Data []rawUser `json:"data"`
	}
	if err := c.api.DoJSON(ctx, req, &raw); err != nil {
		return nil, fmt.Errorf("get users: %w", err)
	}
	out := make([]model.User, 0, len(raw.Data))
	for _, d := range raw.Data {
		out = append(out, d.model())
	}
	return out, nil
}

// TweetRequest is the body of a new tweet.
type TweetRequest struct {
	Text     string
	ReplyTo  string
	MediaIDs []string
}

// CreateTweet posts a tweet, optionally as a reply and with uploaded media.
func (c *HTTPClient) CreateTweet(ctx context.Context, creds model.Credentials, tr TweetRequest) (model.PostedTweet, error) {
	body := map[string]any{"text": tr.Text}
	if tr.ReplyTo != "" {
		body["reply"] = map[string]string{"in_reply_to_tweet_id": tr.ReplyTo}
	}
	if len(tr.MediaIDs) > 0 {
		body["media"] = map[string][]string{"media_ids": tr.MediaIDs}
	}
	b, err := json.Marshal(body)
	if err != nil {
		return model.PostedTweet{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/2/tweets", bytes.NewReader(b))
	if err != nil {
		return model.PostedTweet{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	var raw struct {
		Data model.PostedTweet `json:"data"`
	}
	if err := c.user(ctx, creds).DoJSON(ctx, req, &raw); err != nil {
		return model.PostedTweet{}, fmt.Errorf("create tweet: %w", err)
	}
	return raw.Data, nil
}

// UploadMedia uploads the image at path through the v1.1 simple upload and
// returns its media id.
func (c *HTTPClient) UploadMedia(ctx context.Context, creds model.Credentials, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("media", filepath.Base(path))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL+"/1.1/media/upload.json", bytes.NewReader(buf.Bytes()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	var raw struct {
		MediaIDString string `json:"media_id_string"`
		MediaID       int64  `json:"media_id"`
	}
	if err := c.user(ctx, creds).DoJSON(ctx, req, &raw); err != nil {
		return "", fmt.Errorf("upload media: %w", err)
	}
	if raw.MediaIDString == "" && raw.MediaID != 0 {
		return strconv.FormatInt(raw.MediaID, 10), nil
	}
	return raw.MediaIDString, nil
}

// userIDFromToken reads the numeric account id X prefixes user access tokens with.
func userIDFromToken(token string) (string, bool) {
	id, _, found := strings.Cut(token, "-")
	if !found || id == "" {
		return "", false
	}
	if _, err := strconv.ParseUint(id, 10, 64); err != nil {
		return "", false
	}
	return id, true
}
