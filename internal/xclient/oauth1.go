package xclient

import (
	"context"

	"github.com/dghubble/oauth1"

	"socialrelay/internal/httpx"
	"socialrelay/internal/model"
)

func newOAuthConfig(base, consumerKey, consumerSecret, callbackURL string) *oauth1.Config {
	if callbackURL == "" {
		callbackURL = "oob"
	}
	return &oauth1.Config{
		ConsumerKey:    consumerKey,
		ConsumerSecret: consumerSecret,
		CallbackURL:    callbackURL,
		Endpoint: oauth1.Endpoint{
			RequestTokenURL: base + "/oauth/request_token",
			AuthorizeURL:    base + "/oauth/authorize",
			AccessTokenURL:  base + "/oauth/access_token",
		},
	}
}

// user returns the shared client with every attempt signed for creds.
// Query and form parameters are signed; JSON and multipart bodies are not.
func (c *HTTPClient) user(ctx context.Context, creds model.Credentials) *httpx.Client {
	hc := c.oauth.Client(ctx, oauth1.NewToken(creds.AccessToken, creds.AccessSecret))
	return c.api.WithTransport(hc.Transport)
}
