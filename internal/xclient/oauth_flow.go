package xclient

import (
	"context"
	"fmt"
	"net/http"

	"socialrelay/internal/metrics"
	"socialrelay/internal/model"
)

// RequestToken is the temporary credential of the first OAuth leg.
type RequestToken struct {
	Token        string `json:"token"`
	Secret       string `json:"secret"`
	AuthorizeURL string `json:"-"`
}

// AccessToken is the result of the last OAuth leg.
type AccessToken struct {
	Token  string
	Secret string
}

// Credentials returns the pair used to sign user-context requests.
func (a AccessToken) Credentials() model.Credentials {
	return model.Credentials{AccessToken: a.Token, AccessSecret: a.Secret}
}

// RequestToken starts the three-legged flow and returns the URL the user must visit.
func (c *HTTPClient) RequestToken(ctx context.Context) (RequestToken, error) {
	token, secret, err := c.oauth.RequestToken()
	if err = c.observeExchange(ctx, err); err != nil {
		return RequestToken{}, fmt.Errorf("request token: %w", err)
	}
	authURL, err := c.oauth.AuthorizationURL(token)
	if err != nil {
		return RequestToken{}, fmt.Errorf("authorize url: %w", err)
	}
	return RequestToken{Token: token, Secret: secret, AuthorizeURL: authURL.String()}, nil
}

// AccessToken exchanges an authorized request token and its verifier for user credentials.
func (c *HTTPClient) AccessToken(ctx context.Context, rt RequestToken, verifier string) (AccessToken, error) {
	token, secret, err := c.oauth.AccessToken(rt.Token, rt.Secret, verifier)
	if err = c.observeExchange(ctx, err); err != nil {
		return AccessToken{}, fmt.Errorf("access token: %w", err)
	}
	return AccessToken{Token: token, Secret: secret}, nil
}

// observeExchange records a token call and reports failures as a bad gateway,
// since the token endpoints do not expose their status.
func (c *HTTPClient) observeExchange(ctx context.Context, err error) error {
	if err != nil {
		err = &model.UpstreamError{Service: c.api.Service(), Status: http.StatusBadGateway, Body: err.Error()}
	}
	metrics.ObserveUpstream(c.api.Service(), err)
	if err != nil {
		c.api.Logger().WarnContext(ctx, "oauth_exchange_failed", "service", c.api.Service(), "error", err.Error())
	}
	return err
}
