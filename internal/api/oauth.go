package api

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"

	"socialrelay/internal/xclient"
)

const accessDenied = "Access denied: reason=missing token or verifier."

// oauthStart begins the three-legged flow and sends the browser to X.
func (s *Server) oauthStart(c echo.Context) error {
	ctx := c.Request().Context()
	rt, err := s.twitter.RequestToken(ctx)
	if err != nil {
		return err
	}
	if err := s.sessions.SetRequestToken(ctx, c.Response(), c.Request(), rt.Token, rt.Secret); err != nil {
		return err
	}
	return c.Redirect(http.StatusFound, rt.AuthorizeURL)
}

// oauthCallback finishes the flow and hands the credentials to the front end.
func (s *Server) oauthCallback(c echo.Context) error {
	ctx := c.Request().Context()
	token, secret, ok, err := s.sessions.PopRequestToken(ctx, c.Response(), c.Request())
	if err != nil {
		return err
	}
	verifier := c.QueryParam("oauth_verifier")
	if !ok || verifier == "" {
		return c.String(http.StatusOK, accessDenied)
	}

	at, err := s.twitter.AccessToken(ctx, xclient.RequestToken{Token: token, Secret: secret}, verifier)
	if err != nil {
		return err
	}
	creds := at.Credentials()
	me, err := s.twitter.GetMe(ctx, creds)
	if err != nil {
		return err
	}
	if err := s.sessions.SetAccess(ctx, c.Response(), c.Request(), creds); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "twitter_login", slog.String("username", me.Username))

	q := url.Values{}
	q.Set("access_token", creds.AccessToken)
	q.Set("access_secret", creds.AccessSecret)
	q.Set("username", me.Username)
	q.Set("name", me.Name)
	q.Set("profile_pic", me.ProfileImageURL)
	target := strings.TrimRight(s.cfg.Server.FrontendURL, "/") + "/save?" + q.Encode()
	return c.Redirect(http.StatusFound, target)
}

// oauthLogout drops the server-side session and expires the cookie.
func (s *Server) oauthLogout(c echo.Context) error {
	if err := s.sessions.Destroy(c.Request().Context(), c.Response(), c.Request()); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}
