package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"socialrelay/internal/ingest"
	"socialrelay/internal/model"
	"socialrelay/internal/util"
	"socialrelay/internal/xclient"
)

// credentials prefers an explicit token pair and falls back to the session.
// missing is returned when neither yields a usable pair.
func (s *Server) credentials(c echo.Context, token, secret string, missing error) (model.Credentials, error) {
	creds := model.Credentials{AccessToken: token, AccessSecret: secret}
	if creds.Valid() {
		return creds, nil
	}
	if s.sessions != nil {
		creds, err := s.sessions.Credentials(c.Request().Context(), c.Request())
		if err == nil {
			return creds, nil
		}
		if !errors.Is(err, model.ErrNotAuthenticated) {
			return model.Credentials{}, err
		}
	}
	return model.Credentials{}, missing
}

func (s *Server) queryCredentials(c echo.Context, missing error) (model.Credentials, error) {
	return s.credentials(c, c.QueryParam("access_token"), c.QueryParam("access_secret"), missing)
}

func (s *Server) formCredentials(c echo.Context, missing error) (model.Credentials, error) {
	return s.credentials(c, c.FormValue("access_token"), c.FormValue("access_secret"), missing)
}

func (s *Server) twitterMe(c echo.Context) error {
	creds, err := s.queryCredentials(c, model.ErrMissingParams)
	if err != nil {
		return err
	}
	me, err := s.twitter.GetMe(c.Request().Context(), creds)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, model.Profile{ProfilePic: me.ProfileImageURL, Username: me.Username, Name: me.Name})
}

func (s *Server) twitterUsers(c echo.Context) error {
	ids := util.SplitAndTrim(c.QueryParam("ids"))
	if len(ids) == 0 {
		ids = s.cfg.Twitter.DemoUserIDs
	}
	if len(ids) == 0 {
		return model.ErrMissingParams
	}
	users, err := s.twitter.GetUsersByIDs(c.Request().Context(), ids)
	if err != nil {
		return err
	}
	if users == nil {
		users = []model.User{}
	}
	return c.JSON(http.StatusOK, users)
}

func (s *Server) twitterTimeline(c echo.Context) error {
	creds, err := s.queryCredentials(c, model.ErrNotAuthenticated)
	if err != nil {
		return err
	}
	tweets, err := s.twitter.GetHomeTimeline(c.Request().Context(), creds)
	if err != nil {
		return err
	}
	if tweets == nil {
		tweets = []model.Tweet{}
	}
	return c.JSON(http.StatusOK, tweets)
}

// twitterPost tweets form "text", with the optional "image" uploaded first.
func (s *Server) twitterPost(c echo.Context) error {
	text := c.FormValue("text")
	if text == "" {
		return model.ErrMissingText
	}
	path, err := s.saveUpload(c, "image")
	if err != nil {
		return err
	}
	if path != "" {
		defer s.removeUpload(path)
	}
	creds, err := s.formCredentials(c, model.ErrNotAuthenticated)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	tr := xclient.TweetRequest{Text: text}
	if path != "" {
		mediaID, err := s.twitter.UploadMedia(ctx, creds, path)
		if err != nil {
			return err
		}
		tr.MediaIDs = []string{mediaID}
	}
	posted, err := s.twitter.CreateTweet(ctx, creds, tr)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, posted)
}

func (s *Server) twitterReply(c echo.Context) error {
	tweetID := c.FormValue("tweet_id")
	text := c.FormValue("reply")
	if text == "" {
		text = c.FormValue("text")
	}
	if tweetID == "" || text == "" {
		return model.ErrMissingParams
	}
	creds, err := s.formCredentials(c, model.ErrNotAuthenticated)
	if err != nil {
		return err
	}
	posted, err := s.twitter.CreateTweet(c.Request().Context(), creds, xclient.TweetRequest{Text: text, ReplyTo: tweetID})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, posted)
}

type replyAllRequest struct {
	Replies      []model.ReplyDraft `json:"replies"`
	AccessToken  string             `json:"access_token"`
	AccessSecret string             `json:"access_secret"`
}

// twitterReplyAll posts the drafts one after another and stops at the first failure.
func (s *Server) twitterReplyAll(c echo.Context) error {
	var req replyAllRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if len(req.Replies) == 0 {
		return model.ErrMissingReplies
	}
	for _, r := range req.Replies {
		if r.TweetID == "" || r.Reply == "" {
			return model.ErrMissingParams
		}
	}
	creds, err := s.credentials(c, req.AccessToken, req.AccessSecret, model.ErrNotAuthenticated)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	for i, r := range req.Replies {
		if _, err := s.twitter.CreateTweet(ctx, creds, xclient.TweetRequest{Text: r.Reply, ReplyTo: r.TweetID}); err != nil {
			s.logger.WarnContext(ctx, "reply_all_stopped",
				slog.Int("posted", i),
				slog.Int("total", len(req.Replies)),
				slog.String("tweet_id", r.TweetID))
			return fmt.Errorf("reply %d of %d: %w", i+1, len(req.Replies), err)
		}
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

// twitterGPT drafts a reply for every tweet of the caller's home timeline.
func (s *Server) twitterGPT(c echo.Context) error {
	if s.replies == nil {
		return model.ErrNoCompleter
	}
	creds, err := s.queryCredentials(c, model.ErrMissingParams)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	items, err := ingest.HomeTimeline(ctx, s.twitter, creds, s.logger)
	if err != nil {
		return err
	}
	replies, err := s.replies.GenerateReplies(ctx, items)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, replies)
}
