// Package api is the HTTP surface of the relay: each route turns an inbound
// request into one or more calls against LinkedIn, X or the completion API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"socialrelay/internal/config"
	"socialrelay/internal/linkedin"
	"socialrelay/internal/metrics"
	"socialrelay/internal/model"
	"socialrelay/internal/session"
	"socialrelay/internal/xclient"
)

// TwitterAPI is the part of the X client the handlers use.
type TwitterAPI interface {
	GetMe(ctx context.Context, creds model.Credentials) (model.User, error)
	GetHomeTimeline(ctx context.Context, creds model.Credentials) ([]model.Tweet, error)
	GetUsersByIDs(ctx context.Context, ids []string) ([]model.User, error)
	CreateTweet(ctx context.Context, creds model.Credentials, tr xclient.TweetRequest) (model.PostedTweet, error)
	UploadMedia(ctx context.Context, creds model.Credentials, path string) (string, error)
	RequestToken(ctx context.Context) (xclient.RequestToken, error)
	AccessToken(ctx context.Context, rt xclient.RequestToken, verifier string) (xclient.AccessToken, error)
}

// LinkedInAPI is the part of the LinkedIn client the handlers use.
type LinkedInAPI interface {
	UserInfo(ctx context.Context, token string) (json.RawMessage, error)
	CreatePost(ctx context.Context, token, personID, text string) (json.RawMessage, error)
	RegisterImage(ctx context.Context, token, personID string) (linkedin.ImageUpload, error)
	UploadImage(ctx context.Context, token, uploadURL, path string) error
	CreateImagePost(ctx context.Context, token, personID, text, asset string) (map[string]string, error)
}

// ReplyGenerator drafts replies for timeline items.
type ReplyGenerator interface {
	GenerateReplies(ctx context.Context, items []model.TimelineItem) ([]model.ReplyResult, error)
}

// Deps are the process-wide clients the server is built from.
type Deps struct {
	Twitter  TwitterAPI
	LinkedIn LinkedInAPI
	Replies  ReplyGenerator
	Sessions *session.Manager
	Logger   *slog.Logger
}

// Server owns the echo instance and the handler dependencies.
type Server struct {
	cfg      config.Config
	twitter  TwitterAPI
	linkedin LinkedInAPI
	replies  ReplyGenerator
	sessions *session.Manager
	logger   *slog.Logger
	echo     *echo.Echo
}

func New(cfg config.Config, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:      cfg,
		twitter:  deps.Twitter,
		linkedin: deps.LinkedIn,
		replies:  deps.Replies,
		sessions: deps.Sessions,
		logger:   logger,
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = ErrorHandler(logger)
	// the per-IP limiter keys on the peer address, not client-supplied headers
	e.IPExtractor = echo.ExtractIPDirect()

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(requestLogger(logger))
	e.Use(observe)
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	if cfg.Upload.MaxBytes > 0 {
		e.Use(middleware.BodyLimit(fmt.Sprintf("%dK", (cfg.Upload.MaxBytes+1023)/1024)))
	}
	if cfg.Server.RateLimit > 0 {
		e.Use(NewRateLimiter(rate.Limit(cfg.Server.RateLimit), cfg.Server.RateBurst).Middleware())
	}

	s.echo = e
	s.routes()
	return s
}

func (s *Server) routes() {
	e := s.echo
	e.GET("/", s.index)
	e.GET("/health", s.health)
	if s.cfg.Server.Metrics {
		e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	}

	e.GET("/getme", s.getMe)
	e.POST("/post", s.linkedInPost)
	e.POST("/upload", s.linkedInUpload)

	tw := e.Group("/twitter")
	tw.GET("/me", s.twitterMe)
	tw.GET("/users", s.twitterUsers)
	tw.GET("/timeline", s.twitterTimeline)
	tw.POST("/post", s.twitterPost)
	tw.POST("/reply", s.twitterReply)
	tw.POST("/replyall", s.twitterReplyAll)
	tw.GET("/gpt", s.twitterGPT)

	e.GET("/oauth/twitter", s.oauthStart)
	e.GET("/oauth/callback/twitter", s.oauthCallback)
	e.POST("/oauth/logout", s.oauthLogout)
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler { return s.echo }

// Start serves on addr until Shutdown; http.ErrServerClosed is not an error.
func (s *Server) Start(addr string) error {
	s.logger.Info("http_server_starting", slog.String("addr", addr))
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) index(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{"data": "Success", "status": http.StatusOK})
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
