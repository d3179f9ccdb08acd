package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"socialrelay/internal/model"
	"socialrelay/internal/upload"
)

type linkedInPostRequest struct {
	AccessToken string `json:"access_token" form:"access_token"`
	LinkedInID  string `json:"linkedin_id" form:"linkedin_id"`
	Content     string `json:"content" form:"content"`
}

func (r linkedInPostRequest) complete() bool {
	return r.AccessToken != "" && r.LinkedInID != "" && r.Content != ""
}

// getMe proxies the LinkedIn userinfo document for the bearer token of the caller.
func (s *Server) getMe(c echo.Context) error {
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	_, token, ok := strings.Cut(h, "Bearer ")
	if !ok || token == "" {
		return model.ErrBearerMissing
	}
	info, err := s.linkedin.UserInfo(c.Request().Context(), token)
	if err != nil {
		return err
	}
	return c.JSONBlob(http.StatusOK, info)
}

func (s *Server) linkedInPost(c echo.Context) error {
	var req linkedInPostRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if !req.complete() {
		return model.ErrMissingParams
	}
	out, err := s.linkedin.CreatePost(c.Request().Context(), req.AccessToken, req.LinkedInID, req.Content)
	if err != nil {
		return err
	}
	return c.JSONBlob(http.StatusOK, out)
}

// linkedInUpload posts text, going through asset registration and upload
// first when the form carries an image in "file".
func (s *Server) linkedInUpload(c echo.Context) error {
	req := linkedInPostRequest{
		AccessToken: c.FormValue("access_token"),
		LinkedInID:  c.FormValue("linkedin_id"),
		Content:     c.FormValue("content"),
	}
	if !req.complete() {
		return model.ErrMissingParams
	}
	path, err := s.saveUpload(c, "file")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if path == "" {
		out, err := s.linkedin.CreatePost(ctx, req.AccessToken, req.LinkedInID, req.Content)
		if err != nil {
			return err
		}
		return c.JSONBlob(http.StatusOK, out)
	}
	defer s.removeUpload(path)

	reg, err := s.linkedin.RegisterImage(ctx, req.AccessToken, req.LinkedInID)
	if err != nil {
		return err
	}
	if err := s.linkedin.UploadImage(ctx, req.AccessToken, reg.UploadURL, path); err != nil {
		return err
	}
	out, err := s.linkedin.CreateImagePost(ctx, req.AccessToken, req.LinkedInID, req.Content, reg.Asset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

// saveUpload stores the optional file in field and returns its path, or "" when
// the request has no such part.
func (s *Server) saveUpload(c echo.Context, field string) (string, error) {
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if fh.Filename == "" {
		return "", model.ErrNoSelectedFile
	}
	return upload.Save(s.cfg.Upload.Dir, fh)
}

func (s *Server) removeUpload(path string) {
	if err := upload.Remove(path); err != nil {
		s.logger.Warn("upload_cleanup_failed", slog.String("path", path), slog.String("error", err.Error()))
	}
}
