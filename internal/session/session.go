// Package session tracks the Twitter OAuth state of a browser between requests.
// The browser holds a signed cookie with the session id; the data stays server side.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"socialrelay/internal/model"
)

// CookieName is the cookie carrying the session token.
const CookieName = "socialrelay_session"

const issuer = "socialrelay"

// Store persists session blobs. Get returns model.ErrSessionNotFound for unknown or expired ids.
type Store interface {
	Get(ctx context.Context, id string) ([]byte, error)
	Put(ctx context.Context, id string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

// Data is what a session remembers.
type Data struct {
	RequestToken  string `json:"request_token,omitempty"`
	RequestSecret string `json:"request_secret,omitempty"`
	AccessToken   string `json:"access_token,omitempty"`
	AccessSecret  string `json:"access_secret,omitempty"`
}

// Session is one loaded session.
type Session struct {
	ID   string
	Data Data
}

// Manager issues session cookies and loads their data from a Store.
type Manager struct {
	store  Store
	secret []byte
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

func NewManager(store Store, secret string, ttl time.Duration, secure bool) *Manager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Manager{store: store, secret: []byte(secret), ttl: ttl, secure: secure, now: time.Now}
}

// Load returns the session named by r's cookie, or a fresh empty one when the
// cookie is missing, invalid or points at expired data.
func (m *Manager) Load(ctx context.Context, r *http.Request) (*Session, error) {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return m.fresh(), nil
	}
	id, err := m.parse(c.Value)
	if err != nil {
		return m.fresh(), nil
	}
	b, err := m.store.Get(ctx, id)
	if errors.Is(err, model.ErrSessionNotFound) {
		return m.fresh(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	s := &Session{ID: id}
	if err := json.Unmarshal(b, &s.Data); err != nil {
		return m.fresh(), nil
	}
	return s, nil
}

// Save stores s and (re)issues its cookie on w.
func (m *Manager) Save(ctx context.Context, w http.ResponseWriter, s *Session) error {
	b, err := json.Marshal(s.Data)
	if err != nil {
		return err
	}
	if err := m.store.Put(ctx, s.ID, b, m.ttl); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	tok, err := m.sign(s.ID)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    tok,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// SetRequestToken remembers the request token of an OAuth flow in progress.
func (m *Manager) SetRequestToken(ctx context.Context, w http.ResponseWriter, r *http.Request, token, secret string) error {
	s, err := m.Load(ctx, r)
	if err != nil {
		return err
	}
	s.Data.RequestToken, s.Data.RequestSecret = token, secret
	return m.Save(ctx, w, s)
}

// PopRequestToken returns the pending request token and clears it. ok is false
// when no flow is pending.
func (m *Manager) PopRequestToken(ctx context.Context, w http.ResponseWriter, r *http.Request) (token, secret string, ok bool, err error) {
	s, err := m.Load(ctx, r)
	if err != nil {
		return "", "", false, err
	}
	token, secret = s.Data.RequestToken, s.Data.RequestSecret
	if token == "" {
		return "", "", false, nil
	}
	s.Data.RequestToken, s.Data.RequestSecret = "", ""
	if err := m.Save(ctx, w, s); err != nil {
		return "", "", false, err
	}
	return token, secret, true, nil
}

// SetAccess stores the user credentials obtained at the end of the OAuth flow.
func (m *Manager) SetAccess(ctx context.Context, w http.ResponseWriter, r *http.Request, creds model.Credentials) error {
	s, err := m.Load(ctx, r)
	if err != nil {
		return err
	}
	s.Data.AccessToken, s.Data.AccessSecret = creds.AccessToken, creds.AccessSecret
	return m.Save(ctx, w, s)
}

// Credentials returns the access credentials stored for r, or model.ErrNotAuthenticated.
func (m *Manager) Credentials(ctx context.Context, r *http.Request) (model.Credentials, error) {
	s, err := m.Load(ctx, r)
	if err != nil {
		return model.Credentials{}, err
	}
	creds := model.Credentials{AccessToken: s.Data.AccessToken, AccessSecret: s.Data.AccessSecret}
	if !creds.Valid() {
		return model.Credentials{}, model.ErrNotAuthenticated
	}
	return creds, nil
}

// Destroy forgets the session and expires its cookie.
func (m *Manager) Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if c, err := r.Cookie(CookieName); err == nil {
		if id, err := m.parse(c.Value); err == nil {
			if err := m.store.Delete(ctx, id); err != nil {
				return err
			}
		}
	}
	http.SetCookie(w, &http.Cookie{Name: CookieName, Value: "", Path: "/", MaxAge: -1, HttpOnly: true, Secure: m.secure})
	return nil
}

func (m *Manager) fresh() *Session { return &Session{ID: uuid.NewString()} }

func (m *Manager) sign(id string) (string, error) {
	now := m.now()
	claims := jwt.RegisteredClaims{
		ID:        id,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

func (m *Manager) parse(tok string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(tok, &claims, func(*jwt.Token) (any, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return "", err
	}
	if _, err := uuid.Parse(claims.ID); err != nil {
		return "", fmt.Errorf("session id: %w", err)
	}
	return claims.ID, nil
}
