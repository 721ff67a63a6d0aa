package carrier

import (
	"net/http"
	"strings"
	"time"

	"github.com/nkiryanov/blogauth/internal/models"
)

const (
	defaultAccessCookieName  = "accessToken"
	defaultRefreshCookieName = "refreshToken"
	defaultAuthScheme        = "Bearer"
)

type Config struct {
	// Cookie names. Defaults are used if empty
	AccessCookieName  string
	RefreshCookieName string

	// Cookie max age
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// Send cookies over https only
	Secure bool

	// http.SameSiteLaxMode if not set
	SameSite http.SameSite
}

// Binder moves tokens between http messages and the service
// It does no verification at all
type Binder struct {
	cfg Config
}

func New(cfg Config) *Binder {
	if cfg.AccessCookieName == "" {
		cfg.AccessCookieName = defaultAccessCookieName
	}
	if cfg.RefreshCookieName == "" {
		cfg.RefreshCookieName = defaultRefreshCookieName
	}
	if cfg.SameSite == 0 {
		cfg.SameSite = http.SameSiteLaxMode
	}

	return &Binder{cfg: cfg}
}

// AccessToken returns access token from request
// Authorization header wins over cookie
func (b *Binder) AccessToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, found := strings.Cut(header, " ")
		if found && strings.EqualFold(scheme, defaultAuthScheme) {
			return strings.TrimSpace(token)
		}
	}

	return b.cookieValue(r, b.cfg.AccessCookieName)
}

// RefreshToken returns refresh token from request cookie
func (b *Binder) RefreshToken(r *http.Request) string {
	return b.cookieValue(r, b.cfg.RefreshCookieName)
}

func (b *Binder) cookieValue(r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// Bind writes access cookie and, if the pair has one, refresh cookie
func (b *Binder) Bind(w http.ResponseWriter, pair models.TokenPair) {
	if pair.Access.Value != "" {
		http.SetCookie(w, b.cookie(b.cfg.AccessCookieName, pair.Access.Value, b.cfg.AccessTTL))
	}
	if pair.Refresh.Value != "" {
		http.SetCookie(w, b.cookie(b.cfg.RefreshCookieName, pair.Refresh.Value, b.cfg.RefreshTTL))
	}
}

// Clear asks the client to drop both cookies
func (b *Binder) Clear(w http.ResponseWriter) {
	for _, name := range []string{b.cfg.AccessCookieName, b.cfg.RefreshCookieName} {
		c := b.cookie(name, "", 0)
		c.MaxAge = -1 // Max-Age=0 on the wire
		http.SetCookie(w, c)
	}
}

func (b *Binder) cookie(name string, value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   b.cfg.Secure,
		SameSite: b.cfg.SameSite,
	}
}
