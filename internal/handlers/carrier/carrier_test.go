package carrier

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/blogauth/internal/models"
)

func newBinder() *Binder {
	return New(Config{AccessTTL: 900 * time.Second, RefreshTTL: 1_209_600 * time.Second})
}

func findCookie(t *testing.T, cookies []*http.Cookie, name string) *http.Cookie {
	t.Helper()

	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	require.Failf(t, "cookie not found", "cookie %q not set", name)
	return nil
}

func TestBinder_Inbound(t *testing.T) {
	b := newBinder()

	tests := []struct {
		name            string
		header          string
		accessCookie    string
		refreshCookie   string
		expectedAccess  string
		expectedRefresh string
	}{
		{
			name: "nothing",
		},
		{
			name:           "bearer header",
			header:         "Bearer header-token",
			expectedAccess: "header-token",
		},
		{
			name:           "scheme is case insensitive",
			header:         "bearer header-token",
			expectedAccess: "header-token",
		},
		{
			name:           "cookie",
			accessCookie:   "cookie-token",
			expectedAccess: "cookie-token",
		},
		{
			name:           "header wins over cookie",
			header:         "Bearer header-token",
			accessCookie:   "cookie-token",
			expectedAccess: "header-token",
		},
		{
			name:           "other scheme falls back to cookie",
			header:         "Basic dXNlcjpwd2Q=",
			accessCookie:   "cookie-token",
			expectedAccess: "cookie-token",
		},
		{
			name:            "refresh from cookie only",
			header:          "Bearer header-token",
			refreshCookie:   "refresh-token",
			expectedAccess:  "header-token",
			expectedRefresh: "refresh-token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			if tt.accessCookie != "" {
				r.AddCookie(&http.Cookie{Name: "accessToken", Value: tt.accessCookie})
			}
			if tt.refreshCookie != "" {
				r.AddCookie(&http.Cookie{Name: "refreshToken", Value: tt.refreshCookie})
			}

			assert.Equal(t, tt.expectedAccess, b.AccessToken(r))
			assert.Equal(t, tt.expectedRefresh, b.RefreshToken(r))
		})
	}
}

func TestBinder_Bind(t *testing.T) {
	t.Run("pair", func(t *testing.T) {
		w := httptest.NewRecorder()

		newBinder().Bind(w, models.TokenPair{
			Access:  models.IssuedToken{Value: "access"},
			Refresh: models.IssuedToken{Value: "refresh"},
		})

		cookies := w.Result().Cookies()
		require.Len(t, cookies, 2)

		access := findCookie(t, cookies, "accessToken")
		assert.Equal(t, "access", access.Value)
		assert.Equal(t, 900, access.MaxAge)
		assert.True(t, access.HttpOnly, "access cookie should be HttpOnly")
		assert.Equal(t, "/", access.Path)

		refresh := findCookie(t, cookies, "refreshToken")
		assert.Equal(t, "refresh", refresh.Value)
		assert.Equal(t, 1_209_600, refresh.MaxAge)
		assert.True(t, refresh.HttpOnly, "refresh cookie should be HttpOnly")
		assert.Equal(t, "/", refresh.Path)
		assert.Equal(t, http.SameSiteLaxMode, refresh.SameSite)
		assert.False(t, refresh.Secure)
	})

	t.Run("access only", func(t *testing.T) {
		w := httptest.NewRecorder()

		newBinder().Bind(w, models.TokenPair{Access: models.IssuedToken{Value: "access"}})

		cookies := w.Result().Cookies()
		require.Len(t, cookies, 1)
		require.Equal(t, "accessToken", cookies[0].Name)
	})

	t.Run("secure and custom names", func(t *testing.T) {
		w := httptest.NewRecorder()
		b := New(Config{AccessCookieName: "a", RefreshCookieName: "r", Secure: true, SameSite: http.SameSiteStrictMode})

		b.Bind(w, models.TokenPair{
			Access:  models.IssuedToken{Value: "access"},
			Refresh: models.IssuedToken{Value: "refresh"},
		})

		for _, name := range []string{"a", "r"} {
			c := findCookie(t, w.Result().Cookies(), name)
			assert.True(t, c.Secure)
			assert.Equal(t, http.SameSiteStrictMode, c.SameSite)
		}
	})
}

func TestBinder_Clear(t *testing.T) {
	w := httptest.NewRecorder()

	newBinder().Clear(w)

	header := w.Result().Header.Values("Set-Cookie")
	require.Len(t, header, 2)
	for _, name := range []string{"accessToken", "refreshToken"} {
		c := findCookie(t, w.Result().Cookies(), name)
		assert.Empty(t, c.Value)
		assert.Equal(t, -1, c.MaxAge, "cookie has to expire immediately")
		assert.Equal(t, "/", c.Path)
	}
	assert.Contains(t, header[0], "Max-Age=0")
	assert.Contains(t, header[1], "Max-Age=0")
}
