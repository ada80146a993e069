package security

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSRF_Token(t *testing.T) {
	c := NewCSRF(CSRFConfig{Secret: []byte("secret"), MaxAge: time.Hour})

	token, err := c.GenerateToken()
	require.NoError(t, err)
	assert.NoError(t, c.ValidateToken(token))

	assert.ErrorIs(t, c.ValidateToken(""), ErrMissingToken)
	assert.ErrorIs(t, c.ValidateToken("garbage"), ErrInvalidToken)
	assert.ErrorIs(t, c.ValidateToken(token+"x"), ErrInvalidSignature)

	other := NewCSRF(CSRFConfig{Secret: []byte("other")})
	assert.ErrorIs(t, other.ValidateToken(token), ErrInvalidSignature)

	c.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	assert.ErrorIs(t, c.ValidateToken(token), ErrTokenExpired)
}

func TestCSRF_Middleware(t *testing.T) {
	c := NewCSRF(CSRFConfig{Secret: []byte("secret")})
	var seen string
	h := c.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = Token(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	cookie := cookies[0]
	assert.Equal(t, "_csrf", cookie.Name)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, cookie.Value, seen)

	post := func(token string, withCookie bool) *httptest.ResponseRecorder {
		form := url.Values{"name": {"x"}}
		if token != "" {
			form.Set("_csrf", token)
		}
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		if withCookie {
			req.AddCookie(cookie)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	seen = ""
	assert.Equal(t, http.StatusOK, post(cookie.Value, true).Code)
	assert.Equal(t, cookie.Value, seen)

	assert.Equal(t, http.StatusForbidden, post("", true).Code)
	assert.Equal(t, http.StatusForbidden, post(cookie.Value, false).Code)
	assert.Equal(t, http.StatusForbidden, post("forged", true).Code)

	// A valid cookie is reused on the next page load.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Result().Cookies())
	assert.Equal(t, cookie.Value, seen)
}
