// Package security protects the form-post fallback against cross-site
// request forgery with signed double-submit tokens.
package security

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Token errors.
var (
	ErrMissingToken     = errors.New("missing CSRF token")
	ErrInvalidToken     = errors.New("invalid CSRF token")
	ErrTokenExpired     = errors.New("CSRF token expired")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrTokenMismatch    = errors.New("CSRF token does not match cookie")
)

// DefaultFormField is the form field carrying the token unless configured
// otherwise.
const DefaultFormField = "_csrf"

// CSRFConfig configures CSRF.
type CSRFConfig struct {
	// Secret signs tokens. A random secret is used when empty.
	Secret []byte

	// MaxAge is how long a token is accepted (default 12h).
	MaxAge time.Duration

	// Secure marks the cookie HTTPS-only.
	Secure bool

	// CookieName holds the token (default "_csrf").
	CookieName string

	// FormField carries the token on post (default "_csrf").
	FormField string
}

// CSRF issues a token cookie on safe requests and requires the same token
// in the posted form on unsafe ones.
type CSRF struct {
	secret     []byte
	maxAge     time.Duration
	secure     bool
	cookieName string
	formField  string
	now        func() time.Time
}

// NewCSRF creates a CSRF guard.
func NewCSRF(config CSRFConfig) *CSRF {
	if len(config.Secret) == 0 {
		config.Secret = make([]byte, 32)
		_, _ = rand.Read(config.Secret)
	}
	if config.MaxAge <= 0 {
		config.MaxAge = 12 * time.Hour
	}
	if config.CookieName == "" {
		config.CookieName = "_csrf"
	}
	if config.FormField == "" {
		config.FormField = DefaultFormField
	}
	return &CSRF{
		secret:     config.Secret,
		maxAge:     config.MaxAge,
		secure:     config.Secure,
		cookieName: config.CookieName,
		formField:  config.FormField,
		now:        time.Now,
	}
}

// FormField returns the name of the form field carrying the token.
func (c *CSRF) FormField() string {
	return c.formField
}

// GenerateToken creates a signed token: random|unix-time.signature.
func (c *CSRF) GenerateToken() (string, error) {
	random := make([]byte, 24)
	if _, err := rand.Read(random); err != nil {
		return "", err
	}
	payload := base64.RawURLEncoding.EncodeToString(random) + "|" +
		strconv.FormatInt(c.now().Unix(), 10)
	return payload + "." + base64.RawURLEncoding.EncodeToString(c.sign(payload)), nil
}

// ValidateToken checks the signature and age of token.
func (c *CSRF) ValidateToken(token string) error {
	if token == "" {
		return ErrMissingToken
	}
	payload, sig, ok := strings.Cut(token, ".")
	if !ok {
		return ErrInvalidToken
	}
	signature, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil {
		return ErrInvalidToken
	}
	if subtle.ConstantTimeCompare(signature, c.sign(payload)) != 1 {
		return ErrInvalidSignature
	}
	_, stamp, ok := strings.Cut(payload, "|")
	if !ok {
		return ErrInvalidToken
	}
	issued, err := strconv.ParseInt(stamp, 10, 64)
	if err != nil {
		return ErrInvalidToken
	}
	if c.now().Sub(time.Unix(issued, 0)) > c.maxAge {
		return ErrTokenExpired
	}
	return nil
}

func (c *CSRF) sign(payload string) []byte {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(payload))
	return mac.Sum(nil)
}

// Check validates the token posted with r against its cookie.
func (c *CSRF) Check(r *http.Request) (string, error) {
	cookie, err := r.Cookie(c.cookieName)
	if err != nil || cookie.Value == "" {
		return "", ErrMissingToken
	}
	posted := r.PostFormValue(c.formField)
	if posted == "" {
		posted = r.Header.Get("X-CSRF-Token")
	}
	if subtle.ConstantTimeCompare([]byte(posted), []byte(cookie.Value)) != 1 {
		return "", ErrTokenMismatch
	}
	if err := c.ValidateToken(cookie.Value); err != nil {
		return "", err
	}
	return cookie.Value, nil
}

// Middleware issues tokens on safe requests and rejects unsafe requests
// whose posted token is missing or wrong with 403. WebSocket upgrades are
// GETs and pass through. The token is available to handlers via Token.
func (c *CSRF) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isSafeMethod(r.Method) {
				token, err := c.ensureToken(w, r)
				if err != nil {
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
					return
				}
				next.ServeHTTP(w, r.WithContext(WithToken(r.Context(), token)))
				return
			}

			token, err := c.Check(r)
			if err != nil {
				http.Error(w, "Forbidden - Invalid CSRF Token", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithToken(r.Context(), token)))
		})
	}
}

func (c *CSRF) ensureToken(w http.ResponseWriter, r *http.Request) (string, error) {
	if cookie, err := r.Cookie(c.cookieName); err == nil && c.ValidateToken(cookie.Value) == nil {
		return cookie.Value, nil
	}
	token, err := c.GenerateToken()
	if err != nil {
		return "", err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     c.cookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(c.maxAge.Seconds()),
		Secure:   c.secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return token, nil
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	default:
		return false
	}
}

type tokenKey struct{}

// WithToken returns ctx carrying token.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// Token returns the CSRF token of the current request, or "".
func Token(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}
