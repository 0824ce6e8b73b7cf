package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/sessions"

	"github.com/tahcohcat/gamify-web/internal/logger"
)

const (
	sessionName    = "gamify-session"
	sessionUserKey = "user_id"
	tokenIssuer    = "gamify-web"
)

var ErrInvalidToken = errors.New("invalid token")

type ctxKey struct{}

// WithUserID returns a context carrying the authenticated user id.
func WithUserID(ctx context.Context, userID int) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

// UserIDFromContext returns the user resolved for this request, if any.
func UserIDFromContext(ctx context.Context) (int, bool) {
	id, ok := ctx.Value(ctxKey{}).(int)
	return id, ok && id > 0
}

// Claims is the payload of bearer tokens issued at login.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Manager resolves the calling user from a session cookie or a bearer
// token. Browsers use the cookie; API and terminal clients use the token.
type Manager struct {
	store  sessions.Store
	secret []byte
	ttl    time.Duration
}

func NewManager(sessionSecret, jwtSecret string, ttl time.Duration) *Manager {
	store := sessions.NewCookieStore([]byte(sessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int((7 * 24 * time.Hour).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Manager{store: store, secret: []byte(jwtSecret), ttl: ttl}
}

// IssueToken signs a bearer token for userID.
func (m *Manager) IssueToken(userID int, username string) (string, time.Time, error) {
	now := time.Now()
	expires := now.Add(m.ttl)
	claims := Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(userID),
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expires, nil
}

// ParseToken validates a bearer token and returns its user id.
func (m *Manager) ParseToken(raw string) (int, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	id, err := strconv.Atoi(claims.Subject)
	if err != nil || id <= 0 {
		return 0, ErrInvalidToken
	}
	return id, nil
}

// Login stores userID in the session cookie.
func (m *Manager) Login(w http.ResponseWriter, r *http.Request, userID int) error {
	session, _ := m.store.Get(r, sessionName)
	session.Values[sessionUserKey] = userID
	if err := session.Save(r, w); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Logout clears the session cookie.
func (m *Manager) Logout(w http.ResponseWriter, r *http.Request) error {
	session, _ := m.store.Get(r, sessionName)
	delete(session.Values, sessionUserKey)
	session.Options.MaxAge = -1
	if err := session.Save(r, w); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

func (m *Manager) userFromSession(r *http.Request) (int, bool) {
	session, err := m.store.Get(r, sessionName)
	if err != nil {
		return 0, false
	}
	id, ok := session.Values[sessionUserKey].(int)
	return id, ok && id > 0
}

func (m *Manager) userFromBearer(r *http.Request) (int, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return 0, false
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return 0, false
	}

	id, err := m.ParseToken(strings.TrimSpace(parts[1]))
	if err != nil {
		logger.New().WithError(err).Debug("Rejected bearer token")
		return 0, false
	}
	return id, true
}

// Resolve attaches the calling user, when there is one, to the request
// context. It never rejects a request; handlers decide what needs a user.
func (m *Manager) Resolve(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := m.userFromSession(r)
		if !ok {
			id, ok = m.userFromBearer(r)
		}
		if ok {
			r = r.WithContext(WithUserID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}
