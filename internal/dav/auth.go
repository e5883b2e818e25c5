package dav

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

// Principal represents an authenticated user.
type Principal struct {
	ID string
}

// Credentials carries one HTTP Basic username/password pair.
type Credentials struct {
	Username string
	Password string
}

var errInvalidCredentials = errors.New("invalid username or password")

// Authenticator validates credentials against some credential store.
type Authenticator interface {
	Authenticate(ctx context.Context, creds Credentials) (*Principal, error)
}

// StaticAuthenticator accepts exactly one configured credential pair.
// The bridge serves a single KodBox account, so one principal is all
// there is.
type StaticAuthenticator struct {
	username string
	password string
	logger   *slog.Logger
}

func NewStaticAuthenticator(username, password string, logger *slog.Logger) *StaticAuthenticator {
	if logger == nil {
		logger = slog.Default()
	}
	return &StaticAuthenticator{username: username, password: password, logger: logger}
}

// Authenticate implements Authenticator. Both fields are compared in
// constant time.
func (a *StaticAuthenticator) Authenticate(_ context.Context, creds Credentials) (*Principal, error) {
	userOK := subtle.ConstantTimeCompare([]byte(creds.Username), []byte(a.username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(creds.Password), []byte(a.password)) == 1
	if !userOK || !passOK {
		a.logger.Info("authentication failed", "username", creds.Username)
		return nil, errInvalidCredentials
	}
	return &Principal{ID: creds.Username}, nil
}

type contextKey string

const principalContextKey contextKey = "principal"

// PrincipalFromContext retrieves the authenticated principal stored
// by Middleware, or nil.
func PrincipalFromContext(ctx context.Context) *Principal {
	if p, ok := ctx.Value(principalContextKey).(*Principal); ok {
		return p
	}
	return nil
}

// Middleware enforces HTTP Basic authentication in front of the DAV
// tree. OPTIONS passes through so discovery probes work before the
// client has prompted for credentials.
func Middleware(authenticator Authenticator, realm string) func(http.Handler) http.Handler {
	if realm == "" {
		realm = "KodBox CalDAV Bridge"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			creds, err := parseBasicAuth(r.Header.Get("Authorization"))
			if err != nil {
				requestAuth(w, realm)
				return
			}

			principal, err := authenticator.Authenticate(r.Context(), creds)
			if err != nil {
				requestAuth(w, realm)
				return
			}

			ctx := context.WithValue(r.Context(), principalContextKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func requestAuth(w http.ResponseWriter, realm string) {
	w.Header().Set("WWW-Authenticate", `Basic realm="`+realm+`"`)
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}

func parseBasicAuth(header string) (Credentials, error) {
	const prefix = "Basic "
	if !strings.HasPrefix(header, prefix) {
		return Credentials{}, errors.New("authorization header is not Basic")
	}
	decoded, err := base64.StdEncoding.DecodeString(header[len(prefix):])
	if err != nil {
		return Credentials{}, err
	}
	username, password, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return Credentials{}, errors.New("malformed basic credentials")
	}
	return Credentials{Username: username, Password: password}, nil
}
