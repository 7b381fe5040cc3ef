package http

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"golang.org/x/net/websocket"
)

const ErrTypeUnauthorized = "unauthorized"

// GetUserTokenFromHTTPRequest returns the bearer token of the request
// Authorization header.
func GetUserTokenFromHTTPRequest(r *http.Request) string {
	token := r.Header.Get(HeaderAuthorization)
	if t, ok := strings.CutPrefix(token, "Bearer "); ok {
		return t
	}
	return token
}

func verifyToken(expected string, r *http.Request) error {
	if expected == "" {
		return nil
	}

	token := GetUserTokenFromHTTPRequest(r)
	if subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
		return errors.New("invalid auth token").
			WithType(ErrTypeUnauthorized).
			WithTag("remote_addr", r.RemoteAddr)
	}
	return nil
}

// VerifyAuthToken returns a WebSocket handshake that rejects clients which do
// not present the given token. An empty token accepts every client.
func VerifyAuthToken(token string) func(*websocket.Config, *http.Request) error {
	return func(c *websocket.Config, r *http.Request) error {
		if err := verifyToken(token, r); err != nil {
			logs.WithClientID(r.Header.Get(HeaderClientID)).Warn(err)
			return err
		}
		return nil
	}
}

func VerifyAuthTokenHandler(token string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := verifyToken(token, r); err != nil {
			logs.WithClientID(r.Header.Get(HeaderClientID)).Warn(err)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	}
}
