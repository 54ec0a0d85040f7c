package http

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/aukilabs/depthlab/protocol"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"golang.org/x/net/websocket"
)

var ErrUnauthorized = errors.New("unauthorized").WithType("unauthorized")

// VerifyAuthToken returns a websocket handshake that rejects connections not
// carrying the given bearer token. An empty token accepts everything.
func VerifyAuthToken(token string) func(*websocket.Config, *http.Request) error {
	return func(c *websocket.Config, r *http.Request) error {
		if err := verifyToken(token, r); err != nil {
			logs.WithTag(logs.ClientIDTag, r.Header.Get(protocol.HeaderClientID)).Error(err)
			return err
		}
		return nil
	}
}

func VerifyAuthTokenHandler(token string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := verifyToken(token, r); err != nil {
			logs.WithTag(logs.ClientIDTag, r.Header.Get(protocol.HeaderClientID)).Error(err)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	}
}

func verifyToken(token string, r *http.Request) error {
	if token == "" {
		return nil
	}

	got := GetTokenFromHTTPRequest(r)
	if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
		return ErrUnauthorized
	}
	return nil
}

// GetTokenFromHTTPRequest returns the bearer token from the Authorization
// header, or from the token query parameter for browsers that cannot set
// headers on WebSocket connections.
func GetTokenFromHTTPRequest(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return r.URL.Query().Get("token")
}
