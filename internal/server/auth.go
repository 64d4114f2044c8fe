package server

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/Ken-helpme/pts-ranking-reporter/internal/core"
)

// APIKeyHeader carries the API key.
const APIKeyHeader = "X-API-Key"

// apiKeyAuth validates the X-API-Key header. An empty apiKey disables the
// check.
func apiKeyAuth(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			provided := r.Header.Get(APIKeyHeader)
			if provided == "" {
				writeError(w, http.StatusUnauthorized,
					core.WrapError(core.ErrConfigMissing, errors.New("missing api key")))
				return
			}
			if subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1 {
				writeError(w, http.StatusUnauthorized,
					core.WrapError(core.ErrConfigInvalid, errors.New("invalid api key")))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
