package core

import (
	"crypto/subtle"
	"net/http"

	"teanotify/internal/types"
)

// adminKeyHeader carries the admin API key on protected routes.
const adminKeyHeader = "X-Admin-Api-Key"

// AdminOnly guards administrative surfaces (templates, queue inspection,
// manual sweeps) with a shared API key. The comparison is constant-time.
// When no key is configured (local development), the guard rejects every
// request rather than failing open.
func (s *Server) AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		configured := s.Config.Security.AdminAPIKey.Unmask()
		if configured == "" {
			Error(w, r, types.NewAppError(types.ErrCodeAuthKeyInvalid,
				"admin access is not configured", nil))
			return
		}

		presented := r.Header.Get(adminKeyHeader)
		if presented == "" {
			Error(w, r, types.NewAppError(types.ErrCodeAuthKeyMissing,
				"missing "+adminKeyHeader+" header", nil))
			return
		}

		if subtle.ConstantTimeCompare([]byte(presented), []byte(configured)) != 1 {
			s.Logger.Warn("admin key rejected",
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
			)
			Error(w, r, types.NewAppError(types.ErrCodeAuthKeyInvalid,
				"invalid admin API key", nil))
			return
		}

		next.ServeHTTP(w, r)
	})
}
