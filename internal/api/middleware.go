package api

import (
	"net/http"
	"strings"

	"github.com/pvu/tasksync/internal/auth"
)

// withSession resolves the caller's identity and points the Reconciler
// at it before the handler runs. A missing Authorization header means
// an anonymous, local-fallback session; an invalid token is rejected.
func (s *Server) withSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := auth.Anonymous

		if h := r.Header.Get("Authorization"); h != "" {
			if !strings.HasPrefix(h, "Bearer ") {
				http.Error(w, "malformed authorization header", http.StatusUnauthorized)
				return
			}
			parsed, err := auth.ParseToken(s.secret, strings.TrimPrefix(h, "Bearer "))
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			session = parsed
		}

		// Identity changes re-seed the canonical list and cycle the
		// change-feed subscription.
		if !s.rec.Session().Equal(session) {
			s.rec.SetSession(r.Context(), session)
		}

		next(w, r)
	}
}
