package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/northmill/storefront/internal/collab"
)

type principalKey struct{}

// Header names the gateway uses to forward the authenticated caller. Token
// verification happens upstream; by the time a request lands here the
// identity is trusted.
const (
	headerUserID      = "X-User-Id"
	headerUserRole    = "X-User-Role"
	headerPermissions = "X-User-Permissions"
)

// RequirePrincipal extracts the forwarded principal and rejects requests
// without one.
func RequirePrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(headerUserID)
		if id == "" {
			writeJSON(w, http.StatusUnauthorized, errorBody{
				Code: http.StatusUnauthorized, Kind: "unauthorized", Message: "missing principal",
			})
			return
		}

		p := collab.Principal{
			ID:   id,
			Role: r.Header.Get(headerUserRole),
		}
		if raw := r.Header.Get(headerPermissions); raw != "" {
			p.Permissions = strings.Split(raw, ",")
		}

		ctx := context.WithValue(r.Context(), principalKey{}, p)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// PrincipalFrom returns the principal stored by RequirePrincipal.
func PrincipalFrom(ctx context.Context) (collab.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(collab.Principal)
	return p, ok
}
