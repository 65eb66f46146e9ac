package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/mauzenfan/mauzenfan/internal/auth"
	"github.com/mauzenfan/mauzenfan/internal/model"
)

const (
	childIDHeader      = "X-Child-ID"
	deviceSecretHeader = "X-Device-Secret"
)

// TokenVerifier resolves a bearer token to a user id.
type TokenVerifier interface {
	Verify(token string) (int64, error)
}

// UserChecker reports whether a user account still exists.
type UserChecker interface {
	Exists(id int64) (bool, error)
}

// ChildGetter loads a child by id.
type ChildGetter interface {
	GetByID(id int64) (*model.Child, error)
}

// BearerToken returns the token from the Authorization header, falling back
// to the "token" query parameter for WebSocket upgrades from browsers.
func BearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return r.URL.Query().Get("token")
}

// Authenticate resolves the user behind a request. It returns 0 when the
// token is missing or invalid, or the account no longer exists.
func Authenticate(r *http.Request, tokens TokenVerifier, users UserChecker) int64 {
	tok := BearerToken(r)
	if tok == "" {
		return 0
	}
	userID, err := tokens.Verify(tok)
	if err != nil {
		return 0
	}
	ok, err := users.Exists(userID)
	if err != nil || !ok {
		return 0
	}
	return userID
}

// RequireAuth validates the bearer token and populates AuthContext.
func RequireAuth(tokens TokenVerifier, users UserChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := Authenticate(r, tokens, users)
			if userID == 0 {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			ctx := auth.WithAuth(r.Context(), auth.AuthContext{UserID: userID})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireDevice authenticates a child's tracking device from its pairing
// secret. The AuthContext carries the child id and, when present, the
// child's proxy user id.
func RequireDevice(children ChildGetter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			childID, err := strconv.ParseInt(r.Header.Get(childIDHeader), 10, 64)
			if err != nil || childID <= 0 {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			child, err := children.GetByID(childID)
			if err != nil || child == nil || !child.IsActive {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			if !auth.CheckDeviceSecret(child.DeviceSecretHash, r.Header.Get(deviceSecretHeader)) {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ac := auth.AuthContext{ChildID: child.ID}
			if child.ProxyUserID != nil {
				ac.UserID = *child.ProxyUserID
			}
			next.ServeHTTP(w, r.WithContext(auth.WithAuth(r.Context(), ac)))
		})
	}
}
