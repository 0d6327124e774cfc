package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	apperrors "atelier/pkg/errors"
	"atelier/pkg/httpx"
	"atelier/pkg/logger"
	"atelier/pkg/model"

	"github.com/julienschmidt/httprouter"
)

var ErrPasswordTooShort = errors.New("password must be at least 8 characters")

type claimsKey struct{}

// ClaimsFrom returns the verified claims placed by Protect, or nil.
func ClaimsFrom(ctx context.Context) *Claims {
	claims, _ := ctx.Value(claimsKey{}).(*Claims)
	return claims
}

// Protect wraps an httprouter handle and requires a valid bearer token.
func Protect(issuer *TokenIssuer, log *logger.Logger, next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		token := bearerToken(r)
		if token == "" {
			writeAuthError(w, log, apperrors.Unauthorized("You are not logged in. Please log in to get access."))
			return
		}

		claims, err := issuer.Verify(token)
		if err != nil {
			writeAuthError(w, log, apperrors.Unauthorized("Invalid or expired token"))
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey{}, claims)
		next(w, r.WithContext(ctx), ps)
	}
}

// RequireAdmin gates a protected handle to admin tokens.
func RequireAdmin(issuer *TokenIssuer, log *logger.Logger, next httprouter.Handle) httprouter.Handle {
	return Protect(issuer, log, func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		claims := ClaimsFrom(r.Context())
		if claims == nil || claims.Role != model.RoleAdmin {
			writeAuthError(w, log, apperrors.Forbidden("You do not have permission to perform this action"))
			return
		}
		next(w, r, ps)
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}

func writeAuthError(w http.ResponseWriter, log *logger.Logger, err error) {
	if writeErr := httpx.WriteError(w, err); writeErr != nil {
		log.Error("failed to write auth error response", "error", writeErr)
	}
}
