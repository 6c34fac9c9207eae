package middleware

import (
	"errors"
	"net/http"

	"github.com/ariellewolter/research-notebook-ver4-sub004/pkg/auth"
	apperrors "github.com/ariellewolter/research-notebook-ver4-sub004/pkg/errors"
)

// Authenticate rejects requests without a valid bearer token and stores the
// caller on the request context
func Authenticate(validator *auth.JWTValidator, errorHandler *apperrors.ErrorHandler) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := validator.ValidateToken(r.Header.Get("Authorization"))
			if err != nil {
				errorHandler.Handle(w, r, apperrors.NewUnauthorizedError(unauthorizedMessage(err)))
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), claims)))
		})
	}
}

func unauthorizedMessage(err error) string {
	switch {
	case errors.Is(err, auth.ErrMissingToken):
		return "missing authorization header"
	case errors.Is(err, auth.ErrExpiredToken):
		return "token has expired"
	default:
		return "invalid token"
	}
}
