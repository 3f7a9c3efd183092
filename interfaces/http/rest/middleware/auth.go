package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"fieldui/pkg/auth"
	"fieldui/pkg/common"

	"go.uber.org/zap"
)

// Authenticate validates bearer tokens and rate limits by device. A
// nil validator disables token checks, the development mode where the
// shell has no identity provider yet.
func Authenticate(validator *auth.JWTValidator, limiter *auth.DeviceRateLimiter, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			deviceID := r.Header.Get("X-Device-ID")
			if deviceID != "" && limiter != nil {
				allowed, err := limiter.Allow(r.Context(), deviceID)
				if err == nil && !allowed {
					respondWithError(w, http.StatusTooManyRequests, "rate limit exceeded")
					return
				}
			}

			if deviceID != "" {
				r = r.WithContext(common.WithDeviceID(r.Context(), deviceID))
			}

			if validator == nil {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := bearerToken(r)
			if !ok {
				respondUnauthorized(w, "missing or malformed authorization header")
				return
			}

			// Requests already validated by the API Gateway authorizer
			// arrive with the user identity in headers
			if token == "api-gateway-validated" && r.Header.Get("X-API-Gateway-Authorized") == "true" {
				userCtx, err := userFromGatewayHeaders(r)
				if err != nil {
					respondUnauthorized(w, err.Error())
					return
				}
				next.ServeHTTP(w, r.WithContext(auth.SetUserInContext(r.Context(), userCtx)))
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.Debug("token validation failed", zap.Error(err))
				respondUnauthorized(w, "invalid token")
				return
			}

			userCtx := &auth.UserContext{
				UserID: claims.UserID,
				Email:  claims.Email,
				Roles:  claims.Roles,
			}
			ctx := auth.SetUserInContext(r.Context(), userCtx)
			ctx = common.WithUserID(ctx, claims.UserID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken extracts the token from the Authorization header
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		header = r.Header.Get("authorization")
	}
	if header == "" {
		return "", false
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

// userFromGatewayHeaders rebuilds the user context from API Gateway
// authorizer headers
func userFromGatewayHeaders(r *http.Request) (*auth.UserContext, error) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		return nil, auth.ErrNoUserInContext
	}

	roles := []string{"authenticated"}
	if raw := r.Header.Get("X-User-Roles"); raw != "" {
		roles = strings.Split(raw, ",")
	}

	return &auth.UserContext{
		UserID: userID,
		Email:  r.Header.Get("X-User-Email"),
		Roles:  roles,
	}, nil
}

func respondUnauthorized(w http.ResponseWriter, message string) {
	respondWithError(w, http.StatusUnauthorized, message)
}

func respondWithError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   true,
		"message": message,
		"code":    status,
	})
}
