// Package middleware holds the gin middleware shared by the API routes.
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/business-planner/backend/internal/application/adapter"
	domainerror "github.com/business-planner/backend/internal/domain/error"
	"github.com/business-planner/backend/internal/integration/entrypoint/dto"
)

type ContextKey string

// UserIDKey holds the authenticated user's uuid.UUID on the gin context.
const UserIDKey ContextKey = "user_id"

// AuthMiddleware admits requests carrying a valid access token.
type AuthMiddleware struct {
	tokens adapter.TokenService
}

func NewAuthMiddleware(tokens adapter.TokenService) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Authenticate rejects the request with 401 unless the Authorization header
// holds a Bearer access token. Expired tokens get their own error code so
// clients know to refresh.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, rejection := bearerToken(c.GetHeader("Authorization"))
		if rejection != nil {
			unauthorized(c, rejection)
			return
		}

		claims, err := m.tokens.ValidateAccessToken(c.Request.Context(), token)
		switch {
		case errors.Is(err, adapter.ErrTokenExpired):
			unauthorized(c, domainerror.NewAuthError(domainerror.ErrCodeExpiredToken, "Token has expired", err))
			return
		case err != nil:
			unauthorized(c, domainerror.NewAuthError(domainerror.ErrCodeInvalidToken, "Invalid or expired token", err))
			return
		}

		c.Set(string(UserIDKey), claims.UserID)
		trace.SpanFromContext(c.Request.Context()).SetAttributes(attribute.String("enduser.id", claims.UserID.String()))
		c.Next()
	}
}

func bearerToken(header string) (string, *domainerror.AuthError) {
	if header == "" {
		return "", domainerror.NewAuthError(domainerror.ErrCodeMissingToken, "Authorization header is required", nil)
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", domainerror.NewAuthError(domainerror.ErrCodeInvalidToken, "Invalid authorization header format", nil)
	}
	if token = strings.TrimSpace(token); token == "" {
		return "", domainerror.NewAuthError(domainerror.ErrCodeMissingToken, "Token is required", nil)
	}
	return token, nil
}

func unauthorized(c *gin.Context, err *domainerror.AuthError) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{Error: err.Message, Code: string(err.Code)})
}

// GetUserIDFromContext returns the id set by Authenticate.
func GetUserIDFromContext(c *gin.Context) (uuid.UUID, bool) {
	id, ok := c.Value(string(UserIDKey)).(uuid.UUID)
	return id, ok
}
