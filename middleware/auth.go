package middleware

import (
	"strings"

	"storybook-order-service/common/auth"
	apperrors "storybook-order-service/common/errors"
	"storybook-order-service/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const ActorContextKey = "actor"

// AuthMiddleware resolves the caller from gateway headers, falling back to a
// bearer token when tokens is configured.
func AuthMiddleware(tokens *auth.TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		role := c.GetHeader("X-User-Role")
		email := c.GetHeader("X-User-Email")

		if userID == "" {
			header := c.GetHeader("Authorization")
			if strings.HasPrefix(header, "Bearer ") && tokens.Enabled() {
				claims, err := tokens.Parse(strings.TrimPrefix(header, "Bearer "))
				if err != nil {
					apperrors.Respond(c, apperrors.Unauthorized("invalid or expired token"))
					return
				}
				userID, role, email = claims.Subject, claims.Role, claims.Email
			}
		}

		if userID == "" {
			apperrors.Respond(c, apperrors.Unauthorized("unauthorized"))
			return
		}

		id, err := uuid.Parse(userID)
		if err != nil || id == uuid.Nil {
			apperrors.Respond(c, apperrors.Unauthorized("invalid user ID format"))
			return
		}
		parsedRole, ok := models.ParseRole(role)
		if !ok {
			apperrors.Respond(c, apperrors.Unauthorized("unknown role"))
			return
		}

		c.Set(ActorContextKey, models.Actor{UserID: id, Role: parsedRole, Email: email})
		c.Next()
	}
}

// CurrentActor returns the actor stored by AuthMiddleware.
func CurrentActor(c *gin.Context) (models.Actor, bool) {
	v, ok := c.Get(ActorContextKey)
	if !ok {
		return models.Actor{}, false
	}
	actor, ok := v.(models.Actor)
	return actor, ok
}

func requireRole(allowed func(models.Role) bool, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := CurrentActor(c)
		if !ok {
			apperrors.Respond(c, apperrors.Unauthorized("unauthorized"))
			return
		}
		if !allowed(actor.Role) {
			apperrors.Respond(c, apperrors.Forbidden(message))
			return
		}
		c.Next()
	}
}

func RequireModerator() gin.HandlerFunc {
	return requireRole(models.Role.IsModerator, "designer or admin role required")
}

func RequireFinance() gin.HandlerFunc {
	return requireRole(models.Role.CanManageFinance, "finance role required")
}
