package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Marga-Ghale/ora-family-backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const actorKey = "actor"

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"status": "fail", "message": message})
}

// Auth validates the bearer token and stores the resolved actor on the
// context.
func Auth(authService service.AuthService, log *logrus.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abort(c, http.StatusUnauthorized, "You are not logged in. Please log in to get access")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			abort(c, http.StatusUnauthorized, "Invalid authorization header format")
			return
		}

		token, err := authService.ValidateToken(parts[1])
		if err != nil || !token.Valid {
			log.WithError(err).WithField("path", c.Request.URL.Path).Debug("invalid token")
			abort(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		claims, err := authService.ClaimsFromToken(token)
		if err != nil {
			abort(c, http.StatusUnauthorized, "Invalid token claims")
			return
		}

		actor, err := authService.ResolveActor(c.Request.Context(), claims)
		if err != nil {
			var se *service.Error
			if errors.As(err, &se) {
				abort(c, http.StatusUnauthorized, se.Message)
				return
			}
			log.WithError(err).Error("failed to resolve actor")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Something went wrong"})
			return
		}

		c.Set(actorKey, actor)
		c.Next()
	}
}

// CurrentActor returns the actor stored by Auth.
func CurrentActor(c *gin.Context) (service.Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return service.Actor{}, false
	}
	actor, ok := v.(service.Actor)
	return actor, ok
}

// RequireParent rejects requests from non-parent actors. Must run after Auth.
func RequireParent() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := CurrentActor(c)
		if !ok {
			abort(c, http.StatusUnauthorized, "User not authenticated")
			return
		}
		if !actor.IsParent() {
			abort(c, http.StatusForbidden, "Only parents can perform this action")
			return
		}
		c.Next()
	}
}
