package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"almacen/internal/core/apperror"
	appctx "almacen/internal/core/context"
)

// Identity headers set by the authenticating gateway in front of the service.
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserName = "X-User-Name"
)

// Actor puts the caller identity into the request context so movements,
// status changes and audit entries record who acted. Requests without an
// identity run as the system actor.
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(HeaderUserID))
		if userID != "" {
			ctx := appctx.WithActor(c.Request.Context(), &appctx.Actor{
				UserID: userID,
				Name:   strings.TrimSpace(c.GetHeader(HeaderUserName)),
			})
			c.Request = c.Request.WithContext(ctx)
			c.Set("user_id", userID)
		}
		c.Next()
	}
}

// RequireActor rejects requests without an identity. Carts and orders belong
// to a user, so these routes cannot run as the system actor.
func RequireActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		if appctx.GetActor(c.Request.Context()) == nil {
			appErr := apperror.NewValidation("user identity is required").
				WithDetail("header", HeaderUserID)
			appErr.HTTPStatus = 401
			_ = c.Error(appErr)
			c.Abort()
			return
		}
		c.Next()
	}
}
