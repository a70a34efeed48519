// Package middleware provides HTTP middleware components.
package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"almacen/internal/core/apperror"
	appctx "almacen/internal/core/context"
	"almacen/pkg/logger"
)

// Recovery turns a panic into a 500 response. It runs outside ErrorHandler,
// so it writes the response itself. The stack is logged, never returned.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			ctx := c.Request.Context()
			logger.Error(ctx, "panic recovered",
				"error", rec,
				"route", c.FullPath(),
				"actor", appctx.ActorID(ctx),
				"stack", string(debug.Stack()),
			)

			_ = c.Error(apperror.NewInternal(fmt.Errorf("panic: %v", rec)))
			body := gin.H{
				"code":    apperror.CodeInternal,
				"message": "Internal server error",
				"details": map[string]any{"request_id": appctx.GetRequestID(ctx)},
			}
			failIdempotency(c, http.StatusInternalServerError, body)
			if !c.Writer.Written() {
				c.AbortWithStatusJSON(http.StatusInternalServerError, body)
				return
			}
			c.Abort()
		}()
		c.Next()
	}
}
