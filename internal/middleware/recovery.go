package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"drravalement/site/internal/apperr"
)

// Recovery turns a panic into a 500 JSON body. Gate decisions never reach
// here; this only guards handler bugs.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				zerolog.Ctx(c.Request.Context()).Error().
					Interface("panic", r).
					Str("path", c.Request.URL.Path).
					Msg("panic recovered")
				apperr.Abort(c, apperr.ErrInternal)
			}
		}()
		c.Next()
	}
}
