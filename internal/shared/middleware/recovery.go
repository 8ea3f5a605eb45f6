package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"podcast-backend/internal/shared/response"
)

// Recovery turns panics into the standard error envelope. A panic
// mid-stream is unrecoverable for that response; the handler only
// covers requests that have not started writing a body yet.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().
					Str("request_id", c.GetString("request_id")).
					Str("path", c.Request.URL.Path).
					Interface("panic", r).
					Msg("Panic recovered")

				if !c.Writer.Written() {
					response.InternalServerError(c, "Internal server error")
				}
				c.Abort()
			}
		}()

		c.Next()
	}
}
