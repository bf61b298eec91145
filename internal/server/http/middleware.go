package httpserver

import (
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/and161185/rollbook/internal/errs"
)

// Logging returns a middleware for structured request logging.
func Logging(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		// metadata only, never bodies
		log.Info("http",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("dur", time.Since(start)),
			zap.String("peer", c.ClientIP()),
		)
	}
}

// Recover returns a middleware that turns handler panics into 500.
func Recover(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic",
					zap.Any("reason", r),
					zap.ByteString("stack", debug.Stack()),
					zap.String("path", c.Request.URL.Path),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse{Message: "internal"})
			}
		}()
		c.Next()
	}
}

// RequireSession accepts "Authorization: Bearer <JWT>" whose subject is the user of the
// persisted session. Logging out therefore invalidates every outstanding token.
func (s *Server) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		tok, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			s.fail(c, errs.ErrUnauthorized)
			return
		}
		sub, err := s.tokens.Parse(tok)
		if err != nil {
			s.fail(c, err)
			return
		}
		u, err := s.auth.CurrentUser(c.Request.Context())
		if err != nil {
			s.fail(c, err)
			return
		}
		if u == nil || u.Username != sub {
			s.fail(c, errs.ErrUnauthorized)
			return
		}
		c.Request = c.Request.WithContext(WithUser(c.Request.Context(), *u))
		c.Next()
	}
}

func bearerToken(h string) (string, bool) {
	const prefix = "bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	tok := strings.TrimSpace(h[len(prefix):])
	return tok, tok != ""
}
