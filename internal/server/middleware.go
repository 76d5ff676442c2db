package server

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/file-portal-backend/internal/identity"
	"github.com/lk2023060901/file-portal-backend/internal/pkg/logger"
	"github.com/lk2023060901/file-portal-backend/internal/pkg/response"
	"go.uber.org/zap"
)

// SecurityHeaders sets the headers every portal response carries
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	}
}

// Identity resolves the caller once per request and stores it on the request context.
// A request with an assertion that fails verification is rejected.
func Identity(verifier identity.Verifier, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, err := verifier.Verify(c.Request)
		if err != nil {
			log.WithContext(c.Request.Context()).Warn("identity verification failed",
				zap.Error(err),
				zap.String("ip", caller.Location.IP),
			)
			if errors.Is(err, identity.ErrInvalidAssertion) {
				response.Unauthorized(c)
				return
			}
			response.InternalError(c)
			return
		}

		ctx := identity.WithCaller(c.Request.Context(), caller)
		if caller.Authenticated() {
			ctx = logger.WithUserEmail(ctx, caller.Email)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
