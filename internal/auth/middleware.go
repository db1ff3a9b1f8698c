package auth

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/bizmatters/agent-builder/workflow-orchestrator/internal/models"
)

var middlewareTracer = otel.Tracer("auth-middleware")

// Gin context keys set by RequireSession
const (
	SessionIDKey = "session_id"
	ClaimsKey    = "claims"
	TokenKey     = "session_token"
)

// RequireSession is a Gin middleware that validates the session token and
// checks that it was issued for the :id path parameter. The token is read
// from the Authorization header, or from the token query parameter for
// websocket upgrades, which cannot set headers from a browser.
func RequireSession(jwtManager *JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := middlewareTracer.Start(c.Request.Context(), "auth.require_session")
		defer span.End()

		token := ExtractToken(c.Request)
		if token == "" {
			span.SetAttributes(attribute.Bool("auth.token_present", false))
			abort(c, http.StatusUnauthorized, models.ErrCodeUnauthorized, "Missing or invalid authorization header")
			return
		}
		span.SetAttributes(attribute.Bool("auth.token_present", true))

		claims, err := jwtManager.ValidateToken(ctx, token)
		if err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.Bool("auth.token_valid", false))
			log.Printf(`{"level":"warn","message":"Invalid session token","path":"%s","error":"%v"}`, c.Request.URL.Path, err)
			abort(c, http.StatusUnauthorized, models.ErrCodeUnauthorized, "Invalid or expired token")
			return
		}

		if id := c.Param("id"); id != "" && id != claims.SessionID {
			span.SetAttributes(attribute.Bool("auth.session_match", false))
			log.Printf(`{"level":"warn","message":"Token issued for another session","session_id":"%s","token_session_id":"%s"}`, id, claims.SessionID)
			abort(c, http.StatusForbidden, models.ErrCodeForbidden, "Token does not grant access to this session")
			return
		}

		span.SetAttributes(
			attribute.Bool("auth.token_valid", true),
			attribute.String("session.id", claims.SessionID),
		)

		c.Set(SessionIDKey, claims.SessionID)
		c.Set(ClaimsKey, claims)
		c.Set(TokenKey, token)
		c.Next()
	}
}

// ExtractToken returns the bearer token of r, falling back to the token
// query parameter.
func ExtractToken(r *http.Request) string {
	const prefix = "Bearer "
	if header := r.Header.Get("Authorization"); header != "" {
		if !strings.HasPrefix(header, prefix) {
			return ""
		}
		return strings.TrimSpace(header[len(prefix):])
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, models.ErrorResponse{Error: message, Code: code})
}
