package gateway

import (
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
)

var (
	corsMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}
	corsHeaders = []string{"Authorization", "Content-Type", "Accept"}
)

// CORS applies CORS headers for requests from one of origins. With no
// origins configured it passes every request through untouched. "*"
// allows any origin.
func CORS(origins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(origins) == 0 {
			c.Next()
			return
		}

		origin := c.GetHeader("Origin")
		if originAllowed(origins, origin) {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Methods", strings.Join(corsMethods, ", "))
			h.Set("Access-Control-Allow-Headers", strings.Join(corsHeaders, ", "))
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Add("Vary", "Origin")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}

func originAllowed(origins []string, origin string) bool {
	if origin == "" {
		return false
	}
	return slices.Contains(origins, "*") || slices.Contains(origins, origin)
}
