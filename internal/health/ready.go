package health

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ccastromar/barberchat/internal/runtime"
)

// NewReadyHandler reports 503 until definitions are loaded and the provider
// answers Ping. Without a provider the service still serves step templates,
// so it is ready.
func NewReadyHandler(rt *runtime.Runtime) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rt.DefinitionsLoaded {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "definitions not loaded"})
			return
		}

		if rt.LLMClient != nil {
			if err := rt.LLMClient.Ping(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "llm unreachable", "provider": rt.Provider()})
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{"status": "ready", "provider": rt.Provider()})
	}
}

// NewInfoHandler serves GET /health.
func NewInfoHandler(rt *runtime.Runtime) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := gin.H{"ok": true, "provider": rt.Provider()}
		if m := rt.Model(); m != "" {
			body["model"] = m
		}
		c.JSON(http.StatusOK, body)
	}
}
