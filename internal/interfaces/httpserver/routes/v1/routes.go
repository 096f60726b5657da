package v1

import (
	"github.com/gin-gonic/gin"

	"birdreel-server/internal/interfaces/httpserver/handlers"
)

// Routes encapsulates versioned route registration.
type Routes struct {
	handlers *handlers.Provider
}

func NewRoutes(provider *handlers.Provider) *Routes {
	return &Routes{handlers: provider}
}

// Register attaches all v1 routes under /v1 prefix.
func (r *Routes) Register(router gin.IRouter) {
	group := router.Group("/v1")
	group.POST("/videos", r.handlers.Video.Generate)
	group.GET("/videos", r.handlers.Video.List)
	group.GET("/videos/status", r.handlers.Video.Status)
	group.GET("/videos/:id", r.handlers.Video.Get)
	group.GET("/videos/:id/stream", r.handlers.Video.Stream)
	group.GET("/videos/:id/download", r.handlers.Video.Download)
	group.GET("/prompts/top", r.handlers.Prompt.Top)
	group.POST("/prompts/generate", r.handlers.Prompt.Refresh)
}
