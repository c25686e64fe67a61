package router

import (
	"github.com/wb-go/wbf/ginext"

	"github.com/neuralscale/enhancer/internal/api/handlers/media"
	"github.com/neuralscale/enhancer/internal/middleware"
)

func Setup(h *media.Handler) *ginext.Engine {
	r := ginext.New()

	r.Use(middleware.CORSMiddleware())
	r.Use(ginext.Logger())
	r.Use(ginext.Recovery())

	api := r.Group("/api")

	api.POST("/upload", h.Upload)              // submitting a batch of media files
	api.GET("/media", h.List)                  // listing all items
	api.GET("/media/:id", h.Get)               // getting item state by id
	api.GET("/media/:id/download", h.Download) // converting and downloading an item
	api.DELETE("/media/:id", h.Delete)         // removing item by id

	return r
}
