package router

import (
	"strings"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/user/cinefam/internal/handler"
	"github.com/user/cinefam/internal/middleware"
)

// registerValidations adds the custom binding rules used by request structs.
func registerValidations() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
	}
}

// Setup builds the gin engine with all routes and middleware.
func Setup(h *handler.Handler) *gin.Engine {
	registerValidations()

	r := gin.New()
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	r.GET("/health", h.Health)

	api := r.Group("/api")
	api.Use(middleware.RequireHousehold())
	{
		api.GET("/search", h.Search)
		api.POST("/recommend", h.Recommend)

		api.POST("/queue/add", h.QueueAdd)
		api.POST("/queue/remove", h.QueueRemove)
		api.POST("/queue/state", h.QueueState)

		api.POST("/watch/mark", h.MarkWatched)
		api.POST("/watch/update", h.UpdateWatch)
		api.DELETE("/watch/remove", h.RemoveWatch)

		api.POST("/rating/update", h.UpdateRating)

		api.GET("/streaming/:tmdb_id", h.GetStreaming)
	}
	return r
}
