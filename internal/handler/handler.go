package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/user/cinefam/internal/service"
)

// Handler wires HTTP routes to the core services.
type Handler struct {
	search    *service.SearchService
	recommend *service.RecommendationEngine
	watch     *service.WatchService
	queue     *service.QueueService
	providers service.ProviderStore
	prefs     service.PrefsStore
	region    string
}

func NewHandler(search *service.SearchService, recommend *service.RecommendationEngine, watch *service.WatchService, queue *service.QueueService, providers service.ProviderStore, prefs service.PrefsStore, region string) *Handler {
	return &Handler{
		search:    search,
		recommend: recommend,
		watch:     watch,
		queue:     queue,
		providers: providers,
		prefs:     prefs,
		region:    region,
	}
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
