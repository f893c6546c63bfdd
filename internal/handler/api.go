package handler

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/user/cinefam/internal/errs"
	"github.com/user/cinefam/internal/middleware"
	"github.com/user/cinefam/internal/service"
	"github.com/user/cinefam/internal/utils"
)

const (
	recommendCacheTTL = 2 * time.Minute
	streamingCacheTTL = 5 * time.Minute
)

// Search handles GET /api/search?q=...&year=...
func (h *Handler) Search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		utils.RespondError(c, errs.Validationf("query parameter q is required"))
		return
	}
	var year *int
	if raw := c.Query("year"); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil {
			utils.RespondError(c, errs.Validationf("year must be a number"))
			return
		}
		year = &y
	}

	results, err := h.search.Search(c.Request.Context(), middleware.HouseholdID(c), query, year)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, results)
}

// Recommend handles POST /api/recommend. Results are cached briefly per
// household+request so repeated identical asks don't re-run the pipeline.
func (h *Handler) Recommend(c *gin.Context) {
	var req service.RecommendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, errs.Validationf("invalid recommend request: %v", err))
		return
	}
	householdID := middleware.HouseholdID(c)

	key := recommendCacheKey(householdID, &req)
	if cached, ok := utils.CacheGet(key); ok {
		utils.Success(c, cached)
		return
	}

	results, err := h.recommend.Recommend(c.Request.Context(), householdID, &req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.CacheSet(key, results, recommendCacheTTL)
	utils.Success(c, results)
}

func recommendCacheKey(householdID string, req *service.RecommendRequest) string {
	raw, _ := json.Marshal(req)
	return fmt.Sprintf("recommend:%s:%x", householdID, sha256.Sum256(raw))
}

type queueAddRequest struct {
	TMDBID int `json:"tmdb_id" binding:"required,min=1"`
}

// QueueAdd handles POST /api/queue/add.
func (h *Handler) QueueAdd(c *gin.Context) {
	var req queueAddRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, errs.Validationf("invalid queue request: %v", err))
		return
	}
	result, err := h.queue.Enqueue(c.Request.Context(), middleware.HouseholdID(c), middleware.ProfileID(c), req.TMDBID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	if result.AlreadyQueued {
		utils.SuccessWithMessage(c, "already queued", result)
		return
	}
	utils.Success(c, result)
}

type queueRemoveRequest struct {
	ItemID int `json:"item_id" binding:"required,min=1"`
}

// QueueRemove handles POST /api/queue/remove.
func (h *Handler) QueueRemove(c *gin.Context) {
	var req queueRemoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, errs.Validationf("invalid queue request: %v", err))
		return
	}
	if err := h.queue.Dequeue(req.ItemID); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessWithMessage(c, "removed", nil)
}

type queueStateRequest struct {
	TMDBIDs []int `json:"tmdb_ids" binding:"required,min=1,dive,min=1"`
}

// QueueState handles POST /api/queue/state: set-membership over the given
// movie ids.
func (h *Handler) QueueState(c *gin.Context) {
	var req queueStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, errs.Validationf("invalid queue request: %v", err))
		return
	}
	queued, err := h.queue.QueueState(middleware.HouseholdID(c), req.TMDBIDs)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, gin.H{"queued": queued})
}

// MarkWatched handles POST /api/watch/mark.
func (h *Handler) MarkWatched(c *gin.Context) {
	var req service.MarkWatchedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, errs.Validationf("invalid watch request: %v", err))
		return
	}
	result, err := h.watch.MarkWatched(c.Request.Context(), middleware.HouseholdID(c), middleware.ProfileID(c), &req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	if result.Duplicate {
		utils.SuccessWithMessage(c, "already marked watched recently", result)
		return
	}
	utils.Success(c, result)
}

// UpdateWatch handles POST /api/watch/update.
func (h *Handler) UpdateWatch(c *gin.Context) {
	var req service.UpdateWatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, errs.Validationf("invalid watch request: %v", err))
		return
	}
	watch, err := h.watch.UpdateWatch(middleware.HouseholdID(c), &req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, watch)
}

// RemoveWatch handles DELETE /api/watch/remove?watch_id=...&cascade_rating=true.
func (h *Handler) RemoveWatch(c *gin.Context) {
	watchID, err := strconv.Atoi(c.Query("watch_id"))
	if err != nil || watchID < 1 {
		utils.RespondError(c, errs.Validationf("watch_id must be a positive number"))
		return
	}
	cascade := c.Query("cascade_rating") == "true"
	if err := h.watch.RemoveWatch(middleware.HouseholdID(c), watchID, cascade); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessWithMessage(c, "removed", nil)
}

// UpdateRating handles POST /api/rating/update.
func (h *Handler) UpdateRating(c *gin.Context) {
	var req service.UpdateRatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, errs.Validationf("invalid rating request: %v", err))
		return
	}
	rating, err := h.watch.UpdateRating(middleware.HouseholdID(c), middleware.ProfileID(c), &req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, rating)
}

// GetStreaming handles GET /api/streaming/:tmdb_id?region=US. Absence of
// availability is a normal answer, never an error.
func (h *Handler) GetStreaming(c *gin.Context) {
	tmdbID, err := strconv.Atoi(c.Param("tmdb_id"))
	if err != nil || tmdbID < 1 {
		utils.RespondError(c, errs.Validationf("tmdb_id must be a positive number"))
		return
	}
	region := c.DefaultQuery("region", h.region)

	key := fmt.Sprintf("streaming:%d:%s", tmdbID, region)
	if cached, ok := utils.CacheGet(key); ok {
		utils.Success(c, cached)
		return
	}

	lists, err := h.providers.Find(tmdbID, region)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	if lists == nil || lists.Empty() {
		utils.SuccessWithMessage(c, "not available on any tracked service", gin.H{
			"tmdb_id": tmdbID, "region": region, "available": false,
		})
		return
	}
	payload := gin.H{"tmdb_id": tmdbID, "region": region, "available": true, "providers": lists}
	utils.CacheSet(key, payload, streamingCacheTTL)
	utils.Success(c, payload)
}
