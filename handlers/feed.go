package handlers

import (
	"net/http"
	"strconv"

	"reelfeed/models"
	"reelfeed/services/feed"
	"reelfeed/services/viewer"
	"reelfeed/utils"

	"github.com/gin-gonic/gin"
)

// FeedHandler exposes the feed facade over HTTP.
type FeedHandler struct {
	FeedSvc   feed.FeedService
	ViewerSvc viewer.ViewerService
}

func NewFeedHandler(feedSvc feed.FeedService, viewerSvc viewer.ViewerService) *FeedHandler {
	return &FeedHandler{FeedSvc: feedSvc, ViewerSvc: viewerSvc}
}

type recordSeenRequest struct {
	VideoIDs []string `json:"videoIds" binding:"required,min=1,max=100"`
}

func (h *FeedHandler) viewerContext(c *gin.Context) models.ViewerContext {
	return h.ViewerSvc.BuildContext(c.Request.Context(), c.GetString(utils.ViewerIDKey), c.GetString(utils.SessionIDKey))
}

// GetFeedHandler returns the ranked feed. ?refresh=true forces a rebuild.
func (h *FeedHandler) GetFeedHandler(c *gin.Context) {
	force := false
	if raw := c.Query("refresh"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			utils.JSONError(c, http.StatusBadRequest, "invalid refresh flag", err.Error())
			return
		}
		force = parsed
	}

	result := h.FeedSvc.Fetch(c.Request.Context(), h.viewerContext(c), force)
	c.JSON(http.StatusOK, gin.H{
		"status":    result.Status,
		"items":     result.Items,
		"count":     len(result.Items),
		"updatedAt": result.UpdatedAt,
		"fromCache": result.FromCache,
	})
}

// GetCachedFeedHandler returns the cached feed without rebuilding it.
func (h *FeedHandler) GetCachedFeedHandler(c *gin.Context) {
	items := h.FeedSvc.ReadCachedOnly(c.Request.Context(), h.viewerContext(c))
	c.JSON(http.StatusOK, gin.H{"items": items, "count": len(items)})
}

// PrimeFeedHandler starts warming the viewer's feed and returns immediately.
func (h *FeedHandler) PrimeFeedHandler(c *gin.Context) {
	h.FeedSvc.PrimeCache(h.viewerContext(c))
	c.JSON(http.StatusAccepted, gin.H{"message": "feed warming started"})
}

// RecordSeenHandler stores watched video ids for the signed-in viewer.
func (h *FeedHandler) RecordSeenHandler(c *gin.Context) {
	viewerID := c.GetString(utils.ViewerIDKey)
	if viewerID == "" {
		utils.JSONError(c, http.StatusUnauthorized, "sign in required", "guests have no watch history")
		return
	}

	var req recordSeenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	if err := h.ViewerSvc.RecordSeen(c.Request.Context(), viewerID, req.VideoIDs); err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to record seen videos", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"recorded": len(req.VideoIDs)})
}
