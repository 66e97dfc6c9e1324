// File: reelfeed/handlers/bundle.go
package handlers

import (
	"github.com/gin-gonic/gin"
)

// HandlerBundle groups all endpoint handlers into one struct.
type HandlerBundle struct {
	// Viewer identity middleware applied to feed endpoints.
	ViewerAuth gin.HandlerFunc

	// Feed endpoints
	GetFeedHandler       gin.HandlerFunc
	GetCachedFeedHandler gin.HandlerFunc
	PrimeFeedHandler     gin.HandlerFunc
	RecordSeenHandler    gin.HandlerFunc
}
