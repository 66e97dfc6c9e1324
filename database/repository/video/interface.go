package videoRepo

import (
	"context"
	"errors"

	"reelfeed/models"
)

// ErrDocumentNotFound is returned by point reads for a missing document.
var ErrDocumentNotFound = errors.New("document not found")

// VideoSourceRepository reads the content collections the feed is built from.
type VideoSourceRepository interface {
	// ListCollectionGroup returns every document of a collection group ordered by
	// orderField, newest first. A limit of 0 reads the whole group.
	ListCollectionGroup(ctx context.Context, group, orderField string, limit int) ([]models.RawDocument, error)
	// GetDocument reads collection/id.
	GetDocument(ctx context.Context, collection, id string) (*models.RawDocument, error)
}
