package videoRepo

import (
	"context"
	"fmt"
	"strings"

	"reelfeed/models"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreVideoRepo implements VideoSourceRepository on Cloud Firestore.
type FirestoreVideoRepo struct {
	client *firestore.Client
}

func NewFirestoreVideoRepo(client *firestore.Client) VideoSourceRepository {
	return &FirestoreVideoRepo{client: client}
}

func (r *FirestoreVideoRepo) ListCollectionGroup(ctx context.Context, group, orderField string, limit int) ([]models.RawDocument, error) {
	q := r.client.CollectionGroup(group).OrderBy(orderField, firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	var docs []models.RawDocument
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("FirestoreVideoRepo: list %s: %w", group, err)
		}
		docs = append(docs, toRawDocument(snap))
	}
	return docs, nil
}

func (r *FirestoreVideoRepo) GetDocument(ctx context.Context, collection, id string) (*models.RawDocument, error) {
	snap, err := r.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("FirestoreVideoRepo: get %s/%s: %w", collection, id, err)
	}
	doc := toRawDocument(snap)
	return &doc, nil
}

func toRawDocument(snap *firestore.DocumentSnapshot) models.RawDocument {
	return models.RawDocument{
		ID:   snap.Ref.ID,
		Path: RelativePath(snap.Ref.Path),
		Data: snap.Data(),
	}
}

// RelativePath strips the "projects/<p>/databases/<d>/documents/" prefix of a
// fully qualified document name.
func RelativePath(name string) string {
	const marker = "/documents/"
	if i := strings.Index(name, marker); i >= 0 {
		return name[i+len(marker):]
	}
	return name
}
