package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	videoRepo "reelfeed/database/repository/video"
	"reelfeed/models"
)

// fakeSourceRepo serves collection groups and user documents from memory.
type fakeSourceRepo struct {
	mu       sync.Mutex
	groups   map[string][]models.RawDocument
	groupErr map[string]error
	users    map[string]map[string]interface{}
	userErr  map[string]error
	lookups  map[string]int
}

func newFakeSourceRepo() *fakeSourceRepo {
	return &fakeSourceRepo{
		groups:   make(map[string][]models.RawDocument),
		groupErr: make(map[string]error),
		users:    make(map[string]map[string]interface{}),
		userErr:  make(map[string]error),
		lookups:  make(map[string]int),
	}
}

func (f *fakeSourceRepo) add(group, authorID, docID string, data map[string]interface{}) {
	f.groups[group] = append(f.groups[group], models.RawDocument{
		ID:   docID,
		Path: fmt.Sprintf("users/%s/%s/%s", authorID, group, docID),
		Data: data,
	})
}

func (f *fakeSourceRepo) ListCollectionGroup(_ context.Context, group, _ string, _ int) ([]models.RawDocument, error) {
	if err := f.groupErr[group]; err != nil {
		return nil, err
	}
	return f.groups[group], nil
}

func (f *fakeSourceRepo) GetDocument(_ context.Context, collection, id string) (*models.RawDocument, error) {
	f.mu.Lock()
	f.lookups[collection+"/"+id]++
	f.mu.Unlock()

	if err := f.userErr[id]; err != nil {
		return nil, err
	}
	data, ok := f.users[id]
	if !ok {
		return nil, videoRepo.ErrDocumentNotFound
	}
	return &models.RawDocument{ID: id, Path: collection + "/" + id, Data: data}, nil
}

func (f *fakeSourceRepo) lookupCount(authorID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lookups["users/"+authorID]
}

// memorySessionStore is an in-process SessionStore.
type memorySessionStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemorySessionStore() *memorySessionStore {
	return &memorySessionStore{data: make(map[string]string)}
}

func (m *memorySessionStore) Get(_ context.Context, key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok
}

func (m *memorySessionStore) Set(_ context.Context, key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
}

// testClock is a settable clock.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(t time.Time) *testClock { return &testClock{now: t} }

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

var testEpoch = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func item(id, author string, created time.Time) models.CandidateItem {
	return models.CandidateItem{
		ID:        id,
		AuthorID:  author,
		MediaURL:  "https://cdn.example.com/" + id + ".mp4",
		CreatedAt: created,
		Hashtags:  []string{},
	}
}

func ids(items []models.CandidateItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}
