package content

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"

	"github.com/roofix-au/siteserver/internal/config"
	"github.com/roofix-au/siteserver/internal/store"
)

type stubStore struct {
	collections     map[string][]store.Record
	documents       map[string]store.Record
	err             error
	collectionCalls atomic.Int64
	documentCalls   atomic.Int64
}

func (s *stubStore) Collection(_ context.Context, name string) ([]store.Record, error) {
	s.collectionCalls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return s.collections[name], nil
}

func (s *stubStore) Document(_ context.Context, id string) (store.Record, error) {
	s.documentCalls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	doc, ok := s.documents[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return doc, nil
}

func (s *stubStore) PutDocument(_ context.Context, id string, doc store.Record) error {
	if s.err != nil {
		return s.err
	}
	if s.documents == nil {
		s.documents = map[string]store.Record{}
	}
	s.documents[id] = doc
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func testCfg() *config.ContentCfg {
	return &config.ContentCfg{TTL: config.Duration(5 * time.Minute), RealtimeTTL: config.Duration(18 * time.Second)}
}

func service(id, slug, title string, order any) store.Record {
	r := store.Record{"_id": id, "slug": slug, "title": title}
	if order != nil {
		r["order"] = order
	}
	return r
}

func TestCollectionServedFromCacheWithinTTL(t *testing.T) {
	st := &stubStore{collections: map[string][]store.Record{
		CollectionServices: {service("s1", "gutter-cleaning", "Gutter Cleaning", 1.0)},
	}}
	c := New(testCfg(), st, clock.NewMock(), testLogger())

	for i := 0; i < 100; i++ {
		got := c.GetCollection(t.Context(), CollectionServices)
		require.Len(t, got, 1)
	}
	require.Equal(t, int64(1), st.collectionCalls.Load())
}

func TestCollectionExpiryEdge(t *testing.T) {
	mock := clock.NewMock()
	st := &stubStore{collections: map[string][]store.Record{
		CollectionServices: {service("s1", "re-roofing", "Re-Roofing", 1.0)},
	}}
	c := New(testCfg(), st, mock, testLogger())

	c.GetCollection(t.Context(), CollectionServices)
	require.Equal(t, int64(1), st.collectionCalls.Load())

	// One millisecond before the deadline is still a hit.
	mock.Add(5*time.Minute - time.Millisecond)
	c.GetCollection(t.Context(), CollectionServices)
	require.Equal(t, int64(1), st.collectionCalls.Load())

	// Two more put us past the deadline.
	mock.Add(2 * time.Millisecond)
	c.GetCollection(t.Context(), CollectionServices)
	require.Equal(t, int64(2), st.collectionCalls.Load())
}

func TestEmptyCollectionNotCached(t *testing.T) {
	st := &stubStore{collections: map[string][]store.Record{CollectionProjects: {}}}
	c := New(testCfg(), st, clock.NewMock(), testLogger())

	require.Empty(t, c.GetCollection(t.Context(), CollectionProjects))
	require.Empty(t, c.GetCollection(t.Context(), CollectionProjects))
	require.Equal(t, int64(2), st.collectionCalls.Load())
}

func TestCollectionSortOrder(t *testing.T) {
	st := &stubStore{collections: map[string][]store.Record{
		CollectionServices: {
			service("b", "b-slug", "B", 2.0),
			service("a", "a-slug", "A", nil),
			service("c", "c-slug", "C", 0.0),
			service("d", "d-slug", "D", nil),
		},
	}}
	c := New(testCfg(), st, clock.NewMock(), testLogger())

	got := c.GetCollection(t.Context(), CollectionServices)
	require.Len(t, got, 4)

	ids := make([]string, 0, len(got))
	for _, e := range got {
		ids = append(ids, e.EntityID())
	}
	require.Equal(t, []string{"c", "b", "a", "d"}, ids)
}

func TestMalformedRecordsDropped(t *testing.T) {
	st := &stubStore{collections: map[string][]store.Record{
		CollectionServices: {
			store.Record{"_id": "1", "slug": "a", "title": "A"},
			store.Record{"_id": "2", "title": "no slug"},
			store.Record{"_id": "3", "slug": "c", "title": "C"},
		},
	}}
	c := New(testCfg(), st, clock.NewMock(), testLogger())

	got := c.GetCollection(t.Context(), CollectionServices)
	require.Len(t, got, 2)
	require.Equal(t, "a", got[0].(Service).Slug)
	require.Equal(t, "c", got[1].(Service).Slug)

	_, _, _, dropped := c.Stats()
	require.Equal(t, int64(1), dropped)
}

func TestInvalidateAllForcesRefetch(t *testing.T) {
	mock := clock.NewMock()
	st := &stubStore{
		collections: map[string][]store.Record{
			CollectionServices: {service("s1", "repairs", "Roof Repairs", 1.0)},
		},
		documents: map[string]store.Record{PageHome: {"headline": "Roofs done right"}},
	}
	c := New(testCfg(), st, mock, testLogger())

	c.GetCollection(t.Context(), CollectionServices)
	c.GetSingleton(t.Context(), PageHome)
	mock.Add(time.Millisecond)

	c.InvalidateAll()

	c.GetCollection(t.Context(), CollectionServices)
	c.GetSingleton(t.Context(), PageHome)
	require.Equal(t, int64(2), st.collectionCalls.Load())
	require.Equal(t, int64(2), st.documentCalls.Load())
}

// gatedStore parks the first read between the upstream fetch and its
// return, so a test can run InvalidateAll while a fill is in flight.
type gatedStore struct {
	stubStore
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (s *gatedStore) gate() {
	var first bool
	s.once.Do(func() { first = true })
	if first {
		close(s.entered)
		<-s.release
	}
}

func (s *gatedStore) Collection(ctx context.Context, name string) ([]store.Record, error) {
	records, err := s.stubStore.Collection(ctx, name)
	s.gate()
	return records, err
}

func (s *gatedStore) Document(ctx context.Context, id string) (store.Record, error) {
	doc, err := s.stubStore.Document(ctx, id)
	s.gate()
	return doc, err
}

func TestCollectionFetchCrossingInvalidationNotCached(t *testing.T) {
	st := &gatedStore{
		stubStore: stubStore{collections: map[string][]store.Record{
			CollectionServices: {service("s1", "repairs", "Roof Repairs", 1.0)},
		}},
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	c := New(testCfg(), st, clock.NewMock(), testLogger())

	done := make(chan struct{})
	go func() {
		defer close(done)
		got := c.GetCollection(t.Context(), CollectionServices)
		require.Equal(t, "Roof Repairs", got[0].(Service).Title)
	}()

	// The fill is parked with the pre-write snapshot in hand. The admin
	// write lands and is acknowledged: content swapped, cache dropped.
	<-st.entered
	st.collections[CollectionServices] = []store.Record{service("s1", "repairs", "Roof Repairs v2", 1.0)}
	c.InvalidateAll()
	close(st.release)
	<-done

	// A read after the ack must see the written content, not a cached
	// copy of the in-flight snapshot.
	got := c.GetCollection(t.Context(), CollectionServices)
	require.Equal(t, "Roof Repairs v2", got[0].(Service).Title)
	require.Equal(t, int64(2), st.collectionCalls.Load())
}

func TestSingletonFetchCrossingInvalidationNotCached(t *testing.T) {
	st := &gatedStore{
		stubStore: stubStore{documents: map[string]store.Record{
			PageHome: {"headline": "old"},
		}},
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	c := New(testCfg(), st, clock.NewMock(), testLogger())

	done := make(chan struct{})
	go func() {
		defer close(done)
		doc, ok := c.GetSingleton(t.Context(), PageHome)
		require.True(t, ok)
		require.Equal(t, "old", doc["headline"])
	}()

	<-st.entered
	st.documents[PageHome] = store.Record{"headline": "new"}
	c.InvalidateAll()
	close(st.release)
	<-done

	doc, ok := c.GetSingleton(t.Context(), PageHome)
	require.True(t, ok)
	require.Equal(t, "new", doc["headline"])
	require.Equal(t, int64(2), st.documentCalls.Load())
}

func TestInvalidateAllIdempotent(t *testing.T) {
	c := New(testCfg(), &stubStore{}, clock.NewMock(), testLogger())
	c.InvalidateAll()
	c.InvalidateAll()
	require.Zero(t, c.Len())
}

func TestStoreFailureYieldsEmptyAndIsNotCached(t *testing.T) {
	st := &stubStore{err: errors.New("connection refused")}
	c := New(testCfg(), st, clock.NewMock(), testLogger())

	require.Empty(t, c.GetCollection(t.Context(), CollectionTestimonials))
	require.Empty(t, c.GetCollection(t.Context(), CollectionTestimonials))
	require.Equal(t, int64(2), st.collectionCalls.Load())

	_, _, fetchErrors, _ := c.Stats()
	require.Equal(t, int64(2), fetchErrors)
}

func TestUnknownCollectionYieldsEmpty(t *testing.T) {
	st := &stubStore{}
	c := New(testCfg(), st, clock.NewMock(), testLogger())

	require.Empty(t, c.GetCollection(t.Context(), "weather"))
	require.Zero(t, st.collectionCalls.Load())
}

func TestSingletonCachesNotFound(t *testing.T) {
	st := &stubStore{}
	c := New(testCfg(), st, clock.NewMock(), testLogger())

	for i := 0; i < 10; i++ {
		_, ok := c.GetSingleton(t.Context(), PageAbout)
		require.False(t, ok)
	}
	require.Equal(t, int64(1), st.documentCalls.Load())
}

func TestSingletonFailureNotCached(t *testing.T) {
	st := &stubStore{err: errors.New("timeout")}
	c := New(testCfg(), st, clock.NewMock(), testLogger())

	_, ok := c.GetSingleton(t.Context(), PageContact)
	require.False(t, ok)
	_, ok = c.GetSingleton(t.Context(), PageContact)
	require.False(t, ok)
	require.Equal(t, int64(2), st.documentCalls.Load())
}

func TestSingletonExpiryEdge(t *testing.T) {
	mock := clock.NewMock()
	st := &stubStore{documents: map[string]store.Record{PageHome: {"headline": "hi"}}}
	c := New(testCfg(), st, mock, testLogger())

	doc, ok := c.GetSingleton(t.Context(), PageHome)
	require.True(t, ok)
	require.Equal(t, "hi", doc["headline"])

	mock.Add(5*time.Minute - time.Millisecond)
	c.GetSingleton(t.Context(), PageHome)
	require.Equal(t, int64(1), st.documentCalls.Load())

	mock.Add(2 * time.Millisecond)
	c.GetSingleton(t.Context(), PageHome)
	require.Equal(t, int64(2), st.documentCalls.Load())
}
