package vectorstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-tactician/internal/ports"
)

// fakeChroma emulates the Chroma REST surface the adapter touches.
type fakeChroma struct {
	mux         *http.ServeMux
	collections atomic.Int32
	upserts     atomic.Int32
	queries     atomic.Int32
	lastUpsert  map[string]any
	lastQuery   map[string]any
}

func newFakeChroma() *fakeChroma {
	f := &fakeChroma{mux: http.NewServeMux()}

	f.mux.HandleFunc("GET /api/v1/heartbeat", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"nanosecond heartbeat": 1}`))
	})
	f.mux.HandleFunc("POST /api/v1/collections", func(w http.ResponseWriter, r *http.Request) {
		f.collections.Add(1)
		var payload map[string]any
		_ = json.NewDecoder(r.Body).Decode(&payload)
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "coll-" + payload["name"].(string)})
	})
	f.mux.HandleFunc("POST /api/v1/collections/{id}/upsert", func(w http.ResponseWriter, r *http.Request) {
		f.upserts.Add(1)
		_ = json.NewDecoder(r.Body).Decode(&f.lastUpsert)
		w.WriteHeader(http.StatusCreated)
	})
	f.mux.HandleFunc("POST /api/v1/collections/{id}/query", func(w http.ResponseWriter, r *http.Request) {
		f.queries.Add(1)
		_ = json.NewDecoder(r.Body).Decode(&f.lastQuery)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"documents": [][]string{{"doc one", "doc two"}},
			"metadatas": [][]map[string]any{{{"version_tag": "12.1"}, {"version_tag": "12.1"}}},
			"distances": [][]float64{{0.1, 0.4}},
		})
	})
	return f
}

func newChromaTestPair(t *testing.T) (*ChromaStore, *fakeChroma) {
	t.Helper()
	fake := newFakeChroma()
	server := httptest.NewServer(fake.mux)
	t.Cleanup(server.Close)
	return NewChromaStore(server.URL), fake
}

// TestChromaUpsert verifies the upsert payload shape and collection ID
// caching.
func TestChromaUpsert(t *testing.T) {
	ctx := context.Background()
	store, fake := newChromaTestPair(t)

	docs := []ports.Document{
		{ID: "c1", Text: "doc one", Metadata: map[string]any{"version_tag": "12.1"}},
	}
	require.NoError(t, store.Upsert(ctx, "compositions", docs))
	require.NoError(t, store.Upsert(ctx, "compositions", docs))

	assert.Equal(t, int32(1), fake.collections.Load(), "collection ID should be resolved once")
	assert.Equal(t, int32(2), fake.upserts.Load())

	assert.Equal(t, []any{"c1"}, fake.lastUpsert["ids"])
	assert.Equal(t, []any{"doc one"}, fake.lastUpsert["documents"])

	t.Run("empty upsert is a no-op", func(t *testing.T) {
		require.NoError(t, store.Upsert(ctx, "compositions", nil))
		assert.Equal(t, int32(2), fake.upserts.Load())
	})
}

// TestChromaQuery verifies query payload construction and the unpacking
// of nested result arrays.
func TestChromaQuery(t *testing.T) {
	ctx := context.Background()
	store, fake := newChromaTestPair(t)

	results, err := store.Query(ctx, "compositions", "ahri mages", 2, map[string]string{"version_tag": "12.1"})
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, "doc one", results[0].Document)
	assert.InDelta(t, 0.1, results[0].Distance, 1e-9)
	assert.Equal(t, "12.1", results[0].Metadata["version_tag"])

	assert.Equal(t, []any{"ahri mages"}, fake.lastQuery["query_texts"])
	assert.Equal(t, float64(2), fake.lastQuery["n_results"])
	where, ok := fake.lastQuery["where"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "12.1", where["version_tag"])
}

// TestChromaHeartbeat verifies reachability probing.
func TestChromaHeartbeat(t *testing.T) {
	ctx := context.Background()

	t.Run("reachable server", func(t *testing.T) {
		store, _ := newChromaTestPair(t)
		assert.NoError(t, store.Heartbeat(ctx))
	})

	t.Run("unreachable server", func(t *testing.T) {
		store := NewChromaStore("http://127.0.0.1:1")
		err := store.Heartbeat(ctx)
		var upstream *ports.UpstreamError
		require.ErrorAs(t, err, &upstream)
		assert.Equal(t, "vectorstore", upstream.Service)
	})
}

// TestChromaRetries verifies that 5xx responses are retried and 4xx
// responses are not.
func TestChromaRetries(t *testing.T) {
	ctx := context.Background()

	t.Run("transient 5xx recovers", func(t *testing.T) {
		var calls atomic.Int32
		mux := http.NewServeMux()
		mux.HandleFunc("POST /api/v1/collections", func(w http.ResponseWriter, _ *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"id": "coll-1"})
		})
		mux.HandleFunc("POST /api/v1/collections/{id}/upsert", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		server := httptest.NewServer(mux)
		t.Cleanup(server.Close)

		store := NewChromaStore(server.URL)
		err := store.Upsert(ctx, "compositions", []ports.Document{{ID: "c1", Text: "doc"}})
		require.NoError(t, err)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("4xx fails immediately", func(t *testing.T) {
		var calls atomic.Int32
		mux := http.NewServeMux()
		mux.HandleFunc("POST /api/v1/collections", func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			http.Error(w, "bad request", http.StatusBadRequest)
		})
		server := httptest.NewServer(mux)
		t.Cleanup(server.Close)

		store := NewChromaStore(server.URL)
		err := store.Upsert(ctx, "compositions", []ports.Document{{ID: "c1", Text: "doc"}})

		var upstream *ports.UpstreamError
		require.ErrorAs(t, err, &upstream)
		assert.Equal(t, http.StatusBadRequest, upstream.StatusCode)
		assert.Equal(t, int32(1), calls.Load())
	})
}
