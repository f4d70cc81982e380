// Package vectorstore provides ports.VectorStore implementations: a
// Chroma REST adapter for production and an in-memory store for tests
// and degraded local runs.
package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/ahrav/go-tactician/internal/ports"
)

const (
	chromaAPIPrefix    = "/api/v1"
	chromaHTTPTimeout  = 15 * time.Second
	chromaMaxRetries   = 3
	chromaRetryInitial = 200 * time.Millisecond
)

// ChromaStore talks to a Chroma server over its REST API. Collection
// IDs are resolved lazily (get-or-create) and cached for the life of
// the store. Transient failures (connection errors, 5xx) are retried
// with exponential backoff before surfacing as UpstreamError.
type ChromaStore struct {
	baseURL    string
	httpClient *http.Client

	mu          sync.Mutex
	collections map[string]string // name -> collection ID
}

var _ ports.VectorStore = (*ChromaStore)(nil)

// NewChromaStore creates a store for the Chroma server at baseURL.
func NewChromaStore(baseURL string) *ChromaStore {
	return &ChromaStore{
		baseURL:     baseURL,
		httpClient:  &http.Client{Timeout: chromaHTTPTimeout},
		collections: make(map[string]string),
	}
}

// Upsert implements ports.VectorStore.
func (s *ChromaStore) Upsert(ctx context.Context, collection string, docs []ports.Document) error {
	if len(docs) == 0 {
		return nil
	}
	collID, err := s.collectionID(ctx, collection)
	if err != nil {
		return err
	}

	ids := make([]string, len(docs))
	documents := make([]string, len(docs))
	metadatas := make([]map[string]any, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
		documents[i] = d.Text
		metadatas[i] = d.Metadata
	}

	payload := map[string]any{
		"ids":       ids,
		"documents": documents,
		"metadatas": metadatas,
	}
	path := fmt.Sprintf("%s/collections/%s/upsert", chromaAPIPrefix, collID)
	return s.post(ctx, "upsert", path, payload, nil)
}

// Query implements ports.VectorStore.
func (s *ChromaStore) Query(ctx context.Context, collection, text string, k int, filter map[string]string) ([]ports.RetrievalResult, error) {
	collID, err := s.collectionID(ctx, collection)
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"query_texts": []string{text},
		"n_results":   k,
		"include":     []string{"documents", "metadatas", "distances"},
	}
	if len(filter) > 0 {
		where := make(map[string]any, len(filter))
		for key, value := range filter {
			where[key] = value
		}
		payload["where"] = where
	}

	var resp struct {
		Documents [][]string         `json:"documents"`
		Metadatas [][]map[string]any `json:"metadatas"`
		Distances [][]float64        `json:"distances"`
	}
	path := fmt.Sprintf("%s/collections/%s/query", chromaAPIPrefix, collID)
	if err := s.post(ctx, "query", path, payload, &resp); err != nil {
		return nil, err
	}

	if len(resp.Documents) == 0 {
		return nil, nil
	}
	docs := resp.Documents[0]
	results := make([]ports.RetrievalResult, len(docs))
	for i, doc := range docs {
		r := ports.RetrievalResult{Document: doc}
		if len(resp.Metadatas) > 0 && i < len(resp.Metadatas[0]) {
			r.Metadata = resp.Metadatas[0][i]
		}
		if len(resp.Distances) > 0 && i < len(resp.Distances[0]) {
			r.Distance = resp.Distances[0][i]
		}
		results[i] = r
	}
	return results, nil
}

// Heartbeat implements ports.VectorStore.
func (s *ChromaStore) Heartbeat(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+chromaAPIPrefix+"/heartbeat", nil)
	if err != nil {
		return err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return ports.NewUpstreamError("vectorstore", "heartbeat", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &ports.UpstreamError{
			Service:    "vectorstore",
			Operation:  "heartbeat",
			StatusCode: resp.StatusCode,
			Err:        ports.ErrUnavailable,
		}
	}
	return nil
}

// collectionID resolves a collection name to its server-side ID,
// creating the collection when it does not exist yet.
func (s *ChromaStore) collectionID(ctx context.Context, name string) (string, error) {
	s.mu.Lock()
	if id, ok := s.collections[name]; ok {
		s.mu.Unlock()
		return id, nil
	}
	s.mu.Unlock()

	var resp struct {
		ID string `json:"id"`
	}
	payload := map[string]any{"name": name, "get_or_create": true}
	if err := s.post(ctx, "get_or_create_collection", chromaAPIPrefix+"/collections", payload, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", ports.NewUpstreamError("vectorstore", "get_or_create_collection",
			fmt.Errorf("server returned no collection ID for %q", name))
	}

	s.mu.Lock()
	s.collections[name] = resp.ID
	s.mu.Unlock()
	return resp.ID, nil
}

// post sends a JSON POST with backoff on transient failures and decodes
// the response into out when non-nil.
func (s *ChromaStore) post(ctx context.Context, operation, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding %s payload: %w", operation, err)
	}

	attempt := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			return ports.NewUpstreamError("vectorstore", operation, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return &ports.UpstreamError{
				Service: "vectorstore", Operation: operation,
				StatusCode: resp.StatusCode, Err: ports.ErrUnavailable,
			}
		}
		if resp.StatusCode >= 400 {
			detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return backoff.Permanent(&ports.UpstreamError{
				Service: "vectorstore", Operation: operation,
				StatusCode: resp.StatusCode,
				Err:        fmt.Errorf("request rejected: %s", detail),
			})
		}

		if out != nil {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return backoff.Permanent(ports.NewUpstreamError("vectorstore", operation,
					fmt.Errorf("decoding response: %w", err)))
			}
		}
		return nil
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = chromaRetryInitial
	policy := backoff.WithContext(backoff.WithMaxRetries(expo, chromaMaxRetries), ctx)
	return backoff.Retry(attempt, policy)
}
