package application

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ahrav/go-tactician/internal/domain"
	"github.com/ahrav/go-tactician/internal/ports"
)

// fakeStore is an in-memory ports.VectorStore for tests. Queries return
// the collection's documents in ID order, honoring metadata filters.
type fakeStore struct {
	mu          sync.Mutex
	collections map[string]map[string]ports.Document
	heartbeat   error
	upsertErr   error
	queryErr    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{collections: make(map[string]map[string]ports.Document)}
}

func (s *fakeStore) Upsert(_ context.Context, collection string, docs []ports.Document) error {
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	coll, ok := s.collections[collection]
	if !ok {
		coll = make(map[string]ports.Document)
		s.collections[collection] = coll
	}
	for _, d := range docs {
		coll[d.ID] = d
	}
	return nil
}

func (s *fakeStore) Query(_ context.Context, collection, _ string, k int, filter map[string]string) ([]ports.RetrievalResult, error) {
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.collections[collection]))
	for id := range s.collections[collection] {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var results []ports.RetrievalResult
	for _, id := range ids {
		doc := s.collections[collection][id]
		matched := true
		for key, want := range filter {
			if got, ok := doc.Metadata[key]; !ok || fmt.Sprintf("%v", got) != want {
				matched = false
				break
			}
		}
		if !matched {
			continue
		}
		results = append(results, ports.RetrievalResult{Document: doc.Text, Metadata: doc.Metadata})
		if len(results) == k {
			break
		}
	}
	return results, nil
}

func (s *fakeStore) Heartbeat(context.Context) error { return s.heartbeat }

func (s *fakeStore) get(collection, id string) (ports.Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.collections[collection][id]
	return doc, ok
}

func (s *fakeStore) size(collection string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.collections[collection])
}

// fakeLLM returns canned responses in order, then repeats the last one.
type fakeLLM struct {
	mu        sync.Mutex
	model     string
	responses []string
	err       error
	prompts   []string
	options   []map[string]any
}

func (f *fakeLLM) Complete(_ context.Context, prompt string, options map[string]any) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	f.options = append(f.options, options)
	if f.err != nil {
		return "", f.err
	}
	if len(f.responses) == 0 {
		return "", nil
	}
	resp := f.responses[0]
	if len(f.responses) > 1 {
		f.responses = f.responses[1:]
	}
	return resp, nil
}

func (f *fakeLLM) GetModel() string {
	if f.model == "" {
		return "gpt-4-turbo-preview"
	}
	return f.model
}

// fakeSource serves matches from a fixed map, with optional per-match
// failures.
type fakeSource struct {
	matchIDs   map[string][]string
	matches    map[string]domain.MatchRecord
	failing    map[string]error
	summoners  map[string]ports.Summoner
	leagues    map[ports.LeagueTier][]ports.LeagueEntry
	leagueErr  error
	idsErr     error
	idsErrFor  map[string]error
	configured bool
}

func (f *fakeSource) MatchIDs(_ context.Context, puuid string, _, count int) ([]string, error) {
	if f.idsErr != nil {
		return nil, f.idsErr
	}
	if err, ok := f.idsErrFor[puuid]; ok {
		return nil, err
	}
	ids := f.matchIDs[puuid]
	if len(ids) > count {
		ids = ids[:count]
	}
	return ids, nil
}

func (f *fakeSource) Match(_ context.Context, matchID string) (domain.MatchRecord, error) {
	if err, ok := f.failing[matchID]; ok {
		return domain.MatchRecord{}, err
	}
	match, ok := f.matches[matchID]
	if !ok {
		return domain.MatchRecord{}, ports.ErrNotFound
	}
	return match, nil
}

func (f *fakeSource) Summoner(_ context.Context, _, summonerID string) (ports.Summoner, error) {
	s, ok := f.summoners[summonerID]
	if !ok {
		return ports.Summoner{}, ports.ErrNotFound
	}
	return s, nil
}

func (f *fakeSource) LeagueEntries(_ context.Context, _ string, tier ports.LeagueTier) ([]ports.LeagueEntry, error) {
	if f.leagueErr != nil {
		return nil, f.leagueErr
	}
	return f.leagues[tier], nil
}

func (f *fakeSource) Configured() bool { return f.configured }

// fakeCache is an in-memory ports.MatchCache.
type fakeCache struct {
	mu      sync.Mutex
	records map[string]domain.MatchRecord
	getErr  error
	putErr  error
	allErr  error
}

func newFakeCache() *fakeCache {
	return &fakeCache{records: make(map[string]domain.MatchRecord)}
}

func (c *fakeCache) Get(_ context.Context, matchID string) (domain.MatchRecord, bool, error) {
	if c.getErr != nil {
		return domain.MatchRecord{}, false, c.getErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.records[matchID]
	return m, ok, nil
}

func (c *fakeCache) Put(_ context.Context, match domain.MatchRecord) error {
	if c.putErr != nil {
		return c.putErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.records[match.MatchID]; !exists {
		c.records[match.MatchID] = match
	}
	return nil
}

func (c *fakeCache) All(_ context.Context) ([]domain.MatchRecord, error) {
	if c.allErr != nil {
		return nil, c.allErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(c.records))
	for id := range c.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]domain.MatchRecord, 0, len(ids))
	for _, id := range ids {
		out = append(out, c.records[id])
	}
	return out, nil
}

func (c *fakeCache) Count(_ context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records), nil
}

// fakeMetrics records metric names for assertions.
type fakeMetrics struct {
	mu       sync.Mutex
	counters []string
	gauges   []string
	timings  []string
}

func (m *fakeMetrics) RecordLatency(operation string, _ time.Duration, _ map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timings = append(m.timings, operation)
}

func (m *fakeMetrics) RecordCounter(metric string, _ float64, _ map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters = append(m.counters, metric)
}

func (m *fakeMetrics) RecordGauge(metric string, _ float64, _ map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gauges = append(m.gauges, metric)
}

func (m *fakeMetrics) counted(metric string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.counters {
		if strings.HasPrefix(c, metric) {
			return true
		}
	}
	return false
}
