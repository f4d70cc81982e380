// Package riot implements ports.MatchSource against the Riot TFT API.
// Match endpoints route through a regional host, summoner and league
// endpoints through a platform host, and every request waits on a
// shared pacing limiter so the provider's rate limit is respected
// across concurrent ingestion sweeps.
package riot

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/ahrav/go-tactician/internal/domain"
	"github.com/ahrav/go-tactician/internal/ports"
)

var regionalHosts = map[string]string{
	"americas": "https://americas.api.riotgames.com",
	"europe":   "https://europe.api.riotgames.com",
	"asia":     "https://asia.api.riotgames.com",
}

var platformHosts = map[string]string{
	"na1":  "https://na1.api.riotgames.com",
	"euw1": "https://euw1.api.riotgames.com",
	"kr":   "https://kr.api.riotgames.com",
}

const defaultHTTPTimeout = 10 * time.Second

// Client is a paced Riot TFT API client.
type Client struct {
	apiKey     string
	region     string
	httpClient *http.Client
	limiter    *rate.Limiter

	// baseOverride routes every request to one host, for tests.
	baseOverride string
}

var _ ports.MatchSource = (*Client)(nil)

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL routes all requests to a single host, overriding the
// regional and platform tables.
func WithBaseURL(base string) Option {
	return func(c *Client) { c.baseOverride = base }
}

// WithHTTPClient substitutes the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a client for the given regional routing value
// ("americas", "europe", "asia") with the given minimum spacing between
// requests.
func NewClient(apiKey, region string, minDelay time.Duration, opts ...Option) *Client {
	limit := rate.Inf
	if minDelay > 0 {
		limit = rate.Every(minDelay)
	}
	c := &Client{
		apiKey:     apiKey,
		region:     region,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		limiter:    rate.NewLimiter(limit, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured implements ports.MatchSource.
func (c *Client) Configured() bool { return c.apiKey != "" }

// MatchIDs implements ports.MatchSource.
func (c *Client) MatchIDs(ctx context.Context, puuid string, start, count int) ([]string, error) {
	endpoint := fmt.Sprintf("%s/tft/match/v1/matches/by-puuid/%s/ids", c.regionalBase(), url.PathEscape(puuid))
	query := url.Values{
		"start": {strconv.Itoa(start)},
		"count": {strconv.Itoa(count)},
	}

	var ids []string
	if err := c.getJSON(ctx, "match_ids", endpoint+"?"+query.Encode(), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// Match implements ports.MatchSource.
func (c *Client) Match(ctx context.Context, matchID string) (domain.MatchRecord, error) {
	endpoint := fmt.Sprintf("%s/tft/match/v1/matches/%s", c.regionalBase(), url.PathEscape(matchID))

	var envelope matchEnvelope
	if err := c.getJSON(ctx, "match", endpoint, &envelope); err != nil {
		return domain.MatchRecord{}, err
	}
	return envelope.toDomain(), nil
}

// Summoner implements ports.MatchSource.
func (c *Client) Summoner(ctx context.Context, platform, summonerID string) (ports.Summoner, error) {
	endpoint := fmt.Sprintf("%s/tft/summoner/v1/summoners/%s", c.platformBase(platform), url.PathEscape(summonerID))

	var resp summonerResponse
	if err := c.getJSON(ctx, "summoner", endpoint, &resp); err != nil {
		return ports.Summoner{}, err
	}
	return ports.Summoner{PUUID: resp.PUUID, Name: resp.Name}, nil
}

// LeagueEntries implements ports.MatchSource.
func (c *Client) LeagueEntries(ctx context.Context, platform string, tier ports.LeagueTier) ([]ports.LeagueEntry, error) {
	endpoint := fmt.Sprintf("%s/tft/league/v1/%s", c.platformBase(platform), tier)

	var list leagueList
	if err := c.getJSON(ctx, "league_entries", endpoint, &list); err != nil {
		return nil, err
	}

	entries := make([]ports.LeagueEntry, len(list.Entries))
	for i, e := range list.Entries {
		entries[i] = ports.LeagueEntry{SummonerID: e.SummonerID, LeaguePoints: e.LeaguePoints}
	}
	return entries, nil
}

// getJSON waits for pacing, performs an authenticated GET, and decodes
// the JSON body into out.
func (c *Client) getJSON(ctx context.Context, operation, endpoint string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("provider pacing: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("X-Riot-Token", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ports.NewUpstreamError("riot", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &ports.UpstreamError{
			Service:    "riot",
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Err:        statusError(resp.StatusCode),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return ports.NewUpstreamError("riot", operation, fmt.Errorf("decoding response: %w", err))
	}
	return nil
}

func (c *Client) regionalBase() string {
	if c.baseOverride != "" {
		return c.baseOverride
	}
	if host, ok := regionalHosts[c.region]; ok {
		return host
	}
	return regionalHosts["americas"]
}

func (c *Client) platformBase(platform string) string {
	if c.baseOverride != "" {
		return c.baseOverride
	}
	if host, ok := platformHosts[platform]; ok {
		return host
	}
	return platformHosts["na1"]
}

func statusError(status int) error {
	switch {
	case status == http.StatusNotFound:
		return ports.ErrNotFound
	case status == http.StatusTooManyRequests:
		return ports.ErrRateLimited
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ports.ErrUnauthorized
	case status >= 500:
		return ports.ErrUnavailable
	default:
		return fmt.Errorf("unexpected status %d", status)
	}
}
