package balldontlie

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/preston-bernstein/nba-live-service/internal/domain/games"
	"github.com/preston-bernstein/nba-live-service/internal/providers"
	"github.com/preston-bernstein/nba-live-service/internal/timeutil"
)

// Config controls how the balldontlie client reaches the upstream API.
type Config struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Timezone   string
	MaxPages   int
}

// Client fetches games and play-by-play from the balldontlie API and maps them to domain models.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient httpDoer
	now        func() time.Time
	loc        *time.Location
	maxPages   int

	mu    sync.Mutex
	sides map[int]teamSides
}

// NewClient constructs a balldontlie client with the provided configuration.
func NewClient(cfg Config) *Client {
	return &Client{
		baseURL:    normalizeBaseURL(cfg.BaseURL),
		apiKey:     cfg.APIKey,
		httpClient: resolveHTTPClient(cfg.HTTPClient),
		now:        time.Now,
		loc:        resolveLocation(cfg.Timezone),
		maxPages:   resolveMaxPages(cfg.MaxPages),
		sides:      make(map[int]teamSides),
	}
}

// FetchScoreboard retrieves tonight's games in the configured timezone.
func (c *Client) FetchScoreboard(ctx context.Context) ([]games.Game, error) {
	date := timeutil.GameDate(c.now(), c.loc)

	page := 1
	all := make([]games.Game, 0)
	sides := make(map[int]teamSides)

	for {
		q := make(map[string]string, 3)
		q["dates[]"] = date
		q["per_page"] = strconv.Itoa(defaultPerPage)
		q["page"] = strconv.Itoa(page)

		var payload gamesResponse
		if err := c.get(ctx, "/games", q, &payload); err != nil {
			return nil, err
		}

		for _, g := range payload.Data {
			all = append(all, mapGame(g))
			sides[g.ID] = teamSides{home: g.HomeTeam.ID, away: g.VisitorTeam.ID}
		}

		totalPages := payload.Meta.TotalPages
		if totalPages > 0 {
			if page >= totalPages {
				break
			}
		} else if len(payload.Data) < defaultPerPage {
			break
		}
		if page >= c.maxPages {
			break
		}
		page++
	}

	c.mu.Lock()
	c.sides = sides
	c.mu.Unlock()

	return all, nil
}

// FetchEvents retrieves the full play-by-play stream for one game.
func (c *Client) FetchEvents(ctx context.Context, gameID string) ([]games.PlayEvent, error) {
	id, ok := upstreamID(gameID)
	if !ok {
		return nil, fmt.Errorf("balldontlie: %w: %q", providers.ErrGameNotFound, gameID)
	}

	var plays []playResponse
	cursor := 0
	for page := 0; page < c.maxPages; page++ {
		q := map[string]string{
			"game_id":  strconv.Itoa(id),
			"per_page": strconv.Itoa(defaultPerPage),
		}
		if cursor > 0 {
			q["cursor"] = strconv.Itoa(cursor)
		}

		var payload playsResponse
		if err := c.get(ctx, "/plays", q, &payload); err != nil {
			return nil, err
		}
		plays = append(plays, payload.Data...)
		if payload.Meta.NextCursor == 0 || len(payload.Data) == 0 {
			break
		}
		cursor = payload.Meta.NextCursor
	}

	c.mu.Lock()
	sides, known := c.sides[id]
	c.mu.Unlock()
	if !known {
		return mapPlays(gameID, plays, nil), nil
	}
	return mapPlays(gameID, plays, &sides), nil
}

func (c *Client) get(ctx context.Context, path string, query map[string]string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	q := req.URL.Query()
	for k, v := range query {
		q.Set(k, v)
	}
	req.URL.RawQuery = q.Encode()

	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		return &providers.RateLimitError{
			Provider:   providerName,
			StatusCode: resp.StatusCode,
			RetryAfter: providers.ParseRetryAfter(resp.Header.Get("Retry-After"), c.now(), defaultRetryAfter),
			Remaining:  resp.Header.Get("X-RateLimit-Remaining"),
			Message:    "balldontlie rate limited",
		}
	case http.StatusNotFound:
		return fmt.Errorf("balldontlie: %s: %w", path, providers.ErrGameNotFound)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errBodyLimit))
		return fmt.Errorf("balldontlie: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("balldontlie: decode %s: %w", path, err)
	}
	return nil
}
