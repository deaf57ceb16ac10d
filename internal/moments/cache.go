package moments

import (
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/preston-bernstein/nba-live-service/internal/cache"
)

const (
	defaultRetention = 5 * time.Minute
	defaultGames     = 64
)

// Cache keeps each game's moments for a trailing retention window.
type Cache struct {
	store     *cache.Store[string, []Moment]
	retention time.Duration
	clock     clockwork.Clock
}

// NewCache holds moments for at most maxGames games, each pruned to retention.
func NewCache(retention time.Duration, maxGames int, clock clockwork.Clock) *Cache {
	if retention <= 0 {
		retention = defaultRetention
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Cache{
		store:     cache.New[string, []Moment](maxGames, 0, cache.WithClock[string, []Moment](clock)),
		retention: retention,
		clock:     clock,
	}
}

// Add stores m unless the game already holds a moment of the same type for the
// same event. It reports whether m was stored.
func (c *Cache) Add(m Moment) bool {
	added := false
	cutoff := c.clock.Now().Add(-c.retention)
	c.store.Update(m.GameID, func(current []Moment, _ bool) []Moment {
		kept := prune(current, cutoff)
		for _, existing := range kept {
			if existing.Event.Sequence == m.Event.Sequence && existing.Type == m.Type {
				return kept
			}
		}
		added = true
		return append(kept, m)
	})
	return added
}

// ForGame returns a copy of the game's moments inside the retention window, oldest first.
func (c *Cache) ForGame(gameID string) []Moment {
	entry, ok := c.store.Peek(gameID)
	if !ok {
		return []Moment{}
	}
	return prune(entry.Value, c.clock.Now().Add(-c.retention))
}

// Attach sets the explanation on a stored moment. It reports whether the moment was found.
func (c *Cache) Attach(gameID, momentID, text string) bool {
	if _, ok := c.store.Peek(gameID); !ok {
		return false
	}
	found := false
	c.store.Update(gameID, func(current []Moment, _ bool) []Moment {
		out := make([]Moment, len(current))
		copy(out, current)
		for i := range out {
			if out[i].ID == momentID {
				out[i].Explanation = text
				found = true
			}
		}
		return out
	})
	return found
}

// Prune drops moments older than the retention window and forgets empty games.
func (c *Cache) Prune() int {
	cutoff := c.clock.Now().Add(-c.retention)
	removed := 0
	for _, gameID := range c.store.Keys() {
		var empty bool
		c.store.Update(gameID, func(current []Moment, _ bool) []Moment {
			kept := prune(current, cutoff)
			removed += len(current) - len(kept)
			empty = len(kept) == 0
			return kept
		})
		if empty {
			c.store.Remove(gameID)
		}
	}
	return removed
}

// Len returns the number of games holding moments.
func (c *Cache) Len() int {
	return c.store.Len()
}

func prune(moments []Moment, cutoff time.Time) []Moment {
	out := make([]Moment, 0, len(moments))
	for _, m := range moments {
		if !m.DetectedAt.Before(cutoff) {
			out = append(out, m)
		}
	}
	return out
}
