// Package moments detects notable plays from ordered play-by-play streams.
package moments

import (
	"time"

	"github.com/preston-bernstein/nba-live-service/internal/domain/games"
)

// Type names a detected moment.
type Type string

const (
	TypeTie        Type = "tie"
	TypeLeadChange Type = "lead_change"
	TypeRun        Type = "run"
	TypeClutch     Type = "clutch"
	TypeBigShot    Type = "big_shot"
)

// Moment is one detected event. Explanation arrives later, if at all.
type Moment struct {
	ID          string          `json:"id"`
	GameID      string          `json:"gameId"`
	Type        Type            `json:"type"`
	Event       games.PlayEvent `json:"event"`
	DetectedAt  time.Time       `json:"detectedAt"`
	Explanation string          `json:"explanation,omitempty"`
}
