package games

import (
	"strconv"
	"strings"
)

// Side identifies which team an event belongs to.
type Side string

const (
	SideNone Side = ""
	SideHome Side = "home"
	SideAway Side = "away"
)

// Opponent returns the other side; SideNone stays SideNone.
func (s Side) Opponent() Side {
	switch s {
	case SideHome:
		return SideAway
	case SideAway:
		return SideHome
	default:
		return SideNone
	}
}

// ActionType is the normalized play-by-play action.
type ActionType string

const (
	ActionMadeShot        ActionType = "made_shot"
	ActionMissedShot      ActionType = "missed_shot"
	ActionFreeThrowMade   ActionType = "free_throw_made"
	ActionFreeThrowMissed ActionType = "free_throw_missed"
	ActionRebound         ActionType = "rebound"
	ActionTurnover        ActionType = "turnover"
	ActionFoul            ActionType = "foul"
	ActionTimeout         ActionType = "timeout"
	ActionSubstitution    ActionType = "substitution"
	ActionPeriodStart     ActionType = "period_start"
	ActionPeriodEnd       ActionType = "period_end"
	ActionOther           ActionType = "other"
)

// ParseAction normalizes an upstream action label. Unknown labels map to ActionOther.
func ParseAction(raw string) ActionType {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "made_shot", "made shot", "shot made", "field goal made", "fgm":
		return ActionMadeShot
	case "missed_shot", "missed shot", "shot missed", "field goal missed", "fga":
		return ActionMissedShot
	case "free_throw_made", "free throw made", "ftm":
		return ActionFreeThrowMade
	case "free_throw_missed", "free throw missed":
		return ActionFreeThrowMissed
	case "rebound", "offensive rebound", "defensive rebound":
		return ActionRebound
	case "turnover":
		return ActionTurnover
	case "foul", "personal foul", "shooting foul", "technical foul":
		return ActionFoul
	case "timeout":
		return ActionTimeout
	case "substitution":
		return ActionSubstitution
	case "period_start", "start period", "start of period":
		return ActionPeriodStart
	case "period_end", "end period", "end of period":
		return ActionPeriodEnd
	default:
		return ActionOther
	}
}

// PlayEvent is one immutable play-by-play entry. Sequence increases strictly within a game.
type PlayEvent struct {
	GameID      string     `json:"gameId"`
	Sequence    int64      `json:"sequence"`
	Period      int        `json:"period"`
	Clock       string     `json:"clock"`
	Side        Side       `json:"side,omitempty"`
	TeamID      string     `json:"teamId,omitempty"`
	Action      ActionType `json:"action"`
	Points      int        `json:"points"`
	ShotValue   int        `json:"shotValue,omitempty"`
	Description string     `json:"description"`
	Score       Score      `json:"score"`
}

// IsScoring reports whether the event put points on the board.
func (e PlayEvent) IsScoring() bool {
	return e.Points > 0 && (e.Action == ActionMadeShot || e.Action == ActionFreeThrowMade)
}

// IsThree reports whether the event is a made three-point field goal.
func (e PlayEvent) IsThree() bool {
	return e.Action == ActionMadeShot && (e.ShotValue == 3 || e.Points == 3)
}

// SecondsRemaining parses the period clock. Accepts "MM:SS", "M:SS.s", "SS.s" and
// ISO-8601 style "PT05M12.00S". Returns -1 when the clock cannot be parsed.
func (e PlayEvent) SecondsRemaining() float64 {
	return ParseClock(e.Clock)
}

// ParseClock converts a period clock string to seconds remaining, or -1.
func ParseClock(clock string) float64 {
	c := strings.TrimSpace(clock)
	if c == "" {
		return -1
	}
	if strings.HasPrefix(c, "PT") {
		c = strings.TrimPrefix(c, "PT")
		c = strings.TrimSuffix(c, "S")
		c = strings.Replace(c, "M", ":", 1)
	}
	minutes := 0.0
	if idx := strings.Index(c, ":"); idx >= 0 {
		m, err := strconv.ParseFloat(c[:idx], 64)
		if err != nil {
			return -1
		}
		minutes = m
		c = c[idx+1:]
	}
	seconds, err := strconv.ParseFloat(c, 64)
	if err != nil || seconds < 0 || minutes < 0 {
		return -1
	}
	return minutes*60 + seconds
}
