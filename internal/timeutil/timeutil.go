package timeutil

import "time"

// DateLayout is the YYYY-MM-DD form upstream scoreboards are keyed by.
const DateLayout = "2006-01-02"

// RolloverHour is the local hour at which the scoreboard moves to the next
// calendar day. Games that run past midnight stay on the night they tipped off.
const RolloverHour = 6

// GameDate returns the scoreboard date for t in loc. A nil loc means UTC.
func GameDate(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	if local.Hour() < RolloverHour {
		local = local.AddDate(0, 0, -1)
	}
	return local.Format(DateLayout)
}

// LoadLocation resolves an IANA zone name, returning fallback when the name is
// empty or unknown to the local tz database.
func LoadLocation(name string, fallback *time.Location) *time.Location {
	if name == "" {
		return fallback
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return fallback
	}
	return loc
}
