package moments

import "github.com/preston-bernstein/nba-live-service/internal/domain/games"

const (
	runWindow     = 15
	runMinPoints  = 6
	runMinPlays   = 2
	clutchPeriod  = 4
	clutchSeconds = 120
	clutchMargin  = 5
	bigShotWide   = 10
	bigShotClose  = 5
)

// Evaluate returns every moment type ev triggers. before is the score prior to ev;
// recent holds the latest events in ascending order and ends with ev.
func Evaluate(before games.Score, ev games.PlayEvent, recent []games.PlayEvent) []Type {
	var out []Type
	if isTie(before, ev) {
		out = append(out, TypeTie)
	}
	if isLeadChange(before, ev) {
		out = append(out, TypeLeadChange)
	}
	if isRun(ev, recent) {
		out = append(out, TypeRun)
	}
	if isClutch(ev) {
		out = append(out, TypeClutch)
	}
	if isBigShot(before, ev) {
		out = append(out, TypeBigShot)
	}
	return out
}

func isTie(before games.Score, ev games.PlayEvent) bool {
	return ev.IsScoring() && !before.Tied() && ev.Score.Tied()
}

// isLeadChange treats a tie as having no leader, so a go-ahead basket after a tie
// counts and the tying basket does not. The opening basket of the game is excluded.
func isLeadChange(before games.Score, ev games.PlayEvent) bool {
	if !ev.IsScoring() || ev.Score.Tied() {
		return false
	}
	if before.Home == 0 && before.Away == 0 {
		return false
	}
	return ev.Score.Leader() != before.Leader()
}

// isRun fires on the scoring play that takes an unanswered stretch by one team
// to runMinPoints across at least runMinPlays scoring plays.
func isRun(ev games.PlayEvent, recent []games.PlayEvent) bool {
	if !ev.IsScoring() || ev.Side == games.SideNone {
		return false
	}
	if len(recent) > runWindow {
		recent = recent[len(recent)-runWindow:]
	}
	points, plays := 0, 0
	for i := len(recent) - 1; i >= 0; i-- {
		e := recent[i]
		if !e.IsScoring() {
			continue
		}
		if e.Side != ev.Side {
			break
		}
		points += e.Points
		plays++
	}
	return plays >= runMinPlays && points >= runMinPoints && points-ev.Points < runMinPoints
}

func isClutch(ev games.PlayEvent) bool {
	if !ev.IsScoring() || ev.Period < clutchPeriod {
		return false
	}
	secs := ev.SecondsRemaining()
	return secs >= 0 && secs <= clutchSeconds && ev.Score.AbsDiff() <= clutchMargin
}

func isBigShot(before games.Score, ev games.PlayEvent) bool {
	if !ev.IsThree() {
		return false
	}
	prev, next := before.AbsDiff(), ev.Score.AbsDiff()
	return (prev < bigShotWide && next >= bigShotWide) || (prev > bigShotClose && next <= bigShotClose)
}
