package balldontlie

const providerName = "balldontlie"

type gamesResponse struct {
	Data []gameResponse `json:"data"`
	Meta metaResponse   `json:"meta"`
}

type gameResponse struct {
	ID               int          `json:"id"`
	Date             string       `json:"date"`
	Status           string       `json:"status"`
	Time             string       `json:"time"`
	Period           int          `json:"period"`
	Postseason       bool         `json:"postseason"`
	HomeTeam         teamResponse `json:"home_team"`
	VisitorTeam      teamResponse `json:"visitor_team"`
	HomeTeamScore    int          `json:"home_team_score"`
	VisitorTeamScore int          `json:"visitor_team_score"`
	Season           int          `json:"season"`
}

type teamResponse struct {
	ID           int    `json:"id"`
	Abbreviation string `json:"abbreviation"`
	City         string `json:"city"`
	FullName     string `json:"full_name"`
	Name         string `json:"name"`
}

type metaResponse struct {
	TotalPages int `json:"total_pages"`
	NextCursor int `json:"next_cursor"`
}

type playsResponse struct {
	Data []playResponse `json:"data"`
	Meta metaResponse   `json:"meta"`
}

type playResponse struct {
	GameID       int           `json:"game_id"`
	Order        int64         `json:"order"`
	Type         string        `json:"type"`
	Text         string        `json:"text"`
	HomeScore    int           `json:"home_score"`
	AwayScore    int           `json:"away_score"`
	Period       int           `json:"period"`
	Clock        string        `json:"clock"`
	ScoringPlay  bool          `json:"scoring_play"`
	ShootingPlay bool          `json:"shooting_play"`
	ScoreValue   int           `json:"score_value"`
	Team         *teamResponse `json:"team"`
}
