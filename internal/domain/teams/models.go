package teams

// Team is the normalized team shape embedded in game snapshots.
type Team struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	FullName     string `json:"fullName,omitempty"`
	Abbreviation string `json:"abbreviation"`
	City         string `json:"city,omitempty"`
}

// Label returns the abbreviation when known, falling back to the name or id.
func (t Team) Label() string {
	switch {
	case t.Abbreviation != "":
		return t.Abbreviation
	case t.Name != "":
		return t.Name
	default:
		return t.ID
	}
}
