package model

// Driver is an entry of the session roster
type Driver struct {
	ID           string `json:"id"`
	Abbreviation string `json:"abbreviation"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	TeamName     string `json:"teamName"`
	TeamColor    Color  `json:"teamColor"`
}
