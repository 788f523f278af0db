package types

import "time"

// Profile is a person attached to an account.
type Profile struct {
	ID        int    `json:"id,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	BirthDate *Date  `json:"birthDate,omitempty"`
	Address   string `json:"address,omitempty"`
	Main      bool   `json:"main"`
}

// Nickname is the first two characters of the first name.
func (p Profile) Nickname() string {
	r := []rune(p.FirstName)
	if len(r) > 2 {
		r = r[:2]
	}
	return string(r)
}

// Mock returns the profile served in mock mode.
func (p *Profile) Mock() any {
	return &Profile{
		ID:        1,
		FirstName: "Jane",
		LastName:  "Doe",
		BirthDate: &Date{time.Date(1990, time.January, 1, 0, 0, 0, 0, time.UTC)},
		Address:   "Bahnhofstrasse 1, 8001 Zürich",
		Main:      true,
	}
}
