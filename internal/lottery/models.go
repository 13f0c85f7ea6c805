package lottery

import "time"

// Candidate is one eligible application in a campaign's draw pool.
type Candidate struct {
	ID                int64  `json:"id"`
	Name              string `json:"name"`
	Username          string `json:"username"`
	PhoneNumber       string `json:"phone_number"`
	ParticipantNumber *int   `json:"participant_number,omitempty"`
}

// Winner is one drawn entry.
type Winner struct {
	Campaign     string `json:"campaign"`
	WinnerNumber int    `json:"winner_number"`
	Total        int    `json:"total_eligible"`
	Candidate
}

// DrawResult is the full outcome of a draw: one winner per campaign plus the
// seed that makes the draw reproducible.
type DrawResult struct {
	Seed    string    `json:"seed"`
	DrawnAt time.Time `json:"drawn_at"`
	Winners []Winner  `json:"winners"`
}
