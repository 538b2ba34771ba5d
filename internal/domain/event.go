package domain

import "time"

// Outcome is the result of a match from one player's perspective
type Outcome string

const (
	OutcomeWin  Outcome = "win"
	OutcomeDraw Outcome = "draw"
	OutcomeLoss Outcome = "loss"
)

// MatchSettledEvent is published to Kafka after reward settlement and
// consumed into the settlement ledger for analytics and auditing.
type MatchSettledEvent struct {
	MatchID      string    `json:"match_id"`
	UserID       string    `json:"user_id"`
	CategoryID   string    `json:"category_id"`
	Mode         Mode      `json:"mode"`
	Outcome      Outcome   `json:"outcome"`
	Score        int       `json:"score"`
	CorrectCount int       `json:"correct_count"`
	XPAwarded    int       `json:"xp_awarded"`
	CoinsAwarded int       `json:"coins_awarded"`
	RatingDelta  int       `json:"rating_delta"`
	NewLevel     int       `json:"new_level,omitempty"`
	Achievements []string  `json:"achievements,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}
