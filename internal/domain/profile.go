package domain

import "time"

// Profile is a player's persistent record. It is one actor key in the
// store; reward settlement applies all of its effects in one mutation.
type Profile struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Country string `json:"country,omitempty"`
	Title   string `json:"title,omitempty"`
	Avatar  string `json:"avatar,omitempty"`
	Frame   string `json:"frame,omitempty"`
	Banner  string `json:"banner,omitempty"`

	Elo         int            `json:"elo"`
	CategoryElo map[string]int `json:"category_elo,omitempty"`

	XP    int `json:"xp"`
	Level int `json:"level"`
	Coins int `json:"coins"`

	MatchesPlayed int `json:"matches_played"`
	Wins          int `json:"wins"`
	WinStreak     int `json:"win_streak"`

	// Best daily-match score recorded for DailyScoreDate (UTC, YYYY-MM-DD)
	DailyScore     int    `json:"daily_score,omitempty"`
	DailyScoreDate string `json:"daily_score_date,omitempty"`

	Achievements []string  `json:"achievements,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HasAchievement reports whether the achievement was already unlocked
func (p *Profile) HasAchievement(id string) bool {
	for _, a := range p.Achievements {
		if a == id {
			return true
		}
	}
	return false
}

// CategoryRating returns the player's rating in one category, 0 if unplayed
func (p *Profile) CategoryRating(categoryID string) int {
	if p.CategoryElo == nil {
		return 0
	}
	return p.CategoryElo[categoryID]
}

// DailyScoreFor returns the daily score only if it was recorded on the
// given UTC date; stale scores from earlier days count as zero.
func (p *Profile) DailyScoreFor(date string) int {
	if p.DailyScoreDate != date {
		return 0
	}
	return p.DailyScore
}
