package domain

import "time"

// Mode represents the kind of match being played
type Mode string

const (
	ModeRanked Mode = "ranked"
	ModeDaily  Mode = "daily"
)

// Status represents the lifecycle state of a match
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

// MatchState is the full server-authoritative state of one match.
// It is one actor key in the store: mutations are serialized per match.
type MatchState struct {
	ID                   string                  `json:"id"`
	CategoryID           string                  `json:"category_id"`
	Mode                 Mode                    `json:"mode"`
	Status               Status                  `json:"status"`
	CurrentQuestionIndex int                     `json:"current_question_index"`
	Questions            []Question              `json:"questions"`
	StartTime            time.Time               `json:"start_time"`
	RoundEndTime         time.Time               `json:"round_end_time"`
	Players              map[string]*PlayerStats `json:"players"`
	Code                 string                  `json:"code,omitempty"`
	IsPrivate            bool                    `json:"is_private,omitempty"`
}

// CurrentQuestion returns the question for the active round, or nil if
// the match has no questions or has already finished.
func (m *MatchState) CurrentQuestion() *Question {
	if m.CurrentQuestionIndex < 0 || m.CurrentQuestionIndex >= len(m.Questions) {
		return nil
	}
	return &m.Questions[m.CurrentQuestionIndex]
}

// OnLastQuestion reports whether the active round is the final one.
func (m *MatchState) OnLastQuestion() bool {
	return m.CurrentQuestionIndex >= len(m.Questions)-1
}

// AllAnswered reports whether every player currently in the match has
// an answer recorded for the given question id.
func (m *MatchState) AllAnswered(questionID string) bool {
	for _, p := range m.Players {
		if !p.HasAnswered(questionID) {
			return false
		}
	}
	return len(m.Players) > 0
}

// Opponent returns the stats of the other player, or nil in a
// single-player (daily) match or an under-populated lobby.
func (m *MatchState) Opponent(userID string) *PlayerStats {
	for id, p := range m.Players {
		if id != userID {
			return p
		}
	}
	return nil
}

// AnswerRecord is one entry in a player's per-match answer log
type AnswerRecord struct {
	QuestionID    string `json:"question_id"`
	ElapsedMs     int64  `json:"elapsed_ms"`
	Correct       bool   `json:"correct"`
	SelectedIndex int    `json:"selected_index"`
}

// Emote is an ephemeral in-match reaction, not part of scoring
type Emote struct {
	Emoji  string    `json:"emoji"`
	SentAt time.Time `json:"sent_at"`
}

// PlayerStats holds one player's in-match state plus the profile
// snapshot taken at match start. The snapshot is never live-updated.
type PlayerStats struct {
	UserID       string         `json:"user_id"`
	Score        int            `json:"score"`
	CorrectCount int            `json:"correct_count"`
	Answers      []AnswerRecord `json:"answers"`

	// Profile snapshot, frozen at start/join time
	Name    string `json:"name"`
	Country string `json:"country,omitempty"`
	Elo     int    `json:"elo"`
	Title   string `json:"title,omitempty"`
	Avatar  string `json:"avatar,omitempty"`
	Frame   string `json:"frame,omitempty"`
	Banner  string `json:"banner,omitempty"`

	// Match-scoped, rank-derived labels
	DisplayTitle string `json:"display_title,omitempty"`
	CategoryRank int    `json:"category_rank,omitempty"`

	LastEmote *Emote `json:"last_emote,omitempty"`
}

// HasAnswered reports whether the player already answered the question
func (p *PlayerStats) HasAnswered(questionID string) bool {
	for _, a := range p.Answers {
		if a.QuestionID == questionID {
			return true
		}
	}
	return false
}

// AnswerResult is returned to the submitting client so it can render
// the round outcome and a live score without refetching the match.
type AnswerResult struct {
	Correct       bool `json:"correct"`
	CorrectIndex  int  `json:"correct_index"`
	ScoreDelta    int  `json:"score_delta"`
	PlayerScore   int  `json:"player_score"`
	OpponentScore int  `json:"opponent_score"`
}
