package domain

// OptionCount is the fixed number of answer options per question
const OptionCount = 4

// Question is a single trivia question with exactly four options
type Question struct {
	ID           string   `json:"id"`
	CategoryID   string   `json:"category_id"`
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct_index"`
	MediaURL     string   `json:"media_url,omitempty"`
}

// Category is an entry in the category catalog
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
