package content

import "github.com/trivia-arena/internal/domain"

// staticCategories is the built-in category catalog, used as the
// fallback when a category is missing from the dynamic catalog.
var staticCategories = map[string]string{
	"general":   "General Knowledge",
	"science":   "Science",
	"history":   "History",
	"geography": "Geography",
}

// staticQuestions is the built-in question catalog shipped with the
// server. Dynamically authored questions are layered on top of it.
var staticQuestions = []domain.Question{
	{ID: "gen-001", CategoryID: "general", Text: "Which planet is known as the Red Planet?",
		Options: []string{"Venus", "Mars", "Jupiter", "Mercury"}, CorrectIndex: 1},
	{ID: "gen-002", CategoryID: "general", Text: "How many minutes are in a full day?",
		Options: []string{"1440", "1220", "1620", "1040"}, CorrectIndex: 0},
	{ID: "gen-003", CategoryID: "general", Text: "What is the largest mammal?",
		Options: []string{"African elephant", "Blue whale", "Giraffe", "Orca"}, CorrectIndex: 1},
	{ID: "gen-004", CategoryID: "general", Text: "Which language has the most native speakers?",
		Options: []string{"English", "Hindi", "Mandarin Chinese", "Spanish"}, CorrectIndex: 2},
	{ID: "gen-005", CategoryID: "general", Text: "How many strings does a standard violin have?",
		Options: []string{"4", "5", "6", "7"}, CorrectIndex: 0},
	{ID: "sci-001", CategoryID: "science", Text: "What is the chemical symbol for gold?",
		Options: []string{"Go", "Gd", "Au", "Ag"}, CorrectIndex: 2},
	{ID: "sci-002", CategoryID: "science", Text: "What gas do plants absorb from the atmosphere?",
		Options: []string{"Oxygen", "Nitrogen", "Carbon dioxide", "Hydrogen"}, CorrectIndex: 2},
	{ID: "sci-003", CategoryID: "science", Text: "What is the hardest natural substance on Earth?",
		Options: []string{"Quartz", "Diamond", "Titanium", "Graphene"}, CorrectIndex: 1},
	{ID: "sci-004", CategoryID: "science", Text: "How many bones are in the adult human body?",
		Options: []string{"196", "206", "216", "226"}, CorrectIndex: 1},
	{ID: "sci-005", CategoryID: "science", Text: "What particle carries a negative electric charge?",
		Options: []string{"Proton", "Neutron", "Electron", "Photon"}, CorrectIndex: 2},
	{ID: "his-001", CategoryID: "history", Text: "In which year did World War II end?",
		Options: []string{"1943", "1944", "1945", "1946"}, CorrectIndex: 2},
	{ID: "his-002", CategoryID: "history", Text: "Who was the first president of the United States?",
		Options: []string{"Thomas Jefferson", "George Washington", "John Adams", "Benjamin Franklin"}, CorrectIndex: 1},
	{ID: "his-003", CategoryID: "history", Text: "Which ancient civilization built Machu Picchu?",
		Options: []string{"Aztec", "Maya", "Inca", "Olmec"}, CorrectIndex: 2},
	{ID: "his-004", CategoryID: "history", Text: "The Berlin Wall fell in which year?",
		Options: []string{"1987", "1989", "1991", "1993"}, CorrectIndex: 1},
	{ID: "his-005", CategoryID: "history", Text: "Who discovered penicillin?",
		Options: []string{"Marie Curie", "Louis Pasteur", "Alexander Fleming", "Joseph Lister"}, CorrectIndex: 2},
	{ID: "geo-001", CategoryID: "geography", Text: "What is the longest river in the world?",
		Options: []string{"Amazon", "Nile", "Yangtze", "Mississippi"}, CorrectIndex: 1},
	{ID: "geo-002", CategoryID: "geography", Text: "Which country has the most time zones?",
		Options: []string{"Russia", "USA", "France", "China"}, CorrectIndex: 2},
	{ID: "geo-003", CategoryID: "geography", Text: "What is the capital of Australia?",
		Options: []string{"Sydney", "Melbourne", "Canberra", "Perth"}, CorrectIndex: 2},
	{ID: "geo-004", CategoryID: "geography", Text: "Which desert is the largest in the world?",
		Options: []string{"Gobi", "Sahara", "Antarctic", "Arabian"}, CorrectIndex: 2},
	{ID: "geo-005", CategoryID: "geography", Text: "Mount Kilimanjaro is located in which country?",
		Options: []string{"Kenya", "Tanzania", "Uganda", "Ethiopia"}, CorrectIndex: 1},
}

// StaticQuestionIDs returns the ids of all built-in questions
func StaticQuestionIDs() []string {
	ids := make([]string, len(staticQuestions))
	for i, q := range staticQuestions {
		ids[i] = q.ID
	}
	return ids
}

// StaticQuestionIDsByCategory returns built-in question ids for one category
func StaticQuestionIDsByCategory(categoryID string) []string {
	var ids []string
	for _, q := range staticQuestions {
		if q.CategoryID == categoryID {
			ids = append(ids, q.ID)
		}
	}
	return ids
}

func staticQuestion(id string) *domain.Question {
	for i := range staticQuestions {
		if staticQuestions[i].ID == id {
			return &staticQuestions[i]
		}
	}
	return nil
}
