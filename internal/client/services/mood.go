package services

import "strings"

// DefaultMood is used when no keyword matches.
const DefaultMood = "Reflective"

// moodKeywords is checked in order; the first mood with a matching keyword wins.
var moodKeywords = []struct {
	mood     string
	keywords []string
}{
	{"Longing", []string{"miss", "longing", "yearn"}},
	{"Happy", []string{"happy", "joy", "glad", "cheerful", "delighted"}},
	{"Sad", []string{"sad", "down", "unhappy", "blue", "depressed"}},
	{"Excited", []string{"excited", "thrilled", "enthusiastic", "eager"}},
	{"Nostalgic", []string{"nostalgic", "remember", "reminisce", "recall"}},
	{"Hopeful", []string{"hope", "dream", "wish", "aspire"}},
}

// DetectMood guesses a feeling label from free text.
func DetectMood(text string) string {
	lower := strings.ToLower(text)
	for _, m := range moodKeywords {
		for _, k := range m.keywords {
			if strings.Contains(lower, k) {
				return m.mood
			}
		}
	}
	return DefaultMood
}
