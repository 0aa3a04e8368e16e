package response

import "strings"

// Sentiment labels with their numeric scores stored alongside the
// response. The heuristic is a keyword scan; it only needs to separate
// clear yes/no answers and obvious complaints from everything else.
const (
	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"
)

var positiveMarkers = []string{
	"yes", "yep", "yeah", "great", "love", "awesome", "excellent",
	"thanks", "thank you", "helpful", "good", "amazing", "enjoyed",
}

var negativeMarkers = []string{
	"no", "nope", "not", "stop", "unsubscribe", "bad", "terrible",
	"awful", "boring", "waste", "disappointed", "hate", "worst",
}

// Sentiment classifies a reply body, returning the label and its
// score: 1 positive, 0 neutral, -1 negative. Negative markers win
// ties so that "not great" reads as negative.
func Sentiment(body string) (string, float64) {
	text := strings.ToLower(body)
	positive, negative := 0, 0
	for _, m := range positiveMarkers {
		if containsWord(text, m) {
			positive++
		}
	}
	for _, m := range negativeMarkers {
		if containsWord(text, m) {
			negative++
		}
	}
	switch {
	case negative > 0 && negative >= positive:
		return SentimentNegative, -1
	case positive > 0:
		return SentimentPositive, 1
	default:
		return SentimentNeutral, 0
	}
}

// containsWord matches on word boundaries so "no" does not fire inside
// "know" or "notes".
func containsWord(text, word string) bool {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	for _, f := range fields {
		if f == word {
			return true
		}
	}
	// Multi-word markers like "thank you" need a substring check.
	if strings.Contains(word, " ") && strings.Contains(text, word) {
		return true
	}
	return false
}
