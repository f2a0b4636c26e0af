package agent

import "unicode/utf8"

// EstimateTokens approximates how many model tokens text costs, at roughly
// four characters per token. Non-empty text is at least one token.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	return max(n/4, 1)
}

func promptTokens(msgs ...string) int {
	total := 0
	for _, m := range msgs {
		total += EstimateTokens(m)
	}
	return total
}
