package ocr

import (
	"regexp"
	"strings"
)

var (
	reDate   = regexp.MustCompile(`\b(\d{4}[-./]\d{1,2}[-./]\d{1,2}|\d{1,2}[-./]\d{1,2}[-./]\d{2,4})\b`)
	reCurr   = regexp.MustCompile(`\b(usd|eur|gbp|czk|pln|huf|chf|sek|nok|dkk|cad|aud)\b|[$£€]|kč`)
	reAmount = regexp.MustCompile(`\b\d+([ ,.]\d{3})*[.,]\d{2}\b`)
)

// heuristicConfidence scores decoded text by the artifacts a financial
// document usually carries: a date, a currency marker and amounts.
func heuristicConfidence(txt string) float64 {
	txtL := strings.ToLower(txt)
	score := 0.2
	if reDate.MatchString(txtL) {
		score += 0.2
	}
	if reCurr.MatchString(txtL) {
		score += 0.15
	}
	if reAmount.MatchString(txtL) {
		score += 0.15
	}
	if len(txt) > 120 {
		score += 0.1
	}
	return min(score, 1.0)
}

// blendConfidence weights engine confidence higher when there is one.
func blendConfidence(engine, heuristic float64) float64 {
	if engine <= 0 {
		return heuristic
	}
	return min(0.7*engine+0.3*heuristic, 1.0)
}

func meanWordConfidence(words []Word) float64 {
	if len(words) == 0 {
		return 0
	}
	var sum float64
	for _, w := range words {
		sum += w.Confidence
	}
	return sum / float64(len(words))
}
