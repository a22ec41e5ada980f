package evaluation

import "fmt"

// band is one explanation tier, selected by the lowest score it covers
type band struct {
	min     int
	message string
}

var explanationBands = []band{
	{90, "Excellent work. The solution covers everything this exercise looks for."},
	{75, "Good solution. A few details are missing or could be tightened."},
	{60, "A working start. Review the failed checks and the suggestions below."},
	{0, "This needs more work. Revisit the exercise goals and try the hints."},
}

// Explain returns a short human-readable description of a score
func Explain(score int) string {
	for _, b := range explanationBands {
		if score >= b.min {
			return b.message
		}
	}
	return explanationBands[len(explanationBands)-1].message
}

// explainWithTests adds the test tally to the score band
func explainWithTests(score, passed, total int) string {
	if total == 0 {
		return Explain(score)
	}
	return fmt.Sprintf("%s (%d/%d checks passed)", Explain(score), passed, total)
}
