package scoring

// QuestionResult pairs a graded question with what it was worth.
type QuestionResult struct {
	QuestionID  uint
	IsCorrect   bool
	EarnedScore float64
	MaxScore    float64
}

// AttemptTotals is the attempt-level roll-up of per-question results.
type AttemptTotals struct {
	TotalScore         float64 `json:"total_score"`
	TotalPossibleScore float64 `json:"total_possible_score"`
	PercentageScore    float64 `json:"percentage_score"`
	CorrectCount       int     `json:"correct_count"`
}

// AggregateScores sums per-question results into attempt totals. The
// percentage is 0 when nothing was possible, never NaN.
func AggregateScores(results []QuestionResult) AttemptTotals {
	var totals AttemptTotals
	for _, r := range results {
		totals.TotalScore += r.EarnedScore
		totals.TotalPossibleScore += r.MaxScore
		if r.IsCorrect {
			totals.CorrectCount++
		}
	}
	if totals.TotalPossibleScore > 0 {
		totals.PercentageScore = totals.TotalScore / totals.TotalPossibleScore * 100
	}
	return totals
}
