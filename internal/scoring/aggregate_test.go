package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAggregateScores(t *testing.T) {
	results := []QuestionResult{
		{QuestionID: 1, IsCorrect: true, EarnedScore: 1, MaxScore: 1},
		{QuestionID: 2, IsCorrect: false, EarnedScore: 2, MaxScore: 4},
		{QuestionID: 3, IsCorrect: false, EarnedScore: 0, MaxScore: 1},
		{QuestionID: 4, IsCorrect: true, EarnedScore: 2, MaxScore: 2},
	}

	totals := AggregateScores(results)

	assert.Equal(t, 5.0, totals.TotalScore)
	assert.Equal(t, 8.0, totals.TotalPossibleScore)
	assert.Equal(t, 62.5, totals.PercentageScore)
	assert.Equal(t, 2, totals.CorrectCount)
}

func TestAggregateScores_Empty(t *testing.T) {
	totals := AggregateScores(nil)
	assert.Equal(t, AttemptTotals{}, totals)
}

func TestAggregateScores_ZeroPossible(t *testing.T) {
	totals := AggregateScores([]QuestionResult{{QuestionID: 1}})
	assert.Equal(t, 0.0, totals.PercentageScore)
}
