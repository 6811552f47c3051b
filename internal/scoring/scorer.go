package scoring

import (
	"math"
	"strconv"
	"strings"

	"github.com/ielts-practice/reading-service/internal/models"
)

// Result is the outcome of grading a single question.
type Result struct {
	IsCorrect   bool    `json:"is_correct"`
	EarnedScore float64 `json:"earned_score"`
}

// ScoreQuestion grades one raw submitted answer against a question's stored
// correct answer and returns the earned score out of the question's max
// score. An empty or missing answer, or an unrecognized question kind, is
// incorrect with zero score.
//
// Single-answer kinds are all-or-nothing. Multi-position kinds
// (fill_blank_multiple, fill_blank_one_word_each, matching) award partial
// credit: round(maxScore * matched / total), correct only when every
// position matches.
func ScoreQuestion(q *models.Question, raw any) Result {
	answer := NormalizeAnswer(raw, q.Kind)
	if answer.Empty {
		return Result{}
	}

	switch q.Kind {
	case models.SingleChoice:
		return scoreExactText(answer.Text, correctText(q), q.Score, false)
	case models.TrueFalseNotGiven:
		return scoreTrueFalseNotGiven(answer.Text, correctText(q), q.Score)
	case models.MultiChoice:
		return scoreMultiChoice(answer.Items, correctItems(q), q.Score)
	case models.FillBlankSimple:
		return scoreMembership(answer.Text, acceptableAnswers(q), q.Score)
	case models.ShortAnswer:
		return scoreMembership(answer.Text, acceptableAnswers(q), q.Score)
	case models.FillBlankMultiple:
		return scoreFillBlankMultiple(answer.Positions, q)
	case models.FillBlankOneWordEach:
		return scoreFillBlankOneWordEach(answer.Positions, q)
	case models.Matching:
		return scoreMatching(answer.Positions, q)
	default:
		return Result{}
	}
}

func scoreExactText(user, correct string, maxScore float64, fold bool) Result {
	if fold {
		user, correct = foldSpace(user), foldSpace(correct)
	}
	if correct != "" && user == correct {
		return Result{IsCorrect: true, EarnedScore: maxScore}
	}
	return Result{}
}

// scoreTrueFalseNotGiven compares case-insensitively and treats the spaced
// form "not given" as the canonical "not_given" token.
func scoreTrueFalseNotGiven(user, correct string, maxScore float64) Result {
	return scoreExactText(canonTFNG(user), canonTFNG(correct), maxScore, false)
}

func canonTFNG(s string) string {
	s = foldSpace(s)
	if s == "not given" {
		return models.AnswerNotGiven
	}
	return s
}

// scoreMultiChoice requires exact set equality: every correct option
// selected and nothing else. No partial credit.
func scoreMultiChoice(user, correct []string, maxScore float64) Result {
	if len(correct) == 0 || len(user) != len(correct) {
		return Result{}
	}
	u, c := sortedCopy(user), sortedCopy(correct)
	for i := range c {
		if u[i] != c[i] {
			return Result{}
		}
	}
	return Result{IsCorrect: true, EarnedScore: maxScore}
}

// scoreMembership accepts the answer when its lowercased, trimmed form
// matches any acceptable answer.
func scoreMembership(user string, acceptable []string, maxScore float64) Result {
	folded := foldSpace(user)
	for _, a := range acceptable {
		if folded == foldSpace(a) {
			return Result{IsCorrect: true, EarnedScore: maxScore}
		}
	}
	return Result{}
}

// scoreFillBlankMultiple grades blank positions whose correct values are
// indices into the question's shared option list. A submitted value matches
// when it parses to the correct index; a non-numeric submission falls back
// to a folded string compare so clients that send the option text instead
// of its index still grade.
func scoreFillBlankMultiple(user map[string]string, q *models.Question) Result {
	correct := correctPositions(q)
	matched := 0
	for key, correctValue := range correct {
		userValue := user[key]
		if correctIdx, err := strconv.Atoi(strings.TrimSpace(correctValue)); err == nil {
			if userIdx, err := strconv.Atoi(strings.TrimSpace(userValue)); err == nil {
				if userIdx == correctIdx {
					matched++
				}
				continue
			}
		}
		if foldSpace(userValue) == foldSpace(correctValue) && foldSpace(correctValue) != "" {
			matched++
		}
	}
	return partialCredit(matched, len(correct), q.Score)
}

// scoreFillBlankOneWordEach grades each blank against its expected word,
// where the authored value may carry comma-separated alternatives.
func scoreFillBlankOneWordEach(user map[string]string, q *models.Question) Result {
	correct := correctPositions(q)
	matched := 0
	for key, correctValue := range correct {
		userValue := foldSpace(user[key])
		if userValue == "" {
			continue
		}
		for _, alt := range strings.Split(correctValue, ",") {
			if userValue == foldSpace(alt) {
				matched++
				break
			}
		}
	}
	return partialCredit(matched, len(correct), q.Score)
}

// scoreMatching grades position-to-heading selections. Comparison is exact
// (no case folding): selections are option indices or the not_used
// sentinel, both written by the client verbatim.
func scoreMatching(user map[string]string, q *models.Question) Result {
	correct := correctPositions(q)
	matched := 0
	for key, correctValue := range correct {
		if user[key] == correctValue {
			matched++
		}
	}
	return partialCredit(matched, len(correct), q.Score)
}

func partialCredit(matched, total int, maxScore float64) Result {
	if total == 0 {
		return Result{}
	}
	earned := math.Round(maxScore * float64(matched) / float64(total))
	return Result{
		IsCorrect:   matched == total,
		EarnedScore: earned,
	}
}

// correctText decodes the stored correct answer as a single scalar string.
func correctText(q *models.Question) string {
	v := DecodeRaw(q.CorrectAnswer)
	if s, ok := v.(string); ok {
		return s
	}
	return stringify(v)
}

// correctItems decodes the stored correct answer as an option list.
func correctItems(q *models.Question) []string {
	switch v := DecodeRaw(q.CorrectAnswer).(type) {
	case []any:
		return toItems(v)
	case string:
		return []string{v}
	case nil:
		return nil
	default:
		return []string{stringify(v)}
	}
}

// acceptableAnswers returns the literal answers a text submission may
// match. The canonical list lives in CorrectAnswer; the authored
// AcceptableAnswers field is the fallback for rows written before the
// canonical representation existed.
func acceptableAnswers(q *models.Question) []string {
	if items := correctItems(q); len(items) > 0 {
		return items
	}
	return q.AcceptableAnswers
}

// correctPositions decodes the stored correct answer as a position map.
// Matching answers arrive wrapped as {"type": ..., "selections": {...}};
// array forms are keyed by index. A correct answer that is itself a JSON
// string is unwrapped one level first.
func correctPositions(q *models.Question) map[string]string {
	v := unwrapSelections(DecodeRaw(q.CorrectAnswer))
	if v == nil {
		return nil
	}
	return toPositions(v)
}
