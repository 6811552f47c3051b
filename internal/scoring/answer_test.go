package scoring

import (
	"testing"

	"github.com/ielts-practice/reading-service/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeAnswer_Empty(t *testing.T) {
	assert.True(t, NormalizeAnswer(nil, models.SingleChoice).Empty)
	assert.True(t, NormalizeAnswer("", models.Matching).Empty)
	assert.False(t, NormalizeAnswer(" ", models.SingleChoice).Empty)
}

func TestNormalizeAnswer_Text(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want string
	}{
		{"string passes through", "B", "B"},
		{"number renders without decimals", float64(2), "2"},
		{"fractional number keeps fraction", 2.5, "2.5"},
		{"bool", true, "true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeAnswer(tt.raw, models.SingleChoice)
			assert.Equal(t, tt.want, got.Text)
		})
	}
}

func TestNormalizeAnswer_Set(t *testing.T) {
	got := NormalizeAnswer([]any{"A", float64(2)}, models.MultiChoice)
	assert.Equal(t, []string{"A", "2"}, got.Items)

	got = NormalizeAnswer(`["A","C"]`, models.MultiChoice)
	assert.Equal(t, []string{"A", "C"}, got.Items)

	// A bare scalar is a single selection, not an error.
	got = NormalizeAnswer("A", models.MultiChoice)
	assert.Equal(t, []string{"A"}, got.Items)
}

func TestNormalizeAnswer_Positions(t *testing.T) {
	got := NormalizeAnswer(map[string]any{"1": float64(0), "2": "dog"}, models.FillBlankMultiple)
	assert.Equal(t, map[string]string{"1": "0", "2": "dog"}, got.Positions)

	// Arrays key by index.
	got = NormalizeAnswer([]any{"ocean", "reef"}, models.FillBlankOneWordEach)
	assert.Equal(t, map[string]string{"0": "ocean", "1": "reef"}, got.Positions)

	// A JSON-encoded object inside a string is unwrapped.
	got = NormalizeAnswer(`{"0":"1"}`, models.Matching)
	assert.Equal(t, map[string]string{"0": "1"}, got.Positions)

	// An unparseable scalar lands in position zero.
	got = NormalizeAnswer("ocean", models.FillBlankOneWordEach)
	assert.Equal(t, map[string]string{"0": "ocean"}, got.Positions)
}

func TestNormalizeAnswer_MatchingWrapperUnwrapped(t *testing.T) {
	raw := map[string]any{
		"type":       "one_to_one",
		"selections": map[string]any{"0": float64(1), "1": float64(0)},
	}
	got := NormalizeAnswer(raw, models.Matching)
	assert.Equal(t, map[string]string{"0": "1", "1": "0"}, got.Positions)
}

func TestDecodeRaw(t *testing.T) {
	assert.Nil(t, DecodeRaw(nil))
	assert.Equal(t, "B", DecodeRaw([]byte(`"B"`)))
	assert.Equal(t, map[string]any{"0": "1"}, DecodeRaw([]byte(`{"0":"1"}`)))
	// Not JSON at all: treated as the literal string.
	assert.Equal(t, "plain text", DecodeRaw([]byte(`plain text`)))
}
