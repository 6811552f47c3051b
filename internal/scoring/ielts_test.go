package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConvertToIELTS(t *testing.T) {
	tests := []struct {
		name         string
		raw, possible float64
		wantBand     float64
		wantScore40  int
	}{
		{"perfect score", 100, 100, 9.0, 40},
		{"zero score floors at lowest band", 0, 100, 3.0, 0},
		{"39 of 40", 39, 40, 9.0, 39},
		{"38 of 40", 38, 40, 8.5, 38},
		{"35 of 40", 35, 40, 8.0, 35},
		{"33 of 40", 33, 40, 7.5, 33},
		{"30 of 40", 30, 40, 7.0, 30},
		{"27 of 40", 27, 40, 6.5, 27},
		{"23 of 40", 23, 40, 6.0, 23},
		{"19 of 40", 19, 40, 5.5, 19},
		{"15 of 40", 15, 40, 5.0, 15},
		{"13 of 40", 13, 40, 4.5, 13},
		{"10 of 40", 10, 40, 4.0, 10},
		{"8 of 40", 8, 40, 3.5, 8},
		{"6 of 40", 6, 40, 3.0, 6},
		{"below table floors at 3.0", 5, 40, 3.0, 5},
		{"half marks on a short test scale up", 5, 10, 5.5, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ConvertToIELTS(tt.raw, tt.possible)
			assert.Equal(t, tt.wantBand, got.Band)
			assert.Equal(t, tt.wantScore40, got.Score40)
		})
	}
}

func TestConvertToIELTS_ZeroPossible(t *testing.T) {
	got := ConvertToIELTS(10, 0)
	assert.Equal(t, IELTSResult{}, got)
}

func TestConvertToIELTS_RoundsScore40(t *testing.T) {
	// 7 of 15 is 46.67%, which rounds to 19 of 40.
	got := ConvertToIELTS(7, 15)
	assert.Equal(t, 19, got.Score40)
	assert.Equal(t, 5.5, got.Band)
	assert.InDelta(t, 46.67, got.Percentage, 0.01)
}
