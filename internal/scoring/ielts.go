package scoring

import "math"

// IELTSResult is a raw score mapped onto the academic reading band scale.
type IELTSResult struct {
	Band       float64 `json:"band"`
	Score40    int     `json:"score_40"`
	Percentage float64 `json:"percentage"`
}

// bandTable maps a correct-out-of-40 count range to its reading band.
// Counts below the lowest range floor at band 3.0.
var bandTable = []struct {
	min, max int
	band     float64
}{
	{39, 40, 9.0},
	{37, 38, 8.5},
	{35, 36, 8.0},
	{33, 34, 7.5},
	{30, 32, 7.0},
	{27, 29, 6.5},
	{23, 26, 6.0},
	{19, 22, 5.5},
	{15, 18, 5.0},
	{13, 14, 4.5},
	{10, 12, 4.0},
	{8, 9, 3.5},
	{6, 7, 3.0},
}

// ConvertToIELTS scales a raw score onto the 40-question reading test and
// looks up the band for it. A zero possible score yields all zeros rather
// than dividing by zero.
func ConvertToIELTS(rawScore, totalPossibleScore float64) IELTSResult {
	if totalPossibleScore <= 0 {
		return IELTSResult{}
	}
	percentage := rawScore / totalPossibleScore * 100
	score40 := int(math.Round(percentage / 100 * 40))

	band := 3.0
	for _, r := range bandTable {
		if score40 >= r.min && score40 <= r.max {
			band = r.band
			break
		}
	}
	return IELTSResult{
		Band:       band,
		Score40:    score40,
		Percentage: percentage,
	}
}
