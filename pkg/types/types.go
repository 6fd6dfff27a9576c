package types

import "encoding/base64"

// Swatch is one palette entry: a representative color and the share of
// pixels it covers, rounded to one decimal.
type Swatch struct {
	Hex        string   `json:"hex"`
	RGB        [3]uint8 `json:"rgb"`
	Percentage float64  `json:"percentage"`
}

// Palette holds up to five swatches ordered by descending percentage.
// Equal percentages are ordered by ascending hue, then ascending
// lightness.
type Palette []Swatch

// ScoreResult is the outcome of a single model inference.
type ScoreResult struct {
	Score      int     `json:"emo_score"`
	ModelUsed  string  `json:"model_used"`
	RawScore   float64 `json:"raw_score"`
	Confidence float64 `json:"confidence"`
}

// MoodComponent is one named mood axis with its intensity. Percentages
// are independent and do not sum to 100 across a set.
type MoodComponent struct {
	Name        string `json:"name"`
	Percentage  int    `json:"percentage"`
	Description string `json:"description"`
}

// AnalyzeResult is the full analysis payload for one image.
type AnalyzeResult struct {
	ScoreResult
	Palette    Palette         `json:"color_palette"`
	Components []MoodComponent `json:"emo_components"`
	Comment    string          `json:"emo_comment"`
}

// BoostResult carries a filtered rendering of the input image as PNG
// bytes plus the human-readable filter name.
type BoostResult struct {
	Image         []byte `json:"-"`
	FilterApplied string `json:"filter_applied"`
}

// Base64 returns the PNG payload encoded for JSON transport.
func (r *BoostResult) Base64() string {
	return base64.StdEncoding.EncodeToString(r.Image)
}
