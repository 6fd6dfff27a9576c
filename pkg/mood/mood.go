// Package mood turns an emo score into its named components and the
// templated one-line comment. Everything here is a pure lookup over a
// fixed Japanese vocabulary: the same score always decomposes the same
// way.
package mood

import (
	"math"
	"sort"

	"github.com/menta2k/emo-check/pkg/types"
)

// TopComponents is how many components a decomposition exposes.
const TopComponents = 4

// component is one mood axis with its weighting profile. Intensity at
// score s is clamp(round(base + gain*s)); every gain is positive, so
// higher scores lift every component.
type component struct {
	name        string
	description string
	base        float64
	gain        float64
}

// vocabulary is closed and ordered. The order doubles as the tie-break
// for equal percentages, so reordering entries changes results.
var vocabulary = []component{
	{"ノスタルジー", "過去への憧れや懐かしさ", 18, 0.62},
	{"儚さ", "消えゆく美しさへの感傷", 12, 0.58},
	{"青春", "若さと輝きの記憶", 15, 0.47},
	{"メランコリー", "甘い憂鬱と物思い", 22, 0.40},
	{"夕暮れ感", "一日の終わりの切なさ", 10, 0.55},
	{"孤独", "静かな一人の時間", 25, 0.28},
	{"希望", "未来への淡い期待", 8, 0.50},
	{"哀愁", "心に染みる寂しさ", 14, 0.52},
}

// commentBands maps score ranges to their comment pools, highest band
// first. Within a band the comment is picked by score modulo pool
// size.
var commentBands = []struct {
	min      int
	comments []string
}{
	{80, []string{
		"心の奥底に響く、深いエモさを感じます",
		"この瞬間の儚さが美しく切り取られています",
		"感傷的な美しさに満ちた一枚です",
		"ノスタルジックな雰囲気が溢れ出ています",
	}},
	{60, []string{
		"強いエモさが画面から伝わってきます",
		"懐かしい記憶を呼び起こす一枚です",
		"切なさと美しさが同居しています",
		"夕暮れのような余韻が残ります",
	}},
	{40, []string{
		"どこか懐かしさを感じる作品です",
		"ほのかなエモさが漂っています",
		"心に静かに染み入る雰囲気があります",
		"優しい感傷が感じられます",
	}},
	{20, []string{
		"落ち着いた空気感のある写真です",
		"わずかに感傷的な気配があります",
		"静かな時間が流れています",
		"日常の中の小さな物語を感じます",
	}},
	{0, []string{
		"シンプルで落ち着いた印象です",
		"穏やかな日常の一コマですね",
		"クリアで現代的な雰囲気です",
		"明るく健康的な印象を受けます",
	}},
}

// Decompose returns the TopComponents strongest mood components for a
// score, strongest first. Percentages are independent intensities and
// do not sum to 100.
func Decompose(score int) []types.MoodComponent {
	s := clampScore(score)

	all := make([]types.MoodComponent, 0, len(vocabulary))
	for _, c := range vocabulary {
		all = append(all, types.MoodComponent{
			Name:        c.name,
			Percentage:  intensity(c, s),
			Description: c.description,
		})
	}

	// Stable sort keeps vocabulary order on equal percentages.
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Percentage > all[j].Percentage
	})
	return all[:TopComponents]
}

// Comment returns the templated comment for a score.
func Comment(score int) string {
	s := clampScore(score)
	for _, band := range commentBands {
		if s >= band.min {
			return band.comments[s%len(band.comments)]
		}
	}
	return commentBands[len(commentBands)-1].comments[0]
}

func intensity(c component, score int) int {
	pct := int(math.Round(c.base + c.gain*float64(score)))
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
