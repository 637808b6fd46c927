package indicator

import (
	"math"
	"strings"

	"StrategyLab/internal/model"
)

// Pattern is a bitmask of detected candlestick patterns.
type Pattern uint16

const (
	Doji Pattern = 1 << iota
	Hammer
	BullishEngulfing
	BearishEngulfing
	MorningStar
	ThreeBlackCrows
	PiercingLine
	DarkCloudCover
)

var patternNames = []struct {
	p    Pattern
	name string
}{
	{Doji, "doji"},
	{Hammer, "hammer"},
	{BullishEngulfing, "bullish_engulfing"},
	{BearishEngulfing, "bearish_engulfing"},
	{MorningStar, "morning_star"},
	{ThreeBlackCrows, "three_black_crows"},
	{PiercingLine, "piercing_line"},
	{DarkCloudCover, "dark_cloud_cover"},
}

func (p Pattern) Has(q Pattern) bool { return p&q == q }

func (p Pattern) String() string {
	var names []string
	for _, pn := range patternNames {
		if p.Has(pn.p) {
			names = append(names, pn.name)
		}
	}
	return strings.Join(names, "|")
}

// PatternThresholds are the ratios the detectors compare against.
type PatternThresholds struct {
	DojiBodyRatio    float64 // |body|/range below this is a doji
	HammerWickRatio  float64 // lower wick must exceed this many bodies
	HammerUpperRatio float64 // upper wick must stay under this many bodies
	EngulfingRatio   float64 // engulfing body must be this many times the prior body
	StarBodyRatio    float64 // morning star middle body relative to the first
}

func DefaultPatternThresholds() PatternThresholds {
	return PatternThresholds{
		DojiBodyRatio:    0.1,
		HammerWickRatio:  2,
		HammerUpperRatio: 0.5,
		EngulfingRatio:   1.5,
		StarBodyRatio:    0.3,
	}
}

// DetectPatterns checks cur against up to three prior candles, oldest first.
func DetectPatterns(cur model.Candle, prior []model.Candle, th PatternThresholds) Pattern {
	var out Pattern
	if isDoji(cur, th) {
		out |= Doji
	}
	if isHammer(cur, th) {
		out |= Hammer
	}
	if len(prior) >= 1 {
		prev := prior[len(prior)-1]
		if isEngulfing(prev, cur, th, 1) {
			out |= BullishEngulfing
		}
		if isEngulfing(prev, cur, th, -1) {
			out |= BearishEngulfing
		}
		if isPiercing(prev, cur) {
			out |= PiercingLine
		}
		if isDarkCloud(prev, cur) {
			out |= DarkCloudCover
		}
	}
	if len(prior) >= 2 {
		first, middle := prior[len(prior)-2], prior[len(prior)-1]
		if isMorningStar(first, middle, cur, th) {
			out |= MorningStar
		}
		if isThreeBlackCrows(first, middle, cur) {
			out |= ThreeBlackCrows
		}
	}
	return out
}

func isDoji(c model.Candle, th PatternThresholds) bool {
	r := c.Range()
	if r == 0 {
		return true
	}
	return math.Abs(c.Body())/r < th.DojiBodyRatio
}

func isHammer(c model.Candle, th PatternThresholds) bool {
	body := math.Abs(c.Body())
	if body == 0 {
		return false
	}
	p := Props(c)
	return p.LowerWick > th.HammerWickRatio*body && p.UpperWick < th.HammerUpperRatio*body
}

// isEngulfing with sign 1 is bullish: a red candle followed by a larger green one covering its body.
func isEngulfing(prev, cur model.Candle, th PatternThresholds, sign float64) bool {
	pb, cb := prev.Body()*sign, cur.Body()*sign
	if pb >= 0 || cb <= 0 {
		return false
	}
	if cb < th.EngulfingRatio*(-pb) {
		return false
	}
	if sign > 0 {
		return cur.Open <= prev.Close && cur.Close >= prev.Open
	}
	return cur.Open >= prev.Close && cur.Close <= prev.Open
}

func midBody(c model.Candle) float64 { return (c.Open + c.Close) / 2 }

func isPiercing(prev, cur model.Candle) bool {
	return prev.Body() < 0 && cur.Body() > 0 &&
		cur.Open < prev.Close && cur.Close > midBody(prev) && cur.Close < prev.Open
}

func isDarkCloud(prev, cur model.Candle) bool {
	return prev.Body() > 0 && cur.Body() < 0 &&
		cur.Open > prev.Close && cur.Close < midBody(prev) && cur.Close > prev.Open
}

func isMorningStar(first, star, cur model.Candle, th PatternThresholds) bool {
	if first.Body() >= 0 || cur.Body() <= 0 {
		return false
	}
	return math.Abs(star.Body()) <= th.StarBodyRatio*math.Abs(first.Body()) &&
		cur.Close > midBody(first)
}

func isThreeBlackCrows(a, b, c model.Candle) bool {
	if a.Body() >= 0 || b.Body() >= 0 || c.Body() >= 0 {
		return false
	}
	step := func(x, y model.Candle) bool {
		return y.Open <= x.Open && y.Open >= x.Close && y.Close < x.Close
	}
	return step(a, b) && step(b, c)
}
