package indicator

import "StrategyLab/internal/model"

// isMotherChild reports whether child's high and low sit strictly inside mother's.
func isMotherChild(motherHigh, motherLow float64, child model.Candle) bool {
	return motherHigh > child.High && motherLow < child.Low
}

func isOpposite(a, b model.Candle) bool {
	return !((a.Body() > 0 && b.Body() > 0) || (a.Body() < 0 && b.Body() < 0))
}

// compress tags cur given the previous candle and its tag. A new range is
// appended to st when cur is the first child of prev.
func compress(st *State, idx int, cur model.Candle, prev *model.Candle, prevTag Compression) Compression {
	none := Compression{Range: -1}
	if prev == nil {
		return none
	}
	if prevTag.Inside {
		r := st.ranges[prevTag.Range]
		if isMotherChild(r.High, r.Low, cur) || (cur.Close < r.High && cur.Close > r.Low) {
			return prevTag
		}
	}
	if !isMotherChild(prev.High, prev.Low, cur) {
		return none
	}
	volumeChange := 0.0
	if prev.Volume != 0 {
		volumeChange = (cur.Volume - prev.Volume) / prev.Volume
	}
	st.ranges = append(st.ranges, CompressionRange{
		MotherIndex:  idx - 1,
		High:         prev.High,
		Low:          prev.Low,
		VolumeChange: volumeChange,
		Opposite:     isOpposite(*prev, cur),
	})
	return Compression{Inside: true, Range: len(st.ranges) - 1}
}
