package analytics

// Bar is one column of a bar chart; Height is a percentage of the tallest bar.
type Bar struct {
	Label  string  `json:"label"`
	Value  int     `json:"value"`
	Height float64 `json:"height"`
}

// BarChart scales a histogram so the largest bucket is 100%. An all-zero histogram
// yields flat bars.
func BarChart(h Histogram) []Bar {
	max := 1
	for _, b := range h {
		if b.Count > max {
			max = b.Count
		}
	}
	bars := make([]Bar, 0, len(h))
	for _, b := range h {
		bars = append(bars, Bar{Label: b.Label, Value: b.Count, Height: float64(b.Count) / float64(max) * 100})
	}
	return bars
}
