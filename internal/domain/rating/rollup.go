package rating

// Summary is a property's rating rollup.
type Summary struct {
	Average float64
	Count   int
}

// Summarize recomputes the rollup from the full set of stored values.
// An empty set yields the zero Summary.
func Summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return Summary{Average: Round1(sum / float64(len(values))), Count: len(values)}
}
