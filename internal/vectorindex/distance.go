package vectorindex

// SquaredL2 returns the squared Euclidean distance between a and b.
// Mismatched-dimension vectors get a large fixed distance,
// (len(a)+len(b))*1e6, so a caller that mixes dimensions sees a search
// result rather than a panic.
func SquaredL2(a, b []float32) float32 {
	if len(a) != len(b) {
		return float32(len(a)+len(b)) * 1e6
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return float32(sum)
}
