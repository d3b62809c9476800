package equity

import "math"

// Wilson95 is the Wilson score interval for a proportion p observed over n
// trials. Ties are already folded into p as fractional wins.
func Wilson95(p float64, n int) (low, hi float64) {
	if n <= 0 {
		return 0, 1
	}
	z := 1.96
	fn := float64(n)
	den := 1 + (z*z)/fn
	center := p + (z*z)/(2*fn)
	half := z * math.Sqrt((p*(1-p))/fn+(z*z)/(4*fn*fn))
	return math.Max(0, (center-half)/den), math.Min(1, (center+half)/den)
}

// HalfWidth is the normal-approximation 95% half-width 1.96*sqrt(p(1-p)/n).
func HalfWidth(p float64, n int) float64 {
	return 1.96 * math.Sqrt(p*(1-p)/float64(max(n, 1)))
}
