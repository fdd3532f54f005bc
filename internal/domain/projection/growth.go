package projection

import "math"

// ComputeExponentialGrowth returns a geometric client curve of the given
// number of steps running from start to end. Non-positive endpoints are
// clamped to 1 and the final point is always exactly end.
func ComputeExponentialGrowth(start, end, steps int) []int {
	if start <= 0 {
		start = 1
	}
	if end <= 0 {
		end = 1
	}
	if steps <= 1 {
		return []int{end}
	}

	rate := math.Pow(float64(end)/float64(start), 1/float64(steps-1)) - 1
	curve := make([]int, steps)
	for i := range curve {
		curve[i] = int(math.Round(float64(start) * math.Pow(1+rate, float64(i))))
	}
	curve[steps-1] = end
	return curve
}
