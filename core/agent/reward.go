package agent

// RewardFunc converts per-agent net electricity demand (negative when the
// agent consumes more than it generates) into one reward per agent.
type RewardFunc func(demand []float64) []float64

// CubicReward is the single-agent variant: net consumption is penalized with
// its cube and net generation earns nothing.
func CubicReward(demand []float64) []float64 {
	rewards := make([]float64, len(demand))
	for i, d := range demand {
		r := d * d * d
		if r > 0 {
			r = 0
		}
		rewards[i] = r
	}
	return rewards
}

// SharedReward is the information-sharing variant: each agent's quadratic
// penalty is scaled by the district-wide total demand, coupling individual
// and collective consumption.
func SharedReward(demand []float64) []float64 {
	var total float64
	for _, d := range demand {
		total -= d
	}
	if total < 0 {
		total = 0
	}
	rewards := make([]float64, len(demand))
	for i, d := range demand {
		sign := 1.0
		if d < 0 {
			sign = -1
		}
		rewards[i] = sign * 0.01 * d * d * total
	}
	return rewards
}
