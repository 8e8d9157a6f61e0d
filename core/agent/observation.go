package agent

import "fmt"

// ObservationSchema names the positions of semantically relevant fields in
// the flat state vector, so reward shaping and the feasibility constraint do
// not depend on hard-coded indices.
type ObservationSchema struct {
	// HourIndex is the position of the hour-of-day observation (1..24).
	HourIndex int `json:"hour_index"`
	// SoCIndices holds, per storage-controlling action dimension, the
	// position of the associated state-of-charge observation (fraction in
	// [0, 1]).
	SoCIndices []int `json:"soc_indices"`
}

// Validate checks the schema against the declared state and action sizes.
func (s ObservationSchema) Validate(stateDim, actionDim int) error {
	if s.HourIndex < 0 || s.HourIndex >= stateDim {
		return fmt.Errorf("hour index %d out of range for state size %d", s.HourIndex, stateDim)
	}
	if len(s.SoCIndices) != 0 && len(s.SoCIndices) != actionDim {
		return fmt.Errorf("got %d soc indices for %d actions", len(s.SoCIndices), actionDim)
	}
	for _, idx := range s.SoCIndices {
		if idx < 0 || idx >= stateDim {
			return fmt.Errorf("soc index %d out of range for state size %d", idx, stateDim)
		}
	}
	return nil
}

// Hour extracts the hour-of-day observation from a state vector.
func (s ObservationSchema) Hour(state []float64) (float64, error) {
	if s.HourIndex >= len(state) {
		return 0, fmt.Errorf("state of size %d has no hour at index %d", len(state), s.HourIndex)
	}
	return state[s.HourIndex], nil
}

// ActionSpace describes per-dimension continuous action bounds.
type ActionSpace struct {
	Low  []float64 `json:"low"`
	High []float64 `json:"high"`
}

// Dim returns the number of action dimensions.
func (a ActionSpace) Dim() int { return len(a.Low) }

// Validate checks the bounds are well formed.
func (a ActionSpace) Validate() error {
	if len(a.Low) == 0 {
		return fmt.Errorf("action space is empty")
	}
	if len(a.Low) != len(a.High) {
		return fmt.Errorf("low and high bounds differ in length: %d vs %d", len(a.Low), len(a.High))
	}
	for i := range a.Low {
		if a.High[i] <= a.Low[i] {
			return fmt.Errorf("action dimension %d has high %f <= low %f", i, a.High[i], a.Low[i])
		}
	}
	return nil
}

// scaleBias returns the affine transform mapping tanh output in [-1, 1] to
// the declared bounds.
func (a ActionSpace) scaleBias() (scale, bias []float64) {
	scale = make([]float64, len(a.Low))
	bias = make([]float64, len(a.Low))
	for i := range a.Low {
		scale[i] = (a.High[i] - a.Low[i]) / 2
		bias[i] = (a.High[i] + a.Low[i]) / 2
	}
	return scale, bias
}
