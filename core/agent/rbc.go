package agent

// RBCAgent is a fixed rule-based baseline: store energy during the night,
// release it during the day. It is used for no-learning comparison runs.
type RBCAgent struct {
	actionDim     int
	schema        ObservationSchema
	actionTracker [][]float64
}

// NewRBCAgent builds a rule-based agent for the given action size.
func NewRBCAgent(actionDim int, schema ObservationSchema) *RBCAgent {
	return &RBCAgent{actionDim: actionDim, schema: schema}
}

// SelectAction applies the hour-of-day rule to every action dimension.
func (a *RBCAgent) SelectAction(state []float64) ([]float64, error) {
	hour, err := a.schema.Hour(state)
	if err != nil {
		return nil, err
	}
	var value float64
	switch {
	case hour >= 9 && hour <= 21:
		value = -0.08
	case hour >= 1 && hour <= 8 || hour >= 22 && hour <= 24:
		value = 0.091
	}
	action := make([]float64, a.actionDim)
	for d := range action {
		action[d] = value
	}
	a.actionTracker = append(a.actionTracker, action)
	return action, nil
}

// ActionTracker returns the history of selected actions.
func (a *RBCAgent) ActionTracker() [][]float64 { return a.actionTracker }

// ResetActionTracker clears the action history.
func (a *RBCAgent) ResetActionTracker() { a.actionTracker = nil }
