package sim

import "fmt"

// ChargerState encodes an EV's relation to its charger at one time step.
type ChargerState int

const (
	// StateDisconnected means the car is away and unreachable.
	StateDisconnected ChargerState = 0
	// StateConnected means the car is plugged in and controllable.
	StateConnected ChargerState = 1
	// StateIncoming means the car is en route; its arrival SoC can be
	// estimated but no energy transfer is possible yet.
	StateIncoming ChargerState = 2
	// StateDeparting means the car has just unplugged.
	StateDeparting ChargerState = 3
)

// Itinerary is the simulated trace of one EV: its charger state at every
// step, plus the predicted arrival/departure conditions used for SoC
// estimation. PredictedArrivalSoC is a percentage of capacity;
// RequiredSoCDeparture is a fraction of capacity.
type Itinerary struct {
	States               []ChargerState `json:"states"`
	PredictedArrivalSoC  []float64      `json:"predicted_arrival_soc"`
	RequiredSoCDeparture float64        `json:"required_soc_departure"`
}

// Validate checks the trace for internal consistency.
func (it Itinerary) Validate() error {
	if len(it.States) == 0 {
		return fmt.Errorf("itinerary has no states")
	}
	if len(it.PredictedArrivalSoC) != len(it.States) {
		return fmt.Errorf("predicted arrival soc length %d does not match states length %d",
			len(it.PredictedArrivalSoC), len(it.States))
	}
	for i, s := range it.States {
		if s < StateDisconnected || s > StateDeparting {
			return fmt.Errorf("state %d at step %d out of range", s, i)
		}
	}
	for i, p := range it.PredictedArrivalSoC {
		if p < 0 || p > 100 {
			return fmt.Errorf("predicted arrival soc %f at step %d outside [0,100]", p, i)
		}
	}
	if it.RequiredSoCDeparture < 0 || it.RequiredSoCDeparture > 1 {
		return fmt.Errorf("required departure soc %f outside [0,1]", it.RequiredSoCDeparture)
	}
	return nil
}

// StateAt returns the charger state at the given step, wrapping around so a
// daily trace repeats over a longer episode.
func (it Itinerary) StateAt(timeStep int) ChargerState {
	return it.States[timeStep%len(it.States)]
}

// PredictedArrivalSoCAt returns the predicted arrival SoC percentage for the
// given step, with the same wrap-around as StateAt.
func (it Itinerary) PredictedArrivalSoCAt(timeStep int) float64 {
	return it.PredictedArrivalSoC[timeStep%len(it.PredictedArrivalSoC)]
}
