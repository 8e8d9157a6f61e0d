package sim

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	defaultMinSoCPercent = 20

	socNoiseSigma = 0.1
	socNoiseClip  = 0.2
)

// ElectricVehicle is a car with a controllable primary battery and a shadow
// auxiliary battery used only for the no-partial-load comparison. The
// itinerary drives when it is reachable and what SoC it is expected to
// arrive with.
type ElectricVehicle struct {
	clock Clock
	name  string

	battery    *Battery
	auxBattery *Battery
	itinerary  Itinerary

	minSoCPercent float64
	noise         distuv.Normal
}

// NewElectricVehicle builds an EV from a validated itinerary and two
// identically sized batteries. The seed fixes the SoC prediction noise.
func NewElectricVehicle(name string, battery, auxBattery *Battery, itinerary Itinerary, seed uint64) (*ElectricVehicle, error) {
	if battery == nil || auxBattery == nil {
		return nil, fmt.Errorf("ev %s: both batteries are required", name)
	}
	if err := itinerary.Validate(); err != nil {
		return nil, fmt.Errorf("ev %s: %w", name, err)
	}
	return &ElectricVehicle{
		name:          name,
		battery:       battery,
		auxBattery:    auxBattery,
		itinerary:     itinerary,
		minSoCPercent: defaultMinSoCPercent,
		noise:         distuv.Normal{Mu: 0, Sigma: socNoiseSigma, Src: rand.NewSource(seed)},
	}, nil
}

// Name returns the vehicle identifier.
func (ev *ElectricVehicle) Name() string { return ev.name }

// Battery returns the controllable primary battery.
func (ev *ElectricVehicle) Battery() *Battery { return ev.battery }

// AuxBattery returns the comparison battery. No control decision reads it.
func (ev *ElectricVehicle) AuxBattery() *Battery { return ev.auxBattery }

// ChargerState returns the itinerary state at the current step.
func (ev *ElectricVehicle) ChargerState() ChargerState {
	return ev.itinerary.StateAt(ev.clock.TimeStep())
}

// RequiredSoCDeparture returns the departure SoC target as a fraction of
// capacity.
func (ev *ElectricVehicle) RequiredSoCDeparture() float64 {
	return ev.itinerary.RequiredSoCDeparture
}

// NextTimeStep advances both batteries and the clock, then re-estimates the
// SoC if the new step makes the car reachable (incoming) or has it depart.
func (ev *ElectricVehicle) NextTimeStep() {
	ev.battery.NextTimeStep()
	ev.auxBattery.NextTimeStep()
	ev.clock.Advance()

	switch ev.ChargerState() {
	case StateIncoming:
		ev.AdjustSoCOnSystemConnection(ev.itinerary.PredictedArrivalSoCAt(ev.clock.TimeStep()))
	case StateDeparting:
		ev.AdjustSoCOnSystemConnection(ev.battery.SoCFraction() * 100)
	}
}

// AdjustSoCOnSystemConnection moves the battery SoC toward the predicted
// value (a percentage of capacity) perturbed by one clipped Gaussian draw.
// The same fractional perturbation is applied to the auxiliary battery so
// the two remain comparable.
func (ev *ElectricVehicle) AdjustSoCOnSystemConnection(predictedSoCPercent float64) {
	v := ev.noise.Rand()
	if v > socNoiseClip {
		v = socNoiseClip
	}
	if v < -socNoiseClip {
		v = -socNoiseClip
	}

	targetKWh := predictedSoCPercent / 100 * ev.battery.CapacityKWh()
	finalKWh := targetKWh + v*targetKWh
	ev.battery.SetAdHocCharge(finalKWh - ev.battery.SoCKWh())

	auxTargetKWh := predictedSoCPercent / 100 * ev.auxBattery.CapacityKWh()
	auxFinalKWh := auxTargetKWh + v*auxTargetKWh
	ev.auxBattery.SetAdHocCharge(auxFinalKWh - ev.auxBattery.SoCKWh())
}

// Observations returns the EV-side named features exposed to the agent.
func (ev *ElectricVehicle) Observations() map[string]float64 {
	return map[string]float64{
		"charger_state":          float64(ev.ChargerState()),
		"predicted_arrival_soc":  ev.itinerary.PredictedArrivalSoCAt(ev.clock.TimeStep()),
		"required_soc_departure": ev.itinerary.RequiredSoCDeparture,
		"battery_soc":            ev.battery.SoCFraction(),
		"min_soc_percent":        ev.minSoCPercent,
	}
}

// Reset restores both batteries and rewinds the clock.
func (ev *ElectricVehicle) Reset() {
	ev.battery.Reset()
	ev.auxBattery.Reset()
	ev.clock.Reset()
}
