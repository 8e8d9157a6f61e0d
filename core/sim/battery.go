package sim

import "fmt"

// zeroDivisionPowerKW replaces a zero nominal power so ratio computations
// never divide by zero.
const zeroDivisionPowerKW = 0.00001

// Battery models a storage unit with a capacity bound and a nominal power
// limit. SoC is tracked in kWh and every step's energy delta is appended to
// a consumption series.
type Battery struct {
	clock Clock

	capacityKWh    float64
	nominalPowerKW float64
	initialSoCKWh  float64

	socKWh      []float64
	consumption []float64
}

// NewBattery validates the physical parameters and returns a battery at its
// initial state of charge.
func NewBattery(capacityKWh, nominalPowerKW, initialSoCKWh float64) (*Battery, error) {
	if capacityKWh <= 0 {
		return nil, fmt.Errorf("battery capacity must be positive, got %f", capacityKWh)
	}
	if nominalPowerKW <= 0 {
		nominalPowerKW = zeroDivisionPowerKW
	}
	if initialSoCKWh < 0 || initialSoCKWh > capacityKWh {
		return nil, fmt.Errorf("initial soc %f outside [0, %f]", initialSoCKWh, capacityKWh)
	}
	return &Battery{
		capacityKWh:    capacityKWh,
		nominalPowerKW: nominalPowerKW,
		initialSoCKWh:  initialSoCKWh,
		socKWh:         []float64{initialSoCKWh},
		consumption:    []float64{0},
	}, nil
}

// CapacityKWh returns the total capacity.
func (b *Battery) CapacityKWh() float64 { return b.capacityKWh }

// NominalPowerKW returns the power limit used to clip per-step energy.
func (b *Battery) NominalPowerKW() float64 { return b.nominalPowerKW }

// SoCKWh returns the state of charge at the current time step.
func (b *Battery) SoCKWh() float64 { return b.socKWh[len(b.socKWh)-1] }

// SoCFraction returns SoC relative to capacity.
func (b *Battery) SoCFraction() float64 { return b.SoCKWh() / b.capacityKWh }

// Charge applies a signed energy amount (kWh) for the current step, clipped
// to the nominal power limit and to the [0, capacity] bounds. It records the
// applied delta in the consumption series and returns it.
func (b *Battery) Charge(energyKWh float64) float64 {
	if energyKWh > b.nominalPowerKW {
		energyKWh = b.nominalPowerKW
	} else if energyKWh < -b.nominalPowerKW {
		energyKWh = -b.nominalPowerKW
	}
	soc := b.SoCKWh()
	next := soc + energyKWh
	if next > b.capacityKWh {
		next = b.capacityKWh
	}
	if next < 0 {
		next = 0
	}
	applied := next - soc
	b.socKWh[len(b.socKWh)-1] = next
	b.consumption[len(b.consumption)-1] = applied
	return applied
}

// SetAdHocCharge sets the SoC directly by a signed delta, bypassing the
// nominal power limit. It models an external state change (driving) that is
// not metered through a charger.
func (b *Battery) SetAdHocCharge(deltaKWh float64) {
	soc := b.SoCKWh() + deltaKWh
	if soc > b.capacityKWh {
		soc = b.capacityKWh
	}
	if soc < 0 {
		soc = 0
	}
	b.socKWh[len(b.socKWh)-1] = soc
}

// LastConsumption returns the energy delta recorded for the current step.
func (b *Battery) LastConsumption() float64 { return b.consumption[len(b.consumption)-1] }

// ConsumptionHistory returns the per-step energy deltas since the last reset.
func (b *Battery) ConsumptionHistory() []float64 { return b.consumption }

// NextTimeStep carries the SoC forward into a fresh zero-consumption slot.
func (b *Battery) NextTimeStep() {
	b.socKWh = append(b.socKWh, b.SoCKWh())
	b.consumption = append(b.consumption, 0)
	b.clock.Advance()
}

// Reset restores the initial SoC and truncates the histories.
func (b *Battery) Reset() {
	b.socKWh = []float64{b.initialSoCKWh}
	b.consumption = []float64{0}
	b.clock.Reset()
}
