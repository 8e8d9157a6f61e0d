package sim

import (
	"fmt"
	"math"

	"github.com/google/uuid"
)

// dischargeFloorFraction is the SoC fraction below which a charger refuses
// to discharge a connected battery.
const dischargeFloorFraction = 0.10

// EfficiencyPoint maps a charging power level to a transfer efficiency.
type EfficiencyPoint struct {
	PowerKW    float64 `json:"power_kw"`
	Efficiency float64 `json:"efficiency"`
}

// defaultEfficiencyCurve is the manufacturer curve used when a spec does not
// provide one.
func defaultEfficiencyCurve() []EfficiencyPoint {
	return []EfficiencyPoint{
		{PowerKW: 3.6, Efficiency: 0.95},
		{PowerKW: 7.2, Efficiency: 0.97},
		{PowerKW: 22, Efficiency: 0.98},
		{PowerKW: 50, Efficiency: 0.98},
	}
}

// ChargerSpec carries the physical parameters of one charging station.
type ChargerSpec struct {
	MaxChargingPowerKW    float64           `json:"max_charging_power_kw"`
	MaxDischargingPowerKW float64           `json:"max_discharging_power_kw"`
	Efficiency            float64           `json:"efficiency"`
	ChargeEfficiencyCurve []EfficiencyPoint `json:"charge_efficiency_curve,omitempty"`
}

// Charger is the energy-transfer state machine between the grid and at most
// one connected EV. It references, never owns, its vehicles: the scenario
// re-establishes connections every step.
type Charger struct {
	clock Clock

	id   string
	spec ChargerSpec

	connectedEV *ElectricVehicle
	incomingEV  *ElectricVehicle

	consumption      []float64
	noPartialLoad    []float64
	actionValues     []float64
	pastConnectedEVs []string
	totalConsumption float64
}

// NewCharger validates the spec and returns a charger with a fresh UUID.
func NewCharger(spec ChargerSpec) (*Charger, error) {
	if spec.MaxChargingPowerKW <= 0 {
		spec.MaxChargingPowerKW = zeroDivisionPowerKW
	}
	if spec.MaxDischargingPowerKW <= 0 {
		spec.MaxDischargingPowerKW = zeroDivisionPowerKW
	}
	if spec.Efficiency == 0 {
		spec.Efficiency = 1
	}
	if spec.Efficiency < 0 {
		return nil, fmt.Errorf("charger efficiency must be positive, got %f", spec.Efficiency)
	}
	if len(spec.ChargeEfficiencyCurve) == 0 {
		spec.ChargeEfficiencyCurve = defaultEfficiencyCurve()
	}
	return &Charger{
		id:            uuid.NewString(),
		spec:          spec,
		consumption:   []float64{0},
		noPartialLoad: []float64{0},
	}, nil
}

// ID returns the charger's unique identifier.
func (c *Charger) ID() string { return c.id }

// ConnectedEV returns the currently plugged vehicle, if any.
func (c *Charger) ConnectedEV() *ElectricVehicle { return c.connectedEV }

// IncomingEV returns the vehicle en route to this charger, if any.
func (c *Charger) IncomingEV() *ElectricVehicle { return c.incomingEV }

// PlugCar connects a vehicle and records it in the per-step history.
func (c *Charger) PlugCar(ev *ElectricVehicle) {
	c.connectedEV = ev
	if ev != nil {
		c.pastConnectedEVs = append(c.pastConnectedEVs, ev.Name())
	}
}

// UnplugCar clears the connected vehicle.
func (c *Charger) UnplugCar() { c.connectedEV = nil }

// AssociateIncomingCar marks a vehicle as en route to this charger.
func (c *Charger) AssociateIncomingCar(ev *ElectricVehicle) { c.incomingEV = ev }

// DisassociateIncomingCar clears the incoming reference.
func (c *Charger) DisassociateIncomingCar() { c.incomingEV = nil }

// EfficiencyAt returns the curve efficiency at the nearest known power level.
func (c *Charger) EfficiencyAt(powerKW float64) float64 {
	best := c.spec.ChargeEfficiencyCurve[0]
	for _, p := range c.spec.ChargeEfficiencyCurve[1:] {
		if math.Abs(p.PowerKW-powerKW) < math.Abs(best.PowerKW-powerKW) {
			best = p
		}
	}
	return best.Efficiency
}

// AvailableNominalPower returns the power the connected battery can still
// accept, bounded by the charger's own limit.
func (c *Charger) AvailableNominalPower() float64 {
	if c.connectedEV == nil {
		return c.spec.MaxChargingPowerKW
	}
	nominal := c.connectedEV.Battery().NominalPowerKW()
	if nominal < c.spec.MaxChargingPowerKW {
		return nominal
	}
	return c.spec.MaxChargingPowerKW
}

// UpdateConnectedEVSoC converts a signed fractional action into an energy
// transfer on the connected EV's battery, clipped to the battery's capacity
// bound and the 10%-of-capacity discharge floor. The auxiliary battery moves
// at full power toward the departure target, in either direction, for the
// no-partial-load comparison.
func (c *Charger) UpdateConnectedEVSoC(action float64) {
	c.actionValues = append(c.actionValues, action)

	if c.connectedEV == nil || action == 0 {
		c.consumption[len(c.consumption)-1] = 0
		c.noPartialLoad[len(c.noPartialLoad)-1] = 0
		return
	}

	battery := c.connectedEV.Battery()

	var energy float64
	if action > 0 {
		energy = action * c.spec.MaxChargingPowerKW
		if room := battery.CapacityKWh() - battery.SoCKWh(); energy > room {
			energy = room
		}
	} else {
		energy = action * c.spec.MaxDischargingPowerKW
		floor := -(battery.SoCKWh() - dischargeFloorFraction*battery.CapacityKWh())
		if energy < floor {
			energy = floor
		}
	}

	battery.Charge(energy * c.spec.Efficiency)
	c.consumption[len(c.consumption)-1] = battery.LastConsumption()

	aux := c.connectedEV.AuxBattery()
	target := aux.CapacityKWh()*c.connectedEV.RequiredSoCDeparture() - aux.SoCKWh()
	if target > c.spec.MaxChargingPowerKW {
		target = c.spec.MaxChargingPowerKW
	}
	aux.Charge(target)
	c.noPartialLoad[len(c.noPartialLoad)-1] = aux.LastConsumption()
}

// UpdateElectricityConsumption accumulates grid-side consumption for this
// charger. Negative values violate the contract.
func (c *Charger) UpdateElectricityConsumption(kwh float64) error {
	if kwh < 0 {
		return fmt.Errorf("charger %s: consumption update must be non-negative, got %f", c.id, kwh)
	}
	c.totalConsumption += kwh
	return nil
}

// TotalConsumption returns the accumulated grid-side consumption.
func (c *Charger) TotalConsumption() float64 { return c.totalConsumption }

// ConsumptionHistory returns the metered per-step transfer series.
func (c *Charger) ConsumptionHistory() []float64 { return c.consumption }

// NoPartialLoadHistory returns the comparison per-step transfer series.
func (c *Charger) NoPartialLoadHistory() []float64 { return c.noPartialLoad }

// ActionHistory returns every raw action value this charger received.
func (c *Charger) ActionHistory() []float64 { return c.actionValues }

// PastConnectedEVs returns the names of vehicles plugged so far.
func (c *Charger) PastConnectedEVs() []string { return c.pastConnectedEVs }

// LastConsumption returns the transfer recorded for the current step.
func (c *Charger) LastConsumption() float64 { return c.consumption[len(c.consumption)-1] }

// NextTimeStep opens a fresh zero-consumption slot and drops both vehicle
// references. The scenario re-plugs cars every step.
func (c *Charger) NextTimeStep() {
	c.consumption = append(c.consumption, 0)
	c.noPartialLoad = append(c.noPartialLoad, 0)
	c.connectedEV = nil
	c.incomingEV = nil
	c.clock.Advance()
}

// Reset truncates all histories to a single zero element.
func (c *Charger) Reset() {
	c.consumption = []float64{0}
	c.noPartialLoad = []float64{0}
	c.actionValues = nil
	c.pastConnectedEVs = nil
	c.totalConsumption = 0
	c.connectedEV = nil
	c.incomingEV = nil
	c.clock.Reset()
}
