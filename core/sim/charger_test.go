package sim

import (
	"math"
	"testing"
)

func testEV(t *testing.T, capacity, nominal, initial float64) *ElectricVehicle {
	t.Helper()
	battery, err := NewBattery(capacity, nominal, initial)
	if err != nil {
		t.Fatalf("battery: %v", err)
	}
	aux, err := NewBattery(capacity, nominal, initial)
	if err != nil {
		t.Fatalf("aux battery: %v", err)
	}
	it := Itinerary{
		States:               []ChargerState{StateConnected},
		PredictedArrivalSoC:  []float64{55},
		RequiredSoCDeparture: 0.8,
	}
	ev, err := NewElectricVehicle("ev-test", battery, aux, it, 1)
	if err != nil {
		t.Fatalf("ev: %v", err)
	}
	return ev
}

func TestNewChargerDefaults(t *testing.T) {
	c, err := NewCharger(ChargerSpec{MaxChargingPowerKW: 11, MaxDischargingPowerKW: 11})
	if err != nil {
		t.Fatalf("new charger: %v", err)
	}
	if c.ID() == "" {
		t.Fatalf("expected generated charger id")
	}
	if c.spec.Efficiency != 1 {
		t.Fatalf("expected default efficiency 1, got %v", c.spec.Efficiency)
	}
	if got := c.EfficiencyAt(7.0); got != 0.97 {
		t.Fatalf("expected nearest-level efficiency 0.97 at 7kW, got %v", got)
	}

	if _, err := NewCharger(ChargerSpec{MaxChargingPowerKW: 11, Efficiency: -0.5}); err == nil {
		t.Fatalf("expected error for negative efficiency")
	}
}

func TestChargerNoEVOrZeroAction(t *testing.T) {
	c, err := NewCharger(ChargerSpec{MaxChargingPowerKW: 11, MaxDischargingPowerKW: 11})
	if err != nil {
		t.Fatalf("new charger: %v", err)
	}

	c.UpdateConnectedEVSoC(0.5)
	if c.LastConsumption() != 0 {
		t.Fatalf("no EV connected: expected zero consumption, got %v", c.LastConsumption())
	}

	c.PlugCar(testEV(t, 50, 100, 25))
	c.UpdateConnectedEVSoC(0)
	if c.LastConsumption() != 0 {
		t.Fatalf("zero action: expected zero consumption, got %v", c.LastConsumption())
	}
	if got := len(c.ActionHistory()); got != 2 {
		t.Fatalf("every action must be recorded, got %d entries", got)
	}
}

func TestChargerCapacityClamp(t *testing.T) {
	c, err := NewCharger(ChargerSpec{MaxChargingPowerKW: 20, MaxDischargingPowerKW: 20})
	if err != nil {
		t.Fatalf("new charger: %v", err)
	}
	ev := testEV(t, 50, 100, 48)
	c.PlugCar(ev)

	// Action 0.5 asks for 10 kWh; only 2 kWh of headroom remain.
	c.UpdateConnectedEVSoC(0.5)
	if got := c.LastConsumption(); got > 2 {
		t.Fatalf("expected applied energy <= 2 kWh, got %v", got)
	}
	if got := ev.Battery().SoCKWh(); got != 50 {
		t.Fatalf("expected battery full at 50 kWh, got %v", got)
	}
}

func TestChargerDischargeFloor(t *testing.T) {
	c, err := NewCharger(ChargerSpec{MaxChargingPowerKW: 20, MaxDischargingPowerKW: 20})
	if err != nil {
		t.Fatalf("new charger: %v", err)
	}
	ev := testEV(t, 50, 100, 6)
	c.PlugCar(ev)

	// Action -0.5 asks for -10 kWh; the 10% floor (5 kWh) allows only 1.
	c.UpdateConnectedEVSoC(-0.5)
	if got := c.LastConsumption(); got < -1-1e-12 {
		t.Fatalf("expected discharge bounded at -1 kWh, got %v", got)
	}
	if got := ev.Battery().SoCKWh(); math.Abs(got-5) > 1e-12 {
		t.Fatalf("expected soc at the 5 kWh floor, got %v", got)
	}
}

func TestChargerEfficiencyScalesTransfer(t *testing.T) {
	c, err := NewCharger(ChargerSpec{MaxChargingPowerKW: 10, MaxDischargingPowerKW: 10, Efficiency: 0.9})
	if err != nil {
		t.Fatalf("new charger: %v", err)
	}
	ev := testEV(t, 50, 100, 20)
	c.PlugCar(ev)

	c.UpdateConnectedEVSoC(0.5) // 5 kWh requested, 4.5 after efficiency
	if got := c.LastConsumption(); math.Abs(got-4.5) > 1e-12 {
		t.Fatalf("expected 4.5 kWh after efficiency, got %v", got)
	}
}

func TestChargerNoPartialLoadComparison(t *testing.T) {
	c, err := NewCharger(ChargerSpec{MaxChargingPowerKW: 10, MaxDischargingPowerKW: 10})
	if err != nil {
		t.Fatalf("new charger: %v", err)
	}
	ev := testEV(t, 50, 100, 20)
	c.PlugCar(ev)

	// Departure target is 0.8*50 = 40 kWh; the aux battery needs 20 but
	// the charger can move at most 10 per step.
	c.UpdateConnectedEVSoC(0.1)
	if got := c.NoPartialLoadHistory()[0]; math.Abs(got-10) > 1e-12 {
		t.Fatalf("expected full-power aux charge of 10 kWh, got %v", got)
	}
	// The comparison stream never touches the primary battery.
	if got := ev.Battery().SoCKWh(); got != 21 {
		t.Fatalf("expected primary soc 21, got %v", got)
	}
}

func TestChargerNoPartialLoadDischargesAboveTarget(t *testing.T) {
	c, err := NewCharger(ChargerSpec{MaxChargingPowerKW: 10, MaxDischargingPowerKW: 10})
	if err != nil {
		t.Fatalf("new charger: %v", err)
	}
	ev := testEV(t, 50, 100, 45)
	c.PlugCar(ev)

	// The aux battery sits 5 kWh above the 40 kWh departure target; the
	// comparison stream discharges it back down and records that energy.
	c.UpdateConnectedEVSoC(0.1)
	if got := c.NoPartialLoadHistory()[0]; math.Abs(got-(-5)) > 1e-12 {
		t.Fatalf("expected aux discharge of -5 kWh, got %v", got)
	}
	if got := ev.AuxBattery().SoCKWh(); math.Abs(got-40) > 1e-12 {
		t.Fatalf("expected aux soc back at the 40 kWh target, got %v", got)
	}
}

func TestChargerNextTimeStepClearsConnections(t *testing.T) {
	c, err := NewCharger(ChargerSpec{MaxChargingPowerKW: 10, MaxDischargingPowerKW: 10})
	if err != nil {
		t.Fatalf("new charger: %v", err)
	}
	ev := testEV(t, 50, 100, 20)
	c.PlugCar(ev)
	c.AssociateIncomingCar(ev)
	c.NextTimeStep()

	if c.ConnectedEV() != nil || c.IncomingEV() != nil {
		t.Fatalf("expected connections cleared after time step")
	}
	if got := len(c.ConsumptionHistory()); got != 2 {
		t.Fatalf("expected fresh consumption slot, got %d", got)
	}
	if got := c.PastConnectedEVs(); len(got) != 1 || got[0] != "ev-test" {
		t.Fatalf("expected plugged car recorded, got %v", got)
	}
}

func TestChargerConsumptionUpdatePrecondition(t *testing.T) {
	c, err := NewCharger(ChargerSpec{MaxChargingPowerKW: 10, MaxDischargingPowerKW: 10})
	if err != nil {
		t.Fatalf("new charger: %v", err)
	}
	if err := c.UpdateElectricityConsumption(-1); err == nil {
		t.Fatalf("expected error for negative consumption")
	}
	if err := c.UpdateElectricityConsumption(3); err != nil {
		t.Fatalf("update consumption: %v", err)
	}
	if c.TotalConsumption() != 3 {
		t.Fatalf("expected total 3, got %v", c.TotalConsumption())
	}
}

func TestChargerReset(t *testing.T) {
	c, err := NewCharger(ChargerSpec{MaxChargingPowerKW: 10, MaxDischargingPowerKW: 10})
	if err != nil {
		t.Fatalf("new charger: %v", err)
	}
	c.PlugCar(testEV(t, 50, 100, 20))
	c.UpdateConnectedEVSoC(0.5)
	c.NextTimeStep()
	c.Reset()

	if len(c.ConsumptionHistory()) != 1 || c.ConsumptionHistory()[0] != 0 {
		t.Fatalf("expected history truncated to a single zero slot")
	}
	if len(c.ActionHistory()) != 0 {
		t.Fatalf("expected action history cleared")
	}
	if c.ConnectedEV() != nil {
		t.Fatalf("expected connection cleared")
	}
}
