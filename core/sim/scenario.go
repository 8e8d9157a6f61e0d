package sim

import (
	"fmt"

	"github.com/kilianp07/gridlearn/core/logger"
)

const hoursPerDay = 24

// ScenarioConfig describes the district exercised by a training run: one
// charger and one EV per controllable action, plus an hourly base load.
type ScenarioConfig struct {
	NumChargers           int       `json:"num_chargers"`
	EpisodeLengthSteps    int       `json:"episode_length_steps"`
	BatteryCapacityKWh    float64   `json:"battery_capacity_kwh"`
	BatteryNominalPowerKW float64   `json:"battery_nominal_power_kw"`
	InitialSoCFraction    float64   `json:"initial_soc_fraction"`
	MaxChargingPowerKW    float64   `json:"max_charging_power_kw"`
	MaxDischargingPowerKW float64   `json:"max_discharging_power_kw"`
	Efficiency            float64   `json:"efficiency"`
	RequiredSoCDeparture  float64   `json:"required_soc_departure"`
	PredictedArrivalSoC   float64   `json:"predicted_arrival_soc"`
	BaseLoadKWh           []float64 `json:"base_load_kwh"`
	Seed                  uint64    `json:"seed"`
}

// SetDefaults fills in a one-week, two-charger district.
func (c *ScenarioConfig) SetDefaults() {
	if c.NumChargers == 0 {
		c.NumChargers = 2
	}
	if c.EpisodeLengthSteps == 0 {
		c.EpisodeLengthSteps = 168
	}
	if c.BatteryCapacityKWh == 0 {
		c.BatteryCapacityKWh = 50
	}
	if c.BatteryNominalPowerKW == 0 {
		c.BatteryNominalPowerKW = 11
	}
	if c.InitialSoCFraction == 0 {
		c.InitialSoCFraction = 0.5
	}
	if c.MaxChargingPowerKW == 0 {
		c.MaxChargingPowerKW = 11
	}
	if c.MaxDischargingPowerKW == 0 {
		c.MaxDischargingPowerKW = 11
	}
	if c.Efficiency == 0 {
		c.Efficiency = 1
	}
	if c.RequiredSoCDeparture == 0 {
		c.RequiredSoCDeparture = 0.8
	}
	if c.PredictedArrivalSoC == 0 {
		c.PredictedArrivalSoC = 55
	}
	if len(c.BaseLoadKWh) == 0 {
		c.BaseLoadKWh = []float64{
			6, 5, 5, 5, 5, 6, 8, 11, 13, 12, 11, 12,
			13, 12, 11, 11, 13, 16, 18, 17, 14, 11, 9, 7,
		}
	}
	if c.Seed == 0 {
		c.Seed = 101
	}
}

// Validate checks the district parameters.
func (c *ScenarioConfig) Validate() error {
	if c.NumChargers <= 0 {
		return fmt.Errorf("num_chargers must be positive, got %d", c.NumChargers)
	}
	if c.EpisodeLengthSteps <= 0 {
		return fmt.Errorf("episode_length_steps must be positive, got %d", c.EpisodeLengthSteps)
	}
	if c.BatteryCapacityKWh <= 0 {
		return fmt.Errorf("battery_capacity_kwh must be positive, got %f", c.BatteryCapacityKWh)
	}
	if c.InitialSoCFraction < 0 || c.InitialSoCFraction > 1 {
		return fmt.Errorf("initial_soc_fraction %f outside [0,1]", c.InitialSoCFraction)
	}
	if len(c.BaseLoadKWh) != hoursPerDay {
		return fmt.Errorf("base_load_kwh must have %d entries, got %d", hoursPerDay, len(c.BaseLoadKWh))
	}
	return nil
}

// Scenario wires chargers and EVs together and exposes the observation
// vector the agent consumes. Hour-of-day sits at a fixed slot; every charger
// contributes a four-feature block.
type Scenario struct {
	cfg      ScenarioConfig
	chargers []*Charger
	evs      []*ElectricVehicle
	clock    Clock
	log      logger.Logger
}

// featuresPerCharger is the observation block each charger contributes.
const featuresPerCharger = 4

// BuildScenario constructs the district: one charger and one EV per action
// dimension, each EV on a staggered daily commute itinerary.
func BuildScenario(cfg ScenarioConfig, log logger.Logger) (*Scenario, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("scenario config: %w", err)
	}

	s := &Scenario{cfg: cfg, log: log}
	for i := 0; i < cfg.NumChargers; i++ {
		charger, err := NewCharger(ChargerSpec{
			MaxChargingPowerKW:    cfg.MaxChargingPowerKW,
			MaxDischargingPowerKW: cfg.MaxDischargingPowerKW,
			Efficiency:            cfg.Efficiency,
		})
		if err != nil {
			return nil, err
		}

		battery, err := NewBattery(cfg.BatteryCapacityKWh, cfg.BatteryNominalPowerKW,
			cfg.InitialSoCFraction*cfg.BatteryCapacityKWh)
		if err != nil {
			return nil, err
		}
		aux, err := NewBattery(cfg.BatteryCapacityKWh, cfg.BatteryNominalPowerKW,
			cfg.InitialSoCFraction*cfg.BatteryCapacityKWh)
		if err != nil {
			return nil, err
		}

		ev, err := NewElectricVehicle(fmt.Sprintf("ev-%d", i), battery, aux,
			commuteItinerary(i, cfg), cfg.Seed+uint64(i))
		if err != nil {
			return nil, err
		}

		s.chargers = append(s.chargers, charger)
		s.evs = append(s.evs, ev)
	}

	s.establishConnections()
	log.Infof("scenario built with %d chargers over %d steps", cfg.NumChargers, cfg.EpisodeLengthSteps)
	return s, nil
}

// commuteItinerary builds a daily trace: home and plugged overnight, a
// departure in the morning, away during work hours, incoming in the evening.
// The offset staggers vehicles so they do not all arrive at once.
func commuteItinerary(offset int, cfg ScenarioConfig) Itinerary {
	states := make([]ChargerState, hoursPerDay)
	predicted := make([]float64, hoursPerDay)
	depart := 8 + offset%3
	arrive := 18 + offset%3
	for h := 0; h < hoursPerDay; h++ {
		switch {
		case h == depart:
			states[h] = StateDeparting
		case h > depart && h < arrive:
			states[h] = StateDisconnected
		case h == arrive:
			states[h] = StateIncoming
		default:
			states[h] = StateConnected
		}
		predicted[h] = cfg.PredictedArrivalSoC
	}
	return Itinerary{
		States:               states,
		PredictedArrivalSoC:  predicted,
		RequiredSoCDeparture: cfg.RequiredSoCDeparture,
	}
}

// ActionDim returns the number of controllable actions.
func (s *Scenario) ActionDim() int { return len(s.chargers) }

// Chargers exposes the charging stations for diagnostics.
func (s *Scenario) Chargers() []*Charger { return s.chargers }

// TimeStep returns the step index within the current episode.
func (s *Scenario) TimeStep() int { return s.clock.TimeStep() }

// Hour returns the hour of day in 1..24 for the current step.
func (s *Scenario) Hour() int { return s.clock.TimeStep()%hoursPerDay + 1 }

// Done reports whether the episode has run its full length.
func (s *Scenario) Done() bool { return s.clock.TimeStep() >= s.cfg.EpisodeLengthSteps }

// establishConnections plugs or associates every EV according to its
// itinerary state at the current step.
func (s *Scenario) establishConnections() {
	for i, ev := range s.evs {
		switch ev.ChargerState() {
		case StateConnected:
			s.chargers[i].PlugCar(ev)
		case StateIncoming:
			s.chargers[i].AssociateIncomingCar(ev)
		}
	}
}

// Step applies one action per charger, meters the district's net
// consumption for the step, and advances every component to the next step.
func (s *Scenario) Step(actions []float64) (float64, error) {
	if len(actions) != len(s.chargers) {
		return 0, fmt.Errorf("got %d actions for %d chargers", len(actions), len(s.chargers))
	}

	net := s.cfg.BaseLoadKWh[s.clock.TimeStep()%hoursPerDay]
	for i, charger := range s.chargers {
		charger.UpdateConnectedEVSoC(actions[i])
		draw := charger.LastConsumption()
		net += draw
		if draw > 0 {
			if err := charger.UpdateElectricityConsumption(draw); err != nil {
				return 0, err
			}
		}
	}

	for _, charger := range s.chargers {
		charger.NextTimeStep()
	}
	for _, ev := range s.evs {
		ev.NextTimeStep()
	}
	s.clock.Advance()
	s.establishConnections()

	return net, nil
}

// Observation assembles the state vector: episode progress, day of week,
// hour of day, then one block per charger.
func (s *Scenario) Observation() []float64 {
	obs := make([]float64, 0, 3+featuresPerCharger*len(s.evs))
	obs = append(obs,
		float64(s.clock.TimeStep())/float64(s.cfg.EpisodeLengthSteps),
		float64(s.clock.TimeStep()/hoursPerDay%7),
		float64(s.Hour()),
	)
	for _, ev := range s.evs {
		obs = append(obs,
			float64(ev.ChargerState()),
			ev.itinerary.PredictedArrivalSoCAt(ev.clock.TimeStep())/100,
			ev.RequiredSoCDeparture(),
			ev.Battery().SoCFraction(),
		)
	}
	return obs
}

// HourIndex returns the observation slot carrying the hour of day.
func (s *Scenario) HourIndex() int { return 2 }

// SoCIndices returns, per action dimension, the observation slot carrying
// that EV's battery SoC fraction.
func (s *Scenario) SoCIndices() []int {
	idx := make([]int, len(s.evs))
	for i := range s.evs {
		idx[i] = 3 + featuresPerCharger*i + 3
	}
	return idx
}

// ActionBounds returns the per-dimension action limits. Actions are
// fractions of the charger's maximum power, capped by what the battery can
// absorb in one step.
func (s *Scenario) ActionBounds() (low, high []float64) {
	low = make([]float64, len(s.chargers))
	high = make([]float64, len(s.chargers))
	limit := s.cfg.BatteryNominalPowerKW / s.cfg.BatteryCapacityKWh
	if limit > 1 {
		limit = 1
	}
	for i := range s.chargers {
		low[i] = -limit
		high[i] = limit
	}
	return low, high
}

// Reset rewinds every component to the start of a new episode.
func (s *Scenario) Reset() {
	for _, charger := range s.chargers {
		charger.Reset()
	}
	for _, ev := range s.evs {
		ev.Reset()
	}
	s.clock.Reset()
	s.establishConnections()
}
