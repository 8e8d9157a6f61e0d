// Package sim models the physical side of the district: batteries, chargers
// and electric vehicles advanced over discrete hourly time steps.
package sim

// Clock is the shared simulation time context. Every component holds its own
// Clock value; the scenario advances them in lockstep once per step.
type Clock struct {
	timeStep int
	episode  int
}

// TimeStep returns the current step index within the episode.
func (c *Clock) TimeStep() int { return c.timeStep }

// Episode returns the number of completed resets.
func (c *Clock) Episode() int { return c.episode }

// Advance moves the clock one step forward.
func (c *Clock) Advance() { c.timeStep++ }

// Reset rewinds the clock to the start of a new episode.
func (c *Clock) Reset() {
	c.timeStep = 0
	c.episode++
}
