package agent

import "fmt"

// Policy type identifiers accepted by Config.Policy.
const (
	PolicyGaussian      = "gaussian"
	PolicyDeterministic = "deterministic"
)

// ShapingWeights are the fixed multipliers of the four additive reward
// shaping terms.
type ShapingWeights struct {
	// Action weighs the inactivity penalty term.
	Action float64 `json:"action"`
	// Base weighs the clipped environment reward.
	Base float64 `json:"base"`
	// Peak weighs the running daily consumption peak (negative to
	// discourage new demand peaks).
	Peak float64 `json:"peak"`
	// Hour weighs the hour-of-day charging bonus/penalty.
	Hour float64 `json:"hour"`
}

// Config holds every hyperparameter of the learner. It is passed once at
// construction and never mutated afterwards.
type Config struct {
	Policy               string  `json:"policy"`
	LearningRate         float64 `json:"learning_rate"`
	Gamma                float64 `json:"gamma"`
	Tau                  float64 `json:"tau"`
	Alpha                float64 `json:"alpha"`
	AutoEntropyTuning    bool    `json:"auto_entropy_tuning"`
	ReplaySize           int     `json:"replay_size"`
	BatchSize            int     `json:"batch_size"`
	HiddenSize           int     `json:"hidden_size"`
	TargetUpdateInterval int     `json:"target_update_interval"`
	// UpdateInterval is how many environment steps pass between gradient
	// updates. The learner itself does not count steps; the training loop
	// reads this value.
	UpdateInterval     int  `json:"update_interval"`
	AutoregressiveSize int  `json:"autoregressive_size"`
	ConstrainActions   bool `json:"constrain_actions"`
	SmoothActions      bool `json:"smooth_actions"`
	// Rho bounds the step-to-step action delta when SmoothActions is set.
	Rho  float64 `json:"rho"`
	Seed uint64  `json:"seed"`
	// Evaluate switches SelectAction to the deterministic mean action.
	Evaluate         bool           `json:"evaluate"`
	CheckpointPath   string         `json:"checkpoint_path"`
	ContinueTraining bool           `json:"continue_training"`
	Shaping          ShapingWeights `json:"shaping"`
}

// SetDefaults applies the reference hyperparameters used for the district
// charging experiments.
func (c *Config) SetDefaults() {
	if c.Policy == "" {
		c.Policy = PolicyGaussian
	}
	if c.LearningRate == 0 {
		c.LearningRate = 1e-4
	}
	if c.Gamma == 0 {
		c.Gamma = 0.9
	}
	if c.Tau == 0 {
		c.Tau = 0.003
	}
	if c.Alpha == 0 {
		c.Alpha = 0.2
	}
	if c.ReplaySize == 0 {
		c.ReplaySize = 2_000_000
	}
	if c.BatchSize == 0 {
		c.BatchSize = 2048
	}
	if c.HiddenSize == 0 {
		c.HiddenSize = 256
	}
	if c.TargetUpdateInterval == 0 {
		c.TargetUpdateInterval = 1
	}
	if c.UpdateInterval == 0 {
		c.UpdateInterval = 168
	}
	if c.Rho == 0 {
		c.Rho = 0.04
	}
	if c.Seed == 0 {
		c.Seed = 101
	}
	if c.CheckpointPath == "" {
		c.CheckpointPath = "alg"
	}
	if c.Shaping == (ShapingWeights{}) {
		c.Shaping = ShapingWeights{Action: 0.5, Base: 1, Peak: -0.5, Hour: 2}
	}
}

// Validate checks parameter ranges.
func (c Config) Validate() error {
	if c.Policy != PolicyGaussian && c.Policy != PolicyDeterministic {
		return fmt.Errorf("unknown policy type %q", c.Policy)
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("learning_rate must be positive")
	}
	if c.Gamma <= 0 || c.Gamma > 1 {
		return fmt.Errorf("gamma must be in (0, 1]")
	}
	if c.Tau <= 0 || c.Tau > 1 {
		return fmt.Errorf("tau must be in (0, 1]")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive")
	}
	if c.BatchSize > c.ReplaySize {
		return fmt.Errorf("batch_size %d exceeds replay_size %d", c.BatchSize, c.ReplaySize)
	}
	if c.HiddenSize <= 0 {
		return fmt.Errorf("hidden_size must be positive")
	}
	if c.TargetUpdateInterval <= 0 {
		return fmt.Errorf("target_update_interval must be positive")
	}
	if c.AutoregressiveSize < 0 {
		return fmt.Errorf("autoregressive_size must not be negative")
	}
	if c.Rho < 0 {
		return fmt.Errorf("rho must not be negative")
	}
	return nil
}
