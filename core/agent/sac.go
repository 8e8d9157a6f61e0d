package agent

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"

	"github.com/kilianp07/gridlearn/core/logger"
)

// Experience is one environment step handed to the learner for storage.
type Experience struct {
	State     []float64
	Action    []float64
	Reward    float64
	NextState []float64
	Done      bool
	// NetConsumption is the district net electricity consumption for this
	// step in kWh, used by the daily-peak shaping term.
	NetConsumption float64
}

// ShapedReward decomposes the stored reward into its additive terms, each
// already multiplied by its shaping weight.
type ShapedReward struct {
	Total         float64
	Base          float64
	ActionPenalty float64
	PeakPenalty   float64
	HourBonus     float64
}

// Losses are the diagnostics of one gradient update.
type Losses struct {
	Q1Loss     float64
	Q2Loss     float64
	PolicyLoss float64
	AlphaLoss  float64
	Alpha      float64
}

// Learner implements soft actor-critic over a bounded continuous action
// space: a stochastic policy, a twin critic with a Polyak-averaged target
// copy, and an optional learned entropy temperature.
type Learner struct {
	cfg    Config
	space  ActionSpace
	schema ObservationSchema
	log    logger.Logger

	stateDim  int // includes autoregressive features
	actionDim int

	policy       Policy
	critic       *QNetwork
	criticTarget *QNetwork
	policyOpt    *adam
	criticOpt    *adam

	alpha         float64
	logAlpha      float64
	alphaOpt      *scalarAdam
	targetEntropy float64

	memory       *ReplayBuffer
	stateMemory  *History[float64]
	actionMemory *History[[]float64]

	actionTracker [][]float64
	rewardTracker []float64

	// dayPeaks tracks net consumption per hour of the current day; it is
	// zeroed when the hour index wraps to 0.
	dayPeaks [24]float64
}

// NewLearner constructs a learner for the given state layout and action
// space. The critic target starts as an exact copy of the critic. When
// cfg.ContinueTraining is set, checkpoints are loaded from
// cfg.CheckpointPath and a missing artifact is a fatal error.
func NewLearner(stateDim int, space ActionSpace, schema ObservationSchema, cfg Config, log logger.Logger) (*Learner, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("agent config: %w", err)
	}
	if err := space.Validate(); err != nil {
		return nil, fmt.Errorf("action space: %w", err)
	}
	if err := schema.Validate(stateDim, space.Dim()); err != nil {
		return nil, fmt.Errorf("observation schema: %w", err)
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	inputDim := stateDim + cfg.AutoregressiveSize
	l := &Learner{
		cfg:       cfg,
		space:     space,
		schema:    schema,
		log:       log,
		stateDim:  inputDim,
		actionDim: space.Dim(),
		alpha:     cfg.Alpha,
	}

	l.critic = NewQNetwork(inputDim, l.actionDim, cfg.HiddenSize, rng)
	l.criticTarget = NewQNetwork(inputDim, l.actionDim, cfg.HiddenSize, rng)
	HardUpdate(l.criticTarget, l.critic)
	l.criticOpt = newAdam(l.critic.Params(), cfg.LearningRate)

	switch cfg.Policy {
	case PolicyGaussian:
		l.policy = NewGaussianPolicy(inputDim, cfg.HiddenSize, space, rng)
		if cfg.AutoEntropyTuning {
			l.targetEntropy = -float64(l.actionDim)
			l.alphaOpt = newScalarAdam(cfg.LearningRate)
		}
	case PolicyDeterministic:
		// With a deterministic policy there is no entropy to trade off.
		l.alpha = 0
		l.cfg.AutoEntropyTuning = false
		l.policy = NewDeterministicPolicy(inputDim, cfg.HiddenSize, space, rng)
	}
	l.policyOpt = newAdam(l.policy.Params(), cfg.LearningRate)

	var err error
	l.memory, err = NewReplayBuffer(cfg.ReplaySize, rng)
	if err != nil {
		return nil, err
	}
	l.stateMemory = NewHistory[float64](cfg.AutoregressiveSize)
	l.actionMemory = NewHistory[[]float64](1)

	if cfg.ContinueTraining {
		if err := l.Load(cfg.CheckpointPath); err != nil {
			return nil, err
		}
		log.Infof("loaded checkpoints from %s", cfg.CheckpointPath)
	}
	return l, nil
}

// BufferLen returns the number of stored transitions.
func (l *Learner) BufferLen() int { return l.memory.Len() }

// ActionTracker returns the history of selected actions.
func (l *Learner) ActionTracker() [][]float64 { return l.actionTracker }

// RewardTracker returns the history of shaped rewards.
func (l *Learner) RewardTracker() []float64 { return l.rewardTracker }

// ResetActionTracker clears the action history.
func (l *Learner) ResetActionTracker() { l.actionTracker = nil }

// ResetRewardTracker clears the reward history.
func (l *Learner) ResetRewardTracker() { l.rewardTracker = nil }

// SelectAction queries the policy for one state. In evaluation mode the
// deterministic mean action is used; otherwise a stochastic sample. The
// optional feasibility constraint zeroes sub-actions that would push a full
// or empty storage further; the optional smoothing constraint bounds the
// step-to-step delta.
func (l *Learner) SelectAction(state []float64) ([]float64, error) {
	augmented := append([]float64(nil), state...)
	for j := 0; j < l.cfg.AutoregressiveSize; j++ {
		augmented = append(augmented, l.stateMemory.Last(j))
	}
	if len(augmented) != l.stateDim {
		return nil, fmt.Errorf("state size %d, networks expect %d", len(augmented), l.stateDim)
	}

	sr := l.policy.Sample(mat.NewDense(1, l.stateDim, augmented))
	var action []float64
	if l.cfg.Evaluate {
		action = mat.Row(nil, 0, sr.Mean)
	} else {
		action = mat.Row(nil, 0, sr.Actions)
	}

	if l.cfg.ConstrainActions && len(l.schema.SoCIndices) == l.actionDim {
		for d, idx := range l.schema.SoCIndices {
			soc := state[idx]
			if soc < 0.01 && action[d] < 0 {
				action[d] = 0
			} else if soc > 0.99 && action[d] > 0 {
				action[d] = 0
			}
		}
	}

	if l.cfg.SmoothActions {
		prev := make([]float64, l.actionDim)
		if len(l.actionTracker) > 0 {
			prev = l.actionTracker[len(l.actionTracker)-1]
		}
		for d := range action {
			action[d] = clamp(action[d], prev[d]-l.cfg.Rho, prev[d]+l.cfg.Rho)
		}
	}

	l.actionTracker = append(l.actionTracker, append([]float64(nil), action...))
	return action, nil
}

// AddToBuffer shapes the raw reward and stores the transition. The shaping
// pipeline: clip reward/5 to [-1, 1]; penalize near-zero action components
// (-10) and reward active ones (+1); add an hour-of-day charging
// bonus/penalty; subtract a scaled running daily consumption peak. The
// shaped total and its components are returned for observability.
func (l *Learner) AddToBuffer(exp Experience) (ShapedReward, error) {
	if len(exp.Action) != l.actionDim {
		return ShapedReward{}, fmt.Errorf("action size %d, expected %d", len(exp.Action), l.actionDim)
	}
	if len(exp.State) == 0 || len(exp.State) != len(exp.NextState) {
		return ShapedReward{}, fmt.Errorf("state size %d and next state size %d differ", len(exp.State), len(exp.NextState))
	}
	if len(exp.State)+l.cfg.AutoregressiveSize != l.stateDim {
		return ShapedReward{}, fmt.Errorf("state size %d, networks expect %d", len(exp.State)+l.cfg.AutoregressiveSize, l.stateDim)
	}

	base := clamp(exp.Reward/5, -1, 1)

	penal := 0.0
	meanAction := 0.0
	for _, a := range exp.Action {
		if a < 0.001 && a > -0.001 {
			penal -= 10
		} else {
			penal++
		}
		meanAction += a
	}
	meanAction /= float64(len(exp.Action))

	hour, err := l.schema.Hour(exp.State)
	if err != nil {
		return ShapedReward{}, err
	}
	hrIndex := int(hour) - 1
	if hrIndex < 0 || hrIndex >= 24 {
		return ShapedReward{}, fmt.Errorf("hour observation %f outside 1..24", hour)
	}

	var hrBonus float64
	switch {
	case (hour >= 1 && hour < 12 || hour >= 22 && hour <= 24) && meanAction > 0.1:
		hrBonus = 1
	case (hour >= 1 && hour < 8 || hour >= 22 && hour <= 24) && meanAction < 0:
		hrBonus = -1
	}
	if hour >= 12 && hour < 20 && meanAction > 0 {
		hrBonus--
	}

	var maxPeak float64
	if hrIndex == 0 {
		maxPeak = maxOf(l.dayPeaks[:])
		l.dayPeaks = [24]float64{}
		l.dayPeaks[0] = exp.NetConsumption
	} else {
		l.dayPeaks[hrIndex] = exp.NetConsumption
		maxPeak = maxOf(l.dayPeaks[:])
	}

	w := l.cfg.Shaping
	shaped := ShapedReward{
		Base:          base * w.Base,
		ActionPenalty: penal * w.Action,
		PeakPenalty:   maxPeak / 50 * w.Peak,
		HourBonus:     hrBonus * w.Hour,
	}
	shaped.Total = shaped.Base + shaped.ActionPenalty + shaped.PeakPenalty + shaped.HourBonus

	mask := 1.0
	if exp.Done {
		mask = 0
	}
	// Augment both states with the autoregressive memory: the stored state
	// sees the net loads before this step, the next state also sees this
	// step's. SelectAction reads the same memory, so the buffered rows match
	// what the networks were fed.
	state := append([]float64(nil), exp.State...)
	for j := 0; j < l.cfg.AutoregressiveSize; j++ {
		state = append(state, l.stateMemory.Last(j))
	}
	l.stateMemory.Push(exp.NetConsumption)
	next := append([]float64(nil), exp.NextState...)
	for j := 0; j < l.cfg.AutoregressiveSize; j++ {
		next = append(next, l.stateMemory.Last(j))
	}
	l.memory.Push(Transition{
		State:     state,
		Action:    exp.Action,
		Reward:    shaped.Total,
		NextState: next,
		Mask:      mask,
	})
	l.actionMemory.Push(append([]float64(nil), exp.Action...))
	l.rewardTracker = append(l.rewardTracker, shaped.Total)

	return shaped, nil
}

// UpdateParameters runs one gradient step: critic first against the Polyak
// target, then the policy against the freshly updated critic, then the
// temperature. Every TargetUpdateInterval-th call soft-updates the critic
// target. It fails when the buffer holds fewer than BatchSize transitions.
func (l *Learner) UpdateParameters(updates int) (Losses, error) {
	batch, err := l.memory.Sample(l.cfg.BatchSize)
	if err != nil {
		return Losses{}, err
	}
	n, _ := batch.States.Dims()

	// Target value from the current policy at s', evaluated on the frozen
	// target critic. Nothing here is backpropagated.
	next := l.policy.Sample(batch.NextStates)
	t1, t2 := l.criticTarget.Forward(batch.NextStates, next.Actions)
	target := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		minQ := math.Min(t1.At(i, 0), t2.At(i, 0))
		v := minQ - l.alpha*next.LogProb.At(i, 0)
		target.Set(i, 0, batch.Rewards.At(i, 0)+batch.Masks.At(i, 0)*l.cfg.Gamma*v)
	}

	// Critic step: joint MSE of both heads against the shared target.
	q1, q2 := l.critic.Forward(batch.States, batch.Actions)
	var q1Loss, q2Loss float64
	g1 := mat.NewDense(n, 1, nil)
	g2 := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		d1 := q1.At(i, 0) - target.At(i, 0)
		d2 := q2.At(i, 0) - target.At(i, 0)
		q1Loss += d1 * d1
		q2Loss += d2 * d2
		g1.Set(i, 0, 2*d1/float64(n))
		g2.Set(i, 0, 2*d2/float64(n))
	}
	q1Loss /= float64(n)
	q2Loss /= float64(n)
	l.critic.zeroGrads()
	l.critic.backward(g1, g2)
	l.criticOpt.step(l.critic.Params(), l.critic.gradients())

	// Policy step: re-sample at s against the updated critic.
	pi := l.policy.Sample(batch.States)
	q1Pi, q2Pi := l.critic.Forward(batch.States, pi.Actions)
	var policyLoss float64
	gOut1 := mat.NewDense(n, 1, nil)
	gOut2 := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		v1 := q1Pi.At(i, 0)
		v2 := q2Pi.At(i, 0)
		minQ := v1
		if v2 < v1 {
			minQ = v2
			gOut2.Set(i, 0, -1/float64(n))
		} else {
			gOut1.Set(i, 0, -1/float64(n))
		}
		policyLoss += l.alpha*pi.LogProb.At(i, 0) - minQ
	}
	policyLoss /= float64(n)

	// The critic only transports gradients to the action input here; its
	// own accumulated gradients are discarded before the next critic step.
	l.critic.zeroGrads()
	gAction := l.critic.backward(gOut1, gOut2)
	gLogProb := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		gLogProb.Set(i, 0, l.alpha/float64(n))
	}
	l.policy.zeroGrads()
	l.policy.backward(gAction, gLogProb)
	l.policyOpt.step(l.policy.Params(), l.policy.gradients())

	var alphaLoss float64
	if l.cfg.AutoEntropyTuning {
		var gradSum float64
		for i := 0; i < n; i++ {
			lp := pi.LogProb.At(i, 0) + l.targetEntropy
			alphaLoss -= l.logAlpha * lp
			gradSum -= lp
		}
		alphaLoss /= float64(n)
		l.alphaOpt.step(&l.logAlpha, gradSum/float64(n))
		l.alpha = math.Exp(l.logAlpha)
	}

	if updates%l.cfg.TargetUpdateInterval == 0 {
		SoftUpdate(l.criticTarget, l.critic, l.cfg.Tau)
	}

	return Losses{
		Q1Loss:     q1Loss,
		Q2Loss:     q2Loss,
		PolicyLoss: policyLoss,
		AlphaLoss:  alphaLoss,
		Alpha:      l.alpha,
	}, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxOf(vals []float64) float64 {
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
