package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/gridlearn/config"
	"github.com/kilianp07/gridlearn/core/agent"
	coremetrics "github.com/kilianp07/gridlearn/core/metrics"
	"github.com/kilianp07/gridlearn/core/sim"
	"github.com/kilianp07/gridlearn/infra/logger"
	"github.com/kilianp07/gridlearn/infra/metrics"
	"github.com/kilianp07/gridlearn/internal/eventbus"
)

// Service wires the learner, the simulated district and the telemetry sinks
// together and runs the training loop.
type Service struct {
	cfg      *config.Config
	learner  *agent.Learner
	scenario *sim.Scenario
	reward   agent.RewardFunc
	sink     coremetrics.TrainingSink
	log      logger.Logger
	runID    string

	stepBus    *eventbus.TypedBus[coremetrics.StepEvent]
	updateBus  *eventbus.TypedBus[coremetrics.UpdateEvent]
	episodeBus *eventbus.TypedBus[coremetrics.EpisodeEvent]
	recorders  sync.WaitGroup
}

// New builds a Service from the configuration: scenario first, then the
// learner sized from the scenario's observation layout and action bounds.
func New(cfg *config.Config) (*Service, error) {
	log := logger.New("service")

	scenario, err := sim.BuildScenario(cfg.Scenario, logger.New("scenario"))
	if err != nil {
		return nil, fmt.Errorf("scenario: %w", err)
	}

	low, high := scenario.ActionBounds()
	space := agent.ActionSpace{Low: low, High: high}
	schema := agent.ObservationSchema{
		HourIndex:  scenario.HourIndex(),
		SoCIndices: scenario.SoCIndices(),
	}

	learner, err := agent.NewLearner(len(scenario.Observation()), space, schema, cfg.Agent, logger.New("agent"))
	if err != nil {
		return nil, fmt.Errorf("learner: %w", err)
	}

	sink, err := metrics.NewSink(cfg.Metrics)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}

	reward := agent.CubicReward
	if cfg.Reward == "shared" {
		reward = agent.SharedReward
	}

	svc := &Service{
		cfg:        cfg,
		learner:    learner,
		scenario:   scenario,
		reward:     reward,
		sink:       sink,
		log:        log,
		runID:      uuid.NewString(),
		stepBus:    eventbus.NewTyped[coremetrics.StepEvent](),
		updateBus:  eventbus.NewTyped[coremetrics.UpdateEvent](),
		episodeBus: eventbus.NewTyped[coremetrics.EpisodeEvent](),
	}
	svc.startRecorders()
	return svc, nil
}

// startRecorders drains the telemetry buses into the configured sinks so
// sink latency never stalls the training loop.
func (s *Service) startRecorders() {
	steps := s.stepBus.Subscribe()
	updates := s.updateBus.Subscribe()
	episodes := s.episodeBus.Subscribe()

	s.recorders.Add(3)
	go func() {
		defer s.recorders.Done()
		for ev := range steps {
			if err := s.sink.RecordStep(ev); err != nil {
				s.log.Warnf("record step: %v", err)
			}
		}
	}()
	go func() {
		defer s.recorders.Done()
		for ev := range updates {
			if err := s.sink.RecordUpdate(ev); err != nil {
				s.log.Warnf("record update: %v", err)
			}
		}
	}()
	go func() {
		defer s.recorders.Done()
		for ev := range episodes {
			if err := s.sink.RecordEpisode(ev); err != nil {
				s.log.Warnf("record episode: %v", err)
			}
		}
	}()
}

// Run executes the configured number of training episodes and saves the
// model checkpoints at the end. It returns early when the context is
// cancelled.
func (s *Service) Run(ctx context.Context) error {
	s.log.Infof("training run %s: %d episodes of %d steps", s.runID, s.cfg.Episodes, s.cfg.Scenario.EpisodeLengthSteps)

	totalSteps := 0
	updates := 0
	for ep := 0; ep < s.cfg.Episodes; ep++ {
		s.scenario.Reset()
		state := s.scenario.Observation()

		var cumReward, episodePeak, dailyPeak float64
		steps := 0
		for !s.scenario.Done() {
			select {
			case <-ctx.Done():
				s.log.Warnf("run %s interrupted at episode %d step %d", s.runID, ep, steps)
				return s.save()
			default:
			}

			action, err := s.learner.SelectAction(state)
			if err != nil {
				return fmt.Errorf("select action: %w", err)
			}

			hour := s.scenario.Hour()
			net, err := s.scenario.Step(action)
			if err != nil {
				return fmt.Errorf("scenario step: %w", err)
			}
			next := s.scenario.Observation()
			done := s.scenario.Done()

			raw := s.reward([]float64{-net})[0]
			shaped, err := s.learner.AddToBuffer(agent.Experience{
				State:          state,
				Action:         action,
				Reward:         raw,
				NextState:      next,
				Done:           done,
				NetConsumption: net,
			})
			if err != nil {
				return fmt.Errorf("add to buffer: %w", err)
			}

			if hour == 1 {
				dailyPeak = 0
			}
			if net > dailyPeak {
				dailyPeak = net
			}
			if net > episodePeak {
				episodePeak = net
			}
			cumReward += shaped.Total

			s.stepBus.Publish(coremetrics.StepEvent{
				RunID:             s.runID,
				Episode:           ep,
				TimeStep:          steps,
				Hour:              hour,
				NetConsumptionKWh: net,
				DailyPeakKWh:      dailyPeak,
				RewardTotal:       shaped.Total,
				RewardBase:        shaped.Base,
				RewardAction:      shaped.ActionPenalty,
				RewardPeak:        shaped.PeakPenalty,
				RewardHour:        shaped.HourBonus,
				Time:              time.Now(),
			})

			totalSteps++
			steps++
			state = next

			if !s.cfg.Agent.Evaluate &&
				s.learner.BufferLen() >= s.cfg.Agent.BatchSize &&
				totalSteps%s.cfg.Agent.UpdateInterval == 0 {
				losses, err := s.learner.UpdateParameters(updates)
				if err != nil {
					return fmt.Errorf("update parameters: %w", err)
				}
				updates++
				s.updateBus.Publish(coremetrics.UpdateEvent{
					RunID:      s.runID,
					Update:     updates,
					Q1Loss:     losses.Q1Loss,
					Q2Loss:     losses.Q2Loss,
					PolicyLoss: losses.PolicyLoss,
					AlphaLoss:  losses.AlphaLoss,
					Alpha:      losses.Alpha,
					Time:       time.Now(),
				})
			}
		}

		s.episodeBus.Publish(coremetrics.EpisodeEvent{
			RunID:            s.runID,
			Episode:          ep,
			Steps:            steps,
			CumulativeReward: cumReward,
			PeakKWh:          episodePeak,
			Time:             time.Now(),
		})
		s.log.Infof("episode %d: %d steps, cumulative reward %.2f, peak %.2f kWh", ep, steps, cumReward, episodePeak)
	}

	return s.save()
}

func (s *Service) save() error {
	if s.cfg.Agent.Evaluate {
		return nil
	}
	if err := s.learner.Save(s.cfg.Agent.CheckpointPath); err != nil {
		return fmt.Errorf("save checkpoints: %w", err)
	}
	s.log.Infof("checkpoints saved under %s", s.cfg.Agent.CheckpointPath)
	return nil
}

// RunBaseline plays the rule-based comparison agent over the same district
// without any learning, recording the same step and episode telemetry.
func (s *Service) RunBaseline(ctx context.Context) error {
	s.log.Infof("baseline run %s: %d episodes", s.runID, s.cfg.Episodes)

	rbc := agent.NewRBCAgent(s.scenario.ActionDim(), agent.ObservationSchema{
		HourIndex:  s.scenario.HourIndex(),
		SoCIndices: s.scenario.SoCIndices(),
	})

	for ep := 0; ep < s.cfg.Episodes; ep++ {
		s.scenario.Reset()
		state := s.scenario.Observation()

		var cumReward, episodePeak, dailyPeak float64
		steps := 0
		for !s.scenario.Done() {
			select {
			case <-ctx.Done():
				return nil
			default:
			}

			action, err := rbc.SelectAction(state)
			if err != nil {
				return fmt.Errorf("baseline action: %w", err)
			}
			hour := s.scenario.Hour()
			net, err := s.scenario.Step(action)
			if err != nil {
				return fmt.Errorf("scenario step: %w", err)
			}
			state = s.scenario.Observation()

			if hour == 1 {
				dailyPeak = 0
			}
			if net > dailyPeak {
				dailyPeak = net
			}
			if net > episodePeak {
				episodePeak = net
			}
			raw := s.reward([]float64{-net})[0]
			cumReward += raw

			s.stepBus.Publish(coremetrics.StepEvent{
				RunID:             s.runID,
				Episode:           ep,
				TimeStep:          steps,
				Hour:              hour,
				NetConsumptionKWh: net,
				DailyPeakKWh:      dailyPeak,
				RewardTotal:       raw,
				Time:              time.Now(),
			})
			steps++
		}

		s.episodeBus.Publish(coremetrics.EpisodeEvent{
			RunID:            s.runID,
			Episode:          ep,
			Steps:            steps,
			CumulativeReward: cumReward,
			PeakKWh:          episodePeak,
			Time:             time.Now(),
		})
		s.log.Infof("baseline episode %d: cumulative reward %.2f, peak %.2f kWh", ep, cumReward, episodePeak)
	}
	return nil
}

// Close flushes the telemetry buses and waits for the recorders to drain.
func (s *Service) Close() {
	s.stepBus.Close()
	s.updateBus.Close()
	s.episodeBus.Close()
	s.recorders.Wait()
	if closer, ok := s.sink.(interface{ Close() }); ok {
		closer.Close()
	}
}
