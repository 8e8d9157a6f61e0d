package metrics

import "time"

// StepEvent captures one simulated time step of a training run.
type StepEvent struct {
	RunID             string
	Episode           int
	TimeStep          int
	Hour              int
	NetConsumptionKWh float64
	DailyPeakKWh      float64
	RewardTotal       float64
	RewardBase        float64
	RewardAction      float64
	RewardPeak        float64
	RewardHour        float64
	Time              time.Time
}

// UpdateEvent captures one gradient update of the learner.
type UpdateEvent struct {
	RunID      string
	Update     int
	Q1Loss     float64
	Q2Loss     float64
	PolicyLoss float64
	AlphaLoss  float64
	Alpha      float64
	Time       time.Time
}

// EpisodeEvent summarises a finished episode.
type EpisodeEvent struct {
	RunID            string
	Episode          int
	Steps            int
	CumulativeReward float64
	PeakKWh          float64
	Time             time.Time
}

// TrainingSink records training telemetry for observability purposes.
type TrainingSink interface {
	RecordStep(ev StepEvent) error
	RecordUpdate(ev UpdateEvent) error
	RecordEpisode(ev EpisodeEvent) error
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) RecordStep(StepEvent) error       { return nil }
func (NopSink) RecordUpdate(UpdateEvent) error   { return nil }
func (NopSink) RecordEpisode(EpisodeEvent) error { return nil }
