package metrics

import coremetrics "github.com/kilianp07/gridlearn/core/metrics"

// MultiSink fans training telemetry out to multiple sinks.
type MultiSink struct {
	Sinks []coremetrics.TrainingSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...coremetrics.TrainingSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordStep forwards the event to all sinks, returning the first error encountered.
func (m *MultiSink) RecordStep(ev coremetrics.StepEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordStep(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordUpdate forwards the event to all sinks.
func (m *MultiSink) RecordUpdate(ev coremetrics.UpdateEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordUpdate(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordEpisode forwards the event to all sinks.
func (m *MultiSink) RecordEpisode(ev coremetrics.EpisodeEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordEpisode(ev); err != nil {
			return err
		}
	}
	return nil
}
