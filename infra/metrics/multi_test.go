package metrics

import (
	"testing"

	coremetrics "github.com/kilianp07/gridlearn/core/metrics"
)

type countSink struct {
	count int
}

func (c *countSink) RecordStep(coremetrics.StepEvent) error {
	c.count++
	return nil
}

func (c *countSink) RecordUpdate(coremetrics.UpdateEvent) error {
	c.count++
	return nil
}

func (c *countSink) RecordEpisode(coremetrics.EpisodeEvent) error {
	c.count++
	return nil
}

func TestMultiSink(t *testing.T) {
	s1 := &countSink{}
	s2 := &countSink{}
	m := NewMultiSink(s1, s2)
	if err := m.RecordStep(coremetrics.StepEvent{}); err != nil {
		t.Fatalf("record step: %v", err)
	}
	if err := m.RecordUpdate(coremetrics.UpdateEvent{}); err != nil {
		t.Fatalf("record update: %v", err)
	}
	if err := m.RecordEpisode(coremetrics.EpisodeEvent{}); err != nil {
		t.Fatalf("record episode: %v", err)
	}
	if s1.count != 3 || s2.count != 3 {
		t.Fatalf("events not forwarded to every sink")
	}
}
