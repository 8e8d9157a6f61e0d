package metrics

import (
	coremetrics "github.com/kilianp07/gridlearn/core/metrics"
)

// NewSink builds the configured sink set. With everything disabled a NopSink
// is returned so callers never need a nil check.
func NewSink(cfg coremetrics.Config) (coremetrics.TrainingSink, error) {
	var sinks []coremetrics.TrainingSink
	if cfg.PrometheusEnabled {
		sink, err := NewPromSink(cfg)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, sink)
	}
	if cfg.InfluxEnabled {
		sinks = append(sinks, NewInfluxSinkWithFallback(cfg.InfluxURL, cfg.InfluxToken, cfg.InfluxOrg, cfg.InfluxBucket))
	}
	switch len(sinks) {
	case 0:
		return coremetrics.NopSink{}, nil
	case 1:
		return sinks[0], nil
	default:
		return NewMultiSink(sinks...), nil
	}
}
