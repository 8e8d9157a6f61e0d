package metrics

import (
	coremetrics "github.com/kilianp07/gridlearn/core/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// PromSink records training telemetry in Prometheus metrics.
type PromSink struct {
	steps       *prometheus.CounterVec
	episodes    *prometheus.CounterVec
	reward      *prometheus.HistogramVec
	consumption prometheus.Gauge
	dailyPeak   prometheus.Gauge
	q1Loss      prometheus.Gauge
	q2Loss      prometheus.Gauge
	policyLoss  prometheus.Gauge
	alphaLoss   prometheus.Gauge
	alpha       prometheus.Gauge
}

// NewPromSink registers training metrics on the default Prometheus registerer.
// The Prometheus server should be started separately using cfg.PrometheusPort.
func NewPromSink(cfg coremetrics.Config) (coremetrics.TrainingSink, error) {
	return NewPromSinkWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(_ coremetrics.Config, reg prometheus.Registerer) (coremetrics.TrainingSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "training_steps_total",
			Help: "Total number of simulated environment steps",
		}, []string{"run_id"}),
		episodes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "training_episodes_total",
			Help: "Total number of finished episodes",
		}, []string{"run_id"}),
		reward: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "training_shaped_reward",
			Help:    "Shaped reward returned to the agent per step",
			Buckets: prometheus.LinearBuckets(-30, 5, 14),
		}, []string{"run_id"}),
		consumption: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "district_net_consumption_kwh",
			Help: "Net electricity consumption of the district at the last step",
		}),
		dailyPeak: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "district_daily_peak_kwh",
			Help: "Running daily peak of net electricity consumption",
		}),
		q1Loss:     prometheus.NewGauge(prometheus.GaugeOpts{Name: "sac_q1_loss", Help: "First critic MSE loss"}),
		q2Loss:     prometheus.NewGauge(prometheus.GaugeOpts{Name: "sac_q2_loss", Help: "Second critic MSE loss"}),
		policyLoss: prometheus.NewGauge(prometheus.GaugeOpts{Name: "sac_policy_loss", Help: "Policy loss"}),
		alphaLoss:  prometheus.NewGauge(prometheus.GaugeOpts{Name: "sac_alpha_loss", Help: "Temperature loss"}),
		alpha:      prometheus.NewGauge(prometheus.GaugeOpts{Name: "sac_alpha", Help: "Entropy temperature"}),
	}

	collectors := []prometheus.Collector{
		s.steps, s.episodes, s.reward, s.consumption, s.dailyPeak,
		s.q1Loss, s.q2Loss, s.policyLoss, s.alphaLoss, s.alpha,
	}
	for i, c := range collectors {
		if err := reg.Register(c); err != nil {
			are, ok := err.(prometheus.AlreadyRegisteredError)
			if !ok {
				return nil, err
			}
			switch i {
			case 0:
				s.steps = are.ExistingCollector.(*prometheus.CounterVec)
			case 1:
				s.episodes = are.ExistingCollector.(*prometheus.CounterVec)
			case 2:
				s.reward = are.ExistingCollector.(*prometheus.HistogramVec)
			case 3:
				s.consumption = are.ExistingCollector.(prometheus.Gauge)
			case 4:
				s.dailyPeak = are.ExistingCollector.(prometheus.Gauge)
			case 5:
				s.q1Loss = are.ExistingCollector.(prometheus.Gauge)
			case 6:
				s.q2Loss = are.ExistingCollector.(prometheus.Gauge)
			case 7:
				s.policyLoss = are.ExistingCollector.(prometheus.Gauge)
			case 8:
				s.alphaLoss = are.ExistingCollector.(prometheus.Gauge)
			case 9:
				s.alpha = are.ExistingCollector.(prometheus.Gauge)
			}
		}
	}
	return s, nil
}

// RecordStep updates the per-step counters and gauges.
func (s *PromSink) RecordStep(ev coremetrics.StepEvent) error {
	s.steps.WithLabelValues(ev.RunID).Inc()
	s.reward.WithLabelValues(ev.RunID).Observe(ev.RewardTotal)
	s.consumption.Set(ev.NetConsumptionKWh)
	s.dailyPeak.Set(ev.DailyPeakKWh)
	return nil
}

// RecordUpdate publishes the learner losses.
func (s *PromSink) RecordUpdate(ev coremetrics.UpdateEvent) error {
	s.q1Loss.Set(ev.Q1Loss)
	s.q2Loss.Set(ev.Q2Loss)
	s.policyLoss.Set(ev.PolicyLoss)
	s.alphaLoss.Set(ev.AlphaLoss)
	s.alpha.Set(ev.Alpha)
	return nil
}

// RecordEpisode increments the episode counter.
func (s *PromSink) RecordEpisode(ev coremetrics.EpisodeEvent) error {
	s.episodes.WithLabelValues(ev.RunID).Inc()
	return nil
}
