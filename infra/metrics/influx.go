package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/gridlearn/core/metrics"
	"github.com/kilianp07/gridlearn/infra/logger"
)

// InfluxSink writes training telemetry to an InfluxDB instance using the
// official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	client := influxdb2.NewClientWithOptions(url, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.TrainingSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordStep writes one environment step as a point.
func (s *InfluxSink) RecordStep(ev coremetrics.StepEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("training_step").
		AddTag("run_id", ev.RunID).
		AddTag("episode", strconv.Itoa(ev.Episode)).
		AddField("time_step", ev.TimeStep).
		AddField("hour", ev.Hour).
		AddField("net_consumption_kwh", round3(ev.NetConsumptionKWh)).
		AddField("daily_peak_kwh", round3(ev.DailyPeakKWh)).
		AddField("reward_total", round3(ev.RewardTotal)).
		AddField("reward_base", round3(ev.RewardBase)).
		AddField("reward_action", round3(ev.RewardAction)).
		AddField("reward_peak", round3(ev.RewardPeak)).
		AddField("reward_hour", round3(ev.RewardHour)).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordUpdate writes the learner losses as a point.
func (s *InfluxSink) RecordUpdate(ev coremetrics.UpdateEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("training_update").
		AddTag("run_id", ev.RunID).
		AddField("update", ev.Update).
		AddField("q1_loss", round3(ev.Q1Loss)).
		AddField("q2_loss", round3(ev.Q2Loss)).
		AddField("policy_loss", round3(ev.PolicyLoss)).
		AddField("alpha_loss", round3(ev.AlphaLoss)).
		AddField("alpha", round3(ev.Alpha)).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordEpisode writes the episode summary as a point.
func (s *InfluxSink) RecordEpisode(ev coremetrics.EpisodeEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("training_episode").
		AddTag("run_id", ev.RunID).
		AddField("episode", ev.Episode).
		AddField("steps", ev.Steps).
		AddField("cumulative_reward", round3(ev.CumulativeReward)).
		AddField("peak_kwh", round3(ev.PeakKWh)).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the underlying client.
func (s *InfluxSink) Close() {
	s.client.Close()
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
