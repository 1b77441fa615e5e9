package room

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap/zaptest"

	"github.com/Raikerian/go-interview-voice/internal/config"
	"github.com/Raikerian/go-interview-voice/internal/lipsync"
	"github.com/Raikerian/go-interview-voice/internal/observe"
)

// instantEngine finishes every utterance as soon as it starts.
type instantEngine struct{}

func (instantEngine) Speak(_ lipsync.Utterance, cb lipsync.Callbacks) error {
	cb.OnStart()
	cb.OnEnd()
	return nil
}

func (instantEngine) Cancel() {}

func TestInstrumentSchedulerCountsOutcomes(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	metrics, err := observe.NewMetrics(mp)
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.ApplyDefaults()
	s, err := lipsync.NewScheduler(zaptest.NewLogger(t), instantEngine{}, cfg)
	require.NoError(t, err)

	instrumentScheduler(s, metrics)

	s.Play("hello", lipsync.VoiceOptions{})
	s.Play("", lipsync.VoiceOptions{})

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	outcomes := map[string]int64{}
	var visemes int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				switch m.Name {
				case "interview.lipsync.playbacks":
					v, _ := dp.Attributes.Value(attribute.Key("outcome"))
					outcomes[v.AsString()] += dp.Value
				case "interview.lipsync.visemes":
					visemes += dp.Value
				}
			}
		}
	}

	assert.Equal(t, map[string]int64{"completed": 1, "skipped": 1}, outcomes)
	assert.Positive(t, visemes)
}
