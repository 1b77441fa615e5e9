package observe

import (
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/Raikerian/go-interview-voice"

// Metrics holds the OpenTelemetry instruments recorded by the daemon.
// Instruments are safe for concurrent use.
type Metrics struct {
	// FramesEmitted counts microphone frames handed to transcription.
	FramesEmitted metric.Int64Counter

	// FrameBytes counts PCM bytes in emitted frames.
	FrameBytes metric.Int64Counter

	// Visemes counts viseme changes. Attribute: viseme.
	Visemes metric.Int64Counter

	// Playbacks counts resolved utterances. Attribute: outcome.
	Playbacks metric.Int64Counter

	// Transcripts counts transcription events. Attribute: kind (partial, final).
	Transcripts metric.Int64Counter

	// Answers counts segmented candidate answers.
	Answers metric.Int64Counter

	ActiveListeners metric.Int64UpDownCounter

	// TTSDuration is the time from synthesis request to playable audio.
	// Attribute: engine.
	TTSDuration metric.Float64Histogram

	// HTTPRequestDuration is recorded by Middleware. Attributes: method, path, status.
	HTTPRequestDuration metric.Float64Histogram
}

var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates every instrument on mp's meter.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.FramesEmitted, err = m.Int64Counter("interview.capture.frames",
		metric.WithDescription("Microphone frames emitted by the chunker."),
	); err != nil {
		return nil, err
	}
	if met.FrameBytes, err = m.Int64Counter("interview.capture.bytes",
		metric.WithDescription("PCM bytes emitted by the chunker."),
		metric.WithUnit("By"),
	); err != nil {
		return nil, err
	}
	if met.Visemes, err = m.Int64Counter("interview.lipsync.visemes",
		metric.WithDescription("Viseme changes shown on the avatar."),
	); err != nil {
		return nil, err
	}
	if met.Playbacks, err = m.Int64Counter("interview.lipsync.playbacks",
		metric.WithDescription("Resolved utterances by outcome."),
	); err != nil {
		return nil, err
	}
	if met.Transcripts, err = m.Int64Counter("interview.transcription.events",
		metric.WithDescription("Transcription events by kind."),
	); err != nil {
		return nil, err
	}
	if met.Answers, err = m.Int64Counter("interview.room.answers",
		metric.WithDescription("Candidate answers segmented from the transcript."),
	); err != nil {
		return nil, err
	}
	if met.ActiveListeners, err = m.Int64UpDownCounter("interview.room.active_listeners",
		metric.WithDescription("Open microphone to transcription pipelines."),
	); err != nil {
		return nil, err
	}
	if met.TTSDuration, err = m.Float64Histogram("interview.tts.duration",
		metric.WithDescription("Latency of text-to-speech synthesis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("interview.http.request.duration",
		metric.WithDescription("HTTP request latency by method, path and status."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}
