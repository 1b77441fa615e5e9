package server_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap/zaptest"

	"github.com/Raikerian/go-interview-voice/internal/config"
	"github.com/Raikerian/go-interview-voice/internal/lipsync"
	"github.com/Raikerian/go-interview-voice/internal/observe"
	"github.com/Raikerian/go-interview-voice/internal/room"
	"github.com/Raikerian/go-interview-voice/internal/server"
)

type fakeRoom struct {
	mu         sync.Mutex
	said       []string
	opts       []lipsync.VoiceOptions
	stops      int
	listening  bool
	sayErr     error
	listenErr  error
	transcript string
	answers    []room.Answer
}

func (r *fakeRoom) Say(text string, opts lipsync.VoiceOptions) (*lipsync.Playback, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sayErr != nil {
		return nil, r.sayErr
	}
	r.said = append(r.said, text)
	r.opts = append(r.opts, opts)
	return nil, nil
}

func (r *fakeRoom) StopSpeaking() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stops++
}

func (r *fakeRoom) StartListening(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listenErr != nil {
		return r.listenErr
	}
	if r.listening {
		return room.ErrAlreadyListening
	}
	r.listening = true
	return nil
}

func (r *fakeRoom) StopListening() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listening = false
	return nil
}

func (r *fakeRoom) Transcript() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.transcript
}

func (r *fakeRoom) Answers() []room.Answer {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.answers
}

func (r *fakeRoom) Status() room.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return room.Status{
		Phase:      room.PhaseActive,
		Listening:  r.listening,
		State:      lipsync.StateIdle,
		Viseme:     lipsync.VisemeSil,
		Transcript: r.transcript,
		Answers:    len(r.answers),
	}
}

func newTestServer(t *testing.T, r *fakeRoom) (*httptest.Server, *server.Hub) {
	t.Helper()
	logger := zaptest.NewLogger(t)

	metrics, err := observe.NewMetrics(noop.NewMeterProvider())
	require.NoError(t, err)
	provider, err := observe.NewProvider()
	require.NoError(t, err)
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	cfg := &config.Config{}
	cfg.ApplyDefaults()

	hub := server.NewHub(logger)
	s := server.NewServer(logger, r, hub, metrics, provider, cfg)

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		hub.Close()
		ts.Close()
	})
	return ts, hub
}

func do(t *testing.T, method, url, body string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	if resp.Header.Get("Content-Type") == "application/json" {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp.StatusCode, out
}

func TestSpeak(t *testing.T) {
	tests := map[string]struct {
		body   string
		sayErr error
		status int
	}{
		"accepted":        {body: `{"text":"Hello there","rate":1.2,"volume":0.5}`, status: http.StatusAccepted},
		"invalid json":    {body: `{"text":`, status: http.StatusBadRequest},
		"blank text":      {body: `{"text":"   "}`, status: http.StatusBadRequest},
		"volume too loud": {body: `{"text":"hi","volume":1.5}`, status: http.StatusBadRequest},
		"negative rate":   {body: `{"text":"hi","rate":-1}`, status: http.StatusBadRequest},
		"room not active": {body: `{"text":"hi"}`, sayErr: room.ErrNotActive, status: http.StatusServiceUnavailable},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			r := &fakeRoom{sayErr: tt.sayErr}
			ts, _ := newTestServer(t, r)

			status, body := do(t, http.MethodPost, ts.URL+"/speak", tt.body)
			assert.Equal(t, tt.status, status)
			if status != http.StatusAccepted {
				assert.NotEmpty(t, body["error"])
			}
		})
	}
}

func TestSpeakPassesVoiceOptions(t *testing.T) {
	r := &fakeRoom{}
	ts, _ := newTestServer(t, r)

	status, _ := do(t, http.MethodPost, ts.URL+"/speak", `{"text":"Next question","rate":1.5,"pitch":0.9,"volume":0.8}`)
	require.Equal(t, http.StatusAccepted, status)

	r.mu.Lock()
	defer r.mu.Unlock()
	assert.Equal(t, []string{"Next question"}, r.said)
	assert.Equal(t, []lipsync.VoiceOptions{{Rate: 1.5, Pitch: 0.9, Volume: 0.8}}, r.opts)
}

func TestStopAndListenRoutes(t *testing.T) {
	r := &fakeRoom{}
	ts, _ := newTestServer(t, r)

	status, _ := do(t, http.MethodPost, ts.URL+"/stop", "")
	assert.Equal(t, http.StatusOK, status)

	status, body := do(t, http.MethodPost, ts.URL+"/listen/start", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "listening", body["status"])

	status, _ = do(t, http.MethodPost, ts.URL+"/listen/start", "")
	assert.Equal(t, http.StatusConflict, status)

	status, _ = do(t, http.MethodPost, ts.URL+"/listen/stop", "")
	assert.Equal(t, http.StatusOK, status)

	r.mu.Lock()
	defer r.mu.Unlock()
	assert.Equal(t, 1, r.stops)
	assert.False(t, r.listening)
}

func TestReadRoutes(t *testing.T) {
	r := &fakeRoom{transcript: "hello world "}
	ts, _ := newTestServer(t, r)

	status, body := do(t, http.MethodGet, ts.URL+"/transcript", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "hello world ", body["transcript"])

	status, body = do(t, http.MethodGet, ts.URL+"/answers", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, []any{}, body["answers"])

	status, body = do(t, http.MethodGet, ts.URL+"/status", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "active", body["phase"])
	assert.Equal(t, "idle", body["state"])
	assert.Equal(t, "sil", body["viseme"])

	status, body = do(t, http.MethodGet, ts.URL+"/healthz", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestMethodNotAllowed(t *testing.T) {
	ts, _ := newTestServer(t, &fakeRoom{})

	status, _ := do(t, http.MethodGet, ts.URL+"/speak", "")
	assert.Equal(t, http.StatusMethodNotAllowed, status)
}

func TestMetricsRoute(t *testing.T) {
	ts, _ := newTestServer(t, &fakeRoom{})

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(data), "go_goroutines")
}

func TestVisemeWebSocket(t *testing.T) {
	ts, hub := newTestServer(t, &fakeRoom{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/visemes"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	var e map[string]string
	require.NoError(t, wsjson.Read(ctx, conn, &e))
	assert.Equal(t, "sil", e["viseme"])
	assert.Equal(t, "idle", e["state"])
	assert.NotEmpty(t, e["at"])

	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, time.Second, time.Millisecond)
	hub.Hooks().OnViseme(lipsync.VisemeAA)

	require.NoError(t, wsjson.Read(ctx, conn, &e))
	assert.Equal(t, "aa", e["viseme"])

	hub.Close()
	_, _, err = conn.Read(ctx)
	assert.Equal(t, websocket.StatusGoingAway, websocket.CloseStatus(err))
}
