package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"

	"github.com/Raikerian/go-interview-voice/internal/lipsync"
	"github.com/Raikerian/go-interview-voice/internal/room"
)

const (
	maxBodyBytes = 64 << 10
	writeTimeout = 5 * time.Second
)

type speakRequest struct {
	Text   string  `json:"text"`
	Rate   float64 `json:"rate"`
	Pitch  float64 `json:"pitch"`
	Volume float64 `json:"volume"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("Failed to write response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

// roomStatus maps room errors to HTTP status codes.
func roomStatus(err error) int {
	switch {
	case errors.Is(err, room.ErrNotActive):
		return http.StatusServiceUnavailable
	case errors.Is(err, room.ErrAlreadyListening):
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) handleSpeak(w http.ResponseWriter, r *http.Request) {
	var req speakRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, errors.New("invalid JSON body"))
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("text is required"))
		return
	}
	if req.Rate < 0 || req.Pitch < 0 || req.Volume < 0 || req.Volume > 1 {
		s.writeError(w, http.StatusBadRequest, errors.New("rate and pitch must not be negative and volume must be within [0,1]"))
		return
	}

	opts := lipsync.VoiceOptions{Rate: req.Rate, Pitch: req.Pitch, Volume: req.Volume}
	if _, err := s.room.Say(req.Text, opts); err != nil {
		s.writeError(w, roomStatus(err), err)
		return
	}

	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "speaking"})
}

func (s *Server) handleStop(w http.ResponseWriter, _ *http.Request) {
	s.room.StopSpeaking()
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

func (s *Server) handleListenStart(w http.ResponseWriter, r *http.Request) {
	if err := s.room.StartListening(r.Context()); err != nil {
		s.logger.Warn("Failed to start listening", zap.Error(err))
		s.writeError(w, roomStatus(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "listening"})
}

func (s *Server) handleListenStop(w http.ResponseWriter, _ *http.Request) {
	if err := s.room.StopListening(); err != nil {
		s.logger.Warn("Error while stopping listening", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "idle"})
}

func (s *Server) handleTranscript(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"transcript": s.room.Transcript()})
}

func (s *Server) handleAnswers(w http.ResponseWriter, _ *http.Request) {
	answers := s.room.Answers()
	if answers == nil {
		answers = []room.Answer{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"answers": answers})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.room.Status())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleVisemes streams avatar events until the client goes away or the
// hub closes.
func (s *Server) handleVisemes(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.originPatterns,
	})
	if err != nil {
		s.logger.Debug("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.CloseNow()

	events, cancel := s.hub.Subscribe()
	defer cancel()

	// Clients never send; reading handles control frames and notices close.
	ctx := conn.CloseRead(r.Context())

	s.logger.Debug("Viseme subscriber connected", zap.String("remote", r.RemoteAddr))

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "server shutting down")
				return
			}
			wctx, wcancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(wctx, conn, e)
			wcancel()
			if err != nil {
				s.logger.Debug("Viseme subscriber write failed", zap.Error(err))
				return
			}
		}
	}
}
