package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// CaptureConfig stores microphone capture configurations.
type CaptureConfig struct {
	SampleRate      int           `yaml:"sample_rate"`
	FrameDuration   time.Duration `yaml:"frame_duration"`
	FramesPerBuffer int           `yaml:"frames_per_buffer"`
	// RecordDir enables saving each listening session as a WAV file.
	RecordDir string `yaml:"record_dir"`
}

// LipsyncConfig stores viseme scheduling and voice defaults.
type LipsyncConfig struct {
	Rate             float64 `yaml:"rate"`
	Pitch            float64 `yaml:"pitch"`
	Volume           float64 `yaml:"volume"`
	PatternCacheSize int     `yaml:"pattern_cache_size"`
}

// SpeechConfig stores text-to-speech engine configurations.
type SpeechConfig struct {
	// Engine is "google" or "openai".
	Engine     string `yaml:"engine"`
	Language   string `yaml:"language"`
	Voice      string `yaml:"voice"`
	Model      string `yaml:"model"`
	CacheDir   string `yaml:"cache_dir"`
	OutputRate int    `yaml:"output_rate"`
}

// TranscriptionConfig stores real-time transcription configurations.
type TranscriptionConfig struct {
	// Provider is "streaming" or "openai_realtime".
	Provider string `yaml:"provider"`
	URL      string `yaml:"url"`
	TokenURL string `yaml:"token_url"`
	APIKey   string `yaml:"api_key"`
	Language string `yaml:"language"`
	// Model is the OpenAI transcription model for openai_realtime.
	Model string `yaml:"model"`
}

// RoomConfig stores interview room behaviour.
type RoomConfig struct {
	AnswerSilence time.Duration `yaml:"answer_silence"`
}

// ServerConfig stores the HTTP control surface configuration.
type ServerConfig struct {
	Address string `yaml:"address"`
	// AllowedOrigins are host patterns accepted for cross-origin WebSocket
	// clients.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// OpenAIConfig stores OpenAI specific configurations.
type OpenAIConfig struct {
	APIKey string `yaml:"api_key"`
}

// Config stores the application configuration.
type Config struct {
	Capture       CaptureConfig       `yaml:"capture"`
	Lipsync       LipsyncConfig       `yaml:"lipsync"`
	Speech        SpeechConfig        `yaml:"speech"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Room          RoomConfig          `yaml:"room"`
	Server        ServerConfig        `yaml:"server"`
	OpenAI        OpenAIConfig        `yaml:"openai"`
	LogLevel      string              `yaml:"log_level"`
}

// Engine and provider names accepted in the configuration.
const (
	SpeechEngineGoogle = "google"
	SpeechEngineOpenAI = "openai"

	TranscriptionStreaming      = "streaming"
	TranscriptionOpenAIRealtime = "openai_realtime"
)

// LoadConfig loads the configuration from the given file path, fills in
// defaults and validates the result.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", filePath, err)
	}

	return Parse(data)
}

// Parse decodes YAML configuration bytes.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ApplyDefaults fills zero values with the interview room defaults.
func (c *Config) ApplyDefaults() {
	if c.Capture.SampleRate == 0 {
		c.Capture.SampleRate = 16000
	}
	if c.Capture.FrameDuration == 0 {
		c.Capture.FrameDuration = 100 * time.Millisecond
	}
	if c.Capture.FramesPerBuffer == 0 {
		c.Capture.FramesPerBuffer = 128
	}

	if c.Lipsync.Rate == 0 {
		c.Lipsync.Rate = 1.0
	}
	if c.Lipsync.Pitch == 0 {
		c.Lipsync.Pitch = 1.1
	}
	if c.Lipsync.Volume == 0 {
		c.Lipsync.Volume = 1.0
	}
	if c.Lipsync.PatternCacheSize == 0 {
		c.Lipsync.PatternCacheSize = 256
	}

	if c.Speech.Engine == "" {
		c.Speech.Engine = SpeechEngineGoogle
	}
	if c.Speech.Language == "" {
		c.Speech.Language = "en"
	}
	if c.Speech.Voice == "" {
		c.Speech.Voice = "nova"
	}
	if c.Speech.Model == "" {
		c.Speech.Model = "tts-1"
	}
	if c.Speech.CacheDir == "" {
		c.Speech.CacheDir = os.TempDir() + "/interview-voice-tts"
	}
	if c.Speech.OutputRate == 0 {
		c.Speech.OutputRate = 44100
	}

	if c.Transcription.Provider == "" {
		c.Transcription.Provider = TranscriptionStreaming
	}
	if c.Transcription.Language == "" {
		c.Transcription.Language = "en"
	}

	if c.Room.AnswerSilence == 0 {
		c.Room.AnswerSilence = 2 * time.Second
	}

	if c.Server.Address == "" {
		c.Server.Address = ":8090"
	}
}

// Validate reports every invalid setting joined into one error.
func (c *Config) Validate() error {
	var errs []error

	if c.Capture.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("capture.sample_rate must be positive, got %d", c.Capture.SampleRate))
	}
	if c.Capture.FrameDuration <= 0 {
		errs = append(errs, fmt.Errorf("capture.frame_duration must be positive, got %s", c.Capture.FrameDuration))
	}
	if c.Capture.FramesPerBuffer <= 0 {
		errs = append(errs, fmt.Errorf("capture.frames_per_buffer must be positive, got %d", c.Capture.FramesPerBuffer))
	}
	if c.Lipsync.Rate <= 0 {
		errs = append(errs, fmt.Errorf("lipsync.rate must be positive, got %g", c.Lipsync.Rate))
	}
	if c.Lipsync.Volume < 0 || c.Lipsync.Volume > 1 {
		errs = append(errs, fmt.Errorf("lipsync.volume must be within [0,1], got %g", c.Lipsync.Volume))
	}
	if c.Lipsync.PatternCacheSize < 0 {
		errs = append(errs, fmt.Errorf("lipsync.pattern_cache_size must not be negative, got %d", c.Lipsync.PatternCacheSize))
	}

	switch c.Speech.Engine {
	case SpeechEngineGoogle:
	case SpeechEngineOpenAI:
		if c.OpenAI.APIKey == "" {
			errs = append(errs, errors.New("openai.api_key is required for the openai speech engine"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown speech.engine %q", c.Speech.Engine))
	}

	switch c.Transcription.Provider {
	case TranscriptionStreaming:
		if c.Transcription.URL == "" {
			errs = append(errs, errors.New("transcription.url is required for the streaming provider"))
		}
	case TranscriptionOpenAIRealtime:
		if c.Transcription.APIKey == "" && c.OpenAI.APIKey == "" {
			errs = append(errs, errors.New("an OpenAI API key is required for the openai_realtime provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown transcription.provider %q", c.Transcription.Provider))
	}

	return errors.Join(errs...)
}
