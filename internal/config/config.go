package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/steveyiyo/formcoach-backend/internal/core/coach"
	"github.com/steveyiyo/formcoach-backend/internal/core/playback"
	"github.com/steveyiyo/formcoach-backend/internal/core/pose"
	"github.com/steveyiyo/formcoach-backend/internal/logging"
	"github.com/steveyiyo/formcoach-backend/internal/telemetry"
)

// TTS providers.
const (
	ProviderHTTP   = "http"
	ProviderClone  = "clone"
	ProviderGemini = "gemini"
	ProviderNone   = "none"
)

type TTSConfig struct {
	Provider     string
	BaseURL      string
	Timeout      time.Duration
	CloneTimeout time.Duration
	CloneRefURL  string
	CloneRefText string
	CloneSteps   int
	GeminiAPIKey string
	GeminiModel  string
}

// Tuning is the optional YAML file named by COACH_CONFIG.
type Tuning struct {
	Coach    coach.Config    `yaml:"coach"`
	Pose     pose.Thresholds `yaml:"pose"`
	Playback playback.Config `yaml:"playback"`
}

type Config struct {
	Port       string
	PublicHost string
	TLS        bool
	Log        logging.Options
	Trace      telemetry.Options
	TTS        TTSConfig
	Tuning
}

func Load() (Config, error) {
	cfg := Config{
		Port:       getenv("PORT", "8080"),
		PublicHost: os.Getenv("PUBLIC_HOST"),
		TLS:        os.Getenv("TLS") == "1",
		Log: logging.Options{
			Level:  getenv("LOG_LEVEL", "info"),
			Format: getenv("LOG_FORMAT", "text"),
			File:   os.Getenv("LOG_FILE"),
		},
		Trace: telemetry.Options{
			ServiceName:  "formcoach-backend",
			Exporter:     getenv("OTEL_TRACES_EXPORTER", telemetry.ExporterNone),
			OTLPEndpoint: getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		},
		TTS: TTSConfig{
			Provider:     os.Getenv("TTS_PROVIDER"),
			BaseURL:      os.Getenv("TTS_BASE_URL"),
			CloneRefURL:  os.Getenv("TTS_CLONE_REF_AUDIO_URL"),
			CloneRefText: os.Getenv("TTS_CLONE_REF_TEXT"),
			GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
			GeminiModel:  getenv("GEMINI_TTS_MODEL", "gemini-2.5-flash-preview-tts"),
		},
		Tuning: DefaultTuning(),
	}

	if path := os.Getenv("COACH_CONFIG"); path != "" {
		if err := cfg.Tuning.loadFile(path); err != nil {
			return Config{}, err
		}
	}

	var errs []error
	cfg.TTS.Timeout, errs = duration("TTS_TIMEOUT", 15*time.Second, errs)
	cfg.TTS.CloneTimeout, errs = duration("TTS_CLONE_TIMEOUT", 60*time.Second, errs)
	cfg.TTS.CloneSteps, errs = integer("TTS_CLONE_STEPS", 0, errs)

	pb := &cfg.Playback
	pb.Voice = getenv("TTS_VOICE", pb.Voice)
	pb.Instruction = getenv("TTS_INSTRUCTION", pb.Instruction)
	pb.Locale = getenv("SPEECH_LOCALE", pb.Locale)
	pb.Rate, errs = float("SPEECH_RATE", pb.Rate, errs)
	pb.PlaybackTimeout, errs = duration("PLAYBACK_TIMEOUT", pb.PlaybackTimeout, errs)
	pb.Gap, errs = duration("PLAYBACK_GAP", pb.Gap, errs)
	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}

	if cfg.TTS.Provider == "" {
		cfg.TTS.Provider = defaultProvider(cfg.TTS)
	}
	switch cfg.TTS.Provider {
	case ProviderHTTP, ProviderClone:
		if cfg.TTS.BaseURL == "" {
			return Config{}, fmt.Errorf("config: TTS_PROVIDER=%s needs TTS_BASE_URL", cfg.TTS.Provider)
		}
	case ProviderGemini:
		if cfg.TTS.GeminiAPIKey == "" {
			return Config{}, errors.New("config: TTS_PROVIDER=gemini needs GEMINI_API_KEY")
		}
	case ProviderNone:
	default:
		return Config{}, fmt.Errorf("config: unknown TTS_PROVIDER %q", cfg.TTS.Provider)
	}
	return cfg, nil
}

// DefaultTuning returns the compiled-in coaching tuning.
func DefaultTuning() Tuning {
	return Tuning{
		Coach:    coach.DefaultConfig(),
		Pose:     pose.DefaultThresholds,
		Playback: playback.DefaultConfig(),
	}
}

// loadFile overlays the YAML file at path onto t. Keys absent from the file
// keep their current values.
func (t *Tuning) loadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, t); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	for et := range t.Coach.Intervals {
		if !et.Valid() {
			return fmt.Errorf("config: %s: unknown event type %q", path, et)
		}
	}
	if t.Pose.Warn <= 0 || t.Pose.Error <= t.Pose.Warn {
		return fmt.Errorf("config: %s: need 0 < pose.warn < pose.error", path)
	}
	return nil
}

// BaseScheme is the scheme clients use to reach the service.
func (c Config) BaseScheme() string {
	if c.TLS {
		return "https"
	}
	return "http"
}

// Host is the public host:port clients use to reach the service.
func (c Config) Host() string {
	if c.PublicHost != "" {
		return c.PublicHost
	}
	return "localhost:" + c.Port
}

func defaultProvider(t TTSConfig) string {
	switch {
	case t.BaseURL != "" && t.CloneRefURL != "":
		return ProviderClone
	case t.BaseURL != "":
		return ProviderHTTP
	case t.GeminiAPIKey != "":
		return ProviderGemini
	}
	return ProviderNone
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func duration(k string, d time.Duration, errs []error) (time.Duration, []error) {
	v := os.Getenv(k)
	if v == "" {
		return d, errs
	}
	out, err := time.ParseDuration(v)
	if err != nil {
		return d, append(errs, fmt.Errorf("config: %s: %w", k, err))
	}
	return out, errs
}

func integer(k string, d int, errs []error) (int, []error) {
	v := os.Getenv(k)
	if v == "" {
		return d, errs
	}
	out, err := strconv.Atoi(v)
	if err != nil {
		return d, append(errs, fmt.Errorf("config: %s: %w", k, err))
	}
	return out, errs
}

func float(k string, d float64, errs []error) (float64, []error) {
	v := os.Getenv(k)
	if v == "" {
		return d, errs
	}
	out, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return d, append(errs, fmt.Errorf("config: %s: %w", k, err))
	}
	return out, errs
}
