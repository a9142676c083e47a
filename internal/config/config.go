// Package config loads the immutable runtime configuration for the phone.
//
// Values come from the process environment, optionally seeded from a .env file
// in the working directory. The returned Config is built once at startup and
// passed by value to every component; nothing mutates it afterwards.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment variable names for the required credentials.
const (
	EnvOpenAIKey     = "OPENAI_API_KEY"
	EnvElevenLabsKey = "ELEVENLABS_KEY"

	// envElevenLabsKeyAlt is accepted as a fallback for EnvElevenLabsKey.
	envElevenLabsKeyAlt = "ELEVENLABS_API_KEY"
)

// ErrMissingCredentials is returned by Validate when a required credential is absent.
var ErrMissingCredentials = errors.New("config: missing credentials")

// MissingCredentialsError lists the environment variables that were not set.
type MissingCredentialsError struct {
	Names []string
}

func (e *MissingCredentialsError) Error() string {
	return "missing environment variables: " + strings.Join(e.Names, ", ")
}

// Is reports whether target is ErrMissingCredentials.
func (e *MissingCredentialsError) Is(target error) bool {
	return target == ErrMissingCredentials
}

// Config contains all runtime settings for the phone.
type Config struct {
	// Feature flags
	Speak        bool
	SkipDialing  bool
	TestDigit    int // -1 when unset
	DefaultDigit int

	// Operator
	OperatorVoiceID    string
	OperatorGreeting   string
	WrongNumberMessage string

	// Roles
	RolesFile string

	// Call timing
	ListenTimeout time.Duration
	PhraseTimeout time.Duration
	DialTimeout   time.Duration
	ConnectDelay  time.Duration

	// Microphone calibration
	DynamicEnergyThreshold bool
	EnergyThreshold        float64
	CalibrationWindow      time.Duration

	// Hardware
	HookGPIO     int
	DialGPIO     int
	GPIOBackend  string
	AudioBackend string
	AudioDevice  string

	// Chat
	OpenAIKey         string
	OpenAIBaseURL     string
	ChatModel         string
	ChatFallbackModel string
	ChatPromptMode    string
	ChatFailurePolicy string
	ApologyPrompt     string

	// Speech recognition
	STTProvider       string
	STTLanguage       string
	GoogleCredentials string

	// Speech synthesis
	ElevenLabsKey     string
	ElevenLabsModelID string
	ElevenLabsBaseURL string
	TTSProvider       string
	TTSFallback       string
	GoogleTTSVoice    string

	// Operator console
	ConsoleAddr      string
	MetricsNamespace string

	// Logging
	LogLevel  string
	LogFormat string
}

// Load reads a .env file (if present) and the environment, applying defaults.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() (Config, error) {
	cfg := Config{
		OperatorVoiceID:    envOrDefault("OPERATOR_VOICE_ID", "qHR09fcvu6SoDtFzqFvm"),
		OperatorGreeting:   envOrDefault("OPERATOR_GREETING", "Please dial a single digit to proceed. For a directory, please dial zero."),
		WrongNumberMessage: envOrDefault("WRONG_NUMBER_MESSAGE", "That number is disconnected. Please hang up and try again."),
		RolesFile:          envOrDefault("ROLES_FILE", "roles.yaml"),
		GPIOBackend:        envOrDefault("GPIO_BACKEND", "auto"),
		AudioBackend:       envOrDefault("AUDIO_BACKEND", "auto"),
		AudioDevice:        trimmedEnv("AUDIO_DEVICE"),
		OpenAIKey:          trimmedEnv(EnvOpenAIKey),
		OpenAIBaseURL:      trimmedEnv("OPENAI_BASE_URL"),
		ChatModel:          envOrDefault("CHAT_MODEL", "gpt-3.5-turbo"),
		ChatFallbackModel:  trimmedEnv("CHAT_FALLBACK_MODEL"),
		ChatPromptMode:     envOrDefault("CHAT_PROMPT_MODE", "transcript"),
		ChatFailurePolicy:  envOrDefault("CHAT_FAILURE_POLICY", "hangup"),
		ApologyPrompt:      envOrDefault("APOLOGY_PROMPT", "Sorry, I lost my train of thought. Say that again?"),
		STTProvider:        envOrDefault("STT_PROVIDER", "whisper"),
		STTLanguage:        envOrDefault("STT_LANGUAGE", "en-US"),
		GoogleCredentials:  trimmedEnv("GOOGLE_APPLICATION_CREDENTIALS"),
		ElevenLabsKey:      trimmedEnv(EnvElevenLabsKey),
		ElevenLabsModelID:  envOrDefault("ELEVENLABS_MODEL_ID", "eleven_turbo_v2_5"),
		ElevenLabsBaseURL:  trimmedEnv("ELEVENLABS_BASE_URL"),
		TTSProvider:        envOrDefault("TTS_PROVIDER", "elevenlabs"),
		TTSFallback:        trimmedEnv("TTS_FALLBACK"),
		GoogleTTSVoice:     envOrDefault("GOOGLE_TTS_VOICE", "en-US-Neural2-D"),
		ConsoleAddr:        trimmedEnv("CONSOLE_ADDR"),
		MetricsNamespace:   envOrDefault("METRICS_NAMESPACE", "rotary"),
		LogLevel:           envOrDefault("LOG_LEVEL", "info"),
		LogFormat:          envOrDefault("LOG_FORMAT", "text"),
	}
	if cfg.ElevenLabsKey == "" {
		cfg.ElevenLabsKey = trimmedEnv(envElevenLabsKeyAlt)
	}

	var err error
	if cfg.Speak, err = boolFromEnv("SPEAK", true); err != nil {
		return Config{}, err
	}
	if cfg.SkipDialing, err = boolFromEnv("SKIP_DIALING", false); err != nil {
		return Config{}, err
	}
	if cfg.DynamicEnergyThreshold, err = boolFromEnv("DYNAMIC_ENERGY_THRESHOLD", false); err != nil {
		return Config{}, err
	}
	if cfg.TestDigit, err = intFromEnv("TEST_DIGIT", -1); err != nil {
		return Config{}, err
	}
	if cfg.DefaultDigit, err = intFromEnv("DEFAULT_DIGIT", 1); err != nil {
		return Config{}, err
	}
	if cfg.HookGPIO, err = intFromEnv("HOOK_GPIO", 14); err != nil {
		return Config{}, err
	}
	if cfg.DialGPIO, err = intFromEnv("DIAL_GPIO", 15); err != nil {
		return Config{}, err
	}
	if cfg.EnergyThreshold, err = floatFromEnv("ENERGY_THRESHOLD", 40); err != nil {
		return Config{}, err
	}
	if cfg.ListenTimeout, err = durationFromEnv("LISTEN_TIMEOUT", 10*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.PhraseTimeout, err = durationFromEnv("PHRASE_TIMEOUT", 5*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.DialTimeout, err = durationFromEnv("DIAL_TIMEOUT", 10*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.ConnectDelay, err = durationFromEnv("CONNECT_DELAY", time.Second); err != nil {
		return Config{}, err
	}
	if cfg.CalibrationWindow, err = durationFromEnv("CALIBRATION_WINDOW", 2*time.Second); err != nil {
		return Config{}, err
	}

	if err := cfg.check(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// check validates value ranges. Credentials are checked separately by Validate.
func (c Config) check() error {
	if c.TestDigit != -1 && (c.TestDigit < 1 || c.TestDigit > 9) {
		return fmt.Errorf("TEST_DIGIT must be between 1 and 9, got %d", c.TestDigit)
	}
	if c.DefaultDigit < 1 || c.DefaultDigit > 9 {
		return fmt.Errorf("DEFAULT_DIGIT must be between 1 and 9, got %d", c.DefaultDigit)
	}
	if c.ListenTimeout <= 0 || c.PhraseTimeout <= 0 || c.DialTimeout <= 0 {
		return fmt.Errorf("LISTEN_TIMEOUT, PHRASE_TIMEOUT and DIAL_TIMEOUT must be positive")
	}
	if c.EnergyThreshold < 0 {
		return fmt.Errorf("ENERGY_THRESHOLD must be >= 0")
	}
	switch c.ChatPromptMode {
	case "transcript", "concatenated":
	default:
		return fmt.Errorf("CHAT_PROMPT_MODE must be transcript or concatenated, got %q", c.ChatPromptMode)
	}
	switch c.ChatFailurePolicy {
	case "hangup", "apologize":
	default:
		return fmt.Errorf("CHAT_FAILURE_POLICY must be hangup or apologize, got %q", c.ChatFailurePolicy)
	}
	return nil
}

// Validate reports missing credentials. The error lists every missing name.
func (c Config) Validate() error {
	var missing []string
	if c.ElevenLabsKey == "" && c.TTSProvider != "google" {
		missing = append(missing, EnvElevenLabsKey)
	}
	if c.OpenAIKey == "" {
		missing = append(missing, EnvOpenAIKey)
	}
	if len(missing) > 0 {
		return &MissingCredentialsError{Names: missing}
	}
	return nil
}

// HardwareBypassed reports whether the dial is bypassed. The hook is
// still read, so hang-ups end calls wherever it is wired.
func (c Config) HardwareBypassed() bool {
	return c.SkipDialing || c.TestDigit >= 0
}

func envOrDefault(key, fallback string) string {
	v := trimmedEnv(key)
	if v == "" {
		return fallback
	}
	return v
}

func trimmedEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	// Bare numbers are seconds, matching the original constants.
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func floatFromEnv(key string, fallback float64) (float64, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return f, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(trimmedEnv(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: invalid bool %q", key, v)
	}
}
