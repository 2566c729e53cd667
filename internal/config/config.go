// Package config holds OPERATOR-LEVEL configuration for a honeycomb
// installation.
//
// This is infrastructure config set by whoever deploys the honeypot,
// NOT per-session state. Everything here is resolved once at startup
// from env vars (HONEYCOMB_*, dots mapped to underscores) or a config
// file (honeycomb.config.yaml) and handed to the components as a typed
// struct.
//
// The LLM API key is the one secret this package touches. It is read
// from HONEYCOMB_LLM_API_KEY, with OPENAI_API_KEY supported solely as
// a quickstart fallback for local development.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/SaketSinghRajput/honeycomb/internal/cryptoutil"
)

// Viper keys. Each maps to an env var with the HONEYCOMB_ prefix and
// dots replaced by underscores (e.g. "llm.base_url" → HONEYCOMB_LLM_BASE_URL)
// and to a nested YAML field in honeycomb.config.yaml.
const (
	KeyServerPort       = "server.port"
	KeyServerAPIKeys    = "server.api_keys"
	KeyRateGlobalRPM    = "server.rate_global_rpm"
	KeyRatePerCallerRPM = "server.rate_per_caller_rpm"

	KeyLLMMode        = "llm.mode"
	KeyLLMModel       = "llm.model"
	KeyLLMBaseURL     = "llm.base_url"
	KeyLLMAPIKey      = "llm.api_key"
	KeyLLMMaxTokens   = "llm.max_tokens"
	KeyLLMTemperature = "llm.temperature"
	KeyLLMTimeout     = "llm.timeout"

	KeyAgentPersona     = "agent.persona"
	KeyAgentMemoryTurns = "agent.memory_turns"
	KeyAgentMinTurns    = "agent.min_turns"
	KeyAgentMaxTurns    = "agent.max_turns"
	KeyAgentTermination = "agent.termination_keywords"

	KeyCallbackURL     = "callback.url"
	KeyCallbackTimeout = "callback.timeout"

	KeySessionMaxAge        = "session.max_age"
	KeySessionSweepSchedule = "session.sweep_schedule"

	KeyDetectURL       = "detect.url"
	KeyDetectThreshold = "detect.threshold"

	KeySpeechSTTURL = "speech.stt_url"
	KeySpeechTTSURL = "speech.tts_url"

	KeyDataDir    = "archive.data_dir"
	KeySigningKey = "archive.signing_key"
)

// Modes for the response generator.
const (
	LLMModeLocal  = "local"
	LLMModeRemote = "remote"
)

// Defaults that do NOT involve crypto material. The signing key has no
// baked-in default; when unset we generate a deterministic per-machine
// fallback and warn loudly.
const (
	DefaultServerPort       = 8080
	DefaultRateGlobalRPM    = 300
	DefaultRatePerCallerRPM = 60

	DefaultLLMMode        = LLMModeLocal
	DefaultLLMModel       = "gpt-4o-mini"
	DefaultLocalBaseURL   = "http://localhost:11434"
	DefaultLLMMaxTokens   = 256
	DefaultLLMTemperature = 0.7
	DefaultLLMTimeout     = 30 * time.Second

	DefaultMemoryTurns = 10
	DefaultMinTurns    = 3
	DefaultMaxTurns    = 10

	DefaultCallbackTimeout = 10 * time.Second

	DefaultSessionMaxAge = time.Hour
	DefaultSweepSchedule = "@every 5m"

	DefaultDetectThreshold = 0.7
)

// DefaultPersona is the system prompt handed to the response generator
// when agent.persona is not set. It defines the honeypot's character.
const DefaultPersona = "You are a cooperative elderly person who is slightly confused but willing to help. " +
	"Never ask for OTP, passwords, credit card numbers, or bank account details. " +
	"Never provide real personal information like addresses, real phone numbers, or financial data. " +
	"Engage naturally with the caller while subtly extracting information they volunteer " +
	"(phone numbers, organization names, payment methods). " +
	"Keep responses short (2-3 sentences), natural, and slightly hesitant."

// DefaultTerminationKeywords end a session when they appear anywhere in
// an inbound message (case-insensitive substring match).
var DefaultTerminationKeywords = []string{"terminate", "end_call", "stop"}

// Config holds resolved operator-level configuration for a honeycomb
// process.
type Config struct {
	// Server
	ServerPort       int      // HTTP listen port
	APIKeys          []string // accepted x-api-key values; empty disables auth
	RateGlobalRPM    int      // global requests-per-minute budget
	RatePerCallerRPM int      // per-caller requests-per-minute budget

	// Response generator
	LLMMode        string        // "local" (Ollama-style) or "remote" (chat-completion API)
	LLMModel       string        // model identifier for the selected backend
	LLMBaseURL     string        // backend base URL; defaults per mode
	LLMAPIKey      string        // bearer key for remote mode
	LLMMaxTokens   int           // completion token cap
	LLMTemperature float64       // sampling temperature
	LLMTimeout     time.Duration // per-generation HTTP timeout

	// Conversation agent
	Persona             string   // system prompt for the honeypot character
	MemoryTurns         int      // max seeded history pairs retained
	MinTurns            int      // turns before intelligence alone can trigger the callback
	MaxTurns            int      // turns after which the callback always fires
	TerminationKeywords []string // inbound substrings that end a session

	// Callback reporting
	CallbackURL     string        // final-report webhook; empty disables delivery
	CallbackTimeout time.Duration // report POST timeout

	// Session lifecycle
	SessionMaxAge time.Duration // idle age after which a session is swept
	SweepSchedule string        // cron spec for the sweeper (robfig/cron syntax)

	// Scam detection collaborator
	DetectURL       string  // external classifier endpoint; empty uses the built-in heuristic
	DetectThreshold float64 // minimum scam confidence to engage the agent

	// Speech collaborators
	STTBaseURL string // transcription service; empty disables audio input
	TTSBaseURL string // synthesis service; empty disables audio replies

	// Report archive
	DataDir    string // base directory for all state (~/.honeycomb)
	SigningKey string // HMAC-SHA256 key for report signing (≥32 bytes)

	usingDefaultSigningKey bool
}

// UsingDefaultSigningKey returns true if the report signing key was
// derived rather than set explicitly. Commands should warn when this
// is the case.
func (c *Config) UsingDefaultSigningKey() bool {
	return c.usingDefaultSigningKey
}

// ReportsDBPath returns the full path to the reports SQLite database.
func (c *Config) ReportsDBPath() string {
	return filepath.Join(c.DataDir, "reports.db")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *Config) EnsureDataDir() error {
	return os.MkdirAll(c.DataDir, 0o700)
}

// WarnIfDefaultSigningKey logs a warning when the signing key is not
// explicitly set. Suppressed when HONEYCOMB_QUICKSTART=1 or true
// (e.g. first-time exploration, demos).
func (c *Config) WarnIfDefaultSigningKey() {
	if isQuickstart() {
		return
	}
	if c.usingDefaultSigningKey {
		log.Warn().Msg("Using generated default HONEYCOMB_ARCHIVE_SIGNING_KEY — set via env var or config file for production")
	}
}

func isQuickstart() bool {
	v := os.Getenv("HONEYCOMB_QUICKSTART")
	return v == "1" || v == "true" || v == "TRUE"
}

func init() {
	viper.SetEnvPrefix("HONEYCOMB")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault(KeyServerPort, DefaultServerPort)
	viper.SetDefault(KeyRateGlobalRPM, DefaultRateGlobalRPM)
	viper.SetDefault(KeyRatePerCallerRPM, DefaultRatePerCallerRPM)
	viper.SetDefault(KeyLLMMode, DefaultLLMMode)
	viper.SetDefault(KeyLLMModel, DefaultLLMModel)
	viper.SetDefault(KeyLLMMaxTokens, DefaultLLMMaxTokens)
	viper.SetDefault(KeyLLMTemperature, DefaultLLMTemperature)
	viper.SetDefault(KeyLLMTimeout, DefaultLLMTimeout)
	viper.SetDefault(KeyAgentPersona, DefaultPersona)
	viper.SetDefault(KeyAgentMemoryTurns, DefaultMemoryTurns)
	viper.SetDefault(KeyAgentMinTurns, DefaultMinTurns)
	viper.SetDefault(KeyAgentMaxTurns, DefaultMaxTurns)
	viper.SetDefault(KeyAgentTermination, DefaultTerminationKeywords)
	viper.SetDefault(KeyCallbackTimeout, DefaultCallbackTimeout)
	viper.SetDefault(KeySessionMaxAge, DefaultSessionMaxAge)
	viper.SetDefault(KeySessionSweepSchedule, DefaultSweepSchedule)
	viper.SetDefault(KeyDetectThreshold, DefaultDetectThreshold)
}

// Load reads configuration from Viper (which merges env vars, config
// file, and defaults) and returns a validated Config.
func Load() (*Config, error) {
	cfg := &Config{
		ServerPort:       viper.GetInt(KeyServerPort),
		APIKeys:          viper.GetStringSlice(KeyServerAPIKeys),
		RateGlobalRPM:    viper.GetInt(KeyRateGlobalRPM),
		RatePerCallerRPM: viper.GetInt(KeyRatePerCallerRPM),

		LLMMode:        viper.GetString(KeyLLMMode),
		LLMModel:       viper.GetString(KeyLLMModel),
		LLMBaseURL:     viper.GetString(KeyLLMBaseURL),
		LLMAPIKey:      viper.GetString(KeyLLMAPIKey),
		LLMMaxTokens:   viper.GetInt(KeyLLMMaxTokens),
		LLMTemperature: viper.GetFloat64(KeyLLMTemperature),
		LLMTimeout:     viper.GetDuration(KeyLLMTimeout),

		Persona:             viper.GetString(KeyAgentPersona),
		MemoryTurns:         viper.GetInt(KeyAgentMemoryTurns),
		MinTurns:            viper.GetInt(KeyAgentMinTurns),
		MaxTurns:            viper.GetInt(KeyAgentMaxTurns),
		TerminationKeywords: viper.GetStringSlice(KeyAgentTermination),

		CallbackURL:     viper.GetString(KeyCallbackURL),
		CallbackTimeout: viper.GetDuration(KeyCallbackTimeout),

		SessionMaxAge: viper.GetDuration(KeySessionMaxAge),
		SweepSchedule: viper.GetString(KeySessionSweepSchedule),

		DetectURL:       viper.GetString(KeyDetectURL),
		DetectThreshold: viper.GetFloat64(KeyDetectThreshold),

		STTBaseURL: viper.GetString(KeySpeechSTTURL),
		TTSBaseURL: viper.GetString(KeySpeechTTSURL),

		DataDir:    resolveDataDir(),
		SigningKey: viper.GetString(KeySigningKey),
	}

	if cfg.LLMBaseURL == "" && cfg.LLMMode == LLMModeLocal {
		cfg.LLMBaseURL = DefaultLocalBaseURL
	}
	if cfg.LLMAPIKey == "" {
		cfg.LLMAPIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.SigningKey == "" {
		cfg.SigningKey = deriveDefaultKey(cfg.DataDir, "report-signing")
		cfg.usingDefaultSigningKey = true
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func resolveDataDir() string {
	if dir := viper.GetString(KeyDataDir); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".honeycomb"
	}
	return filepath.Join(home, ".honeycomb")
}

// deriveDefaultKey produces a deterministic 32-byte fallback key from the
// data directory path and a salt. Uses SHA-256 so the full salt always
// contributes to the output regardless of path length. This is NOT
// cryptographically strong; it exists solely so `honeycomb serve` works
// out of the box while still signing reports with a per-machine-unique key.
func deriveDefaultKey(dataDir, salt string) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("honeycomb:%s:%s", dataDir, salt)))
	return hex.EncodeToString(h[:])
}

func (c *Config) validate() error {
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("server.port must be in 1..65535 (got %d)", c.ServerPort)
	}
	if c.LLMMode != LLMModeLocal && c.LLMMode != LLMModeRemote {
		return fmt.Errorf("llm.mode must be %q or %q (got %q)", LLMModeLocal, LLMModeRemote, c.LLMMode)
	}
	if c.LLMMaxTokens <= 0 {
		return fmt.Errorf("llm.max_tokens must be positive")
	}
	if c.LLMTemperature < 0 || c.LLMTemperature > 2 {
		return fmt.Errorf("llm.temperature must be in 0..2 (got %g)", c.LLMTemperature)
	}
	if c.MemoryTurns <= 0 {
		return fmt.Errorf("agent.memory_turns must be positive")
	}
	if c.MinTurns < 0 || c.MaxTurns <= 0 || c.MinTurns > c.MaxTurns {
		return fmt.Errorf("agent turn bounds invalid: min_turns=%d max_turns=%d", c.MinTurns, c.MaxTurns)
	}
	if c.DetectThreshold < 0 || c.DetectThreshold > 1 {
		return fmt.Errorf("detect.threshold must be in 0..1 (got %g)", c.DetectThreshold)
	}
	if c.SessionMaxAge <= 0 {
		return fmt.Errorf("session.max_age must be positive")
	}
	if err := validateSigningKey(c.SigningKey); err != nil {
		return err
	}
	return nil
}

// validateSigningKey accepts either ≥32 raw bytes or ≥64 hex characters
// (decoded length ≥32 for HMAC-SHA256).
func validateSigningKey(key string) error {
	if _, err := cryptoutil.ResolveKey(key, 32); err != nil {
		return fmt.Errorf("archive.signing_key must be at least 32 bytes or 64+ hex characters (got %d); set HONEYCOMB_ARCHIVE_SIGNING_KEY", len(key))
	}
	return nil
}
