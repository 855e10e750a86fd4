// Copyright (c) 2025 Masaki Kondo
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for mindchat.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - ~/.mindchat/config.toml
//   - ~/.mindchat/config.json
//   - Built-in defaults
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/mkondo/mindchat-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config is the complete mindchat configuration.
type Config struct {
	// DataDir is where per-mode history files live (default: ~/.mindchat/data).
	DataDir string `toml:"data_dir" json:"data_dir"`

	// History holds the retention settings shared by every mode's store.
	History HistoryConfig `toml:"history" json:"history"`

	// LLM configures the local Ollama inference collaborator.
	LLM LLMConfig `toml:"llm" json:"llm"`

	// Speech configures the local whisper.cpp transcription collaborator.
	Speech SpeechConfig `toml:"speech" json:"speech"`

	// Modes are the conversation personas. The first entry is the startup
	// mode.
	Modes []ModeConfig `toml:"modes" json:"modes"`
}

// HistoryConfig contains conversation retention settings.
type HistoryConfig struct {
	// MaxConversations is the per-mode retention ceiling.
	MaxConversations int `toml:"max_conversations" json:"max_conversations"`

	// MaxFavorites caps simultaneously favorited conversations per mode.
	MaxFavorites int `toml:"max_favorites" json:"max_favorites"`
}

// LLMConfig contains inference settings.
type LLMConfig struct {
	// OllamaURL is the URL of the Ollama server.
	OllamaURL string `toml:"ollama_url" json:"ollama_url"`
	// Model is the Ollama model tag.
	Model string `toml:"model" json:"model"`
	// Temperature and TopP are sampling parameters.
	Temperature float64 `toml:"temperature" json:"temperature"`
	TopP        float64 `toml:"top_p" json:"top_p"`
	// MaxResponseTokens bounds one generated reply.
	MaxResponseTokens int `toml:"max_response_tokens" json:"max_response_tokens"`
	// MaxContextTokens is the context window requested from the model.
	MaxContextTokens int `toml:"max_context_tokens" json:"max_context_tokens"`
	// TimeoutSeconds bounds one full generation.
	TimeoutSeconds int `toml:"timeout_seconds" json:"timeout_seconds"`
}

// SpeechConfig contains voice input settings.
type SpeechConfig struct {
	// Enabled toggles the record button.
	Enabled bool `toml:"enabled" json:"enabled"`
	// WhisperURL is the whisper.cpp server address.
	WhisperURL string `toml:"whisper_url" json:"whisper_url"`
	// Language is the recognition language hint.
	Language string `toml:"language" json:"language"`
	// SampleRate of the capture in Hz.
	SampleRate int `toml:"sample_rate" json:"sample_rate"`
	// TimeoutSeconds bounds one transcription.
	TimeoutSeconds int `toml:"timeout_seconds" json:"timeout_seconds"`
}

// ModeConfig defines one conversation persona: its own system prompt,
// history file, and accent color.
type ModeConfig struct {
	// Key is the stable identifier; the history file is history_<key>.json.
	Key string `toml:"key" json:"key"`
	// Title is shown in the mode switcher.
	Title string `toml:"title" json:"title"`
	// AssistantLabel is the name the assistant speaks under.
	AssistantLabel string `toml:"assistant_label" json:"assistant_label"`
	// SystemPrompt is the fixed instruction sent with every request.
	SystemPrompt string `toml:"system_prompt" json:"system_prompt"`
	// Accent is the lipgloss color for this mode's highlights.
	Accent string `toml:"accent" json:"accent"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		History: HistoryConfig{
			MaxConversations: 60,
			MaxFavorites:     50,
		},
		LLM: LLMConfig{
			OllamaURL:         "http://127.0.0.1:11434",
			Model:             "gemma2:2b",
			Temperature:       0.7,
			TopP:              0.9,
			MaxResponseTokens: 512,
			MaxContextTokens:  4096,
			TimeoutSeconds:    120,
		},
		Speech: SpeechConfig{
			Enabled:        true,
			WhisperURL:     "http://127.0.0.1:8178",
			Language:       "ja",
			SampleRate:     16000,
			TimeoutSeconds: 60,
		},
		Modes: []ModeConfig{
			{
				Key:            "counsel",
				Title:          "悩み相談",
				AssistantLabel: "Mind-Chat",
				SystemPrompt: "あなたは丁寧で共感力のある悩み相談カウンセラーです。" +
					"相手の気持ちを尊重し、安心して話してもらえるように、" +
					"短すぎず長すぎない自然な日本語で、具体的な気づきや次の一歩を提案してください。" +
					"アドバイスが難しい場合は、相手の気持ちを受け止める言葉を最優先にしてください。",
				Accent: "#7D56F4",
			},
			{
				Key:            "career",
				Title:          "キャリア相談",
				AssistantLabel: "Mind-Chat",
				SystemPrompt: "あなたは経験豊富なキャリアカウンセラーです。" +
					"相手の状況を丁寧に聞き取り、押し付けにならない形で" +
					"仕事や働き方についての選択肢を一緒に整理してください。",
				Accent: "#2D9CDB",
			},
			{
				Key:            "listen",
				Title:          "聞いてほしい",
				AssistantLabel: "Mind-Chat",
				SystemPrompt: "あなたは聞き役に徹するカウンセラーです。" +
					"アドバイスよりも、相手の気持ちをそのまま受け止めて言葉にして返すことを最優先にしてください。",
				Accent: "#27AE60",
			},
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the mindchat configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".mindchat"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// HistoryPath returns the history file for a mode key inside the data dir.
func (c *Config) HistoryPath(modeKey string) string {
	return filepath.Join(c.DataDir, "history_"+modeKey+".json")
}

// Mode returns the mode definition for key, or false if unknown.
func (c *Config) Mode(key string) (ModeConfig, bool) {
	for _, m := range c.Modes {
		if m.Key == key {
			return m, true
		}
	}
	return ModeConfig{}, false
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the default config file locations.
// Tries TOML first, then JSON, and falls back to defaults. Environment
// overrides are applied last, then defaults are filled in and the result is
// validated.
func Load() (*Config, error) {
	cfg := Default()

	if tomlPath, err := ConfigPathTOML(); err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			if _, err := toml.DecodeFile(tomlPath, cfg); err != nil {
				return nil, fmt.Errorf("failed to load TOML config: %w", err)
			}
			return finish(cfg)
		}
	}

	if jsonPath, err := ConfigPathJSON(); err == nil {
		if data, readErr := os.ReadFile(jsonPath); readErr == nil {
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to load JSON config: %w", err)
			}
			return finish(cfg)
		}
	}

	return finish(cfg)
}

// LoadFromPath loads configuration from an explicit file; the format is
// chosen by extension.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load TOML config: %w", err)
		}
	case ".json":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to load JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %s", path)
	}

	return finish(cfg)
}

func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ApplyEnvOverrides applies MINDCHAT_* environment variables on top of the
// loaded configuration.
func (c *Config) ApplyEnvOverrides() {
	if dir := os.Getenv("MINDCHAT_DATA_DIR"); dir != "" {
		c.DataDir = dir
	}
	if u := os.Getenv("MINDCHAT_OLLAMA_URL"); u != "" {
		c.LLM.OllamaURL = u
	}
	if model := os.Getenv("MINDCHAT_MODEL"); model != "" {
		c.LLM.Model = model
	}
	if u := os.Getenv("MINDCHAT_WHISPER_URL"); u != "" {
		c.Speech.WhisperURL = u
	}
	if v := os.Getenv("MINDCHAT_SPEECH"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			c.Speech.Enabled = enabled
		}
	}
}

// SetDefaults fills in any zero values left after loading.
func (c *Config) SetDefaults() {
	def := Default()

	if c.DataDir == "" {
		if dir, err := ConfigDir(); err == nil {
			c.DataDir = filepath.Join(dir, "data")
		} else {
			c.DataDir = "data"
		}
	}
	if c.History.MaxConversations == 0 {
		c.History.MaxConversations = def.History.MaxConversations
	}
	if c.History.MaxFavorites == 0 {
		c.History.MaxFavorites = def.History.MaxFavorites
	}
	if c.LLM.OllamaURL == "" {
		c.LLM.OllamaURL = def.LLM.OllamaURL
	}
	if c.LLM.Model == "" {
		c.LLM.Model = def.LLM.Model
	}
	if c.LLM.MaxResponseTokens == 0 {
		c.LLM.MaxResponseTokens = def.LLM.MaxResponseTokens
	}
	if c.LLM.MaxContextTokens == 0 {
		c.LLM.MaxContextTokens = def.LLM.MaxContextTokens
	}
	if c.LLM.TimeoutSeconds == 0 {
		c.LLM.TimeoutSeconds = def.LLM.TimeoutSeconds
	}
	if c.Speech.WhisperURL == "" {
		c.Speech.WhisperURL = def.Speech.WhisperURL
	}
	if c.Speech.Language == "" {
		c.Speech.Language = def.Speech.Language
	}
	if c.Speech.SampleRate == 0 {
		c.Speech.SampleRate = def.Speech.SampleRate
	}
	if c.Speech.TimeoutSeconds == 0 {
		c.Speech.TimeoutSeconds = def.Speech.TimeoutSeconds
	}
	if len(c.Modes) == 0 {
		c.Modes = def.Modes
	}
	for i := range c.Modes {
		if c.Modes[i].AssistantLabel == "" {
			c.Modes[i].AssistantLabel = "Mind-Chat"
		}
		if c.Modes[i].Title == "" {
			c.Modes[i].Title = c.Modes[i].Key
		}
		if c.Modes[i].Accent == "" {
			c.Modes[i].Accent = "#7D56F4"
		}
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError describes one invalid config field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidateErrors aggregates all validation failures.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.History.MaxConversations < 1 {
		errs = append(errs, ValidationError{
			Field:   "history.max_conversations",
			Message: "must be at least 1",
		})
	}
	if c.History.MaxFavorites < 0 {
		errs = append(errs, ValidationError{
			Field:   "history.max_favorites",
			Message: "cannot be negative",
		})
	}

	if _, err := url.Parse(c.LLM.OllamaURL); err != nil {
		errs = append(errs, ValidationError{
			Field:   "llm.ollama_url",
			Message: fmt.Sprintf("invalid URL: %v", err),
		})
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, ValidationError{
			Field:   "llm.temperature",
			Message: "must be between 0 and 2",
		})
	}

	if c.Speech.Enabled {
		if _, err := url.Parse(c.Speech.WhisperURL); err != nil {
			errs = append(errs, ValidationError{
				Field:   "speech.whisper_url",
				Message: fmt.Sprintf("invalid URL: %v", err),
			})
		}
		if c.Speech.SampleRate < 8000 {
			errs = append(errs, ValidationError{
				Field:   "speech.sample_rate",
				Message: "must be at least 8000",
			})
		}
	}

	seen := make(map[string]bool)
	for i, mode := range c.Modes {
		field := fmt.Sprintf("modes[%d]", i)
		if mode.Key == "" {
			errs = append(errs, ValidationError{Field: field + ".key", Message: "cannot be empty"})
			continue
		}
		if seen[mode.Key] {
			errs = append(errs, ValidationError{Field: field + ".key", Message: "duplicate key " + mode.Key})
		}
		seen[mode.Key] = true
		if mode.SystemPrompt == "" {
			errs = append(errs, ValidationError{Field: field + ".system_prompt", Message: "cannot be empty"})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes the configuration to a TOML file with a short header.
func SaveTOML(cfg *Config, path string) error {
	var sb strings.Builder
	sb.WriteString("# mindchat configuration file\n")
	sb.WriteString("# Generated by mindchat - edit with care\n\n")

	encoder := toml.NewEncoder(&sb)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, []byte(sb.String()), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
