// Copyright (c) 2025 Masaki Kondo
// SPDX-License-Identifier: AGPL-3.0-or-later

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/mkondo/mindchat-tui/internal/model"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the inference client.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeNotRunning
	ErrTypeTimeout
	ErrTypeModelNotFound
	ErrTypeInvalidResponse
)

// Sentinel errors for easy checking.
var (
	ErrNotRunning    = &ClientError{Type: ErrTypeNotRunning, Message: "Ollamaに接続できません。起動しているか確認してください"}
	ErrTimeout       = &ClientError{Type: ErrTypeTimeout, Message: "応答がタイムアウトしました"}
	ErrModelNotFound = &ClientError{Type: ErrTypeModelNotFound, Message: "モデルが見つかりません"}
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the inference client.
type ClientConfig struct {
	// BaseURL is the Ollama API base URL (default: http://127.0.0.1:11434).
	// The explicit IPv4 address avoids IPv6 resolution issues on Windows.
	BaseURL string

	// Model is the model tag used for every request.
	Model string

	// Timeout bounds one full generation (default: 120s; local counseling
	// replies are a few hundred tokens).
	Timeout time.Duration

	// Options are the generation parameters sent with every request.
	Options Options
}

// DefaultClientConfig returns the default client configuration.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BaseURL: "http://127.0.0.1:11434",
		Model:   "gemma2:2b",
		Timeout: 120 * time.Second,
		Options: Options{
			Temperature: 0.7,
			TopP:        0.9,
			NumPredict:  512,
			NumCtx:      4096,
		},
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client generates counselor replies through a local Ollama server. It is
// the inference collaborator: one blocking call per request, no streaming,
// safe for concurrent use.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
}

// NewClient creates an inference client, filling zero config values with
// defaults.
func NewClient(config ClientConfig) *Client {
	def := DefaultClientConfig()
	if config.BaseURL == "" {
		config.BaseURL = def.BaseURL
	}
	if config.Model == "" {
		config.Model = def.Model
	}
	if config.Timeout == 0 {
		config.Timeout = def.Timeout
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// CheckRunning verifies that the Ollama server is reachable.
func (c *Client) CheckRunning(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL, nil)
	if err != nil {
		return &ClientError{Type: ErrTypeUnknown, Message: "failed to create request", Cause: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrTimeout
		}
		return ErrNotRunning
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &ClientError{
			Type:    ErrTypeInvalidResponse,
			Message: "unexpected status from Ollama: " + resp.Status,
		}
	}

	return nil
}

// GenerateReply produces the assistant reply for the given message history,
// with the mode's system prompt prepended. Blocks until the model finishes
// or ctx is cancelled.
func (c *Client) GenerateReply(ctx context.Context, history []model.Message, systemPrompt string) (string, error) {
	messages := make([]ChatMessage, 0, len(history)+1)
	if systemPrompt != "" {
		messages = append(messages, ChatMessage{Role: "system", Content: systemPrompt})
	}
	for _, msg := range history {
		messages = append(messages, ChatMessage{Role: msg.Role.String(), Content: msg.Content})
	}

	reqBody := ChatRequest{
		Model:    c.config.Model,
		Messages: messages,
		Stream:   false,
		Options:  &c.config.Options,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", &ClientError{Type: ErrTypeUnknown, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return "", ErrTimeout
		}
		return "", ErrNotRunning
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", ErrModelNotFound
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return "", &ClientError{Type: ErrTypeInvalidResponse, Message: apiErr.Error}
		}
		return "", &ClientError{
			Type:    ErrTypeInvalidResponse,
			Message: "chat request failed: " + resp.Status,
		}
	}

	var result ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}

	if result.Message.Content == "" {
		return "", &ClientError{Type: ErrTypeInvalidResponse, Message: "empty reply from model"}
	}

	return result.Message.Content, nil
}
