// Copyright (c) 2025 Masaki Kondo
// SPDX-License-Identifier: AGPL-3.0-or-later

package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the transcription client.
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
	ErrTypeBadAudio
	ErrTypeInvalidResponse
)

// Sentinel errors for easy checking.
var (
	ErrNotRunning = &ClientError{Type: ErrTypeNotRunning, Message: "音声認識サーバーに接続できません"}
	ErrTimeout    = &ClientError{Type: ErrTypeTimeout, Message: "音声認識がタイムアウトしました"}
	ErrNoSpeech   = &ClientError{Type: ErrTypeBadAudio, Message: "音声を認識できませんでした"}
)

// =============================================================================
// TRANSCRIBER
// =============================================================================

// Transcriber converts captured PCM audio to text. Implementations make one
// blocking call per invocation; the orchestrator runs them off-thread.
type Transcriber interface {
	Transcribe(ctx context.Context, pcm []byte, sampleRate int) (string, error)
}

// =============================================================================
// WHISPER SERVER CLIENT
// =============================================================================

// ClientConfig holds configuration for the whisper.cpp server client.
type ClientConfig struct {
	// BaseURL is the whisper.cpp server address (default: http://127.0.0.1:8178).
	BaseURL string

	// Language hint passed to the model (default: "ja").
	Language string

	// Timeout bounds one full transcription (default: 60s).
	Timeout time.Duration
}

// DefaultClientConfig returns the default transcription client configuration.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BaseURL:  "http://127.0.0.1:8178",
		Language: "ja",
		Timeout:  60 * time.Second,
	}
}

// Client transcribes speech through a local whisper.cpp server
// (whisper-server --host 127.0.0.1). It implements Transcriber.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
}

// NewClient creates a transcription client, filling zero config values with
// defaults.
func NewClient(config ClientConfig) *Client {
	def := DefaultClientConfig()
	if config.BaseURL == "" {
		config.BaseURL = def.BaseURL
	}
	if config.Language == "" {
		config.Language = def.Language
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

// inferenceResponse is the whisper.cpp server JSON response.
type inferenceResponse struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

// Transcribe uploads the captured PCM as a WAV file and returns the
// recognized text. Blocks until the server finishes or ctx is cancelled.
func (c *Client) Transcribe(ctx context.Context, pcm []byte, sampleRate int) (string, error) {
	wav, err := encodeWAV(pcm, sampleRate)
	if err != nil {
		return "", &ClientError{Type: ErrTypeBadAudio, Message: "invalid audio capture", Cause: err}
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", "capture.wav")
	if err != nil {
		return "", &ClientError{Type: ErrTypeUnknown, Message: "failed to build upload", Cause: err}
	}
	if _, err := io.Copy(part, bytes.NewReader(wav)); err != nil {
		return "", &ClientError{Type: ErrTypeUnknown, Message: "failed to build upload", Cause: err}
	}
	writer.WriteField("language", c.config.Language)
	writer.WriteField("response_format", "json")
	if err := writer.Close(); err != nil {
		return "", &ClientError{Type: ErrTypeUnknown, Message: "failed to build upload", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/inference", &body)
	if err != nil {
		return "", &ClientError{Type: ErrTypeUnknown, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return "", ErrTimeout
		}
		return "", ErrNotRunning
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr inferenceResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return "", &ClientError{Type: ErrTypeInvalidResponse, Message: apiErr.Error}
		}
		return "", &ClientError{
			Type:    ErrTypeInvalidResponse,
			Message: "transcription request failed: " + resp.Status,
		}
	}

	var result inferenceResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}

	text := strings.TrimSpace(result.Text)
	if text == "" {
		return "", ErrNoSpeech
	}

	return text, nil
}
