// Copyright (c) 2025 Masaki Kondo
// SPDX-License-Identifier: AGPL-3.0-or-later

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mkondo/mindchat-tui/internal/model"
)

func testClient(url string) *Client {
	cfg := DefaultClientConfig()
	cfg.BaseURL = url
	cfg.Model = "test-model"
	return NewClient(cfg)
}

func TestGenerateReply(t *testing.T) {
	var got ChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %q, want /api/chat", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(ChatResponse{
			Model:   got.Model,
			Message: ChatMessage{Role: "assistant", Content: "お話を聞かせてくれてありがとうございます。"},
			Done:    true,
		})
	}))
	defer server.Close()

	client := testClient(server.URL)
	history := []model.Message{
		model.NewUserMessage("最近よく眠れません"),
	}

	reply, err := client.GenerateReply(context.Background(), history, "あなたはカウンセラーです")
	if err != nil {
		t.Fatalf("GenerateReply failed: %v", err)
	}
	if reply != "お話を聞かせてくれてありがとうございます。" {
		t.Errorf("reply = %q", reply)
	}

	// System prompt goes first, then the history in order, non-streaming.
	if got.Stream {
		t.Error("request must be non-streaming")
	}
	if len(got.Messages) != 2 {
		t.Fatalf("sent %d messages, want 2", len(got.Messages))
	}
	if got.Messages[0].Role != "system" || got.Messages[1].Role != "user" {
		t.Errorf("message roles = [%s, %s], want [system, user]", got.Messages[0].Role, got.Messages[1].Role)
	}
	if got.Model != "test-model" {
		t.Errorf("model = %q, want test-model", got.Model)
	}
}

func TestGenerateReply_ModelNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := testClient(server.URL).GenerateReply(context.Background(), nil, "")
	if !errors.Is(err, ErrModelNotFound) {
		t.Errorf("expected ErrModelNotFound, got %v", err)
	}
}

func TestGenerateReply_ServerErrorMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "model requires more system memory"})
	}))
	defer server.Close()

	_, err := testClient(server.URL).GenerateReply(context.Background(), nil, "")
	var clientErr *ClientError
	if !errors.As(err, &clientErr) {
		t.Fatalf("expected ClientError, got %v", err)
	}
	if clientErr.Message != "model requires more system memory" {
		t.Errorf("error message = %q, want the server's verbatim message", clientErr.Message)
	}
}

func TestGenerateReply_NotRunning(t *testing.T) {
	// Point at a closed server.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	_, err := testClient(server.URL).GenerateReply(context.Background(), nil, "")
	if !errors.Is(err, ErrNotRunning) {
		t.Errorf("expected ErrNotRunning, got %v", err)
	}
}

func TestGenerateReply_EmptyReply(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ChatResponse{Done: true})
	}))
	defer server.Close()

	_, err := testClient(server.URL).GenerateReply(context.Background(), nil, "")
	if err == nil {
		t.Error("empty model reply should be an error")
	}
}

func TestCheckRunning(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	if err := testClient(server.URL).CheckRunning(context.Background()); err != nil {
		t.Errorf("CheckRunning failed: %v", err)
	}

	server.Close()
	if err := testClient(server.URL).CheckRunning(context.Background()); !errors.Is(err, ErrNotRunning) {
		t.Errorf("expected ErrNotRunning after close, got %v", err)
	}
}
