// Copyright (c) 2025 Masaki Kondo
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"
)

// HandleStatus checks the local model servers and prints one line per
// collaborator.
func HandleStatus(args Args) {
	cfg, err := loadConfig(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "設定の読み込みに失敗しました: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client := newLLMClient(cfg, args)
	if err := client.CheckRunning(ctx); err != nil {
		fmt.Printf("Ollama   %s  NG (%v)\n", cfg.LLM.OllamaURL, err)
	} else {
		fmt.Printf("Ollama   %s  OK (model: %s)\n", cfg.LLM.OllamaURL, cfg.LLM.Model)
	}

	if !cfg.Speech.Enabled {
		fmt.Println("Whisper  音声入力は無効です")
		return
	}
	if err := probe(ctx, cfg.Speech.WhisperURL); err != nil {
		fmt.Printf("Whisper  %s  NG (%v)\n", cfg.Speech.WhisperURL, err)
	} else {
		fmt.Printf("Whisper  %s  OK\n", cfg.Speech.WhisperURL)
	}
}

// probe issues a GET against the server root; any HTTP response counts as
// alive.
func probe(ctx context.Context, baseURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/", nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}
