// Copyright (c) 2025 Masaki Kondo
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mkondo/mindchat-tui/internal/config"
	"github.com/mkondo/mindchat-tui/internal/llm"
	"github.com/mkondo/mindchat-tui/internal/model"
)

// HandleAsk answers a single question on stdout, without the TUI and
// without touching conversation history.
func HandleAsk(args Args) {
	if strings.TrimSpace(args.Query) == "" {
		fmt.Fprintln(os.Stderr, "usage: mindchat ask \"question\"")
		os.Exit(1)
	}

	cfg, err := loadConfig(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "設定の読み込みに失敗しました: %v\n", err)
		os.Exit(1)
	}

	modeKey := args.Mode
	if modeKey == "" {
		modeKey = cfg.Modes[0].Key
	}
	mode, ok := cfg.Mode(modeKey)
	if !ok {
		fmt.Fprintf(os.Stderr, "不明なモードです: %s\n", modeKey)
		os.Exit(1)
	}

	client := newLLMClient(cfg, args)

	ctx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.LLM.TimeoutSeconds)*time.Second)
	defer cancel()

	reply, err := client.GenerateReply(ctx,
		[]model.Message{model.NewUserMessage(args.Query)}, mode.SystemPrompt)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	fmt.Println(reply)
}

// loadConfig loads the effective configuration for CLI commands.
func loadConfig(args Args) (*config.Config, error) {
	if args.ConfigPath != "" {
		return config.LoadFromPath(args.ConfigPath)
	}
	return config.Load()
}

// newLLMClient builds the Ollama client from config plus CLI overrides.
func newLLMClient(cfg *config.Config, args Args) *llm.Client {
	clientCfg := llm.ClientConfig{
		BaseURL: cfg.LLM.OllamaURL,
		Model:   cfg.LLM.Model,
		Timeout: time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
		Options: llm.Options{
			Temperature: cfg.LLM.Temperature,
			TopP:        cfg.LLM.TopP,
			NumPredict:  cfg.LLM.MaxResponseTokens,
			NumCtx:      cfg.LLM.MaxContextTokens,
		},
	}
	if args.Model != "" {
		clientCfg.Model = args.Model
	}
	return llm.NewClient(clientCfg)
}
