// Copyright (c) 2025 Masaki Kondo
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"

	"github.com/mkondo/mindchat-tui/internal/config"
)

// HandleConfig shows or initializes the configuration file.
func HandleConfig(args Args) {
	switch args.Subcommand {
	case "", "show":
		configShow(args)
	case "init":
		configInit()
	default:
		fmt.Fprintf(os.Stderr, "usage: mindchat config [show|init]\n")
		os.Exit(1)
	}
}

func configShow(args Args) {
	cfg, err := loadConfig(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "設定の読み込みに失敗しました: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("data_dir     = %s\n", cfg.DataDir)
	fmt.Printf("ollama_url   = %s\n", cfg.LLM.OllamaURL)
	fmt.Printf("model        = %s\n", cfg.LLM.Model)
	fmt.Printf("whisper_url  = %s\n", cfg.Speech.WhisperURL)
	fmt.Printf("speech       = %v\n", cfg.Speech.Enabled)
	fmt.Printf("history      = %d conversations / %d favorites\n",
		cfg.History.MaxConversations, cfg.History.MaxFavorites)
	fmt.Println("modes:")
	for _, m := range cfg.Modes {
		fmt.Printf("  %-8s %s\n", m.Key, m.Title)
	}
}

func configInit() {
	path, err := config.ConfigPathTOML()
	if err != nil {
		fmt.Fprintf(os.Stderr, "設定ディレクトリを決定できません: %v\n", err)
		os.Exit(1)
	}
	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(os.Stderr, "設定ファイルは既に存在します: %s\n", path)
		os.Exit(1)
	}

	cfg := config.Default()
	cfg.SetDefaults()
	if err := config.SaveTOML(cfg, path); err != nil {
		fmt.Fprintf(os.Stderr, "設定ファイルを作成できません: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("設定ファイルを作成しました: %s\n", path)
}
