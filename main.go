// Mind-Chat - a local counseling chat TUI backed by Ollama.
//
// Copyright (c) 2025 Masaki Kondo
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"os"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mkondo/mindchat-tui/internal/cli"
	"github.com/mkondo/mindchat-tui/internal/config"
	"github.com/mkondo/mindchat-tui/internal/llm"
	"github.com/mkondo/mindchat-tui/internal/session"
	"github.com/mkondo/mindchat-tui/internal/speech"
	"github.com/mkondo/mindchat-tui/internal/ui/chat"
)

// Version information (set at build time)
var (
	Version   = "0.2.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Global program reference so the dispatcher can send from any goroutine.
var (
	programRef *tea.Program
	programMu  sync.Mutex
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	switch cmd {
	case cli.CmdTUI:
		runTUI(args)
	case cli.CmdAsk:
		cli.HandleAsk(args)
	case cli.CmdStatus:
		cli.HandleStatus(args)
	case cli.CmdConfig:
		cli.HandleConfig(args)
	case cli.CmdVersion:
		cli.HandleVersion()
	case cli.CmdHelp:
		cli.HandleHelp()
	}
}

// runTUI wires the controller to the bubbletea program and blocks until
// the user quits.
func runTUI(args cli.Args) {
	cfg, err := loadConfig(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "設定の読み込みに失敗しました: %v\n", err)
		os.Exit(1)
	}
	if args.Model != "" {
		cfg.LLM.Model = args.Model
	}

	// Messages queued before the program exists are forwarded once Run
	// starts; tea.Program.Send is safe from any goroutine.
	dispatcher := chat.NewDispatcher(func(msg tea.Msg) {
		programMu.Lock()
		p := programRef
		programMu.Unlock()
		if p != nil {
			p.Send(msg)
		}
	})

	deps := session.Deps{
		Generator: llm.NewClient(llm.ClientConfig{
			BaseURL: cfg.LLM.OllamaURL,
			Model:   cfg.LLM.Model,
			Timeout: time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
			Options: llm.Options{
				Temperature: cfg.LLM.Temperature,
				TopP:        cfg.LLM.TopP,
				NumPredict:  cfg.LLM.MaxResponseTokens,
				NumCtx:      cfg.LLM.MaxContextTokens,
			},
		}),
		Notifier:      dispatcher,
		NotifyOutcome: dispatcher.NotifyOutcome,
	}

	if cfg.Speech.Enabled {
		deps.Transcriber = speech.NewClient(speech.ClientConfig{
			BaseURL:  cfg.Speech.WhisperURL,
			Language: cfg.Speech.Language,
			Timeout:  time.Duration(cfg.Speech.TimeoutSeconds) * time.Second,
		})
		deps.Recorder = speech.NewBufferRecorder(cfg.Speech.SampleRate)
	}

	ctrl, err := session.NewController(cfg, deps)
	if err != nil {
		fmt.Fprintf(os.Stderr, "起動に失敗しました: %v\n", err)
		os.Exit(1)
	}

	// Bootstrap before the event loop exists: the controller is single-writer
	// and must never be mutated concurrently with key handling. The chat
	// model snapshots this state for its first frame; notifications emitted
	// here are dropped (programRef is still nil), which is fine.
	ctrl.Bootstrap()

	p := tea.NewProgram(chat.New(ctrl), tea.WithAltScreen())
	programMu.Lock()
	programRef = p
	programMu.Unlock()

	// Re-apply presentation edits made while the app is running.
	watcher := startConfigWatcher(args, func(updated *config.Config) {
		dispatcher.ConfigReloaded(updated)
	})
	if watcher != nil {
		defer watcher.Close()
	}

	_, runErr := p.Run()

	// Stop background work and flush history before reporting any error.
	ctrl.Shutdown()

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "エラーが発生しました: %v\n", runErr)
		os.Exit(1)
	}
}

// loadConfig loads configuration honoring the --config flag.
func loadConfig(args cli.Args) (*config.Config, error) {
	if args.ConfigPath != "" {
		return config.LoadFromPath(args.ConfigPath)
	}
	return config.Load()
}

// startConfigWatcher watches the effective config file, if one exists on
// disk. Returns nil when running on pure defaults.
func startConfigWatcher(args cli.Args, onReload func(*config.Config)) *config.Watcher {
	path := args.ConfigPath
	if path == "" {
		p, err := config.ConfigPathTOML()
		if err != nil {
			return nil
		}
		path = p
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}

	w, err := config.NewWatcher(path, 500*time.Millisecond, onReload)
	if err != nil {
		return nil
	}
	if err := w.Watch(); err != nil {
		w.Close()
		return nil
	}
	return w
}
