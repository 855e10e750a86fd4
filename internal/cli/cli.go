// Copyright (c) 2025 Masaki Kondo
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - command line parsing and non-TUI command handlers.
package cli

import (
	"fmt"
	"os"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.2.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdAsk
	CmdStatus
	CmdConfig
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Model      string
	ConfigPath string
	Mode       string

	// Command-specific
	Query      string
	Subcommand string

	// Raw args remaining after flag parsing.
	Raw []string
}

const usageText = `mindchat - ローカルLLMによるカウンセリングチャット

Mind-Chat runs entirely against local model servers: Ollama for replies
and an optional whisper.cpp server for voice input. Conversations never
leave the machine.

Usage:
  mindchat                     Start the TUI (default)
  mindchat ask "question"      Ask a single question and print the reply
  mindchat status, s           Check the local model servers
  mindchat config [show|init]  Show or create the configuration file
  mindchat version             Print version information
  mindchat help                Show this help

Flags:
  --model NAME      Override the Ollama model
  --mode KEY        Conversation mode (counsel, career, listen)
  --config PATH     Use an explicit config file

Environment:
  MINDCHAT_DATA_DIR      History and config location (default ~/.mindchat)
  MINDCHAT_OLLAMA_URL    Ollama address (default http://127.0.0.1:11434)
  MINDCHAT_MODEL         Ollama model (default gemma2:2b)
  MINDCHAT_WHISPER_URL   whisper.cpp server address (default http://127.0.0.1:8178)
  MINDCHAT_SPEECH        "0" disables voice input
`

// Parse reads os.Args and returns the command to run with its arguments.
func Parse() (Command, Args) {
	args := Args{}
	rest := os.Args[1:]

	// Pull out global flags first, wherever they appear.
	var positional []string
	for i := 0; i < len(rest); i++ {
		arg := rest[i]
		switch {
		case arg == "--model" && i+1 < len(rest):
			i++
			args.Model = rest[i]
		case arg == "--mode" && i+1 < len(rest):
			i++
			args.Mode = rest[i]
		case arg == "--config" && i+1 < len(rest):
			i++
			args.ConfigPath = rest[i]
		case arg == "--help" || arg == "-h":
			return CmdHelp, args
		case arg == "--version" || arg == "-v":
			return CmdVersion, args
		default:
			positional = append(positional, arg)
		}
	}

	if len(positional) == 0 {
		return CmdTUI, args
	}

	cmd := positional[0]
	args.Raw = positional[1:]

	switch cmd {
	case "ask":
		args.Query = strings.Join(args.Raw, " ")
		return CmdAsk, args
	case "status", "s":
		return CmdStatus, args
	case "config":
		if len(args.Raw) > 0 {
			args.Subcommand = args.Raw[0]
		}
		return CmdConfig, args
	case "version":
		return CmdVersion, args
	case "help":
		return CmdHelp, args
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		return CmdHelp, args
	}
}

// HandleHelp prints usage.
func HandleHelp() {
	fmt.Print(usageText)
}

// HandleVersion prints version information.
func HandleVersion() {
	fmt.Printf("mindchat %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
}
