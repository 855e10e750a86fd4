// Copyright (c) 2025 Masaki Kondo
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"os"
	"testing"
)

func parseArgs(t *testing.T, argv ...string) (Command, Args) {
	t.Helper()
	old := os.Args
	os.Args = append([]string{"mindchat"}, argv...)
	defer func() { os.Args = old }()
	return Parse()
}

func TestParse_DefaultIsTUI(t *testing.T) {
	cmd, _ := parseArgs(t)
	if cmd != CmdTUI {
		t.Errorf("cmd = %v, want CmdTUI", cmd)
	}
}

func TestParse_Ask(t *testing.T) {
	cmd, args := parseArgs(t, "ask", "眠れない", "夜について")
	if cmd != CmdAsk {
		t.Fatalf("cmd = %v", cmd)
	}
	if args.Query != "眠れない 夜について" {
		t.Errorf("query = %q", args.Query)
	}
}

func TestParse_GlobalFlags(t *testing.T) {
	cmd, args := parseArgs(t, "--model", "qwen2.5:7b", "ask", "--mode", "career", "質問")
	if cmd != CmdAsk {
		t.Fatalf("cmd = %v", cmd)
	}
	if args.Model != "qwen2.5:7b" {
		t.Errorf("model = %q", args.Model)
	}
	if args.Mode != "career" {
		t.Errorf("mode = %q", args.Mode)
	}
	if args.Query != "質問" {
		t.Errorf("query = %q", args.Query)
	}
}

func TestParse_StatusAlias(t *testing.T) {
	if cmd, _ := parseArgs(t, "s"); cmd != CmdStatus {
		t.Errorf("cmd = %v, want CmdStatus", cmd)
	}
}

func TestParse_ConfigSubcommand(t *testing.T) {
	cmd, args := parseArgs(t, "config", "init")
	if cmd != CmdConfig || args.Subcommand != "init" {
		t.Errorf("cmd = %v, sub = %q", cmd, args.Subcommand)
	}
}

func TestParse_UnknownFallsBackToHelp(t *testing.T) {
	if cmd, _ := parseArgs(t, "frobnicate"); cmd != CmdHelp {
		t.Errorf("cmd = %v, want CmdHelp", cmd)
	}
}
