// Copyright (c) 2025 Masaki Kondo
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import "strings"

// Truncate shortens s to at most maxLen runes, appending "..." when it
// actually truncates. Rune-based so multi-byte text (the app is primarily
// Japanese) never gets cut mid-character.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// CollapseLine flattens newlines so a preview renders on a single row.
func CollapseLine(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	return strings.ReplaceAll(s, "\n", " ")
}
