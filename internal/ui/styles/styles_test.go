// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"testing"

	"github.com/muesli/termenv"
)

func TestColorsDefined(t *testing.T) {
	colors := map[string]struct{ light, dark string }{
		"Purple": {Purple.Light, Purple.Dark},
		"Cyan":   {Cyan.Light, Cyan.Dark},
		"Rose":   {Rose.Light, Rose.Dark},
		"Amber":  {Amber.Light, Amber.Dark},
	}
	for name, c := range colors {
		if !strings.HasPrefix(c.light, "#") || !strings.HasPrefix(c.dark, "#") {
			t.Errorf("%s should have hex light and dark values, got %q/%q", name, c.light, c.dark)
		}
	}
}

func TestRenderHelpersIncludeSymbols(t *testing.T) {
	tests := []struct {
		name   string
		render func(string) string
		symbol string
	}{
		{"success", RenderSuccess, StatusIndicators.Success},
		{"error", RenderError, StatusIndicators.Error},
		{"warning", RenderWarning, StatusIndicators.Warning},
		{"info", RenderInfo, StatusIndicators.Info},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := tt.render("hello")
			if !strings.Contains(out, tt.symbol) || !strings.Contains(out, "hello") {
				t.Errorf("render(%q) = %q, want symbol %q and text", "hello", out, tt.symbol)
			}
		})
	}
}

func TestThemeWidths(t *testing.T) {
	theme := NewThemeWithProfile(termenv.Ascii, true)
	if theme.HasTrueColor {
		t.Error("ascii profile should not report true color")
	}

	theme.SetSize(100, 30)
	if got := theme.ContentWidth(); got != 96 {
		t.Errorf("ContentWidth() = %d, want 96", got)
	}
	if got := theme.BubbleWidth(); got != 72 {
		t.Errorf("BubbleWidth() = %d, want 72", got)
	}

	theme.SetSize(10, 5)
	if got := theme.ContentWidth(); got != 20 {
		t.Errorf("ContentWidth() narrow = %d, want 20", got)
	}
	if got := theme.BubbleWidth(); got != 20 {
		t.Errorf("BubbleWidth() narrow = %d, want 20", got)
	}
}
