// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "testing"

func TestNewTheme(t *testing.T) {
	for _, mode := range []string{"dark", "light", "auto"} {
		theme := NewTheme(mode)
		if theme == nil {
			t.Fatalf("NewTheme(%q) returned nil", mode)
		}
	}
}

func TestThemeForcesBackground(t *testing.T) {
	dark := NewTheme("dark")
	if !dark.IsDark {
		t.Error("dark theme should report a dark background")
	}
	light := NewTheme("light")
	if light.IsDark {
		t.Error("light theme should report a light background")
	}
}

func TestSetSize(t *testing.T) {
	theme := NewTheme("dark")
	theme.SetSize(120, 40)
	if theme.Width != 120 || theme.Height != 40 {
		t.Errorf("unexpected dimensions %dx%d", theme.Width, theme.Height)
	}
}
