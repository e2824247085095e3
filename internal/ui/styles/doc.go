// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the bookbot TUI.

All colors use Lip Gloss AdaptiveColor for automatic light/dark terminal
detection.

# Color System (colors.go)

  - Cyan - User turns and the input prompt
  - Purple - Assistant name and the brand title
  - Amber - The library hint
  - Rose - The error banner
  - Emerald - Healthy status

# Theme (theme.go)

Theme bundles the styles for the header, turns, banners, input area and
footer. NewTheme detects the terminal's color profile with termenv;
NewThemeWithProfile fixes it, which keeps rendering deterministic in tests.
*/
package styles
