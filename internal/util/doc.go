// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by bookbot packages.
//
// # Key Functions
//
//   - TruncateRunes: UTF-8 safe truncation with ellipsis, used in log lines
//   - TruncateWidth: display-width truncation for terminal rendering
//   - WriteFileAtomic: crash-safe writes for the config file
//   - Fingerprint: short SHA-256 fingerprint for secrets that must not be logged
package util
