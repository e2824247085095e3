// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package prompt

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Library heuristic thresholds.
const (
	// libraryMinLines is exclusive: a library needs more non-blank lines than this.
	libraryMinLines = 10
	// libraryLargeText is exclusive, in characters.
	libraryLargeText = 500
	// HintMinLength is the input length (characters) above which the UI hints
	// that a library was detected.
	HintMinLength = 100
)

var bookPattern = regexp.MustCompile(`(?i)by\s+[A-Z]|author|title|book`)

// DetectLibrary reports whether text looks like a pasted Kindle library:
// more than 10 non-blank lines and either a book-like keyword or more than
// 500 characters. Text is NFC-normalized first so that decomposed accents
// count as one character.
func DetectLibrary(text string) bool {
	text = norm.NFC.String(text)

	lines := 0
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			lines++
		}
	}
	if lines <= libraryMinLines {
		return false
	}
	return bookPattern.MatchString(text) || utf8.RuneCountInString(text) > libraryLargeText
}

// ShouldShowHint reports whether the "library detected" hint applies to the
// current, unsent input.
func ShouldShowHint(input string) bool {
	return utf8.RuneCountInString(norm.NFC.String(input)) > HintMinLength && DetectLibrary(input)
}

// Recommendation wraps a library paste in the recommendation request.
func Recommendation(library string) string {
	return "Analyze my Kindle library and provide book recommendations. Be concise.\n\n" +
		"My Kindle library:\n" + library + "\n\n" +
		"Provide:\n" +
		"1. Brief reading preferences summary (genres/themes)\n" +
		"2. 5-8 book recommendations (title, author, brief reason)\n\n" +
		"Keep it brief and direct."
}

// Outgoing returns the message to send for a submitted input: the
// recommendation request for a library paste, otherwise the input itself.
func Outgoing(input string) string {
	if DetectLibrary(input) {
		return Recommendation(input)
	}
	return input
}
