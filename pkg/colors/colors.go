// Copyright (C) 2025, Gridmine Labs. All rights reserved.
// See the file LICENSE for licensing terms.

// Package colors canonicalizes the caller-supplied slot uri into a color
// code. Slot uris are stored verbatim at claim time and only normalized on
// the read side, so malformed metadata can never block a claim.
package colors

import (
	"regexp"
	"strings"
)

// Default is returned for any uri that does not contain a hex color.
const Default = "#000000"

var hexColor = regexp.MustCompile(`^[0-9a-fA-F]{6}$`)

// Normalize maps an arbitrary uri string to a canonical "#rrggbb" color.
// It is pure and idempotent: Normalize(Normalize(s)) == Normalize(s).
func Normalize(uri string) string {
	s := strings.TrimSpace(uri)
	if s == "" {
		return Default
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s = s[2:]
	}
	s = strings.TrimPrefix(s, "#")
	if !hexColor.MatchString(s) {
		return Default
	}
	return "#" + strings.ToLower(s)
}
