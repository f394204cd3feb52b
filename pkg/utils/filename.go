package utils

import (
	"path/filepath"
	"strconv"
	"strings"
	"unicode"
)

const maxBaseNameLen = 64

// SanitizeFileName turns a source file name into a lowercase, URL-safe stem.
// The extension is dropped; runs of anything outside [a-z0-9_-] collapse into
// a single hyphen.
func SanitizeFileName(name string) string {
	stem := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))

	var b strings.Builder
	lastHyphen := false
	for _, r := range strings.ToLower(stem) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)), r == '_':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen && b.Len() > 0 {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}

	out := strings.Trim(b.String(), "-")
	if len(out) > maxBaseNameLen {
		out = strings.TrimRight(out[:maxBaseNameLen], "-")
	}
	if out == "" {
		out = "image"
	}
	return out
}

// UniqueBaseNames sanitizes every name and appends -2, -3, ... to later
// duplicates so that no two entries share a base name. Each suffix in
// derived names a sibling file written next to the base (for example
// "_thumb"); those derived names are kept unique too. The result depends only
// on the input order.
func UniqueBaseNames(names []string, derived ...string) []string {
	out := make([]string, len(names))
	used := make(map[string]bool, len(names)*(len(derived)+1))
	taken := func(candidate string) bool {
		if used[candidate] {
			return true
		}
		for _, suffix := range derived {
			if used[candidate+suffix] {
				return true
			}
		}
		return false
	}

	for i, name := range names {
		base := SanitizeFileName(name)
		candidate := base
		for n := 2; taken(candidate); n++ {
			candidate = base + "-" + strconv.Itoa(n)
		}
		used[candidate] = true
		for _, suffix := range derived {
			used[candidate+suffix] = true
		}
		out[i] = candidate
	}
	return out
}
