package asm

import "strings"

// Tokenize splits a single source line into its whitespace/`,`/`(`/`)`
// separated tokens. Labels must already have been stripped by the
// caller. An empty or whitespace-only line yields a nil slice.
func Tokenize(line string) []string {
	line = strings.Map(func(r rune) rune {
		switch r {
		case ',', '(', ')':
			return ' '
		default:
			return r
		}
	}, line)
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	return fields
}

// SplitLabel splits a leading `label:` prefix off line, if present. It
// returns the trimmed label name (or "" if none), whether a label was
// present, and the remainder of the line (trimmed).
func SplitLabel(line string) (label string, hasLabel bool, rest string) {
	before, after, found := strings.Cut(line, ":")
	if !found {
		return "", false, line
	}
	return strings.TrimSpace(before), true, strings.TrimSpace(after)
}
