// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package qgraph

import "strings"

// Direction is the way a stored edge is walked.
type Direction int

const (
	Forward Direction = iota // subject to object
	Reverse                  // object to subject
)

func (d Direction) String() string {
	if d == Reverse {
		return "reverse"
	}
	return "forward"
}

// WrapForward encodes predicate p walked from subject to object as "-p->".
func WrapForward(p string) string {
	return "-" + p + "->"
}

// WrapReverse encodes predicate p walked from object to subject as "<-p-".
func WrapReverse(p string) string {
	return "<-" + p + "-"
}

// Wrap encodes p for direction d.
func Wrap(p string, d Direction) string {
	if d == Reverse {
		return WrapReverse(p)
	}
	return WrapForward(p)
}

// Unwrap decodes a directed predicate. ok is false when s is in neither form.
func Unwrap(s string) (p string, d Direction, ok bool) {
	switch {
	case strings.HasPrefix(s, "<-") && strings.HasSuffix(s, "-") && len(s) > 3:
		return s[2 : len(s)-1], Reverse, true
	case strings.HasPrefix(s, "-") && strings.HasSuffix(s, "->") && len(s) > 3:
		return s[1 : len(s)-2], Forward, true
	}
	return "", Forward, false
}
