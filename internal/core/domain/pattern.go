package domain

import "strings"

// Pattern matches entry ids segment by segment. A "*" inside a segment
// matches any run of characters within that segment only.
type Pattern struct {
	raw      string
	segments []string
}

// NewPattern compiles a pattern such as "serverGroups:acct1:*:*".
func NewPattern(raw string) Pattern {
	return Pattern{raw: raw, segments: strings.Split(raw, KeySeparator)}
}

// String returns the raw pattern.
func (p Pattern) String() string { return p.raw }

// Match reports whether id matches the pattern.
func (p Pattern) Match(id string) bool {
	parts := strings.Split(id, KeySeparator)
	if len(parts) != len(p.segments) {
		return false
	}
	for i, seg := range p.segments {
		if seg == "*" {
			continue
		}
		if !matchSegment(seg, parts[i]) {
			return false
		}
	}
	return true
}

// Prefix returns the literal prefix before the first wildcard.
func (p Pattern) Prefix() string {
	if i := strings.IndexByte(p.raw, '*'); i >= 0 {
		return p.raw[:i]
	}
	return p.raw
}

// matchSegment matches s against a pattern whose only wildcard is "*".
func matchSegment(pattern, s string) bool {
	star, mark := -1, 0
	p, i := 0, 0
	for i < len(s) {
		switch {
		case p < len(pattern) && pattern[p] == '*':
			star, mark = p, i
			p++
		case p < len(pattern) && pattern[p] == s[i]:
			p++
			i++
		case star >= 0:
			p = star + 1
			mark++
			i = mark
		default:
			return false
		}
	}
	for p < len(pattern) && pattern[p] == '*' {
		p++
	}
	return p == len(pattern)
}
