// Package natsort orders relative paths the way humans number episodes:
// a path segment that starts with a number sorts by its numeric value
// before falling back to plain string comparison. "2 - foo" sorts before
// "10 - foo", and "1/9 pilot" before "1/10 finale".
package natsort

import (
	"path"
	"strconv"
	"strings"
)

// segKey is the sort key for a single path segment.
type segKey struct {
	num  float64
	rest string
}

// keySegment splits a segment into its optional leading number and the
// remaining text. A sign and a decimal fraction are part of the number.
func keySegment(s string) segKey {
	trimmed := strings.TrimLeft(s, " \t")
	i := 0
	if i < len(trimmed) && (trimmed[i] == '+' || trimmed[i] == '-') {
		i++
	}
	start := i
	for i < len(trimmed) && trimmed[i] >= '0' && trimmed[i] <= '9' {
		i++
	}
	if i == start {
		// no digits at all
		return segKey{num: 0, rest: s}
	}
	if i < len(trimmed) && trimmed[i] == '.' {
		j := i + 1
		for j < len(trimmed) && trimmed[j] >= '0' && trimmed[j] <= '9' {
			j++
		}
		if j > i+1 {
			i = j
		}
	}
	num, err := strconv.ParseFloat(trimmed[:i], 64)
	if err != nil {
		return segKey{num: 0, rest: s}
	}
	return segKey{num: num, rest: strings.TrimLeft(trimmed[i:], " \t")}
}

func compareSegment(a, b string) int {
	ka, kb := keySegment(a), keySegment(b)
	switch {
	case ka.num < kb.num:
		return -1
	case ka.num > kb.num:
		return 1
	}
	return strings.Compare(ka.rest, kb.rest)
}

// Compare orders two slash-separated relative paths segment by segment.
func Compare(a, b string) int {
	as := strings.Split(path.Clean(a), "/")
	bs := strings.Split(path.Clean(b), "/")
	for i := 0; i < len(as) && i < len(bs); i++ {
		if c := compareSegment(as[i], bs[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(as) < len(bs):
		return -1
	case len(as) > len(bs):
		return 1
	}
	return 0
}

// Less reports whether a orders before b. Suitable for sort.Slice.
func Less(a, b string) bool {
	return Compare(a, b) < 0
}
