// Package sfm rewrites the simple flight model tables of an aircraft
// definition file in place.
//
// The file is Lua source, but it is never parsed and re-serialised: edits
// are narrow text substitutions anchored on key tokens and numeric row
// tuples, so every byte outside the targeted values survives unchanged.
package sfm

import (
	"regexp"
	"strings"
)

// document is a source text plus a mask telling which bytes are code.
// Bytes inside comments and string literals are not code, so a brace or
// key token there never anchors an edit.
type document struct {
	src  string
	code []bool
}

type span struct {
	start, end int // [start, end)
}

func (s span) text(src string) string { return src[s.start:s.end] }

func newDocument(src string) *document {
	d := &document{src: src, code: make([]bool, len(src))}
	for i := 0; i < len(src); {
		j := skipNonCode(src, i)
		if j == i {
			d.code[i] = true
			i++
			continue
		}
		i = j
	}
	return d
}

// skipNonCode returns the index just past a comment or string literal
// starting at i, or i itself when src[i] starts neither.
func skipNonCode(src string, i int) int {
	switch {
	case strings.HasPrefix(src[i:], "--"):
		if end, ok := longBracketEnd(src, i+2); ok {
			return end
		}
		if nl := strings.IndexByte(src[i:], '\n'); nl >= 0 {
			return i + nl
		}
		return len(src)
	case src[i] == '\'' || src[i] == '"':
		q := src[i]
		for j := i + 1; j < len(src); j++ {
			switch src[j] {
			case '\\':
				j++
			case q:
				return j + 1
			case '\n':
				return j
			}
		}
		return len(src)
	case src[i] == '[':
		if end, ok := longBracketEnd(src, i); ok {
			return end
		}
	}
	return i
}

// longBracketEnd matches a Lua long bracket ([[ ]] or [==[ ]==]) opening
// at i and returns the index just past its close.
func longBracketEnd(src string, i int) (int, bool) {
	if i >= len(src) || src[i] != '[' {
		return 0, false
	}
	j := i + 1
	for j < len(src) && src[j] == '=' {
		j++
	}
	if j >= len(src) || src[j] != '[' {
		return 0, false
	}
	closer := "]" + strings.Repeat("=", j-i-1) + "]"
	if k := strings.Index(src[j+1:], closer); k >= 0 {
		return j + 1 + k + len(closer), true
	}
	return len(src), true
}

// blockEnd returns the index just past the '}' matching the '{' at open.
func (d *document) blockEnd(open int) (int, bool) {
	depth := 0
	for i := open; i < len(d.src); i++ {
		if !d.code[i] {
			continue
		}
		switch d.src[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1, true
			}
		}
	}
	return 0, false
}

// children returns the direct child brace groups of the block b.
func (d *document) children(b span) []span {
	var out []span
	for i := b.start + 1; i < b.end-1; i++ {
		if !d.code[i] || d.src[i] != '{' {
			continue
		}
		end, ok := d.blockEnd(i)
		if !ok || end > b.end {
			break
		}
		out = append(out, span{i, end})
		i = end - 1
	}
	return out
}

// matches returns every match of re inside within whose first byte is code.
func (d *document) matches(re *regexp.Regexp, within span) [][]int {
	var out [][]int
	for _, m := range re.FindAllStringSubmatchIndex(d.src[within.start:within.end], -1) {
		if !d.code[within.start+m[0]] {
			continue
		}
		for k := range m {
			if m[k] >= 0 {
				m[k] += within.start
			}
		}
		out = append(out, m)
	}
	return out
}

// block locates `key = {` inside within and returns the whole brace group.
// Comments may sit between the '=' and the '{'. count is the number of
// keys found that open a table.
func (d *document) block(key string, within span) (b span, count int) {
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(key) + `\s*=`)
	for _, m := range d.matches(re, within) {
		open := d.nextCode(m[1], within.end)
		if open < 0 || d.src[open] != '{' {
			continue
		}
		end, ok := d.blockEnd(open)
		if !ok {
			continue
		}
		if count == 0 {
			b = span{open, end}
		}
		count++
	}
	return b, count
}

// nextCode returns the index of the first non-space code byte in [from, to).
func (d *document) nextCode(from, to int) int {
	for i := from; i < to; i++ {
		if !d.code[i] {
			continue
		}
		switch d.src[i] {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return i
	}
	return -1
}

func (d *document) all() span { return span{0, len(d.src)} }
