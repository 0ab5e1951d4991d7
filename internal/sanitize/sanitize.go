// Package sanitize blanks out the parts of C source text that the grammar
// parser does not handle: comments, preprocessor directives and GNU
// attributes.
//
// Every scanner replaces removed characters with spaces and never removes a
// newline, so line numbers in the output match the input.
package sanitize

import "strings"

// Source runs all scanners in the required order.
func Source(src string) string {
	return Attributes(Preprocessor(Comments(src)))
}

// Comment scanner states.
const (
	stNormal = iota
	stLineComment
	stBlockComment
	stString
	stEscape
	stChar
)

// Comments returns src with // and /* */ comment bodies replaced by spaces.
// String and character literals are copied untouched even when they contain
// comment delimiters.
func Comments(src string) string {
	in := []rune(src)
	out := make([]rune, len(in))
	state := stNormal
	// literal state to return to after an escape
	quoted := stString

	for i := 0; i < len(in); i++ {
		c := in[i]
		out[i] = c

		switch state {
		case stNormal:
			if c == '/' && i+1 < len(in) {
				switch in[i+1] {
				case '/':
					state = stLineComment
					out[i] = ' '
				case '*':
					state = stBlockComment
					out[i] = ' '
					i++
					out[i] = ' '
				}
			} else if c == '"' {
				state = stString
			} else if c == '\'' {
				state = stChar
			}

		case stLineComment:
			if c == '\n' {
				state = stNormal
			} else {
				out[i] = ' '
			}

		case stBlockComment:
			if c == '*' && i+1 < len(in) && in[i+1] == '/' {
				out[i] = ' '
				i++
				out[i] = ' '
				state = stNormal
			} else if c != '\n' {
				out[i] = ' '
			}

		case stString, stChar:
			if c == '\\' {
				quoted = state
				state = stEscape
			} else if (state == stString && c == '"') || (state == stChar && c == '\'') {
				state = stNormal
			}

		case stEscape:
			state = quoted
		}
	}

	return string(out)
}

// Preprocessor scanner states.
const (
	ppLineStart = iota
	ppNormal
	ppDirective
)

// Preprocessor blanks every line whose first non-blank character is '#'.
// A backslash at the end of a directive line continues the directive onto
// the next line. Run it after Comments.
func Preprocessor(src string) string {
	var sb strings.Builder
	sb.Grow(len(src))
	state := ppLineStart
	var prev rune

	for _, c := range src {
		switch state {
		case ppLineStart:
			switch c {
			case ' ', '\t', '\n', '\r':
				sb.WriteRune(c)
			case '#':
				sb.WriteByte(' ')
				state = ppDirective
			default:
				sb.WriteRune(c)
				state = ppNormal
			}

		case ppNormal:
			sb.WriteRune(c)
			if c == '\n' {
				state = ppLineStart
			}

		case ppDirective:
			if c == '\n' {
				sb.WriteByte('\n')
				if prev != '\\' {
					state = ppLineStart
				}
			} else if c == '\r' {
				sb.WriteRune(c)
			} else {
				sb.WriteByte(' ')
			}
		}
		if c != '\r' {
			prev = c
		}
	}

	return sb.String()
}

// AttributeMarker introduces a GNU attribute specifier.
const AttributeMarker = "__attribute__"

// Attributes blanks every __attribute__((...)) span. If the parentheses after
// a marker do not balance, the remainder of the text is returned as is.
func Attributes(src string) string {
	in := []rune(src)
	marker := []rune(AttributeMarker)
	out := make([]rune, 0, len(in))

	start := 0
	for {
		p := index(in, marker, start)
		if p < 0 {
			return string(append(out, in[start:]...))
		}

		q := p + len(marker)
		for q < len(in) && (in[q] == ' ' || in[q] == '\t' || in[q] == '\n' || in[q] == '\r') {
			q++
		}
		if q >= len(in) || in[q] != '(' {
			// not an attribute specifier, keep the marker text
			out = append(out, in[start:q]...)
			start = q
			continue
		}

		depth := 1
		q++
		for depth > 0 {
			if q >= len(in) {
				return string(append(out, in[start:]...))
			}
			switch in[q] {
			case '(':
				depth++
			case ')':
				depth--
			}
			q++
		}

		out = append(out, in[start:p]...)
		for _, c := range in[p:q] {
			if c == '\n' {
				out = append(out, '\n')
			} else {
				out = append(out, ' ')
			}
		}
		start = q
	}
}

func index(in, sub []rune, from int) int {
	for i := from; i+len(sub) <= len(in); i++ {
		match := true
		for j := range sub {
			if in[i+j] != sub[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
