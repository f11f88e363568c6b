// Package typenorm canonicalizes declared structural type strings so
// that cosmetically different spellings of one shape compare equal.
// Only cosmetic differences are normalized: whitespace, trailing
// separators, separator choice, equivalent container spellings and the
// casing of primitive names. Field order and field names are semantic
// and left untouched.
package typenorm

import "strings"

// primitives whose casing is not significant.
var primitives = map[string]string{
	"string":  "string",
	"number":  "number",
	"boolean": "boolean",
	"bool":    "boolean",
	"int":     "int",
	"integer": "int",
	"float":   "float",
	"object":  "object",
	"any":     "any",
	"null":    "null",
}

// Normalize returns the canonical spelling of a declared type string.
// Two type strings describe the same shape iff their normalized forms
// are equal.
//
// Applied rewrites, in order:
//  1. all whitespace removed
//  2. ";" separators rewritten to ","
//  3. "Array<T>" and "List<T>" rewritten to "T[]"
//  4. trailing separators before a closing brace/bracket dropped
//  5. primitive names lowercased ("String" -> "string")
func Normalize(t string) string {
	s := stripSpace(t)
	s = strings.ReplaceAll(s, ";", ",")
	s = rewriteContainers(s)
	s = dropTrailingSeparators(s)
	s = canonicalizeTokens(s)
	return s
}

// Equal reports whether two declared type strings describe the same
// shape after normalization.
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b)
}

func stripSpace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r':
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// rewriteContainers turns Array<T> and List<T> into T[], innermost
// first so nested containers resolve correctly.
func rewriteContainers(s string) string {
	for {
		idx := containerStart(s)
		if idx < 0 {
			return s
		}
		open := strings.Index(s[idx:], "<") + idx
		close := matchAngle(s, open)
		if close < 0 {
			// Unbalanced; leave as-is rather than guessing.
			return s
		}
		inner := rewriteContainers(s[open+1 : close])
		s = s[:idx] + inner + "[]" + s[close+1:]
	}
}

// containerStart returns the index of the first Array< or List< keyword
// at a token boundary, or -1.
func containerStart(s string) int {
	for _, kw := range []string{"Array<", "List<", "array<", "list<"} {
		for from := 0; ; {
			i := strings.Index(s[from:], kw)
			if i < 0 {
				break
			}
			i += from
			if i == 0 || !isIdentChar(rune(s[i-1])) {
				return i
			}
			from = i + 1
		}
	}
	return -1
}

// matchAngle returns the index of the '>' matching the '<' at open.
func matchAngle(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '<':
			depth++
		case '>':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func dropTrailingSeparators(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == ',' && i+1 < len(s) && (s[i+1] == '}' || s[i+1] == ']' || s[i+1] == '>') {
			continue
		}
		b.WriteByte(s[i])
	}
	out := b.String()
	return strings.TrimSuffix(out, ",")
}

// canonicalizeTokens lowercases identifiers that name primitives.
func canonicalizeTokens(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		if !isIdentChar(rune(s[i])) {
			b.WriteByte(s[i])
			i++
			continue
		}
		j := i
		for j < len(s) && isIdentChar(rune(s[j])) {
			j++
		}
		tok := s[i:j]
		if canon, ok := primitives[strings.ToLower(tok)]; ok {
			// A token followed by ':' is a field name, not a type.
			if j < len(s) && s[j] == ':' {
				b.WriteString(tok)
			} else {
				b.WriteString(canon)
			}
		} else {
			b.WriteString(tok)
		}
		i = j
	}
	return b.String()
}

func isIdentChar(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
