package layout

import (
	"fmt"
	"strconv"
)

// Scanner walks the numeric tokens of a manifest line. A token is a maximal
// run of digits, '-' and '.'; everything else separates tokens.
type Scanner struct {
	s   string
	pos int
}

// NewScanner returns a Scanner positioned at the start of s.
func NewScanner(s string) *Scanner {
	return &Scanner{s: s}
}

func isNumByte(c byte) bool {
	return (c >= '0' && c <= '9') || c == '-' || c == '.'
}

// Token returns the next raw token and advances past it.
func (sc *Scanner) Token() (string, bool) {
	for sc.pos < len(sc.s) && !isNumByte(sc.s[sc.pos]) {
		sc.pos++
	}
	if sc.pos >= len(sc.s) {
		return "", false
	}
	start := sc.pos
	for sc.pos < len(sc.s) && isNumByte(sc.s[sc.pos]) {
		sc.pos++
	}
	return sc.s[start:sc.pos], true
}

// Skip discards n tokens. It reports false if the line ran out first.
func (sc *Scanner) Skip(n int) bool {
	for i := 0; i < n; i++ {
		if _, ok := sc.Token(); !ok {
			return false
		}
	}
	return true
}

// Next parses the next token as a number.
func (sc *Scanner) Next() (float32, error) {
	tok, ok := sc.Token()
	if !ok {
		return 0, ErrMissingNumber
	}
	v, err := strconv.ParseFloat(tok, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadNumber, tok)
	}
	return float32(v), nil
}

// Remaining returns the unread part of the line.
func (sc *Scanner) Remaining() string {
	return sc.s[sc.pos:]
}

// Nth returns the number found after skipping skip tokens from the start of s.
func Nth(s string, skip int) (float32, error) {
	sc := NewScanner(s)
	if !sc.Skip(skip) {
		return 0, fmt.Errorf("%w: wanted token %d", ErrMissingNumber, skip)
	}
	v, err := sc.Next()
	if err != nil {
		return 0, fmt.Errorf("token %d: %w", skip, err)
	}
	return v, nil
}
