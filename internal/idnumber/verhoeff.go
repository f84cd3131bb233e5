// Package idnumber validates 12-digit identity numbers.
//
// A number is valid when it has exactly 12 digits and its last digit is the
// Verhoeff check digit of the first 11. Verhoeff works in the dihedral group
// D5 and detects every single-digit substitution and every transposition of
// adjacent digits.
package idnumber

import (
	"errors"
	"fmt"
	"strings"
)

// Length is the number of digits in an identity number.
const Length = 12

// Reason classifies a validation failure.
type Reason string

const (
	ReasonFormat   Reason = "format"
	ReasonChecksum Reason = "checksum"
)

// Sentinels for errors.Is.
var (
	ErrFormat   = errors.New("identity number must be exactly 12 digits")
	ErrChecksum = errors.New("identity number failed checksum verification")
)

// Error describes why a number was rejected. Masked never holds more than
// the last four digits in clear.
type Error struct {
	Reason Reason
	Masked string
}

func (e *Error) Error() string {
	switch e.Reason {
	case ReasonChecksum:
		return fmt.Sprintf("invalid identity number %s: checksum mismatch", e.Masked)
	default:
		return fmt.Sprintf("invalid identity number %s: expected %d digits", e.Masked, Length)
	}
}

// Is matches the sentinel for the error's Reason.
func (e *Error) Is(target error) bool {
	switch e.Reason {
	case ReasonFormat:
		return target == ErrFormat
	case ReasonChecksum:
		return target == ErrChecksum
	}
	return false
}

// d is the multiplication table of D5.
var d = [10][10]uint8{
	{0, 1, 2, 3, 4, 5, 6, 7, 8, 9},
	{1, 2, 3, 4, 0, 6, 7, 8, 9, 5},
	{2, 3, 4, 0, 1, 7, 8, 9, 5, 6},
	{3, 4, 0, 1, 2, 8, 9, 5, 6, 7},
	{4, 0, 1, 2, 3, 9, 5, 6, 7, 8},
	{5, 9, 8, 7, 6, 0, 4, 3, 2, 1},
	{6, 5, 9, 8, 7, 1, 0, 4, 3, 2},
	{7, 6, 5, 9, 8, 2, 1, 0, 4, 3},
	{8, 7, 6, 5, 9, 3, 2, 1, 0, 4},
	{9, 8, 7, 6, 5, 4, 3, 2, 1, 0},
}

// p is the position permutation, applied (i mod 8) times.
var p = [8][10]uint8{
	{0, 1, 2, 3, 4, 5, 6, 7, 8, 9},
	{1, 5, 7, 6, 2, 8, 3, 0, 9, 4},
	{5, 8, 0, 3, 7, 9, 6, 1, 4, 2},
	{8, 9, 1, 6, 0, 4, 3, 5, 2, 7},
	{9, 4, 5, 3, 1, 2, 6, 8, 7, 0},
	{4, 2, 8, 6, 5, 7, 3, 9, 0, 1},
	{2, 7, 9, 3, 8, 0, 6, 4, 1, 5},
	{7, 0, 4, 6, 9, 1, 3, 2, 5, 8},
}

// inv holds the D5 inverse of each element.
var inv = [10]uint8{0, 4, 3, 2, 1, 5, 6, 7, 8, 9}

// checksum folds digits right to left starting at position offset.
// digits must contain only '0'..'9'.
func checksum(digits string, offset int) uint8 {
	var c uint8
	for i := 0; i < len(digits); i++ {
		n := digits[len(digits)-1-i] - '0'
		c = d[c][p[(i+offset)%8][n]]
	}
	return c
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// CheckDigit returns the Verhoeff check digit to append to digits.
func CheckDigit(digits string) (byte, error) {
	if !allDigits(digits) {
		return 0, fmt.Errorf("check digit input %q: not a digit string", digits)
	}
	return '0' + inv[checksum(digits, 1)], nil
}

// Verify reports whether a digit string ends in its correct check digit.
// It does not enforce a length.
func Verify(digits string) bool {
	return allDigits(digits) && checksum(digits, 0) == 0
}

// Clean removes whitespace from a candidate number.
func Clean(number string) string {
	return strings.Join(strings.Fields(number), "")
}

// Validate checks a candidate identity number. Whitespace is ignored; the
// input is never modified. The returned error is an *Error.
func Validate(number string) error {
	n := Clean(number)
	if len(n) != Length || !allDigits(n) {
		return &Error{Reason: ReasonFormat, Masked: Mask(n)}
	}
	if !Verify(n) {
		return &Error{Reason: ReasonChecksum, Masked: Mask(n)}
	}
	return nil
}

// Mask hides all but the last four characters of a cleaned number and
// groups the result like the printed card: "XXXX XXXX 9012". Inputs of
// four characters or fewer are fully masked.
func Mask(number string) string {
	n := Clean(number)
	if len(n) <= 4 {
		return strings.Repeat("X", len(n))
	}

	masked := []byte(strings.Repeat("X", len(n)-4) + n[len(n)-4:])

	var b strings.Builder
	for i, c := range masked {
		if i > 0 && (len(masked)-i)%4 == 0 {
			b.WriteByte(' ')
		}
		b.WriteByte(c)
	}
	return b.String()
}
