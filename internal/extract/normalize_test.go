package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"pipe misread", "|NDIA", "INDIA"},
		{"non-ascii stripped", "JOHN జా KUMAR", "JOHN KUMAR"},
		{"invalid utf8 stripped", "AB\xff\xfeCD", "ABCD"},
		{"space runs collapse", "DOB:   01/02/1990", "DOB: 01/02/1990"},
		{"mixed whitespace run", "Male \n\t Female", "Male Female"},
		{"single newline kept", "RRR JOHN\nDOB", "RRR JOHN\nDOB"},
		{"blank lines collapse", "line one\n\n\nline two", "line one line two"},
		{"trimmed", "  \n 2341 2341 2346 \n", "2341 2341 2346"},
		{"vertical tab run", "A\v\vB", "A B"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		" ",
		"|||",
		"Government of |ndia\n\nRRR  JOHN KUMAR  DOB: 01/02/1990\n  MALE",
		"Address:\t\t12 Lane\r\nS/O Ravi Kerala 682001",
		"  x\v",
		"a\n \nb",
		"\x00\x7f\x80",
	}

	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "Normalize(%q)", in)
	}
}

func TestNonSpaceLen(t *testing.T) {
	assert.Equal(t, 0, NonSpaceLen(" \n\t "))
	assert.Equal(t, 9, NonSpaceLen(" a b c\nd e f g h i "))
	assert.Equal(t, 10, NonSpaceLen("2341234123"))
}
