package schema

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsNumeric(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"42", true},
		{"", false},
		{"abc", false},
		{"12abc", true},
		{"-3.5", true},
		{" 7", true},
		{".5", true},
		{"1e3", true},
		{"1e", true},
		{"+", false},
		{".", false},
		{"Infinity", false},
		{"-Infinity", false},
		{"NaN", false},
		{"0x10", true},
		{"red", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsNumeric(tt.input))
		})
	}
}

func TestParseFloatPrefix(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"42", 42},
		{"12abc", 12},
		{"  -1.5e2xyz", -150},
		{"1e", 1},
		{"0x10", 0},
		{"Infinity", math.Inf(1)},
		{"-Infinityx", math.Inf(-1)},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseFloatPrefix(tt.input))
		})
	}

	assert.True(t, math.IsNaN(ParseFloatPrefix("")))
	assert.True(t, math.IsNaN(ParseFloatPrefix("abc")))
}

func TestToNumber(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"42", 42},
		{" 2.5 ", 2.5},
		{"", 0},
		{"  ", 0},
		{"-1e2", -100},
		{"5.", 5},
		{"0x1F", 31},
		{"0b101", 5},
		{"0o17", 15},
		{"+Infinity", math.Inf(1)},
		{"1e999", math.Inf(1)},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ToNumber(tt.input))
		})
	}

	for _, v := range []string{"12abc", "abc", "1,5", "0x", "0xZZ", "--1"} {
		assert.True(t, math.IsNaN(ToNumber(v)), "ToNumber(%q) should be NaN", v)
	}
}
