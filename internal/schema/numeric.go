package schema

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	floatPrefix   = regexp.MustCompile(`^[+-]?(?:Infinity|(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?)`)
	decimalNumber = regexp.MustCompile(`^[+-]?(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?$`)
)

// ParseFloatPrefix parses the longest numeric prefix of v after leading
// whitespace. Trailing garbage is ignored; NaN is returned when no prefix
// parses.
func ParseFloatPrefix(v string) float64 {
	m := floatPrefix.FindString(strings.TrimLeft(v, " \t\n\r\v\f"))
	if m == "" {
		return math.NaN()
	}
	return parseMatched(m)
}

// IsNumeric reports whether v starts with a finite number.
// "12abc" is numeric, "" and "abc" are not.
func IsNumeric(v string) bool {
	f := ParseFloatPrefix(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// ToNumber converts the whole of v to a number, or NaN when it is not one.
// Surrounding whitespace is ignored and the empty string converts to 0.
// Hexadecimal, octal and binary literals with 0x, 0o and 0b prefixes are accepted.
func ToNumber(v string) float64 {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if decimalNumber.MatchString(v) {
		return parseMatched(v)
	}

	switch v {
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}

	if len(v) > 2 && v[0] == '0' {
		base := 0
		switch v[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		if base != 0 {
			if n, err := strconv.ParseUint(v[2:], base, 64); err == nil {
				return float64(n)
			}
		}
	}
	return math.NaN()
}

func parseMatched(m string) float64 {
	switch strings.TrimLeft(m, "+-") {
	case "Infinity":
		if m[0] == '-' {
			return math.Inf(-1)
		}
		return math.Inf(1)
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			return f
		}
		return math.NaN()
	}
	return f
}
