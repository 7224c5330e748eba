package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// powerOfTen separates mantissa and exponent in "1.23×10-5"
const powerOfTen = "×10"

// unitsPattern captures the first parenthesized group of a header cell
var unitsPattern = regexp.MustCompile(`\(([^()]*)\)`)

// decimalPattern is a plain decimal literal. NaN, Inf and hex floats are rejected.
var decimalPattern = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

// ParseError reports cell text that cannot be read as a number, unit or range
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %q: %s", e.Input, e.Reason)
}

// ParseScalar converts cell text into a float.
// Annotations after the first whitespace ("-74.87 ± 0.34") are dropped and
// "a×10b" is read as a·10^b.
func ParseScalar(text string) (float64, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return 0, &ParseError{Input: text, Reason: "empty value"}
	}
	residue := fields[0]

	mantissa, exponent, scientific := strings.Cut(residue, powerOfTen)
	if !scientific {
		if !decimalPattern.MatchString(residue) {
			return 0, &ParseError{Input: text, Reason: "not a number"}
		}
		v, err := strconv.ParseFloat(residue, 64)
		if err != nil {
			return 0, &ParseError{Input: text, Reason: "not a number"}
		}
		return v, nil
	}

	if !decimalPattern.MatchString(mantissa) || strings.ContainsAny(mantissa, "eE") {
		return 0, &ParseError{Input: text, Reason: "bad mantissa"}
	}
	exp, err := strconv.Atoi(exponent)
	if err != nil {
		return 0, &ParseError{Input: text, Reason: "bad exponent"}
	}

	// Recompose in decimal so the result is the correctly rounded literal
	v, err := strconv.ParseFloat(mantissa+"e"+strconv.Itoa(exp), 64)
	if err != nil {
		return 0, &ParseError{Input: text, Reason: "out of range"}
	}
	return v, nil
}

// ParseUnits extracts the units inside the first parenthesized group
func ParseUnits(header string) (string, error) {
	m := unitsPattern.FindStringSubmatch(header)
	if m == nil {
		return "", &ParseError{Input: header, Reason: "no units in header"}
	}
	return strings.TrimSpace(m[1]), nil
}

// ParseUnitsPair extracts value and temperature units from two header cells
func ParseUnitsPair(valueHeader, temperatureHeader string) (string, string, error) {
	valueUnits, err := ParseUnits(valueHeader)
	if err != nil {
		return "", "", err
	}
	temperatureUnits, err := ParseUnits(temperatureHeader)
	if err != nil {
		return "", "", err
	}
	return valueUnits, temperatureUnits, nil
}

// ParseRange reads a temperature validity interval such as "298. - 1300."
func ParseRange(text string) ([2]float64, error) {
	parts := strings.Split(text, "-")
	if len(parts) != 2 {
		return [2]float64{}, &ParseError{Input: text, Reason: "expected two range bounds"}
	}

	var bounds [2]float64
	for i, part := range parts {
		v, err := ParseScalar(part)
		if err != nil {
			return [2]float64{}, &ParseError{Input: text, Reason: "bad range bound"}
		}
		bounds[i] = v
	}
	return bounds, nil
}
