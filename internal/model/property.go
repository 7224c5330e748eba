package model

import (
	"bytes"
	"encoding/json"
	"sort"
)

// PropertyKind tags which variant a Property holds
type PropertyKind string

const (
	KindScalar    PropertyKind = "scalar"    // Single value with units
	KindSeries    PropertyKind = "series"    // (value, temperature) pairs
	KindEquations PropertyKind = "equations" // Piecewise equation coefficient segments
)

// Property is one extracted thermophysical quantity.
// Implementations are Scalar, Series and EquationList.
type Property interface {
	Kind() PropertyKind
}

// Scalar is a single measured value
type Scalar struct {
	Value float64 `json:"value"`
	Units string  `json:"units"`
}

// Kind implements Property
func (Scalar) Kind() PropertyKind { return KindScalar }

// Point is one (value, temperature) pair of a Series
type Point struct {
	Value       float64
	Temperature float64
}

// MarshalJSON encodes the point as a [value, temperature] pair
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{p.Value, p.Temperature})
}

// Series is a list of values measured at several temperatures
type Series struct {
	Values []Point   `json:"values"`
	Units  [2]string `json:"units"` // [value units, temperature units]
}

// NewSeries returns a series sorted ascending by temperature.
// Points with equal temperature keep their table order.
func NewSeries(points []Point, valueUnits, temperatureUnits string) Series {
	sorted := make([]Point, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Temperature < sorted[j].Temperature
	})
	return Series{
		Values: sorted,
		Units:  [2]string{valueUnits, temperatureUnits},
	}
}

// Kind implements Property
func (Series) Kind() PropertyKind { return KindSeries }

// Coefficient is a named equation coefficient
type Coefficient struct {
	Name  string
	Value float64
}

// Equation is one temperature-validity segment of a piecewise equation
type Equation struct {
	Temperatures [2]float64    // Validity interval [low, high]
	Coefficients []Coefficient // In table order
}

// Coefficient returns the named coefficient value
func (e Equation) Coefficient(name string) (float64, bool) {
	for _, c := range e.Coefficients {
		if c.Name == name {
			return c.Value, true
		}
	}
	return 0, false
}

// MarshalJSON encodes the segment as a flat object:
// {"temperatures":[lo,hi],"A":...,"B":...} with coefficients in table order.
func (e Equation) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"temperatures":`)
	temps, err := json.Marshal(e.Temperatures)
	if err != nil {
		return nil, err
	}
	buf.Write(temps)

	for _, c := range e.Coefficients {
		name, err := json.Marshal(c.Name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(c.Value)
		if err != nil {
			return nil, err
		}
		buf.WriteByte(',')
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// EquationList is the ordered set of segments of one equation table
type EquationList []Equation

// Kind implements Property
func (EquationList) Kind() PropertyKind { return KindEquations }

// Fragment maps canonical field names to the properties one extractor found
type Fragment map[string]Property

// Add sets key unless the fragment already holds it.
// Returns false when the key was already present.
func (f Fragment) Add(key string, p Property) bool {
	if _, exists := f[key]; exists {
		return false
	}
	f[key] = p
	return true
}

// Keys returns the fragment field names in sorted order
func (f Fragment) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
