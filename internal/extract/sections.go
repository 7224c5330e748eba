package extract

import (
	"fmt"
	"strings"

	"github.com/ppiankov/thermobook/internal/model"
)

// Coefficient row order per equation table variant
var (
	ShomateCoefficients      = []string{"A", "B", "C", "D", "E", "F", "G", "H"}
	VaporizationCoefficients = []string{"A", "alpha", "beta", "Tc"}
	AntoineCoefficients      = []string{"A", "B", "C"}
)

// qualifiedSymbols are one-dimensional data symbols suffixed with the phase
// ("fH°gas") and mapped to phase-qualified fields
var qualifiedSymbols = map[string]string{
	"fH°": "enthalpy_formation",
	"cH°": "enthalpy_combustion",
	"S°":  "entropy",
}

// phaseChangeSymbols are one-dimensional data symbols of the phase change page
var phaseChangeSymbols = map[string]string{
	"Tboil":   "boiling_point",
	"Tfus":    "fusion_point",
	"Ttriple": "triple_point_temperature",
	"Ptriple": "triple_point_pressure",
	"Tc":      "critical_temperature",
	"Pc":      "critical_pressure",
	"Vc":      "critical_volume",
	"c":       "critical_density",
	"vapH°":   "standard_enthalpy_vaporization",
}

// symbolTable returns the exact-match symbol → field table for a phase
func symbolTable(phase model.Phase) map[string]string {
	if phase == model.PhaseChange {
		return phaseChangeSymbols
	}
	table := make(map[string]string, len(qualifiedSymbols))
	for symbol, field := range qualifiedSymbols {
		table[symbol+string(phase)] = phase.Qualify(field)
	}
	return table
}

// ScalarProperties reads the one-dimensional data table.
// Unknown symbols and rows without a value are skipped; the first row of a
// symbol wins.
func ScalarProperties(t *Table, phase model.Phase) (model.Fragment, error) {
	frag := model.Fragment{}
	if t == nil {
		return frag, nil
	}

	symbols := symbolTable(phase)
	for _, row := range t.DataRows() {
		if len(row.Cells) < 2 {
			continue
		}
		field, known := symbols[row.Cells[0]]
		if !known {
			continue
		}
		if row.Cells[1] == "" {
			continue
		}
		if _, seen := frag[field]; seen {
			continue
		}

		value, err := ParseScalar(row.Cells[1])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", field, err)
		}
		var units string
		if len(row.Cells) > 2 {
			units = row.Cells[2]
		}
		frag.Add(field, model.Scalar{Value: value, Units: units})
	}
	return frag, nil
}

// PairedSeries reads (value, temperature) rows from one or more tables.
// Rows with a blank or ranged ("-") temperature are skipped. Units come from
// the first table's header row.
func PairedSeries(tables []*Table) (model.Series, bool, error) {
	if len(tables) == 0 {
		return model.Series{}, false, nil
	}

	header, ok := tables[0].HeaderRow()
	if !ok || len(header.Headers) < 2 {
		return model.Series{}, false, &ParseError{Input: tables[0].Label, Reason: "series table without units header"}
	}
	valueUnits, temperatureUnits, err := ParseUnitsPair(header.Headers[0], header.Headers[1])
	if err != nil {
		return model.Series{}, false, err
	}

	var points []model.Point
	for _, t := range tables {
		for _, row := range t.DataRows() {
			if len(row.Cells) < 2 {
				continue
			}
			temperatureCell := row.Cells[1]
			if temperatureCell == "" || strings.Contains(temperatureCell, "-") {
				continue
			}

			value, err := ParseScalar(row.Cells[0])
			if err != nil {
				return model.Series{}, false, err
			}
			temperature, err := ParseScalar(temperatureCell)
			if err != nil {
				return model.Series{}, false, err
			}
			points = append(points, model.Point{Value: value, Temperature: temperature})
		}
	}

	if len(points) == 0 {
		return model.Series{}, false, nil
	}
	return model.NewSeries(points, valueUnits, temperatureUnits), true, nil
}

// ColumnEquations reads an equation table laid out one segment per column:
// the first row holds the temperature ranges and each following row one
// coefficient, in the order given by names.
func ColumnEquations(t *Table, names []string) (model.EquationList, error) {
	if t == nil || len(t.Rows) == 0 {
		return nil, nil
	}
	if len(t.Rows) < 1+len(names) {
		return nil, &ParseError{Input: t.Label, Reason: fmt.Sprintf("expected %d rows, got %d", 1+len(names), len(t.Rows))}
	}

	ranges := t.Rows[0].Cells
	equations := make(model.EquationList, 0, len(ranges))
	for col, cell := range ranges {
		temperatures, err := ParseRange(cell)
		if err != nil {
			return nil, err
		}

		eq := model.Equation{Temperatures: temperatures}
		for i, name := range names {
			row := t.Rows[1+i]
			if col >= len(row.Cells) {
				return nil, &ParseError{Input: t.Label, Reason: fmt.Sprintf("missing %s for segment %d", name, col+1)}
			}
			v, err := ParseScalar(row.Cells[col])
			if err != nil {
				return nil, err
			}
			eq.Coefficients = append(eq.Coefficients, model.Coefficient{Name: name, Value: v})
		}
		equations = append(equations, eq)
	}
	return equations, nil
}

// RowEquations reads an equation table laid out one segment per row:
// temperature range first, then one cell per coefficient.
func RowEquations(t *Table, names []string) (model.EquationList, error) {
	if t == nil {
		return nil, nil
	}

	var equations model.EquationList
	for _, row := range t.DataRows() {
		if len(row.Cells) < 1+len(names) {
			return nil, &ParseError{Input: t.Label, Reason: fmt.Sprintf("expected %d cells, got %d", 1+len(names), len(row.Cells))}
		}

		temperatures, err := ParseRange(row.Cells[0])
		if err != nil {
			return nil, err
		}

		eq := model.Equation{Temperatures: temperatures}
		for i, name := range names {
			v, err := ParseScalar(row.Cells[1+i])
			if err != nil {
				return nil, err
			}
			eq.Coefficients = append(eq.Coefficients, model.Coefficient{Name: name, Value: v})
		}
		equations = append(equations, eq)
	}
	return equations, nil
}
