package extract

import (
	"fmt"

	"github.com/ppiankov/thermobook/internal/model"
)

// ExtractPhase runs every section extractor that applies to the phase and
// returns the combined fragment. A parse error in any section fails the
// whole page and no fragment is returned.
func ExtractPhase(p *Page, phase model.Phase) (model.Fragment, error) {
	frag, err := ScalarProperties(p.OneDimensionalTable(), phase)
	if err != nil {
		return nil, fmt.Errorf("one dimensional data: %w", err)
	}

	if phase == model.PhaseChange {
		if err := extractPhaseChange(p, frag); err != nil {
			return nil, err
		}
		return frag, nil
	}

	series, found, err := PairedSeries(p.HeatCapacityTables(phase))
	if err != nil {
		return nil, fmt.Errorf("heat capacity: %w", err)
	}
	if found {
		frag.Add(phase.Qualify("constant_pressure_heat_capacity"), series)
	}

	shomate, err := ColumnEquations(p.ShomateTable(phase), ShomateCoefficients)
	if err != nil {
		return nil, fmt.Errorf("shomate equation: %w", err)
	}
	if len(shomate) > 0 {
		frag.Add(phase.Qualify("heat_capacity_shomate_equation"), shomate)
	}

	return frag, nil
}

func extractPhaseChange(p *Page, frag model.Fragment) error {
	seriesTable, equationTable := p.VaporizationEnthalpyTables()

	if seriesTable != nil {
		series, found, err := PairedSeries([]*Table{seriesTable})
		if err != nil {
			return fmt.Errorf("enthalpy of vaporization: %w", err)
		}
		if found {
			frag.Add("enthalpy_vaporization", series)
		}
	}

	equations, err := ColumnEquations(equationTable, VaporizationCoefficients)
	if err != nil {
		return fmt.Errorf("enthalpy of vaporization equation: %w", err)
	}
	if len(equations) > 0 {
		frag.Add("enthalpy_vaporization_equation", equations)
	}

	if t := p.VaporizationEntropyTable(); t != nil {
		series, found, err := PairedSeries([]*Table{t})
		if err != nil {
			return fmt.Errorf("entropy of vaporization: %w", err)
		}
		if found {
			frag.Add("entropy_vaporization", series)
		}
	}

	antoine, err := RowEquations(p.AntoineTable(), AntoineCoefficients)
	if err != nil {
		return fmt.Errorf("antoine equation: %w", err)
	}
	if len(antoine) > 0 {
		frag.Add("antoine_equation", antoine)
	}

	return nil
}
