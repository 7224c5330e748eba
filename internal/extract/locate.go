package extract

import (
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"github.com/ppiankov/thermobook/internal/model"
)

// Table labels as rendered in each table's aria-label attribute
const (
	labelOneDimensional       = "One dimensional data"
	labelHeatCapacity         = "Constant pressure heat capacity of "
	labelShomate              = " Phase Heat Capacity (Shomate Equation)"
	labelVaporizationEnthalpy = "Enthalpy of vaporization"
	labelVaporizationEntropy  = "Entropy of vaporization"
	labelAntoine              = "Antoine"
)

// Row is one table row split into header (th) and data (td) cell texts
type Row struct {
	Headers []string
	Cells   []string
}

// Table is a located property table
type Table struct {
	Label string
	Rows  []Row
}

// HeaderRow returns the first row made only of header cells
func (t *Table) HeaderRow() (Row, bool) {
	for _, r := range t.Rows {
		if len(r.Headers) > 0 && len(r.Cells) == 0 {
			return r, true
		}
	}
	return Row{}, false
}

// DataRows returns the rows carrying at least one data cell
func (t *Table) DataRows() []Row {
	var rows []Row
	for _, r := range t.Rows {
		if len(r.Cells) > 0 {
			rows = append(rows, r)
		}
	}
	return rows
}

// OneDimensionalTable locates the single-value property table
func (p *Page) OneDimensionalTable() *Table {
	return first(p.tables(fmt.Sprintf("main > table[aria-label=%q]", labelOneDimensional)))
}

// HeatCapacityTables locates every Cp(T) series table of the phase
func (p *Page) HeatCapacityTables(phase model.Phase) []*Table {
	return p.tables(fmt.Sprintf("main > table[aria-label*=%q]", labelHeatCapacity+string(phase)))
}

// ShomateTable locates the phase's Shomate equation table
func (p *Page) ShomateTable(phase model.Phase) *Table {
	return first(p.tables(fmt.Sprintf("main > table[aria-label*=%q]", phase.Title()+labelShomate)))
}

// VaporizationEnthalpyTables locates the vaporization enthalpy series table and
// the vaporization enthalpy equation table, in page order. Either may be nil.
func (p *Page) VaporizationEnthalpyTables() (series *Table, equation *Table) {
	tables := p.tables(fmt.Sprintf("main > table[aria-label*=%q]", labelVaporizationEnthalpy))
	if len(tables) > 0 {
		series = tables[0]
	}
	if len(tables) > 1 {
		equation = tables[1]
	}
	return series, equation
}

// VaporizationEntropyTable locates the vaporization entropy series table
func (p *Page) VaporizationEntropyTable() *Table {
	return first(p.tables(fmt.Sprintf("main > table[aria-label*=%q]", labelVaporizationEntropy)))
}

// AntoineTable locates the Antoine equation parameter table
func (p *Page) AntoineTable() *Table {
	return first(p.tables(fmt.Sprintf("main > table[aria-label*=%q]", labelAntoine)))
}

// tables collects every table matching selector
func (p *Page) tables(selector string) []*Table {
	var tables []*Table
	p.doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		tables = append(tables, readTable(s))
	})
	return tables
}

func readTable(s *goquery.Selection) *Table {
	label, _ := s.Attr("aria-label")
	t := &Table{Label: label}

	s.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var row Row
		tr.ChildrenFiltered("th, td").Each(func(_ int, cell *goquery.Selection) {
			if goquery.NodeName(cell) == "th" {
				row.Headers = append(row.Headers, cellText(cell))
				return
			}
			row.Cells = append(row.Cells, cellText(cell))
		})
		t.Rows = append(t.Rows, row)
	})
	return t
}

func first(tables []*Table) *Table {
	if len(tables) == 0 {
		return nil
	}
	return tables[0]
}
