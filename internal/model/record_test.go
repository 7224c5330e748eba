package model

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestRecord_MergeIsAdditive(t *testing.T) {
	r := NewRecord(Identity{Name: "Methane", CAS: 74828})

	skipped := r.Merge(Fragment{
		"boiling_point": Scalar{Value: 111.6, Units: "K"},
	})
	if len(skipped) != 0 {
		t.Errorf("Expected nothing skipped, got %v", skipped)
	}

	skipped = r.Merge(Fragment{
		"boiling_point": Scalar{Value: 999, Units: "K"},
		"fusion_point":  Scalar{Value: 90.7, Units: "K"},
		"name":          Scalar{Value: 1},
	})
	if strings.Join(skipped, ",") != "boiling_point,name" {
		t.Errorf("Expected boiling_point and name skipped, got %v", skipped)
	}

	bp, _ := r.Get("boiling_point")
	if bp.(Scalar).Value != 111.6 {
		t.Errorf("Earlier value must be kept, got %v", bp)
	}
	if r.Len() != 2 {
		t.Errorf("Expected 2 properties, got %d", r.Len())
	}
	if r.Identity().Name != "Methane" {
		t.Errorf("Identity changed: %+v", r.Identity())
	}
}

func TestRecord_FreezeCopies(t *testing.T) {
	r := NewRecord(Identity{Name: "Methane", CAS: 74828})
	r.Merge(Fragment{"boiling_point": Scalar{Value: 111.6, Units: "K"}})

	s := r.Freeze()
	r.Merge(Fragment{"fusion_point": Scalar{Value: 90.7, Units: "K"}})

	if len(s.Properties) != 1 {
		t.Errorf("Frozen substance must not see later merges, got %d properties", len(s.Properties))
	}
}

func TestNewSeries_SortsStable(t *testing.T) {
	s := NewSeries([]Point{
		{Value: 3, Temperature: 300},
		{Value: 1, Temperature: 100},
		{Value: 2, Temperature: 300},
	}, "kJ/mol", "K")

	want := []Point{{1, 100}, {3, 300}, {2, 300}}
	for i, p := range want {
		if s.Values[i] != p {
			t.Errorf("Point %d = %v, want %v", i, s.Values[i], p)
		}
	}
}

func TestSubstance_MarshalJSON(t *testing.T) {
	s := Substance{
		Identity: Identity{
			Name:            "Methane",
			CAS:             74828,
			Formula:         "CH4",
			MolecularWeight: 16.0425,
			Image:           "https://webbook.nist.gov/cgi/cbook.cgi?Struct=C74828&Type=Color",
		},
		Properties: map[string]Property{
			"boiling_point": Scalar{Value: 111.6, Units: "K"},
			"enthalpy_vaporization": NewSeries([]Point{
				{Value: 8.19, Temperature: 111.7},
			}, "kJ/mol", "K"),
			"antoine_equation": EquationList{{
				Temperatures: [2]float64{90.99, 189.99},
				Coefficients: []Coefficient{{"A", 3.9895}, {"B", 443.028}, {"C", -0.49}},
			}},
		},
	}

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got := string(data)

	for _, want := range []string{
		`"cas":74828`,
		`"name":"Methane"`,
		`"boiling_point":{"value":111.6,"units":"K"}`,
		`"enthalpy_vaporization":{"values":[[8.19,111.7]],"units":["kJ/mol","K"]}`,
		`"antoine_equation":[{"temperatures":[90.99,189.99],"A":3.9895,"B":443.028,"C":-0.49}]`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Expected %s in %s", want, got)
		}
	}
	if strings.Contains(got, "iupac_std_inchi") {
		t.Errorf("Empty InChI must be omitted: %s", got)
	}

	names := s.FieldNames()
	if names[0] != "antoine_equation" || len(names) != 8 {
		t.Errorf("Unexpected field names %v", names)
	}
}

func TestPhase(t *testing.T) {
	if PhaseGas.Qualify("entropy") != "entropy_gas" {
		t.Error("Gas phase must qualify field names")
	}
	if PhaseChange.Qualify("boiling_point") != "boiling_point" {
		t.Error("Phase change must leave field names unqualified")
	}
	if PhaseLiquid.Title() != "Liquid" {
		t.Errorf("Expected Liquid, got %q", PhaseLiquid.Title())
	}
}

func TestRootURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"74-82-8", "https://webbook.nist.gov/cgi/cbook.cgi?ID=C74828&Units=SI"},
		{"methane", "https://webbook.nist.gov/cgi/cbook.cgi?Name=methane&Units=SI"},
		{"carbon  dioxide", "https://webbook.nist.gov/cgi/cbook.cgi?Name=carbon+dioxide&Units=SI"},
		{"https://example.com/x", "https://example.com/x"},
	}
	for _, tt := range tests {
		if got := RootURL(DefaultBaseURL, tt.in); got != tt.want {
			t.Errorf("RootURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
