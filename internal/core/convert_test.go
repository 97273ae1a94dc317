package core

import (
	"reflect"
	"testing"
)

// ----------------------------------------------------------------------------
// CoerceNumber
// ----------------------------------------------------------------------------

func TestCoerceNumber(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   float64
		wantOK bool
	}{
		{"integer", "3", 3, true},
		{"negative", "-2", -2, true},
		{"decimal comma", "2,5", 2.5, true},
		{"thousands and decimals", "120.000,50", 120000.5, true},
		{"euro prefix", "€ 250.000", 250000, true},
		{"euro suffix", "250000 EUR", 250000, true},
		{"space grouping", "1 500", 1500, true},
		{"nbsp grouping", "250\u00a0000", 250000, true},
		{"square metres", "85 m2", 85, true},
		{"square metres symbol", "85m²", 85, true},
		{"typology is not a number", "T2", 0, false},
		{"text", "abc", 0, false},
		{"empty", "", 0, false},
		{"only spaces", "   ", 0, false},
		{"only currency", "€", 0, false},
		{"nan", "NaN", 0, false},
		{"infinity", "Inf", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CoerceNumber(tt.input)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("CoerceNumber(%q) = (%v, %v), want (%v, %v)", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// SplitList / NormalizeEnum / CleanCell
// ----------------------------------------------------------------------------

func TestSplitList(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"a.jpg, b.jpg;c.jpg|d.jpg", []string{"a.jpg", "b.jpg", "c.jpg", "d.jpg"}},
		{"single", []string{"single"}},
		{" , ; | ", []string{}},
		{"garagem,,piscina", []string{"garagem", "piscina"}},
	}

	for _, tt := range tests {
		got := SplitList(tt.input)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SplitList(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestNormalizeEnum(t *testing.T) {
	spec := peopleSchema().Fields[3]

	tests := []struct {
		input string
		want  string
	}{
		{"client", "client"},
		{"Client", "client"},
		{"cliente", "client"},
		{"  CLIENTE ", "client"},
		{"Contacto", "lead"},
		{"vip", "vip"},
	}

	for _, tt := range tests {
		if got := NormalizeEnum(tt.input, spec); got != tt.want {
			t.Errorf("NormalizeEnum(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestCleanCell(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "Ana", "Ana"},
		{"padding", "  Ana  ", "Ana"},
		{"excel formula", `="00123"`, "00123"},
		{"excel formula with padding", `  =" 912 "  `, "912"},
		{"incomplete formula", `="`, `="`},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanCell(tt.input); got != tt.want {
				t.Errorf("CleanCell(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// coerce
// ----------------------------------------------------------------------------

func TestCoerce(t *testing.T) {
	s := peopleSchema()
	field := func(name string) FieldSpec {
		f, _ := s.Field(name)
		return f
	}

	t.Run("number", func(t *testing.T) {
		v, ok := coerce("1.500", field("budget"))
		if !ok || v.Kind != KindNumber || v.Number != 1500 || v.Unparsed {
			t.Errorf("coerce(1.500) = %+v, %v", v, ok)
		}
		if v.Raw != "1.500" {
			t.Errorf("Raw = %q, want the source text", v.Raw)
		}
	})

	t.Run("unparseable number is kept", func(t *testing.T) {
		v, ok := coerce("a lot", field("budget"))
		if !ok || !v.Unparsed || v.Raw != "a lot" {
			t.Errorf("coerce(a lot) = %+v, %v, want unparsed", v, ok)
		}
	})

	t.Run("typology only where flagged", func(t *testing.T) {
		rooms := FieldSpec{Name: "rooms", Type: FieldNumber, Typology: true}
		for _, raw := range []string{"T2", " v3 "} {
			v, _ := coerce(raw, rooms)
			if v.Unparsed || v.Number == 0 {
				t.Errorf("coerce(%q, rooms) = %+v, want a room count", raw, v)
			}
		}
		v, _ := coerce("T3", field("budget"))
		if !v.Unparsed || v.Raw != "T3" {
			t.Errorf("coerce(T3, budget) = %+v, want unparsed", v)
		}
	})

	t.Run("list", func(t *testing.T) {
		v, ok := coerce("vip; 2024", field("tags"))
		if !ok || !reflect.DeepEqual(v.List, []string{"vip", "2024"}) {
			t.Errorf("coerce(list) = %+v, %v", v, ok)
		}
	})

	t.Run("empty list is dropped", func(t *testing.T) {
		if _, ok := coerce(";;", field("tags")); ok {
			t.Error("coerce(;;) should not store a value")
		}
	})

	t.Run("enum", func(t *testing.T) {
		v, ok := coerce("Cliente", field("kind"))
		if !ok || v.Text != "client" || v.Raw != "Cliente" {
			t.Errorf("coerce(Cliente) = %+v, %v", v, ok)
		}
	})

	t.Run("email is left as written", func(t *testing.T) {
		v, _ := coerce("Ana@Example.com", field("email"))
		if v.Text != "Ana@Example.com" {
			t.Errorf("coerce(email) = %q", v.Text)
		}
	})
}
