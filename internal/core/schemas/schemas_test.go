package schemas

import (
	"strings"
	"testing"

	"github.com/JonMunkholm/crmimport/internal/core"
)

func mustSchema(t *testing.T, key string) *core.Schema {
	t.Helper()
	s, err := core.Lookup(key)
	if err != nil {
		t.Fatalf("Lookup(%q) error = %v", key, err)
	}
	return s
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if strings.Contains(s, want) {
			return true
		}
	}
	return false
}

func TestRegistered(t *testing.T) {
	contacts := mustSchema(t, "contacts")
	if contacts.NaturalKey != "email" {
		t.Errorf("contacts NaturalKey = %q, want email", contacts.NaturalKey)
	}
	if contacts.Version != AliasVersion {
		t.Errorf("contacts Version = %q, want %q", contacts.Version, AliasVersion)
	}

	properties := mustSchema(t, "properties")
	if properties.NaturalKey != "" {
		t.Errorf("properties NaturalKey = %q, want none", properties.NaturalKey)
	}
	if len(properties.Classification) != 2 {
		t.Errorf("properties Classification = %v", properties.Classification)
	}
}

// ----------------------------------------------------------------------------
// Header aliases
// ----------------------------------------------------------------------------

func TestContactAliases(t *testing.T) {
	s := mustSchema(t, "contacts")

	tests := []struct {
		header string
		want   string
	}{
		// vCard columns
		{"FN", "full_name"},
		{"EMAIL", "email"},
		{"TEL", "phone"},
		{"ORG", "company"},
		{"TITLE", "job_title"},
		{"ADR", "address"},
		{"NOTE", "notes"},
		// spreadsheet exports
		{"Nome", "full_name"},
		{"Nome da Empresa", "company"},
		{"E-mail", "email"},
		{"Telemóvel", "phone"},
		{"Etiquetas", "tags"},
		{"Origem do lead", "source"},
		{"Observações", "notes"},
	}

	for _, tt := range tests {
		got, ok := core.MatchField(tt.header, s)
		if !ok || got != tt.want {
			t.Errorf("MatchField(%q) = %q, %v; want %q", tt.header, got, ok, tt.want)
		}
	}

	if got, ok := core.MatchField("N", s); ok {
		t.Errorf("MatchField(%q) = %q, want no match", "N", got)
	}
}

func TestPropertyAliases(t *testing.T) {
	s := mustSchema(t, "properties")

	tests := []struct {
		header string
		want   string
	}{
		{"titulo", "title"},
		{"preco", "price"},
		{"location.city", "city"},
		{"location.address", "address"},
		{"bathrooms", "bathrooms"},
		{"bedrooms", "bedrooms"},
		{"tipologia", "bedrooms"},
		{"Tipo de Imóvel", "property_type"},
		{"Negócio", "listing_type"},
		{"Código Postal", "postal_code"},
		{"Referência", "external_id"},
		{"ref", "external_id"},
		{"Área (m²)", "area"},
		{"imagens", "images"},
		{"Descrição", "description"},
	}

	for _, tt := range tests {
		got, ok := core.MatchField(tt.header, s)
		if !ok || got != tt.want {
			t.Errorf("MatchField(%q) = %q, %v; want %q", tt.header, got, ok, tt.want)
		}
	}
}

func TestPropertyEnumAliases(t *testing.T) {
	s := mustSchema(t, "properties")
	listing, _ := s.Field("listing_type")
	kind, _ := s.Field("property_type")

	tests := []struct {
		spec core.FieldSpec
		raw  string
		want string
	}{
		{listing, "Venda", "sale"},
		{listing, "SALE", "sale"},
		{listing, "Arrendamento", "rent"},
		{listing, "for rent", "rent"},
		{kind, "Moradia", "house"},
		{kind, "Apartamento", "apartment"},
		{kind, "Terreno", "land"},
		{kind, "Armazém", "commercial"},
		{kind, "castle", "castle"},
	}

	for _, tt := range tests {
		if got := core.NormalizeEnum(tt.raw, tt.spec); got != tt.want {
			t.Errorf("NormalizeEnum(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

// ----------------------------------------------------------------------------
// Rules
// ----------------------------------------------------------------------------

func TestContactRules(t *testing.T) {
	s := mustSchema(t, "contacts")

	tests := []struct {
		name        string
		rec         core.CandidateRecord
		valid       bool
		wantError   string
		wantWarning string
	}{
		{
			name:  "complete",
			rec:   core.CandidateRecord{"full_name": core.TextValue("Ana Silva"), "email": core.TextValue("ana@example.com")},
			valid: true,
		},
		{
			name:      "short name",
			rec:       core.CandidateRecord{"full_name": core.TextValue("A"), "email": core.TextValue("a@example.com")},
			wantError: "full_name: too short",
		},
		{
			name:      "missing name",
			rec:       core.CandidateRecord{"email": core.TextValue("a@example.com")},
			wantError: "full_name: required field is empty",
		},
		{
			name:      "bad email",
			rec:       core.CandidateRecord{"full_name": core.TextValue("Ana"), "email": core.TextValue("ana@")},
			wantError: "email:",
		},
		{
			name:        "unreachable",
			rec:         core.CandidateRecord{"full_name": core.TextValue("Ana")},
			valid:       true,
			wantWarning: "cannot be reached",
		},
		{
			name:        "short phone",
			rec:         core.CandidateRecord{"full_name": core.TextValue("Ana"), "phone": core.TextValue("91 234")},
			valid:       true,
			wantWarning: "phone: has fewer than 9 digits",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := core.Validate(tt.rec, s)
			if tt.wantError == "" && !o.IsValid() {
				t.Fatalf("Validate() errors = %v, want none", o.Errors)
			}
			if tt.wantError != "" && !contains(o.Errors, tt.wantError) {
				t.Errorf("Validate() errors = %v, want %q", o.Errors, tt.wantError)
			}
			if tt.wantWarning != "" && !contains(o.Warnings, tt.wantWarning) {
				t.Errorf("Validate() warnings = %v, want %q", o.Warnings, tt.wantWarning)
			}
			if tt.valid != o.IsValid() {
				t.Errorf("IsValid() = %v, want %v", o.IsValid(), tt.valid)
			}
		})
	}
}

func property(overrides map[string]core.Value) core.CandidateRecord {
	rec := core.CandidateRecord{
		"listing_type":  core.TextValue("sale"),
		"property_type": core.TextValue("apartment"),
		"title":         core.TextValue("Apartamento T2 no centro"),
		"city":          core.TextValue("Lisboa"),
		"price":         core.NumberValue(250000),
		"bedrooms":      core.NumberValue(2),
		"area":          core.NumberValue(85),
		"description":   core.TextValue(strings.Repeat("Luminoso, remodelado e perto do metro. ", 2)),
		"images":        core.ListValue("1.jpg", "2.jpg", "3.jpg"),
	}
	for k, v := range overrides {
		rec[k] = v
	}
	return rec
}

func TestPropertyRules(t *testing.T) {
	s := mustSchema(t, "properties")

	tests := []struct {
		name        string
		rec         core.CandidateRecord
		wantError   string
		wantWarning string
	}{
		{name: "complete", rec: property(nil)},
		{
			name:      "cheap sale",
			rec:       property(map[string]core.Value{"price": core.NumberValue(500)}),
			wantError: "price: 500 is below the minimum sale price of 1000",
		},
		{
			name: "expensive rent",
			rec: property(map[string]core.Value{
				"listing_type": core.TextValue("rent"),
				"price":        core.NumberValue(150000),
			}),
			wantError: "price: 150000 is above the maximum monthly rent of 100000",
		},
		{
			name:      "zero price",
			rec:       property(map[string]core.Value{"price": core.NumberValue(0)}),
			wantError: "price: must be greater than zero",
		},
		{
			name:      "negative area",
			rec:       property(map[string]core.Value{"area": core.NumberValue(-1)}),
			wantError: "area: must not be negative",
		},
		{
			name:      "short title",
			rec:       property(map[string]core.Value{"title": core.TextValue("T2")}),
			wantError: "title: too short",
		},
		{
			name:      "unknown property type",
			rec:       property(map[string]core.Value{"property_type": core.TextValue("castle")}),
			wantError: "property_type:",
		},
		{
			name:        "odd year",
			rec:         property(map[string]core.Value{"year": core.NumberValue(1200)}),
			wantWarning: "year: 1200 looks wrong",
		},
		{
			name:        "few images",
			rec:         property(map[string]core.Value{"images": core.ListValue("1.jpg")}),
			wantWarning: "images: fewer than 3 images",
		},
		{
			name:        "short description",
			rec:         property(map[string]core.Value{"description": core.TextValue("Bom")}),
			wantWarning: "description: shorter than 50 characters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := core.Validate(tt.rec, s)
			if tt.wantError == "" && !o.IsValid() {
				t.Fatalf("Validate() errors = %v, want none", o.Errors)
			}
			if tt.wantError != "" && !contains(o.Errors, tt.wantError) {
				t.Errorf("Validate() errors = %v, want %q", o.Errors, tt.wantError)
			}
			if tt.wantWarning != "" && !contains(o.Warnings, tt.wantWarning) {
				t.Errorf("Validate() warnings = %v, want %q", o.Warnings, tt.wantWarning)
			}
		})
	}
}

func TestPropertyQualityWarningsOnly(t *testing.T) {
	s := mustSchema(t, "properties")
	rec := core.CandidateRecord{
		"listing_type":  core.TextValue("rent"),
		"property_type": core.TextValue("room"),
		"title":         core.TextValue("Quarto em Coimbra"),
		"city":          core.TextValue("Coimbra"),
		"price":         core.NumberValue(350),
	}

	o := core.Validate(rec, s)
	if !o.IsValid() {
		t.Fatalf("Validate() errors = %v, want none", o.Errors)
	}
	for _, want := range []string{"images: no images", "bedrooms: not set", "area: not set"} {
		if !contains(o.Warnings, want) {
			t.Errorf("Warnings = %v, missing %q", o.Warnings, want)
		}
	}
}

func TestTypologyFillsBedrooms(t *testing.T) {
	s := mustSchema(t, "properties")
	headers := []string{"Tipologia", "Preço"}
	row := map[string]string{"Tipologia": "T3", "Preço": "€ 320.000"}

	rec := core.Project(row, headers, core.AutoMap(headers, s), s)
	if n, ok := rec.Number("bedrooms"); !ok || n != 3 {
		t.Errorf("bedrooms = %v, %v; want 3", n, ok)
	}
	if n, ok := rec.Number("price"); !ok || n != 320000 {
		t.Errorf("price = %v, %v; want 320000", n, ok)
	}
}

func TestTypologyOutsideBedroomsIsUnparseable(t *testing.T) {
	s := mustSchema(t, "properties")
	headers := []string{"Preço", "Ano"}
	row := map[string]string{"Preço": "T3", "Ano": "T3"}

	rec := property(core.Project(row, headers, core.ColumnMapping{"Preço": "price", "Ano": "year"}, s))
	out := core.Validate(rec, s)

	for _, field := range []string{"price", "year"} {
		found := false
		for _, e := range out.Errors {
			if strings.HasPrefix(e, field+": unparseable value") {
				found = true
			}
			if strings.Contains(e, "minimum sale price") {
				t.Errorf("unexpected range error %q", e)
			}
		}
		if !found {
			t.Errorf("Errors = %v, want %s unparseable", out.Errors, field)
		}
	}
}
