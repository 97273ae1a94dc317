package parse

import (
	"errors"
	"reflect"
	"testing"
)

// ----------------------------------------------------------------------------
// CSV
// ----------------------------------------------------------------------------

func TestDetectDelimiter(t *testing.T) {
	tests := []struct {
		name string
		line string
		want string
	}{
		{"semicolon wins over comma", "nome;email,extra", ";"},
		{"semicolon wins over tab", "a\tb;c", ";"},
		{"tab when no semicolon", "a\tb,c", "\t"},
		{"comma default", "a,b,c", ","},
		{"single column", "name", ","},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectDelimiter(tt.line); got != tt.want {
				t.Errorf("DetectDelimiter(%q) = %q, want %q", tt.line, got, tt.want)
			}
		})
	}
}

func TestParseCSV_DelimiterDecidedOnce(t *testing.T) {
	text := "name;price\nCasa, T3;250.000\nLoja;1,5"

	got := ParseCSV(text)

	wantHeaders := []string{"name", "price"}
	if !reflect.DeepEqual(got.Headers, wantHeaders) {
		t.Fatalf("Headers = %v, want %v", got.Headers, wantHeaders)
	}
	if len(got.Rows) != 2 {
		t.Fatalf("len(Rows) = %d, want 2", len(got.Rows))
	}
	if got.Rows[0]["name"] != "Casa, T3" {
		t.Errorf("row 0 name = %q, want %q", got.Rows[0]["name"], "Casa, T3")
	}
	if got.Rows[1]["price"] != "1,5" {
		t.Errorf("row 1 price = %q, want %q", got.Rows[1]["price"], "1,5")
	}
}

func TestParseCSV_HeaderCleanup(t *testing.T) {
	got := ParseCSV(` "Nome" , "Email ,"Phone` + "\nAna,a@x.pt,1")

	want := []string{"Nome", `"Email`, `"Phone`}
	if !reflect.DeepEqual(got.Headers, want) {
		t.Errorf("Headers = %q, want %q", got.Headers, want)
	}
}

func TestParseCSV_RowShape(t *testing.T) {
	text := "a,b,c\r\n1\r\n\r\n   \r\n1,2,3,4,5\r\n"

	got := ParseCSV(text)

	want := []map[string]string{
		{"a": "1", "b": "", "c": ""},
		{"a": "1", "b": "2", "c": "3"},
	}
	if !reflect.DeepEqual(got.Rows, want) {
		t.Errorf("Rows = %v, want %v", got.Rows, want)
	}
}

func TestParseCSV_Empty(t *testing.T) {
	for _, text := range []string{"", "\n\n", "  \r\n\t\n"} {
		got := ParseCSV(text)
		if len(got.Headers) != 0 || len(got.Rows) != 0 {
			t.Errorf("ParseCSV(%q) = %+v, want empty table", text, got)
		}
		if !got.Empty() {
			t.Errorf("ParseCSV(%q).Empty() = false, want true", text)
		}
	}
}

func TestParseCSV_HeaderOnlyIsEmpty(t *testing.T) {
	got := ParseCSV("nome;email\n")
	if !got.Empty() {
		t.Errorf("Empty() = false for header-only file")
	}
	if len(got.Headers) != 2 {
		t.Errorf("len(Headers) = %d, want 2", len(got.Headers))
	}
}

func TestParseCSV_UniqueHeaders(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		headers []string
		row     map[string]string
	}{
		{
			name:    "blank and repeated",
			input:   "email,,email\nx,y,z",
			headers: []string{"email", "column_2", "email_2"},
			row:     map[string]string{"email": "x", "column_2": "y", "email_2": "z"},
		},
		{
			name:    "suffix already used by a later header",
			input:   "a,a,a_2\n1,2,3\n",
			headers: []string{"a", "a_2", "a_2_2"},
			row:     map[string]string{"a": "1", "a_2": "2", "a_2_2": "3"},
		},
		{
			name:    "suffix already used by an earlier header",
			input:   "a_2,a,a\n1,2,3\n",
			headers: []string{"a_2", "a", "a_3"},
			row:     map[string]string{"a_2": "1", "a": "2", "a_3": "3"},
		},
		{
			name:    "blank header named like a real one",
			input:   "column_2,\nx,y",
			headers: []string{"column_2", "column_2_2"},
			row:     map[string]string{"column_2": "x", "column_2_2": "y"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseCSV(tt.input)
			if !reflect.DeepEqual(got.Headers, tt.headers) {
				t.Errorf("Headers = %v, want %v", got.Headers, tt.headers)
			}
			if len(got.Rows) != 1 || !reflect.DeepEqual(got.Rows[0], tt.row) {
				t.Errorf("Rows = %v, want [%v]", got.Rows, tt.row)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// VCF
// ----------------------------------------------------------------------------

func TestParseVCF(t *testing.T) {
	text := "BEGIN:VCARD\r\n" +
		"VERSION:3.0\r\n" +
		"N:Silva;Ana;;Dra.;\r\n" +
		"FN:Ana Silva\r\n" +
		"EMAIL;TYPE=INTERNET:ana@example.com\r\n" +
		"EMAIL:second@example.com\r\n" +
		"item1.TEL;TYPE=CELL:+351 912 345 678\r\n" +
		"ORG:Imobiliária Sol;Vendas\r\n" +
		"ADR;TYPE=WORK:;;Rua do Ouro 1;Lisboa;;1100-060;Portugal\r\n" +
		"NOTE:Interessada em T2\\, zona centro\r\n" +
		" com garagem\r\n" +
		"END:VCARD\r\n" +
		"BEGIN:VCARD\r\n" +
		"FN:Bruno Alves\r\n" +
		"END:VCARD\r\n"

	got := ParseVCF(text)

	if !reflect.DeepEqual(got.Headers, vcfColumns) {
		t.Fatalf("Headers = %v, want %v", got.Headers, vcfColumns)
	}
	if len(got.Rows) != 2 {
		t.Fatalf("len(Rows) = %d, want 2", len(got.Rows))
	}

	first := got.Rows[0]
	checks := map[string]string{
		"FN":    "Ana Silva",
		"N":     "Dra. Ana Silva",
		"EMAIL": "ana@example.com",
		"TEL":   "+351 912 345 678",
		"ORG":   "Imobiliária Sol Vendas",
		"ADR":   "Rua do Ouro 1, Lisboa, 1100-060, Portugal",
		"NOTE":  "Interessada em T2, zona centrocom garagem",
		"TITLE": "",
	}
	for k, want := range checks {
		if first[k] != want {
			t.Errorf("%s = %q, want %q", k, first[k], want)
		}
	}

	if got.Rows[1]["FN"] != "Bruno Alves" || got.Rows[1]["EMAIL"] != "" {
		t.Errorf("second card = %v", got.Rows[1])
	}
}

func TestParseVCF_NameFromN(t *testing.T) {
	text := "BEGIN:VCARD\n" +
		"VERSION:2.1\n" +
		"N:Silva;Ana;;;\n" +
		"EMAIL:ana@example.com\n" +
		"END:VCARD\n" +
		"BEGIN:VCARD\n" +
		"N:Alves;Bruno;;;\n" +
		"FN:Bruno M. Alves\n" +
		"END:VCARD\n"

	got := ParseVCF(text)
	if len(got.Rows) != 2 {
		t.Fatalf("len(Rows) = %d, want 2", len(got.Rows))
	}
	if got.Rows[0]["FN"] != "Ana Silva" {
		t.Errorf("FN = %q, want %q", got.Rows[0]["FN"], "Ana Silva")
	}
	if got.Rows[1]["FN"] != "Bruno M. Alves" {
		t.Errorf("FN = %q, want the card's own FN", got.Rows[1]["FN"])
	}
}

func TestParseVCF_NoCards(t *testing.T) {
	got := ParseVCF("VERSION:3.0\nFN:orphan\n")
	if !got.Empty() {
		t.Errorf("expected empty table, got %+v", got)
	}
}

// ----------------------------------------------------------------------------
// XML
// ----------------------------------------------------------------------------

func TestParseXML_PortalFeed(t *testing.T) {
	data := []byte(`<?xml version="1.0" encoding="UTF-8"?>
<feed>
  <imoveis>
    <imovel ref="A1">
      <titulo>Apartamento T2 Lisboa</titulo>
      <preco>250.000</preco>
      <imagens>
        <imagem>https://x/1.jpg</imagem>
        <imagem url="https://x/2.jpg"/>
      </imagens>
      <morada><rua>Rua A</rua><cidade>Lisboa</cidade></morada>
    </imovel>
    <imovel ref="B2">
      <titulo>Moradia V4</titulo>
      <cidade>Porto</cidade>
    </imovel>
  </imoveis>
</feed>`)

	got, err := ParseXML(data)
	if err != nil {
		t.Fatalf("ParseXML() error = %v", err)
	}
	if len(got.Rows) != 2 {
		t.Fatalf("len(Rows) = %d, want 2", len(got.Rows))
	}

	first := got.Rows[0]
	if first["ref"] != "A1" {
		t.Errorf("ref = %q, want A1", first["ref"])
	}
	if first["imagens"] != "https://x/1.jpg|https://x/2.jpg" {
		t.Errorf("imagens = %q", first["imagens"])
	}
	if first["morada"] != "Rua A|Lisboa" {
		t.Errorf("morada = %q", first["morada"])
	}
	if got.Rows[1]["preco"] != "" || got.Rows[1]["cidade"] != "Porto" {
		t.Errorf("second row = %v", got.Rows[1])
	}
}

func TestParseXML_GenericRepeatingChildren(t *testing.T) {
	data := []byte(`<export><pessoa><nome>Ana</nome></pessoa><pessoa><nome>Rui</nome></pessoa></export>`)

	got, err := ParseXML(data)
	if err != nil {
		t.Fatalf("ParseXML() error = %v", err)
	}
	if len(got.Rows) != 2 || got.Rows[1]["nome"] != "Rui" {
		t.Errorf("Rows = %v", got.Rows)
	}
}

func TestParseXML_Invalid(t *testing.T) {
	if _, err := ParseXML([]byte("not xml at all")); err == nil {
		t.Error("expected error for non-xml content")
	}
}

// ----------------------------------------------------------------------------
// JSON
// ----------------------------------------------------------------------------

func TestParseJSON(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"array", `[{"title":"T2","price":250000,"images":["a.jpg","b.jpg"],"location":{"city":"Lisboa"}}]`},
		{"envelope", `{"properties":[{"title":"T2","price":250000,"images":[{"url":"a.jpg"},{"url":"b.jpg"}],"location":{"city":"Lisboa"}}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseJSON([]byte(tt.data))
			if err != nil {
				t.Fatalf("ParseJSON() error = %v", err)
			}
			want := []string{"title", "price", "images", "location.city"}
			if !reflect.DeepEqual(got.Headers, want) {
				t.Errorf("Headers = %v, want %v", got.Headers, want)
			}
			row := got.Rows[0]
			if row["price"] != "250000" || row["images"] != "a.jpg|b.jpg" || row["location.city"] != "Lisboa" {
				t.Errorf("row = %v", row)
			}
		})
	}
}

func TestParseJSON_CollidingColumns(t *testing.T) {
	got, err := ParseJSON([]byte(`[{"morada.cidade": "Lisboa", "morada": {"cidade": "Porto"}, "ref": "A1"}]`))
	if err != nil {
		t.Fatalf("ParseJSON() error = %v", err)
	}

	want := []string{"morada.cidade", "morada.cidade_2", "ref"}
	if !reflect.DeepEqual(got.Headers, want) {
		t.Errorf("Headers = %v, want %v", got.Headers, want)
	}
	row := got.Rows[0]
	if row["morada.cidade"] != "Lisboa" || row["morada.cidade_2"] != "Porto" {
		t.Errorf("row = %v, want both cities kept", row)
	}
}

func TestParseJSON_Errors(t *testing.T) {
	for _, data := range []string{`{"foo": 1}`, `{broken`, `"text"`} {
		if _, err := ParseJSON([]byte(data)); err == nil {
			t.Errorf("ParseJSON(%s) expected error", data)
		}
	}
}

// ----------------------------------------------------------------------------
// Dispatch
// ----------------------------------------------------------------------------

func TestDetect(t *testing.T) {
	tests := []struct {
		file string
		data string
		want Format
	}{
		{"leads.csv", "", FormatCSV},
		{"contacts.VCF", "", FormatVCF},
		{"feed.xml", "", FormatXML},
		{"export.json", "", FormatJSON},
		{"upload", "\xEF\xBB\xBF  [{}]", FormatJSON},
		{"upload", "<x/>", FormatXML},
		{"upload", "begin:vcard\n", FormatVCF},
		{"upload", "a;b", FormatCSV},
	}

	for _, tt := range tests {
		if got := Detect(tt.file, []byte(tt.data)); got != tt.want {
			t.Errorf("Detect(%q, %q) = %q, want %q", tt.file, tt.data, got, tt.want)
		}
	}
}

func TestParse_StripsBOMAndBadBytes(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("nome\ncaf\xe9")...)

	got, err := Parse(FormatCSV, data)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got.Headers[0] != "nome" {
		t.Errorf("header = %q, want %q", got.Headers[0], "nome")
	}
	if got.Rows[0]["nome"] != "caf\uFFFD" {
		t.Errorf("cell = %q", got.Rows[0]["nome"])
	}
}

func TestParse_Unsupported(t *testing.T) {
	_, err := Parse(Format("xlsx"), []byte("x"))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("error = %v, want ErrUnsupportedFormat", err)
	}
}
