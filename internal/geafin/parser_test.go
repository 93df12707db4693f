package geafin

import (
	"testing"

	"github.com/dfcarvalho/patrimonio-backend/pkg/enums"
	"golang.org/x/text/encoding/charmap"
)

func TestDetectDelimiter(t *testing.T) {
	cases := []struct {
		header string
		want   rune
	}{
		{"TOMBAMENTO;DESCRICAO;UNIDADE", ';'},
		{"TOMBAMENTO,DESCRICAO,UNIDADE", ','},
		{"TOMBAMENTO;DESCRICAO,X;Y,Z", ';'}, // tie: semicolon wins
	}
	for _, tc := range cases {
		if got := DetectDelimiter(tc.header); got != tc.want {
			t.Errorf("DetectDelimiter(%q) = %q, want %q", tc.header, got, tc.want)
		}
	}
}

func TestParseTableMapsHeaderVariants(t *testing.T) {
	payload := []byte("Nº TOMBAMENTO;DESCRIÇÃO DO BEM;UNIDADE;VALOR AQUISIÇÃO\n" +
		"1290001788;NOTEBOOK;1a aud;1.234,56\n")

	table, err := ParseTable(payload)
	if err != nil {
		t.Fatalf("ParseTable: %v", err)
	}
	if table.Delimiter != ';' {
		t.Errorf("delimiter = %q, want ;", table.Delimiter)
	}
	if len(table.Rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(table.Rows))
	}

	row := table.Rows[0]
	if row.Fields[FieldTag] != "1290001788" {
		t.Errorf("tag = %q", row.Fields[FieldTag])
	}
	if row.Fields[FieldDescription] != "NOTEBOOK" {
		t.Errorf("description = %q", row.Fields[FieldDescription])
	}
	if row.Fields[FieldValue] != "1.234,56" {
		t.Errorf("value = %q", row.Fields[FieldValue])
	}
}

func TestParseTableDecodesLegacyEncoding(t *testing.T) {
	encoded, err := charmap.ISO8859_1.NewEncoder().String(
		"TOMBAMENTO;DESCRIÇÃO;LOTAÇÃO\n1290001788;CADEIRA GIRATÓRIA;1ª Auditoria\n")
	if err != nil {
		t.Fatalf("encoding fixture: %v", err)
	}

	table, err := ParseTable([]byte(encoded))
	if err != nil {
		t.Fatalf("ParseTable: %v", err)
	}
	if len(table.Rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(table.Rows))
	}
	if got := table.Rows[0].Fields[FieldDescription]; got != "CADEIRA GIRATÓRIA" {
		t.Errorf("description = %q", got)
	}
	if got := table.Rows[0].Fields[FieldUnit]; got != "1ª Auditoria" {
		t.Errorf("unit = %q", got)
	}
}

func TestParseTableToleratesRaggedRows(t *testing.T) {
	payload := []byte("TOMBAMENTO;DESCRICAO;UNIDADE\n" +
		"1290001788;NOTEBOOK\n" +
		"0000000002;MESA;2a aud;EXTRA\n")

	table, err := ParseTable(payload)
	if err != nil {
		t.Fatalf("ParseTable: %v", err)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(table.Rows))
	}
	if _, ok := table.Rows[0].Fields[FieldUnit]; ok {
		t.Error("short row should have no unit field")
	}
	if got := table.Rows[1].Fields[FieldUnit]; got != "2a aud" {
		t.Errorf("unit = %q", got)
	}
}

func TestParseTableRejectsHeaderWithoutTagColumn(t *testing.T) {
	if _, err := ParseTable([]byte("DESCRICAO;UNIDADE\nNOTEBOOK;1a aud\n")); err == nil {
		t.Fatal("expected structural error for missing tag column")
	}
}

func TestNormalizeProducesTypedRow(t *testing.T) {
	raw := RawRow{
		Number: 1,
		Fields: map[string]string{
			FieldTag:         "1290001788",
			FieldDescription: "NOTEBOOK",
			FieldUnit:        "1a aud",
			FieldValue:       "R$ 2.500,00",
			FieldDate:        "15/03/2019",
			FieldLocation:    "Sala 101",
		},
	}

	row, err := Normalize(raw, 0)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if row.TagNumber != "1290001788" {
		t.Errorf("tag = %q", row.TagNumber)
	}
	if row.OwnerUnit != enums.UnitFirst {
		t.Errorf("unit = %v", row.OwnerUnit)
	}
	if row.AcquisitionValue == nil || row.AcquisitionValue.String() != "2500" {
		t.Errorf("value = %v", row.AcquisitionValue)
	}
	if row.AcquisitionDate == nil || row.AcquisitionDate.Year() != 2019 {
		t.Errorf("date = %v", row.AcquisitionDate)
	}
	// no catalog code column: folded description doubles as natural key
	if row.CatalogCode != "NOTEBOOK" {
		t.Errorf("catalog code = %q", row.CatalogCode)
	}
}

func TestNormalizeUsesFallbackUnit(t *testing.T) {
	raw := RawRow{Number: 1, Fields: map[string]string{
		FieldTag:         "1290001788",
		FieldDescription: "NOTEBOOK",
	}}

	if _, err := Normalize(raw, 0); err == nil {
		t.Fatal("expected error without fallback unit")
	}

	row, err := Normalize(raw, enums.UnitThird)
	if err != nil {
		t.Fatalf("Normalize with fallback: %v", err)
	}
	if row.OwnerUnit != enums.UnitThird {
		t.Errorf("unit = %v, want fallback", row.OwnerUnit)
	}
}

func TestNormalizeRejectsBadTag(t *testing.T) {
	raw := RawRow{Number: 7, Fields: map[string]string{
		FieldTag:         "123456789", // nine digits
		FieldDescription: "NOTEBOOK",
		FieldUnit:        "1a aud",
	}}
	if _, err := Normalize(raw, 0); err == nil {
		t.Fatal("expected tag normalization error")
	}
}

func TestRowHashIsOrderIndependent(t *testing.T) {
	a := map[string]string{"tag": "1290001788", "description": "NOTEBOOK", "unit": "1a aud"}
	b := map[string]string{"unit": "1a aud", "tag": "1290001788", "description": "NOTEBOOK"}

	if RowHash(a) != RowHash(b) {
		t.Error("hash differs for identical field maps")
	}

	c := map[string]string{"tag": "1290001789", "description": "NOTEBOOK", "unit": "1a aud"}
	if RowHash(a) == RowHash(c) {
		t.Error("hash collides for different field maps")
	}
}

func TestParseTableStripsByteOrderMark(t *testing.T) {
	payload := []byte("\xEF\xBB\xBFTOMBAMENTO;DESCRICAO\n1290001788;NOTEBOOK\n")

	table, err := ParseTable(payload)
	if err != nil {
		t.Fatalf("ParseTable: %v", err)
	}
	if len(table.Rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(table.Rows))
	}
	if got := table.Rows[0].Fields[FieldTag]; got != "1290001788" {
		t.Errorf("tag = %q, want 1290001788", got)
	}
}
