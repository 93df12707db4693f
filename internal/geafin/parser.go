package geafin

import (
	"encoding/csv"
	"fmt"
	"strings"
)

// Canonical field names produced by header mapping. Downstream code only
// ever sees these; the historical column-name variants stay in this file.
const (
	FieldTag         = "tag"
	FieldCatalogCode = "catalog_code"
	FieldDescription = "description"
	FieldGroup       = "group"
	FieldUnit        = "unit"
	FieldLocation    = "location"
	FieldValue       = "value"
	FieldDate        = "date"
)

// headerAliases maps folded column headers from every GEAFIN export
// variant we have seen to canonical field names.
var headerAliases = map[string]string{
	"TOMBAMENTO":             FieldTag,
	"N TOMBAMENTO":           FieldTag,
	"NO TOMBAMENTO":          FieldTag,
	"NR TOMBAMENTO":          FieldTag,
	"NUMERO TOMBAMENTO":      FieldTag,
	"NUMERO DO TOMBAMENTO":   FieldTag,
	"TOMBO":                  FieldTag,
	"CODIGO":                 FieldCatalogCode,
	"COD MATERIAL":           FieldCatalogCode,
	"CODIGO MATERIAL":        FieldCatalogCode,
	"CODIGO DO MATERIAL":     FieldCatalogCode,
	"CATMAT":                 FieldCatalogCode,
	"DESCRICAO":              FieldDescription,
	"DESCRICAO DO BEM":       FieldDescription,
	"ESPECIFICACAO":          FieldDescription,
	"GRUPO":                  FieldGroup,
	"GRUPO MATERIAL":         FieldGroup,
	"UNIDADE":                FieldUnit,
	"UNIDADE ADMINISTRATIVA": FieldUnit,
	"LOTACAO":                FieldUnit,
	"SETOR":                  FieldUnit,
	"LOCALIZACAO":            FieldLocation,
	"LOCAL":                  FieldLocation,
	"DEPENDENCIA":            FieldLocation,
	"VALOR":                  FieldValue,
	"VALOR AQUISICAO":        FieldValue,
	"VL AQUISICAO":           FieldValue,
	"VALOR DE AQUISICAO":     FieldValue,
	"DATA AQUISICAO":         FieldDate,
	"DT AQUISICAO":           FieldDate,
	"DATA DE AQUISICAO":      FieldDate,
}

// RawRow is one parsed data line: the verbatim source text plus its
// fields keyed by canonical field name. It exists for the audit trail;
// normalization converts it into a typed Row before anything touches the
// operational model.
type RawRow struct {
	Number int
	Raw    string
	Fields map[string]string
}

// DetectDelimiter compares delimiter-character frequency in the header
// line. Semicolon wins ties, matching the dominant GEAFIN export format.
func DetectDelimiter(header string) rune {
	if strings.Count(header, ",") > strings.Count(header, ";") {
		return ','
	}
	return ';'
}

// Table is the fully parsed import payload.
type Table struct {
	Delimiter rune
	Rows      []RawRow
}

// ParseTable decodes the payload, detects the delimiter, maps the header
// into canonical field names and parses every data line. Lines are parsed
// individually so each RawRow keeps its verbatim text; ragged column
// counts are tolerated (missing trailing fields become absent keys).
func ParseTable(payload []byte) (*Table, error) {
	text, err := Decode(payload)
	if err != nil {
		return nil, fmt.Errorf("decoding payload: %w", err)
	}

	lines := splitLines(text)
	if len(lines) == 0 {
		return nil, fmt.Errorf("payload has no header line")
	}

	delimiter := DetectDelimiter(lines[0])
	columns, err := mapHeader(lines[0], delimiter)
	if err != nil {
		return nil, err
	}

	rows := make([]RawRow, 0, len(lines)-1)
	for i, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields, err := parseLine(line, delimiter)
		if err != nil {
			// unparseable lines still enter the audit trail
			rows = append(rows, RawRow{Number: i + 1, Raw: line, Fields: map[string]string{}})
			continue
		}

		mapped := make(map[string]string, len(columns))
		for col, name := range columns {
			if col >= len(fields) {
				continue
			}
			if value := strings.TrimSpace(fields[col]); value != "" {
				mapped[name] = value
			}
		}
		rows = append(rows, RawRow{Number: i + 1, Raw: line, Fields: mapped})
	}

	return &Table{Delimiter: delimiter, Rows: rows}, nil
}

func splitLines(text string) []string {
	text = strings.TrimPrefix(text, "\ufeff")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")

	out := lines[:0]
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}

// mapHeader resolves column positions to canonical field names. Unknown
// columns are ignored; a header without a recognizable tag column is a
// structural failure.
func mapHeader(header string, delimiter rune) (map[int]string, error) {
	fields, err := parseLine(header, delimiter)
	if err != nil {
		return nil, fmt.Errorf("parsing header line: %w", err)
	}

	columns := make(map[int]string)
	for i, field := range fields {
		if name, ok := headerAliases[foldKey(field)]; ok {
			columns[i] = name
		}
	}

	hasTag := false
	for _, name := range columns {
		if name == FieldTag {
			hasTag = true
			break
		}
	}
	if !hasTag {
		return nil, fmt.Errorf("header has no recognizable tag column")
	}
	return columns, nil
}

func parseLine(line string, delimiter rune) ([]string, error) {
	r := csv.NewReader(strings.NewReader(line))
	r.Comma = delimiter
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	return r.Read()
}
