package geafin

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dfcarvalho/patrimonio-backend/pkg/enums"
)

// Row is the typed record produced by normalization. Nothing past this
// boundary ever handles the untyped field map.
type Row struct {
	TagNumber        string
	CatalogCode      string
	Description      string
	Group            *string
	OwnerUnit        enums.Unit
	PhysicalLocation string
	AcquisitionValue *decimal.Decimal
	AcquisitionDate  *time.Time
}

var acquisitionDateLayouts = []string{"02/01/2006", "2006-01-02"}

// Normalize converts a RawRow into a typed Row, or a structured error when
// the row cannot enter the operational model. fallbackUnit (zero when
// unset) covers exports that omit the unit column entirely.
func Normalize(raw RawRow, fallbackUnit enums.Unit) (Row, error) {
	tag, err := NormalizeTag(raw.Fields[FieldTag])
	if err != nil {
		return Row{}, err
	}

	description := strings.TrimSpace(RepairMojibake(raw.Fields[FieldDescription]))
	if description == "" {
		return Row{}, fmt.Errorf("row %d: missing description", raw.Number)
	}

	unit, ok := NormalizeUnit(raw.Fields[FieldUnit])
	if !ok {
		if !fallbackUnit.IsValid() {
			return Row{}, fmt.Errorf("row %d: unresolvable unit %q", raw.Number, raw.Fields[FieldUnit])
		}
		unit = fallbackUnit
	}

	// Some export variants carry no material code; the folded description
	// then doubles as the catalog natural key.
	catalogCode := strings.TrimSpace(raw.Fields[FieldCatalogCode])
	if catalogCode == "" {
		catalogCode = foldKey(description)
	}

	row := Row{
		TagNumber:        tag,
		CatalogCode:      catalogCode,
		Description:      description,
		OwnerUnit:        unit,
		PhysicalLocation: strings.TrimSpace(RepairMojibake(raw.Fields[FieldLocation])),
	}

	if group := strings.TrimSpace(RepairMojibake(raw.Fields[FieldGroup])); group != "" {
		row.Group = &group
	}

	if value := strings.TrimSpace(raw.Fields[FieldValue]); value != "" {
		parsed, err := parseMoney(value)
		if err != nil {
			return Row{}, fmt.Errorf("row %d: %w", raw.Number, err)
		}
		row.AcquisitionValue = &parsed
	}

	if value := strings.TrimSpace(raw.Fields[FieldDate]); value != "" {
		parsed, err := parseDate(value)
		if err != nil {
			return Row{}, fmt.Errorf("row %d: %w", raw.Number, err)
		}
		row.AcquisitionDate = &parsed
	}

	return row, nil
}

// parseMoney accepts both Brazilian ("1.234,56", optionally "R$"-prefixed)
// and plain decimal notation.
func parseMoney(value string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(value), "R$"))
	if strings.Contains(cleaned, ",") {
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	}

	parsed, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid acquisition value %q", value)
	}
	return parsed, nil
}

func parseDate(value string) (time.Time, error) {
	for _, layout := range acquisitionDateLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid acquisition date %q", value)
}
