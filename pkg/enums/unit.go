package enums

import "fmt"

// Unit identifies one of the four administrative units that can hold
// ledger ownership of an asset.
type Unit int16

const (
	UnitFirst  Unit = 1
	UnitSecond Unit = 2
	UnitThird  Unit = 3
	UnitFourth Unit = 4
)

var validUnits = []Unit{UnitFirst, UnitSecond, UnitThird, UnitFourth}

// IsValid reports whether the value is one of the four canonical units.
func (u Unit) IsValid() bool {
	for _, candidate := range validUnits {
		if candidate == u {
			return true
		}
	}
	return false
}

// Name returns the display name used on printed reports.
func (u Unit) Name() string {
	switch u {
	case UnitFirst:
		return "1ª Auditoria"
	case UnitSecond:
		return "2ª Auditoria"
	case UnitThird:
		return "3ª Auditoria"
	case UnitFourth:
		return "4ª Auditoria"
	}
	return fmt.Sprintf("unit(%d)", int16(u))
}

// ParseUnit converts a numeric code into a Unit.
func ParseUnit(code int) (Unit, error) {
	u := Unit(code)
	if !u.IsValid() {
		return 0, fmt.Errorf("invalid unit code %d", code)
	}
	return u, nil
}
