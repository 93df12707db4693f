package enums

import "fmt"

// MovementType maps to the movement_type_enum enum in Postgres.
type MovementType string

const (
	MovementTypeTransfer       MovementType = "transfer"
	MovementTypeCustodyOut     MovementType = "custody_out"
	MovementTypeCustodyReturn  MovementType = "custody_return"
	MovementTypeRegularization MovementType = "regularization"
)

var validMovementTypes = []MovementType{
	MovementTypeTransfer,
	MovementTypeCustodyOut,
	MovementTypeCustodyReturn,
	MovementTypeRegularization,
}

// IsValid reports whether the value matches the canonical movement type enum.
func (t MovementType) IsValid() bool {
	for _, candidate := range validMovementTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseMovementType converts raw input into MovementType.
func ParseMovementType(value string) (MovementType, error) {
	for _, candidate := range validMovementTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid movement type %q", value)
}
