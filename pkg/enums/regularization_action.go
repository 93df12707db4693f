package enums

import "fmt"

// RegularizationAction resolves a divergent count after an inventory closes.
type RegularizationAction string

const (
	RegularizationActionTransferOwnership RegularizationAction = "transfer_ownership"
	RegularizationActionKeepOwnership     RegularizationAction = "keep_ownership"
)

// IsValid reports whether the value matches the canonical action enum.
func (a RegularizationAction) IsValid() bool {
	return a == RegularizationActionTransferOwnership || a == RegularizationActionKeepOwnership
}

// ParseRegularizationAction converts raw input into RegularizationAction.
func ParseRegularizationAction(value string) (RegularizationAction, error) {
	switch RegularizationAction(value) {
	case RegularizationActionTransferOwnership:
		return RegularizationActionTransferOwnership, nil
	case RegularizationActionKeepOwnership:
		return RegularizationActionKeepOwnership, nil
	}
	return "", fmt.Errorf("invalid regularization action %q", value)
}
