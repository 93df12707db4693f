package enums

import "fmt"

// AssetStatus maps to the asset_status_enum enum in Postgres.
type AssetStatus string

const (
	AssetStatusOK              AssetStatus = "ok"
	AssetStatusWrittenOff      AssetStatus = "written_off"
	AssetStatusInCustody       AssetStatus = "in_custody"
	AssetStatusAwaitingReceipt AssetStatus = "awaiting_receipt"
)

var validAssetStatuses = []AssetStatus{
	AssetStatusOK,
	AssetStatusWrittenOff,
	AssetStatusInCustody,
	AssetStatusAwaitingReceipt,
}

// IsValid reports whether the value matches the canonical asset status enum.
func (s AssetStatus) IsValid() bool {
	for _, candidate := range validAssetStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseAssetStatus converts raw input into AssetStatus.
func ParseAssetStatus(value string) (AssetStatus, error) {
	for _, candidate := range validAssetStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid asset status %q", value)
}
