package enums

// OccurrenceType classifies one physical count against the ledger.
type OccurrenceType string

const (
	OccurrenceTypeConformant        OccurrenceType = "conformant"
	OccurrenceTypeLocationDivergent OccurrenceType = "location_divergent"
	OccurrenceTypeThirdPartyAsset   OccurrenceType = "third_party_asset"
)

// IsValid reports whether the value matches the canonical occurrence enum.
func (t OccurrenceType) IsValid() bool {
	switch t {
	case OccurrenceTypeConformant, OccurrenceTypeLocationDivergent, OccurrenceTypeThirdPartyAsset:
		return true
	}
	return false
}
