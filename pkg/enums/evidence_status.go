package enums

// EvidenceStatus tracks the lifecycle of a movement's evidence document.
type EvidenceStatus string

const (
	EvidenceStatusPending  EvidenceStatus = "pending"
	EvidenceStatusAttached EvidenceStatus = "attached"
)

// IsValid reports whether the value matches the canonical evidence enum.
func (s EvidenceStatus) IsValid() bool {
	return s == EvidenceStatusPending || s == EvidenceStatusAttached
}
