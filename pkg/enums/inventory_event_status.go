package enums

// InventoryEventStatus maps to the inventory_event_status_enum enum in Postgres.
type InventoryEventStatus string

const (
	InventoryEventStatusInProgress InventoryEventStatus = "in_progress"
	InventoryEventStatusClosed     InventoryEventStatus = "closed"
	InventoryEventStatusCancelled  InventoryEventStatus = "cancelled"
)

// IsValid reports whether the value matches the canonical event status enum.
func (s InventoryEventStatus) IsValid() bool {
	switch s {
	case InventoryEventStatusInProgress, InventoryEventStatusClosed, InventoryEventStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether the event admits no further transitions.
func (s InventoryEventStatus) IsTerminal() bool {
	return s == InventoryEventStatusClosed || s == InventoryEventStatusCancelled
}
