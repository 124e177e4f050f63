package models

// All lists every table the core owns, in creation order.
func All() []any {
	return []any{
		&Part{},
		&PartMovement{},
		&CatalogService{},
		&WorkOrder{},
		&ServiceLineItem{},
		&PartUsage{},
		&WorkOrderHistoryEntry{},
		&Payment{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}
