package enums

import "strings"

// WorkOrderPriority ranks work orders on the shop floor.
type WorkOrderPriority string

const (
	WorkOrderPriorityLow    WorkOrderPriority = "LOW"
	WorkOrderPriorityNormal WorkOrderPriority = "NORMAL"
	WorkOrderPriorityHigh   WorkOrderPriority = "HIGH"
	WorkOrderPriorityUrgent WorkOrderPriority = "URGENT"
)

var workOrderPriorities = set[WorkOrderPriority]{
	WorkOrderPriorityLow,
	WorkOrderPriorityNormal,
	WorkOrderPriorityHigh,
	WorkOrderPriorityUrgent,
}

func (p WorkOrderPriority) String() string { return string(p) }

func (p WorkOrderPriority) IsValid() bool { return workOrderPriorities.has(p) }

// ParseWorkOrderPriority defaults blank input to NORMAL.
func ParseWorkOrderPriority(value string) (WorkOrderPriority, error) {
	if strings.TrimSpace(value) == "" {
		return WorkOrderPriorityNormal, nil
	}
	return workOrderPriorities.parse(value, "work order priority", true)
}
