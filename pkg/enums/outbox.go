package enums

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateWorkOrder OutboxAggregateType = "work_order"
	AggregatePart      OutboxAggregateType = "part"
)

var aggregateTypes = set[OutboxAggregateType]{AggregateWorkOrder, AggregatePart}

func (a OutboxAggregateType) IsValid() bool { return aggregateTypes.has(a) }

// OutboxEventType names a domain event stored in outbox_events.
type OutboxEventType string

const (
	EventWorkOrderCreated       OutboxEventType = "work_order_created"
	EventWorkOrderStatusChanged OutboxEventType = "work_order_status_changed"
	EventWorkOrderTotalsChanged OutboxEventType = "work_order_totals_changed"
	EventPaymentRegistered      OutboxEventType = "payment_registered"
	EventPartStockAdjusted      OutboxEventType = "part_stock_adjusted"
	EventPartLowStock           OutboxEventType = "part_low_stock"
)

var eventTypes = set[OutboxEventType]{
	EventWorkOrderCreated,
	EventWorkOrderStatusChanged,
	EventWorkOrderTotalsChanged,
	EventPaymentRegistered,
	EventPartStockAdjusted,
	EventPartLowStock,
}

func (e OutboxEventType) IsValid() bool { return eventTypes.has(e) }

// OutboxDLQErrorReason records why a row left the outbox for the DLQ.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

var dlqReasons = set[OutboxDLQErrorReason]{OutboxDLQReasonMaxAttempts, OutboxDLQReasonNonRetryable}

func (r OutboxDLQErrorReason) IsValid() bool { return dlqReasons.has(r) }
