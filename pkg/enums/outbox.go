package enums

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateOrder        OutboxAggregateType = "order"
	AggregateNotification OutboxAggregateType = "notification"
	AggregateTransaction  OutboxAggregateType = "transaction"
	AggregateIssue        OutboxAggregateType = "issue"
)

var validAggregateTypes = values[OutboxAggregateType]{
	AggregateOrder,
	AggregateNotification,
	AggregateTransaction,
	AggregateIssue,
}

func (o OutboxAggregateType) IsValid() bool {
	return validAggregateTypes.has(o)
}

func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return validAggregateTypes.parse("aggregate type", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventMaterialRequested       OutboxEventType = "material_requested"
	EventMaterialRequestApproved OutboxEventType = "material_request_approved"
	EventOrderDelivered          OutboxEventType = "order_delivered"
	EventIssueReported           OutboxEventType = "issue_reported"
)

var validEventTypes = values[OutboxEventType]{
	EventMaterialRequested,
	EventMaterialRequestApproved,
	EventOrderDelivered,
	EventIssueReported,
}

func (o OutboxEventType) IsValid() bool {
	return validEventTypes.has(o)
}

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return validEventTypes.parse("event type", value)
}
