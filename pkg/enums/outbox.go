package enums

import "fmt"

// OutboxEventType names a domain event queued for publication.
type OutboxEventType string

const (
	EventOrderCreated     OutboxEventType = "order.created"
	EventOrderPaid        OutboxEventType = "order.paid"
	EventOrderCancelled   OutboxEventType = "order.cancelled"
	EventPromotionApplied OutboxEventType = "promotion.applied"
)

// OutboxAggregateType names the aggregate an event belongs to.
type OutboxAggregateType string

const (
	AggregateOrder     OutboxAggregateType = "order"
	AggregatePromotion OutboxAggregateType = "promotion"
)

// OutboxEventStatus tracks the publication state of an outbox row.
type OutboxEventStatus string

const (
	OutboxEventStatusPending   OutboxEventStatus = "pending"
	OutboxEventStatusPublished OutboxEventStatus = "published"
	OutboxEventStatusFailed    OutboxEventStatus = "failed"
	OutboxEventStatusTerminal  OutboxEventStatus = "terminal"
)

// OutboxDLQErrorReason explains why an event landed in the dead-letter table.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
)

// ParseOutboxEventType converts raw input into an OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range []OutboxEventType{
		EventOrderCreated,
		EventOrderPaid,
		EventOrderCancelled,
		EventPromotionApplied,
	} {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outbox event type %q", value)
}
