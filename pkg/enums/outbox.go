package enums

import "fmt"

// OutboxEventType identifies the domain event carried by an outbox row.
type OutboxEventType string

const (
	OutboxEventOrderCreated      OutboxEventType = "order.created"
	OutboxEventOrderPaid         OutboxEventType = "order.paid"
	OutboxEventOrderCancelled    OutboxEventType = "order.cancelled"
	OutboxEventOrderRefunded     OutboxEventType = "order.refunded"
	OutboxEventInventoryAdjusted OutboxEventType = "inventory.adjusted"
)

var validOutboxEventTypes = []OutboxEventType{
	OutboxEventOrderCreated,
	OutboxEventOrderPaid,
	OutboxEventOrderCancelled,
	OutboxEventOrderRefunded,
	OutboxEventInventoryAdjusted,
}

// String implements fmt.Stringer.
func (o OutboxEventType) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OutboxEventType.
func (o OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into an OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outbox event type %q", value)
}

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	OutboxAggregateOrder   OutboxAggregateType = "order"
	OutboxAggregateVariant OutboxAggregateType = "variant"
)

var validOutboxAggregateTypes = []OutboxAggregateType{
	OutboxAggregateOrder,
	OutboxAggregateVariant,
}

// String implements fmt.Stringer.
func (o OutboxAggregateType) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OutboxAggregateType.
func (o OutboxAggregateType) IsValid() bool {
	for _, candidate := range validOutboxAggregateTypes {
		if candidate == o {
			return true
		}
	}
	return false
}
