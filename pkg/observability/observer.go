// Package observability defines the hook through which packages report finished
// operations to metrics backends without importing them.
package observability

import "time"

// OperationContext describes one finished operation
type OperationContext struct {
	// Component is the reporting package, e.g. "pipeline" or "goal"
	Component string

	// Operation is the logical operation, e.g. "execute_in_transaction"
	Operation string

	// Resource is the primary object acted on, e.g. the statement kind or table
	Resource string

	// SubResource carries additional context such as the transaction disposition
	SubResource string

	Duration time.Duration
	Error    error

	// Size is the number of items produced or rows affected
	Size int64

	Metadata map[string]interface{}
}

// Observer receives operation reports. Implementations must be safe for
// concurrent use.
type Observer interface {
	ObserveOperation(ctx OperationContext)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(ctx OperationContext)

func (f ObserverFunc) ObserveOperation(ctx OperationContext) {
	f(ctx)
}
