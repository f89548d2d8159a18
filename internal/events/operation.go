package events

import "time"

// OperationStart is emitted before a GraphQL operation of a request runs.
// Batched requests emit one pair of operation events per operation.
type OperationStart struct {
	RequestID     string
	OperationName string
	OperationType string
}

// OperationFinish is emitted after the operation has executed.
type OperationFinish struct {
	RequestID     string
	OperationName string
	OperationType string
	// Channels are the subscriber channels the operation registered.
	Channels []string
	Errors   []error
	Duration time.Duration
}
