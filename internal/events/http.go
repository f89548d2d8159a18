package events

import "time"

// RequestStart is emitted when the GraphQL handler accepts an HTTP request.
// RequestID is the id echoed in the request id response header; every
// other event of the request carries the same id.
type RequestStart struct {
	RequestID string
	Method    string
	Path      string
}

// RequestFinish is emitted once the response has been written.
type RequestFinish struct {
	RequestID string
	Status    int
	Duration  time.Duration
}
